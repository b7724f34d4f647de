// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package main

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gitlab.com/defios/repotoken/config"
	"gitlab.com/defios/repotoken/internal/database"
	"gitlab.com/defios/repotoken/pkg/errors"
)

var cmdInit = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration to the working directory",
	Args:  cobra.NoArgs,
	Run:   run(initConfig),
}

var flagInit struct {
	ProgramID  string
	Storage    storageFlag
	LogLevel   string
	LogFormat  string
	RequireCID bool
}

func init() {
	cmdMain.AddCommand(cmdInit)

	def := config.Default()
	cmdInit.Flags().StringVar(&flagInit.ProgramID, "program-id", def.ProgramID, "Address of the repository token program")
	flagInit.Storage = storageFlag(def.Storage.Type)
	cmdInit.Flags().Var(&flagInit.Storage, "storage", "Storage type (memory or badger)")
	cmdInit.Flags().StringVar(&flagInit.LogLevel, "log-level", def.Logging.Level, "Log levels, for example error;executor=info")
	cmdInit.Flags().StringVar(&flagInit.LogFormat, "log-format", def.Logging.Format, "Log format (text or json)")
	cmdInit.Flags().BoolVar(&flagInit.RequireCID, "require-cid", def.Metadata.RequireCID, "Reject metadata references that are not CIDs")
}

func initConfig(cmd *cobra.Command, _ []string) error {
	cfg := config.Default()
	cfg.ProgramID = flagInit.ProgramID
	cfg.Storage.Type = string(flagInit.Storage)
	cfg.Logging.Level = flagInit.LogLevel
	cfg.Logging.Format = flagInit.LogFormat
	cfg.Metadata.RequireCID = flagInit.RequireCID

	err := cfg.Validate()
	if err != nil {
		return err
	}

	err = config.Store(flagMain.WorkDir, cfg)
	if err != nil {
		return err
	}

	printSuccess(cmd.OutOrStdout(), "Wrote configuration to %s", flagMain.WorkDir)
	return nil
}

// storageFlag is a storage type that is checked when the flag is parsed.
type storageFlag string

var _ pflag.Value = (*storageFlag)(nil)

func (f *storageFlag) String() string { return string(*f) }
func (f *storageFlag) Type() string   { return "storage" }

func (f *storageFlag) Set(s string) error {
	s = strings.ToLower(s)
	switch s {
	case database.MemoryStorage, database.BadgerStorage:
		*f = storageFlag(s)
		return nil
	default:
		return errors.BadRequest.WithFormat("unknown storage type %q", s)
	}
}
