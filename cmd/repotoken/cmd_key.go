// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package main

import (
	"github.com/blocto/solana-go-sdk/types"
	"github.com/spf13/cobra"
)

var cmdKey = &cobra.Command{
	Use:   "key",
	Short: "Manage keypair files",
}

var cmdKeyGenerate = &cobra.Command{
	Use:   "generate [file]",
	Short: "Generate a keypair and write it to a file",
	Args:  cobra.ExactArgs(1),
	Run: run(func(cmd *cobra.Command, args []string) error {
		account := types.NewAccount()
		err := writeKeypair(args[0], account)
		if err != nil {
			return err
		}
		printField(cmd.OutOrStdout(), "Address", account.PublicKey.ToBase58())
		return nil
	}),
}

var cmdKeyShow = &cobra.Command{
	Use:   "show [file]",
	Short: "Print the address of a keypair file",
	Args:  cobra.ExactArgs(1),
	Run: run(func(cmd *cobra.Command, args []string) error {
		account, err := readKeypair(args[0])
		if err != nil {
			return err
		}
		printField(cmd.OutOrStdout(), "Address", account.PublicKey.ToBase58())
		return nil
	}),
}

func init() {
	cmdMain.AddCommand(cmdKey)
	cmdKey.AddCommand(cmdKeyGenerate, cmdKeyShow)
}
