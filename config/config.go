// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml"
	"github.com/spf13/viper"
	"gitlab.com/defios/repotoken/internal/logging"
	"gitlab.com/defios/repotoken/pkg/errors"
	"gitlab.com/defios/repotoken/protocol"
)

const (
	configFile = "repotoken.toml"
	envPrefix  = "REPOTOKEN"
)

// LogLevel defines the default and per-module log levels.
type LogLevel struct {
	Default string
	Modules [][2]string
}

// SetDefault sets the default log level.
func (l LogLevel) SetDefault(level string) LogLevel {
	l.Default = level
	return l
}

// SetModule sets the log level for a module.
func (l LogLevel) SetModule(module, level string) LogLevel {
	l.Modules = append(l.Modules, [2]string{module, level})
	return l
}

// String converts the log level into a string, for example
// "error;executor=info".
func (l LogLevel) String() string {
	s := new(strings.Builder)
	s.WriteString(l.Default)
	for _, m := range l.Modules {
		s.WriteString(";" + m[0] + "=" + m[1])
	}
	return s.String()
}

var DefaultLogLevels = LogLevel{}.
	SetDefault("error").
	SetModule("executor", "info").
	// SetModule("database", "debug").
	String()

type Config struct {
	ProgramID string   `toml:"program-id" mapstructure:"program-id" validate:"required,address"`
	Storage   Storage  `toml:"storage" mapstructure:"storage"`
	Logging   Logging  `toml:"logging" mapstructure:"logging"`
	Metadata  Metadata `toml:"metadata" mapstructure:"metadata"`
}

type Storage struct {
	Type string `toml:"type" mapstructure:"type" validate:"oneof=memory badger"`
	Path string `toml:"path" mapstructure:"path" validate:"required_if=Type badger"`
}

type Logging struct {
	Format string `toml:"format" mapstructure:"format" validate:"omitempty,oneof=text plain json"`
	Level  string `toml:"level" mapstructure:"level" validate:"log-level"`
}

type Metadata struct {
	// RequireCID rejects metadata references that are not valid CIDs.
	RequireCID bool `toml:"require-cid" mapstructure:"require-cid"`
}

func Default() *Config {
	c := new(Config)
	c.ProgramID = protocol.DefaultProgramID.ToBase58()
	c.Storage.Type = "badger"
	c.Storage.Path = "data"
	c.Logging.Format = "text"
	c.Logging.Level = DefaultLogLevels
	return c
}

// Program parses the program ID.
func (c *Config) Program() (protocol.PublicKey, error) {
	return protocol.ParsePublicKey(c.ProgramID)
}

// LogRules parses the log level.
func (c *Config) LogRules() ([]logging.Rule, error) {
	return logging.ParseRules(c.Logging.Level)
}

// NewValidator returns a validator that knows the address and log-level
// tags.
func NewValidator() (*validator.Validate, error) {
	v := validator.New()
	err := v.RegisterValidation("address", func(fl validator.FieldLevel) bool {
		_, err := protocol.ParsePublicKey(fl.Field().String())
		return err == nil
	})
	if err != nil {
		return nil, err
	}
	err = v.RegisterValidation("log-level", func(fl validator.FieldLevel) bool {
		_, err := logging.ParseRules(fl.Field().String())
		return err == nil
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Validate checks that every field can be used.
func (c *Config) Validate() error {
	v, err := NewValidator()
	if err != nil {
		return errors.InternalError.WithFormat("create validator: %w", err)
	}

	err = v.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.UnknownError.WithFormat("validate: %w", err)
	}
	msgs := make([]string, len(verrs))
	for i, e := range verrs {
		msgs[i] = fmt.Sprintf("%s: invalid value %q (%s)", e.Namespace(), e.Value(), e.Tag())
	}
	return errors.BadRequest.With(strings.Join(msgs, "; "))
}

func MakeAbsolute(root, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

// Load reads the configuration in dir. Environment variables such as
// REPOTOKEN_STORAGE_TYPE override the file.
func Load(dir string) (*Config, error) {
	file := filepath.Join(dir, configFile)
	_, err := os.Stat(file)
	switch {
	case err == nil:
	case os.IsNotExist(err):
		return nil, errors.NotFound.WithFormat("no configuration in %s", dir)
	default:
		return nil, errors.UnknownError.WithFormat("stat %s: %w", file, err)
	}

	v := viper.New()
	setDefaults(v, Default())
	v.SetConfigFile(file)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	err = v.ReadInConfig()
	if err != nil {
		return nil, errors.EncodingError.WithFormat("read: %w", err)
	}

	c := new(Config)
	err = v.Unmarshal(c)
	if err != nil {
		return nil, errors.EncodingError.WithFormat("unmarshal: %w", err)
	}

	err = c.Validate()
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Store writes the configuration to dir, creating it if necessary.
func Store(dir string, config *Config) error {
	err := os.MkdirAll(dir, 0755)
	if err != nil {
		return errors.UnknownError.WithFormat("create %s: %w", dir, err)
	}

	f, err := os.Create(filepath.Join(dir, configFile))
	if err != nil {
		return errors.UnknownError.WithFormat("create config: %w", err)
	}
	defer f.Close()

	err = toml.NewEncoder(f).Encode(config)
	if err != nil {
		return errors.EncodingError.WithFormat("encode config: %w", err)
	}
	return nil
}

// setDefaults registers every key so that environment overrides apply even
// when the file omits the key.
func setDefaults(v *viper.Viper, c *Config) {
	v.SetDefault("program-id", c.ProgramID)
	v.SetDefault("storage.type", c.Storage.Type)
	v.SetDefault("storage.path", c.Storage.Path)
	v.SetDefault("logging.format", c.Logging.Format)
	v.SetDefault("logging.level", c.Logging.Level)
	v.SetDefault("metadata.require-cid", c.Metadata.RequireCID)
}
