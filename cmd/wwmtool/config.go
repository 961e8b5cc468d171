// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package main

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/suprsokr/go-wwm"
)

// Config keys shared by flags, environment (WWM_*) and wwmtool.yaml
const (
	keyConfig      = "config"
	keyOutput      = "output"
	keyWorkDir     = "workdir"
	keyTranslation = "translation"
	keyDelimiter   = "delimiter"
	keyLevel       = "level"
	keyJobs        = "jobs"
	keyVerbose     = "verbose"
)

// app carries the resolved configuration for one command run
type app struct {
	v      *viper.Viper
	log    zerolog.Logger
	codec  *wwm.ZstdCodec
	delim  rune
	jobs   int
	closed bool
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName("wwmtool")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvPrefix("WWM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault(keyDelimiter, ";")
	v.SetDefault(keyLevel, 0)
	v.SetDefault(keyJobs, 4)
	return v
}

// setup binds cmd's flags, reads the config file and builds the logger and
// codec
func setup(cmd *cobra.Command) (*app, error) {
	v := newViper()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	if path := v.GetString(keyConfig); path != "" {
		v.SetConfigFile(path)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	level := zerolog.InfoLevel
	if v.GetBool(keyVerbose) {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).
		Level(level).
		With().
		Timestamp().
		Logger()

	delim, err := parseDelimiter(v.GetString(keyDelimiter))
	if err != nil {
		return nil, err
	}

	codec, err := wwm.NewZstdCodec(v.GetInt(keyLevel))
	if err != nil {
		return nil, err
	}

	return &app{
		v:     v,
		log:   logger,
		codec: codec,
		delim: delim,
		jobs:  v.GetInt(keyJobs),
	}, nil
}

func (a *app) options() []wwm.Option {
	return []wwm.Option{wwm.WithLogger(a.log), wwm.WithJobs(a.jobs)}
}

func (a *app) close() {
	if !a.closed {
		a.codec.Close()
		a.closed = true
	}
}

// parseDelimiter accepts a single character or the names "tab" and "\t"
func parseDelimiter(s string) (rune, error) {
	switch s {
	case "tab", `\t`, "\t":
		return '\t', nil
	case "":
		return wwm.DefaultDelimiter, nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("delimiter must be a single character, got %q", s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, nil
}
