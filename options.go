// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package wwm

import "github.com/rs/zerolog"

// Option configures Split, ExtractText and Build.
type Option func(*options)

type options struct {
	logger zerolog.Logger
	jobs   int
}

func newOptions(opts []Option) *options {
	o := &options{
		logger: zerolog.Nop(),
		jobs:   4,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets the logger used for per-block warnings.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithJobs limits how many blocks or archives are processed at once.
func WithJobs(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.jobs = n
		}
	}
}
