// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"log/slog"
	"time"
)

// Option configures a Backend during creation.
type Option func(*options)

type options struct {
	logger          *slog.Logger
	shaderCacheSize int
	submitTimeout   time.Duration
	labelPrefix     string
}

func defaultOptions() options {
	return options{
		shaderCacheSize: 64,
		submitTimeout:   5 * time.Second,
		labelPrefix:     "native",
	}
}

// WithLogger sets the backend logger. Without it the backend logs through
// framegraph.Logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithShaderCacheSize sets how many compiled SPIR-V blobs are kept for
// reuse. Non-positive values keep the default of 64.
func WithShaderCacheSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.shaderCacheSize = n
		}
	}
}

// WithSubmitTimeout bounds how long EndFrame waits for the GPU. A timeout
// is reported as framegraph.ErrDeviceLost. Non-positive values keep the
// default of 5s.
func WithSubmitTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.submitTimeout = d
		}
	}
}

// WithLabelPrefix sets the prefix of debug labels for HAL objects the
// backend creates on its own behalf.
func WithLabelPrefix(prefix string) Option {
	return func(o *options) {
		if prefix != "" {
			o.labelPrefix = prefix
		}
	}
}
