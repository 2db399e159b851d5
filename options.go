// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"fmt"
	"log/slog"
)

// WriterPolicy decides what Bake does when several passes write the same
// attachment.
type WriterPolicy int

const (
	// WriterPolicyExclusive rejects a second writer with ErrMultipleWriters.
	WriterPolicyExclusive WriterPolicy = iota

	// WriterPolicyLastWins orders the writers of an attachment by
	// registration and makes readers depend on the last one. Earlier
	// writers run before later writers, so a later pass can draw on top of
	// an earlier one (for example an overlay onto the swapchain image).
	WriterPolicyLastWins
)

// String returns the policy name.
func (p WriterPolicy) String() string {
	switch p {
	case WriterPolicyExclusive:
		return "exclusive"
	case WriterPolicyLastWins:
		return "last-wins"
	default:
		return fmt.Sprintf("WriterPolicy(%d)", int(p))
	}
}

// ParseWriterPolicy parses the names returned by WriterPolicy.String.
func ParseWriterPolicy(s string) (WriterPolicy, error) {
	switch s {
	case "exclusive":
		return WriterPolicyExclusive, nil
	case "last-wins":
		return WriterPolicyLastWins, nil
	default:
		return 0, fmt.Errorf("framegraph: unknown writer policy %q", s)
	}
}

// Option configures a FrameGraph during creation.
//
// Example:
//
//	fg := framegraph.New(device, shaders, pipelines,
//	    framegraph.WithLabel("main"),
//	    framegraph.WithWriterPolicy(framegraph.WriterPolicyLastWins))
type Option func(*options)

// options holds optional configuration for FrameGraph creation.
type options struct {
	logger       *slog.Logger
	label        string
	writerPolicy WriterPolicy
}

// defaultOptions returns the default graph options.
func defaultOptions() options {
	return options{
		logger:       nil, // Falls back to the package logger.
		label:        "framegraph",
		writerPolicy: WriterPolicyExclusive,
	}
}

// WithLogger sets a logger for this graph only, overriding SetLogger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithLabel sets the label used as a prefix for textures the graph
// allocates and as the "graph" attribute of log records.
func WithLabel(label string) Option {
	return func(o *options) {
		if label != "" {
			o.label = label
		}
	}
}

// WithWriterPolicy selects how multiple writers of one attachment are handled.
func WithWriterPolicy(p WriterPolicy) Option {
	return func(o *options) {
		o.writerPolicy = p
	}
}
