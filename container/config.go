/* SPDX-License-Identifier: MPL-2.0
 *
 * Zymatik HAlign - A Hierarchical Genome Alignment library for Go.
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the Mozilla Public License v2.0.
 *
 * You should have received a copy of the Mozilla Public License v2.0
 * along with this program. If not, see <https://mozilla.org/MPL/2.0/>.
 */

package container

import "log/slog"

type config struct {
	logger *slog.Logger
	codec  Codec
}

func newConfig(opts []Option) config {
	cfg := config{
		logger: slog.Default(),
		codec:  CodecZstd,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return cfg
}

// Option configures a Create/Load call.
type Option func(*config)

// WithLogger sets the structured logger used for best-effort diagnostics.
// A nil logger is replaced with slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithCodec selects the compression codec for a BackendCompressed array.
// Ignored by BackendMmap.
func WithCodec(codec Codec) Option {
	return func(c *config) {
		c.codec = codec
	}
}
