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

package samheader_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zymatik-com/halign/samheader"
)

type fakeRange struct {
	name string
	len  int64
}

func (r fakeRange) Name() string  { return r.name }
func (r fakeRange) Length() int64 { return r.len }

type fakeDirectory struct {
	name  string
	seqs  []samheader.NamedRange
}

func (d fakeDirectory) Name() string                      { return d.name }
func (d fakeDirectory) Sequences() []samheader.NamedRange { return d.seqs }

func TestBuildOneReferencePerSequence(t *testing.T) {
	dir := fakeDirectory{
		name: "human",
		seqs: []samheader.NamedRange{
			fakeRange{name: "chr1", len: 1000},
			fakeRange{name: "chr2", len: 500},
		},
	}

	h, err := samheader.Build(dir)
	require.NoError(t, err)

	refs := h.Refs()
	require.Len(t, refs, 2)
	require.Equal(t, "chr1", refs[0].Name())
	require.Equal(t, 1000, refs[0].Len())
	require.Equal(t, "chr2", refs[1].Name())
	require.Equal(t, 500, refs[1].Len())
}
