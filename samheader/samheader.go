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

// Package samheader projects a genome's sequence directory onto a
// biogo/hts/sam.Header, for interop with the wider samtools/biogo
// ecosystem (SPEC_FULL.md §4.0 domain stack).
package samheader

import (
	"fmt"

	"github.com/biogo/hts/sam"
)

// SequenceDirectory is the minimal view of a genome needed to build a SAM
// header: its name and its named sub-ranges in start order.
type SequenceDirectory interface {
	Name() string
	Sequences() []NamedRange
}

// NamedRange is one named sub-range of a genome's DNA.
type NamedRange interface {
	Name() string
	Length() int64
}

// Build returns a *sam.Header with one sam.Reference per sequence in g,
// in the same order g.Sequences() reports them.
func Build(g SequenceDirectory) (*sam.Header, error) {
	h, err := sam.NewHeader(nil, nil)
	if err != nil {
		return nil, fmt.Errorf("samheader: Build: %w", err)
	}

	for _, seq := range g.Sequences() {
		ref, err := sam.NewReference(seq.Name(), "", "", int(seq.Length()), nil, nil)
		if err != nil {
			return nil, fmt.Errorf("samheader: Build: reference %q: %w", seq.Name(), err)
		}
		if err := h.AddReference(ref); err != nil {
			return nil, fmt.Errorf("samheader: Build: add reference %q: %w", seq.Name(), err)
		}
	}

	return h, nil
}
