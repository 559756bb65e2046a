/* SPDX-License-Identifier: AGPL-3.0-or-later
 *
 * Zymatik HAlign - A Hierarchical Genome Alignment library for Go.
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published
 * by the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program.  If not, see <https://www.gnu.org/licenses/>.
 */

// Package genome implements spec §3/§4.8: the Genome and Sequence data
// model, and the Alignment lifecycle that owns a tree of Genomes (open/
// close caching, destructive reshapes, leaf removal).
package genome

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/biogo/hts/sam"
	"github.com/zymatik-com/halign/container"
	"github.com/zymatik-com/halign/dna"
	"github.com/zymatik-com/halign/halerr"
	"github.com/zymatik-com/halign/metadata"
	"github.com/zymatik-com/halign/samheader"
	"github.com/zymatik-com/halign/segment"
)

const (
	defaultSegChunk  = 4096
	defaultSegWindow = 4
	dnaChunkScale    = 10 // DNA chunk size is scaled up relative to segment chunk (spec §4.8)
)

// SeqInfo describes one sequence to be (re)allocated by SetDimensions.
type SeqInfo struct {
	Name          string
	Length        int64
	NumTopSegs    int
	NumBottomSegs int
}

// Genome is a node of the alignment tree: a name, total DNA length,
// sequence directory, DNA access handle, top/bottom segment arrays, and
// per-genome metadata (spec §3).
type Genome struct {
	align *Alignment
	name  string
	dir   string

	length int64
	seqs   []*Sequence

	dnaAccess *dna.Access
	topArr    *container.Array[segment.TopRecord]
	botArr    *container.Array[segment.BottomRecord]
	numChildSlots int

	topStarts []int64 // prefix-sum cache, len == NumTopSegments()+1
	botStarts []int64

	meta metadata.Store

	backend container.Backend
}

func genomeDir(alignDir, name string) string {
	return filepath.Join(alignDir, "genomes", name)
}

// Name returns the genome's name.
func (g *Genome) Name() string { return g.name }

// Length returns the genome's total DNA length L.
func (g *Genome) Length() int64 { return g.length }

// Metadata returns the genome-scoped key/value store.
func (g *Genome) Metadata() metadata.Store { return g.meta }

// NumTopSegments returns the size of the top-segment array.
func (g *Genome) NumTopSegments() int {
	if g.topArr == nil {
		return 0
	}
	return g.topArr.Len()
}

// NumBottomSegments returns the size of the bottom-segment array.
func (g *Genome) NumBottomSegments() int {
	if g.botArr == nil {
		return 0
	}
	return g.botArr.Len()
}

func (g *Genome) TopSegment(i int) (segment.TopRecord, error) {
	if g.topArr == nil {
		return segment.TopRecord{}, fmt.Errorf("genome: %s has no top array: %w", g.name, halerr.ErrOutOfRange)
	}
	return g.topArr.Get(i)
}

func (g *Genome) BottomSegment(i int) (segment.BottomRecord, error) {
	if g.botArr == nil {
		return segment.BottomRecord{}, fmt.Errorf("genome: %s has no bottom array: %w", g.name, halerr.ErrOutOfRange)
	}
	return g.botArr.Get(i)
}

// TopStart/TopEnd/BottomStart/BottomEnd derive a segment's coordinates
// from the genome's prefix-sum cache, honoring the CSR-style invariant in
// spec §3 ("array length is |segments|+1; element k is segment k's left
// endpoint; sentinel = L") without requiring a phantom extra on-disk
// array: the cache is rebuilt from each record's Length field at open
// time (see buildCaches).
func (g *Genome) TopStart(i int) int64 { return g.topStarts[i] }
func (g *Genome) TopEnd(i int) int64   { return g.topStarts[i+1] }

func (g *Genome) BottomStart(i int) int64 { return g.botStarts[i] }
func (g *Genome) BottomEnd(i int) int64   { return g.botStarts[i+1] }

// NumChildren returns the number of direct children (bottom-array child
// slots).
func (g *Genome) NumChildren() int { return g.numChildSlots }

// ChildSlot resolves a direct child's name to its slot index, or -1.
func (g *Genome) ChildSlot(name string) int {
	return g.align.childSlot(g.name, name)
}

// Parent returns the parent genome, or nil at the root.
func (g *Genome) Parent() segment.Genome {
	p, err := g.align.parentOf(g.name)
	if err != nil || p == nil {
		return nil
	}
	return p
}

// Child returns the child genome at slot, or nil.
func (g *Genome) Child(slot int) segment.Genome {
	c, err := g.align.childOf(g.name, slot)
	if err != nil || c == nil {
		return nil
	}
	return c
}

// SequenceContaining returns the Sequence enclosing genome position p.
func (g *Genome) SequenceContaining(p int64) (segment.Sequence, error) {
	s, err := sequenceContaining(g.seqs, p)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Sequences returns the genome's sequence directory, in start order.
func (g *Genome) Sequences() []*Sequence { return g.seqs }

// SequenceByName looks up a sequence by exact name.
func (g *Genome) SequenceByName(name string) (*Sequence, error) {
	for _, s := range g.seqs {
		if s.name == name {
			return s, nil
		}
	}
	return nil, fmt.Errorf("genome: %s: sequence %q: %w", g.name, name, halerr.ErrNotFound)
}

// DNA returns the genome's DNA access handle.
func (g *Genome) DNA() *dna.Access { return g.dnaAccess }

// namedRanges adapts the sequence directory to samheader.NamedRange.
func (g *Genome) namedRanges() []samheader.NamedRange {
	out := make([]samheader.NamedRange, len(g.seqs))
	for i, s := range g.seqs {
		out[i] = s
	}
	return out
}

// SAMHeader projects the genome's sequence directory onto a *sam.Header,
// one sam.Reference per sequence.
func (g *Genome) SAMHeader() (*sam.Header, error) {
	return samheader.Build(samAdapter{g})
}

// samAdapter satisfies samheader.SequenceDirectory without widening
// Genome's own exported Sequences() signature.
type samAdapter struct{ g *Genome }

func (a samAdapter) Name() string                    { return a.g.name }
func (a samAdapter) Sequences() []samheader.NamedRange { return a.g.namedRanges() }

// buildCaches scans the top/bottom arrays once to build the prefix-sum
// coordinate caches, and recomputes numChildSlots from the first bottom
// record (all bottom records share the same child-slot count).
func (g *Genome) buildCaches() error {
	n := g.NumTopSegments()
	g.topStarts = make([]int64, n+1)
	for i := 0; i < n; i++ {
		rec, err := g.topArr.Get(i)
		if err != nil {
			return err
		}
		g.topStarts[i+1] = g.topStarts[i] + rec.Length
	}
	if n > 0 && g.topStarts[n] != g.length {
		return fmt.Errorf("genome: %s: top segments sum to %d, want %d: %w", g.name, g.topStarts[n], g.length, halerr.ErrInconsistent)
	}

	m := g.NumBottomSegments()
	g.botStarts = make([]int64, m+1)
	for i := 0; i < m; i++ {
		rec, err := g.botArr.Get(i)
		if err != nil {
			return err
		}
		g.botStarts[i+1] = g.botStarts[i] + rec.Length
		if i == 0 {
			g.numChildSlots = len(rec.ChildIndex)
		}
	}
	if m > 0 && g.botStarts[m] != g.length {
		return fmt.Errorf("genome: %s: bottom segments sum to %d, want %d: %w", g.name, g.botStarts[m], g.length, halerr.ErrInconsistent)
	}

	return nil
}

// flush writes back all dirty state: DNA, top array, bottom array.
func (g *Genome) flush() error {
	if g.dnaAccess != nil {
		if err := g.dnaAccess.Flush(); err != nil {
			return err
		}
	}
	if g.topArr != nil {
		if err := g.topArr.Flush(); err != nil {
			return err
		}
	}
	if g.botArr != nil {
		if err := g.botArr.Flush(); err != nil {
			return err
		}
	}
	return nil
}

// close flushes and releases the genome's storage handles.
func (g *Genome) close() error {
	if err := g.flush(); err != nil {
		return err
	}
	if g.dnaAccess != nil {
		if err := g.dnaAccess.Close(); err != nil {
			return err
		}
	}
	if g.topArr != nil {
		if err := g.topArr.Close(); err != nil {
			return err
		}
	}
	if g.botArr != nil {
		if err := g.botArr.Close(); err != nil {
			return err
		}
	}
	return nil
}

func ensureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}
