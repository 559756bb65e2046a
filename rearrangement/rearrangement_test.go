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

package rearrangement_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zymatik-com/halign/container"
	"github.com/zymatik-com/halign/dna"
	"github.com/zymatik-com/halign/rearrangement"
	"github.com/zymatik-com/halign/segment"
)

type fakeGenome struct {
	name     string
	tops     []segment.TopRecord
	topSt    []int64
	bottoms  []segment.BottomRecord
	botSt    []int64
	parent   *fakeGenome
	children []*fakeGenome
	names    []string
	dnaAcc   *dna.Access
}

func (g *fakeGenome) Name() string { return g.name }
func (g *fakeGenome) Length() int64 {
	if len(g.topSt) == 0 {
		return 0
	}
	return g.topSt[len(g.topSt)-1]
}
func (g *fakeGenome) NumTopSegments() int    { return len(g.tops) }
func (g *fakeGenome) NumBottomSegments() int { return len(g.bottoms) }

func (g *fakeGenome) TopSegment(i int) (segment.TopRecord, error)       { return g.tops[i], nil }
func (g *fakeGenome) BottomSegment(i int) (segment.BottomRecord, error) { return g.bottoms[i], nil }

func (g *fakeGenome) TopStart(i int) int64 { return g.topSt[i] }
func (g *fakeGenome) TopEnd(i int) int64   { return g.topSt[i+1] }

func (g *fakeGenome) BottomStart(i int) int64 { return g.botSt[i] }
func (g *fakeGenome) BottomEnd(i int) int64   { return g.botSt[i+1] }

func (g *fakeGenome) NumChildren() int { return len(g.children) }

func (g *fakeGenome) ChildSlot(name string) int {
	for i, n := range g.names {
		if n == name {
			return i
		}
	}
	return -1
}

func (g *fakeGenome) Parent() segment.Genome {
	if g.parent == nil {
		return nil
	}
	return g.parent
}

func (g *fakeGenome) Child(slot int) segment.Genome {
	if slot < 0 || slot >= len(g.children) {
		return nil
	}
	return g.children[slot]
}

// fakeSequence is a single sequence spanning a whole fakeGenome.
type fakeSequence struct{ name string }

func (s fakeSequence) Name() string  { return s.name }
func (s fakeSequence) Start() int64  { return 0 }
func (s fakeSequence) Length() int64 { return 0 }

func (g *fakeGenome) SequenceContaining(p int64) (segment.Sequence, error) {
	return fakeSequence{name: g.name + "-seq"}, nil
}

func (g *fakeGenome) DNA() *dna.Access { return g.dnaAcc }

func makeDNA(t *testing.T, name string, length int64) *dna.Access {
	t.Helper()
	path := filepath.Join(t.TempDir(), name+".dna")
	acc, err := dna.Create(path, container.BackendMmap, length, 64, 4)
	require.NoError(t, err)
	require.NoError(t, acc.SetString(0, stringOfLen("A", length)))
	require.NoError(t, acc.Flush())
	return acc
}

func stringOfLen(base string, n int64) string {
	out := make([]byte, n)
	for i := range out {
		out[i] = base[0]
	}
	return string(out)
}

// buildNothingTree builds a parent/child pair of three 10-base segments
// each, mapped straight across in order with no rearrangement.
func buildNothingTree(t *testing.T) (parent, child *fakeGenome) {
	parent = &fakeGenome{name: "anc", topSt: []int64{0, 10, 20, 30}, botSt: []int64{0, 10, 20, 30}, names: []string{"leaf"}}
	child = &fakeGenome{name: "leaf", parent: parent, topSt: []int64{0, 10, 20, 30}, botSt: []int64{0, 10, 20, 30}}
	parent.children = []*fakeGenome{child}

	parent.dnaAcc = makeDNA(t, "anc", 30)
	child.dnaAcc = makeDNA(t, "leaf", 30)

	parent.bottoms = []segment.BottomRecord{
		{SelfIndex: 0, Length: 10, TopParseIndex: 0, ChildIndex: []int64{0}, ChildReversed: []bool{false}},
		{SelfIndex: 1, Length: 10, TopParseIndex: 1, ChildIndex: []int64{1}, ChildReversed: []bool{false}},
		{SelfIndex: 2, Length: 10, TopParseIndex: 2, ChildIndex: []int64{2}, ChildReversed: []bool{false}},
	}
	parent.tops = []segment.TopRecord{
		{SelfIndex: 0, Length: 10, BottomParseIndex: 0, NextParalogyIndex: segment.NullIndex, ParentIndex: segment.NullIndex},
		{SelfIndex: 1, Length: 10, BottomParseIndex: 1, NextParalogyIndex: segment.NullIndex, ParentIndex: segment.NullIndex},
		{SelfIndex: 2, Length: 10, BottomParseIndex: 2, NextParalogyIndex: segment.NullIndex, ParentIndex: segment.NullIndex},
	}

	child.tops = []segment.TopRecord{
		{SelfIndex: 0, Length: 10, BottomParseIndex: 0, NextParalogyIndex: segment.NullIndex, ParentIndex: 0, ParentReversed: false},
		{SelfIndex: 1, Length: 10, BottomParseIndex: 1, NextParalogyIndex: segment.NullIndex, ParentIndex: 1, ParentReversed: false},
		{SelfIndex: 2, Length: 10, BottomParseIndex: 2, NextParalogyIndex: segment.NullIndex, ParentIndex: 2, ParentReversed: false},
	}
	child.bottoms = []segment.BottomRecord{
		{SelfIndex: 0, Length: 10, TopParseIndex: 0},
		{SelfIndex: 1, Length: 10, TopParseIndex: 1},
		{SelfIndex: 2, Length: 10, TopParseIndex: 2},
	}

	return parent, child
}

func TestIdentifyNothing(t *testing.T) {
	_, child := buildNothingTree(t)

	c, err := rearrangement.New(child, rearrangement.DefaultGapThreshold, rearrangement.DefaultNThreshold, false)
	require.NoError(t, err)

	res, err := c.IdentifyFromLeftBreakpoint(1)
	require.NoError(t, err)
	require.Equal(t, rearrangement.Nothing, res.ID)
}

func TestIdentifyDuplication(t *testing.T) {
	parent, child := buildNothingTree(t)

	// Segment 1 now has a paralog at segment 2, and the parent's child
	// slot for this edge points at segment 2 (the canonical copy), so
	// segment 1 is the non-canonical member of the cycle.
	child.tops[1].NextParalogyIndex = 2
	child.tops[2].NextParalogyIndex = 1
	child.tops[2].ParentIndex = 1
	parent.bottoms[1].ChildIndex = []int64{2}

	c, err := rearrangement.New(child, rearrangement.DefaultGapThreshold, rearrangement.DefaultNThreshold, false)
	require.NoError(t, err)

	res, err := c.IdentifyFromLeftBreakpoint(1)
	require.NoError(t, err)
	require.Equal(t, rearrangement.Duplication, res.ID)
}

func TestIdentifyGapInsertion(t *testing.T) {
	parent, child := buildNothingTree(t)

	// Segment 1 loses its parent edge entirely: a short, unaligned
	// insertion between two otherwise-adjacent parent segments.
	child.tops[1].ParentIndex = segment.NullIndex
	child.bottoms[1] = segment.BottomRecord{SelfIndex: 1, Length: 10, TopParseIndex: segment.NullIndex}
	parent.bottoms[0].ChildIndex = []int64{0}
	parent.bottoms[2].ChildIndex = []int64{2}

	c, err := rearrangement.New(child, rearrangement.DefaultGapThreshold, rearrangement.DefaultNThreshold, false)
	require.NoError(t, err)

	res, err := c.IdentifyFromLeftBreakpoint(1)
	require.NoError(t, err)
	require.Equal(t, rearrangement.Gap, res.ID)
}
