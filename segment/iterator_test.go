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

package segment_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zymatik-com/halign/dna"
	"github.com/zymatik-com/halign/halerr"
	"github.com/zymatik-com/halign/segment"
)

// fakeGenome is a minimal in-memory segment.Genome used to exercise the
// iterator without a real container-backed genome.
type fakeGenome struct {
	name     string
	tops     []segment.TopRecord
	topSt    []int64
	bottoms  []segment.BottomRecord
	botSt    []int64
	parent   *fakeGenome
	children []*fakeGenome
	names    []string
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

func (g *fakeGenome) TopSegment(i int) (segment.TopRecord, error)    { return g.tops[i], nil }
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

func (g *fakeGenome) SequenceContaining(p int64) (segment.Sequence, error) {
	return nil, nil
}

func (g *fakeGenome) DNA() *dna.Access { return nil }

// buildTree returns a two-level tree (parent "anc" with one child "leaf")
// with three segments each, one of which is a parent/child edge and one a
// reversed edge, for exercising ToParent/ToChild/ToParseUp/ToParseDown.
func buildTree() (parent, child *fakeGenome) {
	parent = &fakeGenome{
		name:  "anc",
		topSt: []int64{0, 10, 20, 30},
		botSt: []int64{0, 10, 20, 30},
		names: []string{"leaf"},
	}
	child = &fakeGenome{name: "leaf", parent: parent, topSt: []int64{0, 10, 20, 30}, botSt: []int64{0, 10, 20, 30}}
	parent.children = []*fakeGenome{child}

	parent.bottoms = []segment.BottomRecord{
		{SelfIndex: 0, Length: 10, TopParseIndex: 0, ChildIndex: []int64{0}, ChildReversed: []bool{false}},
		{SelfIndex: 1, Length: 10, TopParseIndex: 1, ChildIndex: []int64{1}, ChildReversed: []bool{true}},
		{SelfIndex: 2, Length: 10, TopParseIndex: segment.NullIndex, ChildIndex: []int64{segment.NullIndex}, ChildReversed: []bool{false}},
	}
	parent.tops = []segment.TopRecord{
		{SelfIndex: 0, Length: 10, BottomParseIndex: 0, NextParalogyIndex: segment.NullIndex, ParentIndex: segment.NullIndex},
		{SelfIndex: 1, Length: 10, BottomParseIndex: 1, NextParalogyIndex: segment.NullIndex, ParentIndex: segment.NullIndex},
		{SelfIndex: 2, Length: 10, BottomParseIndex: 2, NextParalogyIndex: segment.NullIndex, ParentIndex: segment.NullIndex},
	}

	child.tops = []segment.TopRecord{
		{SelfIndex: 0, Length: 10, BottomParseIndex: 0, NextParalogyIndex: segment.NullIndex, ParentIndex: 0, ParentReversed: false},
		{SelfIndex: 1, Length: 10, BottomParseIndex: 1, NextParalogyIndex: segment.NullIndex, ParentIndex: 1, ParentReversed: true},
		{SelfIndex: 2, Length: 10, BottomParseIndex: segment.NullIndex, NextParalogyIndex: segment.NullIndex, ParentIndex: segment.NullIndex},
	}
	child.bottoms = []segment.BottomRecord{
		{SelfIndex: 0, Length: 10, TopParseIndex: 0, ChildIndex: nil, ChildReversed: nil},
		{SelfIndex: 1, Length: 10, TopParseIndex: 1, ChildIndex: nil, ChildReversed: nil},
		{SelfIndex: 2, Length: 10, TopParseIndex: 2, ChildIndex: nil, ChildReversed: nil},
	}

	return parent, child
}

func TestBoundsForwardAndReversed(t *testing.T) {
	parent, _ := buildTree()

	it, err := segment.New(parent, segment.Top, 1)
	require.NoError(t, err)

	lo, hi := it.Bounds()
	assert.Equal(t, int64(10), lo)
	assert.Equal(t, int64(20), hi)

	require.NoError(t, it.Slice(2, 3))
	lo, hi = it.Bounds()
	assert.Equal(t, int64(12), lo)
	assert.Equal(t, int64(17), hi)

	it.ToReverse()
	lo, hi = it.Bounds()
	assert.Equal(t, int64(13), lo)
	assert.Equal(t, int64(18), hi)
}

func TestToLeftToRight(t *testing.T) {
	parent, _ := buildTree()

	it, err := segment.New(parent, segment.Top, 1)
	require.NoError(t, err)

	require.NoError(t, it.ToRight(30))
	assert.Equal(t, 2, it.Index())

	assert.ErrorIs(t, it.ToRight(30), halerr.ErrOutOfRange)

	require.NoError(t, it.ToLeft(0))
	require.NoError(t, it.ToLeft(0))
	assert.Equal(t, 0, it.Index())

	assert.ErrorIs(t, it.ToLeft(0), halerr.ErrOutOfRange)
}

func TestToParentAndToChild(t *testing.T) {
	parent, child := buildTree()

	it, err := segment.New(child, segment.Top, 1) // reversed parent edge
	require.NoError(t, err)

	require.NoError(t, it.ToParent())
	assert.Equal(t, segment.Bottom, it.Kind())
	assert.Equal(t, 1, it.Index())
	assert.Equal(t, parent.Name(), it.Genome().Name())
	assert.True(t, it.Reversed())

	require.NoError(t, it.ToChild(0))
	assert.Equal(t, segment.Top, it.Kind())
	assert.Equal(t, 1, it.Index())
	assert.Equal(t, child.Name(), it.Genome().Name())
	assert.False(t, it.Reversed()) // reversed twice cancels out

	it2, err := segment.New(child, segment.Top, 2)
	require.NoError(t, err)
	assert.ErrorIs(t, it2.ToParent(), halerr.ErrNotFound)
}

func TestToChildG(t *testing.T) {
	parent, _ := buildTree()

	it, err := segment.New(parent, segment.Bottom, 0)
	require.NoError(t, err)

	require.NoError(t, it.ToChildG("leaf"))
	assert.Equal(t, segment.Top, it.Kind())

	it2, _ := segment.New(parent, segment.Bottom, 0)
	assert.ErrorIs(t, it2.ToChildG("nope"), halerr.ErrNotFound)
}

func TestToNextParalogy(t *testing.T) {
	g := &fakeGenome{
		name:  "g",
		topSt: []int64{0, 5, 10, 15},
	}
	g.tops = []segment.TopRecord{
		{SelfIndex: 0, Length: 5, NextParalogyIndex: 1, ParentIndex: segment.NullIndex},
		{SelfIndex: 1, Length: 5, NextParalogyIndex: 2, ParentIndex: segment.NullIndex},
		{SelfIndex: 2, Length: 5, NextParalogyIndex: 0, ParentIndex: segment.NullIndex},
	}

	it, err := segment.New(g, segment.Top, 0)
	require.NoError(t, err)

	require.NoError(t, it.ToNextParalogy())
	assert.Equal(t, 1, it.Index())
	require.NoError(t, it.ToNextParalogy())
	assert.Equal(t, 2, it.Index())
	require.NoError(t, it.ToNextParalogy())
	assert.Equal(t, 0, it.Index()) // cycle closes
}

func TestToSite(t *testing.T) {
	parent, _ := buildTree()

	it, err := segment.New(parent, segment.Top, 0)
	require.NoError(t, err)

	require.NoError(t, it.ToSite(23, true))
	assert.Equal(t, 2, it.Index())
	lo, hi := it.Bounds()
	assert.Equal(t, int64(23), lo)
	assert.Equal(t, int64(24), hi)
}
