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

package mapper_test

import (
	"strings"
	"testing"

	"github.com/brentp/vcfgo"
	"github.com/stretchr/testify/require"
	"github.com/zymatik-com/halign/dna"
	"github.com/zymatik-com/halign/mapper"
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
	childNm  []string
}

func (g *fakeGenome) Name() string { return g.name }
func (g *fakeGenome) Length() int64 {
	if len(g.topSt) == 0 {
		return 0
	}
	return g.topSt[len(g.topSt)-1]
}
func (g *fakeGenome) NumTopSegments() int                             { return len(g.tops) }
func (g *fakeGenome) NumBottomSegments() int                          { return len(g.bottoms) }
func (g *fakeGenome) TopSegment(i int) (segment.TopRecord, error)     { return g.tops[i], nil }
func (g *fakeGenome) BottomSegment(i int) (segment.BottomRecord, error) { return g.bottoms[i], nil }
func (g *fakeGenome) TopStart(i int) int64                            { return g.topSt[i] }
func (g *fakeGenome) TopEnd(i int) int64                              { return g.topSt[i+1] }
func (g *fakeGenome) BottomStart(i int) int64                         { return g.botSt[i] }
func (g *fakeGenome) BottomEnd(i int) int64                           { return g.botSt[i+1] }
func (g *fakeGenome) NumChildren() int                                { return len(g.children) }

func (g *fakeGenome) ChildSlot(name string) int {
	for i, n := range g.childNm {
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
	return fakeSequence{name: g.name + "-seq"}, nil
}

func (g *fakeGenome) DNA() *dna.Access { return nil }

type fakeSequence struct{ name string }

func (s fakeSequence) Name() string  { return s.name }
func (s fakeSequence) Start() int64  { return 0 }
func (s fakeSequence) Length() int64 { return 0 }

// buildForkedTree builds one parent "anc" with two children "leafA" and
// "leafB", three 10bp segments each, mapped straight across with no
// rearrangement on either branch.
func buildForkedTree() (anc, leafA, leafB *fakeGenome) {
	anc = &fakeGenome{name: "anc", topSt: []int64{0, 10, 20, 30}, botSt: []int64{0, 10, 20, 30}, childNm: []string{"leafA", "leafB"}}
	leafA = &fakeGenome{name: "leafA", parent: anc, topSt: []int64{0, 10, 20, 30}, botSt: []int64{0, 10, 20, 30}}
	leafB = &fakeGenome{name: "leafB", parent: anc, topSt: []int64{0, 10, 20, 30}, botSt: []int64{0, 10, 20, 30}}
	anc.children = []*fakeGenome{leafA, leafB}

	anc.bottoms = make([]segment.BottomRecord, 3)
	anc.tops = make([]segment.TopRecord, 3)
	for i := 0; i < 3; i++ {
		anc.bottoms[i] = segment.BottomRecord{
			SelfIndex: int64(i), Length: 10, TopParseIndex: int64(i),
			ChildIndex: []int64{int64(i), int64(i)}, ChildReversed: []bool{false, false},
		}
		anc.tops[i] = segment.TopRecord{SelfIndex: int64(i), Length: 10, BottomParseIndex: int64(i), NextParalogyIndex: segment.NullIndex, ParentIndex: segment.NullIndex}
	}

	for _, leaf := range []*fakeGenome{leafA, leafB} {
		leaf.tops = make([]segment.TopRecord, 3)
		leaf.bottoms = make([]segment.BottomRecord, 3)
		for i := 0; i < 3; i++ {
			leaf.tops[i] = segment.TopRecord{SelfIndex: int64(i), Length: 10, BottomParseIndex: int64(i), NextParalogyIndex: segment.NullIndex, ParentIndex: int64(i)}
			leaf.bottoms[i] = segment.BottomRecord{SelfIndex: int64(i), Length: 10, TopParseIndex: int64(i)}
		}
	}

	return anc, leafA, leafB
}

func TestMapStraightAcrossSiblings(t *testing.T) {
	_, leafA, leafB := buildForkedTree()

	src, err := segment.New(leafA, segment.Top, 1)
	require.NoError(t, err)

	results, err := mapper.Map(src, leafB, mapper.Options{})
	require.NoError(t, err)
	require.Len(t, results, 1)

	got := results[0]
	require.Equal(t, "leafB", got.TargetGenome)
	require.Equal(t, int64(10), got.TargetStart)
	require.Equal(t, int64(20), got.TargetEnd)
	require.Equal(t, "leafA", got.SourceGenome)
	require.Equal(t, int64(10), got.SourceStart)
	require.Equal(t, int64(20), got.SourceEnd)
	require.False(t, got.Reversed)
}

func TestMapToSelfGenomeIsIdentity(t *testing.T) {
	_, leafA, _ := buildForkedTree()

	src, err := segment.New(leafA, segment.Top, 2)
	require.NoError(t, err)

	results, err := mapper.Map(src, leafA, mapper.Options{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, int64(20), results[0].TargetStart)
	require.Equal(t, int64(30), results[0].TargetEnd)
}

// buildReversedForkedTree is buildForkedTree with leafB's child edge
// flagged reversed on every segment, so a climb from leafA down into leafB
// flips strand (spec §3's "reversed" bit on a bottom-to-child edge).
func buildReversedForkedTree() (anc, leafA, leafB *fakeGenome) {
	anc, leafA, leafB = buildForkedTree()
	for i := range anc.bottoms {
		anc.bottoms[i].ChildReversed = []bool{false, true}
	}
	return anc, leafA, leafB
}

// TestMapReversedChildEdgeFlipsStrand covers spec §8's S2 scenario: mapping
// across a reversed child edge must report Reversed true and mirror the
// source/target orientation, which is what cutOne's Reversed-aware
// coordinate math (and canMergeRightWith's) depends on getting right.
func TestMapReversedChildEdgeFlipsStrand(t *testing.T) {
	_, leafA, leafB := buildReversedForkedTree()

	src, err := segment.New(leafA, segment.Top, 1)
	require.NoError(t, err)

	results, err := mapper.Map(src, leafB, mapper.Options{})
	require.NoError(t, err)
	require.Len(t, results, 1)

	got := results[0]
	require.Equal(t, "leafB", got.TargetGenome)
	require.Equal(t, int64(10), got.TargetStart)
	require.Equal(t, int64(20), got.TargetEnd)
	require.Equal(t, "leafA", got.SourceGenome)
	require.Equal(t, int64(10), got.SourceStart)
	require.Equal(t, int64(20), got.SourceEnd)
	require.True(t, got.Reversed)
}

// TestMapVCFVariantPositionRoundTrips drives the mapper from a variant
// position parsed out of a VCF record, the way a liftover of a ClinVar-style
// call site would: parse with vcfgo, convert its 1-based POS to the 0-based
// genome coordinate segment.Iterator uses, slice down to that single base
// with ToSite, and map it across to the sibling genome.
func TestMapVCFVariantPositionRoundTrips(t *testing.T) {
	const vcfText = "##fileformat=VCFv4.2\n" +
		"##contig=<ID=leafA>\n" +
		"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\n" +
		"leafA\t11\trs1\tA\tG\t.\tPASS\t.\n"

	reader, err := vcfgo.NewReader(strings.NewReader(vcfText), false)
	require.NoError(t, err)

	variant := reader.Read()
	require.NotNil(t, variant)
	require.Equal(t, "leafA", variant.Chromosome)

	pos := int64(variant.Pos) - 1 // VCF POS is 1-based; genome coordinates are 0-based.

	_, leafA, leafB := buildForkedTree()

	src, err := segment.New(leafA, segment.Top, 0)
	require.NoError(t, err)
	require.NoError(t, src.ToSite(pos, true))

	results, err := mapper.Map(src, leafB, mapper.Options{})
	require.NoError(t, err)
	require.Len(t, results, 1)

	got := results[0]
	require.Equal(t, "leafB", got.TargetGenome)
	require.GreaterOrEqual(t, pos, got.TargetStart)
	require.Less(t, pos, got.TargetEnd)
}
