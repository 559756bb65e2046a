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

package column_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/brentp/vcfgo"
	"github.com/stretchr/testify/require"
	"github.com/zymatik-com/halign/column"
	"github.com/zymatik-com/halign/container"
	"github.com/zymatik-com/halign/dna"
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
func (g *fakeGenome) NumTopSegments() int                               { return len(g.tops) }
func (g *fakeGenome) NumBottomSegments() int                            { return len(g.bottoms) }
func (g *fakeGenome) TopSegment(i int) (segment.TopRecord, error)       { return g.tops[i], nil }
func (g *fakeGenome) BottomSegment(i int) (segment.BottomRecord, error) { return g.bottoms[i], nil }
func (g *fakeGenome) TopStart(i int) int64                              { return g.topSt[i] }
func (g *fakeGenome) TopEnd(i int) int64                                { return g.topSt[i+1] }
func (g *fakeGenome) BottomStart(i int) int64                           { return g.botSt[i] }
func (g *fakeGenome) BottomEnd(i int) int64                             { return g.botSt[i+1] }
func (g *fakeGenome) NumChildren() int                                  { return len(g.children) }

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

type fakeSequence struct{ name string }

func (s fakeSequence) Name() string  { return s.name }
func (s fakeSequence) Start() int64  { return 0 }
func (s fakeSequence) Length() int64 { return 20 }

func (g *fakeGenome) SequenceContaining(int64) (segment.Sequence, error) {
	return fakeSequence{name: g.name + "-seq"}, nil
}

func (g *fakeGenome) DNA() *dna.Access { return g.dnaAcc }

func makeDNA(t *testing.T, name string, seq string) *dna.Access {
	t.Helper()
	path := filepath.Join(t.TempDir(), name+".dna")
	acc, err := dna.Create(path, container.BackendMmap, int64(len(seq)), 64, 4)
	require.NoError(t, err)
	require.NoError(t, acc.SetString(0, seq))
	require.NoError(t, acc.Flush())
	return acc
}

// buildPair builds a parent/child pair, each genome holding two segments
// of length 10, mapped straight across with no
// rearrangement on either side.
func buildPair(t *testing.T) (parent, child *fakeGenome) {
	parent = &fakeGenome{name: "anc", topSt: []int64{0, 10, 20}, botSt: []int64{0, 10, 20}, names: []string{"leaf"}}
	child = &fakeGenome{name: "leaf", parent: parent, topSt: []int64{0, 10, 20}, botSt: []int64{0, 10, 20}}
	parent.children = []*fakeGenome{child}

	parent.dnaAcc = makeDNA(t, "anc", "ACGTACGTACACGTACGTAC")
	child.dnaAcc = makeDNA(t, "leaf", "ACGTACGTACACGTACGTAC")

	parent.bottoms = []segment.BottomRecord{
		{SelfIndex: 0, Length: 10, TopParseIndex: 0, ChildIndex: []int64{0}, ChildReversed: []bool{false}},
		{SelfIndex: 1, Length: 10, TopParseIndex: 1, ChildIndex: []int64{1}, ChildReversed: []bool{false}},
	}
	parent.tops = []segment.TopRecord{
		{SelfIndex: 0, Length: 10, BottomParseIndex: 0, NextParalogyIndex: segment.NullIndex, ParentIndex: segment.NullIndex},
		{SelfIndex: 1, Length: 10, BottomParseIndex: 1, NextParalogyIndex: segment.NullIndex, ParentIndex: segment.NullIndex},
	}

	child.tops = []segment.TopRecord{
		{SelfIndex: 0, Length: 10, BottomParseIndex: 0, NextParalogyIndex: segment.NullIndex, ParentIndex: 0, ParentReversed: false},
		{SelfIndex: 1, Length: 10, BottomParseIndex: 1, NextParalogyIndex: segment.NullIndex, ParentIndex: 1, ParentReversed: false},
	}
	child.bottoms = []segment.BottomRecord{
		{SelfIndex: 0, Length: 10, TopParseIndex: 0},
		{SelfIndex: 1, Length: 10, TopParseIndex: 1},
	}

	return parent, child
}

func TestToRightEmitsOneColumnPerReferenceBase(t *testing.T) {
	parent, child := buildPair(t)

	it, err := column.New(parent, nil, 0, 20, column.Options{})
	require.NoError(t, err)

	var cols int
	for {
		col, ok, err := it.ToRight()
		require.NoError(t, err)
		if !ok {
			break
		}
		cols++

		ancEntry, ok := col["anc-seq"]
		require.True(t, ok, "reference genome always present in its own column")
		require.Len(t, ancEntry.Bases, 1)

		if leafEntry, ok := col["leaf-seq"]; ok {
			require.Len(t, leafEntry.Bases, 1)
		}
	}

	require.Equal(t, 20, cols)
	_ = child
}

func TestToRightHonorsTargetFilter(t *testing.T) {
	parent, child := buildPair(t)
	_ = child

	it, err := column.New(parent, []string{"anc"}, 0, 5, column.Options{})
	require.NoError(t, err)

	col, ok, err := it.ToRight()
	require.NoError(t, err)
	require.True(t, ok)

	require.Contains(t, col, "anc-seq")
	require.NotContains(t, col, "leaf-seq")
}

// TestColumnAtVCFVariantPosition covers the same liftover-by-VCF-record
// path as the mapper package's vcfgo test, but against the column walk: a
// variant's 1-based POS, converted to a 0-based genome coordinate, selects
// exactly the column whose reference base matches the record's REF allele
// position.
func TestColumnAtVCFVariantPosition(t *testing.T) {
	const vcfText = "##fileformat=VCFv4.2\n" +
		"##contig=<ID=anc>\n" +
		"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\n" +
		"anc\t6\trs1\tC\tG\t.\tPASS\t.\n"

	reader, err := vcfgo.NewReader(strings.NewReader(vcfText), false)
	require.NoError(t, err)

	variant := reader.Read()
	require.NotNil(t, variant)
	require.Equal(t, "anc", variant.Chromosome)

	pos := int64(variant.Pos) - 1 // VCF POS is 1-based; genome coordinates are 0-based.

	parent, child := buildPair(t)
	_ = child

	it, err := column.New(parent, nil, pos, pos+1, column.Options{})
	require.NoError(t, err)

	col, ok, err := it.ToRight()
	require.NoError(t, err)
	require.True(t, ok)

	entry, ok := col["anc-seq"]
	require.True(t, ok)
	require.Len(t, entry.Bases, 1)

	base, err := entry.Bases[0].Base()
	require.NoError(t, err)
	require.Equal(t, byte('C'), base)
}

// TestToRightReversesWalkOrder covers spec §8's S2 scenario: with
// ReverseStrand set, the iterator walks the reference range right to
// left, and every base comes back complemented (the DNA Iterator's own
// reversed-read contract, exercised here through the column walk).
func TestToRightReversesWalkOrder(t *testing.T) {
	parent, child := buildPair(t)
	_ = child

	it, err := column.New(parent, nil, 0, 20, column.Options{ReverseStrand: true})
	require.NoError(t, err)

	col, ok, err := it.ToRight()
	require.NoError(t, err)
	require.True(t, ok)

	entry := col["anc-seq"]
	require.Len(t, entry.Bases, 1)
	require.True(t, entry.Bases[0].Reversed())
	first, err := entry.Bases[0].Base()
	require.NoError(t, err)
	// position 19 of "ACGTACGTACACGTACGTAC" is 'C'; reverse-complemented, 'G'.
	require.Equal(t, byte('G'), first)

	var last *dna.Iterator
	cols := 1
	for {
		col, ok, err := it.ToRight()
		require.NoError(t, err)
		if !ok {
			break
		}
		cols++
		last = col["anc-seq"].Bases[0]
	}

	require.Equal(t, 20, cols)
	lastBase, err := last.Base()
	require.NoError(t, err)
	// position 0 is 'A'; reverse-complemented, 'T'.
	require.Equal(t, byte('T'), lastBase)
}

// buildParalogyCycle builds a single, parentless genome with two 10bp top
// segments forming a 2-member paralogy cycle (a tandem duplication: every
// reference base is also homologous to the base at the same offset in the
// cycle's other copy).
func buildParalogyCycle(t *testing.T) *fakeGenome {
	leaf := &fakeGenome{name: "leaf", topSt: []int64{0, 10, 20}, botSt: []int64{0, 10, 20}}
	leaf.dnaAcc = makeDNA(t, "leaf-dup", "ACGTACGTACGTACGTACGT")

	leaf.tops = []segment.TopRecord{
		{SelfIndex: 0, Length: 10, BottomParseIndex: 0, NextParalogyIndex: 1, ParentIndex: segment.NullIndex},
		{SelfIndex: 1, Length: 10, BottomParseIndex: 1, NextParalogyIndex: 0, ParentIndex: segment.NullIndex},
	}
	leaf.bottoms = []segment.BottomRecord{
		{SelfIndex: 0, Length: 10, TopParseIndex: 0},
		{SelfIndex: 1, Length: 10, TopParseIndex: 1},
	}

	return leaf
}

// TestToRightWalksParalogyCycle covers spec §8's S3 scenario: every column
// over a tandem-duplicated range carries both copies' bases via
// updateNextTopDup, and NoDupes suppresses the second copy entirely.
func TestToRightWalksParalogyCycle(t *testing.T) {
	leaf := buildParalogyCycle(t)

	it, err := column.New(leaf, nil, 0, 20, column.Options{})
	require.NoError(t, err)

	var cols int
	for {
		col, ok, err := it.ToRight()
		require.NoError(t, err)
		if !ok {
			break
		}
		cols++
		require.Len(t, col["leaf-seq"].Bases, 2, "column %d should carry both paralogy-cycle copies", cols-1)
	}
	require.Equal(t, 20, cols)

	it, err = column.New(leaf, nil, 0, 20, column.Options{NoDupes: true})
	require.NoError(t, err)

	cols = 0
	for {
		col, ok, err := it.ToRight()
		require.NoError(t, err)
		if !ok {
			break
		}
		cols++
		require.Len(t, col["leaf-seq"].Bases, 1, "NoDupes should suppress the second copy")
	}
	require.Equal(t, 20, cols)
}

// buildDeletionFixture builds a reference genome "leaf" (three 1bp
// segments) whose parent "anc" has a 15bp run with no child edge back into
// leaf, wedged between leaf's first and second segments' parent mappings --
// a deletion on leaf's lineage (spec §8's S5 scenario). "anc" carries a 1bp
// padding segment at each end so none of the parent-mapped positions under
// test sit at the first/last index of anc's own array, which would
// otherwise misroute the classifier into its Insertion boundary cases
// before scanDeletion ever runs.
func buildDeletionFixture(t *testing.T) (anc, leaf *fakeGenome) {
	anc = &fakeGenome{name: "anc", topSt: []int64{0, 20}, botSt: []int64{0, 1, 2, 3, 18, 19, 20}, names: []string{"leaf"}}
	leaf = &fakeGenome{name: "leaf", parent: anc, topSt: []int64{0, 1, 2, 3}, botSt: []int64{0, 1, 2, 3}}
	anc.children = []*fakeGenome{leaf}

	anc.dnaAcc = makeDNA(t, "anc-del", "ACGTACGTACGTACGTACGT")
	leaf.dnaAcc = makeDNA(t, "leaf-del", "ACG")

	anc.bottoms = []segment.BottomRecord{
		{SelfIndex: 0, Length: 1, TopParseIndex: 0, ChildIndex: []int64{segment.NullIndex}, ChildReversed: []bool{false}},
		{SelfIndex: 1, Length: 1, TopParseIndex: 1, ChildIndex: []int64{0}, ChildReversed: []bool{false}},
		{SelfIndex: 2, Length: 1, TopParseIndex: 2, ChildIndex: []int64{1}, ChildReversed: []bool{false}},
		{SelfIndex: 3, Length: 15, TopParseIndex: 3, ChildIndex: []int64{segment.NullIndex}, ChildReversed: []bool{false}},
		{SelfIndex: 4, Length: 1, TopParseIndex: 4, ChildIndex: []int64{2}, ChildReversed: []bool{false}},
		{SelfIndex: 5, Length: 1, TopParseIndex: 5, ChildIndex: []int64{segment.NullIndex}, ChildReversed: []bool{false}},
	}

	leaf.tops = []segment.TopRecord{
		{SelfIndex: 0, Length: 1, BottomParseIndex: 0, NextParalogyIndex: segment.NullIndex, ParentIndex: 1},
		{SelfIndex: 1, Length: 1, BottomParseIndex: 1, NextParalogyIndex: segment.NullIndex, ParentIndex: 2},
		{SelfIndex: 2, Length: 1, BottomParseIndex: 2, NextParalogyIndex: segment.NullIndex, ParentIndex: 4},
	}
	leaf.bottoms = []segment.BottomRecord{
		{SelfIndex: 0, Length: 1, TopParseIndex: 0},
		{SelfIndex: 1, Length: 1, TopParseIndex: 1},
		{SelfIndex: 2, Length: 1, TopParseIndex: 2},
	}

	return anc, leaf
}

// columnBases drains it and returns, for each emitted column, the leaf-seq
// base it carries.
func columnBases(t *testing.T, it *column.Iterator) []byte {
	t.Helper()
	var out []byte
	for {
		col, ok, err := it.ToRight()
		require.NoError(t, err)
		if !ok {
			break
		}
		entry, ok := col["leaf-seq"]
		require.True(t, ok)
		require.Len(t, entry.Bases, 1)
		b, err := entry.Bases[0].Base()
		require.NoError(t, err)
		out = append(out, b)
	}
	return out
}

// TestToRightEmitsDeletionFrame covers spec §8's S5 scenario: handleDeletion
// classifies leaf's middle breakpoint as a Deletion against its parent and
// pushes the deleted run as an extra indel frame over leaf's own range,
// producing a second, separately emitted column at that position (the
// classifier's LeftBreakpoint is leaf's own segment, not the parent's
// deleted span -- see DESIGN.md).
func TestToRightEmitsDeletionFrame(t *testing.T) {
	_, leaf := buildDeletionFixture(t)

	it, err := column.New(leaf, nil, 0, 3, column.Options{MaxInsertionSize: 20})
	require.NoError(t, err)

	bases := columnBases(t, it)
	require.Equal(t, []byte{'A', 'C', 'C', 'G'}, bases, "middle base revisited via the pushed indel frame")
}

// TestToRightHonorsMaxInsertionSize covers spec §8's S4 scenario: a
// deletion whose length exceeds MaxInsertionSize is discovered but not
// reported as its own frame, so pushIndels never grows the stack for it.
func TestToRightHonorsMaxInsertionSize(t *testing.T) {
	_, leaf := buildDeletionFixture(t)

	it, err := column.New(leaf, nil, 0, 3, column.Options{MaxInsertionSize: 10})
	require.NoError(t, err)

	bases := columnBases(t, it)
	require.Equal(t, []byte{'A', 'C', 'G'}, bases, "15bp deletion exceeds a 10bp MaxInsertionSize, so no frame is pushed")
}
