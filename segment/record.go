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

// Package segment implements spec §4.3/§4.4: the fixed-schema Top/Bottom
// segment array element formats, and the sliceable segment iterators built
// on top of them (plain and gapped). Per the design notes in spec §9, this
// collapses the source's Segment/TopSegment/BottomSegment and
// SegmentIterator/TopIt/BotIt inheritance hierarchies into one Kind
// discriminator over two plain record types, with gapped iterators as
// composition rather than subclassing.
package segment

import "encoding/binary"

// NullIndex is the sentinel for "no link" (spec §6's NULL_INDEX).
const NullIndex int64 = -1

// Kind discriminates which array (and therefore which adjacency: parent
// for Top, children for Bottom) a Segment or Iterator belongs to.
type Kind int

const (
	Top Kind = iota
	Bottom
)

func (k Kind) String() string {
	if k == Top {
		return "top"
	}
	return "bottom"
}

// TopRecord is one element of a genome's top-segment array: the child-side
// record of a parent-child edge (spec §3 "Top segment", §6 on-disk format).
// Length is carried on the record (rather than reconstructed from a
// separate coordinate array) so TOP_ARRAY is self-sufficient on disk; see
// DESIGN.md for why this departs slightly from the literal §6 field list.
type TopRecord struct {
	SelfIndex        int64 // this record's own array index (on-disk "genomeIdx" field)
	Length           int64
	BottomParseIndex int64
	NextParalogyIndex int64
	ParentIndex      int64
	ParentReversed   bool
}

// BottomRecord is one element of a genome's bottom-segment array: the
// parent-side record of a parent-child edge, with one child slot per child
// genome (spec §3 "Bottom segment").
type BottomRecord struct {
	SelfIndex     int64
	Length        int64
	TopParseIndex int64
	ChildIndex    []int64
	ChildReversed []bool
}

// TopCodec implements container.RecordCodec[TopRecord].
type TopCodec struct{}

const topRecordSize = 8*5 + 1

func (TopCodec) Size() int { return topRecordSize }

func (TopCodec) Encode(v TopRecord, buf []byte) {
	binary.LittleEndian.PutUint64(buf[0:8], uint64(v.SelfIndex))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(v.Length))
	binary.LittleEndian.PutUint64(buf[16:24], uint64(v.BottomParseIndex))
	binary.LittleEndian.PutUint64(buf[24:32], uint64(v.NextParalogyIndex))
	binary.LittleEndian.PutUint64(buf[32:40], uint64(v.ParentIndex))
	if v.ParentReversed {
		buf[40] = 1
	} else {
		buf[40] = 0
	}
}

func (TopCodec) Decode(buf []byte) TopRecord {
	return TopRecord{
		SelfIndex:         int64(binary.LittleEndian.Uint64(buf[0:8])),
		Length:            int64(binary.LittleEndian.Uint64(buf[8:16])),
		BottomParseIndex:  int64(binary.LittleEndian.Uint64(buf[16:24])),
		NextParalogyIndex: int64(binary.LittleEndian.Uint64(buf[24:32])),
		ParentIndex:       int64(binary.LittleEndian.Uint64(buf[32:40])),
		ParentReversed:    buf[40] != 0,
	}
}

// BottomCodec implements container.RecordCodec[BottomRecord] for a genome
// with a fixed number of children. The child-slot count is fixed for the
// lifetime of the array (reshaping it is what RemoveGenome/AddChild-style
// operations do, via a full rewrite -- see genome.Alignment's
// growParentChildSlot and dropParentChildSlot).
type BottomCodec struct {
	NumChildren int
}

func (c BottomCodec) Size() int {
	return 8*3 + c.NumChildren*(8+1)
}

func (c BottomCodec) Encode(v BottomRecord, buf []byte) {
	binary.LittleEndian.PutUint64(buf[0:8], uint64(v.SelfIndex))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(v.Length))
	binary.LittleEndian.PutUint64(buf[16:24], uint64(v.TopParseIndex))

	off := 24
	for i := 0; i < c.NumChildren; i++ {
		var idx int64 = NullIndex
		var rev bool
		if i < len(v.ChildIndex) {
			idx = v.ChildIndex[i]
		}
		if i < len(v.ChildReversed) {
			rev = v.ChildReversed[i]
		}
		binary.LittleEndian.PutUint64(buf[off:off+8], uint64(idx))
		if rev {
			buf[off+8] = 1
		} else {
			buf[off+8] = 0
		}
		off += 9
	}
}

func (c BottomCodec) Decode(buf []byte) BottomRecord {
	v := BottomRecord{
		SelfIndex:     int64(binary.LittleEndian.Uint64(buf[0:8])),
		Length:        int64(binary.LittleEndian.Uint64(buf[8:16])),
		TopParseIndex: int64(binary.LittleEndian.Uint64(buf[16:24])),
		ChildIndex:    make([]int64, c.NumChildren),
		ChildReversed: make([]bool, c.NumChildren),
	}

	off := 24
	for i := 0; i < c.NumChildren; i++ {
		v.ChildIndex[i] = int64(binary.LittleEndian.Uint64(buf[off : off+8]))
		v.ChildReversed[i] = buf[off+8] != 0
		off += 9
	}

	return v
}
