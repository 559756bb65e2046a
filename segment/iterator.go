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

package segment

import (
	"fmt"

	"github.com/zymatik-com/halign/dna"
	"github.com/zymatik-com/halign/halerr"
)

// Iterator is a sliceable cursor over one genome's segment arrays (spec
// §4.3). A single Iterator value can represent either a top or a bottom
// segment; Kind changes in place as ToParent/ToChild/ToParseUp/ToParseDown
// walk across the top/bottom boundary, per the design note that collapses
// the source's TopIt/BotIt class split into one type with a Kind
// discriminator.
type Iterator struct {
	g        Genome
	kind     Kind
	index    int
	startOff int64
	endOff   int64
	reversed bool
}

// New returns an unsliced, forward iterator at segment index within g's
// array of the given kind.
func New(g Genome, kind Kind, index int) (*Iterator, error) {
	it := &Iterator{g: g, kind: kind, index: index}
	if err := it.checkIndex(); err != nil {
		return nil, err
	}
	return it, nil
}

func (it *Iterator) checkIndex() error {
	n := it.g.NumTopSegments()
	if it.kind == Bottom {
		n = it.g.NumBottomSegments()
	}
	if it.index < 0 || it.index >= n {
		return fmt.Errorf("segment: %s index %d out of range [0,%d): %w", it.kind, it.index, n, halerr.ErrOutOfRange)
	}
	return nil
}

// Kind returns whether the iterator currently represents a top or bottom
// segment.
func (it *Iterator) Kind() Kind { return it.kind }

// Index returns the iterator's current array index.
func (it *Iterator) Index() int { return it.index }

// Genome returns the genome the iterator is scoped to.
func (it *Iterator) Genome() Genome { return it.g }

// Reversed reports the iterator's current strand orientation.
func (it *Iterator) Reversed() bool { return it.reversed }

// Clone returns an independent copy of the iterator.
func (it *Iterator) Clone() *Iterator {
	cp := *it
	return &cp
}

func (it *Iterator) segBounds() (int64, int64) {
	if it.kind == Top {
		return it.g.TopStart(it.index), it.g.TopEnd(it.index)
	}
	return it.g.BottomStart(it.index), it.g.BottomEnd(it.index)
}

// Length returns the full (unsliced) segment's length.
func (it *Iterator) Length() int64 {
	lo, hi := it.segBounds()
	return hi - lo
}

// SliceLength returns the current slice's length (segment length minus
// both offsets).
func (it *Iterator) SliceLength() int64 {
	return it.Length() - it.startOff - it.endOff
}

// Bounds returns the iterator's effective interval, per spec §4.3:
//
//	forward:  [seg.start + startOffset, seg.end - endOffset]
//	reversed: [seg.end - startOffset, seg.start + endOffset], read right to
//	          left with bases complemented.
//
// The returned (lo, hi) are always lo <= hi in genome-coordinate sense;
// callers that need the reversed reading order use Reversed() to decide
// direction.
func (it *Iterator) Bounds() (lo, hi int64) {
	segLo, segHi := it.segBounds()
	if !it.reversed {
		return segLo + it.startOff, segHi - it.endOff
	}
	return segLo + it.endOff, segHi - it.startOff
}

// DNAIterator returns a dna.Iterator over the segment's current slice, in
// its current orientation.
func (it *Iterator) DNAIterator() (*dna.Iterator, error) {
	lo, hi := it.Bounds()
	return dna.NewIterator(it.g.DNA(), lo, hi, it.reversed)
}

// IsOffsetSliced reports whether the iterator has been sliced away from
// its full segment bounds. Gapped iterators reject offset-sliced seeds
// (spec §4.4's "Error: offset (sliced) input segments are rejected").
func (it *Iterator) IsOffsetSliced() bool {
	return it.startOff != 0 || it.endOff != 0
}

// ToReverse flips the iterator's orientation without swapping offsets,
// useful for reinterpreting the same coordinates on the opposite strand
// (spec §4.3).
func (it *Iterator) ToReverse() {
	it.reversed = !it.reversed
}

// ToReverseInPlace flips orientation and swaps the start/end offsets, so
// the same interval is read in the other direction (spec §4.3).
func (it *Iterator) ToReverseInPlace() {
	it.reversed = !it.reversed
	it.startOff, it.endOff = it.endOff, it.startOff
}

// Slice restricts the iterator to [startOff, length-endOff) of its current
// segment.
func (it *Iterator) Slice(startOff, endOff int64) error {
	if startOff < 0 || endOff < 0 || startOff+endOff > it.Length() {
		return fmt.Errorf("segment: invalid slice (%d,%d) of length %d: %w", startOff, endOff, it.Length(), halerr.ErrInvalidArgument)
	}
	it.startOff, it.endOff = startOff, endOff
	return nil
}

// LeftOf reports whether the iterator's effective interval lies entirely
// to the left of genome position p (honoring reversed state only for
// which end is "left" in read order; genome-coordinate left is always
// genome-coordinate left).
func (it *Iterator) LeftOf(p int64) bool {
	_, hi := it.Bounds()
	return hi <= p
}

// RightOf reports whether the iterator's effective interval lies entirely
// to the right of genome position p.
func (it *Iterator) RightOf(p int64) bool {
	lo, _ := it.Bounds()
	return lo > p
}

// Overlaps reports whether genome position p falls within the iterator's
// effective interval.
func (it *Iterator) Overlaps(p int64) bool {
	lo, hi := it.Bounds()
	return p >= lo && p < hi
}
