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

	"github.com/zymatik-com/halign/halerr"
)

// ToLeft moves the iterator to the adjacent segment on its left, within the
// same array. Any pending offset is consumed first (the slice collapses to
// the segment boundary before the step), and a step onto a segment that
// starts left of cutoff is refused. Returns halerr.ErrOutOfRange at the
// array's left edge or when the step is refused.
func (it *Iterator) ToLeft(cutoff int64) error {
	it.startOff, it.endOff = 0, 0

	if it.index == 0 {
		return fmt.Errorf("segment: %w: no segment left of index 0", halerr.ErrOutOfRange)
	}

	lo, _ := it.segBoundsAt(it.index - 1)
	if lo < cutoff {
		return fmt.Errorf("segment: %w: left step would cross cutoff %d", halerr.ErrOutOfRange, cutoff)
	}

	it.index--
	return nil
}

// ToRight is the mirror of ToLeft.
func (it *Iterator) ToRight(cutoff int64) error {
	it.startOff, it.endOff = 0, 0

	n := it.arrayLen()
	if it.index >= n-1 {
		return fmt.Errorf("segment: %w: no segment right of index %d", halerr.ErrOutOfRange, it.index)
	}

	_, hi := it.segBoundsAt(it.index + 1)
	if hi > cutoff {
		return fmt.Errorf("segment: %w: right step would cross cutoff %d", halerr.ErrOutOfRange, cutoff)
	}

	it.index++
	return nil
}

func (it *Iterator) arrayLen() int {
	if it.kind == Top {
		return it.g.NumTopSegments()
	}
	return it.g.NumBottomSegments()
}

func (it *Iterator) segBoundsAt(index int) (int64, int64) {
	if it.kind == Top {
		return it.g.TopStart(index), it.g.TopEnd(index)
	}
	return it.g.BottomStart(index), it.g.BottomEnd(index)
}

// ToSite repositions the iterator (within its current array) to the segment
// containing genome position pos. It jumps directly to the segment whose
// index is the expected stride away (pos / average segment length), then
// linearly refines left or right -- this is an estimate-then-walk search,
// not a binary search, since segment lengths are not uniform. If slice is
// true the iterator is also sliced down to exactly [pos, pos+1).
func (it *Iterator) ToSite(pos int64, slice bool) error {
	n := it.arrayLen()
	if n == 0 {
		return fmt.Errorf("segment: %w: empty array", halerr.ErrOutOfRange)
	}

	lo, hi := it.segBoundsAt(0)
	_, last := it.segBoundsAt(n - 1)
	if pos < lo || pos >= last {
		return fmt.Errorf("segment: %w: position %d outside array [%d,%d)", halerr.ErrOutOfRange, pos, lo, last)
	}

	avg := float64(last-lo) / float64(n)
	guess := int(float64(pos-lo) / avg)
	if guess < 0 {
		guess = 0
	}
	if guess >= n {
		guess = n - 1
	}

	idx := guess
	lo, hi = it.segBoundsAt(idx)
	for pos < lo && idx > 0 {
		idx--
		lo, hi = it.segBoundsAt(idx)
	}
	for pos >= hi && idx < n-1 {
		idx++
		lo, hi = it.segBoundsAt(idx)
	}
	if pos < lo || pos >= hi {
		return fmt.Errorf("segment: %w: position %d not contained by any segment", halerr.ErrInconsistent, pos)
	}

	it.index = idx
	it.startOff, it.endOff = 0, 0

	if slice {
		if !it.reversed {
			it.startOff = pos - lo
			it.endOff = hi - pos - 1
		} else {
			it.endOff = pos - lo
			it.startOff = hi - pos - 1
		}
	}

	return nil
}

// ToParent repositions a Top iterator to the parent Bottom segment,
// flipping orientation if the parent link is reversed (spec §3's
// "reversed" bit on the parent edge). Kind becomes Bottom and the genome
// becomes it.g.Parent(). Only valid on Top iterators.
func (it *Iterator) ToParent() error {
	if it.kind != Top {
		return fmt.Errorf("segment: ToParent: %w: iterator is not a top segment", halerr.ErrUnsupported)
	}

	rec, err := it.g.TopSegment(it.index)
	if err != nil {
		return err
	}
	if rec.ParentIndex == NullIndex {
		return fmt.Errorf("segment: ToParent: %w: no parent edge", halerr.ErrNotFound)
	}

	parent := it.g.Parent()
	if parent == nil {
		return fmt.Errorf("segment: ToParent: %w: genome has no parent", halerr.ErrInconsistent)
	}

	it.g = parent
	it.kind = Bottom
	it.index = int(rec.ParentIndex)
	it.startOff, it.endOff = 0, 0
	if rec.ParentReversed {
		it.reversed = !it.reversed
	}

	return nil
}

// ToChild repositions a Bottom iterator to the Top segment of the child at
// childSlot, flipping orientation if that child edge is reversed. Only
// valid on Bottom iterators.
func (it *Iterator) ToChild(childSlot int) error {
	if it.kind != Bottom {
		return fmt.Errorf("segment: ToChild: %w: iterator is not a bottom segment", halerr.ErrUnsupported)
	}

	rec, err := it.g.BottomSegment(it.index)
	if err != nil {
		return err
	}
	if childSlot < 0 || childSlot >= len(rec.ChildIndex) {
		return fmt.Errorf("segment: ToChild: %w: slot %d out of range", halerr.ErrInvalidArgument, childSlot)
	}
	if rec.ChildIndex[childSlot] == NullIndex {
		return fmt.Errorf("segment: ToChild: %w: no child edge in slot %d", halerr.ErrNotFound, childSlot)
	}

	child := it.g.Child(childSlot)
	if child == nil {
		return fmt.Errorf("segment: ToChild: %w: no child genome in slot %d", halerr.ErrInconsistent, childSlot)
	}

	it.g = child
	it.kind = Top
	it.index = int(rec.ChildIndex[childSlot])
	it.startOff, it.endOff = 0, 0
	if rec.ChildReversed[childSlot] {
		it.reversed = !it.reversed
	}

	return nil
}

// ToChildG is ToChild resolved by child genome name rather than slot index.
func (it *Iterator) ToChildG(childGenome string) error {
	slot := it.g.ChildSlot(childGenome)
	if slot < 0 {
		return fmt.Errorf("segment: ToChildG: %w: %q is not a direct child of %s", halerr.ErrNotFound, childGenome, it.g.Name())
	}
	return it.ToChild(slot)
}

// ToParseUp repositions a Bottom iterator to its same-genome Top parse
// partner. Because the two arrays may segment the same coordinate range
// differently, the stored parse index is only a starting point: the
// iterator walks rightward until the current position actually falls
// inside the candidate segment (spec §4.3's parse-link traversal policy),
// then derives offsets so startOffset+endOffset <= length.
func (it *Iterator) ToParseUp() error {
	if it.kind != Bottom {
		return fmt.Errorf("segment: ToParseUp: %w: iterator is not a bottom segment", halerr.ErrUnsupported)
	}

	rec, err := it.g.BottomSegment(it.index)
	if err != nil {
		return err
	}
	if rec.TopParseIndex == NullIndex {
		return fmt.Errorf("segment: ToParseUp: %w: no parse partner", halerr.ErrNotFound)
	}

	pos, _ := it.Bounds()
	idx, startOff, endOff, err := walkRightToContain(it.g.NumTopSegments(), func(i int) (int64, int64) {
		return it.g.TopStart(i), it.g.TopEnd(i)
	}, int(rec.TopParseIndex), pos)
	if err != nil {
		return fmt.Errorf("segment: ToParseUp: %w", err)
	}

	it.kind = Top
	it.index = idx
	it.startOff, it.endOff = startOff, endOff

	return nil
}

// ToParseDown is the Top-iterator mirror of ToParseUp.
func (it *Iterator) ToParseDown() error {
	if it.kind != Top {
		return fmt.Errorf("segment: ToParseDown: %w: iterator is not a top segment", halerr.ErrUnsupported)
	}

	rec, err := it.g.TopSegment(it.index)
	if err != nil {
		return err
	}
	if rec.BottomParseIndex == NullIndex {
		return fmt.Errorf("segment: ToParseDown: %w: no parse partner", halerr.ErrNotFound)
	}

	pos, _ := it.Bounds()
	idx, startOff, endOff, err := walkRightToContain(it.g.NumBottomSegments(), func(i int) (int64, int64) {
		return it.g.BottomStart(i), it.g.BottomEnd(i)
	}, int(rec.BottomParseIndex), pos)
	if err != nil {
		return fmt.Errorf("segment: ToParseDown: %w", err)
	}

	it.kind = Bottom
	it.index = idx
	it.startOff, it.endOff = startOff, endOff

	return nil
}

// walkRightToContain starts at seed and increments while pos falls to the
// right of the candidate segment, stopping as soon as pos lands inside one.
// It returns the containing index and the offsets needed to slice that
// segment down to a single-base point at pos.
func walkRightToContain(n int, bounds func(int) (int64, int64), seed int, pos int64) (idx int, startOff, endOff int64, err error) {
	idx = seed
	for idx < n {
		lo, hi := bounds(idx)
		if pos < hi {
			if pos < lo {
				return 0, 0, 0, fmt.Errorf("%w: parse seed overshot position %d", halerr.ErrInconsistent, pos)
			}
			startOff = pos - lo
			endOff = hi - pos - 1
			if startOff+endOff > hi-lo {
				return 0, 0, 0, fmt.Errorf("%w: parse offsets exceed segment length", halerr.ErrInconsistent)
			}
			return idx, startOff, endOff, nil
		}
		idx++
	}
	return 0, 0, 0, fmt.Errorf("%w: parse walk ran off the end of the array", halerr.ErrOutOfRange)
}

// ToNextParalogy advances a Top iterator one step around its paralogy
// cycle (spec §3's NextParalogyIndex circular list). Calling it once per
// member of the cycle returns to the starting segment.
func (it *Iterator) ToNextParalogy() error {
	if it.kind != Top {
		return fmt.Errorf("segment: ToNextParalogy: %w: iterator is not a top segment", halerr.ErrUnsupported)
	}

	rec, err := it.g.TopSegment(it.index)
	if err != nil {
		return err
	}
	if rec.NextParalogyIndex == NullIndex {
		return fmt.Errorf("segment: ToNextParalogy: %w: segment has no paralogs", halerr.ErrNotFound)
	}

	it.index = int(rec.NextParalogyIndex)
	it.startOff, it.endOff = 0, 0

	return nil
}
