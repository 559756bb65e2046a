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

package dna

import "fmt"

// Iterator is a cursor over a half-open interval [Start, End) of a genome's
// DNA, reading bases in genome order when Reversed is false and in
// reverse-complement order when true. This is spec §2's "DNA Iterator":
// a thin wrapper that never buffers more than one base at a time, built
// fresh for every column/segment the caller visits.
type Iterator struct {
	access       *Access
	start, end   int64 // genome coordinates, start <= end, forward sense always
	pos          int64 // current forward-sense coordinate within [start,end)
	reversed     bool
	exhausted    bool
}

// NewIterator returns an iterator over [start, end) of access, read in
// reverse-complement if reversed is true.
func NewIterator(access *Access, start, end int64, reversed bool) (*Iterator, error) {
	if start < 0 || end < start || end > access.Len() {
		return nil, fmt.Errorf("dna: invalid iterator range [%d,%d)", start, end)
	}

	it := &Iterator{access: access, start: start, end: end}
	it.Reset(reversed)

	return it, nil
}

// Reset repositions the iterator at the first base of its interval, in the
// given direction.
func (it *Iterator) Reset(reversed bool) {
	it.reversed = reversed
	it.exhausted = it.start >= it.end
	if reversed {
		it.pos = it.end - 1
	} else {
		it.pos = it.start
	}
}

// Done reports whether the iterator has no more bases to read.
func (it *Iterator) Done() bool {
	return it.exhausted
}

// Reversed reports the iterator's current strand orientation.
func (it *Iterator) Reversed() bool {
	return it.reversed
}

// Len returns the number of bases spanned by the iterator.
func (it *Iterator) Len() int64 {
	return it.end - it.start
}

// Base returns the current base, complemented if the iterator is reading
// the reverse strand.
func (it *Iterator) Base() (byte, error) {
	if it.exhausted {
		return 0, fmt.Errorf("dna: iterator exhausted")
	}

	b, err := it.access.GetBase(it.pos)
	if err != nil {
		return 0, err
	}

	if it.reversed {
		return Complement(b), nil
	}

	return b, nil
}

// Next advances the iterator by one base, returning false once exhausted.
func (it *Iterator) Next() bool {
	if it.exhausted {
		return false
	}

	if it.reversed {
		it.pos--
		it.exhausted = it.pos < it.start
	} else {
		it.pos++
		it.exhausted = it.pos >= it.end
	}

	return !it.exhausted
}

// String materializes the whole interval as a string, in the iterator's
// current orientation, without disturbing its position.
func (it *Iterator) String() (string, error) {
	s, err := it.access.GetString(it.start, it.end-it.start)
	if err != nil {
		return "", err
	}

	if it.reversed {
		return ReverseComplement(s), nil
	}

	return s, nil
}
