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

import "github.com/zymatik-com/halign/dna"

// Genome is the minimal view of a genome that segment iterators need in
// order to navigate parent/child/paralogy/parse edges. It is implemented
// by *genome.Genome; defining it here (instead of importing package
// genome) keeps segment free of a cyclic dependency, since genome imports
// segment for the record and iterator types.
type Genome interface {
	Name() string
	Length() int64

	NumTopSegments() int
	NumBottomSegments() int
	TopSegment(i int) (TopRecord, error)
	BottomSegment(i int) (BottomRecord, error)
	TopStart(i int) int64
	TopEnd(i int) int64
	BottomStart(i int) int64
	BottomEnd(i int) int64

	NumChildren() int
	ChildSlot(name string) int // -1 if not a direct child
	Parent() Genome            // nil if root
	Child(slot int) Genome     // nil if slot out of range

	// SequenceContaining returns the sequence enclosing genome position p.
	SequenceContaining(p int64) (Sequence, error)

	// DNA returns the genome's DNA access handle.
	DNA() *dna.Access
}

// Sequence is the minimal view of a genome's named sub-range that segment
// iterators need for boundary checks.
type Sequence interface {
	Name() string
	Start() int64
	Length() int64
}
