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

package column

import (
	"github.com/Workiva/go-datastructures/augmentedtree"
	"github.com/Workiva/go-datastructures/bitarray"
)

// visitSet tracks already-emitted genome positions for one genome during a
// column traversal (spec §4.6's "visit cache"). The reference genome, when
// Unique is set, uses a flat bitarray sized to its length since reference
// positions are sequential and bounded; every other genome uses an
// augmentedtree of unit intervals, since non-reference visit sets are
// typically sparse relative to genome length (SPEC_FULL.md §4.0).
type visitSet struct {
	bits   bitarray.BitArray
	tree   augmentedtree.Tree
	nextID uint64
}

func newVisitSet(useBitArray bool, length int64) *visitSet {
	if useBitArray {
		return &visitSet{bits: bitarray.NewBitArray(uint64(length))}
	}
	return &visitSet{tree: augmentedtree.New(1)}
}

func (v *visitSet) contains(pos int64) bool {
	if v.bits != nil {
		ok, _ := v.bits.GetBit(uint64(pos))
		return ok
	}
	return len(v.tree.Query(unitInterval{pos: pos})) > 0
}

func (v *visitSet) mark(pos int64) {
	if v.bits != nil {
		_ = v.bits.SetBit(uint64(pos))
		return
	}
	v.nextID++
	v.tree.Add(unitInterval{pos: pos, id: v.nextID})
}

// unitInterval is a width-1 augmentedtree.Interval at a single genome
// position.
type unitInterval struct {
	pos int64
	id  uint64
}

func (u unitInterval) LowAtDimension(uint64) int64  { return u.pos }
func (u unitInterval) HighAtDimension(uint64) int64 { return u.pos + 1 }
func (u unitInterval) ID() uint64                   { return u.id }

func (u unitInterval) OverlapsAtDimension(other augmentedtree.Interval, dimension uint64) bool {
	lo := other.LowAtDimension(dimension)
	hi := other.HighAtDimension(dimension)
	return u.pos < hi && lo < u.pos+1
}
