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

import "strings"

// IsFirst reports whether the iterator sits at array index 0.
func (it *Iterator) IsFirst() bool { return it.index == 0 }

// IsLast reports whether the iterator sits at the last array index.
func (it *Iterator) IsLast() bool { return it.index == it.arrayLen()-1 }

// HasParent reports whether a Top iterator's segment has a parent edge.
// Always false for a Bottom iterator.
func (it *Iterator) HasParent() bool {
	if it.kind != Top {
		return false
	}
	rec, err := it.g.TopSegment(it.index)
	return err == nil && rec.ParentIndex != NullIndex
}

// ParentReversed reports the orientation of a Top segment's parent edge.
func (it *Iterator) ParentReversed() bool {
	rec, err := it.g.TopSegment(it.index)
	return err == nil && rec.ParentReversed
}

// HasChild reports whether a Bottom iterator's segment has a child edge in
// the given slot.
func (it *Iterator) HasChild(slot int) bool {
	if it.kind != Bottom {
		return false
	}
	rec, err := it.g.BottomSegment(it.index)
	return err == nil && slot >= 0 && slot < len(rec.ChildIndex) && rec.ChildIndex[slot] != NullIndex
}

// HasNextParalogy reports whether a Top segment belongs to a (non-trivial)
// paralogy cycle.
func (it *Iterator) HasNextParalogy() bool {
	if it.kind != Top {
		return false
	}
	rec, err := it.g.TopSegment(it.index)
	return err == nil && rec.NextParalogyIndex != NullIndex && rec.NextParalogyIndex != int64(it.index)
}

// IsCanonicalParalog reports whether this Top segment is the canonical
// member of its paralogy cycle: the one directly reachable from its
// parent's child slot (spec §3's paralogy invariant).
func (it *Iterator) IsCanonicalParalog() bool {
	if it.kind != Top || !it.HasParent() {
		return true
	}
	rec, err := it.g.TopSegment(it.index)
	if err != nil {
		return true
	}
	parent := it.g.Parent()
	if parent == nil {
		return true
	}
	slot := parent.ChildSlot(it.g.Name())
	if slot < 0 {
		return true
	}
	prec, err := parent.BottomSegment(int(rec.ParentIndex))
	if err != nil || slot >= len(prec.ChildIndex) {
		return true
	}
	return prec.ChildIndex[slot] == int64(it.index)
}

// Equals reports whether two iterators denote the same segment, kind,
// genome, and orientation.
func (it *Iterator) Equals(other *Iterator) bool {
	return it.kind == other.kind && it.index == other.index && it.g.Name() == other.g.Name() && it.reversed == other.reversed
}

// fractionN returns the fraction of N/n bases in [lo, hi) of the run's
// genome.
func fractionN(g Genome, lo, hi int64) (float64, error) {
	if hi <= lo {
		return 0, nil
	}
	s, err := g.DNA().GetString(lo, hi-lo)
	if err != nil {
		return 0, err
	}
	n := strings.Count(s, "N") + strings.Count(s, "n")
	return float64(n) / float64(len(s)), nil
}

// IsMissingData reports whether the iterator's current interval is more
// than nThreshold fraction N bases (spec §4.5's Missing override).
func (it *Iterator) IsMissingData(nThreshold float64) (bool, error) {
	lo, hi := it.Bounds()
	frac, err := fractionN(it.g, lo, hi)
	if err != nil {
		return false, err
	}
	return frac > nThreshold, nil
}

// IsFirst/IsLast/HasParent/AdjacentTo/IsMissingData mirror the plain
// Iterator accessors for a run's left/right edges, per the scanning
// criteria of spec §4.5 ("adjacency in the parent, matching reversed
// flags, matching sequence membership").

// IsFirst reports whether the run's left edge sits at array index 0.
func (g *GappedIterator) IsFirst() bool { return g.left.IsFirst() }

// IsLast reports whether the run's right edge sits at the last array index.
func (g *GappedIterator) IsLast() bool { return g.right.IsLast() }

// HasParent reports whether every segment of the run has a parent edge;
// compatibleNeighbor only admits segments that agree with the run's edge
// on having one, so checking the left edge is sufficient.
func (g *GappedIterator) HasParent() bool { return g.left.HasParent() }

// HasChild is the Bottom-run mirror of HasParent.
func (g *GappedIterator) HasChild(slot int) bool { return g.left.HasChild(slot) }

// ParentReversed reports the run's parent-edge orientation.
func (g *GappedIterator) ParentReversed() bool { return g.left.ParentReversed() }

// Length returns the run's total genome-coordinate span.
func (g *GappedIterator) Length() int64 {
	lo, hi := g.Bounds()
	return hi - lo
}

// NumSegments returns the number of atomic segments contained in the run.
func (g *GappedIterator) NumSegments() int {
	return g.right.Index() - g.left.Index() + 1
}

// IsMissingData reports whether the run's combined interval exceeds the
// given N-base fraction threshold.
func (g *GappedIterator) IsMissingData(nThreshold float64) (bool, error) {
	lo, hi := g.Bounds()
	frac, err := fractionN(g.Genome(), lo, hi)
	if err != nil {
		return false, err
	}
	return frac > nThreshold, nil
}

// AdjacentTo reports whether two same-kind, same-genome runs touch in
// genome-coordinate space with no gap between them. Because segment arrays
// are sorted and gapless (spec §3's CSR layout), coordinate adjacency and
// array-index adjacency coincide, so this is a simple interval comparison
// rather than an index walk.
func (g *GappedIterator) AdjacentTo(other *GappedIterator) bool {
	lo1, hi1 := g.Bounds()
	lo2, hi2 := other.Bounds()
	return hi1 == lo2 || hi2 == lo1
}

// LeftOf reports whether the run's genome-coordinate interval lies
// entirely to the left of p.
func (g *GappedIterator) LeftOf(p int64) bool {
	_, hi := g.Bounds()
	return hi <= p
}

// RightOf reports whether the run's genome-coordinate interval lies
// entirely to the right of p.
func (g *GappedIterator) RightOf(p int64) bool {
	lo, _ := g.Bounds()
	return lo > p
}

// Equals reports whether two runs cover the same edges.
func (g *GappedIterator) Equals(other *GappedIterator) bool {
	return g.left.Equals(other.left) && g.right.Equals(other.right)
}

// Left returns a clone of the run's left-edge Iterator.
func (g *GappedIterator) Left() *Iterator { return g.left.Clone() }

// Right returns a clone of the run's right-edge Iterator.
func (g *GappedIterator) Right() *Iterator { return g.right.Clone() }

// StartPosition returns the genome coordinate of the run's first base in
// read order: the low end when forward, the high end when reversed.
func (g *GappedIterator) StartPosition() int64 {
	lo, hi := g.Bounds()
	if g.Reversed() {
		return hi - 1
	}
	return lo
}

// Sequence returns the Sequence containing the run's start position.
func (g *GappedIterator) Sequence() (Sequence, error) {
	return g.Genome().SequenceContaining(g.StartPosition())
}

// HasChildOf reports whether the run's (Bottom) segment has a child edge
// into the named child genome.
func (g *GappedIterator) HasChildOf(childName string) bool {
	slot := g.Genome().ChildSlot(childName)
	if slot < 0 {
		return false
	}
	return g.HasChild(slot)
}
