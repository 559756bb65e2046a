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

// GappedIterator agglomerates a run of adjacent, orientation-consistent
// segments separated by gaps no longer than MaxGap into one logical
// window, composing two plain Iterators (left and right edge of the run)
// rather than subclassing Iterator (spec §9 design note). In Atomic mode
// the window is always exactly one segment, matching plain Iterator
// stepping.
type GappedIterator struct {
	left, right *Iterator
	maxGap      int
	atomic      bool
}

// NewGapped seeds a gapped iterator at a single unsliced segment. Offset
// (sliced) seeds are rejected, since a partial segment can't be
// unambiguously extended into a run (spec §4.4).
func NewGapped(seed *Iterator, maxGap int, atomic bool) (*GappedIterator, error) {
	if seed.IsOffsetSliced() {
		return nil, fmt.Errorf("segment: NewGapped: %w: seed segment is offset-sliced", halerr.ErrInvalidArgument)
	}

	return &GappedIterator{left: seed.Clone(), right: seed.Clone(), maxGap: maxGap, atomic: atomic}, nil
}

// Clone returns an independent copy of the run.
func (g *GappedIterator) Clone() *GappedIterator {
	return &GappedIterator{left: g.left.Clone(), right: g.right.Clone(), maxGap: g.maxGap, atomic: g.atomic}
}

// absorbRight greedily extends the run's right edge over compatible
// neighbours, stopping at the first incompatible one or cutoff. ToRight
// calls it after every step; NewGapped does not, so a freshly seeded run
// holds only its seed segment, and ToLeft grows the run leftward instead.
func (g *GappedIterator) absorbRight(cutoff int64) {
	if g.atomic {
		return
	}
	for {
		candidate := g.right.Clone()
		_, rightHi := g.right.Bounds()
		if err := candidate.ToRight(cutoff); err != nil {
			break
		}
		candLo, _ := candidate.Bounds()
		if !g.compatibleNeighbor(g.right, candidate, candLo-rightHi) {
			break
		}
		g.right = candidate
	}
}

// Kind returns the top/bottom discriminator of the segments in the run.
func (g *GappedIterator) Kind() Kind { return g.left.Kind() }

// Genome returns the genome the run belongs to.
func (g *GappedIterator) Genome() Genome { return g.left.Genome() }

// Reversed reports the run's orientation.
func (g *GappedIterator) Reversed() bool { return g.left.Reversed() }

// Bounds returns the combined genome interval spanned by the run,
// including any internal gaps.
func (g *GappedIterator) Bounds() (lo, hi int64) {
	l1, h1 := g.left.Bounds()
	l2, h2 := g.right.Bounds()

	lo = l1
	if l2 < lo {
		lo = l2
	}
	hi = h1
	if h2 > hi {
		hi = h2
	}
	return lo, hi
}

// LeftIndex and RightIndex expose the run's edge segment indices, mainly
// for mapper/column code that needs to enumerate the individual segments
// making up a gapped run.
func (g *GappedIterator) LeftIndex() int  { return g.left.Index() }
func (g *GappedIterator) RightIndex() int { return g.right.Index() }

// compatibleNeighbor reports whether candidate continues the run: same
// strand orientation as the run, within maxGap of the run's current edge,
// and agreeing with that edge on whether it has a parent edge, so a
// contiguous alignment block doesn't silently absorb an unaligned
// insertion. Bottom segments never report a parent edge, so for Bottom
// runs only orientation and gap are compared.
func (g *GappedIterator) compatibleNeighbor(edge, candidate *Iterator, gap int64) bool {
	if g.atomic {
		return false
	}
	if gap < 0 || int64(g.maxGap) < gap {
		return false
	}
	if candidate.HasParent() != edge.HasParent() {
		return false
	}
	return candidate.Reversed() == edge.Reversed()
}

// ToRight extends (or, in Atomic mode, steps) the run rightward. Starting
// from the segment immediately right of the current right edge, it keeps
// absorbing further segments while they remain within MaxGap and
// orientation-consistent, stopping at the first incompatible neighbor or
// the array/cutoff boundary.
func (g *GappedIterator) ToRight(cutoff int64) error {
	next := g.right.Clone()
	if err := next.ToRight(cutoff); err != nil {
		return err
	}

	g.left = next
	g.right = next.Clone()
	g.absorbRight(cutoff)

	return nil
}

// ToLeft is the mirror of ToRight.
func (g *GappedIterator) ToLeft(cutoff int64) error {
	prev := g.left.Clone()
	if err := prev.ToLeft(cutoff); err != nil {
		return err
	}

	g.right = prev
	g.left = prev.Clone()

	if g.atomic {
		return nil
	}

	for {
		candidate := g.left.Clone()
		leftLo, _ := g.left.Bounds()
		if err := candidate.ToLeft(cutoff); err != nil {
			break
		}
		_, candHi := candidate.Bounds()
		if !g.compatibleNeighbor(g.left, candidate, leftLo-candHi) {
			break
		}
		g.left = candidate
	}

	return nil
}

// ToParent maps both edges of a top-segment run to their parent bottom
// segments, producing the parent-side gapped run. Both edges must have a
// parent edge; mapping stops being a contiguous run in the parent's
// coordinate space if either does not.
func (g *GappedIterator) ToParent() error {
	left := g.left.Clone()
	right := g.right.Clone()

	if err := left.ToParent(); err != nil {
		return fmt.Errorf("segment: GappedIterator.ToParent: left edge: %w", err)
	}
	if err := right.ToParent(); err != nil {
		return fmt.Errorf("segment: GappedIterator.ToParent: right edge: %w", err)
	}

	g.left, g.right = left, right
	return nil
}

// ToChild is the Bottom-run mirror of ToParent, mapping both edges to a
// named child genome's top segments.
func (g *GappedIterator) ToChild(childSlot int) error {
	left := g.left.Clone()
	right := g.right.Clone()

	if err := left.ToChild(childSlot); err != nil {
		return fmt.Errorf("segment: GappedIterator.ToChild: left edge: %w", err)
	}
	if err := right.ToChild(childSlot); err != nil {
		return fmt.Errorf("segment: GappedIterator.ToChild: right edge: %w", err)
	}

	g.left, g.right = left, right
	return nil
}
