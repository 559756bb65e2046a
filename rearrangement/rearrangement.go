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

// Package rearrangement classifies the homology breakpoint at a top
// segment into one of eleven labels by walking its gapped top iterator and
// that iterator's gapped parent (spec §4.5). The scan order is fixed:
// Duplication, then Nothing, then Inversion, then Insertion, then
// Deletion; anything that matches none of those is Complex.
package rearrangement

import (
	"fmt"

	"github.com/zymatik-com/halign/halerr"
	"github.com/zymatik-com/halign/segment"
)

// ID names one of the eleven classifier outcomes.
type ID int

const (
	Insertion ID = iota
	Deletion
	Duplication
	Transposition
	Inversion
	Translocation
	Complex
	Gap
	Nothing
	Missing
	Invalid
)

func (id ID) String() string {
	switch id {
	case Insertion:
		return "Insertion"
	case Deletion:
		return "Deletion"
	case Duplication:
		return "Duplication"
	case Transposition:
		return "Transposition"
	case Inversion:
		return "Inversion"
	case Translocation:
		return "Translocation"
	case Complex:
		return "Complex"
	case Gap:
		return "Gap"
	case Nothing:
		return "Nothing"
	case Missing:
		return "Missing"
	default:
		return "Invalid"
	}
}

const (
	// DefaultGapThreshold is the maximum size a simple indel can be to be
	// reported as Gap rather than Insertion/Deletion.
	DefaultGapThreshold = 10
	// DefaultNThreshold is the default fraction of N bases above which a
	// classification is overridden to Missing.
	DefaultNThreshold = 0.10
)

// Result is the outcome of classifying one breakpoint.
type Result struct {
	ID              ID
	Length          int64
	NumGaps         int
	LeftBreakpoint  *segment.Iterator
	RightBreakpoint *segment.Iterator
}

// Classifier holds the configuration (gap threshold, N-threshold, atomic
// flag) for repeated breakpoint classification over one child genome.
type Classifier struct {
	genome       segment.Genome
	parent       segment.Genome
	gapThreshold int64
	nThreshold   float64
	atomic       bool

	cur *segment.GappedIterator
}

// New returns a Classifier bound to childGenome, which must have a parent.
func New(childGenome segment.Genome, gapThreshold int64, nThreshold float64, atomic bool) (*Classifier, error) {
	parent := childGenome.Parent()
	if parent == nil {
		return nil, fmt.Errorf("rearrangement: %w: genome %s has no parent", halerr.ErrInvalidArgument, childGenome.Name())
	}
	if nThreshold < 0 || nThreshold > 1 {
		return nil, fmt.Errorf("rearrangement: %w: nThreshold must be in [0,1]", halerr.ErrInvalidArgument)
	}
	return &Classifier{genome: childGenome, parent: parent, gapThreshold: gapThreshold, nThreshold: nThreshold, atomic: atomic}, nil
}

func (c *Classifier) childCutoff() int64  { return c.genome.Length() }
func (c *Classifier) parentCutoff() int64 { return c.parent.Length() }

func mapToParent(run *segment.GappedIterator) (*segment.GappedIterator, error) {
	p := run.Clone()
	if err := p.ToParent(); err != nil {
		return nil, err
	}
	return p, nil
}

func sameSequence(a, b segment.Sequence) bool {
	return a != nil && b != nil && a.Name() == b.Name() && a.Start() == b.Start()
}

func (c *Classifier) resetStatus(topIndex int) error {
	seed, err := segment.New(c.genome, segment.Top, topIndex)
	if err != nil {
		return err
	}
	cur, err := segment.NewGapped(seed, int(c.gapThreshold), c.atomic)
	if err != nil {
		return err
	}
	c.cur = cur
	return nil
}

func (c *Classifier) result(id ID) Result {
	return Result{
		ID:              id,
		Length:          c.cur.Length(),
		NumGaps:         c.cur.NumSegments() - 1,
		LeftBreakpoint:  c.cur.Left(),
		RightBreakpoint: c.cur.Right(),
	}
}

// IdentifyFromLeftBreakpoint classifies the breakpoint whose left edge is
// the top segment at topIndex in the classifier's child genome.
func (c *Classifier) IdentifyFromLeftBreakpoint(topIndex int) (Result, error) {
	if err := c.resetStatus(topIndex); err != nil {
		return Result{}, err
	}

	if dup, err := c.scanDuplication(topIndex); err != nil {
		return Result{}, err
	} else if dup {
		return c.classify(Duplication, c.cur)
	}

	if nothing, err := c.scanNothing(topIndex); err != nil {
		return Result{}, err
	} else if nothing {
		return c.result(Nothing), nil
	}

	if inv, err := c.scanInversion(topIndex); err != nil {
		return Result{}, err
	} else if inv {
		return c.classify(Inversion, c.cur)
	}

	if ins, err := c.scanInsertion(topIndex); err != nil {
		return Result{}, err
	} else if ins {
		return c.classifyInsertion()
	}

	if del, leftParent, err := c.scanDeletion(topIndex); err != nil {
		return Result{}, err
	} else if del {
		return c.classifyDeletion(leftParent)
	}

	return c.result(Complex), nil
}

func (c *Classifier) classify(base ID, run *segment.GappedIterator) (Result, error) {
	missing, err := run.IsMissingData(c.nThreshold)
	if err != nil {
		return Result{}, err
	}
	if missing {
		return c.result(Missing), nil
	}
	return c.result(base), nil
}

func (c *Classifier) classifyInsertion() (Result, error) {
	missing, err := c.cur.IsMissingData(c.nThreshold)
	if err != nil {
		return Result{}, err
	}
	switch {
	case missing:
		return c.result(Missing), nil
	case c.cur.HasParent() && !c.cur.IsFirst() && !c.cur.IsLast():
		return c.result(Transposition), nil
	case !c.cur.HasParent():
		if c.cur.Length() > c.gapThreshold {
			return c.result(Insertion), nil
		}
		return c.result(Gap), nil
	default:
		return c.result(Complex), nil
	}
}

func (c *Classifier) classifyDeletion(leftParent *segment.GappedIterator) (Result, error) {
	missing, err := leftParent.IsMissingData(c.nThreshold)
	if err != nil {
		return Result{}, err
	}
	res := Result{Length: leftParent.Length(), NumGaps: leftParent.NumSegments() - 1, LeftBreakpoint: c.cur.Left(), RightBreakpoint: c.cur.Right()}
	switch {
	case missing:
		res.ID = Missing
	case !leftParent.HasChildOf(c.genome.Name()):
		if leftParent.Length() > c.gapThreshold {
			res.ID = Deletion
		} else {
			res.ID = Gap
		}
	default:
		res.ID = Complex
	}
	return res, nil
}

// scanDuplication: a top segment is a Duplication candidate when it has
// paralogs and is not the canonical member of its paralogy cycle.
func (c *Classifier) scanDuplication(topIndex int) (bool, error) {
	it, err := segment.New(c.genome, segment.Top, topIndex)
	if err != nil {
		return false, err
	}
	return it.HasNextParalogy() && !it.IsCanonicalParalog(), nil
}

// scanNothing recognizes the common case: a segment whose parent-mapped
// neighbours on both sides are themselves adjacent in the parent, in the
// same orientation -- i.e. no rearrangement happened on this lineage, even
// though a sibling lineage's homologous segment may have one.
func (c *Classifier) scanNothing(topIndex int) (bool, error) {
	if err := c.resetStatus(topIndex); err != nil {
		return false, err
	}
	cur := c.cur
	first, last := cur.IsFirst(), cur.IsLast()

	if !cur.HasParent() {
		return false, nil
	}
	curParent, err := mapToParent(cur)
	if err != nil {
		return false, err
	}

	if !first {
		left := cur.Clone()
		if err := left.ToLeft(0); err != nil {
			return false, nil
		}
		if !left.HasParent() {
			return false, nil
		}
		leftParent, err := mapToParent(left)
		if err != nil {
			return false, err
		}
		if !leftParent.AdjacentTo(curParent) {
			return false, nil
		}
		if left.ParentReversed() {
			if !cur.ParentReversed() || !leftParent.RightOf(curParent.StartPosition()) {
				return false, nil
			}
		} else {
			if cur.ParentReversed() || !leftParent.LeftOf(curParent.StartPosition()) {
				return false, nil
			}
		}
	}

	if !last {
		right := cur.Clone()
		if err := right.ToRight(c.childCutoff()); err != nil {
			return false, nil
		}
		if !right.HasParent() {
			return false, nil
		}
		rightParent, err := mapToParent(right)
		if err != nil {
			return false, err
		}
		if !rightParent.AdjacentTo(curParent) {
			return false, nil
		}
		if right.ParentReversed() {
			if !cur.ParentReversed() || !rightParent.LeftOf(curParent.StartPosition()) {
				return false, nil
			}
		} else {
			if cur.ParentReversed() || !rightParent.RightOf(curParent.StartPosition()) {
				return false, nil
			}
		}
	}

	if first && last {
		return cur.ParentReversed(), nil
	}
	return true, nil
}

// scanInversion is scanNothing without the orientation cross-check: it
// only requires that both neighbours' parent mappings are adjacent, and
// that the segment itself maps onto the parent's other strand.
func (c *Classifier) scanInversion(topIndex int) (bool, error) {
	if err := c.resetStatus(topIndex); err != nil {
		return false, err
	}
	cur := c.cur
	first, last := cur.IsFirst(), cur.IsLast()

	if !cur.HasParent() {
		return false, nil
	}
	curParent, err := mapToParent(cur)
	if err != nil {
		return false, err
	}

	if !first {
		left := cur.Clone()
		if err := left.ToLeft(0); err != nil {
			return false, nil
		}
		if !left.HasParent() {
			return false, nil
		}
		leftParent, err := mapToParent(left)
		if err != nil {
			return false, err
		}
		if !leftParent.AdjacentTo(curParent) {
			return false, nil
		}
	}

	if !last {
		right := cur.Clone()
		if err := right.ToRight(c.childCutoff()); err != nil {
			return false, nil
		}
		if !right.HasParent() {
			return false, nil
		}
		rightParent, err := mapToParent(right)
		if err != nil {
			return false, err
		}
		if !rightParent.AdjacentTo(curParent) {
			return false, nil
		}
	}

	return cur.ParentReversed(), nil
}

// scanInsertion eats contiguous unparented neighbours to the right (so a
// multi-segment insertion isn't double-counted at each of its segments),
// then looks at what lies immediately outside the run to tell an
// insertion/transposition destination apart from ordinary flanking
// sequence.
func (c *Classifier) scanInsertion(topIndex int) (bool, error) {
	if err := c.resetStatus(topIndex); err != nil {
		return false, err
	}
	cur := c.cur

	next := cur.Clone()
	for !next.HasParent() && !next.IsLast() {
		candidate := next.Clone()
		if err := candidate.ToRight(c.childCutoff()); err != nil {
			break
		}
		if candidate.HasParent() {
			break
		}
		next = candidate
	}
	right := next.Clone()

	first, last := cur.IsFirst(), right.IsLast()
	if first && last {
		return false, nil
	}

	if first {
		if err := right.ToRight(c.childCutoff()); err != nil {
			return !cur.HasParent(), nil
		}
		if !cur.HasParent() {
			return true, nil
		}
		if right.HasParent() {
			curParent, err := mapToParent(cur)
			if err != nil {
				return false, err
			}
			rightParent, err := mapToParent(right)
			if err != nil {
				return false, err
			}
			return !rightParent.AdjacentTo(curParent), nil
		}
		return false, nil
	}

	if last {
		left := cur.Clone()
		if err := left.ToLeft(0); err != nil {
			return !cur.HasParent(), nil
		}
		if !cur.HasParent() {
			return true, nil
		}
		if left.HasParent() {
			curParent, err := mapToParent(cur)
			if err != nil {
				return false, err
			}
			leftParent, err := mapToParent(left)
			if err != nil {
				return false, err
			}
			return !leftParent.AdjacentTo(curParent), nil
		}
		return false, nil
	}

	left := cur.Clone()
	if err := left.ToLeft(0); err != nil {
		return false, nil
	}
	rightNext := right.Clone()
	if err := rightNext.ToRight(c.childCutoff()); err != nil {
		return false, nil
	}
	if left.HasParent() && rightNext.HasParent() {
		leftParent, err := mapToParent(left)
		if err != nil {
			return false, err
		}
		rightParent, err := mapToParent(rightNext)
		if err != nil {
			return false, err
		}
		if leftParent.AdjacentTo(rightParent) {
			return true, nil
		}
		if leftParent.IsFirst() || leftParent.IsLast() {
			ls, _ := leftParent.Sequence()
			rs, _ := rightParent.Sequence()
			return sameSequence(ls, rs), nil
		}
		if rightParent.IsFirst() || rightParent.IsLast() {
			ls, _ := leftParent.Sequence()
			rs, _ := rightParent.Sequence()
			return sameSequence(ls, rs), nil
		}
	}

	return false, nil
}

// scanDeletion looks for a gap in the child's top array whose parent-side
// interval is itself the thing that moved: a run in the parent with no
// child edge into this genome. On success it returns the parent-side
// GappedIterator spanning the deleted interval.
func (c *Classifier) scanDeletion(topIndex int) (bool, *segment.GappedIterator, error) {
	if err := c.resetStatus(topIndex); err != nil {
		return false, nil, err
	}
	cur := c.cur
	first, last := cur.IsFirst(), cur.IsLast()

	if !cur.HasParent() || (first && last) {
		return false, nil, nil
	}

	leftParent, err := mapToParent(cur)
	if err != nil {
		return false, nil, err
	}

	if last {
		if !leftParent.IsFirst() {
			if err := leftParent.ToLeft(0); err != nil {
				return false, nil, nil
			}
			return true, leftParent, nil
		}
		if !leftParent.IsLast() {
			if err := leftParent.ToRight(c.parentCutoff()); err != nil {
				return false, nil, nil
			}
			return true, leftParent, nil
		}
		return false, nil, nil
	}

	right := cur.Clone()
	if err := right.ToRight(c.childCutoff()); err != nil {
		return false, nil, nil
	}
	if !right.HasParent() {
		return false, nil, nil
	}
	rightParent, err := mapToParent(right)
	if err != nil {
		return false, nil, err
	}

	ls, _ := leftParent.Sequence()
	rs, _ := rightParent.Sequence()
	if !sameSequence(ls, rs) {
		return false, nil, nil
	}

	if rightParent.Left().Index() < leftParent.Left().Index() {
		leftParent, rightParent = rightParent, leftParent
	}
	if leftParent.IsLast() {
		return false, nil, nil
	}
	if err := leftParent.ToRight(c.parentCutoff()); err != nil {
		return false, nil, nil
	}

	return leftParent.AdjacentTo(rightParent), leftParent, nil
}

// IdentifyTranslocation probes whether topIndex is the first or last top
// segment of its genome's array (sequence boundaries are not checked) and
// its parent mapping jumps to an unrelated part
// of the parent, independent of the main Duplication/Nothing/.../Deletion
// scan order. Unlike IdentifyFromLeftBreakpoint, callers invoke this
// directly when they already suspect a translocation breakpoint; it is
// not folded into the main classification order (matching the reference
// tool's own treatment of Translocation as a separate, narrower probe).
func (c *Classifier) IdentifyTranslocation(topIndex int) (bool, error) {
	if err := c.resetStatus(topIndex); err != nil {
		return false, err
	}
	cur := c.cur
	first, last := cur.IsFirst(), cur.IsLast()
	if !cur.HasParent() || (!first && !last) {
		return false, nil
	}

	leftParent, err := mapToParent(cur)
	if err != nil {
		return false, err
	}
	parentFirst := leftParent.IsFirst()
	rightParent := leftParent.Clone()

	right := cur.Clone()
	var stepErr error
	if first {
		stepErr = right.ToRight(c.childCutoff())
	} else {
		stepErr = right.ToLeft(0)
	}
	if parentFirst {
		_ = rightParent.ToRight(c.parentCutoff())
	} else {
		_ = rightParent.ToLeft(0)
	}
	if stepErr != nil {
		return false, nil
	}

	if !right.HasParent() {
		return true, nil
	}
	curParent, err := mapToParent(right)
	if err != nil {
		return false, err
	}
	return curParent.Equals(rightParent), nil
}
