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

// Package column implements spec §4.6, the Column Iterator: given a
// reference genome and range, emits every alignment column exactly once
// as a map from sequence name to the DNA bases homologous to the
// reference base at that column, across the whole alignment tree.
package column

import (
	"fmt"

	"github.com/zymatik-com/halign/dna"
	"github.com/zymatik-com/halign/halerr"
	"github.com/zymatik-com/halign/rearrangement"
	"github.com/zymatik-com/halign/segment"
)

// Options configures one Column Iterator run (spec §4.6's flag set).
type Options struct {
	// MaxInsertionSize bounds how large an indel range may be before it is
	// reported as its own frame of columns; zero disables indel frames
	// entirely.
	MaxInsertionSize int64

	NoDupes       bool // don't traverse paralogy cycles
	NoAncestors   bool // filter out non-reference genomes with children
	ReverseStrand bool // walk the reference range right to left
	Unique        bool // cache the reference genome's own visited positions too
	OnlyOrthologs bool // not read: paralogy traversal only ever goes down, never back up, whatever its value

	GapThreshold int64   // passed to the indel rearrangement classifier
	NThreshold   float64 // passed to the indel rearrangement classifier
}

func (o Options) withDefaults() Options {
	out := o
	if out.GapThreshold == 0 {
		out.GapThreshold = rearrangement.DefaultGapThreshold
	}
	if out.NThreshold == 0 {
		out.NThreshold = rearrangement.DefaultNThreshold
	}
	return out
}

// Entry is one sequence's contribution to a column: the DNA bases aligned
// to it, in discovery order (spec §4.6's "ordered set of DNA iterators").
type Entry struct {
	Sequence segment.Sequence
	Bases    []*dna.Iterator
}

// Column is one emitted alignment column, keyed by sequence name.
type Column map[string]*Entry

// frame is one entry of the main/indel stack: a contiguous reference-side
// range being walked in some genome (spec §4.6's "Entry frames").
type frame struct {
	genome   segment.Genome
	first    int64 // inclusive
	last     int64 // exclusive
	cur      int64
	reversed bool
	cumIns   int64
}

func (f *frame) exhausted() bool {
	if f.reversed {
		return f.cur < f.first
	}
	return f.cur >= f.last
}

func (f *frame) step() {
	if f.reversed {
		f.cur--
	} else {
		f.cur++
	}
}

// Iterator walks one reference range of an alignment tree, column by
// column (spec §4.6). The linked-iterator DAG of the original design is
// folded here into direct recursion over segment.Iterator hops
// (updateParent/updateChild/updateNextTopDup below); see DESIGN.md for why.
type Iterator struct {
	opts    Options
	ref     segment.Genome
	targets map[string]bool // nil means "every genome"

	stack      []*frame
	indelStack []*frame

	visited map[string]*visitSet

	leftmostRefPos int64
	brk            bool
	lastColumn     bool

	queryFirst int64
	queryLast  int64

	prevRefSeq segment.Sequence
	prevRefPos int64
}

// New starts a Column Iterator over ref's [first,last) range. targetNames
// nil means every genome in the tree is a target.
func New(ref segment.Genome, targetNames []string, first, last int64, opts Options) (*Iterator, error) {
	if ref == nil {
		return nil, fmt.Errorf("column: New: %w: nil reference genome", halerr.ErrInvalidArgument)
	}
	if first < 0 || last > ref.Length() || first >= last {
		return nil, fmt.Errorf("column: New: %w: range [%d,%d) invalid for length %d", halerr.ErrInvalidArgument, first, last, ref.Length())
	}

	var targets map[string]bool
	if targetNames != nil {
		targets = make(map[string]bool, len(targetNames))
		for _, n := range targetNames {
			targets[n] = true
		}
	}

	opts = opts.withDefaults()
	cur := first
	if opts.ReverseStrand {
		cur = last - 1
	}

	it := &Iterator{
		opts:       opts,
		ref:        ref,
		targets:    targets,
		visited:    make(map[string]*visitSet),
		stack:      []*frame{{genome: ref, first: first, last: last, cur: cur, reversed: opts.ReverseStrand}},
		queryFirst: first,
		queryLast:  last,
	}
	return it, nil
}

// LastColumn reports whether the most recent ToRight call was the single
// permitted out-of-range advance that terminates iteration (spec §7: it
// marks lastColumn() == true without error, rather than returning one).
func (it *Iterator) LastColumn() bool { return it.lastColumn }

func (it *Iterator) visitSetFor(g segment.Genome) *visitSet {
	vs, ok := it.visited[g.Name()]
	if ok {
		return vs
	}
	useBits := g.Name() == it.ref.Name() && it.opts.Unique
	vs = newVisitSet(useBits, g.Length())
	it.visited[g.Name()] = vs
	return vs
}

// isTarget reports whether g's bases should be emitted into the column.
// The reference genome is always emitted; every other genome is emitted
// unless a target set was given and g is not in it.
func (it *Iterator) isTarget(g segment.Genome) bool {
	if g.Name() == it.ref.Name() {
		return true
	}
	return it.targets == nil || it.targets[g.Name()]
}

// colMapInsert records one base at (g, pos) into col, per spec §4.6's
// deduplication contract. Returns false (and sets the break flag) when pos
// was already visited in g's visit cache.
func (it *Iterator) colMapInsert(col Column, g segment.Genome, seq segment.Sequence, pos int64, dit *dna.Iterator, forceCache bool) bool {
	isRef := g.Name() == it.ref.Name()
	mustCache := forceCache || !isRef || it.opts.Unique
	if mustCache {
		vs := it.visitSetFor(g)
		if vs.contains(pos) {
			it.brk = true
			return false
		}
		vs.mark(pos)
	}

	if isRef && pos < it.leftmostRefPos {
		it.leftmostRefPos = pos
	}

	if it.opts.NoAncestors && !isRef && g.NumChildren() > 0 {
		return false
	}
	if !it.isTarget(g) {
		return false
	}

	e, ok := col[seq.Name()]
	if !ok {
		e = &Entry{Sequence: seq}
		col[seq.Name()] = e
	}
	e.Bases = append(e.Bases, dit)
	return true
}

// isCanonicalOnRef reports whether leftmostRefPos falls within [first,
// last) of this run, so a column reached via a duplication branch is only
// emitted once, on its canonical reference coordinate (spec §4.6).
func (it *Iterator) isCanonicalOnRef(first, last int64) bool {
	return it.leftmostRefPos >= first && it.leftmostRefPos < last
}

// ToRight advances to the next column and returns it. ok is false once the
// iterator is exhausted.
func (it *Iterator) ToRight() (Column, bool, error) {
	if len(it.stack) == 0 {
		it.lastColumn = true
		return nil, false, nil
	}

	col := Column{}
	for {
		it.brk = false
		it.leftmostRefPos = 1<<63 - 1

		for len(it.stack) > 0 {
			top := it.stack[len(it.stack)-1]
			if top.exhausted() {
				it.stack = it.stack[:len(it.stack)-1]
				continue
			}

			vs := it.visitSetFor(top.genome)
			if top.genome.Name() != it.ref.Name() || it.opts.Unique {
				if vs.contains(top.cur) {
					top.step()
					continue
				}
			}

			if err := it.recursiveUpdate(col, top); err != nil {
				return nil, false, fmt.Errorf("column: ToRight: %w", err)
			}

			if top.genome.Name() == it.ref.Name() {
				it.prevRefPos = top.cur
				if seq, err := top.genome.SequenceContaining(top.cur); err == nil {
					it.prevRefSeq = seq
				}
			}

			top.step()
			break
		}

		if !it.brk || len(it.stack) == 0 {
			break
		}
		col = Column{}
	}

	it.pushIndels()

	for len(it.stack) > 0 && it.stack[len(it.stack)-1].exhausted() {
		it.stack = it.stack[:len(it.stack)-1]
	}

	// A duplication/paralogy branch can walk back to a reference position
	// outside this run's own [queryFirst, queryLast) range; when it does,
	// this column is a dup-pair re-occurrence of one already reported (or
	// due to be reported) by its canonical run, so it's dropped here rather
	// than emitted twice.
	canonical := len(col) == 0 || it.isCanonicalOnRef(it.queryFirst, it.queryLast)

	if len(col) == 0 || !canonical {
		if len(it.stack) == 0 {
			it.lastColumn = true
			return nil, false, nil
		}
		return it.ToRight()
	}

	return col, true, nil
}

// recursiveUpdate seeds the reference-frame iterator at f.cur and
// descends through every parent/child/paralogy edge reachable from it,
// inserting each discovered base into col (spec §4.6 step 3c).
func (it *Iterator) recursiveUpdate(col Column, f *frame) error {
	top, err := segment.New(f.genome, segment.Top, 0)
	if err != nil {
		return err
	}
	if err := top.ToSite(f.cur, true); err != nil {
		return err
	}
	if f.reversed {
		top.ToReverseInPlace()
	}

	return it.visitTop(col, top, f.cumIns, -1)
}

// visitTop inserts the base top is sliced to, then recurses upward
// (updateParent) and across the paralogy cycle (updateNextTopDup).
// cameFromChildSlot, when >= 0, is the child slot this node was reached
// from while descending, so updateChild doesn't re-descend into it.
func (it *Iterator) visitTop(col Column, top *segment.Iterator, cumIns int64, cameFromChildSlot int) error {
	pos, _ := top.Bounds()
	seq, err := top.Genome().SequenceContaining(pos)
	if err != nil {
		return nil //nolint:nilerr // positions outside any sequence are silently skipped
	}
	dit, err := top.DNAIterator()
	if err != nil {
		return err
	}
	if !it.colMapInsert(col, top.Genome(), seq, pos, dit, false) {
		return nil
	}

	if err := it.updateParent(col, top); err != nil {
		return err
	}
	if err := it.updateNextTopDup(col, top); err != nil {
		return err
	}
	if err := it.handleDeletion(top); err != nil {
		return err
	}

	return it.descendToChildren(col, top, cameFromChildSlot)
}

// updateParent climbs from a top segment to its parent bottom segment
// (spec §4.6's updateParent), when the paralog is canonical or noDupes is
// unset, then recurses up from there. The slot top's own genome occupies
// under the parent is passed to descendToChildren as skipSlot, so the walk
// doesn't immediately bounce back down into the child it just climbed out
// of -- without that, a reference genome with its own parent would recurse
// forever (climb to parent, descend back into the same child, climb again).
func (it *Iterator) updateParent(col Column, top *segment.Iterator) error {
	if !top.HasParent() {
		return nil
	}
	if it.opts.NoDupes && !top.IsCanonicalParalog() {
		return nil
	}

	pos, _ := top.Bounds()
	childGenome := top.Genome()
	parent := top.Clone()
	rel := relativeOffset(parent, pos)
	if err := parent.ToParent(); err != nil {
		return nil //nolint:nilerr // a missing parent edge just ends this branch
	}
	if err := sliceToOffset(parent, rel); err != nil {
		return nil //nolint:nilerr
	}

	skipSlot := parent.Genome().ChildSlot(childGenome.Name())
	return it.descendToChildren(col, parent, skipSlot)
}

// updateNextTopDup walks the paralogy cycle of top (spec §4.6's
// updateNextTopDup), inserting each other member and recursing down from
// it, but never back up. It is only called from visitTop, which is reached
// from the seed and from descendToChildren, so it never runs on an upward
// path; OnlyOrthologs is not consulted.
func (it *Iterator) updateNextTopDup(col Column, top *segment.Iterator) error {
	if it.opts.NoDupes || !top.HasNextParalogy() {
		return nil
	}

	pos, _ := top.Bounds()
	rel := relativeOffset(top, pos)

	start := top.Index()
	cur := top.Clone()
	for {
		next := cur.Clone()
		if err := next.ToNextParalogy(); err != nil {
			break
		}
		if next.Index() == start {
			break
		}
		if err := sliceToOffset(next, rel); err != nil {
			return nil //nolint:nilerr // offset doesn't fit this paralog's length
		}

		if err := it.insertParalogDNA(col, next); err != nil {
			return err
		}
		if err := it.descendToChildren(col, next, -1); err != nil {
			return err
		}
		cur = next
	}
	return nil
}

// insertParalogDNA inserts a non-canonical paralogy-cycle member's own base
// into col (spec §4.6's updateNextTopDup: "for each member create a linked
// node, insert DNA"); unlike visitTop, it never climbs to the parent, since
// every member of the cycle shares one parent edge already visited via the
// canonical member.
func (it *Iterator) insertParalogDNA(col Column, next *segment.Iterator) error {
	pos, _ := next.Bounds()
	seq, err := next.Genome().SequenceContaining(pos)
	if err != nil {
		return nil //nolint:nilerr // positions outside any sequence are silently skipped
	}
	dit, err := next.DNAIterator()
	if err != nil {
		return err
	}
	it.colMapInsert(col, next.Genome(), seq, pos, dit, false)
	return nil
}

// descendToChildren converts top to its bottom parse partner (if needed)
// and recurses into every child slot except skipSlot (spec §4.6's
// updateChild, called for every child of a bottom segment).
func (it *Iterator) descendToChildren(col Column, top *segment.Iterator, skipSlot int) error {
	bottom := top.Clone()
	if bottom.Kind() == segment.Top {
		pos, _ := bottom.Bounds()
		rel := relativeOffset(bottom, pos)
		if err := bottom.ToParseDown(); err != nil {
			return nil //nolint:nilerr // no parse partner: nothing below to visit
		}
		if err := sliceToOffset(bottom, rel); err != nil {
			return nil //nolint:nilerr
		}
	}

	g := bottom.Genome()
	for slot := 0; slot < g.NumChildren(); slot++ {
		if slot == skipSlot || !bottom.HasChild(slot) {
			continue
		}

		pos, _ := bottom.Bounds()
		child := bottom.Clone()
		rel := relativeOffset(child, pos)
		if err := child.ToChild(slot); err != nil {
			continue
		}
		if err := sliceToOffset(child, rel); err != nil {
			continue
		}
		if err := it.visitTop(col, child, 0, slot); err != nil {
			return err
		}
	}

	return nil
}

// relativeOffset returns pos's distance from it's current segment's start,
// measured in read order (i.e. honoring Reversed()), so the same distance
// can be re-applied with sliceToOffset after a ToParent/ToChild hop that
// discards slice offsets.
func relativeOffset(it *segment.Iterator, pos int64) int64 {
	g := it.Genome()
	var lo, hi int64
	if it.Kind() == segment.Top {
		lo, hi = g.TopStart(it.Index()), g.TopEnd(it.Index())
	} else {
		lo, hi = g.BottomStart(it.Index()), g.BottomEnd(it.Index())
	}
	if !it.Reversed() {
		return pos - lo
	}
	return hi - 1 - pos
}

// sliceToOffset slices it down to the single base at read-order distance
// rel from its (current, full-width) segment start.
func sliceToOffset(it *segment.Iterator, rel int64) error {
	return it.Slice(rel, it.Length()-rel-1)
}

// handleDeletion runs the rearrangement classifier (atomic mode) against
// top's parent edge when top sits at a left breakpoint, pushing the
// deleted range as a new indel frame in the parent genome when it's
// within MaxInsertionSize (spec §4.6's handleDeletion). Indel discovery
// is scoped to the reference genome's own parent edge; see DESIGN.md.
func (it *Iterator) handleDeletion(top *segment.Iterator) error {
	if it.opts.MaxInsertionSize <= 0 || top.Kind() != segment.Top {
		return nil
	}
	if top.Genome().Name() != it.ref.Name() {
		return nil
	}
	if top.IsOffsetSliced() {
		return nil // not at a left breakpoint of the unsliced segment
	}

	c, err := rearrangement.New(top.Genome(), it.opts.GapThreshold, it.opts.NThreshold, true)
	if err != nil {
		return err
	}
	res, err := c.IdentifyFromLeftBreakpoint(top.Index())
	if err != nil {
		return nil //nolint:nilerr // boundary cases simply don't produce an indel frame
	}
	if res.ID != rearrangement.Deletion || res.LeftBreakpoint == nil {
		return nil
	}
	if res.Length > it.opts.MaxInsertionSize {
		return nil
	}

	lo, hi := res.LeftBreakpoint.Bounds()
	it.indelStack = append(it.indelStack, &frame{
		genome: res.LeftBreakpoint.Genome(),
		first:  lo, last: hi, cur: lo,
		reversed: res.LeftBreakpoint.Reversed(),
	})
	return nil
}

// pushIndels moves any frames discovered during this column onto the main
// stack (spec §4.6 step 5).
func (it *Iterator) pushIndels() {
	if len(it.indelStack) == 0 {
		return
	}
	it.stack = append(it.stack, it.indelStack...)
	it.indelStack = nil
}
