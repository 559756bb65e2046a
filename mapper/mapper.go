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

// Package mapper implements spec §4.7: mapping a source segment in one
// genome to all of its homologs in a target genome, climbing to their
// most recent common ancestor (or a caller-supplied coalescence limit)
// and back down, and merging the results into a target-disjoint set.
package mapper

import (
	"fmt"
	"sort"

	"github.com/gaissmai/interval"
	"github.com/zymatik-com/halign/halerr"
	"github.com/zymatik-com/halign/segment"
)

// MappedSegment is one homologous interval produced by Map, in both
// target- and source-genome coordinates. Coordinates are absolute genome
// positions (as returned by segment.Iterator.Bounds), End exclusive.
type MappedSegment struct {
	TargetGenome   string
	TargetSeq      string
	TargetStart    int64
	TargetEnd      int64
	TargetReversed bool

	SourceGenome   string
	SourceSeq      string
	SourceStart    int64
	SourceEnd      int64
	SourceReversed bool

	// Reversed reports whether the source and target runs are on opposite
	// strands relative to one another.
	Reversed bool
}

// CompareFirst and CompareLast implement interval.Interface on target
// coordinates, the dimension the result set is kept disjoint on.
func (m MappedSegment) CompareFirst(o MappedSegment) int { return cmp64(m.TargetStart, o.TargetStart) }
func (m MappedSegment) CompareLast(o MappedSegment) int  { return cmp64(m.TargetEnd-1, o.TargetEnd-1) }

func cmp64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Less orders MappedSegments primary by target (genome, sequence,
// coordinate), secondary by source, per spec §4.7's ordering rule.
func (m MappedSegment) Less(o MappedSegment) bool {
	if m.TargetGenome != o.TargetGenome {
		return m.TargetGenome < o.TargetGenome
	}
	if m.TargetSeq != o.TargetSeq {
		return m.TargetSeq < o.TargetSeq
	}
	if m.TargetStart != o.TargetStart {
		return m.TargetStart < o.TargetStart
	}
	if m.TargetEnd != o.TargetEnd {
		return m.TargetEnd < o.TargetEnd
	}
	if m.SourceGenome != o.SourceGenome {
		return m.SourceGenome < o.SourceGenome
	}
	if m.SourceSeq != o.SourceSeq {
		return m.SourceSeq < o.SourceSeq
	}
	if m.SourceStart != o.SourceStart {
		return m.SourceStart < o.SourceStart
	}
	return m.SourceEnd < o.SourceEnd
}

// canMergeRightWith reports whether o continues m to its right: target
// coordinates abut with delta 1 in the run's orientation, source
// coordinates abut with the same delta in the same orientation, and the
// two runs are genuinely the same genome pairing on the same strand.
func (m MappedSegment) canMergeRightWith(o MappedSegment) bool {
	if m.TargetGenome != o.TargetGenome || m.SourceGenome != o.SourceGenome {
		return false
	}
	if m.Reversed != o.Reversed {
		return false
	}
	if m.TargetEnd != o.TargetStart {
		return false
	}
	if !m.Reversed {
		return m.SourceEnd == o.SourceStart
	}
	return o.SourceEnd == m.SourceStart
}

// Options configures Map's ancestor-climbing behaviour.
type Options struct {
	// CoalescenceLimit is the genome passed on to the paralogy expansion;
	// nil is replaced by the MRCA of source and target. The expansion only
	// ever takes place at the MRCA, so the value does not change the
	// result.
	CoalescenceLimit segment.Genome

	// FollowParalogs enables the paralogy-cycle fan-out at the MRCA
	// (spec §4.7 point 4, mapRecursiveParalogies).
	FollowParalogs bool
}

// Map resolves src (a segment in src.Genome()) to every homologous run in
// target, merging the results into a set that is disjoint in target
// coordinates (spec §4.7 point 6).
func Map(src *segment.Iterator, target segment.Genome, opts Options) ([]MappedSegment, error) {
	if src.Kind() != segment.Top {
		return nil, fmt.Errorf("mapper: Map: %w: source must be a top-segment iterator", halerr.ErrUnsupported)
	}

	ancestor, err := mrca(src.Genome(), target)
	if err != nil {
		return nil, fmt.Errorf("mapper: Map: %w", err)
	}

	limit := opts.CoalescenceLimit
	if limit == nil {
		limit = ancestor
	}

	names, err := pathNames(ancestor, target)
	if err != nil {
		return nil, fmt.Errorf("mapper: Map: %w", err)
	}

	up := src.Clone()
	if err := mapRecursiveUp(up, ancestor); err != nil {
		return nil, fmt.Errorf("mapper: Map: %w", err)
	}

	candidates := []*segment.Iterator{up}
	if opts.FollowParalogs {
		extra, err := mapRecursiveParalogies(up, limit)
		if err != nil {
			return nil, fmt.Errorf("mapper: Map: %w", err)
		}
		candidates = append(candidates, extra...)
	}

	var results []MappedSegment
	for _, c := range candidates {
		down := c.Clone()
		if err := mapRecursiveDown(down, target, names); err != nil {
			continue // this paralog's subtree doesn't reach target; skip it
		}
		results = insertDisjoint(results, toMappedSegment(src, down))
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Less(results[j]) })

	return results, nil
}

// mrca returns the most recent common ancestor of a and b by walking
// parent pointers (spec §4.7 point 1).
func mrca(a, b segment.Genome) (segment.Genome, error) {
	ancestorsOfA := map[string]segment.Genome{}
	for g := a; g != nil; g = g.Parent() {
		ancestorsOfA[g.Name()] = g
	}
	for g := b; g != nil; g = g.Parent() {
		if _, ok := ancestorsOfA[g.Name()]; ok {
			return g, nil
		}
	}
	return nil, fmt.Errorf("no common ancestor of %s and %s: %w", a.Name(), b.Name(), halerr.ErrInconsistent)
}

// pathNames returns the name set of genomes on the spanning path from top
// down to bottom (spec §4.7 point 2), inclusive of both ends.
func pathNames(top, bottom segment.Genome) (map[string]bool, error) {
	names := map[string]bool{}
	for g := bottom; g != nil; g = g.Parent() {
		names[g.Name()] = true
		if g.Name() == top.Name() {
			return names, nil
		}
	}
	return nil, fmt.Errorf("%s is not a descendant of %s: %w", bottom.Name(), top.Name(), halerr.ErrInconsistent)
}

// mapRecursiveUp repeatedly maps it to its parent via the parent-index,
// refining through the same-genome parse partner, until it lands in mrca
// (spec §4.7 point 3).
func mapRecursiveUp(it *segment.Iterator, mrca segment.Genome) error {
	for it.Genome().Name() != mrca.Name() {
		if it.Kind() == segment.Bottom {
			if err := parseUpWhole(it); err != nil {
				return fmt.Errorf("mapRecursiveUp: %w", err)
			}
		}
		if err := it.ToParent(); err != nil {
			return fmt.Errorf("mapRecursiveUp: %w", err)
		}
	}
	if it.Kind() == segment.Bottom {
		if err := parseUpWhole(it); err != nil {
			return fmt.Errorf("mapRecursiveUp: %w", err)
		}
	}
	return nil
}

// parseUpWhole/parseDownWhole resolve the same-genome parse partner at the
// iterator's current start position (segment.Iterator.ToParseUp/ToParseDown
// are point searches, landing on a single base), then immediately widen
// back out to that partner segment's full extent. The Segment Mapper
// operates at whole-aligned-segment granularity throughout (ToParent and
// ToChild already discard slice offsets the same way), so this keeps
// parse-link hops consistent with every other step in the climb.
func parseUpWhole(it *segment.Iterator) error {
	if err := it.ToParseUp(); err != nil {
		return err
	}
	return it.Slice(0, 0)
}

func parseDownWhole(it *segment.Iterator) error {
	if err := it.ToParseDown(); err != nil {
		return err
	}
	return it.Slice(0, 0)
}

// mapRecursiveParalogies expands the paralogy cycle of the (already
// up-mapped) segment at the MRCA, returning one extra candidate iterator
// per non-canonical member of the cycle (spec §4.7 point 4). It does not
// climb above the MRCA toward limit; limit is not read.
func mapRecursiveParalogies(up *segment.Iterator, limit segment.Genome) ([]*segment.Iterator, error) {
	if !up.HasNextParalogy() {
		return nil, nil
	}

	var out []*segment.Iterator
	start := up.Index()
	cur := up.Clone()
	for {
		if err := cur.ToNextParalogy(); err != nil {
			break
		}
		if cur.Index() == start {
			break
		}
		out = append(out, cur.Clone())
	}
	return out, nil
}

// mapRecursiveDown walks from it's current ancestor genome down to
// target, at each level picking the child on the path-name set and
// mapping through the child-index edge (spec §4.7 point 5).
func mapRecursiveDown(it *segment.Iterator, target segment.Genome, onPath map[string]bool) error {
	for it.Genome().Name() != target.Name() {
		if it.Kind() == segment.Top {
			if err := parseDownWhole(it); err != nil {
				return fmt.Errorf("mapRecursiveDown: %w", err)
			}
		}

		g := it.Genome()
		slot := -1
		for s := 0; s < g.NumChildren(); s++ {
			if c := g.Child(s); c != nil && onPath[c.Name()] {
				slot = s
				break
			}
		}
		if slot < 0 {
			return fmt.Errorf("mapRecursiveDown: %w: no child of %s on path to %s", halerr.ErrNotFound, g.Name(), target.Name())
		}
		if err := it.ToChild(slot); err != nil {
			return fmt.Errorf("mapRecursiveDown: %w", err)
		}
	}
	return nil
}

// toMappedSegment packages the source and resolved target iterators into
// a MappedSegment, resolving sequence names on both sides.
func toMappedSegment(src, target *segment.Iterator) MappedSegment {
	sLo, sHi := src.Bounds()
	tLo, tHi := target.Bounds()

	srcSeqName, tgtSeqName := "", ""
	if seq, err := src.Genome().SequenceContaining(sLo); err == nil && seq != nil {
		srcSeqName = seq.Name()
	}
	if seq, err := target.Genome().SequenceContaining(tLo); err == nil && seq != nil {
		tgtSeqName = seq.Name()
	}

	return MappedSegment{
		TargetGenome:   target.Genome().Name(),
		TargetSeq:      tgtSeqName,
		TargetStart:    tLo,
		TargetEnd:      tHi,
		TargetReversed: target.Reversed(),

		SourceGenome:   src.Genome().Name(),
		SourceSeq:      srcSeqName,
		SourceStart:    sLo,
		SourceEnd:      sHi,
		SourceReversed: src.Reversed(),

		Reversed: src.Reversed() != target.Reversed(),
	}
}

// insertDisjoint inserts incoming into existing, cutting it against every
// segment it overlaps in target coordinates and cutting those segments
// against it in turn, so the result stays disjoint in target coordinates
// (spec §4.7 point 6). The overlap candidates are found by rebuilding an
// interval.Tree over the existing set, per SPEC_FULL.md's domain-stack
// wiring of github.com/gaissmai/interval.
func insertDisjoint(existing []MappedSegment, incoming MappedSegment) []MappedSegment {
	if len(existing) == 0 {
		return []MappedSegment{incoming}
	}

	tree := interval.NewTree[MappedSegment](existing)
	overlapping := overlapsOf(tree, existing, incoming)
	if len(overlapping) == 0 {
		return mergeAdjacent(append(append([]MappedSegment{}, existing...), incoming))
	}

	overlapSet := make(map[MappedSegment]bool, len(overlapping))
	for _, o := range overlapping {
		overlapSet[o] = true
	}

	out := make([]MappedSegment, 0, len(existing)+1)
	for _, e := range existing {
		if overlapSet[e] {
			out = append(out, cutAgainst(e, incoming)...)
		} else {
			out = append(out, e)
		}
	}
	out = append(out, cutAgainst(incoming, overlapping...)...)

	return mergeAdjacent(out)
}

// overlapsOf returns every item in existing whose target interval
// intersects incoming's, using the tree's Supersets/Subsets queries plus
// a linear scan fallback for the partial-overlap relations those two
// queries don't cover (gaissmai/interval's exposed query set is
// containment-oriented; general intersection is derived from it here).
func overlapsOf(tree *interval.Tree[MappedSegment], existing []MappedSegment, item MappedSegment) []MappedSegment {
	seen := map[MappedSegment]bool{}
	var out []MappedSegment
	add := func(m MappedSegment) {
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	for _, m := range tree.Supersets(item) {
		add(m)
	}
	for _, m := range tree.Subsets(item) {
		add(m)
	}
	for _, m := range existing {
		if m.TargetStart < item.TargetEnd && item.TargetStart < m.TargetEnd {
			add(m)
		}
	}
	return out
}

// cutAgainst removes from m every portion that falls inside any of
// against's target intervals, returning zero, one, or two remaining
// pieces (a middle overlap splits m in two).
func cutAgainst(m MappedSegment, against ...MappedSegment) []MappedSegment {
	pieces := []MappedSegment{m}
	for _, a := range against {
		var next []MappedSegment
		for _, p := range pieces {
			next = append(next, cutOne(p, a)...)
		}
		pieces = next
	}
	return pieces
}

// cutOne trims m to exclude the portion of its target range covered by a.
// Source coordinates move in lockstep with target coordinates for a forward
// mapping, but in the opposite direction for a reversed one (m.TargetStart
// aligns with m.SourceEnd, not m.SourceStart) — the same asymmetry
// canMergeRightWith accounts for when deciding whether two pieces are
// adjacent.
func cutOne(m, a MappedSegment) []MappedSegment {
	if a.TargetEnd <= m.TargetStart || m.TargetEnd <= a.TargetStart {
		return []MappedSegment{m}
	}

	var out []MappedSegment
	if a.TargetStart > m.TargetStart {
		left := m
		left.TargetEnd = a.TargetStart
		length := left.TargetEnd - left.TargetStart
		if !m.Reversed {
			left.SourceEnd = left.SourceStart + length
		} else {
			left.SourceStart = left.SourceEnd - length
		}
		out = append(out, left)
	}
	if a.TargetEnd < m.TargetEnd {
		right := m
		length := a.TargetEnd - m.TargetStart
		right.TargetStart = a.TargetEnd
		if !m.Reversed {
			right.SourceStart = m.SourceStart + length
		} else {
			right.SourceEnd = m.SourceEnd - length
		}
		out = append(out, right)
	}
	return out
}

// mergeAdjacent folds together any pair of results that canMergeRightWith
// each other, after sorting by target coordinate.
func mergeAdjacent(in []MappedSegment) []MappedSegment {
	sort.Slice(in, func(i, j int) bool { return in[i].Less(in[j]) })

	out := in[:0:0]
	for _, m := range in {
		if len(out) > 0 && out[len(out)-1].canMergeRightWith(m) {
			out[len(out)-1].TargetEnd = m.TargetEnd
			if !out[len(out)-1].Reversed {
				out[len(out)-1].SourceEnd = m.SourceEnd
			} else {
				out[len(out)-1].SourceStart = m.SourceStart
			}
			continue
		}
		out = append(out, m)
	}
	return out
}
