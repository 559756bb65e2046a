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

package mapper

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestCutOneForwardTrimsSourceFromBothEnds exercises the non-reversed
// branch: as the target range shrinks from either side, the source range
// shrinks from the same side.
func TestCutOneForwardTrimsSourceFromBothEnds(t *testing.T) {
	m := MappedSegment{TargetStart: 100, TargetEnd: 120, SourceStart: 500, SourceEnd: 520}
	a := MappedSegment{TargetStart: 105, TargetEnd: 110}

	pieces := cutOne(m, a)
	require.Len(t, pieces, 2)

	left, right := pieces[0], pieces[1]
	require.Equal(t, int64(100), left.TargetStart)
	require.Equal(t, int64(105), left.TargetEnd)
	require.Equal(t, int64(500), left.SourceStart)
	require.Equal(t, int64(505), left.SourceEnd)

	require.Equal(t, int64(110), right.TargetStart)
	require.Equal(t, int64(120), right.TargetEnd)
	require.Equal(t, int64(510), right.SourceStart)
	require.Equal(t, int64(520), right.SourceEnd)
}

// TestCutOneReversedTrimsSourceFromOppositeEnd is the regression case for
// the bug a reviewer flagged: for a reversed mapping, m.TargetStart aligns
// with m.SourceEnd (not m.SourceStart), so trimming the left edge of the
// target range must trim the right edge of the source range, and vice
// versa -- cutOne used to add the same delta regardless of orientation,
// silently corrupting source coordinates on reversed segments.
func TestCutOneReversedTrimsSourceFromOppositeEnd(t *testing.T) {
	m := MappedSegment{TargetStart: 100, TargetEnd: 120, SourceStart: 500, SourceEnd: 520, Reversed: true}
	a := MappedSegment{TargetStart: 105, TargetEnd: 110}

	pieces := cutOne(m, a)
	require.Len(t, pieces, 2)

	left, right := pieces[0], pieces[1]
	// left keeps the original TargetStart (100), which under reversal maps
	// to the high end of the source range: SourceEnd is unchanged and
	// SourceStart moves in to match the shrunk length (5).
	require.Equal(t, int64(100), left.TargetStart)
	require.Equal(t, int64(105), left.TargetEnd)
	require.Equal(t, int64(515), left.SourceStart)
	require.Equal(t, int64(520), left.SourceEnd)

	// right keeps the original TargetEnd (120), which under reversal maps
	// to the low end of the source range: SourceStart is unchanged and
	// SourceEnd moves in to match the shrunk length (10).
	require.Equal(t, int64(110), right.TargetStart)
	require.Equal(t, int64(120), right.TargetEnd)
	require.Equal(t, int64(500), right.SourceStart)
	require.Equal(t, int64(510), right.SourceEnd)
}
