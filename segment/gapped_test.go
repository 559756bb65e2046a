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

package segment_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zymatik-com/halign/segment"
)

func TestGappedExtendsOverSmallGaps(t *testing.T) {
	g := &fakeGenome{name: "g", topSt: []int64{0, 5, 10, 16, 21}}
	g.tops = []segment.TopRecord{
		{SelfIndex: 0, Length: 5, ParentIndex: segment.NullIndex, NextParalogyIndex: segment.NullIndex},
		{SelfIndex: 1, Length: 5, ParentIndex: segment.NullIndex, NextParalogyIndex: segment.NullIndex},
		{SelfIndex: 2, Length: 6, ParentIndex: segment.NullIndex, NextParalogyIndex: segment.NullIndex},
		{SelfIndex: 3, Length: 5, ParentIndex: segment.NullIndex, NextParalogyIndex: segment.NullIndex},
	}

	seed, err := segment.New(g, segment.Top, 0)
	require.NoError(t, err)

	gi, err := segment.NewGapped(seed, 10, false)
	require.NoError(t, err)

	require.NoError(t, gi.ToRight(21))

	assert.Equal(t, 3, gi.RightIndex())
	lo, hi := gi.Bounds()
	assert.Equal(t, int64(5), lo)
	assert.Equal(t, int64(21), hi)
}

func TestGappedAtomicNeverExtends(t *testing.T) {
	g := &fakeGenome{name: "g", topSt: []int64{0, 5, 10, 15}}
	g.tops = []segment.TopRecord{
		{SelfIndex: 0, Length: 5, ParentIndex: segment.NullIndex, NextParalogyIndex: segment.NullIndex},
		{SelfIndex: 1, Length: 5, ParentIndex: segment.NullIndex, NextParalogyIndex: segment.NullIndex},
		{SelfIndex: 2, Length: 5, ParentIndex: segment.NullIndex, NextParalogyIndex: segment.NullIndex},
	}

	seed, err := segment.New(g, segment.Top, 0)
	require.NoError(t, err)

	gi, err := segment.NewGapped(seed, 10, true)
	require.NoError(t, err)

	require.NoError(t, gi.ToRight(15))
	assert.Equal(t, gi.LeftIndex(), gi.RightIndex())
	assert.Equal(t, 1, gi.RightIndex())
}

func TestGappedRejectsOffsetSlicedSeed(t *testing.T) {
	g := &fakeGenome{name: "g", topSt: []int64{0, 10}}
	g.tops = []segment.TopRecord{{SelfIndex: 0, Length: 10, ParentIndex: segment.NullIndex, NextParalogyIndex: segment.NullIndex}}

	seed, err := segment.New(g, segment.Top, 0)
	require.NoError(t, err)
	require.NoError(t, seed.Slice(1, 1))

	_, err = segment.NewGapped(seed, 10, false)
	assert.Error(t, err)
}
