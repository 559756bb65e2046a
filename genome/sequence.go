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

package genome

import (
	"encoding/binary"
	"sort"

	"github.com/zymatik-com/halign/halerr"
)

// sequenceRecord is one element of SEQIDX_ARRAY: {start, firstTopIdx,
// firstBottomIdx}, plus a sentinel element at index len(sequences) whose
// Start equals the genome's total length.
type sequenceRecord struct {
	Start       uint64
	FirstTop    uint64
	FirstBottom uint64
}

type sequenceCodec struct{}

func (sequenceCodec) Size() int { return 24 }

func (sequenceCodec) Encode(v sequenceRecord, buf []byte) {
	binary.LittleEndian.PutUint64(buf[0:8], v.Start)
	binary.LittleEndian.PutUint64(buf[8:16], v.FirstTop)
	binary.LittleEndian.PutUint64(buf[16:24], v.FirstBottom)
}

func (sequenceCodec) Decode(buf []byte) sequenceRecord {
	return sequenceRecord{
		Start:       binary.LittleEndian.Uint64(buf[0:8]),
		FirstTop:    binary.LittleEndian.Uint64(buf[8:16]),
		FirstBottom: binary.LittleEndian.Uint64(buf[16:24]),
	}
}

// nameCodec implements SEQNAME_ARRAY: fixed-width, NUL-padded strings sized
// to the longest name in the genome plus one byte.
type nameCodec struct {
	Width int
}

func (c nameCodec) Size() int { return c.Width }

func (c nameCodec) Encode(v string, buf []byte) {
	n := copy(buf, v)
	for i := n; i < len(buf); i++ {
		buf[i] = 0
	}
}

func (c nameCodec) Decode(buf []byte) string {
	n := 0
	for n < len(buf) && buf[n] != 0 {
		n++
	}
	return string(buf[:n])
}

// Sequence is a named contiguous sub-range of a Genome's DNA (spec §3's
// "Sequence"). It implements segment.Sequence.
type Sequence struct {
	name        string
	start       int64
	length      int64
	firstTop    int
	firstBottom int
}

func (s *Sequence) Name() string   { return s.name }
func (s *Sequence) Start() int64   { return s.start }
func (s *Sequence) Length() int64  { return s.length }
func (s *Sequence) End() int64     { return s.start + s.length }
func (s *Sequence) FirstTopSegment() int    { return s.firstTop }
func (s *Sequence) FirstBottomSegment() int { return s.firstBottom }

// sequenceContaining does a binary search over sequences sorted by start
// (the Open Question in spec §9 is resolved here in favour of enforced
// sorted storage with no linear-scan fallback: sequences are always
// written in start order by SetDimensions/UpdateTopDimensions/
// UpdateBottomDimensions, so a failed
// binary search is a genuine on-disk inconsistency, not a cue to degrade
// to a scan).
func sequenceContaining(seqs []*Sequence, p int64) (*Sequence, error) {
	i := sort.Search(len(seqs), func(i int) bool { return seqs[i].End() > p })
	if i == len(seqs) || p < seqs[i].Start() {
		return nil, halerr.ErrInconsistent
	}
	return seqs[i], nil
}
