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
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/zymatik-com/halign/container"
	"github.com/zymatik-com/halign/dna"
	"github.com/zymatik-com/halign/halerr"
	"github.com/zymatik-com/halign/metadata"
	"github.com/zymatik-com/halign/segment"
)

const (
	seqNameWidthKey = "_seqNameWidth"
	numSeqKey       = "_numSequences"
	numTopKey       = "_numTop"
	numBottomKey    = "_numBottom"
)

// SetDimensions is a destructive reshape (spec §4.8): previous DNA and
// segment arrays are dropped, and the sequence directory, DNA buffer (if
// storeDNA), and top/bottom arrays are (re)allocated from seqs. Segment
// records are created with zero Length; the caller fills in per-segment
// lengths and links afterward and must call FinalizeSegments before
// relying on coordinate derivation (TopStart/TopEnd/etc).
func (g *Genome) SetDimensions(seqs []SeqInfo, storeDNA bool) error {
	if err := g.close(); err != nil {
		return err
	}
	g.dnaAccess, g.topArr, g.botArr = nil, nil, nil

	var length int64
	var totalTop, totalBottom int
	records := make([]sequenceRecord, 0, len(seqs)+1)
	names := make([]string, 0, len(seqs))
	maxNameLen := 0

	for _, s := range seqs {
		records = append(records, sequenceRecord{Start: uint64(length), FirstTop: uint64(totalTop), FirstBottom: uint64(totalBottom)})
		names = append(names, s.Name)
		if len(s.Name) > maxNameLen {
			maxNameLen = len(s.Name)
		}
		length += s.Length
		totalTop += s.NumTopSegs
		totalBottom += s.NumBottomSegs
	}
	records = append(records, sequenceRecord{Start: uint64(length), FirstTop: uint64(totalTop), FirstBottom: uint64(totalBottom)})

	if err := g.writeSequenceDirectory(records, names, maxNameLen+1); err != nil {
		return err
	}
	g.rebuildSeqSlice(seqs, records)
	g.length = length
	g.meta.Set(numTopKey, strconv.Itoa(totalTop))
	g.meta.Set(numBottomKey, strconv.Itoa(totalBottom))

	if storeDNA {
		dnaAccess, err := dna.Create(filepath.Join(g.dir, "dna.bin"), g.backend, length, defaultSegChunk*dnaChunkScale, defaultSegWindow)
		if err != nil {
			return err
		}
		g.dnaAccess = dnaAccess
	}

	if totalTop > 0 {
		topArr, err := container.Create[segment.TopRecord](filepath.Join(g.dir, "top.bin"), g.backend, segment.TopCodec{}, totalTop, defaultSegChunk, defaultSegWindow)
		if err != nil {
			return err
		}
		g.topArr = topArr
	}

	if totalBottom > 0 {
		botArr, err := container.Create[segment.BottomRecord](filepath.Join(g.dir, "bottom.bin"), g.backend, segment.BottomCodec{NumChildren: g.numChildSlots}, totalBottom, defaultSegChunk, defaultSegWindow)
		if err != nil {
			return err
		}
		g.botArr = botArr
	}

	return metadata.Flush(g.meta)
}

// FinalizeSegments rebuilds the coordinate caches after the caller has
// written every segment's Length field via TopArray()/BottomArray().
func (g *Genome) FinalizeSegments() error {
	return g.buildCaches()
}

// TopArray and BottomArray expose the raw chunked arrays for callers
// (typically an alignment-building tool) that need to write segment
// records directly after SetDimensions.
func (g *Genome) TopArray() *container.Array[segment.TopRecord]       { return g.topArr }
func (g *Genome) BottomArray() *container.Array[segment.BottomRecord] { return g.botArr }

// UpdateTopDimensions reshapes only the top array: sequences absent from
// counts keep their existing top-segment count.
func (g *Genome) UpdateTopDimensions(counts map[string]int) error {
	newCounts := make([]int, len(g.seqs))
	for i, s := range g.seqs {
		if c, ok := counts[s.name]; ok {
			newCounts[i] = c
		} else {
			newCounts[i] = s.firstTopCount(g.seqs, i, g.NumTopSegments())
		}
	}
	return g.reshapeTop(newCounts)
}

// UpdateBottomDimensions is the bottom-array mirror of UpdateTopDimensions.
func (g *Genome) UpdateBottomDimensions(counts map[string]int) error {
	newCounts := make([]int, len(g.seqs))
	for i, s := range g.seqs {
		if c, ok := counts[s.name]; ok {
			newCounts[i] = c
		} else {
			newCounts[i] = s.firstBottomCount(g.seqs, i, g.NumBottomSegments())
		}
	}
	return g.reshapeBottom(newCounts)
}

func (s *Sequence) firstTopCount(all []*Sequence, i, total int) int {
	if i+1 < len(all) {
		return all[i+1].firstTop - s.firstTop
	}
	return total - s.firstTop
}

func (s *Sequence) firstBottomCount(all []*Sequence, i, total int) int {
	if i+1 < len(all) {
		return all[i+1].firstBottom - s.firstBottom
	}
	return total - s.firstBottom
}

func (g *Genome) reshapeTop(counts []int) error {
	names := make([]string, len(g.seqs))
	maxLen := 0
	for i, s := range g.seqs {
		names[i] = s.name
		if len(s.name) > maxLen {
			maxLen = len(s.name)
		}
	}

	finalRecords := make([]sequenceRecord, 0, len(g.seqs)+1)
	total := 0
	for i, s := range g.seqs {
		finalRecords = append(finalRecords, sequenceRecord{Start: uint64(s.start), FirstTop: uint64(total), FirstBottom: uint64(s.firstBottom)})
		total += counts[i]
	}
	lastBottom := uint64(0)
	if len(g.seqs) > 0 {
		lastBottom = uint64(g.NumBottomSegments())
	}
	finalRecords = append(finalRecords, sequenceRecord{Start: uint64(g.length), FirstTop: uint64(total), FirstBottom: lastBottom})

	if err := g.writeSequenceDirectory(finalRecords, names, maxLen+1); err != nil {
		return err
	}

	if g.topArr != nil {
		if err := g.topArr.Close(); err != nil {
			return err
		}
	}
	topArr, err := container.Create[segment.TopRecord](filepath.Join(g.dir, "top.bin"), g.backend, segment.TopCodec{}, total, defaultSegChunk, defaultSegWindow)
	if err != nil {
		return err
	}
	g.topArr = topArr
	g.meta.Set(numTopKey, strconv.Itoa(total))

	g.rebuildSeqSlice(nil, finalRecords)
	return metadata.Flush(g.meta)
}

func (g *Genome) reshapeBottom(counts []int) error {
	names := make([]string, len(g.seqs))
	maxLen := 0
	for i, s := range g.seqs {
		names[i] = s.name
		if len(s.name) > maxLen {
			maxLen = len(s.name)
		}
	}

	total := 0
	finalRecords := make([]sequenceRecord, 0, len(g.seqs)+1)
	for i, s := range g.seqs {
		finalRecords = append(finalRecords, sequenceRecord{Start: uint64(s.start), FirstTop: uint64(s.firstTop), FirstBottom: uint64(total)})
		total += counts[i]
	}
	lastTop := uint64(0)
	if len(g.seqs) > 0 {
		lastTop = uint64(g.NumTopSegments())
	}
	finalRecords = append(finalRecords, sequenceRecord{Start: uint64(g.length), FirstTop: lastTop, FirstBottom: uint64(total)})

	if err := g.writeSequenceDirectory(finalRecords, names, maxLen+1); err != nil {
		return err
	}

	if g.botArr != nil {
		if err := g.botArr.Close(); err != nil {
			return err
		}
	}
	botArr, err := container.Create[segment.BottomRecord](filepath.Join(g.dir, "bottom.bin"), g.backend, segment.BottomCodec{NumChildren: g.numChildSlots}, total, defaultSegChunk, defaultSegWindow)
	if err != nil {
		return err
	}
	g.botArr = botArr
	g.meta.Set(numBottomKey, strconv.Itoa(total))

	g.rebuildSeqSlice(nil, finalRecords)
	return metadata.Flush(g.meta)
}

func (g *Genome) rebuildSeqSlice(seqs []SeqInfo, records []sequenceRecord) {
	n := len(records) - 1
	out := make([]*Sequence, n)
	for i := 0; i < n; i++ {
		name := ""
		if i < len(g.seqs) {
			name = g.seqs[i].name
		}
		if seqs != nil && i < len(seqs) {
			name = seqs[i].Name
		}
		out[i] = &Sequence{
			name:        name,
			start:       int64(records[i].Start),
			length:      int64(records[i+1].Start - records[i].Start),
			firstTop:    int(records[i].FirstTop),
			firstBottom: int(records[i].FirstBottom),
		}
	}
	g.seqs = out
}

func (g *Genome) writeSequenceDirectory(records []sequenceRecord, names []string, width int) error {
	seqidxPath := filepath.Join(g.dir, "seqidx.bin")
	arr, err := container.Create[sequenceRecord](seqidxPath, g.backend, sequenceCodec{}, len(records), defaultSegChunk, defaultSegWindow)
	if err != nil {
		return fmt.Errorf("genome: create seqidx: %w", err)
	}
	for i, r := range records {
		if err := arr.Set(i, r); err != nil {
			return err
		}
	}
	if err := arr.Flush(); err != nil {
		return err
	}
	if err := arr.Close(); err != nil {
		return err
	}

	if width < 1 {
		width = 1
	}
	seqnamePath := filepath.Join(g.dir, "seqname.bin")
	nameArr, err := container.Create[string](seqnamePath, g.backend, nameCodec{Width: width}, len(names), defaultSegChunk, defaultSegWindow)
	if err != nil {
		return fmt.Errorf("genome: create seqname: %w", err)
	}
	for i, n := range names {
		if err := nameArr.Set(i, n); err != nil {
			return err
		}
	}
	if err := nameArr.Flush(); err != nil {
		return err
	}
	if err := nameArr.Close(); err != nil {
		return err
	}

	g.meta.Set(seqNameWidthKey, strconv.Itoa(width))
	g.meta.Set(numSeqKey, strconv.Itoa(len(names)))

	return metadata.Flush(g.meta)
}

// loadSequenceDirectory reads SEQIDX_ARRAY/SEQNAME_ARRAY back from disk.
func (g *Genome) loadSequenceDirectory() error {
	numSeqStr, ok := g.meta.Get(numSeqKey)
	if !ok {
		return fmt.Errorf("genome: %s: missing sequence count: %w", g.name, halerr.ErrInconsistent)
	}
	numSeq, err := strconv.Atoi(numSeqStr)
	if err != nil {
		return fmt.Errorf("genome: %s: invalid sequence count: %w", g.name, halerr.ErrInconsistent)
	}

	widthStr, ok := g.meta.Get(seqNameWidthKey)
	if !ok {
		return fmt.Errorf("genome: %s: missing sequence-name width: %w", g.name, halerr.ErrInconsistent)
	}
	width, err := strconv.Atoi(widthStr)
	if err != nil {
		return fmt.Errorf("genome: %s: invalid sequence-name width: %w", g.name, halerr.ErrInconsistent)
	}

	seqidxPath := filepath.Join(g.dir, "seqidx.bin")
	idxArr, err := container.Load[sequenceRecord](seqidxPath, g.backend, sequenceCodec{}, numSeq+1, defaultSegChunk, defaultSegWindow)
	if err != nil {
		return fmt.Errorf("genome: load seqidx: %w", err)
	}
	defer idxArr.Close()

	seqnamePath := filepath.Join(g.dir, "seqname.bin")
	nameArr, err := container.Load[string](seqnamePath, g.backend, nameCodec{Width: width}, numSeq, defaultSegChunk, defaultSegWindow)
	if err != nil {
		return fmt.Errorf("genome: load seqname: %w", err)
	}
	defer nameArr.Close()

	n := idxArr.Len() - 1
	if n < 0 {
		return fmt.Errorf("genome: %s: empty sequence directory: %w", g.name, halerr.ErrInconsistent)
	}

	records := make([]sequenceRecord, idxArr.Len())
	for i := range records {
		records[i], err = idxArr.Get(i)
		if err != nil {
			return err
		}
	}

	names := make([]SeqInfo, n)
	for i := 0; i < n; i++ {
		name, err := nameArr.Get(i)
		if err != nil {
			return err
		}
		names[i] = SeqInfo{Name: name}
	}

	g.rebuildSeqSlice(names, records)
	g.length = int64(records[n].Start)

	return nil
}
