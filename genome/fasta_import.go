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
	"io"
	"strings"

	"github.com/zymatik-com/halign/fasta"
	"github.com/zymatik-com/halign/segment"
)

// ImportFASTA seeds a freshly created, childless genome (one with no
// alignment to any other genome yet) from a FASTA file: one sequence, one
// top segment spanning its whole length, no bottom segments. This is the
// entry point for turning raw assembly data into the root of an alignment
// tree, before any genome is added as its child (spec §4.8's "genomes can
// be added to a tree one at a time").
func (g *Genome) ImportFASTA(r io.Reader, filters ...fasta.Filter) error {
	records, err := fasta.Read(r, filters...)
	if err != nil {
		return fmt.Errorf("genome: %s: ImportFASTA: %w", g.name, err)
	}

	seqs := make([]SeqInfo, len(records))
	for i, rec := range records {
		seqs[i] = SeqInfo{
			Name:       fastaSequenceName(rec.Description),
			Length:     int64(len(rec.Values)),
			NumTopSegs: 1,
		}
	}

	if err := g.SetDimensions(seqs, true); err != nil {
		return fmt.Errorf("genome: %s: ImportFASTA: %w", g.name, err)
	}

	var offset int64
	for i, rec := range records {
		if err := g.dnaAccess.SetString(offset, string(rec.Values)); err != nil {
			return fmt.Errorf("genome: %s: ImportFASTA: sequence %d: %w", g.name, i, err)
		}
		offset += int64(len(rec.Values))

		if err := g.topArr.Set(i, segment.TopRecord{
			SelfIndex:         int64(i),
			Length:            int64(len(rec.Values)),
			ParentIndex:       segment.NullIndex,
			BottomParseIndex:  segment.NullIndex,
			NextParalogyIndex: segment.NullIndex,
		}); err != nil {
			return fmt.Errorf("genome: %s: ImportFASTA: sequence %d: %w", g.name, i, err)
		}
	}

	return g.FinalizeSegments()
}

// fastaSequenceName takes the first whitespace-delimited token of a FASTA
// description line as the sequence name, matching the convention used by
// samtools faidx and hal2fasta alike.
func fastaSequenceName(description string) string {
	if i := strings.IndexAny(description, " \t"); i >= 0 {
		return description[:i]
	}
	return description
}
