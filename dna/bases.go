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

// Package dna provides buffered random-access reads and writes over packed
// DNA (two bases per byte, low nibble then high nibble, spec §6), plus a
// DNA iterator that complements bases on read when walking the reverse
// strand.
package dna

import (
	"fmt"

	"github.com/zymatik-com/halign/halerr"
)

// nibble values, matching spec §6's "DNA encoding" table. N is a distinct
// nibble value, not a don't-care.
const (
	nibbleA byte = 0
	nibbleC byte = 1
	nibbleG byte = 2
	nibbleT byte = 3
	nibbleN byte = 4
)

var nibbleToBase = [16]byte{
	nibbleA: 'A',
	nibbleC: 'C',
	nibbleG: 'G',
	nibbleT: 'T',
	nibbleN: 'N',
}

var complementBase = map[byte]byte{
	'A': 'T', 'C': 'G', 'G': 'C', 'T': 'A', 'N': 'N',
}

func baseToNibble(c byte) (byte, error) {
	switch c {
	case 'A', 'a':
		return nibbleA, nil
	case 'C', 'c':
		return nibbleC, nil
	case 'G', 'g':
		return nibbleG, nil
	case 'T', 't':
		return nibbleT, nil
	case 'N', 'n':
		return nibbleN, nil
	default:
		return 0, fmt.Errorf("dna: invalid base %q: %w", c, halerr.ErrInvalidArgument)
	}
}

// Complement returns the Watson-Crick complement of an upper-case base.
func Complement(c byte) byte {
	if comp, ok := complementBase[c]; ok {
		return comp
	}
	return c
}

// ReverseComplement returns the reverse complement of s.
func ReverseComplement(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		out[len(s)-1-i] = Complement(s[i])
	}
	return string(out)
}
