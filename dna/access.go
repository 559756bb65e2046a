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

package dna

import (
	"fmt"

	"github.com/zymatik-com/halign/container"
	"github.com/zymatik-com/halign/halerr"
)

type byteCodec struct{}

func (byteCodec) Size() int                  { return 1 }
func (byteCodec) Encode(v byte, buf []byte)  { buf[0] = v }
func (byteCodec) Decode(buf []byte) byte     { return buf[0] }

// Access is a buffered, random-access window over one genome's packed DNA.
// It satisfies spec §4.2: getBase/setBase are amortized O(1) thanks to the
// underlying container.Array's resident chunk window, and Flush must be
// called before Close or Close reports ErrDirty.
type Access struct {
	bytes  *container.Array[byte]
	length int64
	dirty  bool
	closed bool
}

// Create allocates a new DNA access window for a genome of the given base
// length. chunkBases and winChunks describe the underlying container.Array
// page geometry in bases (rounded up to whole bytes); spec §4.8 recommends
// scaling the DNA chunk size up (10x by default) relative to the segment
// chunk size, since DNA records are far smaller per element.
func Create(path string, backend container.Backend, length int64, chunkBases, winChunks int, opts ...container.Option) (*Access, error) {
	numBytes := int((length + 1) / 2)
	chunkBytes := (chunkBases + 1) / 2
	if chunkBytes < 1 {
		chunkBytes = 1
	}

	arr, err := container.Create[byte](path, backend, byteCodec{}, numBytes, chunkBytes, winChunks, opts...)
	if err != nil {
		return nil, err
	}

	return &Access{bytes: arr, length: length}, nil
}

// Load attaches to an existing DNA access window.
func Load(path string, backend container.Backend, length int64, chunkBases, winChunks int, opts ...container.Option) (*Access, error) {
	numBytes := int((length + 1) / 2)
	chunkBytes := (chunkBases + 1) / 2
	if chunkBytes < 1 {
		chunkBytes = 1
	}

	arr, err := container.Load[byte](path, backend, byteCodec{}, numBytes, chunkBytes, winChunks, opts...)
	if err != nil {
		return nil, err
	}

	return &Access{bytes: arr, length: length}, nil
}

// Len returns the number of bases.
func (a *Access) Len() int64 {
	return a.length
}

// Remainder reports whether the final nibble of the packed array is unused
// (true exactly when Len is odd), matching the per-genome remainder byte
// in spec §6.
func (a *Access) Remainder() bool {
	return a.length%2 == 1
}

func (a *Access) checkRange(i int64) error {
	if i < 0 || i >= a.length {
		return fmt.Errorf("dna: position %d out of range [0,%d): %w", i, a.length, halerr.ErrOutOfRange)
	}
	return nil
}

// GetBase returns the upper-case base at position i.
func (a *Access) GetBase(i int64) (byte, error) {
	if err := a.checkRange(i); err != nil {
		return 0, err
	}

	b, err := a.bytes.Get(int(i / 2))
	if err != nil {
		return 0, err
	}

	var nib byte
	if i%2 == 0 {
		nib = b & 0x0F
	} else {
		nib = (b >> 4) & 0x0F
	}

	return nibbleToBase[nib], nil
}

// SetBase writes the base at position i. The base is validated against
// {A,C,G,T,N} case-insensitively and stored upper-case.
func (a *Access) SetBase(i int64, c byte) error {
	if err := a.checkRange(i); err != nil {
		return err
	}

	nib, err := baseToNibble(c)
	if err != nil {
		return err
	}

	err = a.bytes.Update(int(i/2), func(b byte) byte {
		if i%2 == 0 {
			return (b & 0xF0) | nib
		}
		return (b & 0x0F) | (nib << 4)
	})
	if err != nil {
		return err
	}

	a.dirty = true

	return nil
}

// GetString returns the bases in [start, start+length).
func (a *Access) GetString(start, length int64) (string, error) {
	if length < 0 || start < 0 || start+length > a.length {
		return "", fmt.Errorf("dna: range [%d,%d) out of bounds: %w", start, start+length, halerr.ErrOutOfRange)
	}

	out := make([]byte, length)
	for i := int64(0); i < length; i++ {
		b, err := a.GetBase(start + i)
		if err != nil {
			return "", err
		}
		out[i] = b
	}

	return string(out), nil
}

// SetString overwrites [start, start+len(s)) with s. Testable property 5
// (DNA round-trip) requires SetString(s); GetString() == s for strings
// matching [ACGTNacgtn]*.
func (a *Access) SetString(start int64, s string) error {
	if start < 0 || start+int64(len(s)) > a.length {
		return fmt.Errorf("dna: range [%d,%d) out of bounds: %w", start, start+int64(len(s)), halerr.ErrOutOfRange)
	}

	for i, c := range []byte(s) {
		if err := a.SetBase(start+int64(i), c); err != nil {
			return err
		}
	}

	return nil
}

// Flush writes back any buffered writes.
func (a *Access) Flush() error {
	if err := a.bytes.Flush(); err != nil {
		return err
	}

	a.dirty = false

	return nil
}

// Close requires a prior Flush if there are unwritten changes: per spec
// §4.2 "flush() required before destruction; destructor fails loudly if
// dirty", Close returns halerr.ErrDirty rather than silently dropping
// writes.
func (a *Access) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true

	if a.dirty {
		return fmt.Errorf("dna: access closed with unflushed writes: %w", halerr.ErrDirty)
	}

	return a.bytes.Close()
}
