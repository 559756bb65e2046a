/* SPDX-License-Identifier: MPL-2.0
 *
 * Zymatik HAlign - A Hierarchical Genome Alignment library for Go.
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the Mozilla Public License v2.0.
 *
 * You should have received a copy of the Mozilla Public License v2.0
 * along with this program. If not, see <https://mozilla.org/MPL/2.0/>.
 */

// Package container implements the "chunked typed array" storage contract
// that the rest of this module treats as an abstract, pluggable backend: a
// fixed-length sequence of fixed-size records, held on disk as either a
// memory-mapped arena or a sequence of independently compressed chunks, with
// a single buffered chunk-range resident in memory at a time.
package container

import (
	"fmt"
	"log/slog"

	"github.com/zymatik-com/halign/halerr"
)

// RecordCodec converts a fixed-size record of type T to and from its
// on-disk byte representation. Implementations must be side-effect free and
// always produce/consume exactly Size() bytes.
type RecordCodec[T any] interface {
	Size() int
	Encode(v T, buf []byte)
	Decode(buf []byte) T
}

// Array is a paged, typed, fixed-length on-disk array with a write-back
// buffer, implementing spec §4.1's Chunked Array contract.
type Array[T any] struct {
	codec      RecordCodec[T]
	store      chunkStore
	logger     *slog.Logger
	count      int
	elemSize   int
	chunkElems int // elements per on-disk chunk
	winChunks  int // number of chunks held in the resident window

	bufStart, bufEnd int // resident element range [bufStart, bufEnd)
	buf              []byte
	dirty            bool
}

// Create allocates a new on-disk Array of count elements, backed by
// backend, with chunkElems elements per chunk and a resident window of
// winChunks chunks.
func Create[T any](path string, backend Backend, codec RecordCodec[T], count, chunkElems, winChunks int, opts ...Option) (*Array[T], error) {
	cfg := newConfig(opts)

	elemSize := codec.Size()
	chunkBytes := chunkElems * elemSize
	numChunks := (count + chunkElems - 1) / chunkElems
	if numChunks == 0 {
		numChunks = 1
	}

	var store chunkStore
	var err error
	switch backend {
	case BackendMmap:
		store, err = createMmapStore(path, numChunks, chunkBytes)
	case BackendCompressed:
		store, err = createCompressedStore(path, cfg.codec, numChunks, chunkBytes)
	default:
		return nil, fmt.Errorf("container: unknown backend %d", backend)
	}
	if err != nil {
		return nil, err
	}

	return &Array[T]{
		codec:      codec,
		store:      store,
		logger:     cfg.logger,
		count:      count,
		elemSize:   elemSize,
		chunkElems: chunkElems,
		winChunks:  winChunks,
	}, nil
}

// Load attaches to an existing on-disk Array.
func Load[T any](path string, backend Backend, codec RecordCodec[T], count, chunkElems, winChunks int, opts ...Option) (*Array[T], error) {
	cfg := newConfig(opts)

	elemSize := codec.Size()
	chunkBytes := chunkElems * elemSize

	var store chunkStore
	var err error
	switch backend {
	case BackendMmap:
		store, err = loadMmapStore(path, chunkBytes)
	case BackendCompressed:
		store, err = loadCompressedStore(path)
	default:
		return nil, fmt.Errorf("container: unknown backend %d", backend)
	}
	if err != nil {
		return nil, err
	}

	return &Array[T]{
		codec:      codec,
		store:      store,
		logger:     cfg.logger,
		count:      count,
		elemSize:   elemSize,
		chunkElems: chunkElems,
		winChunks:  winChunks,
	}, nil
}

// Len returns the number of elements in the array.
func (a *Array[T]) Len() int {
	return a.count
}

func (a *Array[T]) resident(i int) bool {
	return a.buf != nil && i >= a.bufStart && i < a.bufEnd
}

// page loads the chunk-aligned window containing element i, flushing the
// previously resident window first if it is dirty. At most one window is
// resident at a time: this is the Chunked Array's whole contract.
func (a *Array[T]) page(i int) error {
	if a.resident(i) {
		return nil
	}

	if err := a.flushWindow(); err != nil {
		return err
	}

	chunkIdx := i / a.chunkElems
	winStartChunk := (chunkIdx / a.winChunks) * a.winChunks
	start := winStartChunk * a.chunkElems
	end := start + a.winChunks*a.chunkElems
	if end > a.count {
		end = a.count
	}

	chunkBytes := a.chunkElems * a.elemSize
	buf := make([]byte, 0, a.winChunks*chunkBytes)
	for c := winStartChunk; c < winStartChunk+a.winChunks; c++ {
		chunkStart := c * a.chunkElems
		if chunkStart >= a.count {
			break
		}
		data, err := a.store.ReadChunk(c)
		if err != nil {
			return err
		}
		buf = append(buf, data...)
	}

	a.buf = buf
	a.bufStart = start
	a.bufEnd = end
	a.dirty = false

	return nil
}

func (a *Array[T]) flushWindow() error {
	if a.buf == nil || !a.dirty {
		return nil
	}

	chunkBytes := a.chunkElems * a.elemSize
	firstChunk := a.bufStart / a.chunkElems

	for off := 0; off < len(a.buf); off += chunkBytes {
		end := off + chunkBytes
		data := a.buf[off:min(end, len(a.buf))]
		if len(data) < chunkBytes {
			padded := make([]byte, chunkBytes)
			copy(padded, data)
			data = padded
		}
		if err := a.store.WriteChunk(firstChunk+off/chunkBytes, data); err != nil {
			return err
		}
	}

	a.dirty = false

	return nil
}

func (a *Array[T]) recordOffset(i int) int {
	return (i - a.bufStart) * a.elemSize
}

// Get returns the element at index i.
func (a *Array[T]) Get(i int) (T, error) {
	var zero T
	if i < 0 || i >= a.count {
		return zero, fmt.Errorf("container: index %d out of range [0,%d): %w", i, a.count, halerr.ErrOutOfRange)
	}

	if err := a.page(i); err != nil {
		return zero, err
	}

	off := a.recordOffset(i)

	return a.codec.Decode(a.buf[off : off+a.elemSize]), nil
}

// Update applies mutate to the element at index i and writes the result
// back into the resident buffer, marking it dirty.
func (a *Array[T]) Update(i int, mutate func(T) T) error {
	if i < 0 || i >= a.count {
		return fmt.Errorf("container: index %d out of range [0,%d): %w", i, a.count, halerr.ErrOutOfRange)
	}

	if err := a.page(i); err != nil {
		return err
	}

	off := a.recordOffset(i)
	v := a.codec.Decode(a.buf[off : off+a.elemSize])
	v = mutate(v)
	a.codec.Encode(v, a.buf[off:off+a.elemSize])
	a.dirty = true

	return nil
}

// Set overwrites the element at index i.
func (a *Array[T]) Set(i int, v T) error {
	return a.Update(i, func(T) T { return v })
}

// Flush writes back the resident window if dirty.
func (a *Array[T]) Flush() error {
	if err := a.flushWindow(); err != nil {
		return err
	}

	return a.store.Sync()
}

// Close flushes and releases the underlying store. Any error during flush
// is logged (matching the scoped-diagnostic-guard design note: callers are
// expected to Flush explicitly and check the error; Close is a best-effort
// backstop).
func (a *Array[T]) Close() error {
	if err := a.Flush(); err != nil {
		a.logger.Warn("container: flush failed during close", "error", err)
	}

	return a.store.Close()
}
