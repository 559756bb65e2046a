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

package container

import (
	"bytes"
	"fmt"
	"io"

	"github.com/zymatik-com/halign/compress"
)

// Codec identifies the compression algorithm used for a chunk of a
// Compressed-backend Array. Each chunk is compressed independently, so
// random access never requires decompressing its neighbours.
type Codec int

const (
	// CodecNone stores chunks uncompressed.
	CodecNone Codec = iota
	// CodecGzip compresses chunks with pgzip (parallel gzip).
	CodecGzip
	// CodecZstd compresses chunks with zstd, the default: good ratio at
	// low latency for the small-to-medium chunk sizes typical of segment
	// and DNA arrays.
	CodecZstd
	// CodecLZ4 compresses chunks with lz4, favouring decompression speed
	// over ratio.
	CodecLZ4
	// CodecXZ compresses chunks with xz, favouring ratio over speed.
	CodecXZ
)

func (c Codec) String() string {
	switch c {
	case CodecNone:
		return "none"
	case CodecGzip:
		return "gzip"
	case CodecZstd:
		return "zstd"
	case CodecLZ4:
		return "lz4"
	case CodecXZ:
		return "xz"
	default:
		return "unknown"
	}
}

// chunkStreamName returns a synthetic file name whose extension steers
// compress.Compress's auto-detection-by-suffix to the given codec; chunks
// are never actually written to a path with this name, only fed through
// the same suffix switch the teacher's compress package uses for real
// files.
func chunkStreamName(codec Codec) (string, error) {
	switch codec {
	case CodecGzip:
		return "chunk.gz", nil
	case CodecZstd:
		return "chunk.zst", nil
	case CodecLZ4:
		return "chunk.lz4", nil
	case CodecXZ:
		return "chunk.xz", nil
	default:
		return "", fmt.Errorf("container: unknown codec %d", codec)
	}
}

// compressChunk compresses data with the given codec, via the compress
// package's auto-detecting writer (spec: each chunk of a Compressed-backend
// Array is an independently compressed stream, so random access never
// requires decompressing its neighbours).
func compressChunk(codec Codec, data []byte) ([]byte, error) {
	if codec == CodecNone {
		return data, nil
	}

	name, err := chunkStreamName(codec)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w, err := compress.Compress(name, &buf)
	if err != nil {
		return nil, fmt.Errorf("container: could not create %s writer: %w", codec, err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("container: could not compress chunk: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("container: could not finalize %s stream: %w", codec, err)
	}

	return buf.Bytes(), nil
}

// decompressChunk decompresses data that was compressed with the given
// codec, into a buffer of exactly wantLen bytes. Decompression itself
// doesn't need the codec: compress.Decompress auto-detects it from the
// stream's magic bytes, the same way it would for a file read off disk.
func decompressChunk(codec Codec, data []byte, wantLen int) ([]byte, error) {
	if codec == CodecNone {
		out := make([]byte, wantLen)
		copy(out, data)
		return out, nil
	}

	r, err := compress.Decompress(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("container: could not create %s reader: %w", codec, err)
	}
	defer r.Close()

	out := make([]byte, wantLen)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, fmt.Errorf("container: could not decompress chunk: %w", err)
	}

	return out, nil
}
