/* SPDX-License-Identifier: MPL-2.0
 *
 * Zymatik HAlign - A Hierarchical Genome Alignment library for Go.
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>
 */

// Package bulkio implements the progress-reported bulk segment rewrites
// that back Alignment.AddChild and Alignment.RemoveGenome when they change
// a parent genome's child-slot count: each of those is, at the storage
// layer, "read every
// record of an array, transform it, write it to a freshly allocated
// array of a new shape." This is grounded on the bulk chain-file import
// path in the teacher repository, which reports progress over a similarly
// large sequential rewrite.
package bulkio

import (
	"fmt"

	"github.com/cheggaaa/pb/v3"
	"github.com/zymatik-com/halign/container"
	"github.com/zymatik-com/halign/segment"
)

// RewriteBottomArray copies every record from src into a freshly created
// array at dstPath with a (possibly different) child-slot count, applying
// transform to each record first. Used when a child genome is added or
// removed: every bottom record in the parent must be rewritten with one
// more or one fewer child slot.
func RewriteBottomArray(
	dstPath string,
	backend container.Backend,
	src *container.Array[segment.BottomRecord],
	newNumChildren int,
	chunkElems, winChunks int,
	transform func(segment.BottomRecord) segment.BottomRecord,
	showProgress bool,
) (*container.Array[segment.BottomRecord], error) {
	n := src.Len()

	dst, err := container.Create[segment.BottomRecord](dstPath, backend, segment.BottomCodec{NumChildren: newNumChildren}, n, chunkElems, winChunks)
	if err != nil {
		return nil, fmt.Errorf("bulkio: create %s: %w", dstPath, err)
	}

	var bar *pb.ProgressBar
	if showProgress {
		bar = pb.StartNew(n)
		defer bar.Finish()
	}

	for i := 0; i < n; i++ {
		rec, err := src.Get(i)
		if err != nil {
			return nil, fmt.Errorf("bulkio: read record %d: %w", i, err)
		}

		if err := dst.Set(i, transform(rec)); err != nil {
			return nil, fmt.Errorf("bulkio: write record %d: %w", i, err)
		}

		if bar != nil {
			bar.Increment()
		}
	}

	if err := dst.Flush(); err != nil {
		return nil, fmt.Errorf("bulkio: flush %s: %w", dstPath, err)
	}

	return dst, nil
}

// DropChildSlot returns a transform for RewriteBottomArray that removes
// slot from every record's child-index/child-reversed columns.
func DropChildSlot(slot int) func(segment.BottomRecord) segment.BottomRecord {
	return func(rec segment.BottomRecord) segment.BottomRecord {
		out := rec
		out.ChildIndex = append(append([]int64{}, rec.ChildIndex[:slot]...), rec.ChildIndex[slot+1:]...)
		out.ChildReversed = append(append([]bool{}, rec.ChildReversed[:slot]...), rec.ChildReversed[slot+1:]...)
		return out
	}
}
