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

import "github.com/zymatik-com/halign/halerr"

var (
	errOutOfRangeStore   = halerr.ErrOutOfRange
	errInconsistentStore = halerr.ErrInconsistent
)
