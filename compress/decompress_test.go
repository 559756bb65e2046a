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

package compress_test

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zymatik-com/halign/compress"
)

func TestAutoDecompressingReadCloser(t *testing.T) {
	const want = "Hello, World!\n"

	names := []string{"test.gz", "test.lz4", "test.xz", "test.zst", "test.txt"}

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			if strings.HasSuffix(name, ".txt") {
				buf.WriteString(want)
			} else {
				w, err := compress.Compress(name, &buf)
				require.NoError(t, err)
				_, err = io.WriteString(w, want)
				require.NoError(t, err)
				require.NoError(t, w.Close())
			}

			dr, err := compress.Decompress(&buf)
			require.NoError(t, err)

			got, err := io.ReadAll(dr)
			require.NoError(t, err)
			assert.Equal(t, want, string(got))

			require.NoError(t, dr.Close())
		})
	}
}
