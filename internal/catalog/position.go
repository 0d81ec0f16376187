/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package catalog

import (
	"time"

	"github.com/friendsincode/heimdall_signage/internal/playlist"
)

// PositionAt maps elapsed wall-clock time onto the repeating item sequence:
// the cycle wraps by modulo, and the first item whose cumulative upper bound
// exceeds the wrapped position is current. Items must carry concrete
// durations; a zero-length cycle answers (0, 0).
func PositionAt(items []playlist.Item, elapsed time.Duration) (index int, offset time.Duration) {
	var total time.Duration
	for _, item := range items {
		if item.Duration > 0 {
			total += item.Duration
		}
	}
	if total == 0 {
		return 0, 0
	}

	pos := elapsed % total
	if pos < 0 {
		pos += total
	}

	var cumulative time.Duration
	for i, item := range items {
		d := item.Duration
		if d < 0 {
			d = 0
		}
		if cumulative+d > pos {
			return i, pos - cumulative
		}
		cumulative += d
	}
	return 0, 0
}
