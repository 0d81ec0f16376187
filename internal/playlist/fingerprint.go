/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playlist

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint computes a stable, order-sensitive identity for an item
// sequence. It is reproducible across processes and restarts, so the player
// daemon and the stream server agree on "the content changed" without any
// shared state.
func Fingerprint(items []Item) string {
	digest := xxhash.New()
	for _, item := range items {
		fmt.Fprintf(digest, "%s|%s|%d\n", item.Kind, item.SourcePath, item.Duration)
	}
	return fmt.Sprintf("%016x", digest.Sum64())
}
