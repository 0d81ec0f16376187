/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package player

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/friendsincode/heimdall_signage/internal/playlist"
)

// WritePlaylist regenerates the ordered playlist file the local player
// consumes: one duration directive plus path per item, -1 meaning "play to
// natural completion". The write is atomic so a restarting player never reads
// a half-written file.
func WritePlaylist(path string, items []playlist.Item) error {
	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	for _, item := range items {
		secs := -1
		if item.Duration > 0 {
			secs = int(item.Duration.Seconds())
		}
		fmt.Fprintf(&b, "#EXTINF:%d,%s\n%s\n", secs, item.Name, item.SourcePath)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".playlist-*")
	if err != nil {
		return fmt.Errorf("create temp playlist: %w", err)
	}
	if _, err := tmp.WriteString(b.String()); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write playlist: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close playlist: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace playlist %s: %w", path, err)
	}
	return nil
}
