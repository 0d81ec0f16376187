/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package catalog

import (
	"context"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultVideoDuration stands in when a video cannot be probed.
const DefaultVideoDuration = 30 * time.Second

// Prober reads media durations via ffprobe, memoized by path and mtime so a
// video is probed once per upload, not once per poll.
type Prober struct {
	bin     string
	timeout time.Duration
	logger  zerolog.Logger

	mu    sync.Mutex
	cache map[string]probeEntry
}

type probeEntry struct {
	mtime    time.Time
	duration time.Duration
}

// NewProber constructs a prober using the given ffprobe binary.
func NewProber(bin string, timeout time.Duration, logger zerolog.Logger) *Prober {
	return &Prober{
		bin:     bin,
		timeout: timeout,
		logger:  logger.With().Str("component", "prober").Logger(),
		cache:   make(map[string]probeEntry),
	}
}

// Duration returns the media duration for path, falling back to
// DefaultVideoDuration when the file cannot be probed.
func (p *Prober) Duration(path string) time.Duration {
	info, err := os.Stat(path)
	if err != nil {
		return DefaultVideoDuration
	}

	p.mu.Lock()
	entry, ok := p.cache[path]
	p.mu.Unlock()
	if ok && entry.mtime.Equal(info.ModTime()) {
		return entry.duration
	}

	duration := p.probe(path)

	p.mu.Lock()
	p.cache[path] = probeEntry{mtime: info.ModTime(), duration: duration}
	p.mu.Unlock()
	return duration
}

func (p *Prober) probe(path string) time.Duration {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.bin,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		p.logger.Debug().Err(err).Str("path", path).Msg("ffprobe failed, using default duration")
		return DefaultVideoDuration
	}

	secs, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil || secs <= 0 {
		p.logger.Debug().Str("path", path).Msg("unparseable ffprobe output, using default duration")
		return DefaultVideoDuration
	}
	return time.Duration(secs * float64(time.Second))
}
