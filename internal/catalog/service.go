/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package catalog maintains the stream server's view of the resolved content
// sequence: a TTL/mtime-invalidated cache of the catalog and the shared time
// origin that lets stateless polling displays agree on playback position.
package catalog

import (
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/heimdall_signage/internal/events"
	"github.com/friendsincode/heimdall_signage/internal/playlist"
	"github.com/friendsincode/heimdall_signage/internal/telemetry"
)

// Clock supplies the current time; injected for tests.
type Clock func() time.Time

// contentResolver is the slice of the resolver the catalog needs.
type contentResolver interface {
	Resolve() (items []playlist.Item, orphaned []string, err error)
	OrderingFile() string
}

// Service is the stateful catalog cache. Resolution is expensive relative to
// per-display poll frequency, so results are cached under a TTL and
// invalidated early when the ordering file's mtime changes. Reads under
// contention may recompute redundantly; recomputation is idempotent and the
// cached snapshot is always wholly replaced, never mutated in place.
type Service struct {
	resolver contentResolver
	prober   *Prober
	ttl      time.Duration
	now      Clock
	bus      *events.Bus
	logger   zerolog.Logger

	mu            sync.Mutex
	loaded        bool // a resolution pass has completed; an empty catalog still counts
	items         []playlist.Item
	fingerprint   string
	fetchedAt     time.Time
	orderingMTime time.Time

	syncMu          sync.Mutex
	syncFingerprint string
	cycleStart      time.Time
}

// New constructs the catalog service.
func New(resolver contentResolver, prober *Prober, ttl time.Duration, now Clock, bus *events.Bus, logger zerolog.Logger) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		resolver: resolver,
		prober:   prober,
		ttl:      ttl,
		now:      now,
		bus:      bus,
		logger:   logger.With().Str("component", "catalog").Logger(),
	}
}

// Snapshot returns the cached catalog and its fingerprint, rebuilding when
// the TTL has lapsed or the ordering file changed on disk.
func (s *Service) Snapshot() ([]playlist.Item, string) {
	now := s.now()
	mtime := s.orderingModTime()

	s.mu.Lock()
	fresh := s.loaded && now.Sub(s.fetchedAt) <= s.ttl && mtime.Equal(s.orderingMTime)
	if fresh {
		items, fp := s.items, s.fingerprint
		s.mu.Unlock()
		return items, fp
	}
	s.mu.Unlock()

	// Rebuild outside the lock; a concurrent reader may duplicate this work,
	// which is accepted in exchange for never blocking polls on resolution.
	items, orphaned, err := s.resolver.Resolve()
	if err != nil {
		// Keep serving the previous snapshot; the failed pass still stamps the
		// TTL so resolution is retried on the next cycle, not every poll.
		s.logger.Error().Err(err).Msg("catalog resolution failed")
		s.mu.Lock()
		s.loaded = true
		s.fetchedAt = now
		s.orderingMTime = mtime
		items, fp := s.items, s.fingerprint
		s.mu.Unlock()
		return items, fp
	}
	if len(orphaned) > 0 {
		// The playback controller owns ordering auto-heal; the server only reports.
		s.logger.Warn().Strs("names", orphaned).Msg("ordering references missing files")
	}
	fp := playlist.Fingerprint(items)

	s.mu.Lock()
	s.loaded = true
	s.items = items
	s.fingerprint = fp
	s.fetchedAt = now
	s.orderingMTime = mtime
	s.mu.Unlock()

	telemetry.CatalogRebuildsTotal.Inc()
	s.logger.Debug().Str("fingerprint", fp).Int("items", len(items)).Msg("catalog cache refreshed")
	return items, fp
}

// SyncState is the shared time origin returned to displays.
type SyncState struct {
	Items       []playlist.Item
	Fingerprint string
	ServerTime  time.Time
	CycleStart  time.Time
	Index       int
	Offset      time.Duration
}

// Sync returns the catalog with concrete durations plus the computed
// "where should a display be right now" answer. The cycle start resets
// exactly when the fingerprint changes, giving every poller the same origin.
func (s *Service) Sync() SyncState {
	items, _ := s.Snapshot()
	resolved := s.withDurations(items)
	fp := playlist.Fingerprint(resolved)
	now := s.now()

	s.syncMu.Lock()
	if fp != s.syncFingerprint {
		s.syncFingerprint = fp
		s.cycleStart = now
		s.syncMu.Unlock()
		s.logger.Info().Str("fingerprint", fp).Int("items", len(resolved)).Msg("catalog changed, resetting cycle origin")
		s.bus.Publish(events.EventCatalogUpdated, events.Payload{"fingerprint": fp, "items": len(resolved)})
		s.syncMu.Lock()
	}
	cycleStart := s.cycleStart
	s.syncMu.Unlock()

	index, offset := PositionAt(resolved, now.Sub(cycleStart))
	return SyncState{
		Items:       resolved,
		Fingerprint: fp,
		ServerTime:  now,
		CycleStart:  cycleStart,
		Index:       index,
		Offset:      offset,
	}
}

// withDurations replaces the full-play sentinel on videos with a concrete
// probed duration so elapsed-time arithmetic works.
func (s *Service) withDurations(items []playlist.Item) []playlist.Item {
	resolved := make([]playlist.Item, len(items))
	copy(resolved, items)
	for i := range resolved {
		if resolved[i].Kind == playlist.KindVideo {
			resolved[i].Duration = s.prober.Duration(resolved[i].SourcePath)
		}
	}
	return resolved
}

func (s *Service) orderingModTime() time.Time {
	info, err := os.Stat(s.resolver.OrderingFile())
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}
