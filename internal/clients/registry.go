/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package clients tracks which display devices are actively polling. The
// protocol is stateless, so liveness is inferred from recency of contact.
package clients

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Clock supplies the current time; injected for tests.
type Clock func() time.Time

// Registry records last-contact times per client address.
type Registry struct {
	ttl    time.Duration
	now    Clock
	logger zerolog.Logger

	mu   sync.Mutex
	seen map[string]time.Time
}

// NewRegistry constructs a registry that considers a client active while its
// last contact is within ttl.
func NewRegistry(ttl time.Duration, now Clock, logger zerolog.Logger) *Registry {
	if now == nil {
		now = time.Now
	}
	return &Registry{
		ttl:    ttl,
		now:    now,
		logger: logger.With().Str("component", "clients").Logger(),
		seen:   make(map[string]time.Time),
	}
}

// Track records contact from addr.
func (r *Registry) Track(addr string) {
	if addr == "" {
		return
	}
	now := r.now()

	r.mu.Lock()
	_, known := r.seen[addr]
	r.seen[addr] = now
	r.mu.Unlock()

	if !known {
		r.logger.Info().Str("addr", addr).Msg("display connected")
	}
}

// ActiveCount returns the number of clients seen within the TTL, pruning
// expired entries as a side effect.
func (r *Registry) ActiveCount() int {
	cutoff := r.now().Add(-r.ttl)

	r.mu.Lock()
	defer r.mu.Unlock()
	for addr, last := range r.seen {
		if last.Before(cutoff) {
			delete(r.seen, addr)
			r.logger.Info().Str("addr", addr).Msg("display timed out")
		}
	}
	return len(r.seen)
}
