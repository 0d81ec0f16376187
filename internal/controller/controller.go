/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package controller drives unattended playback on the local display: it
// re-resolves content on a coarse timer, supervises the player process
// through content changes without interrupting an in-progress cycle, and
// applies operator commands from the mailbox.
package controller

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/heimdall_signage/internal/config"
	"github.com/friendsincode/heimdall_signage/internal/events"
	"github.com/friendsincode/heimdall_signage/internal/mailbox"
	"github.com/friendsincode/heimdall_signage/internal/playlist"
	"github.com/friendsincode/heimdall_signage/internal/player"
	"github.com/friendsincode/heimdall_signage/internal/telemetry"
)

// Controller owns the playback session for the local display.
type Controller struct {
	cfg      *config.Config
	resolver *playlist.Resolver
	mailbox  *mailbox.Consumer
	handle   *player.Handle
	bus      *events.Bus
	logger   zerolog.Logger

	// Session state; the loop is single-goroutine so no locking is needed.
	fingerprint   string
	current       []playlist.Item
	pendingChange bool
}

// New constructs a controller.
func New(cfg *config.Config, resolver *playlist.Resolver, box *mailbox.Consumer, handle *player.Handle, bus *events.Bus, logger zerolog.Logger) *Controller {
	return &Controller{
		cfg:      cfg,
		resolver: resolver,
		mailbox:  box,
		handle:   handle,
		bus:      bus,
		logger:   logger.With().Str("component", "controller").Logger(),
	}
}

// Run executes the control loop until context cancellation: one coarse
// resolution pass per check interval, subdivided into one-second ticks that
// drain the mailbox so commands stay responsive mid-cycle.
func (c *Controller) Run(ctx context.Context) error {
	c.logger.Info().
		Str("videos", c.cfg.VideosDir).
		Str("presentations", c.cfg.PresentationsDir).
		Dur("check_interval", c.cfg.CheckInterval).
		Msg("playback controller started")

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	c.tick()
	elapsed := time.Duration(0)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info().Msg("playback controller stopping")
			if err := c.handle.Stop(); err != nil {
				c.logger.Warn().Err(err).Msg("player stop failed during shutdown")
			}
			return ctx.Err()
		case <-ticker.C:
			c.drainMailbox()
			elapsed += time.Second
			if elapsed >= c.cfg.CheckInterval {
				elapsed = 0
				c.tick()
			}
		}
	}
}

// tick performs one resolution pass and reconciles the player against it.
func (c *Controller) tick() {
	items, orphaned, err := c.resolver.Resolve()
	if err != nil {
		c.logger.Error().Err(err).Msg("content resolution failed")
		return
	}
	if len(orphaned) > 0 {
		if err := c.resolver.PruneOrdering(orphaned); err != nil {
			// Continue in memory; the persisted side effect is retried next pass.
			c.logger.Warn().Err(err).Msg("could not persist pruned ordering")
		} else {
			c.bus.Publish(events.EventOrderingPruned, events.Payload{"names": orphaned})
		}
	}

	if len(items) == 0 {
		if c.handle.Alive() {
			c.logger.Warn().Msg("no playable content, stopping player")
			if err := c.handle.Stop(); err != nil {
				c.logger.Warn().Err(err).Msg("player stop failed")
			}
			c.bus.Publish(events.EventPlayerStopped, events.Payload{"reason": "empty_catalog"})
		}
		c.fingerprint = ""
		c.current = nil
		c.pendingChange = false
		return
	}

	fp := playlist.Fingerprint(items)
	switch {
	case fp != c.fingerprint:
		if c.handle.Alive() {
			if !c.pendingChange {
				c.logger.Info().Int("items", len(items)).Msg("changes detected, applying after current cycle")
				c.pendingChange = true
			}
			return
		}
		c.apply(items, fp)
	case !c.handle.Alive():
		// End of cycle (or an unexpected exit, indistinguishable by design):
		// apply the latest set, consuming any pending change.
		if c.pendingChange {
			c.logger.Info().Int("items", len(items)).Msg("applying deferred changes")
		} else {
			c.logger.Debug().Msg("restarting playlist cycle")
		}
		c.apply(items, fp)
	}
}

// apply writes the playlist file and (re)starts the player against it.
// Session state only advances when both steps succeed, so failures are
// retried on the next pass.
func (c *Controller) apply(items []playlist.Item, fp string) {
	if err := player.WritePlaylist(c.cfg.PlaylistM3U, items); err != nil {
		c.logger.Error().Err(err).Msg("could not write player playlist")
		return
	}
	if err := c.handle.Start(c.playerArgs()...); err != nil {
		c.logger.Error().Err(err).Msg("could not start player")
		return
	}
	c.fingerprint = fp
	c.current = items
	c.pendingChange = false
	telemetry.PlayerStartsTotal.Inc()
	c.bus.Publish(events.EventPlayerStarted, events.Payload{
		"fingerprint": fp,
		"items":       len(items),
	})
}

func (c *Controller) playerArgs() []string {
	args := append([]string(nil), c.cfg.PlayerArgs...)
	args = append(args, "--image-duration", strconv.Itoa(int(c.cfg.SlideDuration.Seconds())), c.cfg.PlaylistM3U)
	return args
}

// drainMailbox consumes at most one pending command per tick. The command is
// removed from the mailbox the moment it is read, regardless of outcome.
func (c *Controller) drainMailbox() {
	msg, err := c.mailbox.Take()
	if err != nil {
		c.logger.Warn().Err(err).Msg("mailbox read failed")
		return
	}
	if msg == nil {
		return
	}
	c.logger.Info().Str("action", msg.Action).Msg("received command")
	telemetry.CommandsTotal.WithLabelValues(msg.Action).Inc()
	c.bus.Publish(events.EventCommandReceived, events.Payload{"action": msg.Action})
	c.handleCommand(msg.Action)
}

func (c *Controller) handleCommand(action string) {
	switch action {
	case mailbox.ActionPause:
		if err := c.handle.Pause(); err != nil {
			c.logger.Warn().Err(err).Msg("pause failed")
		}
	case mailbox.ActionPlay:
		if err := c.handle.Resume(); err != nil {
			c.logger.Warn().Err(err).Msg("resume failed")
		}
	case mailbox.ActionNext, mailbox.ActionPrev:
		c.rotate(action)
	}
}

// rotate moves the current set by one position and forces an immediate
// restart against the rotated sequence, regardless of any pending change.
func (c *Controller) rotate(action string) {
	items := c.current
	if len(items) == 0 {
		resolved, _, err := c.resolver.Resolve()
		if err != nil || len(resolved) == 0 {
			return
		}
		items = resolved
	}

	rotated := make([]playlist.Item, 0, len(items))
	if action == mailbox.ActionNext {
		rotated = append(rotated, items[1:]...)
		rotated = append(rotated, items[0])
	} else {
		rotated = append(rotated, items[len(items)-1])
		rotated = append(rotated, items[:len(items)-1]...)
	}

	if err := c.handle.Stop(); err != nil {
		c.logger.Warn().Err(err).Msg("stop before rotation failed")
	}
	c.apply(rotated, playlist.Fingerprint(rotated))
	c.logger.Info().Str("action", action).Msg("rotation applied")
}
