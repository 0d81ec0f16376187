/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package player supervises the external fullscreen player process and writes
// the generated playlist file it consumes.
package player

import (
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// State is the lifecycle state of the supervised process.
type State string

const (
	StateNotStarted State = "not_started"
	StateRunning    State = "running"
	StatePaused     State = "paused"
	StateStopping   State = "stopping"
	StateStopped    State = "stopped"
)

// ErrAlreadyRunning is returned by Start while a process is still alive.
var ErrAlreadyRunning = errors.New("player already running")

// Handle owns one external player process. The process is spawned as a
// detached group leader so pause/stop can address the whole group, covering
// any children the player forks.
type Handle struct {
	bin       string
	stopGrace time.Duration
	logger    zerolog.Logger

	mu    sync.Mutex
	cmd   *exec.Cmd
	state State
	done  chan struct{} // closed when the process has exited
}

// NewHandle constructs a handle for the given player binary.
func NewHandle(bin string, stopGrace time.Duration, logger zerolog.Logger) *Handle {
	return &Handle{
		bin:       bin,
		stopGrace: stopGrace,
		logger:    logger.With().Str("component", "player").Logger(),
		state:     StateNotStarted,
	}
}

// Start launches the player with the given arguments. Output is discarded;
// the process is watched by a goroutine so liveness checks never block.
func (h *Handle) Start(args ...string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cmd != nil && h.done != nil {
		select {
		case <-h.done:
			// Previous process has exited, ok to start a new one.
		default:
			return ErrAlreadyRunning
		}
	}

	cmd := exec.Command(h.bin, args...)
	cmd.Stdout = nil
	cmd.Stderr = nil
	detachProcess(cmd)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start player: %w", err)
	}

	h.cmd = cmd
	h.state = StateRunning
	h.done = make(chan struct{})

	h.logger.Info().Int("pid", cmd.Process.Pid).Msg("player started")

	go func(done chan struct{}, c *exec.Cmd) {
		err := c.Wait()
		close(done)
		if err != nil {
			h.logger.Debug().Err(err).Msg("player exited")
		} else {
			h.logger.Info().Msg("player finished cycle")
		}
	}(h.done, cmd)

	return nil
}

// Alive reports whether the process is still running, without blocking. A
// paused process counts as alive.
func (h *Handle) Alive() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cmd == nil || h.done == nil {
		return false
	}
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// State returns the current lifecycle state, reconciling a process that
// exited on its own.
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.done != nil {
		select {
		case <-h.done:
			if h.state == StateRunning || h.state == StatePaused {
				h.state = StateStopped
			}
		default:
		}
	}
	return h.state
}

// Pause suspends the running process group in place.
func (h *Handle) Pause() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.aliveLocked() {
		return nil
	}
	if err := suspendGroup(h.cmd.Process.Pid); err != nil {
		return fmt.Errorf("pause player: %w", err)
	}
	h.state = StatePaused
	h.logger.Info().Msg("player paused")
	return nil
}

// Resume continues a suspended process group.
func (h *Handle) Resume() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.aliveLocked() {
		return nil
	}
	if err := resumeGroup(h.cmd.Process.Pid); err != nil {
		return fmt.Errorf("resume player: %w", err)
	}
	h.state = StateRunning
	h.logger.Info().Msg("player resumed")
	return nil
}

// Stop terminates the process group: graceful terminate, bounded grace period
// polling for exit, then force kill. Safe to call when nothing is running.
func (h *Handle) Stop() error {
	h.mu.Lock()
	cmd := h.cmd
	done := h.done
	if cmd == nil || done == nil {
		h.mu.Unlock()
		return nil
	}
	select {
	case <-done:
		h.state = StateStopped
		h.mu.Unlock()
		return nil
	default:
	}
	h.state = StateStopping
	pid := cmd.Process.Pid
	h.mu.Unlock()

	// A paused group never handles SIGTERM; wake it first.
	_ = resumeGroup(pid)
	_ = terminateGroup(pid)

	select {
	case <-done:
	case <-time.After(h.stopGrace):
		_ = killGroup(pid)
		<-done
	}

	h.mu.Lock()
	h.state = StateStopped
	h.cmd = nil
	h.done = nil
	h.mu.Unlock()

	h.logger.Info().Int("pid", pid).Msg("player stopped")
	return nil
}

func (h *Handle) aliveLocked() bool {
	if h.cmd == nil || h.done == nil {
		return false
	}
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}
