/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package mailbox implements single-slot, file-backed message passing between
// the administrative layer and the core processes. Two named channels exist
// with distinct consumption contracts: the local controller deletes a command
// after reading it, while the network relay leaves it in place so every
// polling display can observe it.
package mailbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Actions understood by both players.
const (
	ActionNext  = "next"
	ActionPrev  = "prev"
	ActionPause = "pause"
	ActionPlay  = "play"
)

// Message is one operator command. TS is epoch seconds; relay consumers
// de-duplicate on it because the message is not removed for them.
type Message struct {
	Action string  `json:"action"`
	TS     float64 `json:"ts"`
}

// ValidAction reports whether the action is one the players understand.
func ValidAction(action string) bool {
	switch action {
	case ActionNext, ActionPrev, ActionPause, ActionPlay:
		return true
	}
	return false
}

// Consumer is the delete-on-read channel used by the playback controller.
type Consumer struct {
	path string
}

// NewConsumer opens a delete-on-read mailbox at path.
func NewConsumer(path string) *Consumer {
	return &Consumer{path: path}
}

// Take returns the pending message, removing it from the mailbox regardless
// of whether it parses. No pending message yields (nil, nil); a corrupt file
// is discarded silently and treated the same way.
func (c *Consumer) Take() (*Message, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read mailbox %s: %w", c.path, err)
	}

	// Consume the slot before acting on it; last write wins either way.
	_ = os.Remove(c.path)

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil || !ValidAction(msg.Action) {
		return nil, nil
	}
	return &msg, nil
}

// Relay is the read-only channel served to network displays.
type Relay struct {
	path string
}

// NewRelay opens a read-only mailbox at path.
func NewRelay(path string) *Relay {
	return &Relay{path: path}
}

// Peek returns the pending message without consuming it, or nil when the slot
// is empty or unparseable.
func (r *Relay) Peek() (*Message, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read mailbox %s: %w", r.path, err)
	}

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil || !ValidAction(msg.Action) {
		return nil, nil
	}
	return &msg, nil
}

// Post writes a message into the single slot at path, replacing whatever was
// there. The write is atomic so a concurrent reader never sees a torn file.
func Post(path, action string) error {
	if !ValidAction(action) {
		return fmt.Errorf("unknown action %q", action)
	}
	msg := Message{Action: action, TS: float64(time.Now().UnixNano()) / float64(time.Second)}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode command: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create commands dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".cmd-*")
	if err != nil {
		return fmt.Errorf("create temp command: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write command: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close command: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace command %s: %w", path, err)
	}
	return nil
}
