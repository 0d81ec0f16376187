/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package playlist resolves the persisted content ordering into the concrete
// sequence of playable items shared by the local player and the stream server.
package playlist

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Entry is one persisted ordering element: a content file name and how many
// times it repeats per cycle.
type Entry struct {
	Name    string `json:"name"`
	Repeats int    `json:"repeats"`
}

// entryObject mirrors the persisted object form, including the legacy
// "filename" key older dashboards wrote.
type entryObject struct {
	Name     string          `json:"name"`
	Filename string          `json:"filename"`
	Repeats  json.RawMessage `json:"repeats"`
}

// UnmarshalJSON accepts either the current object form or the legacy bare
// string form and always yields the canonical representation.
func (e *Entry) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, `"`) {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		e.Name = name
		e.Repeats = 1
		return nil
	}

	var obj entryObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	e.Name = obj.Name
	if e.Name == "" {
		e.Name = obj.Filename
	}
	e.Repeats = parseRepeats(obj.Repeats)
	return nil
}

// parseRepeats tolerates numbers, numeric strings, and garbage; anything
// unusable collapses to 1 and values are clamped to >= 1.
func parseRepeats(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 1
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		if n < 1 {
			return 1
		}
		return n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		var parsed int
		if _, scanErr := fmt.Sscanf(strings.TrimSpace(s), "%d", &parsed); scanErr == nil && parsed >= 1 {
			return parsed
		}
	}
	return 1
}

// LoadEntries reads and normalizes the ordering file. A missing file yields
// an empty sequence, not an error.
func LoadEntries(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read ordering %s: %w", path, err)
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse ordering %s: %w", path, err)
	}

	kept := entries[:0]
	for _, e := range entries {
		if e.Name == "" {
			continue
		}
		kept = append(kept, e)
	}
	return kept, nil
}

// SaveEntries persists the ordering atomically in the canonical object form.
func SaveEntries(path string, entries []Entry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode ordering: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".ordering-*")
	if err != nil {
		return fmt.Errorf("create temp ordering: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write ordering: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close ordering: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace ordering %s: %w", path, err)
	}
	return nil
}
