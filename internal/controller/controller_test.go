//go:build unix

package controller

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/heimdall_signage/internal/config"
	"github.com/friendsincode/heimdall_signage/internal/events"
	"github.com/friendsincode/heimdall_signage/internal/mailbox"
	"github.com/friendsincode/heimdall_signage/internal/player"
	"github.com/friendsincode/heimdall_signage/internal/playlist"
)

// fakePlayerScript ignores the playlist arguments and sleeps until killed, so
// tests control cycle boundaries explicitly.
func fakePlayerScript(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "fakeplayer")
	if err := os.WriteFile(path, []byte("#!/bin/sh\nsleep 30\n"), 0o755); err != nil {
		t.Fatalf("write fake player: %v", err)
	}
	return path
}

func newTestController(t *testing.T) (*Controller, *config.Config) {
	t.Helper()
	base := t.TempDir()
	cfg := &config.Config{
		BaseDir:          base,
		VideosDir:        filepath.Join(base, "videos"),
		PresentationsDir: filepath.Join(base, "presentations"),
		SlidesCacheDir:   filepath.Join(base, "cache"),
		OrderingFile:     filepath.Join(base, "playlist.json"),
		CommandsDir:      filepath.Join(base, "commands"),
		PlaylistM3U:      filepath.Join(base, "playlist.m3u"),
		PlayerBin:        fakePlayerScript(t, base),
		SlideDuration:    10 * time.Second,
		CheckInterval:    20 * time.Second,
		StopGrace:        300 * time.Millisecond,
	}
	if err := cfg.EnsureDirs(); err != nil {
		t.Fatalf("ensure dirs: %v", err)
	}

	logger := zerolog.Nop()
	resolver := playlist.NewResolver(cfg.VideosDir, cfg.PresentationsDir, cfg.OrderingFile, nil, cfg.SlideDuration, logger)
	handle := player.NewHandle(cfg.PlayerBin, cfg.StopGrace, logger)
	box := mailbox.NewConsumer(cfg.PlayerMailbox())

	c := New(cfg, resolver, box, handle, events.NewBus(), logger)
	t.Cleanup(func() { _ = handle.Stop() })
	return c, cfg
}

func addVideo(t *testing.T, cfg *config.Config, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(cfg.VideosDir, name), []byte("v"), 0o644); err != nil {
		t.Fatalf("add video: %v", err)
	}
}

func TestTickStartsPlayerAndWritesPlaylist(t *testing.T) {
	c, cfg := newTestController(t)
	addVideo(t, cfg, "a.mp4")

	c.tick()

	if !c.handle.Alive() {
		t.Fatal("player should be running after first tick with content")
	}
	data, err := os.ReadFile(cfg.PlaylistM3U)
	if err != nil {
		t.Fatalf("playlist not written: %v", err)
	}
	if !strings.Contains(string(data), "a.mp4") {
		t.Errorf("playlist missing item: %s", data)
	}
	if c.fingerprint == "" {
		t.Error("fingerprint not recorded")
	}
}

func TestTickEmptyCatalogStopsPlayerAndStaysIdle(t *testing.T) {
	c, cfg := newTestController(t)
	addVideo(t, cfg, "a.mp4")
	c.tick()
	if !c.handle.Alive() {
		t.Fatal("precondition: player running")
	}

	if err := os.Remove(filepath.Join(cfg.VideosDir, "a.mp4")); err != nil {
		t.Fatalf("remove video: %v", err)
	}

	c.tick()
	if c.handle.Alive() {
		t.Fatal("player must stop when the catalog is empty")
	}
	if c.fingerprint != "" || c.pendingChange {
		t.Errorf("idle state not reset: fp=%q pending=%v", c.fingerprint, c.pendingChange)
	}

	// Idle ticks keep retrying without error or player start.
	c.tick()
	if c.handle.Alive() {
		t.Error("idle tick must not start a player")
	}
}

func TestChangeMidCycleIsDeferred(t *testing.T) {
	c, cfg := newTestController(t)
	addVideo(t, cfg, "a.mp4")
	c.tick()
	first := c.fingerprint

	addVideo(t, cfg, "b.mp4")
	c.tick()

	if !c.pendingChange {
		t.Error("change while playing must set the pending flag")
	}
	if c.fingerprint != first {
		t.Error("fingerprint must not advance while a cycle is in progress")
	}

	// Cycle ends; the deferred set is applied on the next pass.
	if err := c.handle.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	c.tick()
	if c.pendingChange {
		t.Error("pending flag must clear once applied")
	}
	if c.fingerprint == first {
		t.Error("deferred change was not applied")
	}
	if !c.handle.Alive() {
		t.Error("player should be running against the new set")
	}
}

func TestNaturalCycleEndRestartsSameSet(t *testing.T) {
	c, cfg := newTestController(t)
	addVideo(t, cfg, "a.mp4")
	c.tick()
	first := c.fingerprint

	if err := c.handle.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	c.tick()

	if !c.handle.Alive() {
		t.Fatal("player should restart after cycle end")
	}
	if c.fingerprint != first {
		t.Error("unchanged content must keep its fingerprint")
	}
}

func TestNextRotatesAndRestarts(t *testing.T) {
	c, cfg := newTestController(t)
	addVideo(t, cfg, "a.mp4")
	addVideo(t, cfg, "b.mp4")
	c.tick()

	if len(c.current) != 2 || c.current[0].Name != "a.mp4" {
		t.Fatalf("unexpected initial set: %+v", c.current)
	}

	c.handleCommand(mailbox.ActionNext)
	if c.current[0].Name != "b.mp4" || c.current[1].Name != "a.mp4" {
		t.Errorf("next rotation wrong: %+v", c.current)
	}
	if !c.handle.Alive() {
		t.Error("player should be restarted after rotation")
	}

	c.handleCommand(mailbox.ActionPrev)
	if c.current[0].Name != "a.mp4" {
		t.Errorf("prev rotation wrong: %+v", c.current)
	}
}

func TestPauseAndPlayCommands(t *testing.T) {
	c, cfg := newTestController(t)
	addVideo(t, cfg, "a.mp4")
	c.tick()

	c.handleCommand(mailbox.ActionPause)
	if c.handle.State() != player.StatePaused {
		t.Errorf("state after pause = %s", c.handle.State())
	}
	c.handleCommand(mailbox.ActionPlay)
	if c.handle.State() != player.StateRunning {
		t.Errorf("state after play = %s", c.handle.State())
	}
}

func TestMailboxCommandConsumedOnRead(t *testing.T) {
	c, cfg := newTestController(t)
	addVideo(t, cfg, "a.mp4")
	c.tick()

	if err := mailbox.Post(cfg.PlayerMailbox(), mailbox.ActionPause); err != nil {
		t.Fatalf("post: %v", err)
	}
	c.drainMailbox()

	if _, err := os.Stat(cfg.PlayerMailbox()); !os.IsNotExist(err) {
		t.Error("command file must be removed after the controller reads it")
	}
	if c.handle.State() != player.StatePaused {
		t.Errorf("pause command not applied, state = %s", c.handle.State())
	}
}

func TestOrphanPruningDuringTick(t *testing.T) {
	c, cfg := newTestController(t)
	addVideo(t, cfg, "a.mp4")
	if err := playlist.SaveEntries(cfg.OrderingFile, []playlist.Entry{
		{Name: "a.mp4", Repeats: 1},
		{Name: "missing.mp4", Repeats: 1},
	}); err != nil {
		t.Fatalf("save ordering: %v", err)
	}

	c.tick()

	entries, err := playlist.LoadEntries(cfg.OrderingFile)
	if err != nil {
		t.Fatalf("load ordering: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "a.mp4" {
		t.Errorf("ordering not auto-healed: %+v", entries)
	}
}
