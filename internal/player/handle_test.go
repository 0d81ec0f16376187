//go:build unix

package player

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/heimdall_signage/internal/playlist"
)

func TestHandleLifecycle(t *testing.T) {
	h := NewHandle("/bin/sh", 500*time.Millisecond, zerolog.Nop())

	if h.State() != StateNotStarted {
		t.Fatalf("fresh handle state = %s", h.State())
	}
	if h.Alive() {
		t.Fatal("fresh handle must not be alive")
	}

	if err := h.Start("-c", "sleep 30"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !h.Alive() {
		t.Fatal("started process should be alive")
	}
	if err := h.Start("-c", "true"); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("second start should report already running, got %v", err)
	}

	if err := h.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if h.Alive() {
		t.Fatal("stopped process must not be alive")
	}
	if h.State() != StateStopped {
		t.Errorf("state after stop = %s", h.State())
	}
}

func TestHandleObservesNaturalExit(t *testing.T) {
	h := NewHandle("/bin/sh", time.Second, zerolog.Nop())
	if err := h.Start("-c", "true"); err != nil {
		t.Fatalf("start: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for h.Alive() {
		if time.Now().After(deadline) {
			t.Fatal("process never observed as exited")
		}
		time.Sleep(10 * time.Millisecond)
	}

	// A natural exit frees the slot for the next cycle.
	if err := h.Start("-c", "true"); err != nil {
		t.Fatalf("restart after natural exit: %v", err)
	}
	_ = h.Stop()
}

func TestHandlePauseResume(t *testing.T) {
	h := NewHandle("/bin/sh", 500*time.Millisecond, zerolog.Nop())
	if err := h.Start("-c", "sleep 30"); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer h.Stop()

	if err := h.Pause(); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if h.State() != StatePaused {
		t.Errorf("state after pause = %s", h.State())
	}
	if !h.Alive() {
		t.Error("paused process still counts as alive")
	}

	if err := h.Resume(); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if h.State() != StateRunning {
		t.Errorf("state after resume = %s", h.State())
	}
}

func TestHandleStopForceKillsStubborn(t *testing.T) {
	h := NewHandle("/bin/sh", 300*time.Millisecond, zerolog.Nop())
	// Ignore SIGTERM so only the force kill path can end it.
	if err := h.Start("-c", "trap '' TERM; sleep 30"); err != nil {
		t.Fatalf("start: %v", err)
	}

	start := time.Now()
	if err := h.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if h.Alive() {
		t.Fatal("process survived force kill")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("stop took too long: %v", elapsed)
	}
}

func TestHandleStopWhenNeverStarted(t *testing.T) {
	h := NewHandle("/bin/true", time.Second, zerolog.Nop())
	if err := h.Stop(); err != nil {
		t.Fatalf("stop on fresh handle: %v", err)
	}
}

func TestWritePlaylist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "playlist.m3u")
	items := []playlist.Item{
		{Kind: playlist.KindVideo, Name: "a.mp4", SourcePath: "/v/a.mp4", Duration: playlist.DurationFullPlay},
		{Kind: playlist.KindSlide, Name: "slide_000.png", SourcePath: "/s/deck/slide_000.png", Duration: 10 * time.Second},
	}

	if err := WritePlaylist(path, items); err != nil {
		t.Fatalf("write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	got := string(data)
	want := "#EXTM3U\n#EXTINF:-1,a.mp4\n/v/a.mp4\n#EXTINF:10,slide_000.png\n/s/deck/slide_000.png\n"
	if got != want {
		t.Errorf("playlist content:\n%s\nwant:\n%s", got, want)
	}
	if !strings.HasPrefix(got, "#EXTM3U") {
		t.Error("missing header")
	}
}
