package mailbox

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConsumerTakesAndDeletes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "player.json")
	if err := Post(path, ActionNext); err != nil {
		t.Fatalf("post: %v", err)
	}

	c := NewConsumer(path)
	msg, err := c.Take()
	if err != nil {
		t.Fatalf("take: %v", err)
	}
	if msg == nil || msg.Action != ActionNext {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if msg.TS <= 0 {
		t.Errorf("timestamp not set: %v", msg.TS)
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("consumer must delete the slot after reading")
	}
	if again, err := c.Take(); err != nil || again != nil {
		t.Errorf("second take should be empty, got %+v, %v", again, err)
	}
}

func TestRelayPeeksWithoutConsuming(t *testing.T) {
	path := filepath.Join(t.TempDir(), "displays.json")
	if err := Post(path, ActionPause); err != nil {
		t.Fatalf("post: %v", err)
	}

	r := NewRelay(path)
	for i := 0; i < 3; i++ {
		msg, err := r.Peek()
		if err != nil {
			t.Fatalf("peek %d: %v", i, err)
		}
		if msg == nil || msg.Action != ActionPause {
			t.Fatalf("peek %d lost the message: %+v", i, msg)
		}
	}
	if _, err := os.Stat(path); err != nil {
		t.Error("relay must leave the slot in place")
	}
}

func TestLastWriteWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "player.json")
	if err := Post(path, ActionNext); err != nil {
		t.Fatalf("post: %v", err)
	}
	if err := Post(path, ActionPrev); err != nil {
		t.Fatalf("post: %v", err)
	}

	msg, err := NewConsumer(path).Take()
	if err != nil {
		t.Fatalf("take: %v", err)
	}
	if msg == nil || msg.Action != ActionPrev {
		t.Fatalf("expected last write, got %+v", msg)
	}
}

func TestCorruptSlotDiscardedSilently(t *testing.T) {
	path := filepath.Join(t.TempDir(), "player.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	msg, err := NewConsumer(path).Take()
	if err != nil {
		t.Fatalf("corrupt slot must not error: %v", err)
	}
	if msg != nil {
		t.Fatalf("corrupt slot must read as no command, got %+v", msg)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("consumer must still discard the corrupt file")
	}
}

func TestPostRejectsUnknownAction(t *testing.T) {
	if err := Post(filepath.Join(t.TempDir(), "x.json"), "reboot"); err == nil {
		t.Fatal("expected error for unknown action")
	}
}
