package playlist

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoadEntriesLegacyStrings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "playlist.json")
	if err := os.WriteFile(path, []byte(`["intro.mp4", "deck.pdf"]`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	entries, err := LoadEntries(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := []Entry{{Name: "intro.mp4", Repeats: 1}, {Name: "deck.pdf", Repeats: 1}}
	if !reflect.DeepEqual(entries, want) {
		t.Errorf("got %+v, want %+v", entries, want)
	}
}

func TestLoadEntriesMixedForms(t *testing.T) {
	path := filepath.Join(t.TempDir(), "playlist.json")
	raw := `["a.mp4", {"name":"b.mp4","repeats":3}, {"filename":"c.pdf"}, {"name":"d.mp4","repeats":0}, {"name":"e.mp4","repeats":"2"}, {"repeats":5}]`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	entries, err := LoadEntries(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := []Entry{
		{Name: "a.mp4", Repeats: 1},
		{Name: "b.mp4", Repeats: 3},
		{Name: "c.pdf", Repeats: 1},
		{Name: "d.mp4", Repeats: 1},
		{Name: "e.mp4", Repeats: 2},
	}
	if !reflect.DeepEqual(entries, want) {
		t.Errorf("got %+v, want %+v", entries, want)
	}
}

func TestSaveEntriesRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "playlist.json")
	want := []Entry{{Name: "x.mp4", Repeats: 2}, {Name: "y.pdf", Repeats: 1}}

	if err := SaveEntries(path, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := LoadEntries(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, want)
	}
}

func TestLoadEntriesMissingFile(t *testing.T) {
	entries, err := LoadEntries(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("missing ordering should not error: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty entries, got %+v", entries)
	}
}
