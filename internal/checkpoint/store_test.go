package checkpoint

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(t.TempDir(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	return s
}

func TestFileStoreLoadMissing(t *testing.T) {
	s := newTestStore(t)

	cp := s.Load("never-saved")
	if cp.Watermark != "" {
		t.Errorf("watermark = %q, want empty", cp.Watermark)
	}
	if len(cp.Seen) != 0 {
		t.Errorf("len(Seen) = %d, want 0", len(cp.Seen))
	}
}

func TestFileStoreSaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)

	cp := Checkpoint{Watermark: "102"}
	cp.MarkSeen("m1")
	cp.MarkSeen("m2")

	if err := s.Save("work", cp); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got := s.Load("work")
	if got.Watermark != "102" {
		t.Errorf("watermark = %q, want %q", got.Watermark, "102")
	}
	if !got.HasSeen("m1") || !got.HasSeen("m2") {
		t.Error("seen set lost in round trip")
	}
}

func TestFileStoreAccountsIsolated(t *testing.T) {
	s := newTestStore(t)

	a := Checkpoint{Watermark: "10"}
	a.MarkSeen("m1")
	if err := s.Save("alpha", a); err != nil {
		t.Fatalf("Save(alpha) error = %v", err)
	}

	b := s.Load("beta")
	if b.Watermark != "" || b.HasSeen("m1") {
		t.Error("beta must not observe alpha's state")
	}
}

func TestFileStoreCorruptRecord(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "work.json"), []byte("{half a rec"), 0o644); err != nil {
		t.Fatal(err)
	}

	// Corrupt state degrades to first-run, it never errors.
	cp := s.Load("work")
	if cp.Watermark != "" || len(cp.Seen) != 0 {
		t.Errorf("corrupt record should load as zero checkpoint, got %+v", cp)
	}
}

func TestFileStoreSaveReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	first := Checkpoint{Watermark: "1"}
	first.MarkSeen("m1")
	if err := s.Save("work", first); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	second := Checkpoint{Watermark: "2"}
	second.MarkSeen("m1")
	second.MarkSeen("m2")
	if err := s.Save("work", second); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// The record on disk is complete valid JSON and no temp files remain.
	data, err := os.ReadFile(filepath.Join(dir, "work.json"))
	if err != nil {
		t.Fatalf("read record: %v", err)
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		t.Fatalf("record is not valid JSON: %v", err)
	}
	if cp.Watermark != "2" {
		t.Errorf("watermark = %q, want %q", cp.Watermark, "2")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("data dir should hold exactly the record, got %v", names)
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"work", "work"},
		{"", "default"},
		{"user@example.org", "user_example_org"},
		{"a b/c", "a_b_c"},
		{"ok-name_1", "ok-name_1"},
	}
	for _, tt := range tests {
		if got := sanitize(tt.in); got != tt.want {
			t.Errorf("sanitize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
