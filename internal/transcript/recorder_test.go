package transcript

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestRecordWritesJSONL(t *testing.T) {
	r, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if r.RunID() == "" {
		t.Error("RunID empty after Start")
	}

	r.Record("open the browser", "open_browser", "Opening the browser, Boss")
	r.Record("search for cats", "search", "I found 3 results for cats, Boss")
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	matches, _ := filepath.Glob(filepath.Join(r.baseDir, "transcript-*.jsonl"))
	if len(matches) != 1 {
		t.Fatalf("found %d transcript files, want 1", len(matches))
	}

	f, err := os.Open(matches[0])
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var exchanges []Exchange
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Exchange
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("bad JSONL line: %v", err)
		}
		exchanges = append(exchanges, e)
	}
	if len(exchanges) != 2 {
		t.Fatalf("recorded %d exchanges, want 2", len(exchanges))
	}
	if exchanges[0].Kind != "open_browser" {
		t.Errorf("first exchange kind = %q", exchanges[0].Kind)
	}
	if exchanges[1].Utterance != "search for cats" {
		t.Errorf("second exchange utterance = %q", exchanges[1].Utterance)
	}
}

func TestRecordBeforeStartIsSilent(t *testing.T) {
	r, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r.Record("ignored", "unrecognized", "ignored")
	if err := r.Close(); err != nil {
		t.Errorf("Close without Start: %v", err)
	}
}

func TestRotationKeepsRecentFiles(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < MaxRotatedFiles+2; i++ {
		path := filepath.Join(dir, "transcript-old"+string(rune('a'+i))+".jsonl")
		if err := os.WriteFile(path, []byte("{}\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		// Distinct mtimes so rotation order is deterministic.
		old := time.Now().Add(-time.Duration(MaxRotatedFiles+2-i) * time.Hour)
		if err := os.Chtimes(path, old, old); err != nil {
			t.Fatal(err)
		}
	}

	r, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer r.Close()

	matches, _ := filepath.Glob(filepath.Join(dir, "transcript-*.jsonl"))
	if len(matches) != MaxRotatedFiles {
		t.Errorf("%d files after rotation, want %d", len(matches), MaxRotatedFiles)
	}
}
