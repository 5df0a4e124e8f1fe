// Package transcript keeps a rotating on-disk record of every utterance the
// assistant handled and what it said back. The transcripts are the main
// debugging aid when a spoken command lands on the wrong action.
package transcript

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// MaxRotatedFiles caps how many old transcripts are kept.
	MaxRotatedFiles = 3
	// DefaultDir is where transcripts land unless config says otherwise.
	DefaultDir = "data/transcripts"
)

// Exchange is one handled command: what was heard, how it was read, and what
// was said back.
type Exchange struct {
	Timestamp time.Time `json:"ts"`
	Utterance string    `json:"utterance"`
	Kind      string    `json:"kind"`
	Reply     string    `json:"reply"`
}

// Recorder appends exchanges to a per-run JSONL file, rotating old runs out.
type Recorder struct {
	mu      sync.Mutex
	file    *os.File
	encoder *json.Encoder
	baseDir string
	runID   string
}

// New creates a recorder rooted at baseDir, creating it if needed.
func New(baseDir string) (*Recorder, error) {
	if baseDir == "" {
		baseDir = DefaultDir
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, err
	}
	return &Recorder{baseDir: baseDir}, nil
}

// Start opens a fresh transcript file for this run and rotates old ones so
// only the last MaxRotatedFiles remain.
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file != nil {
		_ = r.file.Close()
		r.file = nil
	}

	if err := r.rotateLocked(); err != nil {
		return fmt.Errorf("rotating transcripts: %w", err)
	}

	r.runID = uuid.NewString()
	path := filepath.Join(r.baseDir, fmt.Sprintf("transcript-%s.jsonl", r.runID))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	r.file = f
	r.encoder = json.NewEncoder(f)
	return nil
}

// Record appends one exchange. A recorder that was never started drops
// exchanges silently; recording must never break the command loop.
func (r *Recorder) Record(utterance, kind, reply string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.encoder == nil {
		return
	}
	_ = r.encoder.Encode(Exchange{
		Timestamp: time.Now().UTC(),
		Utterance: utterance,
		Kind:      kind,
		Reply:     reply,
	})
}

// Close flushes and closes the current transcript file.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	r.encoder = nil
	return err
}

// RunID returns the identifier of the current run, empty before Start.
func (r *Recorder) RunID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runID
}

// rotateLocked deletes the oldest transcript files beyond the retention cap.
// Keeps MaxRotatedFiles - 1 so the new run's file fits under the cap.
func (r *Recorder) rotateLocked() error {
	matches, err := filepath.Glob(filepath.Join(r.baseDir, "transcript-*.jsonl"))
	if err != nil {
		return err
	}
	if len(matches) < MaxRotatedFiles {
		return nil
	}

	type aged struct {
		path string
		mod  time.Time
	}
	files := make([]aged, 0, len(matches))
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		files = append(files, aged{path: m, mod: info.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].mod.After(files[j].mod) })

	for _, f := range files[MaxRotatedFiles-1:] {
		_ = os.Remove(f.path)
	}
	return nil
}
