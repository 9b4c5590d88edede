// Package audit appends change request decisions to a JSONL log kept
// beside the records. Each transition is one line, so the log can be
// tailed, grepped, or replayed independently of the records themselves.
package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event kinds.
const (
	KindCreated    = "created"
	KindTransition = "transition"
	KindStep       = "propagation_step"
)

// Event is a single audit record.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"ts"`
	Kind      string    `json:"kind"`
	CRID      string    `json:"cr"`
	Action    string    `json:"action,omitempty"`
	From      string    `json:"from,omitempty"`
	To        string    `json:"to,omitempty"`
	Summary   string    `json:"summary,omitempty"`
}

// Log appends events to a JSONL file. It is safe for concurrent use.
// A nil *Log is a valid no-op log.
type Log struct {
	path string
	file *os.File
	enc  *json.Encoder
	mu   sync.Mutex
}

// Open opens the log at path for appending, creating it and its directory
// if needed.
func Open(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("audit: create dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("audit: open %s: %w", path, err)
	}
	return &Log{path: path, file: f, enc: json.NewEncoder(f)}, nil
}

// Path returns the file the log appends to.
func (l *Log) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Append writes evt as one line. A missing ID or timestamp is filled in.
func (l *Log) Append(evt Event) error {
	if l == nil {
		return nil
	}
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.enc.Encode(evt); err != nil {
		return fmt.Errorf("audit: encode event: %w", err)
	}
	return nil
}

// Close closes the underlying file.
func (l *Log) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.file.Close(); err != nil {
		return fmt.Errorf("audit: close: %w", err)
	}
	return nil
}

// ReadAll decodes every event in the log at path, optionally keeping only
// those for one change request. Malformed lines are skipped.
func ReadAll(path, crID string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audit: open %s: %w", path, err)
	}
	defer f.Close()

	var out []Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var evt Event
		if err := json.Unmarshal(scanner.Bytes(), &evt); err != nil {
			continue
		}
		if crID == "" || evt.CRID == crID {
			out = append(out, evt)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("audit: read %s: %w", path, err)
	}
	return out, nil
}
