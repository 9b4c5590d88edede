package audit

import (
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestAppendAndReadAll(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nested", "audit.jsonl")

	l, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	at := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	events := []Event{
		{Timestamp: at, Kind: KindCreated, CRID: "CR-261018-001", To: "INITIATED"},
		{Kind: KindTransition, CRID: "CR-261018-001", Action: "analyze", From: "INITIATED", To: "ANALYZING"},
		{Kind: KindTransition, CRID: "CR-261018-002", Action: "cancel", From: "INITIATED", To: "CANCELLED"},
	}
	for _, e := range events {
		if err := l.Append(e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	got, err := ReadAll(path, "CR-261018-001")
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("events = %d, want 2", len(got))
	}
	if !got[0].Timestamp.Equal(at) {
		t.Errorf("explicit timestamp not kept: %v", got[0].Timestamp)
	}
	for _, e := range got {
		if _, err := uuid.Parse(e.ID); err != nil {
			t.Errorf("event id %q is not a uuid", e.ID)
		}
		if e.Timestamp.IsZero() {
			t.Error("timestamp not filled in")
		}
	}

	all, err := ReadAll(path, "")
	if err != nil {
		t.Fatalf("ReadAll(all): %v", err)
	}
	if len(all) != 3 {
		t.Errorf("all events = %d, want 3", len(all))
	}
}

func TestNilLogIsNoop(t *testing.T) {
	t.Parallel()
	var l *Log
	if err := l.Append(Event{Kind: KindCreated}); err != nil {
		t.Errorf("nil Append: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Errorf("nil Close: %v", err)
	}
	if l.Path() != "" {
		t.Error("nil Path should be empty")
	}
}

func TestOpenBadPath(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	// A regular file where the directory should be.
	blocker := filepath.Join(dir, "file")
	l, err := Open(blocker)
	if err != nil {
		t.Fatal(err)
	}
	l.Close()
	if _, err := Open(filepath.Join(blocker, "audit.jsonl")); err == nil || !strings.Contains(err.Error(), "audit:") {
		t.Errorf("expected wrapped audit error, got %v", err)
	}
}

func TestConcurrentAppend(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	l, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = l.Append(Event{Kind: KindStep, CRID: "CR-261018-001"})
		}()
	}
	wg.Wait()
	l.Close()

	got, err := ReadAll(path, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 50 {
		t.Errorf("events = %d, want 50", len(got))
	}
}
