package cr

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Store reads and writes change request records in one directory.
type Store struct {
	dir    string
	logger *slog.Logger
	now    func() time.Time
	locks  keyedMutex
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the logger used for best-effort failures.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore returns a store rooted at dir. The directory is created on the
// first write.
func NewStore(dir string, opts ...StoreOption) *Store {
	s := &Store{
		dir:    dir,
		logger: slog.Default(),
		now:    func() time.Time { return time.Now().UTC().Truncate(time.Second) },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// DefaultDir returns the change request directory inside stateDir.
func DefaultDir(stateDir string) string {
	return filepath.Join(stateDir, "change-requests")
}

// Dir returns the directory holding the records.
func (s *Store) Dir() string { return s.dir }

// Now returns the store's current time.
func (s *Store) Now() time.Time { return s.now() }

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".md")
}

// Create assigns c the next free id for today, marks it INITIATED with one
// history entry, and persists it. The id is reserved by exclusive file
// creation, so concurrent creators never share one.
func (s *Store) Create(ctx context.Context, c *ChangeRequest) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating store directory: %w", err)
	}
	now := s.now()
	c.Status = StatusInitiated
	c.Created = now
	c.Updated = now
	c.PropagationIndex = 0
	c.History = []HistoryEntry{{Status: StatusInitiated, Entered: now}}

	for seq := s.nextSequence(now); seq <= maxSequence; seq++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.ID = FormatID(now, seq)
		data, err := Marshal(c)
		if err != nil {
			return err
		}
		f, err := os.OpenFile(s.path(c.ID), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("reserving %s: %w", c.ID, err)
		}
		_, werr := f.Write(data)
		cerr := f.Close()
		if werr != nil || cerr != nil {
			os.Remove(s.path(c.ID))
			return fmt.Errorf("writing %s: %w", c.ID, errors.Join(werr, cerr))
		}
		s.rebuildIndexBestEffort(ctx)
		return nil
	}
	c.ID = ""
	return fmt.Errorf("%w: %s", ErrIDExhausted, now.Format("060102"))
}

// nextSequence returns one past the highest sequence used on day.
func (s *Store) nextSequence(day time.Time) int {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 1
	}
	stamp := day.Format("060102")
	highest := 0
	for _, e := range entries {
		d, seq, ok := parseID(strings.TrimSuffix(e.Name(), ".md"))
		if ok && d == stamp && seq > highest {
			highest = seq
		}
	}
	return highest + 1
}

// Read loads the record id. Corrupt records yield an *IntegrityError
// wrapping ErrCorruptRecord.
func (s *Store) Read(ctx context.Context, id string) (*ChangeRequest, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := s.path(id)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("reading %s: %w", id, err)
	}
	c, err := Unmarshal(data)
	if err != nil {
		return nil, &IntegrityError{ID: id, Path: path, Err: err}
	}
	if c.ID != id {
		return nil, &IntegrityError{ID: id, Path: path,
			Err: fmt.Errorf("%w: header id %q does not match file", ErrCorruptRecord, c.ID)}
	}
	return c, nil
}

// Write atomically overwrites the record of c, regenerating its narrative,
// then rebuilds the summary index best effort.
func (s *Store) Write(ctx context.Context, c *ChangeRequest) error {
	if err := ValidateID(c.ID); err != nil {
		return err
	}
	if err := c.check(); err != nil {
		return fmt.Errorf("refusing to write %s: %w", c.ID, err)
	}
	data, err := Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating store directory: %w", err)
	}
	if err := writeAtomic(s.path(c.ID), data); err != nil {
		return fmt.Errorf("writing %s: %w", c.ID, err)
	}
	s.rebuildIndexBestEffort(ctx)
	return nil
}

// Records loads every parsable record sorted by id. Unparsable records are
// logged and skipped.
func (s *Store) Records(ctx context.Context) ([]*ChangeRequest, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading store directory: %w", err)
	}
	var out []*ChangeRequest
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".md") || name == indexMarkdown {
			continue
		}
		id := strings.TrimSuffix(name, ".md")
		if ValidateID(id) != nil {
			continue
		}
		c, err := s.Read(ctx, id)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			s.logger.Warn("skipping unreadable change request", "id", id, "error", err)
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// List returns summaries sorted by id, optionally filtered by status. The
// index is refreshed from the records and queried; when it cannot be
// written the records are filtered directly.
func (s *Store) List(ctx context.Context, status Status) ([]Summary, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	all, err := s.summaries(ctx)
	if err != nil {
		return nil, err
	}
	idx, err := s.refreshIndex(ctx, all)
	if err != nil {
		s.logger.Warn("index rebuild failed", "dir", s.dir, "error", err)
		return filterSummaries(all, status), nil
	}
	defer idx.Close()

	out, err := idx.ByStatus(ctx, status)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []Summary{}
	}
	return out, nil
}

// RebuildIndex regenerates INDEX.md and index.db from the records.
func (s *Store) RebuildIndex(ctx context.Context) error {
	all, err := s.summaries(ctx)
	if err != nil {
		return err
	}
	idx, err := s.refreshIndex(ctx, all)
	if err != nil {
		return err
	}
	return idx.Close()
}

func (s *Store) summaries(ctx context.Context) ([]Summary, error) {
	records, err := s.Records(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Summary, len(records))
	for i, c := range records {
		out[i] = c.Summary()
	}
	return out, nil
}

// refreshIndex rewrites INDEX.md and index.db and returns the open index.
func (s *Store) refreshIndex(ctx context.Context, summaries []Summary) (*Index, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}
	if err := writeAtomic(filepath.Join(s.dir, indexMarkdown), []byte(renderIndex(summaries))); err != nil {
		return nil, fmt.Errorf("writing %s: %w", indexMarkdown, err)
	}
	idx, err := OpenIndex(ctx, s.IndexPath())
	if err != nil {
		return nil, err
	}
	if err := idx.Replace(ctx, summaries); err != nil {
		idx.Close()
		return nil, err
	}
	return idx, nil
}

func filterSummaries(all []Summary, status Status) []Summary {
	out := []Summary{}
	for _, sm := range all {
		if status == "" || sm.Status == status {
			out = append(out, sm)
		}
	}
	return out
}

// IndexPath returns the path of the SQLite summary index.
func (s *Store) IndexPath() string {
	return filepath.Join(s.dir, indexDB)
}

func (s *Store) rebuildIndexBestEffort(ctx context.Context) {
	if err := s.RebuildIndex(ctx); err != nil {
		s.logger.Warn("index rebuild failed", "dir", s.dir, "error", err)
	}
}
