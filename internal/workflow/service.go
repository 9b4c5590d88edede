// Package workflow implements the change request action surface: one
// method per verb, each a locked read-modify-write of a single record
// that either completes its transition or leaves the record unchanged.
//
// Index rebuilds, audit appends, checkpoints and metrics are best effort:
// failures are logged and never fail the action.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/papapumpkin/vchain/internal/audit"
	"github.com/papapumpkin/vchain/internal/chain"
	"github.com/papapumpkin/vchain/internal/checkpoint"
	"github.com/papapumpkin/vchain/internal/cr"
	"github.com/papapumpkin/vchain/internal/metrics"
)

// DefaultStateDir is the workspace-relative directory holding vchain state.
const DefaultStateDir = ".vchain"

// Options configures a Service. Zero values select the defaults.
type Options struct {
	StateDir       string // relative to the workspace unless absolute
	ProjectConfig  string // project config path passed to chain.LoadProject
	CheckpointMode checkpoint.Mode
	DisableAudit   bool
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	Now            func() time.Time
}

// Service executes change request actions against any number of
// workspaces. It is safe for concurrent use.
type Service struct {
	schema   *chain.Schema
	opts     Options
	logger   *slog.Logger
	validate *validator.Validate

	mu         sync.Mutex
	workspaces map[string]*workspace
}

// workspace holds the per-root resources shared by every action.
type workspace struct {
	root     string
	stateDir string
	store    *cr.Store
	ckpt     *checkpoint.Checkpointer

	auditOnce sync.Once
	audit     *audit.Log
}

// New returns a service over schema.
func New(schema *chain.Schema, opts Options) *Service {
	if opts.StateDir == "" {
		opts.StateDir = DefaultStateDir
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		schema:     schema,
		opts:       opts,
		logger:     logger,
		validate:   newValidator(),
		workspaces: make(map[string]*workspace),
	}
}

// Schema returns the schema the service plans against.
func (s *Service) Schema() *chain.Schema { return s.schema }

// Close releases per-workspace resources such as open audit logs.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	for _, ws := range s.workspaces {
		if err := ws.audit.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.workspaces = make(map[string]*workspace)
	return errors.Join(errs...)
}

// workspace resolves path and returns its cached resources.
func (s *Service) workspace(path string) (*workspace, error) {
	root, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: workspace_path: %v", ErrValidation, err)
	}
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: workspace_path %q is not a directory", ErrValidation, path)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ws, ok := s.workspaces[root]; ok {
		return ws, nil
	}
	stateDir := s.opts.StateDir
	if !filepath.IsAbs(stateDir) {
		stateDir = filepath.Join(root, stateDir)
	}
	storeOpts := []cr.StoreOption{cr.WithLogger(s.logger)}
	if s.opts.Now != nil {
		storeOpts = append(storeOpts, cr.WithClock(s.opts.Now))
	}
	ws := &workspace{
		root:     root,
		stateDir: stateDir,
		store:    cr.NewStore(cr.DefaultDir(stateDir), storeOpts...),
		ckpt:     checkpoint.New(root, stateDir, s.opts.CheckpointMode),
	}
	s.workspaces[root] = ws
	return ws, nil
}

// AuditPath returns the audit log location for a workspace root.
func (s *Service) AuditPath(root string) string {
	stateDir := s.opts.StateDir
	if !filepath.IsAbs(stateDir) {
		stateDir = filepath.Join(root, stateDir)
	}
	return filepath.Join(stateDir, "audit.jsonl")
}

// Store returns the change request store of a workspace.
func (s *Service) Store(path string) (*cr.Store, error) {
	ws, err := s.workspace(path)
	if err != nil {
		return nil, err
	}
	return ws.store, nil
}

func (s *Service) auditLog(ws *workspace) *audit.Log {
	if s.opts.DisableAudit {
		return nil
	}
	ws.auditOnce.Do(func() {
		l, err := audit.Open(s.AuditPath(ws.root))
		if err != nil {
			s.logger.Warn("audit log unavailable", "workspace", ws.root, "error", err)
			return
		}
		ws.audit = l
	})
	return ws.audit
}

// loadProject reads the project configuration for an action.
func (s *Service) loadProject(ws *workspace, configPath string) (*chain.Project, error) {
	if configPath == "" {
		configPath = s.opts.ProjectConfig
	}
	p, err := chain.LoadProject(ws.root, configPath, s.schema)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return p, nil
}

// mutation is the domain work of one mutating action. It edits c in
// place; returning noop=true skips the write.
type mutation func(c *cr.ChangeRequest) (noop bool, err error)

// mutate runs the locked read → precondition → work → write sequence and
// the best-effort follow-ups.
func (s *Service) mutate(ctx context.Context, ws *workspace, id string, action cr.Action, fn mutation) (*cr.ChangeRequest, error) {
	unlock, err := ws.store.Lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	c, err := ws.store.Read(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := cr.RequireStatus(action, c); err != nil {
		return nil, err
	}

	from := c.Status
	before := len(c.History)
	noop, err := fn(c)
	if err != nil {
		return nil, err
	}
	if noop {
		return c, nil
	}
	if err := ws.store.Write(ctx, c); err != nil {
		return nil, err
	}

	prev := from
	for _, h := range c.History[before:] {
		s.record(ws, audit.Event{
			Timestamp: h.Entered,
			Kind:      audit.KindTransition,
			CRID:      c.ID,
			Action:    string(action),
			From:      string(prev),
			To:        string(h.Status),
			Summary:   h.Reason,
		})
		s.opts.Metrics.ObserveTransition(string(prev), string(h.Status))
		prev = h.Status
	}
	s.flushMetrics()
	return c, nil
}

// record appends evt to the workspace audit log, best effort.
func (s *Service) record(ws *workspace, evt audit.Event) {
	if err := s.auditLog(ws).Append(evt); err != nil {
		s.logger.Warn("audit append failed", "cr", evt.CRID, "error", err)
	}
}

func (s *Service) flushMetrics() {
	if err := s.opts.Metrics.Flush(); err != nil {
		s.logger.Warn("metrics flush failed", "error", err)
	}
}

// activeOthers returns every non-terminal record except id.
func activeOthers(records []*cr.ChangeRequest, id string) []*cr.ChangeRequest {
	var out []*cr.ChangeRequest
	for _, r := range records {
		if r.ID != id && !r.Status.Terminal() {
			out = append(out, r)
		}
	}
	return out
}

// normalizeIDs trims, de-duplicates and sorts identifiers.
func normalizeIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := []string{}
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
