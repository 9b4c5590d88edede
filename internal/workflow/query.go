package workflow

import (
	"context"

	"github.com/papapumpkin/vchain/internal/chain"
	"github.com/papapumpkin/vchain/internal/cr"
	"github.com/papapumpkin/vchain/internal/xref"
)

// Status returns the full record.
func (s *Service) Status(ctx context.Context, req StatusRequest) (*cr.ChangeRequest, error) {
	if err := s.checkRequest(req); err != nil {
		return nil, err
	}
	ws, err := s.workspace(req.WorkspacePath)
	if err != nil {
		return nil, err
	}
	return ws.store.Read(ctx, req.CRID)
}

// List returns summaries sorted by id.
func (s *Service) List(ctx context.Context, req ListRequest) ([]cr.Summary, error) {
	if err := s.checkRequest(req); err != nil {
		return nil, err
	}
	ws, err := s.workspace(req.WorkspacePath)
	if err != nil {
		return nil, err
	}
	return ws.store.List(ctx, cr.Status(req.StatusFilter))
}

// References analyzes the workspace's document chain without touching any
// change request.
func (s *Service) References(ctx context.Context, req ReferencesRequest) (*xref.Report, error) {
	if err := s.checkRequest(req); err != nil {
		return nil, err
	}
	ws, err := s.workspace(req.WorkspacePath)
	if err != nil {
		return nil, err
	}
	project, err := s.loadProject(ws, req.ConfigPath)
	if err != nil {
		return nil, err
	}
	report, err := xref.Run(ctx, project)
	if err != nil {
		return nil, err
	}
	s.opts.Metrics.ObserveAnalysis(len(report.Links), len(report.OrphanedIDs), len(report.MissingIDs))
	s.flushMetrics()
	return report, nil
}

// Project loads the project configuration of a workspace.
func (s *Service) Project(workspacePath, configPath string) (*chain.Project, error) {
	ws, err := s.workspace(workspacePath)
	if err != nil {
		return nil, err
	}
	return s.loadProject(ws, configPath)
}
