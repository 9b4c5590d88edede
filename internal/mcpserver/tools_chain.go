package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papapumpkin/vchain/internal/workflow"
	"github.com/papapumpkin/vchain/internal/xref"
)

// chainReferencesInput is the input schema for the chain_references tool.
type chainReferencesInput struct {
	WorkspacePath string `json:"workspace_path" jsonschema:"Absolute path of the document workspace"`
	ConfigPath    string `json:"config_path,omitempty" jsonschema:"Project config path, default vchain.toml"`
}

type chainReferencesOutput struct {
	Clean  bool         `json:"clean"`
	Report *xref.Report `json:"report"`
}

// registerChainTool registers the chain_references tool.
func (s *Server) registerChainTool() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "chain_references",
		Description: "Check cross-references between every linked pair of documents in the chain. " +
			"Reports orphaned and missing identifiers, a traceability matrix, and fix suggestions.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in chainReferencesInput) (*mcp.CallToolResult, any, error) {
		report, err := s.svc.References(ctx, workflow.ReferencesRequest{
			WorkspacePath: in.WorkspacePath,
			ConfigPath:    in.ConfigPath,
		})
		if err != nil {
			return nil, nil, err
		}
		return jsonResult(chainReferencesOutput{Clean: report.Clean(), Report: report})
	})
}
