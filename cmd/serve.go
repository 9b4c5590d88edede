package cmd

import (
	"github.com/spf13/cobra"

	"github.com/papapumpkin/vchain/internal/mcpserver"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the change_request and chain_references MCP tools over stdio",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	return mcpserver.NewServer(a.svc, a.logger).Run(cmd.Context())
}
