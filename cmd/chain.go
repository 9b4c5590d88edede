package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/vchain/internal/workflow"
	"github.com/papapumpkin/vchain/internal/xref"
)

// errInconsistent makes `chain analyze --strict` exit non-zero.
var errInconsistent = errors.New("document chain is inconsistent")

var chainCmd = &cobra.Command{
	Use:   "chain",
	Short: "Check cross-references across the document chain",
}

var chainAnalyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Report orphaned and missing identifiers for every chain link",
	Args:  cobra.NoArgs,
	RunE:  runChainAnalyze,
}

var chainWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-run the analysis whenever a chain document changes",
	Args:  cobra.NoArgs,
	RunE:  runChainWatch,
}

func init() {
	addFormatFlag(chainCmd)
	chainAnalyzeCmd.Flags().Bool("strict", false, "exit non-zero when the chain is inconsistent")
	chainAnalyzeCmd.Flags().Bool("trace", false, "also print the traceability matrix")

	chainCmd.AddCommand(chainAnalyzeCmd, chainWatchCmd)
	rootCmd.AddCommand(chainCmd)
}

func runChainAnalyze(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.svc.References(cmd.Context(), workflow.ReferencesRequest{
		WorkspacePath: a.cfg.Workspace,
		ConfigPath:    a.cfg.ProjectConfig,
	})
	if err != nil {
		return err
	}
	trace, _ := cmd.Flags().GetBool("trace")
	err = emit(cmd, report, func() {
		a.printer.ChainReport(report)
		if trace {
			a.printer.Traceability(report)
		}
	})
	if err != nil {
		return err
	}
	if strict, _ := cmd.Flags().GetBool("strict"); strict && !report.Clean() {
		return fmt.Errorf("%w: %d orphaned, %d missing", errInconsistent, len(report.OrphanedIDs), len(report.MissingIDs))
	}
	return nil
}

func runChainWatch(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := cmd.Context()

	project, err := a.svc.Project(a.cfg.Workspace, a.cfg.ProjectConfig)
	if err != nil {
		return err
	}
	w, err := xref.NewWatcher(project)
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	if err := w.Start(); err != nil {
		return err
	}
	defer w.Stop()

	analyze := func() error {
		report, err := xref.Run(ctx, project)
		if err != nil {
			return err
		}
		return emit(cmd, report, func() { a.printer.ChainReport(report) })
	}
	if err := analyze(); err != nil {
		return err
	}
	a.printer.Info("watching for changes (ctrl-c to stop)")

	for {
		select {
		case <-ctx.Done():
			return nil
		case change, ok := <-w.Changes:
			if !ok {
				return nil
			}
			a.printer.WatchChange(change)
			if err := analyze(); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				a.logger.Warn("analysis failed", "error", err)
			}
		}
	}
}
