package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/vchain/internal/cr"
	"github.com/papapumpkin/vchain/internal/workflow"
)

var crCmd = &cobra.Command{
	Use:   "cr",
	Short: "Manage change requests (create, analyze, approve, next, validate, complete)",
}

var crCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Open a change request for an edited document",
	Args:  cobra.NoArgs,
	RunE:  runCRCreate,
}

var crAnalyzeCmd = &cobra.Command{
	Use:   "analyze <cr-id>",
	Short: "Analyze impact and plan propagation",
	Args:  cobra.ExactArgs(1),
	RunE:  runCRAnalyze,
}

var crApproveCmd = &cobra.Command{
	Use:   "approve <cr-id>",
	Short: "Approve an analyzed change request",
	Args:  cobra.ExactArgs(1),
	RunE:  runCRApprove,
}

var crNextCmd = &cobra.Command{
	Use:     "next <cr-id>",
	Aliases: []string{"propagate-next"},
	Short:   "Process the next propagation step",
	Args:    cobra.ExactArgs(1),
	RunE:    runCRNext,
}

var crValidateCmd = &cobra.Command{
	Use:   "validate <cr-id>",
	Short: "Re-run the chain analysis after propagation",
	Args:  cobra.ExactArgs(1),
	RunE:  runCRValidate,
}

var crCompleteCmd = &cobra.Command{
	Use:   "complete <cr-id>",
	Short: "Close a validated change request",
	Args:  cobra.ExactArgs(1),
	RunE:  runCRComplete,
}

var crStatusCmd = &cobra.Command{
	Use:   "status <cr-id>",
	Short: "Show a change request",
	Args:  cobra.ExactArgs(1),
	RunE:  runCRStatus,
}

var crListCmd = &cobra.Command{
	Use:   "list",
	Short: "List change requests",
	Args:  cobra.NoArgs,
	RunE:  runCRList,
}

var crCancelCmd = &cobra.Command{
	Use:   "cancel <cr-id>",
	Short: "Cancel a change request",
	Args:  cobra.ExactArgs(1),
	RunE:  runCRCancel,
}

var crReapproveCmd = &cobra.Command{
	Use:   "reapprove <cr-id>",
	Short: "Send a propagating change request back to approval",
	Args:  cobra.ExactArgs(1),
	RunE:  runCRReapprove,
}

var crIndexCmd = &cobra.Command{
	Use:   "index",
	Short: "Rebuild INDEX.md and index.db from the records",
	Args:  cobra.NoArgs,
	RunE:  runCRIndex,
}

func init() {
	addFormatFlag(crCmd)

	crCreateCmd.Flags().String("origin", "", "document type the change originated in")
	crCreateCmd.Flags().StringP("message", "m", "", "description of the change")
	crCreateCmd.Flags().StringSlice("ids", nil, "changed identifiers (comma separated)")
	crCreateCmd.Flags().String("old", "", "file holding the document text before the edit")
	crCreateCmd.Flags().String("new", "", "file holding the document text after the edit")
	_ = crCreateCmd.MarkFlagRequired("origin")
	_ = crCreateCmd.MarkFlagRequired("message")

	crNextCmd.Flags().String("note", "", "note recorded on the processed step")
	crNextCmd.Flags().Bool("skip", false, "mark the step skipped instead of done")

	crValidateCmd.Flags().Bool("partial", false, "validate even with pending steps")

	crStatusCmd.Flags().Bool("history", false, "also print the status history")

	crListCmd.Flags().String("status", "", "only list change requests in this status")

	crCancelCmd.Flags().String("reason", "", "reason recorded in history")
	crReapproveCmd.Flags().String("reason", "", "reason recorded in history")

	crCmd.AddCommand(crCreateCmd, crAnalyzeCmd, crApproveCmd, crNextCmd, crValidateCmd,
		crCompleteCmd, crStatusCmd, crListCmd, crCancelCmd, crReapproveCmd, crIndexCmd)
	rootCmd.AddCommand(crCmd)
}

func readOptionalFile(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func runCRCreate(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	origin, _ := cmd.Flags().GetString("origin")
	message, _ := cmd.Flags().GetString("message")
	ids, _ := cmd.Flags().GetStringSlice("ids")
	oldPath, _ := cmd.Flags().GetString("old")
	newPath, _ := cmd.Flags().GetString("new")
	oldContent, err := readOptionalFile(oldPath)
	if err != nil {
		return fmt.Errorf("reading --old: %w", err)
	}
	newContent, err := readOptionalFile(newPath)
	if err != nil {
		return fmt.Errorf("reading --new: %w", err)
	}

	c, err := a.svc.Create(cmd.Context(), workflow.CreateRequest{
		WorkspacePath: a.cfg.Workspace,
		OriginDoc:     origin,
		Description:   message,
		ChangedIDs:    ids,
		OldContent:    oldContent,
		NewContent:    newContent,
	})
	if err != nil {
		return err
	}
	return emit(cmd, c, func() {
		a.printer.Success(fmt.Sprintf("created %s", c.ID))
		a.printer.ChangeRequest(c)
	})
}

func runCRAnalyze(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.svc.Analyze(cmd.Context(), workflow.AnalyzeRequest{
		WorkspacePath: a.cfg.Workspace,
		CRID:          args[0],
		ConfigPath:    a.cfg.ProjectConfig,
	})
	if err != nil {
		return err
	}
	return emit(cmd, res, func() {
		a.printer.ChangeRequest(res.ChangeRequest)
		if !res.Report.Clean() {
			a.printer.Warn(fmt.Sprintf("chain has %d orphaned and %d missing id(s); see `vchain chain analyze`",
				len(res.Report.OrphanedIDs), len(res.Report.MissingIDs)))
		}
	})
}

func runCRApprove(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	c, err := a.svc.Approve(cmd.Context(), workflow.ApproveRequest{WorkspacePath: a.cfg.Workspace, CRID: args[0]})
	if err != nil {
		return err
	}
	return emit(cmd, c, func() {
		a.printer.Success(fmt.Sprintf("%s approved", c.ID))
		if len(c.ConflictWarnings) > 0 {
			a.printer.Conflicts(c.ConflictWarnings)
		}
	})
}

func runCRNext(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	note, _ := cmd.Flags().GetString("note")
	skip, _ := cmd.Flags().GetBool("skip")
	res, err := a.svc.PropagateNext(cmd.Context(), workflow.PropagateNextRequest{
		WorkspacePath: a.cfg.Workspace,
		CRID:          args[0],
		ConfigPath:    a.cfg.ProjectConfig,
		Note:          note,
		Skip:          skip,
	})
	if err != nil {
		return err
	}
	return emit(cmd, res, func() { a.printer.Propagation(res) })
}

func runCRValidate(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	partial, _ := cmd.Flags().GetBool("partial")
	res, err := a.svc.Validate(cmd.Context(), workflow.ValidateRequest{
		WorkspacePath: a.cfg.Workspace,
		CRID:          args[0],
		ConfigPath:    a.cfg.ProjectConfig,
		Partial:       partial,
	})
	if err != nil {
		return err
	}
	return emit(cmd, res, func() {
		a.printer.ChainReport(res.Report)
		a.printer.Success(fmt.Sprintf("%s validated", res.ChangeRequest.ID))
	})
}

func runCRComplete(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	c, err := a.svc.Complete(cmd.Context(), workflow.CompleteRequest{WorkspacePath: a.cfg.Workspace, CRID: args[0]})
	if err != nil {
		return err
	}
	return emit(cmd, c, func() { a.printer.Success(fmt.Sprintf("%s completed", c.ID)) })
}

func runCRStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	c, err := a.svc.Status(cmd.Context(), workflow.StatusRequest{WorkspacePath: a.cfg.Workspace, CRID: args[0]})
	if err != nil {
		return err
	}
	history, _ := cmd.Flags().GetBool("history")
	return emit(cmd, c, func() {
		a.printer.ChangeRequest(c)
		if history {
			a.printer.History(c)
		}
	})
}

func runCRList(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	status, _ := cmd.Flags().GetString("status")
	list, err := a.svc.List(cmd.Context(), workflow.ListRequest{WorkspacePath: a.cfg.Workspace, StatusFilter: status})
	if err != nil {
		return err
	}
	return emit(cmd, list, func() { a.printer.ChangeRequestList(list) })
}

func runCRCancel(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	reason, _ := cmd.Flags().GetString("reason")
	c, err := a.svc.Cancel(cmd.Context(), workflow.CancelRequest{WorkspacePath: a.cfg.Workspace, CRID: args[0], Reason: reason})
	if err != nil {
		return err
	}
	return emit(cmd, c, func() { a.printer.Success(fmt.Sprintf("%s cancelled", c.ID)) })
}

func runCRReapprove(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	reason, _ := cmd.Flags().GetString("reason")
	c, err := a.svc.Reapprove(cmd.Context(), workflow.ReapproveRequest{WorkspacePath: a.cfg.Workspace, CRID: args[0], Reason: reason})
	if err != nil {
		return err
	}
	return emit(cmd, c, func() {
		a.printer.Success(fmt.Sprintf("%s back to %s at step %d/%d", c.ID, cr.StatusApproved,
			c.PropagationIndex, len(c.PropagationSteps)))
		if len(c.ConflictWarnings) > 0 {
			a.printer.Conflicts(c.ConflictWarnings)
		}
	})
}

func runCRIndex(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	store, err := a.svc.Store(a.cfg.Workspace)
	if err != nil {
		return err
	}
	if err := store.RebuildIndex(cmd.Context()); err != nil {
		return err
	}
	a.printer.Success("index rebuilt: " + store.IndexPath())
	return nil
}
