// Package checkpoint snapshots a workspace before a change request starts
// rewriting documents, so a failed propagation run can be reverted.
//
// In a git work tree the snapshot is a commit object stored under
// refs/vchain/checkpoints/<label>: the output of "git stash create", or
// HEAD when the tree is clean. Elsewhere the given files are copied into
// <state>/checkpoints/<label>/.
package checkpoint

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
)

// Mode selects the checkpoint mechanism.
type Mode string

const (
	ModeAuto Mode = "auto" // git when available, directory copy otherwise
	ModeGit  Mode = "git"  // commit to a private ref
	ModeDir  Mode = "dir"  // copy documents under the state directory
	ModeOff  Mode = "off"  // no checkpoints
)

// RefPrefix is where git checkpoints are stored.
const RefPrefix = "refs/vchain/checkpoints/"

// ErrDisabled is returned when checkpoints are turned off.
var ErrDisabled = errors.New("checkpoints disabled")

// ErrInvalidLabel is returned for labels unsafe as a ref or directory name.
var ErrInvalidLabel = errors.New("invalid checkpoint label")

// ErrNothingCopied is returned by a directory checkpoint when none of the
// given files exist.
var ErrNothingCopied = errors.New("no documents to checkpoint")

var labelPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Checkpointer takes workspace checkpoints.
type Checkpointer struct {
	workspace string
	stateDir  string
	mode      Mode
}

// New returns a checkpointer for workspace that stores directory
// snapshots under stateDir. An empty mode means ModeAuto.
func New(workspace, stateDir string, mode Mode) *Checkpointer {
	if mode == "" {
		mode = ModeAuto
	}
	return &Checkpointer{workspace: workspace, stateDir: stateDir, mode: mode}
}

// ParseMode validates a configured mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeAuto, nil
	case ModeAuto, ModeGit, ModeDir, ModeOff:
		return m, nil
	default:
		return "", fmt.Errorf("unknown checkpoint mode %q", s)
	}
}

// Checkpoint snapshots the workspace under label and returns a reference
// describing where the snapshot lives ("git:<ref>@<sha>" or "dir:<path>").
// files are absolute paths used by the directory fallback; missing files
// are skipped, and ErrNothingCopied is returned when none exist.
func (c *Checkpointer) Checkpoint(ctx context.Context, label string, files []string) (string, error) {
	if !labelPattern.MatchString(label) {
		return "", fmt.Errorf("%w: %q", ErrInvalidLabel, label)
	}
	switch c.mode {
	case ModeOff:
		return "", ErrDisabled
	case ModeDir:
		return c.copyFiles(label, files)
	case ModeGit:
		return c.gitCheckpoint(ctx, label)
	}
	if isGitWorkTree(ctx, c.workspace) {
		if ref, err := c.gitCheckpoint(ctx, label); err == nil {
			return ref, nil
		}
	}
	return c.copyFiles(label, files)
}

func isGitWorkTree(ctx context.Context, dir string) bool {
	if _, err := exec.LookPath("git"); err != nil {
		return false
	}
	out, err := exec.CommandContext(ctx, "git", "-C", dir, "rev-parse", "--is-inside-work-tree").Output()
	return err == nil && strings.TrimSpace(string(out)) == "true"
}

func (c *Checkpointer) git(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", c.workspace}, args...)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(string(out)), nil
}

func (c *Checkpointer) gitCheckpoint(ctx context.Context, label string) (string, error) {
	sha, err := c.git(ctx, "stash", "create", "vchain checkpoint "+label)
	if err != nil {
		return "", err
	}
	if sha == "" {
		// Clean tree: HEAD already captures it.
		if sha, err = c.git(ctx, "rev-parse", "--verify", "HEAD"); err != nil {
			return "", err
		}
	}
	ref := RefPrefix + label
	if _, err := c.git(ctx, "update-ref", ref, sha); err != nil {
		return "", err
	}
	return "git:" + ref + "@" + sha, nil
}

func (c *Checkpointer) copyFiles(label string, files []string) (string, error) {
	dest := filepath.Join(c.stateDir, "checkpoints", label)
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return "", fmt.Errorf("creating checkpoint dir: %w", err)
	}
	copied := 0
	for _, src := range files {
		rel, err := filepath.Rel(c.workspace, src)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			rel = filepath.Base(src)
		}
		if err := copyFile(src, filepath.Join(dest, rel)); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return "", err
		}
		copied++
	}
	if copied == 0 {
		os.Remove(dest)
		return "", fmt.Errorf("%w in %s", ErrNothingCopied, c.workspace)
	}
	return "dir:" + dest, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(dst), err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copying %s: %w", src, err)
	}
	return out.Close()
}
