package checkpoint

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDirectoryCheckpoint(t *testing.T) {
	t.Parallel()
	ws := t.TempDir()
	state := filepath.Join(ws, ".vchain")
	req := filepath.Join(ws, "docs", "requirements.md")
	writeFile(t, req, "REQ-001")

	c := New(ws, state, ModeDir)
	ref, err := c.Checkpoint(context.Background(), "CR-261018-001", []string{req, filepath.Join(ws, "docs", "missing.md")})
	if err != nil {
		t.Fatalf("Checkpoint: %v", err)
	}
	want := "dir:" + filepath.Join(state, "checkpoints", "CR-261018-001")
	if ref != want {
		t.Errorf("ref = %q, want %q", ref, want)
	}
	data, err := os.ReadFile(filepath.Join(state, "checkpoints", "CR-261018-001", "docs", "requirements.md"))
	if err != nil {
		t.Fatalf("reading snapshot: %v", err)
	}
	if string(data) != "REQ-001" {
		t.Errorf("snapshot = %q", data)
	}
}

func TestAutoFallsBackOutsideGit(t *testing.T) {
	t.Parallel()
	ws := t.TempDir()
	req := filepath.Join(ws, "docs", "requirements.md")
	writeFile(t, req, "REQ-001")
	c := New(ws, filepath.Join(ws, ".vchain"), "")
	ref, err := c.Checkpoint(context.Background(), "CR-261018-002", []string{req})
	if err != nil {
		t.Fatalf("Checkpoint: %v", err)
	}
	if !strings.HasPrefix(ref, "dir:") {
		t.Errorf("ref = %q, want directory checkpoint", ref)
	}
}

func TestDirectoryCheckpointWithoutDocuments(t *testing.T) {
	t.Parallel()
	ws := t.TempDir()
	state := filepath.Join(ws, ".vchain")

	c := New(ws, state, ModeDir)
	ref, err := c.Checkpoint(context.Background(), "CR-261018-004", []string{filepath.Join(ws, "docs", "missing.md")})
	if !errors.Is(err, ErrNothingCopied) {
		t.Fatalf("Checkpoint() = %q, %v; want ErrNothingCopied", ref, err)
	}
	if _, err := os.Stat(filepath.Join(state, "checkpoints", "CR-261018-004")); !os.IsNotExist(err) {
		t.Errorf("empty checkpoint directory left behind: %v", err)
	}
}

func TestGitCheckpoint(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	ws := t.TempDir()
	run := func(args ...string) {
		t.Helper()
		cmd := exec.Command("git", append([]string{"-C", ws}, args...)...)
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
	}
	run("init", "-q")
	run("config", "user.email", "test@example.com")
	run("config", "user.name", "test")
	writeFile(t, filepath.Join(ws, "docs", "requirements.md"), "REQ-001")
	run("add", "-A")
	run("commit", "-q", "-m", "init")

	c := New(ws, filepath.Join(ws, ".vchain"), ModeAuto)
	ref, err := c.Checkpoint(context.Background(), "CR-261018-003", nil)
	if err != nil {
		t.Fatalf("Checkpoint: %v", err)
	}
	if !strings.HasPrefix(ref, "git:"+RefPrefix+"CR-261018-003@") {
		t.Errorf("ref = %q, want git ref", ref)
	}
	run("rev-parse", "--verify", RefPrefix+"CR-261018-003")
}

func TestCheckpointRejects(t *testing.T) {
	t.Parallel()
	ws := t.TempDir()

	if _, err := New(ws, ws, ModeOff).Checkpoint(context.Background(), "x", nil); !errors.Is(err, ErrDisabled) {
		t.Errorf("off: got %v, want ErrDisabled", err)
	}
	if _, err := New(ws, ws, ModeDir).Checkpoint(context.Background(), "../x", nil); !errors.Is(err, ErrInvalidLabel) {
		t.Errorf("bad label: got %v, want ErrInvalidLabel", err)
	}
	if _, err := ParseMode("sometimes"); err == nil {
		t.Error("ParseMode accepted an unknown mode")
	}
	if m, err := ParseMode(""); err != nil || m != ModeAuto {
		t.Errorf("ParseMode(\"\") = %q, %v", m, err)
	}
}
