package chain

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/papapumpkin/vchain/internal/dag"
)

func TestDefaultSchema(t *testing.T) {
	t.Parallel()
	s := Default()

	if got := len(s.DocTypes()); got != 17 {
		t.Errorf("DocTypes() len = %d, want 17", got)
	}
	if got := len(s.Edges()); got != 50 {
		t.Errorf("Edges() len = %d, want 50", got)
	}

	t.Run("edges point forward", func(t *testing.T) {
		t.Parallel()
		for _, e := range s.Edges() {
			if s.Rank(e.Upstream) >= s.Rank(e.Downstream) {
				t.Errorf("edge %s points backward in trace order", e)
			}
		}
	})

	t.Run("graph is acyclic", func(t *testing.T) {
		t.Parallel()
		order, err := s.Graph().TopologicalSort()
		if err != nil {
			t.Fatalf("TopologicalSort: %v", err)
		}
		if len(order) != 17 {
			t.Errorf("order has %d nodes, want 17", len(order))
		}
	})

	t.Run("ownership", func(t *testing.T) {
		t.Parallel()
		if diff := cmp.Diff([]DocType{Requirements, NFR}, s.Owners("NFR")); diff != "" {
			t.Errorf("Owners(NFR) (-want +got):\n%s", diff)
		}
		if !s.Owns(BasicDesign, "SCR") {
			t.Error("basic-design should own SCR")
		}
		if s.Owns(DetailDesign, "SCR") {
			t.Error("detail-design should not own SCR")
		}
		if got := s.OwnedPrefixes(Sitemap); len(got) != 0 {
			t.Errorf("OwnedPrefixes(sitemap) = %v, want none", got)
		}
	})

	t.Run("neighbors in declaration order", func(t *testing.T) {
		t.Parallel()
		want := []DocType{Requirements, NFR, FunctionsList}
		if diff := cmp.Diff(want, s.Predecessors(BasicDesign)); diff != "" {
			t.Errorf("Predecessors(basic-design) (-want +got):\n%s", diff)
		}
	})
}

func TestNewSchemaRejects(t *testing.T) {
	t.Parallel()

	docs := []DocSpec{{Type: "a", Prefixes: []string{"A"}}, {Type: "b"}}
	tests := []struct {
		name    string
		docs    []DocSpec
		edges   []Edge
		wantErr error
	}{
		{name: "unknown upstream", docs: docs, edges: []Edge{{"x", "b"}}, wantErr: ErrUnknownDocType},
		{name: "unknown downstream", docs: docs, edges: []Edge{{"a", "x"}}, wantErr: ErrUnknownDocType},
		{name: "cycle", docs: docs, edges: []Edge{{"a", "b"}, {"b", "a"}}, wantErr: dag.ErrCycle},
		{name: "duplicate type", docs: append(docs, DocSpec{Type: "a"}), wantErr: ErrDuplicateDocType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := NewSchema(tt.docs, tt.edges); !errors.Is(err, tt.wantErr) {
				t.Errorf("NewSchema() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestWithOwnedPrefixes(t *testing.T) {
	t.Parallel()
	base := Default()

	s, err := base.WithOwnedPrefixes(map[DocType][]string{BasicDesign: {"scrn"}})
	if err != nil {
		t.Fatalf("WithOwnedPrefixes: %v", err)
	}
	if !s.Owns(BasicDesign, "SCRN") {
		t.Error("derived schema should own SCRN")
	}
	if base.Owns(BasicDesign, "SCRN") {
		t.Error("base schema must be unchanged")
	}
	if _, err := base.WithOwnedPrefixes(map[DocType][]string{"nope": {"X"}}); !errors.Is(err, ErrUnknownDocType) {
		t.Errorf("unknown type: got %v, want ErrUnknownDocType", err)
	}
}

func TestSafeJoin(t *testing.T) {
	t.Parallel()
	base := t.TempDir()

	tests := []struct {
		rel     string
		wantErr bool
	}{
		{rel: "docs/requirements.md"},
		{rel: "./a/../b.md"},
		{rel: "../outside.md", wantErr: true},
		{rel: "docs/../../outside.md", wantErr: true},
		{rel: "/etc/passwd", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			t.Parallel()
			_, err := SafeJoin(base, tt.rel)
			if tt.wantErr && !errors.Is(err, ErrPathEscape) {
				t.Errorf("SafeJoin(%q) = %v, want ErrPathEscape", tt.rel, err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("SafeJoin(%q) unexpected error: %v", tt.rel, err)
			}
		})
	}
}

func TestLoadProject(t *testing.T) {
	t.Parallel()

	t.Run("missing file uses default layout", func(t *testing.T) {
		t.Parallel()
		ws := t.TempDir()
		p, err := LoadProject(ws, "", Default())
		if err != nil {
			t.Fatalf("LoadProject: %v", err)
		}
		if p.Source != "" {
			t.Errorf("Source = %q, want empty", p.Source)
		}
		got, err := p.DocumentPath(Requirements)
		if err != nil {
			t.Fatalf("DocumentPath: %v", err)
		}
		if want := filepath.Join(ws, "docs", "requirements.md"); got != want {
			t.Errorf("DocumentPath = %q, want %q", got, want)
		}
	})

	t.Run("overrides and prefixes", func(t *testing.T) {
		t.Parallel()
		ws := t.TempDir()
		cfg := `[project]
name = "Orders"

[documents]
basic-design = "spec/basic.md"

[prefixes]
basic-design = ["SCRN"]
`
		if err := os.WriteFile(filepath.Join(ws, ProjectFile), []byte(cfg), 0o644); err != nil {
			t.Fatal(err)
		}
		p, err := LoadProject(ws, "", Default())
		if err != nil {
			t.Fatalf("LoadProject: %v", err)
		}
		if p.Name != "Orders" {
			t.Errorf("Name = %q, want Orders", p.Name)
		}
		if p.Documents[BasicDesign] != "spec/basic.md" {
			t.Errorf("basic-design path = %q", p.Documents[BasicDesign])
		}
		if p.Documents[Requirements] != DefaultDocumentPath(Requirements) {
			t.Errorf("requirements path = %q, want default", p.Documents[Requirements])
		}
		if !p.Schema.Owns(BasicDesign, "SCRN") {
			t.Error("project schema should own SCRN")
		}
	})

	t.Run("invalid entries", func(t *testing.T) {
		t.Parallel()
		cases := map[string]error{
			"[documents]\nbogus = \"x.md\"\n":           ErrUnknownDocType,
			"[documents]\nrequirements = \"../x.md\"\n": ErrPathEscape,
			"[prefixes]\nbogus = [\"X\"]\n":             ErrUnknownDocType,
		}
		for cfg, want := range cases {
			ws := t.TempDir()
			path := filepath.Join(ws, "custom.toml")
			if err := os.WriteFile(path, []byte(cfg), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := LoadProject(ws, "custom.toml", Default())
			if !errors.Is(err, want) {
				t.Errorf("config %q: got %v, want %v", cfg, err, want)
			}
			var ce *ConfigError
			if !errors.As(err, &ce) {
				t.Errorf("config %q: error is not *ConfigError", cfg)
			}
		}
	})
}
