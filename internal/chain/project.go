package chain

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	toml "github.com/pelletier/go-toml/v2"
)

// ProjectFile is the default project configuration file name.
const ProjectFile = "vchain.toml"

// DefaultDocDir is the workspace-relative directory holding documents when
// the project configuration does not map a type explicitly.
const DefaultDocDir = "docs"

// Project binds a schema to a workspace: where each document type lives
// and which extra prefixes the project declares.
type Project struct {
	Name      string
	Workspace string
	// Source is the configuration file the project was loaded from, or ""
	// when the default layout is in effect.
	Source    string
	Schema    *Schema
	Documents map[DocType]string // workspace-relative paths
}

// projectFile mirrors the on-disk TOML layout.
type projectFile struct {
	Project struct {
		Name string `toml:"name"`
	} `toml:"project"`
	Documents map[string]string   `toml:"documents"`
	Prefixes  map[string][]string `toml:"prefixes"`
}

// DefaultProject returns a project using the default layout
// docs/<doc-type>.md for every document type.
func DefaultProject(workspace string, schema *Schema) *Project {
	p := &Project{
		Workspace: workspace,
		Schema:    schema,
		Documents: make(map[DocType]string, len(schema.docs)),
	}
	for _, dt := range schema.DocTypes() {
		p.Documents[dt] = DefaultDocumentPath(dt)
	}
	return p
}

// DefaultDocumentPath returns the default workspace-relative path of dt.
func DefaultDocumentPath(dt DocType) string {
	return filepath.Join(DefaultDocDir, string(dt)+".md")
}

// LoadProject reads the project configuration at path. A relative path is
// resolved against the workspace; an empty path means <workspace>/vchain.toml.
// A missing file yields the default layout. Entries under [documents]
// override the default path of their type; [prefixes] adds owned prefixes.
func LoadProject(workspace, path string, base *Schema) (*Project, error) {
	if path == "" {
		path = ProjectFile
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(workspace, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultProject(workspace, base), nil
		}
		return nil, fmt.Errorf("reading project config: %w", err)
	}

	var pf projectFile
	if err := toml.Unmarshal(data, &pf); err != nil {
		return nil, &ConfigError{SourceFile: path, Err: fmt.Errorf("parsing TOML: %w", err)}
	}

	extra := make(map[DocType][]string, len(pf.Prefixes))
	for _, name := range sortedKeys(pf.Prefixes) {
		dt, err := base.ParseDocType(name)
		if err != nil {
			return nil, &ConfigError{SourceFile: path, Key: "prefixes." + name, Err: err}
		}
		extra[dt] = pf.Prefixes[name]
	}
	schema, err := base.WithOwnedPrefixes(extra)
	if err != nil {
		return nil, &ConfigError{SourceFile: path, Key: "prefixes", Err: err}
	}

	p := DefaultProject(workspace, schema)
	p.Name = pf.Project.Name
	p.Source = path
	for _, name := range sortedKeys(pf.Documents) {
		dt, err := schema.ParseDocType(name)
		if err != nil {
			return nil, &ConfigError{SourceFile: path, Key: "documents." + name, Err: err}
		}
		rel := pf.Documents[name]
		if _, err := SafeJoin(workspace, rel); err != nil {
			return nil, &ConfigError{SourceFile: path, Key: "documents." + name, Err: err}
		}
		p.Documents[dt] = rel
	}
	return p, nil
}

// DocumentPath returns the absolute path of dt's document.
func (p *Project) DocumentPath(dt DocType) (string, error) {
	rel, ok := p.Documents[dt]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownDocType, dt)
	}
	return SafeJoin(p.Workspace, rel)
}

// DocumentPaths resolves every configured document, keyed by type. Types
// whose path escapes the workspace are omitted.
func (p *Project) DocumentPaths() map[DocType]string {
	out := make(map[DocType]string, len(p.Documents))
	for dt := range p.Documents {
		if abs, err := p.DocumentPath(dt); err == nil {
			out[dt] = abs
		}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
