package arch_test

import (
	"go/ast"
	"go/parser"
	"go/token"
	"testing"
)

// allowedGlobals lists package-level vars that fall outside the constant-like
// patterns but are accepted anyway, keyed by package.
var allowedGlobals = map[string][]string{}

// constantLike reports whether a package-level var is effectively constant:
// an error sentinel, a compiled regexp, a sync or atomic primitive, a basic
// literal, or a composite literal used as a lookup table.
func constantLike(typ, val ast.Expr) bool {
	if id, ok := typ.(*ast.Ident); ok && id.Name == "error" {
		return true
	}
	if sel, ok := typ.(*ast.SelectorExpr); ok {
		if pkg, ok := sel.X.(*ast.Ident); ok && (pkg.Name == "sync" || pkg.Name == "atomic") {
			return true
		}
	}
	switch v := val.(type) {
	case *ast.BasicLit, *ast.CompositeLit:
		return true
	case *ast.CallExpr:
		sel, ok := v.Fun.(*ast.SelectorExpr)
		if !ok {
			return false
		}
		pkg, ok := sel.X.(*ast.Ident)
		if !ok {
			return false
		}
		switch pkg.Name + "." + sel.Sel.Name {
		case "errors.New", "fmt.Errorf", "regexp.MustCompile":
			return true
		}
	}
	return false
}

// mutableGlobals returns the package-level vars of file that are not
// constant-like, skipping blank identifiers and allowed names.
func mutableGlobals(file *ast.File, allowed map[string]bool) []string {
	var out []string
	for _, decl := range file.Decls {
		gd, ok := decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.VAR {
			continue
		}
		for _, spec := range gd.Specs {
			vs := spec.(*ast.ValueSpec)
			for i, name := range vs.Names {
				if name.Name == "_" || allowed[name.Name] {
					continue
				}
				var val ast.Expr
				if i < len(vs.Values) {
					val = vs.Values[i]
				}
				if !constantLike(vs.Type, val) {
					out = append(out, name.Name)
				}
			}
		}
	}
	return out
}

// TestNoMutableGlobalState flags package-level vars that hold mutable
// state. Such state belongs in a struct built by a constructor.
func TestNoMutableGlobalState(t *testing.T) {
	t.Parallel()

	for _, pkg := range packages(t) {
		allowed := make(map[string]bool)
		for _, name := range allowedGlobals[pkg.Name] {
			allowed[name] = true
		}
		for _, f := range pkg.Sources() {
			for _, name := range mutableGlobals(f.AST, allowed) {
				t.Errorf("mutable global state in %s: var %s; use dependency injection or move it into a function",
					f.Rel, name)
			}
		}
	}
}

func TestMutableGlobalsDetection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		src     string
		mutable bool
	}{
		{name: "errors.New", src: `var ErrX = errors.New("x")`},
		{name: "fmt.Errorf", src: `var ErrY = fmt.Errorf("y: %w", ErrX)`},
		{name: "error type", src: `var ErrZ error`},
		{name: "regexp", src: `var re = regexp.MustCompile("^a$")`},
		{name: "mutex", src: `var mu sync.Mutex`},
		{name: "literal", src: `var name = "vchain"`},
		{name: "lookup table", src: `var table = map[string]int{"a": 1}`},
		{name: "interface check", src: `var _ = (*T)(nil)`},
		{name: "make map", src: `var cache = make(map[string]string)`, mutable: true},
		{name: "make chan", src: `var events = make(chan int)`, mutable: true},
		{name: "pointer", src: `var current *T`, mutable: true},
		{name: "constructor", src: `var client = http.DefaultClient`, mutable: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			file, err := parser.ParseFile(token.NewFileSet(), "p.go", "package p\n"+tt.src, 0)
			if err != nil {
				t.Fatalf("parsing: %v", err)
			}
			got := mutableGlobals(file, nil)
			if (len(got) > 0) != tt.mutable {
				t.Errorf("mutableGlobals(%q) = %v, want mutable=%v", tt.src, got, tt.mutable)
			}
		})
	}
}

func TestAllowedGlobalsAreDeclared(t *testing.T) {
	t.Parallel()

	byName := make(map[string]pkgInfo)
	for _, pkg := range packages(t) {
		byName[pkg.Name] = pkg
	}
	for pkgName, names := range allowedGlobals {
		pkg, ok := byName[pkgName]
		if !ok {
			t.Errorf("allowedGlobals names unknown package %q", pkgName)
			continue
		}
		declared := make(map[string]bool)
		for _, f := range pkg.Sources() {
			for _, name := range mutableGlobals(f.AST, nil) {
				declared[name] = true
			}
		}
		for _, name := range names {
			if !declared[name] {
				t.Errorf("allowedGlobals[%q] contains %q but no such mutable var exists", pkgName, name)
			}
		}
	}
}
