// Package load reads schema sources from disk and follows their import
// graph. The result is one merged ast.Schema plus the list of blueprint
// files the schema asked for, each path resolved relative to the file
// that referenced it.
package load

import (
	"path/filepath"
	"strings"

	"github.com/syssam/repack/compiler/ast"
	"github.com/syssam/repack/compiler/diag"
	"github.com/syssam/repack/compiler/env"
	"github.com/syssam/repack/compiler/parser"
	"github.com/syssam/repack/compiler/token"
)

// Loader loads a root schema file and everything it imports.
type Loader struct {
	Env  env.Environment
	seen map[string]bool
}

// New returns a Loader backed by the given environment.
func New(e env.Environment) *Loader {
	return &Loader{Env: e, seen: map[string]bool{}}
}

// Load reads the schema rooted at path. Import declarations are
// followed transitively; a path ending in "*" loads every .repack file
// in the directory. Each file is loaded at most once. Blueprint paths
// come back resolved against their declaring file's directory.
func (l *Loader) Load(path string) (*ast.Schema, []string, *diag.List) {
	errs := &diag.List{}
	schema := &ast.Schema{}
	var blueprints []string
	l.loadFile(path, schema, &blueprints, errs)
	return schema, blueprints, errs
}

func (l *Loader) loadFile(path string, into *ast.Schema, blueprints *[]string, errs *diag.List) {
	clean := filepath.Clean(path)
	if l.seen[clean] {
		return
	}
	l.seen[clean] = true

	src, err := l.Env.ReadFile(clean)
	if err != nil {
		errs.Add(diag.New(diag.CannotRead, clean))
		return
	}

	fileSchema := &ast.Schema{}
	parser.Parse(token.Scan(clean, src), fileSchema, errs)
	into.Merge(fileSchema)

	dir := filepath.Dir(clean)
	for _, ref := range fileSchema.Blueprints {
		*blueprints = append(*blueprints, resolve(dir, ref.Path))
	}
	for _, imp := range fileSchema.Imports {
		for _, target := range l.expand(dir, imp, errs) {
			l.loadFile(target, into, blueprints, errs)
		}
	}
}

// expand resolves one import declaration into concrete file paths.
func (l *Loader) expand(dir string, imp ast.Import, errs *diag.List) []string {
	target := resolve(dir, imp.Path)
	if !strings.HasSuffix(imp.Path, "*") {
		return []string{target}
	}
	matches, err := l.Env.Glob(filepath.Join(filepath.Dir(target), "*.repack"))
	if err != nil {
		errs.Add(diag.Newf(diag.PathNotValid, "%s: %s", imp.Pos, imp.Path))
		return nil
	}
	return matches
}

func resolve(dir, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(dir, path)
}
