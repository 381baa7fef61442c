package blueprint

import (
	"embed"
	"path"

	"github.com/syssam/repack/compiler/diag"
	"github.com/syssam/repack/compiler/env"
)

//go:embed templates/*.blueprint
var builtins embed.FS

// Store holds every loaded blueprint keyed by id. Parsing happens once
// per file; repeated output requests against the same blueprint reuse
// the cached tree.
type Store struct {
	byID  map[string]*Blueprint
	order []string
}

// NewStore returns a store preloaded with the built-in target
// blueprints.
func NewStore() (*Store, *diag.List) {
	errs := &diag.List{}
	s := &Store{byID: map[string]*Blueprint{}}
	entries, err := builtins.ReadDir("templates")
	if err != nil {
		errs.Add(diag.New(diag.CannotRead, "embedded templates"))
		return s, errs
	}
	for _, entry := range entries {
		src, err := builtins.ReadFile(path.Join("templates", entry.Name()))
		if err != nil {
			errs.Add(diag.New(diag.CannotRead, entry.Name()))
			continue
		}
		bp, loadErrs := Load(entry.Name(), src)
		errs.Merge(loadErrs)
		if !loadErrs.HasErrors() {
			s.add(bp)
		}
	}
	return s, errs
}

// LoadFile reads and parses one blueprint file through the
// environment. A user blueprint with the id of a built-in replaces it.
func (s *Store) LoadFile(e env.Environment, path string) *diag.List {
	errs := &diag.List{}
	src, err := e.ReadFile(path)
	if err != nil {
		errs.Add(diag.New(diag.CannotRead, path))
		return errs
	}
	bp, loadErrs := Load(path, src)
	errs.Merge(loadErrs)
	if !loadErrs.HasErrors() {
		s.add(bp)
	}
	return errs
}

func (s *Store) add(bp *Blueprint) {
	if _, exists := s.byID[bp.ID]; !exists {
		s.order = append(s.order, bp.ID)
	}
	s.byID[bp.ID] = bp
}

// Get returns the blueprint with the given id, or nil.
func (s *Store) Get(id string) *Blueprint {
	return s.byID[id]
}

// IDs returns every loaded blueprint id in load order.
func (s *Store) IDs() []string {
	return append([]string(nil), s.order...)
}
