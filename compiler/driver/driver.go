// Package driver orchestrates the compile pipeline: load and parse the
// schema, resolve it once, then render every output request whose
// blueprint kind matches the requested command and write (or remove)
// the produced files.
package driver

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/syssam/repack/compiler/ast"
	"github.com/syssam/repack/compiler/blueprint"
	"github.com/syssam/repack/compiler/diag"
	"github.com/syssam/repack/compiler/env"
	"github.com/syssam/repack/compiler/gen"
	"github.com/syssam/repack/compiler/load"
	"github.com/syssam/repack/compiler/render"
)

// Mode selects which outputs a run touches.
type Mode int

const (
	// Build renders outputs whose blueprints are of kind code.
	Build Mode = iota
	// Document renders outputs of kind document.
	Document
	// Configure renders outputs of kind configure for one environment.
	Configure
	// Clean removes every file a prior run would have produced.
	Clean
)

// Config carries the run parameters.
type Config struct {
	// Schema is the path of the top-level schema file.
	Schema string
	// Env is the environment collaborator; defaults to the real one.
	Env env.Environment
	// Blueprints lists extra template files to load before the run.
	Blueprints []string
	// Workers bounds render parallelism; defaults to GOMAXPROCS.
	Workers int
	// Verbose enables progress output on stderr.
	Verbose bool
}

// Run executes one invocation and returns every accumulated
// diagnostic. Rendering only happens when loading and resolution were
// clean; renderer failures in one output never abort the others, and
// diagnostics aggregate in output order regardless of scheduling.
func Run(cfg Config, mode Mode, environment string) *diag.List {
	errs := &diag.List{}
	e := cfg.Env
	if e == nil {
		e = env.OS{}
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	schema, bpPaths, loadErrs := load.New(e).Load(cfg.Schema)
	errs.Merge(loadErrs)
	graph := gen.Resolve(schema, errs)

	store, storeErrs := blueprint.NewStore()
	errs.Merge(storeErrs)
	for _, path := range append(bpPaths, cfg.Blueprints...) {
		errs.Merge(store.LoadFile(e, path))
	}
	if errs.HasErrors() {
		return errs
	}

	type target struct {
		out *ast.Output
		bp  *blueprint.Blueprint
	}
	var targets []target
	for _, out := range graph.Outputs {
		bp := store.Get(out.Blueprint)
		if bp == nil {
			errs.Add(diag.Newf(diag.CannotCreateContext, "no blueprint with id %s is loaded", out.Blueprint).InProfile(out.Blueprint))
			continue
		}
		if mode != Clean && bp.Kind != wantedKind(mode) {
			continue
		}
		targets = append(targets, target{out: out, bp: bp})
	}

	var instances []*ast.Instance
	if mode == Configure {
		instances = graph.InstancesFor(environment)
	}

	results := make([]struct {
		files []render.File
		errs  *diag.List
	}, len(targets))

	var eg errgroup.Group
	eg.SetLimit(workers)
	for i, t := range targets {
		i, t := i, t
		eg.Go(func() error {
			renderErrs := &diag.List{}
			r := render.New(graph, t.bp, t.out, instances, e, renderErrs)
			results[i].files = r.Run()
			results[i].errs = renderErrs
			return nil
		})
	}
	_ = eg.Wait()

	schemaDir := filepath.Dir(cfg.Schema)
	for i, t := range targets {
		errs.Merge(results[i].errs)
		root := filepath.Join(schemaDir, t.out.Path)
		for _, f := range results[i].files {
			path := filepath.Join(root, f.Path)
			switch mode {
			case Clean:
				if cfg.Verbose {
					fmt.Fprintf(os.Stderr, "repack: removing %s\n", path)
				}
				if err := e.Remove(path); err != nil {
					errs.Add(diag.New(diag.CannotWrite, path).InProfile(t.out.Blueprint))
				}
			default:
				if cfg.Verbose {
					fmt.Fprintf(os.Stderr, "repack: writing %s (%d bytes)\n", path, len(f.Content))
				}
				if err := e.WriteFile(path, f.Content); err != nil {
					errs.Add(diag.New(diag.CannotWrite, path).InProfile(t.out.Blueprint))
				}
			}
		}
		if mode == Clean {
			_ = e.RemoveDirIfEmpty(root)
		}
	}
	return errs
}

func wantedKind(mode Mode) blueprint.Kind {
	switch mode {
	case Document:
		return blueprint.Document
	case Configure:
		return blueprint.Configure
	default:
		return blueprint.Code
	}
}
