// Package repack is a schema-driven, multi-target code generator. A
// schema file declares enums, objects and their relationships together
// with database queries and output requests; blueprints (template
// files) drive the emission of each requested target, from PostgreSQL
// DDL to TypeScript, Go and Rust types and Markdown documentation.
//
// The compile pipeline lives under compiler/: token and parser build
// the declarations, gen resolves them into the typed model, blueprint
// and render evaluate templates against it, and driver orchestrates a
// whole invocation. The repack command in cmd/repack is a thin CLI over
// the driver.
package repack

import "github.com/syssam/repack/compiler/driver"

// Version is the release version of the module.
const Version = "0.4.0"

// Build compiles a schema and renders every output of kind code. It is
// a convenience wrapper around driver.Run for library callers.
func Build(schema string) error {
	errs := driver.Run(driver.Config{Schema: schema}, driver.Build, "")
	if errs.HasErrors() {
		return errs.Errors()[0]
	}
	return nil
}
