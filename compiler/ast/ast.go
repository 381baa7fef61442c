// Package ast holds the parse-time representation of schema files.
// Declarations are immutable after parsing; the resolver consumes them
// and produces the fully typed model in compiler/gen.
package ast

import "github.com/syssam/repack/compiler/token"

// ObjectKind discriminates the three object forms.
type ObjectKind int

const (
	// Record is backed by a database table and cannot hold arrays.
	Record ObjectKind = iota
	// Struct lives in memory only and may hold arrays.
	Struct
	// Synthetic inherits a parent's table and extends it with computed
	// fields.
	Synthetic
)

// String returns the surface keyword for the kind.
func (k ObjectKind) String() string {
	switch k {
	case Record:
		return "record"
	case Struct:
		return "struct"
	default:
		return "synthetic"
	}
}

// TypeExpr is a field's unresolved type expression. Exactly one of Name
// or (RefHead, RefField) is set: Name for primitives, enums and custom
// object types; the ref pair for external locations written
// "from(head.field)" or "head.field".
type TypeExpr struct {
	Name     string
	RefHead  string
	RefField string
	Array    bool
	Optional bool
}

// IsRef reports whether the expression is an external location.
func (t TypeExpr) IsRef() bool { return t.RefHead != "" }

// Function is a namespaced annotation such as db:pk or db:default("0"),
// attached to a field or an object.
type Function struct {
	Namespace string
	Name      string
	Args      []string
	Pos       token.Position
}

// Field is a single field declaration.
type Field struct {
	Name      string
	Type      TypeExpr
	Functions []Function
	Pos       token.Position
}

// Join attaches a named relational predicate to an object. The
// predicate is a literal template interpolated during query expansion.
type Join struct {
	Alias     string
	Object    string
	Predicate string
	Pos       token.Position
}

// QueryKind discriminates manual queries from the generated forms.
type QueryKind int

const (
	QueryManual QueryKind = iota
	QueryInsert
	QueryUpdate
)

// Cardinality is a query's declared return shape.
type Cardinality int

const (
	ReturnsNone Cardinality = iota
	ReturnsOne
	ReturnsMany
)

// String returns the surface spelling of the cardinality.
func (c Cardinality) String() string {
	switch c {
	case ReturnsOne:
		return "one"
	case ReturnsMany:
		return "many"
	default:
		return "none"
	}
}

// QueryArg is a named, typed query parameter.
type QueryArg struct {
	Name string
	Type string
}

// Query is a declared SQL operation. For QueryInsert the Fields list
// holds the inserted column names and Body is empty; for QueryUpdate the
// Body holds the user-supplied fragment.
type Query struct {
	Name    string
	Kind    QueryKind
	Args    []QueryArg
	Fields  []string
	Body    string
	Returns Cardinality
	Pos     token.Position
}

// SnippetUse records a "!Name" inclusion site inside an object body.
// Index is the number of fields declared before the inclusion, so the
// resolver can splice the snippet's fields back in place.
type SnippetUse struct {
	Name  string
	Index int
	Pos   token.Position
}

// Object is a record, struct or synthetic declaration.
type Object struct {
	Kind       ObjectKind
	Name       string
	Parent     string
	Table      string
	Categories []string
	Fields     []*Field
	Functions  []Function
	Snippets   []SnippetUse
	Joins      []*Join
	Queries    []*Query
	Pos        token.Position
}

// EnumCase is a single enum case; Value falls back to Name when no
// explicit value was written.
type EnumCase struct {
	Name  string
	Value string
}

// Val returns the case's effective string value.
func (c EnumCase) Val() string {
	if c.Value != "" {
		return c.Value
	}
	return c.Name
}

// Enum is an enum declaration.
type Enum struct {
	Name       string
	Categories []string
	Cases      []EnumCase
	Pos        token.Position
}

// Snippet is a reusable, parse-only bundle of fields and functions that
// gets spliced into object bodies before resolution.
type Snippet struct {
	Name      string
	Fields    []*Field
	Functions []Function
	Pos       token.Position
}

// Output is a single output request: which blueprint to run, where to
// write, and how to filter the model.
type Output struct {
	Blueprint  string
	Path       string
	Categories []string
	Exclude    []string
	Options    map[string]string
	Pos        token.Position
}

// Option returns a string option with a fallback.
func (o *Output) Option(key, fallback string) string {
	if v, ok := o.Options[key]; ok {
		return v
	}
	return fallback
}

// Bool returns a boolean option with a fallback.
func (o *Output) Bool(key string, fallback bool) bool {
	if v, ok := o.Options[key]; ok {
		return v == "true"
	}
	return fallback
}

// Configuration declares the keys an instance of it must provide.
type Configuration struct {
	Name string
	Keys []string
	Pos  token.Position
}

// Instance binds concrete values to a configuration for one deployment
// environment.
type Instance struct {
	Name          string
	Environment   string
	Configuration string
	Values        map[string]string
	Pos           token.Position
}

// Import references another schema file (or a "dir/*" glob) to load.
type Import struct {
	Path string
	Pos  token.Position
}

// BlueprintRef enqueues a template file for loading.
type BlueprintRef struct {
	Path string
	Pos  token.Position
}

// Schema aggregates every declaration parsed from one file. The loader
// merges the schemas of imported files into a single one.
type Schema struct {
	Objects        []*Object
	Enums          []*Enum
	Snippets       []*Snippet
	Outputs        []*Output
	Configurations []*Configuration
	Instances      []*Instance
	Imports        []Import
	Blueprints     []BlueprintRef
}

// Merge appends every declaration of other into s. Imports are not
// merged; the loader consumes them per file.
func (s *Schema) Merge(other *Schema) {
	s.Objects = append(s.Objects, other.Objects...)
	s.Enums = append(s.Enums, other.Enums...)
	s.Snippets = append(s.Snippets, other.Snippets...)
	s.Outputs = append(s.Outputs, other.Outputs...)
	s.Configurations = append(s.Configurations, other.Configurations...)
	s.Instances = append(s.Instances, other.Instances...)
	s.Blueprints = append(s.Blueprints, other.Blueprints...)
}

// Object returns the named object, or nil.
func (s *Schema) Object(name string) *Object {
	for _, o := range s.Objects {
		if o.Name == name {
			return o
		}
	}
	return nil
}

// Enum returns the named enum, or nil.
func (s *Schema) Enum(name string) *Enum {
	for _, e := range s.Enums {
		if e.Name == name {
			return e
		}
	}
	return nil
}

// Snippet returns the named snippet, or nil.
func (s *Schema) Snippet(name string) *Snippet {
	for _, sn := range s.Snippets {
		if sn.Name == name {
			return sn
		}
	}
	return nil
}
