// Package gen holds the resolved schema model and the passes that
// produce it: snippet expansion, dependency ordering, inheritance,
// reference and type resolution, query synthesis and interpolation.
// Rendering of output requests against the resolved model is
// orchestrated by package driver.
package gen

import "github.com/syssam/repack/compiler/ast"

// Primitives is the closed primitive type set of the schema language.
var Primitives = []string{
	"string", "int32", "int64", "float64", "boolean", "datetime", "uuid", "bytes",
}

// IsPrimitive reports whether name is a primitive type name.
func IsPrimitive(name string) bool {
	for _, p := range Primitives {
		if p == name {
			return true
		}
	}
	return false
}

// TypeKind discriminates a resolved field type.
type TypeKind int

const (
	// TypePrimitive is one of the closed primitive set.
	TypePrimitive TypeKind = iota
	// TypeEnum references a declared enum.
	TypeEnum
	// TypeObject references another declared object.
	TypeObject
)

// Type is a fully resolved type shape.
type Type struct {
	Kind     TypeKind
	Name     string
	Array    bool
	Optional bool
}

// Custom reports whether the type refers to a user-declared object or
// enum rather than a primitive.
func (t Type) Custom() bool { return t.Kind != TypePrimitive }

// RefKind discriminates how an external field reaches its source.
type RefKind int

const (
	// RefDirect is a reference to another object's field; the field is
	// still a column on the declaring object's own table.
	RefDirect RefKind = iota
	// RefSuper resolves against the parent object.
	RefSuper
	// RefJoin resolves through a join alias, declared or synthesized.
	RefJoin
)

// Ref records the resolved source of an external field.
type Ref struct {
	Kind      RefKind
	Object    string
	Field     string
	JoinAlias string
}

// Field is a resolved field.
type Field struct {
	Name      string
	Type      Type
	Functions []ast.Function
	Ref       *Ref
}

// Local reports whether the field maps to a column on the object's own
// table. Direct references are foreign-key columns and count as local
// for SQL purposes even though their type was copied from elsewhere.
func (f *Field) Local() bool {
	return f.Ref == nil || f.Ref.Kind == RefDirect
}

// External reports whether the field's type was copied from a
// reference.
func (f *Field) External() bool { return f.Ref != nil }

// Column returns the SQL column the field reads from.
func (f *Field) Column() string {
	if f.Ref != nil && f.Ref.Kind == RefJoin {
		return f.Ref.Field
	}
	if f.Ref != nil && f.Ref.Kind == RefSuper {
		return f.Ref.Field
	}
	return f.Name
}

// SourceTable returns the table or join alias that qualifies the
// field's column in generated SQL.
func (f *Field) SourceTable(o *Object) string {
	if f.Ref != nil && f.Ref.Kind == RefJoin {
		return f.Ref.JoinAlias
	}
	return o.Table
}

// Function returns the first field function matching ns:name, or nil.
func (f *Field) Function(ns, name string) *ast.Function {
	for i := range f.Functions {
		if f.Functions[i].Namespace == ns && f.Functions[i].Name == name {
			return &f.Functions[i]
		}
	}
	return nil
}

// FunctionsIn filters the field's functions by namespace and name.
func (f *Field) FunctionsIn(ns, name string) []ast.Function {
	var out []ast.Function
	for _, fn := range f.Functions {
		if fn.Namespace == ns && fn.Name == name {
			out = append(out, fn)
		}
	}
	return out
}

// Join is a resolved relational predicate. Auto marks joins synthesized
// for implicit references rather than declared in the schema.
type Join struct {
	Alias     string
	Object    string
	Table     string
	Predicate string
	Auto      bool
}

// Query is a resolved query: the body is the final SQL with positional
// parameters assigned, and Args lists the parameters in declaration
// order.
type Query struct {
	Name    string
	Args    []ast.QueryArg
	Body    string
	Returns ast.Cardinality
}

// Object is a fully resolved object. Fields of parented objects include
// the copied-through parent fields; Table is inherited when the object
// declared none.
type Object struct {
	Kind       ast.ObjectKind
	Name       string
	Parent     string
	Table      string
	Categories []string
	Fields     []*Field
	Functions  []ast.Function
	Joins      []*Join
	Queries    []*Query

	// superTable is the parent's table, kept for $super interpolation
	// even when the child declares its own table.
	superTable string
}

// Field returns the named field, or nil.
func (o *Object) Field(name string) *Field {
	for _, f := range o.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Join returns the join with the given alias, or nil.
func (o *Object) Join(alias string) *Join {
	for _, j := range o.Joins {
		if j.Alias == alias {
			return j
		}
	}
	return nil
}

// FunctionsIn filters the object's functions by namespace and name.
func (o *Object) FunctionsIn(ns, name string) []ast.Function {
	var out []ast.Function
	for _, fn := range o.Functions {
		if fn.Namespace == ns && fn.Name == name {
			out = append(out, fn)
		}
	}
	return out
}

// Graph is the resolved model: objects in dependency order plus every
// declaration rendering needs. The renderer never mutates it.
type Graph struct {
	Objects        []*Object
	Enums          []*ast.Enum
	Outputs        []*ast.Output
	Configurations []*ast.Configuration
	Instances      []*ast.Instance
}

// Object returns the named object, or nil.
func (g *Graph) Object(name string) *Object {
	for _, o := range g.Objects {
		if o.Name == name {
			return o
		}
	}
	return nil
}

// Enum returns the named enum, or nil.
func (g *Graph) Enum(name string) *ast.Enum {
	for _, e := range g.Enums {
		if e.Name == name {
			return e
		}
	}
	return nil
}

// ObjectsFor returns the objects included by an output request, in
// resolved order.
func (g *Graph) ObjectsFor(out *ast.Output) []*Object {
	var objs []*Object
	for _, o := range g.Objects {
		if included(o.Name, o.Categories, out) {
			objs = append(objs, o)
		}
	}
	return objs
}

// EnumsFor returns the enums included by an output request, in
// declaration order.
func (g *Graph) EnumsFor(out *ast.Output) []*ast.Enum {
	var enums []*ast.Enum
	for _, e := range g.Enums {
		if included(e.Name, e.Categories, out) {
			enums = append(enums, e)
		}
	}
	return enums
}

// InstancesFor returns the instances bound to one environment tag.
func (g *Graph) InstancesFor(environment string) []*ast.Instance {
	var insts []*ast.Instance
	for _, inst := range g.Instances {
		if inst.Environment == environment {
			insts = append(insts, inst)
		}
	}
	return insts
}

// included applies the output filter: a name passes when it is not
// excluded and either the output declares no categories or any of the
// item's categories matches.
func included(name string, categories []string, out *ast.Output) bool {
	for _, x := range out.Exclude {
		if x == name {
			return false
		}
	}
	if len(out.Categories) == 0 {
		return true
	}
	for _, c := range categories {
		for _, want := range out.Categories {
			if c == want {
				return true
			}
		}
	}
	return false
}
