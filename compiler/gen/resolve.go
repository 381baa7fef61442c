package gen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/syssam/repack/compiler/ast"
	"github.com/syssam/repack/compiler/diag"
)

// Resolve runs the fixed resolution pipeline over parsed declarations
// and produces the typed model. The passes run in order: snippet
// expansion, dependency ordering, inheritance propagation, external and
// custom type resolution, query synthesis and interpolation, and the
// field-name uniqueness check. Errors are scoped to the object or field
// that caused them and never abort sibling resolution, so two runs over
// the same input produce identical models and identical diagnostics.
func Resolve(schema *ast.Schema, errs *diag.List) *Graph {
	r := &resolver{
		schema:   schema,
		errs:     errs,
		resolved: map[string]*Object{},
	}
	return r.run()
}

type resolver struct {
	schema   *ast.Schema
	errs     *diag.List
	expanded []*ast.Object
	resolved map[string]*Object
}

func (r *resolver) run() *Graph {
	r.expandSnippets()
	ordered := r.orderDependencies()

	graph := &Graph{
		Enums:          r.schema.Enums,
		Outputs:        r.schema.Outputs,
		Configurations: r.schema.Configurations,
		Instances:      r.schema.Instances,
	}
	for _, decl := range ordered {
		obj := r.resolveObject(decl)
		graph.Objects = append(graph.Objects, obj)
		r.resolved[obj.Name] = obj
	}
	for i, obj := range graph.Objects {
		r.resolveQueries(obj, ordered[i])
	}
	for _, obj := range graph.Objects {
		r.checkFieldNames(obj)
	}
	return graph
}

// expandSnippets splices snippet fields and functions into every object
// body that includes them. The work happens on copies; parsed
// declarations stay untouched.
func (r *resolver) expandSnippets() {
	for _, decl := range r.schema.Objects {
		dup := *decl
		dup.Fields = append([]*ast.Field(nil), decl.Fields...)
		dup.Functions = append([]ast.Function(nil), decl.Functions...)

		offset := 0
		for _, use := range decl.Snippets {
			snip := r.schema.Snippet(use.Name)
			if snip == nil {
				r.errs.Add(diag.New(diag.SnippetNotFound, use.Name).InScope(decl.Name))
				continue
			}
			at := use.Index + offset
			rest := append([]*ast.Field(nil), dup.Fields[at:]...)
			dup.Fields = append(append(dup.Fields[:at:at], snip.Fields...), rest...)
			offset += len(snip.Fields)
			dup.Functions = append(dup.Functions, snip.Functions...)
		}
		r.expanded = append(r.expanded, &dup)
	}
}

// dependsOn lists the object names a declaration must see resolved
// first: its parent, custom field types, external reference targets and
// join targets.
func (r *resolver) dependsOn(decl *ast.Object) []string {
	seen := map[string]bool{}
	var deps []string
	add := func(name string) {
		if name == "" || name == decl.Name || seen[name] {
			return
		}
		if obj := r.declared(name); obj != nil {
			seen[name] = true
			deps = append(deps, name)
		}
	}
	add(decl.Parent)
	for _, f := range decl.Fields {
		add(f.Type.Name)
		add(f.Type.RefHead)
	}
	for _, j := range decl.Joins {
		add(j.Object)
	}
	return deps
}

func (r *resolver) declared(name string) *ast.Object {
	for _, o := range r.expanded {
		if o.Name == name {
			return o
		}
	}
	return nil
}

// orderDependencies topologically sorts the expanded objects so every
// object is resolved after everything it depends on. Ties keep
// declaration order; cycles are reported once with the offending set
// and its members appended in declaration order so later passes still
// see them.
func (r *resolver) orderDependencies() []*ast.Object {
	pending := append([]*ast.Object(nil), r.expanded...)
	done := map[string]bool{}
	var ordered []*ast.Object

	for len(pending) > 0 {
		progress := false
		for i := 0; i < len(pending); i++ {
			ready := true
			for _, dep := range r.dependsOn(pending[i]) {
				if !done[dep] {
					ready = false
					break
				}
			}
			if ready {
				ordered = append(ordered, pending[i])
				done[pending[i].Name] = true
				pending = append(pending[:i], pending[i+1:]...)
				progress = true
				i--
			}
		}
		if !progress {
			names := make([]string, len(pending))
			for i, o := range pending {
				names[i] = o.Name
			}
			sorted := append([]string(nil), names...)
			sort.Strings(sorted)
			r.errs.Add(diag.New(diag.CircularDependancy, strings.Join(sorted, ", ")).InScope(pending[0].Name))
			ordered = append(ordered, pending...)
			break
		}
	}
	return ordered
}

// resolveObject produces the typed object: inherited table and fields,
// resolved joins, then every field's type.
func (r *resolver) resolveObject(decl *ast.Object) *Object {
	obj := &Object{
		Kind:       decl.Kind,
		Name:       decl.Name,
		Parent:     decl.Parent,
		Table:      decl.Table,
		Categories: decl.Categories,
		Functions:  decl.Functions,
	}

	var parent *Object
	if decl.Parent != "" {
		parent = r.resolved[decl.Parent]
		if parent == nil {
			if r.declared(decl.Parent) == nil {
				r.errs.Add(diag.New(diag.ParentObjectDoesNotExist, decl.Parent).InScope(decl.Name))
			}
		} else {
			obj.superTable = parent.Table
			if obj.Table == "" {
				obj.Table = parent.Table
			}
			for _, f := range parent.Fields {
				dup := *f
				obj.Fields = append(obj.Fields, &dup)
			}
			for _, j := range parent.Joins {
				dup := *j
				obj.Joins = append(obj.Joins, &dup)
			}
		}
	}
	if decl.Kind == ast.Synthetic && obj.Table == "" && parent != nil {
		r.errs.Add(diag.Newf(diag.CannotCreateContext, "synthetic object %s inherited no table", decl.Name).InScope(decl.Name))
	}

	for _, j := range decl.Joins {
		if obj.Join(j.Alias) != nil {
			r.errs.Add(diag.Newf(diag.InvalidJoin, "duplicate join alias %s", j.Alias).InScope(decl.Name))
			continue
		}
		target := r.resolved[j.Object]
		if target == nil {
			r.errs.Add(diag.New(diag.InvalidJoin, j.Object).InScope(decl.Name))
			continue
		}
		obj.Joins = append(obj.Joins, &Join{
			Alias:     j.Alias,
			Object:    j.Object,
			Table:     target.Table,
			Predicate: j.Predicate,
		})
	}

	for _, f := range decl.Fields {
		obj.Fields = append(obj.Fields, r.resolveField(obj, parent, f))
	}
	return obj
}

// resolveField resolves one declared field against the partially built
// object. External locations resolve in order: super, a join alias, a
// local field (which synthesizes a join), and finally an object name.
func (r *resolver) resolveField(obj *Object, parent *Object, decl *ast.Field) *Field {
	field := &Field{Name: decl.Name, Functions: decl.Functions}
	scope := obj.Name + "." + decl.Name

	if decl.Type.IsRef() {
		head, name := decl.Type.RefHead, decl.Type.RefField
		switch {
		case head == "super":
			if parent == nil {
				r.errs.Add(diag.New(diag.InvalidSuper, head+"."+name).InScope(scope))
				return field
			}
			src := parent.Field(name)
			if src == nil {
				r.errs.Add(diag.New(diag.FieldNotOnSuper, name).InScope(scope))
				return field
			}
			field.Type = src.Type
			field.Ref = &Ref{Kind: RefSuper, Object: parent.Name, Field: name}

		case obj.Join(head) != nil:
			join := obj.Join(head)
			target := r.resolved[join.Object]
			if target == nil {
				r.errs.Add(diag.New(diag.InvalidJoin, join.Object).InScope(scope))
				return field
			}
			src := target.Field(name)
			if src == nil {
				r.errs.Add(diag.New(diag.FieldNotOnJoin, name).InScope(scope))
				return field
			}
			field.Type = src.Type
			field.Ref = &Ref{Kind: RefJoin, Object: join.Object, Field: name, JoinAlias: head}

		case obj.Field(head) != nil:
			r.implicitJoin(obj, field, head, name, scope)

		default:
			target := r.resolved[head]
			if target == nil {
				r.errs.Add(diag.New(diag.UnknownObject, head).InScope(scope))
				return field
			}
			src := target.Field(name)
			if src == nil {
				r.errs.Add(diag.New(diag.FieldNotFound, head+"."+name).InScope(scope))
				return field
			}
			field.Type = src.Type
			field.Ref = &Ref{Kind: RefDirect, Object: head, Field: name}
		}
		return field
	}

	field.Type = r.resolveType(obj, decl, scope)
	return field
}

// implicitJoin resolves "from(localField.name)": the local field must
// itself reference another object, and a join on that object is
// synthesized under the alias "j_<localField>".
func (r *resolver) implicitJoin(obj *Object, field *Field, head, name, scope string) {
	local := obj.Field(head)
	if local.Ref == nil || local.Ref.Kind != RefDirect {
		r.errs.Add(diag.Newf(diag.InvalidJoin, "field %s does not reference another object", head).InScope(scope))
		return
	}
	target := r.resolved[local.Ref.Object]
	if target == nil {
		r.errs.Add(diag.New(diag.UnknownObject, local.Ref.Object).InScope(scope))
		return
	}
	src := target.Field(name)
	if src == nil {
		r.errs.Add(diag.New(diag.FieldNotOnJoin, name).InScope(scope))
		return
	}

	alias := "j_" + head
	if obj.Join(alias) == nil {
		obj.Joins = append(obj.Joins, &Join{
			Alias:     alias,
			Object:    target.Name,
			Table:     target.Table,
			Predicate: fmt.Sprintf("$%s.%s = $name.%s", alias, local.Ref.Field, head),
			Auto:      true,
		})
	}
	field.Type = src.Type
	field.Ref = &Ref{Kind: RefJoin, Object: target.Name, Field: name, JoinAlias: alias}
}

// resolveType maps a plain type name onto the primitive set, a declared
// enum or a declared object.
func (r *resolver) resolveType(obj *Object, decl *ast.Field, scope string) Type {
	typ := Type{Name: decl.Type.Name, Array: decl.Type.Array, Optional: decl.Type.Optional}
	switch {
	case typ.Name == "":
		r.errs.Add(diag.New(diag.TypeNotResolved, "").InScope(scope))
	case IsPrimitive(typ.Name):
		typ.Kind = TypePrimitive
	case r.schema.Enum(typ.Name) != nil:
		typ.Kind = TypeEnum
	case r.declared(typ.Name) != nil:
		typ.Kind = TypeObject
	default:
		r.errs.Add(diag.New(diag.CustomTypeNotDefined, typ.Name).InScope(scope))
		return typ
	}
	if typ.Array && obj.Kind == ast.Record {
		r.errs.Add(diag.Newf(diag.TypeNotSupported, "records cannot hold arrays").InScope(scope))
	}
	return typ
}

// resolveQueries rewrites the generated query forms into manual SQL and
// interpolates every query body against the resolved object.
func (r *resolver) resolveQueries(obj *Object, decl *ast.Object) {
	for _, q := range decl.Queries {
		scope := obj.Name + "." + q.Name
		r.checkArgNames(q, scope)
		manual := r.rewriteQuery(obj, q, scope)
		if manual == nil {
			continue
		}
		obj.Queries = append(obj.Queries, interpolate(obj, manual, r.errs))
	}
}

// rewriteQuery turns insert and update declarations into the manual
// CTE-wrapped form; manual queries pass through unchanged.
func (r *resolver) rewriteQuery(obj *Object, q *ast.Query, scope string) *ast.Query {
	switch q.Kind {
	case ast.QueryManual:
		return q
	case ast.QueryInsert:
		if obj.Table == "" {
			r.errs.Add(diag.Newf(diag.QueryInvalidSyntax, "insert %s requires a table", q.Name).InScope(scope))
			return nil
		}
		var args []ast.QueryArg
		var params []string
		for _, name := range q.Fields {
			f := obj.Field(name)
			if f == nil {
				r.errs.Add(diag.New(diag.FieldNotFound, name).InScope(scope))
				return nil
			}
			args = append(args, ast.QueryArg{Name: name, Type: f.Type.Name})
			params = append(params, "$"+name)
		}
		body := fmt.Sprintf(
			"WITH %s AS (INSERT INTO %s (%s) VALUES (%s) RETURNING *) SELECT $fields FROM $locations",
			obj.Table, obj.Table, strings.Join(q.Fields, ", "), strings.Join(params, ", "),
		)
		return &ast.Query{Name: q.Name, Kind: ast.QueryManual, Args: args, Body: body, Returns: q.Returns, Pos: q.Pos}
	default: // ast.QueryUpdate
		if obj.Table == "" {
			r.errs.Add(diag.Newf(diag.QueryInvalidSyntax, "update %s requires a table", q.Name).InScope(scope))
			return nil
		}
		// Field interpolation inside user fragments is column-only.
		fragment := strings.ReplaceAll(q.Body, "$", "$#")
		body := fmt.Sprintf(
			"WITH %s AS (UPDATE %s %s RETURNING *) SELECT $fields FROM $locations",
			obj.Table, obj.Table, fragment,
		)
		return &ast.Query{Name: q.Name, Kind: ast.QueryManual, Args: q.Args, Body: body, Returns: q.Returns, Pos: q.Pos}
	}
}

func (r *resolver) checkArgNames(q *ast.Query, scope string) {
	seen := map[string]bool{}
	for _, arg := range q.Args {
		if seen[arg.Name] {
			r.errs.Add(diag.Newf(diag.QueryArgInvalidSyntax, "duplicate argument %s", arg.Name).InScope(scope))
		}
		seen[arg.Name] = true
	}
}

func (r *resolver) checkFieldNames(obj *Object) {
	seen := map[string]bool{}
	for _, f := range obj.Fields {
		if seen[f.Name] {
			r.errs.Add(diag.New(diag.DuplicateFieldNames, f.Name).InScope(obj.Name + "." + f.Name))
		}
		seen[f.Name] = true
	}
}
