package gen

import (
	"strconv"
	"strings"

	"github.com/syssam/repack/compiler/ast"
	"github.com/syssam/repack/compiler/diag"
)

// interpolate expands the interpolation variables of a manual query
// body against a resolved object and assigns positional parameters in
// order of first appearance. Unknown names emit the literal token
// "[err: name]" and record a diagnostic; the resulting SQL always ends
// with a semicolon.
func interpolate(obj *Object, q *ast.Query, errs *diag.List) *Query {
	in := &interpolator{
		obj:   obj,
		query: q,
		errs:  errs,
		slots: map[string]int{},
	}
	return in.run()
}

type interpolator struct {
	obj   *Object
	query *ast.Query
	errs  *diag.List
	slots map[string]int
}

func (in *interpolator) run() *Query {
	var b strings.Builder
	body := in.query.Body
	for i := 0; i < len(body); {
		if body[i] != '$' {
			b.WriteByte(body[i])
			i++
			continue
		}
		i++
		columnOnly := false
		if i < len(body) && body[i] == '#' {
			columnOnly = true
			i++
		}
		start := i
		for i < len(body) && isNamePart(body[i]) {
			i++
		}
		name := body[start:i]
		b.WriteString(in.expand(name, columnOnly))
	}
	sql := b.String()
	if !strings.HasSuffix(strings.TrimRight(sql, " \t\n"), ";") {
		sql += ";"
	}
	return &Query{
		Name:    in.query.Name,
		Args:    in.query.Args,
		Body:    sql,
		Returns: in.query.Returns,
	}
}

func (in *interpolator) expand(name string, columnOnly bool) string {
	scope := in.obj.Name + "." + in.query.Name
	if name == "" {
		in.errs.Add(diag.New(diag.QueryInvalidSyntax, "dangling '$'").InScope(scope))
		return "$"
	}
	if columnOnly {
		if f := in.obj.Field(name); f != nil {
			return f.Column()
		}
		if in.isArg(name) {
			return in.placeholder(name)
		}
		in.errs.Add(diag.New(diag.VariableNotInScope, name).InScope(scope))
		return "[err: " + name + "]"
	}
	switch name {
	case "table":
		return in.obj.Table
	case "fields":
		return in.fields()
	case "locations":
		return in.locations()
	}
	if in.isArg(name) {
		return in.placeholder(name)
	}
	if f := in.obj.Field(name); f != nil {
		return f.SourceTable(in.obj) + "." + f.Column()
	}
	in.errs.Add(diag.New(diag.VariableNotInScope, name).InScope(scope))
	return "[err: " + name + "]"
}

// fields renders the full select list: one "<source>.<column> AS
// <name>" per field, with a db:as function overriding the source
// expression.
func (in *interpolator) fields() string {
	parts := make([]string, 0, len(in.obj.Fields))
	for _, f := range in.obj.Fields {
		expr := f.SourceTable(in.obj) + "." + f.Column()
		if as := f.Function("db", "as"); as != nil && len(as.Args) > 0 {
			expr = as.Args[0]
		}
		parts = append(parts, expr+" AS "+f.Name)
	}
	return strings.Join(parts, ", ")
}

// locations renders the from-clause: the base table followed by an
// INNER JOIN segment per join, with the predicate template expanded.
func (in *interpolator) locations() string {
	var b strings.Builder
	b.WriteString(in.obj.Table)
	for _, j := range in.obj.Joins {
		b.WriteString(" INNER JOIN ")
		b.WriteString(j.Table)
		b.WriteString(" ")
		b.WriteString(j.Alias)
		b.WriteString(" ON ")
		b.WriteString(in.predicate(j))
	}
	return b.String()
}

// predicate expands $name, $super and $<alias> inside a join predicate
// template.
func (in *interpolator) predicate(j *Join) string {
	var b strings.Builder
	tmpl := j.Predicate
	for i := 0; i < len(tmpl); {
		if tmpl[i] != '$' {
			b.WriteByte(tmpl[i])
			i++
			continue
		}
		i++
		start := i
		for i < len(tmpl) && isNamePart(tmpl[i]) {
			i++
		}
		name := tmpl[start:i]
		switch {
		case name == "name":
			b.WriteString(in.obj.Table)
		case name == "super":
			b.WriteString(in.obj.superTable)
		case in.obj.Join(name) != nil:
			b.WriteString(name)
		default:
			in.errs.Add(diag.New(diag.VariableNotInScope, name).InScope(in.obj.Name + "." + in.query.Name))
			b.WriteString("[err: " + name + "]")
		}
	}
	return b.String()
}

func (in *interpolator) isArg(name string) bool {
	for _, arg := range in.query.Args {
		if arg.Name == name {
			return true
		}
	}
	return false
}

// placeholder returns the positional parameter for an argument,
// assigning numbers in order of first appearance.
func (in *interpolator) placeholder(name string) string {
	slot, ok := in.slots[name]
	if !ok {
		slot = len(in.slots) + 1
		in.slots[name] = slot
	}
	return "$" + strconv.Itoa(slot)
}

func isNamePart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
