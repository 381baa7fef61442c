package render

import (
	"sort"
	"strconv"

	"github.com/syssam/repack/compiler/ast"
	"github.com/syssam/repack/compiler/gen"
)

// scope is one frame of the renderer's variable stack. Lookups walk
// outward, so inner bindings shadow outer ones; flags behave the same
// way.
type scope struct {
	parent   *scope
	vars     map[string]string
	flags    map[string]bool
	object   *gen.Object
	field    *gen.Field
	enum     *ast.Enum
	query    *gen.Query
	funcArgs []string
	instance *ast.Instance
}

func newScope(parent *scope) *scope {
	return &scope{
		parent: parent,
		vars:   map[string]string{},
		flags:  map[string]bool{},
	}
}

func (s *scope) lookup(name string) (string, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if v, ok := cur.vars[name]; ok {
			return v, true
		}
	}
	return "", false
}

func (s *scope) flag(name string) bool {
	for cur := s; cur != nil; cur = cur.parent {
		if v, ok := cur.flags[name]; ok {
			return v
		}
	}
	return false
}

func (s *scope) currentObject() *gen.Object {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.object != nil {
			return cur.object
		}
	}
	return nil
}

func (s *scope) currentField() *gen.Field {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.field != nil {
			return cur.field
		}
	}
	return nil
}

func (s *scope) currentEnum() *ast.Enum {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.enum != nil {
			return cur.enum
		}
	}
	return nil
}

func (s *scope) currentQuery() *gen.Query {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.query != nil {
			return cur.query
		}
	}
	return nil
}

func (s *scope) currentInstance() *ast.Instance {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.instance != nil {
			return cur.instance
		}
	}
	return nil
}

// location names the innermost model element for diagnostics.
func (s *scope) location() string {
	obj := s.currentObject()
	switch {
	case obj != nil && s.currentField() != nil:
		return obj.Name + "." + s.currentField().Name
	case obj != nil && s.currentQuery() != nil:
		return obj.Name + "." + s.currentQuery().Name
	case obj != nil:
		return obj.Name
	case s.currentEnum() != nil:
		return s.currentEnum().Name
	default:
		return ""
	}
}

// withObject binds an object iteration frame.
func withObject(parent *scope, obj *gen.Object) *scope {
	sc := newScope(parent)
	sc.object = obj
	sc.vars["name"] = obj.Name
	sc.vars["table"] = obj.Table
	sc.flags["record"] = obj.Kind == ast.Record
	sc.flags["struct"] = obj.Kind == ast.Struct
	sc.flags["syn"] = obj.Kind == ast.Synthetic
	sc.flags["has_joins"] = len(obj.Joins) > 0
	sc.flags["queries"] = len(obj.Queries) > 0
	return sc
}

// withField binds a field iteration frame. The "type" variable is
// resolved lazily by the renderer so imports only trigger when a
// template actually emits the type.
func withField(parent *scope, obj *gen.Object, f *gen.Field) *scope {
	sc := newScope(parent)
	sc.field = f
	sc.vars["name"] = f.Name
	sc.vars["object_name"] = obj.Name
	sc.vars["ref_table"] = f.SourceTable(obj)
	sc.vars["ref_field"] = f.Column()
	sc.flags["optional"] = f.Type.Optional
	sc.flags["array"] = f.Type.Array
	sc.flags["custom"] = f.Type.Custom()
	sc.flags["local"] = f.Local()
	sc.flags["enum"] = f.Type.Kind == gen.TypeEnum
	if f.Type.Kind == gen.TypePrimitive {
		sc.flags[f.Type.Name] = true
	}
	return sc
}

// withEnum binds an enum iteration frame.
func withEnum(parent *scope, e *ast.Enum) *scope {
	sc := newScope(parent)
	sc.enum = e
	sc.vars["name"] = e.Name
	return sc
}

// withCase binds an enum case frame; the value falls back to the case
// name.
func withCase(parent *scope, e *ast.Enum, c ast.EnumCase) *scope {
	sc := newScope(parent)
	sc.vars["enum_name"] = e.Name
	sc.vars["name"] = c.Name
	sc.vars["value"] = c.Val()
	return sc
}

// withQuery binds a query iteration frame.
func withQuery(parent *scope, q *gen.Query) *scope {
	sc := newScope(parent)
	sc.query = q
	sc.vars["name"] = q.Name
	sc.vars["sql"] = q.Body
	sc.flags["returns_one"] = q.Returns == ast.ReturnsOne
	sc.flags["returns_many"] = q.Returns == ast.ReturnsMany
	sc.flags["returns_none"] = q.Returns == ast.ReturnsNone
	sc.flags["has_args"] = len(q.Args) > 0
	return sc
}

// withQueryArg binds one argument of a query iteration.
func withQueryArg(parent *scope, arg ast.QueryArg, index int) *scope {
	sc := newScope(parent)
	sc.vars["name"] = arg.Name
	sc.vars["type"] = arg.Type
	sc.vars["index"] = strconv.Itoa(index + 1)
	return sc
}

// withFuncArgs binds a matched function's arguments as the variables
// "0", "1", ...
func withFuncArgs(parent *scope, fn ast.Function) *scope {
	sc := newScope(parent)
	for i, arg := range fn.Args {
		sc.vars[strconv.Itoa(i)] = arg
	}
	sc.flags["has_args"] = len(fn.Args) > 0
	return sc
}

// withInstance binds a configuration instance frame; every instance
// value becomes a variable.
func withInstance(parent *scope, inst *ast.Instance) *scope {
	sc := newScope(parent)
	sc.instance = inst
	sc.vars["name"] = inst.Name
	sc.vars["environment"] = inst.Environment
	for k, v := range inst.Values {
		sc.vars[k] = v
	}
	return sc
}

// withValue binds one key/value pair of an instance.
func withValue(parent *scope, key, value string) *scope {
	sc := newScope(parent)
	sc.vars["key"] = key
	sc.vars["value"] = value
	return sc
}

// sortedKeys returns an instance's value keys in stable order.
func sortedKeys(values map[string]string) []string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
