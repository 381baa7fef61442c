// Package render evaluates a blueprint's token tree against the
// resolved model and produces the files of one output request. The
// renderer is a recursive tree walker over a variable stack; it never
// mutates the model.
package render

import (
	"strconv"
	"strings"

	"github.com/syssam/repack/compiler/ast"
	"github.com/syssam/repack/compiler/blueprint"
	"github.com/syssam/repack/compiler/diag"
	"github.com/syssam/repack/compiler/env"
	"github.com/syssam/repack/compiler/gen"
)

// importsMark is the placeholder written at an [imports] site and
// patched with the file's import block once rendering finishes.
const importsMark = "\x00imports\x00"

// File is one rendered output file, relative to the output request's
// destination path.
type File struct {
	Path    string
	Content []byte
}

// Renderer evaluates one blueprint against one output request.
type Renderer struct {
	graph     *gen.Graph
	bp        *blueprint.Blueprint
	out       *ast.Output
	instances []*ast.Instance
	env       env.Environment
	errs      *diag.List

	files    map[string]*fileBuf
	order    []string
	current  *fileBuf
	captures []*strings.Builder
	snippets map[string][]blueprint.Node
	counters map[string]int
	types    map[string]string
	links    map[string]string
}

type fileBuf struct {
	data      []byte
	imports   []string
	importSet map[string]bool
}

// New builds a renderer. Instances may be nil outside configure mode.
func New(graph *gen.Graph, bp *blueprint.Blueprint, out *ast.Output, instances []*ast.Instance, e env.Environment, errs *diag.List) *Renderer {
	return &Renderer{
		graph:     graph,
		bp:        bp,
		out:       out,
		instances: instances,
		env:       e,
		errs:      errs,
		files:     map[string]*fileBuf{},
		snippets:  map[string][]blueprint.Node{},
		counters:  map[string]int{},
		types:     map[string]string{},
		links:     map[string]string{},
	}
}

// Run walks the blueprint and returns the rendered files in creation
// order. Diagnostics land in the list passed to New.
func (r *Renderer) Run() []File {
	root := newScope(nil)
	for k, v := range r.out.Options {
		root.vars[k] = v
	}
	r.render(r.bp.Nodes, root)

	out := make([]File, 0, len(r.order))
	for _, path := range r.order {
		f := r.files[path]
		out = append(out, File{Path: path, Content: []byte(r.patchImports(f))})
	}
	return out
}

func (r *Renderer) patchImports(f *fileBuf) string {
	content := string(f.data)
	block := ""
	if len(f.imports) > 0 {
		block = strings.Join(f.imports, "\n") + "\n\n"
	}
	return strings.ReplaceAll(content, importsMark, block)
}

func (r *Renderer) render(nodes []blueprint.Node, sc *scope) {
	for _, n := range nodes {
		switch node := n.(type) {
		case blueprint.Text:
			r.write(node.Value)
		case *blueprint.Tag:
			r.tag(node, sc)
		}
	}
}

func (r *Renderer) tag(tag *blueprint.Tag, sc *scope) {
	switch tag.Main {
	case "meta":
		// Handled at load time.
	case "file":
		r.setFile(r.renderToString(tag.Children, sc))
	case "if":
		if sc.flag(tag.Arg) {
			r.render(tag.Children, sc)
		}
	case "ifn":
		if !sc.flag(tag.Arg) {
			r.render(tag.Children, sc)
		}
	case "each":
		r.each(tag, sc, false)
	case "eachr":
		r.each(tag, sc, true)
	case "define":
		r.types[tag.Arg] = r.renderToString(tag.Children, sc)
	case "link":
		r.links[tag.Arg] = r.renderToString(tag.Children, sc)
	case "func":
		r.funcTag(tag, sc, false)
	case "nfunc":
		r.funcTag(tag, sc, true)
	case "join":
		r.joinTag(tag, sc)
	case "ref":
		r.refTag(tag, sc)
	case "trim":
		r.trim(r.renderToString(tag.Children, sc))
	case "exec":
		r.exec(r.renderToString(tag.Children, sc), sc)
	case "snippet":
		r.snippets[tag.Arg] = tag.Children
	case "render":
		body, ok := r.snippets[tag.Arg]
		if !ok {
			r.errf(sc, diag.UnknownSnippet, tag.Arg)
			return
		}
		r.render(body, sc)
	case "imports":
		r.write(importsMark)
	case "import":
		r.importTag(tag, sc)
	case "increment":
		r.counters[tag.Arg]++
	case "br":
		r.write("\n")
	default:
		r.variable(tag, sc)
	}
}

// each runs one iteration directive. The sep flag is true on every
// element but the last.
func (r *Renderer) each(tag *blueprint.Tag, sc *scope, reverse bool) {
	iterate := func(n int, frame func(i int) *scope) {
		for i := 0; i < n; i++ {
			idx := i
			if reverse {
				idx = n - 1 - i
			}
			sub := frame(idx)
			sub.flags["sep"] = i < n-1
			r.render(tag.Children, sub)
		}
	}

	switch tag.Arg {
	case "struct":
		objs := r.graph.ObjectsFor(r.out)
		iterate(len(objs), func(i int) *scope { return withObject(sc, objs[i]) })
	case "field":
		obj := sc.currentObject()
		if obj == nil {
			r.errf(sc, diag.CannotCreateContext, "each field needs an object scope")
			return
		}
		iterate(len(obj.Fields), func(i int) *scope { return withField(sc, obj, obj.Fields[i]) })
	case "enum":
		enums := r.graph.EnumsFor(r.out)
		iterate(len(enums), func(i int) *scope { return withEnum(sc, enums[i]) })
	case "case":
		e := sc.currentEnum()
		if e == nil {
			r.errf(sc, diag.CannotCreateContext, "each case needs an enum scope")
			return
		}
		iterate(len(e.Cases), func(i int) *scope { return withCase(sc, e, e.Cases[i]) })
	case "query":
		obj := sc.currentObject()
		if obj == nil {
			r.errf(sc, diag.CannotCreateContext, "each query needs an object scope")
			return
		}
		iterate(len(obj.Queries), func(i int) *scope { return withQuery(sc, obj.Queries[i]) })
	case "arg":
		r.eachArg(tag, sc, iterate)
	case "instance":
		iterate(len(r.instances), func(i int) *scope { return withInstance(sc, r.instances[i]) })
	case "value":
		inst := sc.currentInstance()
		if inst == nil {
			r.errf(sc, diag.CannotCreateContext, "each value needs an instance scope")
			return
		}
		keys := sortedKeys(inst.Values)
		iterate(len(keys), func(i int) *scope { return withValue(sc, keys[i], inst.Values[keys[i]]) })
	default:
		r.errf(sc, diag.CannotCreateContext, "each "+tag.Arg)
	}
}

func (r *Renderer) eachArg(tag *blueprint.Tag, sc *scope, iterate func(n int, frame func(i int) *scope)) {
	if q := sc.currentQuery(); q != nil {
		iterate(len(q.Args), func(i int) *scope {
			sub := withQueryArg(sc, q.Args[i], i)
			sub.vars["type"] = r.typeText(q.Args[i].Type)
			return sub
		})
		return
	}
	for cur := sc; cur != nil; cur = cur.parent {
		if cur.funcArgs != nil {
			args := cur.funcArgs
			iterate(len(args), func(i int) *scope {
				sub := newScope(sc)
				sub.vars["arg"] = args[i]
				return sub
			})
			return
		}
	}
	r.errf(sc, diag.CannotCreateContext, "each arg needs a query or function scope")
}

// funcTag runs the body once per matching function on the current
// field or object; nfunc runs it once when nothing matches.
func (r *Renderer) funcTag(tag *blueprint.Tag, sc *scope, negate bool) {
	ns, name, ok := strings.Cut(tag.Arg, ".")
	if !ok {
		r.errf(sc, diag.FunctionInvalidSyntax, tag.Arg)
		return
	}
	var fns []ast.Function
	if f := sc.currentField(); f != nil {
		fns = f.FunctionsIn(ns, name)
	} else if obj := sc.currentObject(); obj != nil {
		fns = obj.FunctionsIn(ns, name)
	}
	if negate {
		if len(fns) == 0 {
			r.render(tag.Children, newScope(sc))
		}
		return
	}
	for _, fn := range fns {
		sub := withFuncArgs(sc, fn)
		args := fn.Args
		if args == nil {
			args = []string{}
		}
		sub.funcArgs = args
		r.render(tag.Children, sub)
	}
}

// joinTag iterates the current object's joins.
func (r *Renderer) joinTag(tag *blueprint.Tag, sc *scope) {
	obj := sc.currentObject()
	if obj == nil {
		r.errf(sc, diag.CannotCreateContext, "join needs an object scope")
		return
	}
	for i, j := range obj.Joins {
		sub := newScope(sc)
		sub.vars["name"] = j.Alias
		sub.vars["object"] = j.Object
		sub.vars["table"] = j.Table
		sub.vars["on"] = j.Predicate
		sub.flags["sep"] = i < len(obj.Joins)-1
		r.render(tag.Children, sub)
	}
}

// refTag runs its body in the scope of the current field's reference
// source; fields without a reference skip the body. Direct references
// run it even though they count as local columns.
func (r *Renderer) refTag(tag *blueprint.Tag, sc *scope) {
	f := sc.currentField()
	if f == nil {
		r.errf(sc, diag.CannotCreateContext, "ref needs a field scope")
		return
	}
	if f.Ref == nil {
		return
	}
	sub := newScope(sc)
	sub.vars["ref_object"] = f.Ref.Object
	sub.vars["ref_field"] = f.Ref.Field
	if f.Ref.JoinAlias != "" {
		sub.vars["ref_table"] = f.Ref.JoinAlias
	}
	r.render(tag.Children, sub)
}

// variable resolves a variable reference with optional dotted
// modifiers.
func (r *Renderer) variable(tag *blueprint.Tag, sc *scope) {
	parts := strings.Split(tag.Main, ".")
	value, ok := r.resolveVar(parts[0], sc)
	if !ok {
		r.errf(sc, diag.VariableNotInScope, parts[0])
		return
	}
	for _, mod := range parts[1:] {
		next, ok := applyModifier(value, mod)
		if !ok {
			r.errf(sc, diag.InvalidVariableModifier, mod)
		}
		value = next
	}
	r.write(value)
}

func (r *Renderer) resolveVar(name string, sc *scope) (string, bool) {
	if v, ok := sc.lookup(name); ok {
		return v, true
	}
	if name == "type" {
		if f := sc.currentField(); f != nil {
			return r.fieldType(f, sc), true
		}
	}
	if c, ok := r.counters[name]; ok {
		return strconv.Itoa(c), true
	}
	return "", false
}

// fieldType renders a field's type name through the define map and
// triggers the matching link import. Emission is lazy: fields whose
// type a template never writes add no imports.
func (r *Renderer) fieldType(f *gen.Field, sc *scope) string {
	if f.Type.Kind == gen.TypePrimitive {
		mapped, ok := r.types[f.Type.Name]
		if !ok {
			r.errf(sc, diag.TypeNotSupported, f.Type.Name)
			return f.Type.Name
		}
		if link, ok := r.links[f.Type.Name]; ok {
			r.addImport(strings.ReplaceAll(link, "$", mapped))
		}
		return mapped
	}
	if link, ok := r.links["custom"]; ok {
		r.addImport(strings.ReplaceAll(link, "$", f.Type.Name))
	}
	return f.Type.Name
}

// typeText maps a plain type name for query arguments; custom names
// pass through.
func (r *Renderer) typeText(name string) string {
	if mapped, ok := r.types[name]; ok {
		return mapped
	}
	return name
}

// importTag adds an import line. With an argument the line is taken
// verbatim; without one the current field's type link is requested and
// its absence is an error.
func (r *Renderer) importTag(tag *blueprint.Tag, sc *scope) {
	if tag.Arg != "" {
		r.addImport(tag.Arg)
		return
	}
	f := sc.currentField()
	if f == nil {
		r.errf(sc, diag.CannotCreateContext, "import needs a field scope")
		return
	}
	key := f.Type.Name
	if f.Type.Custom() {
		key = "custom"
	}
	link, ok := r.links[key]
	if !ok {
		r.errf(sc, diag.UnknownLink, key)
		return
	}
	r.addImport(strings.ReplaceAll(link, "$", f.Type.Name))
}

// exec hands a rendered script to the environment after interactive
// confirmation.
func (r *Renderer) exec(script string, sc *scope) {
	script = strings.TrimSpace(script)
	if script == "" {
		return
	}
	if !r.env.Confirm("Run `" + script + "`?") {
		return
	}
	if err := r.env.Exec(script); err != nil {
		r.errf(sc, diag.ProcessExecutionFailed, script)
	}
}

// trim deletes the longest suffix of body that the current file buffer
// ends with.
func (r *Renderer) trim(body string) {
	if r.current == nil || body == "" {
		return
	}
	data := r.current.data
	for l := len(body); l > 0; l-- {
		suffix := body[len(body)-l:]
		if strings.HasSuffix(string(data), suffix) {
			r.current.data = data[:len(data)-l]
			return
		}
	}
}

func (r *Renderer) setFile(path string) {
	path = strings.TrimSpace(path)
	if path == "" {
		r.errf(nil, diag.PathNotValid, "empty file name")
		return
	}
	f, ok := r.files[path]
	if !ok {
		f = &fileBuf{importSet: map[string]bool{}}
		r.files[path] = f
		r.order = append(r.order, path)
	}
	r.current = f
}

func (r *Renderer) write(s string) {
	if n := len(r.captures); n > 0 {
		r.captures[n-1].WriteString(s)
		return
	}
	if r.current != nil {
		r.current.data = append(r.current.data, s...)
	}
}

func (r *Renderer) addImport(line string) {
	if r.current == nil || line == "" {
		return
	}
	if !r.current.importSet[line] {
		r.current.importSet[line] = true
		r.current.imports = append(r.current.imports, line)
	}
}

// renderToString evaluates nodes into a detached buffer. Imports,
// counters and diagnostics still take effect globally.
func (r *Renderer) renderToString(nodes []blueprint.Node, sc *scope) string {
	var b strings.Builder
	r.captures = append(r.captures, &b)
	r.render(nodes, sc)
	r.captures = r.captures[:len(r.captures)-1]
	return b.String()
}

func (r *Renderer) errf(sc *scope, kind diag.Kind, detail string) {
	err := diag.New(kind, detail).InProfile(r.bp.ID)
	if sc != nil {
		if loc := sc.location(); loc != "" {
			err = err.InScope(loc)
		}
	}
	r.errs.Add(err)
}
