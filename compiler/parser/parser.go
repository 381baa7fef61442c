// Package parser turns scanned schema tokens into ast declarations.
// Errors are scoped to the declaration that caused them; parsing resumes
// at the next top-level boundary so one bad declaration cannot hide the
// rest of the file.
package parser

import (
	"strings"

	"github.com/syssam/repack/compiler/ast"
	"github.com/syssam/repack/compiler/diag"
	"github.com/syssam/repack/compiler/token"
)

// Parse consumes a token stream produced by token.Scan and appends the
// declarations to schema, recording diagnostics in errs.
func Parse(tokens []token.Token, schema *ast.Schema, errs *diag.List) {
	p := &parser{tokens: tokens, schema: schema, errs: errs}
	p.run()
}

type parser struct {
	tokens []token.Token
	index  int
	schema *ast.Schema
	errs   *diag.List
}

func (p *parser) run() {
	for {
		tok := p.next()
		switch tok.Kind {
		case token.EOF:
			return
		case token.Newline:
			continue
		case token.Ident:
			p.topLevel(tok)
		case token.Where, token.With, token.Except:
			p.errs.Add(diag.Newf(diag.SyntaxError, "%s: '%s' is reserved and cannot start a declaration", tok.Pos, tok.Text))
			p.recoverTopLevel()
		default:
			p.errs.Add(diag.Newf(diag.SyntaxError, "%s: unexpected %s", tok.Pos, tok.Kind))
			p.recoverTopLevel()
		}
	}
}

func (p *parser) topLevel(tok token.Token) {
	switch tok.Text {
	case "record":
		p.object(ast.Record, tok.Pos)
	case "struct":
		p.object(ast.Struct, tok.Pos)
	case "synthetic":
		p.object(ast.Synthetic, tok.Pos)
	case "enum":
		p.enum(tok.Pos)
	case "snippet":
		p.snippet(tok.Pos)
	case "output":
		p.output(tok.Pos)
	case "import":
		p.fileRef(tok.Pos, func(path string) {
			p.schema.Imports = append(p.schema.Imports, ast.Import{Path: path, Pos: tok.Pos})
		})
	case "blueprint":
		p.fileRef(tok.Pos, func(path string) {
			p.schema.Blueprints = append(p.schema.Blueprints, ast.BlueprintRef{Path: path, Pos: tok.Pos})
		})
	case "configure":
		p.configuration(tok.Pos)
	case "instance":
		p.instance(tok.Pos)
	default:
		p.errs.Add(diag.Newf(diag.SyntaxError, "%s: unknown declaration '%s'", tok.Pos, tok.Text))
		p.recoverTopLevel()
	}
}

// object parses "Kind Name [: Parent] [@table] {#cat}* { body }".
func (p *parser) object(kind ast.ObjectKind, pos token.Position) {
	name, ok := p.ident("object name")
	if !ok {
		p.recoverTopLevel()
		return
	}
	obj := &ast.Object{Kind: kind, Name: name, Pos: pos}

header:
	for {
		tok := p.next()
		switch tok.Kind {
		case token.Colon:
			if obj.Parent, ok = p.ident("parent name"); !ok {
				p.recoverTopLevel()
				return
			}
		case token.At:
			if obj.Table, ok = p.ident("table name"); !ok {
				p.recoverTopLevel()
				return
			}
		case token.Hash:
			cat, ok := p.ident("category name")
			if !ok {
				p.recoverTopLevel()
				return
			}
			obj.Categories = append(obj.Categories, cat)
		case token.Newline:
			continue
		case token.LBrace:
			break header
		case token.EOF:
			p.errs.Add(diag.Newf(diag.ParseIncomplete, "object %s", obj.Name).InScope(obj.Name))
			return
		default:
			p.errs.Add(diag.Newf(diag.SyntaxError, "%s: unexpected %s in object header", tok.Pos, tok.Kind).InScope(obj.Name))
			p.recoverTopLevel()
			return
		}
	}

	p.objectBody(obj)
	p.schema.Objects = append(p.schema.Objects, obj)
}

func (p *parser) objectBody(obj *ast.Object) {
	for {
		tok := p.next()
		switch tok.Kind {
		case token.RBrace:
			return
		case token.Newline, token.Semi:
			continue
		case token.EOF:
			p.errs.Add(diag.Newf(diag.ParseIncomplete, "object %s", obj.Name).InScope(obj.Name))
			return
		case token.Bang:
			name, ok := p.ident("snippet name")
			if !ok {
				p.recoverLine()
				continue
			}
			obj.Snippets = append(obj.Snippets, ast.SnippetUse{Name: name, Index: len(obj.Fields), Pos: tok.Pos})
		case token.Ident:
			p.bodyDecl(obj, tok)
		case token.Where, token.With, token.Except:
			p.errs.Add(diag.Newf(diag.SyntaxError, "%s: '%s' is reserved", tok.Pos, tok.Text).InScope(obj.Name))
			p.recoverLine()
		default:
			p.errs.Add(diag.Newf(diag.SyntaxError, "%s: unexpected %s in object body", tok.Pos, tok.Kind).InScope(obj.Name))
			p.recoverLine()
		}
	}
}

func (p *parser) bodyDecl(obj *ast.Object, tok token.Token) {
	switch tok.Text {
	case "join":
		if join, ok := p.join(tok.Pos, obj.Name); ok {
			obj.Joins = append(obj.Joins, join)
		}
	case "query":
		if q, ok := p.manualQuery(tok.Pos, obj.Name); ok {
			obj.Queries = append(obj.Queries, q)
		}
	case "insert":
		if q, ok := p.insertQuery(tok.Pos, obj.Name); ok {
			obj.Queries = append(obj.Queries, q)
		}
	case "update":
		if q, ok := p.updateQuery(tok.Pos, obj.Name); ok {
			obj.Queries = append(obj.Queries, q)
		}
	default:
		if p.peek().Kind == token.Colon {
			if fn, ok := p.function(tok); ok {
				obj.Functions = append(obj.Functions, fn)
			} else {
				p.recoverLine()
			}
			return
		}
		if field, ok := p.field(tok, obj.Name); ok {
			obj.Fields = append(obj.Fields, field)
		}
	}
}

// field parses "name TypeExpr {Function}*" terminated by a newline or
// the body's closing brace.
func (p *parser) field(nameTok token.Token, scope string) (*ast.Field, bool) {
	field := &ast.Field{Name: nameTok.Text, Pos: nameTok.Pos}
	typ, ok := p.typeExpr(scope + "." + field.Name)
	if !ok {
		p.recoverLine()
		return nil, false
	}
	field.Type = typ

	for {
		tok := p.peek()
		switch tok.Kind {
		case token.Newline, token.Semi, token.RBrace, token.EOF:
			if tok.Kind != token.RBrace && tok.Kind != token.EOF {
				p.next()
			}
			return field, true
		case token.Ident:
			p.next()
			fn, ok := p.function(tok)
			if !ok {
				p.recoverLine()
				return field, true
			}
			field.Functions = append(field.Functions, fn)
		default:
			p.errs.Add(diag.Newf(diag.SyntaxError, "%s: unexpected %s after field type", tok.Pos, tok.Kind).InScope(scope + "." + field.Name))
			p.recoverLine()
			return field, true
		}
	}
}

// typeExpr parses "from(head.field)" or "Ident [. Ident] [[]] [?]".
func (p *parser) typeExpr(scope string) (ast.TypeExpr, bool) {
	var typ ast.TypeExpr
	tok := p.next()
	if tok.Kind != token.Ident {
		p.errs.Add(diag.Newf(diag.SyntaxError, "%s: expected a type, got %s", tok.Pos, tok.Kind).InScope(scope))
		return typ, false
	}

	if tok.Text == "from" && p.peek().Kind == token.LParen {
		p.next()
		head, ok := p.ident("reference location")
		if !ok {
			return typ, false
		}
		if !p.expect(token.Period, scope) {
			return typ, false
		}
		name, ok := p.ident("referenced field")
		if !ok {
			return typ, false
		}
		if !p.expect(token.RParen, scope) {
			return typ, false
		}
		typ.RefHead, typ.RefField = head, name
		return typ, true
	}

	typ.Name = tok.Text
	if p.peek().Kind == token.Period {
		p.next()
		name, ok := p.ident("referenced field")
		if !ok {
			return typ, false
		}
		typ.RefHead, typ.RefField = typ.Name, name
		typ.Name = ""
	}
	if p.peek().Kind == token.LBracket {
		p.next()
		if !p.expect(token.RBracket, scope) {
			return typ, false
		}
		typ.Array = true
	}
	if p.peek().Kind == token.Question {
		p.next()
		typ.Optional = true
	}
	return typ, true
}

// function parses "ns:name" or "ns:name(arg, ...)" with nameTok already
// consumed as the namespace.
func (p *parser) function(nameTok token.Token) (ast.Function, bool) {
	fn := ast.Function{Namespace: nameTok.Text, Pos: nameTok.Pos}
	if !p.accept(token.Colon) {
		p.errs.Add(diag.Newf(diag.FunctionInvalidSyntax, "%s: expected ':' after namespace '%s'", nameTok.Pos, nameTok.Text))
		return fn, false
	}
	name, ok := p.ident("function name")
	if !ok {
		p.errs.Add(diag.Newf(diag.FunctionInvalidSyntax, "%s: function '%s:' has no name", nameTok.Pos, nameTok.Text))
		return fn, false
	}
	fn.Name = name
	if p.peek().Kind != token.LParen {
		return fn, true
	}
	p.next()
	for {
		tok := p.next()
		switch tok.Kind {
		case token.RParen:
			return fn, true
		case token.Comma:
			continue
		case token.Ident, token.String:
			fn.Args = append(fn.Args, tok.Text)
		case token.EOF, token.Newline:
			p.errs.Add(diag.Newf(diag.FunctionInvalidSyntax, "%s: argument list of %s:%s was not closed", nameTok.Pos, fn.Namespace, fn.Name))
			return fn, false
		default:
			p.errs.Add(diag.Newf(diag.FunctionInvalidSyntax, "%s: unexpected %s in arguments of %s:%s", tok.Pos, tok.Kind, fn.Namespace, fn.Name))
			return fn, false
		}
	}
}

// join parses "join(alias Object) = \"predicate\"".
func (p *parser) join(pos token.Position, scope string) (*ast.Join, bool) {
	bad := func(msg string) (*ast.Join, bool) {
		p.errs.Add(diag.Newf(diag.SyntaxError, "%s: %s", pos, msg).InScope(scope))
		p.recoverLine()
		return nil, false
	}
	if !p.accept(token.LParen) {
		return bad("expected '(' to open the join descriptor")
	}
	alias, ok := p.ident("join alias")
	if !ok {
		return bad("expected a join alias")
	}
	target, ok := p.ident("join object")
	if !ok {
		return bad("expected the joined object name")
	}
	if !p.accept(token.RParen) {
		return bad("expected ')' to close the join descriptor")
	}
	if !p.accept(token.Assign) {
		return bad("expected '=' before the join predicate")
	}
	pred := p.next()
	if pred.Kind != token.String {
		return bad("expected the join predicate as a string")
	}
	return &ast.Join{Alias: alias, Object: target, Predicate: pred.Text, Pos: pos}, true
}

// manualQuery parses "query Name(arg Type, ...) = \"SQL\" [: one|many]".
func (p *parser) manualQuery(pos token.Position, scope string) (*ast.Query, bool) {
	q := &ast.Query{Kind: ast.QueryManual, Pos: pos}
	name, ok := p.ident("query name")
	if !ok {
		p.queryErr(pos, scope, "query is missing a name")
		return nil, false
	}
	q.Name = name
	if q.Args, ok = p.queryArgs(pos, scope+"."+name); !ok {
		return nil, false
	}
	if !p.accept(token.Assign) {
		p.queryErr(pos, scope+"."+name, "expected '=' before the query body")
		return nil, false
	}
	body := p.next()
	if body.Kind != token.String {
		p.queryErr(pos, scope+"."+name, "expected the query body as a string")
		return nil, false
	}
	q.Body = body.Text
	q.Returns = p.cardinality(scope + "." + name)
	return q, true
}

// insertQuery parses "insert Name(field, ...) [: one|many]".
func (p *parser) insertQuery(pos token.Position, scope string) (*ast.Query, bool) {
	q := &ast.Query{Kind: ast.QueryInsert, Pos: pos}
	name, ok := p.ident("query name")
	if !ok {
		p.queryErr(pos, scope, "insert is missing a name")
		return nil, false
	}
	q.Name = name
	if !p.accept(token.LParen) {
		p.queryErr(pos, scope+"."+name, "expected '(' to open the field list")
		return nil, false
	}
	for {
		tok := p.next()
		switch tok.Kind {
		case token.RParen:
			q.Returns = p.cardinality(scope + "." + name)
			return q, true
		case token.Comma:
			continue
		case token.Ident:
			q.Fields = append(q.Fields, tok.Text)
		default:
			p.queryErr(pos, scope+"."+name, "unexpected "+tok.Kind.String()+" in the field list")
			return nil, false
		}
	}
}

// updateQuery parses "update Name(arg Type, ...) = \"fragment\" [: one|many]".
func (p *parser) updateQuery(pos token.Position, scope string) (*ast.Query, bool) {
	q, ok := p.manualQuery(pos, scope)
	if !ok {
		return nil, false
	}
	q.Kind = ast.QueryUpdate
	return q, true
}

func (p *parser) queryArgs(pos token.Position, scope string) ([]ast.QueryArg, bool) {
	if !p.accept(token.LParen) {
		p.queryErr(pos, scope, "expected '(' to open the argument list")
		return nil, false
	}
	var args []ast.QueryArg
	for {
		tok := p.next()
		switch tok.Kind {
		case token.RParen:
			return args, true
		case token.Comma, token.Newline:
			continue
		case token.Ident:
			typ := p.next()
			if typ.Kind != token.Ident {
				p.errs.Add(diag.Newf(diag.QueryArgInvalidSyntax, "%s: argument '%s' is missing a type", tok.Pos, tok.Text).InScope(scope))
				p.recoverLine()
				return nil, false
			}
			args = append(args, ast.QueryArg{Name: tok.Text, Type: typ.Text})
		default:
			p.errs.Add(diag.Newf(diag.QueryArgInvalidSyntax, "%s: unexpected %s in the argument list", tok.Pos, tok.Kind).InScope(scope))
			p.recoverLine()
			return nil, false
		}
	}
}

func (p *parser) cardinality(scope string) ast.Cardinality {
	if p.peek().Kind != token.Colon {
		return ast.ReturnsNone
	}
	p.next()
	tok := p.next()
	switch {
	case tok.Kind == token.Ident && tok.Text == "one":
		return ast.ReturnsOne
	case tok.Kind == token.Ident && tok.Text == "many":
		return ast.ReturnsMany
	default:
		p.errs.Add(diag.Newf(diag.QueryInvalidSyntax, "%s: expected 'one' or 'many'", tok.Pos).InScope(scope))
		return ast.ReturnsNone
	}
}

func (p *parser) queryErr(pos token.Position, scope, msg string) {
	p.errs.Add(diag.Newf(diag.QueryInvalidSyntax, "%s: %s", pos, msg).InScope(scope))
	p.recoverLine()
}

// enum parses "enum Name {#cat}* { Case [= \"value\"] ... }".
func (p *parser) enum(pos token.Position) {
	name, ok := p.ident("enum name")
	if !ok {
		p.recoverTopLevel()
		return
	}
	enum := &ast.Enum{Name: name, Pos: pos}

header:
	for {
		tok := p.next()
		switch tok.Kind {
		case token.Hash:
			cat, ok := p.ident("category name")
			if !ok {
				p.recoverTopLevel()
				return
			}
			enum.Categories = append(enum.Categories, cat)
		case token.Newline:
			continue
		case token.LBrace:
			break header
		case token.EOF:
			p.errs.Add(diag.Newf(diag.ParseIncomplete, "enum %s", name).InScope(name))
			return
		default:
			p.errs.Add(diag.Newf(diag.SyntaxError, "%s: unexpected %s in enum header", tok.Pos, tok.Kind).InScope(name))
			p.recoverTopLevel()
			return
		}
	}

	for {
		tok := p.next()
		switch tok.Kind {
		case token.RBrace:
			p.schema.Enums = append(p.schema.Enums, enum)
			return
		case token.Newline, token.Comma:
			continue
		case token.EOF:
			p.errs.Add(diag.Newf(diag.ParseIncomplete, "enum %s", name).InScope(name))
			return
		case token.Ident:
			c := ast.EnumCase{Name: tok.Text}
			if p.peek().Kind == token.Assign {
				p.next()
				val := p.next()
				if val.Kind != token.String {
					p.errs.Add(diag.Newf(diag.SyntaxError, "%s: expected a string value for case %s", val.Pos, c.Name).InScope(name))
					p.recoverLine()
					continue
				}
				c.Value = val.Text
			}
			enum.Cases = append(enum.Cases, c)
		default:
			p.errs.Add(diag.Newf(diag.SyntaxError, "%s: unexpected %s in enum body", tok.Pos, tok.Kind).InScope(name))
			p.recoverLine()
		}
	}
}

// snippet parses "snippet Name { fields and functions }".
func (p *parser) snippet(pos token.Position) {
	name, ok := p.ident("snippet name")
	if !ok {
		p.recoverTopLevel()
		return
	}
	snip := &ast.Snippet{Name: name, Pos: pos}
	if !p.skipToBrace(name) {
		return
	}
	for {
		tok := p.next()
		switch tok.Kind {
		case token.RBrace:
			p.schema.Snippets = append(p.schema.Snippets, snip)
			return
		case token.Newline:
			continue
		case token.EOF:
			p.errs.Add(diag.Newf(diag.ParseIncomplete, "snippet %s", name).InScope(name))
			return
		case token.Ident:
			if p.peek().Kind == token.Colon {
				if fn, ok := p.function(tok); ok {
					snip.Functions = append(snip.Functions, fn)
				} else {
					p.recoverLine()
				}
				continue
			}
			if field, ok := p.field(tok, name); ok {
				snip.Fields = append(snip.Fields, field)
			}
		default:
			p.errs.Add(diag.Newf(diag.SyntaxError, "%s: unexpected %s in snippet body", tok.Pos, tok.Kind).InScope(name))
			p.recoverLine()
		}
	}
}

// output parses
// "output BlueprintId @Path {#Category}* {!Exclude}* [{ key value ... } | ;]".
func (p *parser) output(pos token.Position) {
	id, ok := p.ident("blueprint id")
	if !ok {
		p.recoverTopLevel()
		return
	}
	out := &ast.Output{Blueprint: id, Options: map[string]string{}, Pos: pos}

	for {
		tok := p.next()
		switch tok.Kind {
		case token.At:
			path := p.next()
			if path.Kind != token.Ident && path.Kind != token.String {
				p.errs.Add(diag.Newf(diag.SyntaxError, "%s: expected a destination path", path.Pos).InScope(id))
				p.recoverLine()
				return
			}
			out.Path = path.Text
		case token.Hash:
			cat, ok := p.ident("category name")
			if !ok {
				p.recoverLine()
				return
			}
			out.Categories = append(out.Categories, cat)
		case token.Bang:
			name, ok := p.ident("excluded name")
			if !ok {
				p.recoverLine()
				return
			}
			out.Exclude = append(out.Exclude, name)
		case token.Newline, token.Semi, token.EOF:
			p.schema.Outputs = append(p.schema.Outputs, out)
			return
		case token.LBrace:
			p.outputOptions(out)
			p.schema.Outputs = append(p.schema.Outputs, out)
			return
		default:
			p.errs.Add(diag.Newf(diag.SyntaxError, "%s: unexpected %s in output declaration", tok.Pos, tok.Kind).InScope(id))
			p.recoverLine()
			return
		}
	}
}

func (p *parser) outputOptions(out *ast.Output) {
	for {
		tok := p.next()
		switch tok.Kind {
		case token.RBrace:
			return
		case token.Newline:
			continue
		case token.EOF:
			p.errs.Add(diag.Newf(diag.ParseIncomplete, "output %s", out.Blueprint).InScope(out.Blueprint))
			return
		case token.Ident:
			val := p.next()
			if val.Kind != token.Ident && val.Kind != token.String {
				p.errs.Add(diag.Newf(diag.SyntaxError, "%s: option '%s' is missing a value", val.Pos, tok.Text).InScope(out.Blueprint))
				p.recoverLine()
				continue
			}
			out.Options[tok.Text] = val.Text
		default:
			p.errs.Add(diag.Newf(diag.SyntaxError, "%s: unexpected %s in output options", tok.Pos, tok.Kind).InScope(out.Blueprint))
			p.recoverLine()
		}
	}
}

// fileRef parses the quoted path of an import or blueprint declaration.
func (p *parser) fileRef(pos token.Position, add func(path string)) {
	tok := p.next()
	if tok.Kind != token.String {
		p.errs.Add(diag.Newf(diag.SyntaxError, "%s: expected a quoted path", tok.Pos))
		p.recoverLine()
		return
	}
	if strings.TrimSpace(tok.Text) == "" {
		p.errs.Add(diag.Newf(diag.PathNotValid, "%s: empty path", tok.Pos))
		return
	}
	add(tok.Text)
}

// configuration parses "configure Name { key key ... }".
func (p *parser) configuration(pos token.Position) {
	name, ok := p.ident("configuration name")
	if !ok {
		p.recoverTopLevel()
		return
	}
	conf := &ast.Configuration{Name: name, Pos: pos}
	if !p.skipToBrace(name) {
		return
	}
	for {
		tok := p.next()
		switch tok.Kind {
		case token.RBrace:
			p.schema.Configurations = append(p.schema.Configurations, conf)
			return
		case token.Newline:
			continue
		case token.EOF:
			p.errs.Add(diag.Newf(diag.ParseIncomplete, "configuration %s", name).InScope(name))
			return
		case token.Ident:
			conf.Keys = append(conf.Keys, tok.Text)
		default:
			p.errs.Add(diag.Newf(diag.SyntaxError, "%s: unexpected %s in configuration body", tok.Pos, tok.Kind).InScope(name))
			p.recoverLine()
		}
	}
}

// instance parses "instance Name @env : Configuration { key \"value\" ... }".
func (p *parser) instance(pos token.Position) {
	name, ok := p.ident("instance name")
	if !ok {
		p.recoverTopLevel()
		return
	}
	inst := &ast.Instance{Name: name, Values: map[string]string{}, Pos: pos}

header:
	for {
		tok := p.next()
		switch tok.Kind {
		case token.At:
			if inst.Environment, ok = p.ident("environment tag"); !ok {
				p.recoverTopLevel()
				return
			}
		case token.Colon:
			if inst.Configuration, ok = p.ident("configuration name"); !ok {
				p.recoverTopLevel()
				return
			}
		case token.Newline:
			continue
		case token.LBrace:
			break header
		case token.EOF:
			p.errs.Add(diag.Newf(diag.ParseIncomplete, "instance %s", name).InScope(name))
			return
		default:
			p.errs.Add(diag.Newf(diag.SyntaxError, "%s: unexpected %s in instance header", tok.Pos, tok.Kind).InScope(name))
			p.recoverTopLevel()
			return
		}
	}
	if inst.Configuration == "" {
		p.errs.Add(diag.Newf(diag.SyntaxError, "%s: instance %s must name its configuration", pos, name).InScope(name))
	}
	for {
		tok := p.next()
		switch tok.Kind {
		case token.RBrace:
			p.schema.Instances = append(p.schema.Instances, inst)
			return
		case token.Newline:
			continue
		case token.EOF:
			p.errs.Add(diag.Newf(diag.ParseIncomplete, "instance %s", name).InScope(name))
			return
		case token.Ident:
			val := p.next()
			if val.Kind != token.Ident && val.Kind != token.String {
				p.errs.Add(diag.Newf(diag.SyntaxError, "%s: value for '%s' must be an identifier or string", val.Pos, tok.Text).InScope(name))
				p.recoverLine()
				continue
			}
			inst.Values[tok.Text] = val.Text
		default:
			p.errs.Add(diag.Newf(diag.SyntaxError, "%s: unexpected %s in instance body", tok.Pos, tok.Kind).InScope(name))
			p.recoverLine()
		}
	}
}

// --- token plumbing ---

func (p *parser) peek() token.Token {
	if p.index < len(p.tokens) {
		return p.tokens[p.index]
	}
	return token.Token{Kind: token.EOF}
}

func (p *parser) next() token.Token {
	tok := p.peek()
	if p.index < len(p.tokens) {
		p.index++
	}
	return tok
}

func (p *parser) accept(kind token.Kind) bool {
	if p.peek().Kind == kind {
		p.next()
		return true
	}
	return false
}

func (p *parser) expect(kind token.Kind, scope string) bool {
	tok := p.next()
	if tok.Kind != kind {
		p.errs.Add(diag.Newf(diag.SyntaxError, "%s: expected %s, got %s", tok.Pos, kind, tok.Kind).InScope(scope))
		return false
	}
	return true
}

// ident consumes an identifier, skipping interleaved newlines.
func (p *parser) ident(what string) (string, bool) {
	for p.peek().Kind == token.Newline {
		p.next()
	}
	tok := p.next()
	if tok.Kind != token.Ident {
		p.errs.Add(diag.Newf(diag.SyntaxError, "%s: expected %s, got %s", tok.Pos, what, tok.Kind))
		return "", false
	}
	return tok.Text, true
}

func (p *parser) skipToBrace(scope string) bool {
	for {
		tok := p.next()
		switch tok.Kind {
		case token.LBrace:
			return true
		case token.Newline:
			continue
		case token.EOF:
			p.errs.Add(diag.Newf(diag.ParseIncomplete, "%s", scope).InScope(scope))
			return false
		default:
			p.errs.Add(diag.Newf(diag.SyntaxError, "%s: expected '{', got %s", tok.Pos, tok.Kind).InScope(scope))
			return false
		}
	}
}

// recoverLine skips to the end of the current line so a malformed
// declaration cannot poison its siblings.
func (p *parser) recoverLine() {
	for {
		switch p.peek().Kind {
		case token.Newline:
			p.next()
			return
		case token.RBrace, token.EOF:
			return
		default:
			p.next()
		}
	}
}

// recoverTopLevel skips to the next top-level boundary: the end of the
// current line or the closing brace of the surrounding declaration.
// Recovery is best-effort; a stray brace may cost a few extra
// diagnostics but never the rest of the file.
func (p *parser) recoverTopLevel() {
	for {
		switch p.peek().Kind {
		case token.EOF:
			return
		case token.Newline, token.RBrace:
			p.next()
			return
		default:
			p.next()
		}
	}
}
