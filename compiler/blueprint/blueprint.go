// Package blueprint loads template files and parses them into the
// nested token tree the renderer walks. A blueprint drives one target
// emission; built-in targets ship embedded in this package and user
// templates load through the schema's blueprint declarations.
package blueprint

import (
	"strings"

	"github.com/syssam/repack/compiler/diag"
	"github.com/syssam/repack/compiler/token"
)

// Kind tells the driver which command a blueprint answers to.
type Kind int

const (
	// Code blueprints run under the build command.
	Code Kind = iota
	// Configure blueprints run under the configure command.
	Configure
	// Document blueprints run under the document command.
	Document
)

// KindFromString maps the [meta kind] value onto a Kind; anything
// unrecognized is treated as code.
func KindFromString(s string) Kind {
	switch s {
	case "configure":
		return Configure
	case "document":
		return Document
	default:
		return Code
	}
}

// Node is one element of the parsed template tree: literal text or a
// directive tag.
type Node interface{ node() }

// Text is verbatim template content.
type Text struct {
	Value string
}

func (Text) node() {}

// Tag is a directive. Main is the leading identifier, Arg the rest of
// the tag header verbatim, and Children the block body (empty for
// auto-close directives).
type Tag struct {
	Main     string
	Arg      string
	Children []Node
	Pos      token.Position
}

func (*Tag) node() {}

// blockMains is the closed set of directives that open a block and
// require a matching [/main]. Every other tag auto-closes; an
// unrecognized leading identifier is a variable reference.
var blockMains = map[string]bool{
	"meta":    true,
	"file":    true,
	"if":      true,
	"ifn":     true,
	"each":    true,
	"eachr":   true,
	"define":  true,
	"func":    true,
	"nfunc":   true,
	"join":    true,
	"ref":     true,
	"link":    true,
	"trim":    true,
	"exec":    true,
	"snippet": true,
	"render":  true,
}

// Block reports whether the tag opens a block.
func (t *Tag) Block() bool { return blockMains[t.Main] }

// Blueprint is a loaded template: its metadata plus the token tree.
type Blueprint struct {
	ID     string
	Name   string
	Kind   Kind
	Source string
	Nodes  []Node
}

// Load parses template source into a Blueprint and extracts its
// metadata. A blueprint without a [meta id] is rejected.
func Load(source string, src []byte) (*Blueprint, *diag.List) {
	errs := &diag.List{}
	nodes := parse(source, src, errs)
	bp := &Blueprint{Source: source, Nodes: nodes}
	bp.extractMeta(nodes)
	if bp.ID == "" && !errs.HasErrors() {
		errs.Add(diag.Newf(diag.SyntaxError, "%s: blueprint declares no [meta id]", source))
	}
	return bp, errs
}

func (b *Blueprint) extractMeta(nodes []Node) {
	for _, n := range nodes {
		tag, ok := n.(*Tag)
		if !ok {
			continue
		}
		if tag.Main != "meta" {
			b.extractMeta(tag.Children)
			continue
		}
		value := strings.TrimSpace(literalText(tag.Children))
		switch tag.Arg {
		case "id":
			b.ID = value
		case "name":
			b.Name = value
		case "kind":
			b.Kind = KindFromString(value)
		}
	}
}

func literalText(nodes []Node) string {
	var b strings.Builder
	for _, n := range nodes {
		if t, ok := n.(Text); ok {
			b.WriteString(t.Value)
		}
	}
	return b.String()
}
