package blueprint

import (
	"strings"

	"github.com/syssam/repack/compiler/diag"
	"github.com/syssam/repack/compiler/token"
)

// parse reads template source into a node tree. Inline content is
// preserved verbatim; "\[" escapes a literal open bracket.
func parse(source string, src []byte, errs *diag.List) []Node {
	p := &tparser{source: source, src: string(src), line: 1, col: 1, errs: errs}
	nodes, _ := p.nodes("")
	return nodes
}

type tparser struct {
	source string
	src    string
	offset int
	line   int
	col    int
	errs   *diag.List
}

// nodes parses siblings until the closing tag of open (or end of
// input when open is empty). It reports whether the expected close was
// actually seen.
func (p *tparser) nodes(open string) ([]Node, bool) {
	var out []Node
	var text strings.Builder

	flush := func() {
		if text.Len() > 0 {
			out = append(out, Text{Value: text.String()})
			text.Reset()
		}
	}

	for p.offset < len(p.src) {
		c := p.src[p.offset]
		switch {
		case c == '\\' && p.offset+1 < len(p.src) && p.src[p.offset+1] == '[':
			p.advance()
			p.advance()
			text.WriteByte('[')
		case c == '[':
			pos := p.pos()
			p.advance()
			header, ok := p.header()
			if !ok {
				p.errs.Add(diag.Newf(diag.SyntaxError, "%s: template tag was never closed with ']'", pos))
				flush()
				return out, false
			}
			if strings.HasPrefix(header, "/") {
				name := strings.TrimSpace(header[1:])
				flush()
				if name != open {
					p.errs.Add(diag.Newf(diag.SyntaxError, "%s: unexpected closing tag [/%s]", pos, name))
					return out, false
				}
				return out, true
			}
			main, arg := splitHeader(header)
			tag := &Tag{Main: main, Arg: arg, Pos: pos}
			if tag.Block() {
				children, closed := p.nodes(main)
				tag.Children = children
				if !closed {
					p.errs.Add(diag.Newf(diag.SnippetNotClosed, "[%s]", main).InScope(p.source))
				}
			}
			flush()
			out = append(out, tag)
		default:
			text.WriteByte(c)
			p.advance()
		}
	}
	flush()
	if open != "" {
		return out, false
	}
	return out, true
}

// header reads the tag header up to the closing bracket.
func (p *tparser) header() (string, bool) {
	start := p.offset
	for p.offset < len(p.src) {
		if p.src[p.offset] == ']' {
			header := p.src[start:p.offset]
			p.advance()
			return header, true
		}
		if p.src[p.offset] == '\n' {
			return "", false
		}
		p.advance()
	}
	return "", false
}

func (p *tparser) advance() {
	if p.src[p.offset] == '\n' {
		p.line++
		p.col = 1
	} else {
		p.col++
	}
	p.offset++
}

func (p *tparser) pos() token.Position {
	return token.Position{File: p.source, Line: p.line, Column: p.col}
}

// splitHeader separates the leading identifier from the rest of the
// header. The remainder keeps its internal spacing.
func splitHeader(header string) (main, arg string) {
	header = strings.TrimSpace(header)
	if i := strings.IndexByte(header, ' '); i >= 0 {
		return header[:i], strings.TrimSpace(header[i+1:])
	}
	return header, ""
}
