package glsl

import (
	"fmt"
	"strconv"
	"strings"
)

// storage and auxiliary qualifier keywords recognized ahead of a type.
var qualifierWords = map[string]bool{
	"const": true, "uniform": true, "buffer": true, "shared": true,
	"in": true, "out": true, "inout": true,
	"flat": true, "smooth": true, "noperspective": true,
	"centroid": true, "patch": true, "sample": true,
	"precise": true, "invariant": true,
	"coherent": true, "volatile": true, "restrict": true,
	"readonly": true, "writeonly": true,
	"highp": true, "mediump": true, "lowp": true,
	"hitAttributeEXT":   true,
	"rayPayloadEXT":     true,
	"rayPayloadInEXT":   true,
	"callableDataEXT":   true,
	"callableDataInEXT": true,
}

// Parse lexes and parses a translation unit.
func Parse(src string) (*TranslationUnit, error) {
	toks, trailing, err := Lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	unit := &TranslationUnit{Trailing: trailing}
	for !p.eof() {
		d, err := p.parseExternalDecl()
		if err != nil {
			return nil, err
		}
		unit.Decls = append(unit.Decls, d)
	}
	return unit, nil
}

type parser struct {
	toks []Token
	pos  int
}

func (p *parser) eof() bool { return p.pos >= len(p.toks) }

func (p *parser) cur() Token {
	if p.eof() {
		return Token{Kind: EOF}
	}
	return p.toks[p.pos]
}

func (p *parser) peek(n int) Token {
	if p.pos+n >= len(p.toks) {
		return Token{Kind: EOF}
	}
	return p.toks[p.pos+n]
}

func (p *parser) bump() Token {
	t := p.cur()
	if !p.eof() {
		p.pos++
	}
	return t
}

func (p *parser) is(text string) bool { return !p.eof() && p.cur().Text == text }

func (p *parser) expect(text string) error {
	if !p.is(text) {
		return p.errf("expected %q, found %q", text, p.cur().Text)
	}
	p.bump()
	return nil
}

func (p *parser) errf(format string, args ...any) error {
	t := p.cur()
	return fmt.Errorf("glsl:%d:%d: %s", t.Line, t.Col, fmt.Sprintf(format, args...))
}

// skipBalanced consumes from an opening bracket through its matching close.
func (p *parser) skipBalanced() error {
	depth := 0
	for !p.eof() {
		switch p.cur().Text {
		case "(", "[", "{":
			depth++
		case ")", "]", "}":
			depth--
		}
		p.bump()
		if depth == 0 {
			return nil
		}
	}
	return p.errf("unbalanced brackets at end of input")
}

func (p *parser) parseExternalDecl() (*ExternalDecl, error) {
	start := p.pos
	span := func() []Token { return p.toks[start:p.pos] }

	switch tok := p.cur(); {
	case tok.Kind == PreprocLine:
		p.bump()
		return &ExternalDecl{Kind: DeclPreproc, Tokens: span(), Preproc: parsePreproc(tok.Text)}, nil
	case tok.Text == ";":
		p.bump()
		return &ExternalDecl{Kind: DeclOther, Tokens: span()}, nil
	case tok.Text == "precision":
		if err := p.consumeThroughSemi(); err != nil {
			return nil, err
		}
		return &ExternalDecl{Kind: DeclOther, Tokens: span()}, nil
	case tok.Text == "struct":
		if err := p.consumeThroughSemi(); err != nil {
			return nil, err
		}
		return &ExternalDecl{Kind: DeclOther, Tokens: span()}, nil
	}

	qual, err := p.parseQualifier(start)
	if err != nil {
		return nil, err
	}

	if p.cur().Kind == Ident && p.peek(1).Text == "{" {
		return p.parseBlock(start, qual)
	}

	if p.cur().Kind != Ident {
		return nil, p.errf("expected type name, found %q", p.cur().Text)
	}
	typ, err := p.parseTypeSpec()
	if err != nil {
		return nil, err
	}
	typeEnd := p.pos - start

	if p.cur().Kind == Ident && p.peek(1).Text == "(" {
		return p.parseFunc(start, typ)
	}
	return p.parseVar(start, qual, typ, typeEnd)
}

// consumeThroughSemi consumes tokens, balancing brackets, until a top-level
// semicolon has been consumed.
func (p *parser) consumeThroughSemi() error {
	depth := 0
	for !p.eof() {
		switch p.cur().Text {
		case "(", "[", "{":
			depth++
		case ")", "]", "}":
			depth--
		case ";":
			if depth == 0 {
				p.bump()
				return nil
			}
		}
		p.bump()
	}
	return p.errf("expected ';' before end of input")
}

func parsePreproc(line string) *Preproc {
	body := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "#"))
	directive, rest, _ := strings.Cut(body, " ")
	return &Preproc{Directive: directive, Rest: strings.TrimSpace(rest)}
}

func (p *parser) parseQualifier(start int) (Qualifier, error) {
	var q Qualifier
	for !p.eof() {
		switch cur := p.cur(); {
		case cur.Text == "layout":
			items, err := p.parseLayout()
			if err != nil {
				return q, err
			}
			q.Layout = append(q.Layout, items...)
		case cur.Kind == Ident && qualifierWords[cur.Text]:
			q.Storage = append(q.Storage, cur.Text)
			p.bump()
		default:
			q.End = p.pos - start
			return q, nil
		}
	}
	q.End = p.pos - start
	return q, nil
}

func (p *parser) parseLayout() ([]LayoutItem, error) {
	p.bump() // layout
	if err := p.expect("("); err != nil {
		return nil, err
	}
	var items []LayoutItem
	for !p.is(")") {
		if p.cur().Kind != Ident {
			return nil, p.errf("expected layout identifier, found %q", p.cur().Text)
		}
		item := LayoutItem{Name: p.bump().Text}
		if p.is("=") {
			p.bump()
			item.HasValue = true
			if p.cur().Kind == Number && (p.peek(1).Text == "," || p.peek(1).Text == ")") {
				if v, err := parseIntLiteral(p.cur().Text); err == nil {
					item.Known = true
					item.Value = v
				}
				p.bump()
			} else {
				// Non-literal value: consume it without interpretation.
				depth := 0
				for !p.eof() {
					t := p.cur().Text
					if depth == 0 && (t == "," || t == ")") {
						break
					}
					switch t {
					case "(", "[":
						depth++
					case ")", "]":
						depth--
					}
					p.bump()
				}
			}
		}
		items = append(items, item)
		if p.is(",") {
			p.bump()
		}
	}
	if err := p.expect(")"); err != nil {
		return nil, err
	}
	return items, nil
}

func parseIntLiteral(text string) (int64, error) {
	text = strings.TrimRight(text, "uU")
	return strconv.ParseInt(text, 0, 64)
}

func (p *parser) parseTypeSpec() (TypeSpec, error) {
	typ := TypeSpec{Name: p.bump().Text}
	dims, err := p.parseDims()
	if err != nil {
		return typ, err
	}
	typ.Dims = dims
	return typ, nil
}

func (p *parser) parseDims() ([]ArrayDim, error) {
	var dims []ArrayDim
	for p.is("[") {
		p.bump()
		if p.is("]") {
			p.bump()
			dims = append(dims, ArrayDim{})
			continue
		}
		if p.cur().Kind == Number && p.peek(1).Text == "]" {
			v, err := parseIntLiteral(p.cur().Text)
			if err != nil {
				return nil, p.errf("bad array extent %q", p.cur().Text)
			}
			dims = append(dims, ArrayDim{Sized: true, N: v, Raw: p.cur().Text})
			p.bump()
			p.bump()
			continue
		}
		// Non-literal extent: keep the raw text for diagnostics.
		exprStart := p.pos
		depth := 0
		for !p.eof() {
			t := p.cur().Text
			if depth == 0 && t == "]" {
				break
			}
			switch t {
			case "[", "(":
				depth++
			case "]", ")":
				depth--
			}
			p.bump()
		}
		raw := strings.TrimSpace(Text(p.toks[exprStart:p.pos]))
		if err := p.expect("]"); err != nil {
			return nil, err
		}
		dims = append(dims, ArrayDim{Raw: raw})
	}
	return dims, nil
}

func (p *parser) parseBlock(start int, qual Qualifier) (*ExternalDecl, error) {
	b := &BlockDecl{Qual: qual, Name: p.bump().Text, InstanceTok: -1}
	b.LBrace = p.pos - start
	if err := p.expect("{"); err != nil {
		return nil, err
	}
	for !p.is("}") {
		if p.eof() {
			return nil, p.errf("unterminated block %q", b.Name)
		}
		f, err := p.parseField(start)
		if err != nil {
			return nil, err
		}
		b.Fields = append(b.Fields, f)
	}
	b.RBrace = p.pos - start
	p.bump() // }
	if p.cur().Kind == Ident {
		b.InstanceTok = p.pos - start
		b.Instance = p.bump().Text
		if _, err := p.parseDims(); err != nil {
			return nil, err
		}
	}
	if err := p.expect(";"); err != nil {
		return nil, err
	}
	return &ExternalDecl{Kind: DeclBlock, Tokens: p.toks[start:p.pos], Block: b}, nil
}

func (p *parser) parseField(start int) (Field, error) {
	var f Field
	// Field-level qualifiers are allowed and irrelevant to the rewriter.
	for p.cur().Kind == Ident && qualifierWords[p.cur().Text] || p.is("layout") {
		if p.is("layout") {
			if _, err := p.parseLayout(); err != nil {
				return f, err
			}
		} else {
			p.bump()
		}
	}
	if p.cur().Kind != Ident {
		return f, p.errf("expected field type, found %q", p.cur().Text)
	}
	typ, err := p.parseTypeSpec()
	if err != nil {
		return f, err
	}
	f.Type = typ
	for {
		if p.cur().Kind != Ident {
			return f, p.errf("expected field name, found %q", p.cur().Text)
		}
		d := Declarator{Name: p.cur().Text, NameTok: p.pos - start}
		p.bump()
		dims, err := p.parseDims()
		if err != nil {
			return f, err
		}
		d.Dims = dims
		f.Decls = append(f.Decls, d)
		if p.is(",") {
			p.bump()
			continue
		}
		break
	}
	if err := p.expect(";"); err != nil {
		return f, err
	}
	return f, nil
}

func (p *parser) parseFunc(start int, ret TypeSpec) (*ExternalDecl, error) {
	f := &FuncDecl{RetType: ret, BodyStart: -1, BodyEnd: -1}
	f.NameTok = p.pos - start
	f.Name = p.bump().Text
	if err := p.expect("("); err != nil {
		return nil, err
	}
	for !p.is(")") {
		if p.eof() {
			return nil, p.errf("unterminated parameter list of %q", f.Name)
		}
		param, err := p.parseParam()
		if err != nil {
			return nil, err
		}
		// `void` alone stands for an empty list.
		if param.Type.Name != "void" || param.Name != "" {
			f.Params = append(f.Params, param)
		}
		if p.is(",") {
			p.bump()
		}
	}
	p.bump() // )
	switch p.cur().Text {
	case ";":
		p.bump()
	case "{":
		f.BodyStart = p.pos - start
		if err := p.skipBalanced(); err != nil {
			return nil, err
		}
		f.BodyEnd = p.pos - start - 1
	default:
		return nil, p.errf("expected function body or ';', found %q", p.cur().Text)
	}
	return &ExternalDecl{Kind: DeclFunc, Tokens: p.toks[start:p.pos], Func: f}, nil
}

func (p *parser) parseParam() (Param, error) {
	var param Param
	for p.cur().Kind == Ident && qualifierWords[p.cur().Text] {
		param.Qual = append(param.Qual, p.bump().Text)
	}
	if p.cur().Kind != Ident {
		return param, p.errf("expected parameter type, found %q", p.cur().Text)
	}
	typ, err := p.parseTypeSpec()
	if err != nil {
		return param, err
	}
	param.Type = typ
	if p.cur().Kind == Ident {
		param.Name = p.bump().Text
		dims, err := p.parseDims()
		if err != nil {
			return param, err
		}
		param.Dims = dims
	}
	return param, nil
}

func (p *parser) parseVar(start int, qual Qualifier, typ TypeSpec, typeEnd int) (*ExternalDecl, error) {
	v := &VarDecl{Qual: qual, Type: typ, TypeEnd: typeEnd}
	if p.is(";") {
		p.bump()
		return &ExternalDecl{Kind: DeclVar, Tokens: p.toks[start:p.pos], Var: v}, nil
	}
	for {
		if p.cur().Kind != Ident {
			return nil, p.errf("expected declarator name, found %q", p.cur().Text)
		}
		d := Declarator{Name: p.cur().Text, NameTok: p.pos - start}
		p.bump()
		dims, err := p.parseDims()
		if err != nil {
			return nil, err
		}
		d.Dims = dims
		if p.is("=") {
			p.bump()
			d.HasInit = true
			if err := p.consumeInitializer(); err != nil {
				return nil, err
			}
		}
		v.Decls = append(v.Decls, d)
		if p.is(",") {
			p.bump()
			continue
		}
		break
	}
	if err := p.expect(";"); err != nil {
		return nil, err
	}
	return &ExternalDecl{Kind: DeclVar, Tokens: p.toks[start:p.pos], Var: v}, nil
}

// consumeInitializer consumes an initializer expression up to the next
// top-level ',' or ';'.
func (p *parser) consumeInitializer() error {
	depth := 0
	for !p.eof() {
		t := p.cur().Text
		if depth == 0 && (t == "," || t == ";") {
			return nil
		}
		switch t {
		case "(", "[", "{":
			depth++
		case ")", "]", "}":
			depth--
		}
		p.bump()
	}
	return p.errf("unterminated initializer")
}
