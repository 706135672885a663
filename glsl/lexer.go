package glsl

import "fmt"

// multi-character operators, longest first within each leading byte.
var operators = []string{
	"<<=", ">>=",
	"==", "!=", "<=", ">=", "&&", "||", "^^",
	"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=",
	"<<", ">>", "++", "--",
}

type lexer struct {
	src  string
	pos  int
	line int
	col  int
}

// Lex scans GLSL source into tokens. The returned trailing string holds any
// trivia after the last token; it belongs to the translation unit so that
// printing round-trips the file exactly.
func Lex(src string) (toks []Token, trailing string, err error) {
	lx := &lexer{src: src, line: 1, col: 1}
	for {
		trivia, lineStart := lx.scanTrivia()
		if lx.pos >= len(lx.src) {
			return toks, trivia, nil
		}
		tok := Token{Trivia: trivia, Line: lx.line, Col: lx.col}
		c := lx.src[lx.pos]
		switch {
		case c == '#' && lineStart:
			tok.Kind = PreprocLine
			tok.Text = lx.scanPreprocLine()
		case isIdentStart(c):
			tok.Kind = Ident
			tok.Text = lx.scanIdent()
		case isDigit(c) || (c == '.' && lx.pos+1 < len(lx.src) && isDigit(lx.src[lx.pos+1])):
			tok.Kind = Number
			tok.Text = lx.scanNumber()
		default:
			op := lx.scanOperator()
			if op == "" {
				return nil, "", fmt.Errorf("glsl:%d:%d: unexpected character %q", lx.line, lx.col, rune(c))
			}
			tok.Kind = Punct
			tok.Text = op
		}
		toks = append(toks, tok)
	}
}

// scanTrivia consumes whitespace and comments, reporting whether the next
// token would be the first non-trivia content of its line.
func (lx *lexer) scanTrivia() (trivia string, lineStart bool) {
	start := lx.pos
	lineStart = lx.pos == 0
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		switch {
		case c == '\n':
			lineStart = true
			lx.advance(1)
		case c == ' ' || c == '\t' || c == '\r':
			lx.advance(1)
		case c == '/' && lx.pos+1 < len(lx.src) && lx.src[lx.pos+1] == '/':
			for lx.pos < len(lx.src) && lx.src[lx.pos] != '\n' {
				lx.advance(1)
			}
		case c == '/' && lx.pos+1 < len(lx.src) && lx.src[lx.pos+1] == '*':
			lx.advance(2)
			for lx.pos < len(lx.src) {
				if lx.src[lx.pos] == '*' && lx.pos+1 < len(lx.src) && lx.src[lx.pos+1] == '/' {
					lx.advance(2)
					break
				}
				if lx.src[lx.pos] == '\n' {
					lineStart = true
				}
				lx.advance(1)
			}
		default:
			return lx.src[start:lx.pos], lineStart
		}
	}
	return lx.src[start:lx.pos], lineStart
}

// scanPreprocLine consumes a directive through end of line, folding
// backslash continuations into the token.
func (lx *lexer) scanPreprocLine() string {
	start := lx.pos
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		if c == '\\' && lx.pos+1 < len(lx.src) && lx.src[lx.pos+1] == '\n' {
			lx.advance(2)
			continue
		}
		if c == '\n' {
			break
		}
		lx.advance(1)
	}
	return lx.src[start:lx.pos]
}

func (lx *lexer) scanIdent() string {
	start := lx.pos
	for lx.pos < len(lx.src) && isIdentPart(lx.src[lx.pos]) {
		lx.advance(1)
	}
	return lx.src[start:lx.pos]
}

func (lx *lexer) scanNumber() string {
	start := lx.pos
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		if isIdentPart(c) || c == '.' {
			lx.advance(1)
			continue
		}
		// Exponent sign: 1.5e+3
		if (c == '+' || c == '-') && lx.pos > start {
			prev := lx.src[lx.pos-1]
			if prev == 'e' || prev == 'E' {
				lx.advance(1)
				continue
			}
		}
		break
	}
	return lx.src[start:lx.pos]
}

func (lx *lexer) scanOperator() string {
	rest := lx.src[lx.pos:]
	for _, op := range operators {
		if len(rest) >= len(op) && rest[:len(op)] == op {
			lx.advance(len(op))
			return op
		}
	}
	switch rest[0] {
	case '+', '-', '*', '/', '%', '<', '>', '=', '!', '&', '|', '^', '~',
		'?', ':', ';', ',', '.', '(', ')', '[', ']', '{', '}':
		lx.advance(1)
		return rest[:1]
	}
	return ""
}

func (lx *lexer) advance(n int) {
	for i := 0; i < n; i++ {
		if lx.src[lx.pos] == '\n' {
			lx.line++
			lx.col = 1
		} else {
			lx.col++
		}
		lx.pos++
	}
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool { return isIdentStart(c) || isDigit(c) }

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
