package rules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/danmuck/xformctl/internal/model"
)

type tokenType int

const (
	tokenEOF tokenType = iota
	tokenIllegal
	tokenIdent
	tokenNumber
	tokenString
	tokenLeftParen
	tokenRightParen
	tokenComma
	tokenBang
)

type token struct {
	typ tokenType
	val string
	pos int
}

type lexer struct {
	input string
	pos   int
}

func (l *lexer) next() token {
	for l.pos < len(l.input) && isSpace(l.input[l.pos]) {
		l.pos++
	}
	start := l.pos
	if l.pos >= len(l.input) {
		return token{typ: tokenEOF, pos: start}
	}
	ch := l.input[l.pos]
	switch {
	case ch == '(':
		l.pos++
		return token{typ: tokenLeftParen, val: "(", pos: start}
	case ch == ')':
		l.pos++
		return token{typ: tokenRightParen, val: ")", pos: start}
	case ch == ',':
		l.pos++
		return token{typ: tokenComma, val: ",", pos: start}
	case ch == '!':
		l.pos++
		return token{typ: tokenBang, val: "!", pos: start}
	case ch == '"' || ch == '\'':
		return l.readString(ch)
	case isDigit(ch) || ch == '-' || ch == '+':
		return l.readNumber()
	case isLetter(ch):
		for l.pos < len(l.input) && (isLetter(l.input[l.pos]) || isDigit(l.input[l.pos])) {
			l.pos++
		}
		return token{typ: tokenIdent, val: l.input[start:l.pos], pos: start}
	default:
		l.pos++
		return token{typ: tokenIllegal, val: string(ch), pos: start}
	}
}

func (l *lexer) readString(quote byte) token {
	start := l.pos
	l.pos++
	var b strings.Builder
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		switch {
		case ch == quote:
			l.pos++
			return token{typ: tokenString, val: b.String(), pos: start}
		case ch == '\\' && l.pos+1 < len(l.input):
			b.WriteByte(l.input[l.pos+1])
			l.pos += 2
		default:
			b.WriteByte(ch)
			l.pos++
		}
	}
	return token{typ: tokenIllegal, val: l.input[start:], pos: start}
}

func (l *lexer) readNumber() token {
	start := l.pos
	l.pos++
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if isDigit(ch) || ch == '.' || ch == 'e' || ch == 'E' ||
			((ch == '-' || ch == '+') && (l.input[l.pos-1] == 'e' || l.input[l.pos-1] == 'E')) {
			l.pos++
			continue
		}
		break
	}
	return token{typ: tokenNumber, val: l.input[start:l.pos], pos: start}
}

func isSpace(ch byte) bool  { return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' }
func isDigit(ch byte) bool  { return '0' <= ch && ch <= '9' }
func isLetter(ch byte) bool { return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_' }

// typeResolver maps a Schema!Type reference to a qualified type id.
type typeResolver func(schemaName, typeName string) (string, error)

type edgeKind int

const (
	edgeChildren edgeKind = iota
	edgeRefs
)

// expr is a compiled attribute expression evaluated against a matched node.
type expr interface {
	eval(n *model.Node) (any, error)
}

type literalExpr struct{ value any }

type attrExpr struct{ name string }

type typeExpr struct{}

type countExpr struct {
	edges  edgeKind
	typeID string
}

type sumExpr struct{ attr string }

func (e literalExpr) eval(*model.Node) (any, error) { return e.value, nil }

func (e attrExpr) eval(n *model.Node) (any, error) {
	v, ok := n.Attr(e.name)
	if !ok {
		return nil, fmt.Errorf("%w: attribute %q is not set on %s", ErrEvaluation, e.name, n.Type)
	}
	return v, nil
}

func (typeExpr) eval(n *model.Node) (any, error) { return n.Type, nil }

func (e countExpr) eval(n *model.Node) (any, error) {
	targets := n.Children
	if e.edges == edgeRefs {
		targets = n.References
	}
	var total int64
	for _, t := range targets {
		if t != nil && (e.typeID == "" || t.Type == e.typeID) {
			total++
		}
	}
	return total, nil
}

func (e sumExpr) eval(n *model.Node) (any, error) {
	var ints int64
	var floats float64
	float := false
	for _, child := range n.Children {
		v, ok := child.Attr(e.attr)
		if !ok {
			continue
		}
		switch x := v.(type) {
		case int64:
			ints += x
		case float64:
			floats += x
			float = true
		default:
			return nil, fmt.Errorf("%w: sum(children, %s): %s holds %T", ErrEvaluation, e.attr, child.Type, v)
		}
	}
	if float {
		return floats + float64(ints), nil
	}
	return ints, nil
}

type parser struct {
	src     string
	lex     *lexer
	tok     token
	resolve typeResolver
}

// compile parses one expression. Type references are resolved through
// resolve while parsing, so unknown schemas fail at module load.
func compile(src string, resolve typeResolver) (expr, error) {
	p := &parser{src: src, lex: &lexer{input: src}, resolve: resolve}
	p.advance()
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.tok.typ != tokenEOF {
		return nil, p.errorf("unexpected %q after expression", p.tok.val)
	}
	return e, nil
}

func (p *parser) advance() { p.tok = p.lex.next() }

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: %q at %d: %s", ErrExpression, p.src, p.tok.pos, fmt.Sprintf(format, args...))
}

func (p *parser) expect(typ tokenType, what string) (token, error) {
	tok := p.tok
	if tok.typ != typ {
		return tok, p.errorf("expected %s", what)
	}
	p.advance()
	return tok, nil
}

func (p *parser) parseExpr() (expr, error) {
	tok := p.tok
	switch tok.typ {
	case tokenNumber:
		p.advance()
		if i, err := strconv.ParseInt(tok.val, 10, 64); err == nil {
			return literalExpr{value: i}, nil
		}
		f, err := strconv.ParseFloat(tok.val, 64)
		if err != nil {
			return nil, p.errorf("invalid number %q", tok.val)
		}
		return literalExpr{value: f}, nil
	case tokenString:
		p.advance()
		return literalExpr{value: tok.val}, nil
	case tokenIdent:
		p.advance()
		switch tok.val {
		case "true":
			return literalExpr{value: true}, nil
		case "false":
			return literalExpr{value: false}, nil
		}
		return p.parseCall(tok.val)
	case tokenEOF:
		return nil, p.errorf("empty expression")
	default:
		return nil, p.errorf("unexpected %q", tok.val)
	}
}

func (p *parser) parseCall(name string) (expr, error) {
	if _, err := p.expect(tokenLeftParen, "'(' after "+name); err != nil {
		return nil, err
	}
	var e expr
	var err error
	switch name {
	case "attr":
		var id token
		if id, err = p.expectName(); err == nil {
			e = attrExpr{name: id.val}
		}
	case "type":
		e = typeExpr{}
	case "count":
		e, err = p.parseCount()
	case "sum":
		e, err = p.parseSum()
	default:
		return nil, p.errorf("unknown function %q", name)
	}
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokenRightParen, "')' to close "+name); err != nil {
		return nil, err
	}
	return e, nil
}

// expectName accepts a bare identifier or a quoted string.
func (p *parser) expectName() (token, error) {
	if p.tok.typ == tokenString || p.tok.typ == tokenIdent {
		tok := p.tok
		p.advance()
		return tok, nil
	}
	return p.tok, p.errorf("expected a name")
}

func (p *parser) parseEdges() (edgeKind, error) {
	tok, err := p.expect(tokenIdent, "children or refs")
	if err != nil {
		return 0, err
	}
	switch tok.val {
	case "children":
		return edgeChildren, nil
	case "refs":
		return edgeRefs, nil
	default:
		return 0, p.errorf("expected children or refs, got %q", tok.val)
	}
}

func (p *parser) parseCount() (expr, error) {
	edges, err := p.parseEdges()
	if err != nil {
		return nil, err
	}
	e := countExpr{edges: edges}
	if p.tok.typ != tokenComma {
		return e, nil
	}
	p.advance()
	schemaTok, err := p.expect(tokenIdent, "schema name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokenBang, "'!' between schema and type"); err != nil {
		return nil, err
	}
	typeTok, err := p.expect(tokenIdent, "type name")
	if err != nil {
		return nil, err
	}
	if e.typeID, err = p.resolve(schemaTok.val, typeTok.val); err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrExpression, p.src, err)
	}
	return e, nil
}

func (p *parser) parseSum() (expr, error) {
	edges, err := p.parseEdges()
	if err != nil {
		return nil, err
	}
	if edges != edgeChildren {
		return nil, p.errorf("sum only ranges over children")
	}
	if _, err := p.expect(tokenComma, "',' before attribute name"); err != nil {
		return nil, err
	}
	name, err := p.expectName()
	if err != nil {
		return nil, err
	}
	return sumExpr{attr: name.val}, nil
}
