package term

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/wippyai/nif-runtime/errors"
)

// Resolver looks up $name variables while parsing.
type Resolver func(name string) (Term, bool)

// Parse reads a single term from s.
func Parse(s string) (Term, error) {
	return ParseWith(s, nil)
}

// MustParse is Parse that panics on error. Meant for tests and fixed literals.
func MustParse(s string) Term {
	t, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return t
}

// ParseWith reads a single term, resolving $name variables with vars.
func ParseWith(s string, vars Resolver) (Term, error) {
	p := &parser{src: s, vars: vars}
	p.skipSpace()
	t, err := p.term()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if !p.eof() {
		return nil, p.fail("unexpected %q after term", p.rest())
	}
	return t, nil
}

// ParseArgs reads a comma separated sequence of terms, as typed for a call.
// An empty or blank string yields no terms.
func ParseArgs(s string, vars Resolver) ([]Term, error) {
	p := &parser{src: s, vars: vars}
	p.skipSpace()
	if p.eof() {
		return nil, nil
	}
	var out []Term
	for {
		t, err := p.term()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
		p.skipSpace()
		if p.eof() {
			return out, nil
		}
		if !p.consume(',') {
			return nil, p.fail("expected ',' between arguments, got %q", p.rest())
		}
		p.skipSpace()
	}
}

type parser struct {
	vars Resolver
	src  string
	pos  int
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) rest() string {
	r := p.src[p.pos:]
	if len(r) > 16 {
		r = r[:16] + "..."
	}
	return r
}

func (p *parser) consume(c byte) bool {
	if p.peek() == c {
		p.pos++
		return true
	}
	return false
}

func (p *parser) skipSpace() {
	for !p.eof() {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) fail(format string, args ...any) error {
	return errors.New(errors.PhaseParse, errors.KindInvalidData).
		Value(p.pos).
		Detail("offset %d: "+format, append([]any{p.pos}, args...)...).
		Build()
}

func (p *parser) term() (Term, error) {
	if p.eof() {
		return nil, p.fail("unexpected end of input")
	}
	c := p.peek()
	switch {
	case c == '{':
		p.pos++
		elems, err := p.seq('}')
		if err != nil {
			return nil, err
		}
		return Tuple(elems), nil
	case c == '[':
		p.pos++
		elems, err := p.seq(']')
		if err != nil {
			return nil, err
		}
		return List(elems), nil
	case c == '%':
		return p.mapLiteral()
	case c == '<':
		return p.binaryLiteral()
	case c == '"':
		return p.stringLiteral()
	case c == '\'':
		return p.quotedAtom()
	case c == '$':
		return p.variable()
	case c == '-' || (c >= '0' && c <= '9'):
		return p.number()
	case c >= 'a' && c <= 'z':
		return p.bareAtom(), nil
	}
	return nil, p.fail("unexpected character %q", c)
}

func (p *parser) seq(closer byte) ([]Term, error) {
	elems := []Term{}
	p.skipSpace()
	if p.consume(closer) {
		return elems, nil
	}
	for {
		p.skipSpace()
		t, err := p.term()
		if err != nil {
			return nil, err
		}
		elems = append(elems, t)
		p.skipSpace()
		if p.consume(closer) {
			return elems, nil
		}
		if !p.consume(',') {
			return nil, p.fail("expected ',' or %q", closer)
		}
	}
}

func (p *parser) mapLiteral() (Term, error) {
	p.pos++
	if !p.consume('{') {
		return nil, p.fail("expected '{' after '%%'")
	}
	var m Map
	p.skipSpace()
	if p.consume('}') {
		return m, nil
	}
	for {
		p.skipSpace()
		k, err := p.term()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if !strings.HasPrefix(p.src[p.pos:], "=>") {
			return nil, p.fail("expected '=>' in map")
		}
		p.pos += 2
		p.skipSpace()
		v, err := p.term()
		if err != nil {
			return nil, err
		}
		m = m.Put(k, v)
		p.skipSpace()
		if p.consume('}') {
			return m, nil
		}
		if !p.consume(',') {
			return nil, p.fail("expected ',' or '}' in map")
		}
	}
}

func (p *parser) binaryLiteral() (Term, error) {
	if !strings.HasPrefix(p.src[p.pos:], "<<") {
		return nil, p.fail("expected '<<'")
	}
	p.pos += 2
	p.skipSpace()
	if strings.HasPrefix(p.src[p.pos:], ">>") {
		p.pos += 2
		return NewBinary([]byte{}), nil
	}
	if p.peek() == '"' {
		s, err := p.stringLiteral()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if !strings.HasPrefix(p.src[p.pos:], ">>") {
			return nil, p.fail("expected '>>'")
		}
		p.pos += 2
		return s, nil
	}
	var data []byte
	for {
		p.skipSpace()
		start := p.pos
		for !p.eof() && p.peek() >= '0' && p.peek() <= '9' {
			p.pos++
		}
		v, err := strconv.ParseUint(p.src[start:p.pos], 10, 8)
		if err != nil {
			return nil, p.fail("invalid byte %q", p.src[start:p.pos])
		}
		data = append(data, byte(v))
		p.skipSpace()
		if strings.HasPrefix(p.src[p.pos:], ">>") {
			p.pos += 2
			return NewBinary(data), nil
		}
		if !p.consume(',') {
			return nil, p.fail("expected ',' or '>>' in binary")
		}
	}
}

func (p *parser) stringLiteral() (Term, error) {
	start := p.pos
	p.pos++
	for !p.eof() {
		switch p.src[p.pos] {
		case '\\':
			p.pos += 2
			continue
		case '"':
			p.pos++
			s, err := strconv.Unquote(p.src[start:p.pos])
			if err != nil {
				return nil, p.fail("invalid string literal: %v", err)
			}
			return NewBinary([]byte(s)), nil
		}
		p.pos++
	}
	return nil, p.fail("unterminated string")
}

func (p *parser) quotedAtom() (Term, error) {
	p.pos++
	var b strings.Builder
	for !p.eof() {
		c := p.src[p.pos]
		switch c {
		case '\\':
			if p.pos+1 >= len(p.src) {
				return nil, p.fail("unterminated atom")
			}
			switch esc := p.src[p.pos+1]; esc {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			default:
				b.WriteByte(esc)
			}
			p.pos += 2
			continue
		case '\'':
			p.pos++
			return NewAtom(b.String()), nil
		}
		b.WriteByte(c)
		p.pos++
	}
	return nil, p.fail("unterminated atom")
}

func (p *parser) bareAtom() Term {
	start := p.pos
	for !p.eof() {
		c := p.peek()
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' || c == '@' {
			p.pos++
			continue
		}
		break
	}
	return NewAtom(p.src[start:p.pos])
}

func (p *parser) variable() (Term, error) {
	p.pos++
	start := p.pos
	for !p.eof() {
		c := p.peek()
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			p.pos++
			continue
		}
		break
	}
	name := p.src[start:p.pos]
	if name == "" {
		return nil, p.fail("empty variable name")
	}
	if p.vars == nil {
		return nil, p.fail("variable $%s used without bindings", name)
	}
	t, ok := p.vars(name)
	if !ok {
		return nil, p.fail("unbound variable $%s", name)
	}
	return t, nil
}

func (p *parser) number() (Term, error) {
	start := p.pos
	p.consume('-')
	isFloat := false
	for !p.eof() {
		c := p.peek()
		switch {
		case c >= '0' && c <= '9':
		case c == '.' || c == 'e' || c == 'E':
			isFloat = true
		case (c == '+' || c == '-') && isFloat:
		default:
			goto done
		}
		p.pos++
	}
done:
	lit := p.src[start:p.pos]
	if isFloat {
		f, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			return nil, p.fail("invalid float %q", lit)
		}
		return Float(f), nil
	}
	if v, err := strconv.ParseInt(lit, 10, 64); err == nil {
		return Int(v), nil
	}
	n, ok := new(big.Int).SetString(lit, 10)
	if !ok {
		return nil, p.fail("invalid integer %q", lit)
	}
	return BigInt(n), nil
}
