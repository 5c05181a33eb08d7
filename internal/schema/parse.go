package schema

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Parse parses a schema string of the form
//
//	name(T a, T b, *, T c) -> T
//
// The name is optional: "(Tensor x) -> Tensor" parses with an empty Name.
func Parse(src string) (*Schema, error) {
	p := &parser{src: src}
	s, err := p.schema()
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ParseSignature parses a signature without a name and attaches name.
// A signature that already carries a name must carry the same one.
func ParseSignature(name, sig string) (*Schema, error) {
	s, err := Parse(sig)
	if err != nil {
		return nil, err
	}
	if s.Name != "" && s.Name != name {
		return nil, fmt.Errorf("%w: schema names %q, expected %q", ErrSignatureMismatch, s.Name, name)
	}
	s.Name = name
	return s, nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w at offset %d in %q: %s", ErrSyntax, p.pos, p.src, fmt.Sprintf(format, args...))
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) && unicode.IsSpace(rune(p.src[p.pos])) {
		p.pos++
	}
}

func (p *parser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

// accept consumes tok if it is next.
func (p *parser) accept(tok string) bool {
	p.skipSpace()
	if strings.HasPrefix(p.src[p.pos:], tok) {
		p.pos += len(tok)
		return true
	}
	return false
}

func (p *parser) expect(tok string) error {
	if !p.accept(tok) {
		return p.errorf("expected %q", tok)
	}
	return nil
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// IsIdentifier reports whether s is a valid operator or argument name.
func IsIdentifier(s string) bool {
	if s == "" || !isIdentStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isIdentPart(s[i]) {
			return false
		}
	}
	return true
}

func (p *parser) ident() (string, bool) {
	p.skipSpace()
	if p.pos >= len(p.src) || !isIdentStart(p.src[p.pos]) {
		return "", false
	}
	start := p.pos
	for p.pos < len(p.src) && isIdentPart(p.src[p.pos]) {
		p.pos++
	}
	return p.src[start:p.pos], true
}

func (p *parser) schema() (*Schema, error) {
	s := &Schema{}
	if name, ok := p.ident(); ok {
		s.Name = name
	}
	if err := p.expect("("); err != nil {
		return nil, err
	}
	if err := p.arguments(s); err != nil {
		return nil, err
	}
	if err := p.expect("->"); err != nil {
		return nil, err
	}
	if err := p.returns(s); err != nil {
		return nil, err
	}
	if p.peek() != 0 {
		return nil, p.errorf("unexpected trailing input")
	}
	return s, nil
}

func (p *parser) arguments(s *Schema) error {
	if p.accept(")") {
		return nil
	}
	kwargOnly := false
	for {
		if p.accept("*") {
			if kwargOnly {
				return p.errorf("duplicate '*'")
			}
			kwargOnly = true
		} else {
			arg, err := p.argument()
			if err != nil {
				return err
			}
			if kwargOnly {
				s.KwargOnly = append(s.KwargOnly, arg)
			} else {
				s.Positional = append(s.Positional, arg)
			}
		}
		if p.accept(")") {
			return nil
		}
		if err := p.expect(","); err != nil {
			return err
		}
	}
}

func (p *parser) argument() (Argument, error) {
	t, alias, err := p.typ()
	if err != nil {
		return Argument{}, err
	}
	name, ok := p.ident()
	if !ok {
		return Argument{}, p.errorf("expected argument name after %s", typeString(t, alias))
	}
	arg := Argument{Name: name, Type: t, Alias: alias}
	if p.accept("=") {
		def, err := p.defaultValue()
		if err != nil {
			return Argument{}, err
		}
		arg.Default = &def
	}
	return arg, nil
}

// defaultValue captures raw text up to the next top-level ',' or ')'.
func (p *parser) defaultValue() (string, error) {
	p.skipSpace()
	start := p.pos
	depth := 0
	var quote byte
	for ; p.pos < len(p.src); p.pos++ {
		c := p.src[p.pos]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '[':
			depth++
		case c == ']':
			depth--
		case depth == 0 && (c == ',' || c == ')'):
			def := strings.TrimSpace(p.src[start:p.pos])
			if def == "" {
				return "", p.errorf("empty default value")
			}
			return def, nil
		}
	}
	return "", p.errorf("unterminated default value")
}

func (p *parser) typ() (Type, *Annotation, error) {
	p.skipSpace()
	start := p.pos
	name, ok := p.ident()
	if !ok {
		return nil, nil, p.errorf("expected type")
	}
	base, ok := baseTypes[name]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q at offset %d in %q", ErrUnsupportedType, name, start, p.src)
	}

	var alias *Annotation
	// An annotation must follow the type name directly: Tensor(a!).
	if p.pos < len(p.src) && p.src[p.pos] == '(' {
		p.pos++
		set, ok := p.ident()
		if !ok {
			return nil, nil, p.errorf("expected alias set")
		}
		alias = &Annotation{Set: set, IsWrite: p.accept("!")}
		if err := p.expect(")"); err != nil {
			return nil, nil, err
		}
	}

	var t Type = base
	for {
		if p.pos < len(p.src) && p.src[p.pos] == '?' {
			p.pos++
			t = OptionalType{Elem: t}
			continue
		}
		if p.pos < len(p.src) && p.src[p.pos] == '[' {
			p.pos++
			size := 0
			numStart := p.pos
			for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
				p.pos++
			}
			if p.pos > numStart {
				n, err := strconv.Atoi(p.src[numStart:p.pos])
				if err != nil || n == 0 {
					return nil, nil, p.errorf("invalid list size %q", p.src[numStart:p.pos])
				}
				size = n
			}
			if err := p.expect("]"); err != nil {
				return nil, nil, err
			}
			t = ListType{Elem: t, Size: size}
			continue
		}
		break
	}

	if !Supported(t) {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnsupportedType, typeString(t, alias))
	}
	return t, alias, nil
}

func (p *parser) returns(s *Schema) error {
	if p.peek() != '(' {
		r, err := p.ret()
		if err != nil {
			return err
		}
		if r.Name != "" {
			return p.errorf("named return must be parenthesized")
		}
		s.Returns = []Return{r}
		return nil
	}

	p.pos++
	if p.accept(")") {
		return nil
	}
	for {
		r, err := p.ret()
		if err != nil {
			return err
		}
		s.Returns = append(s.Returns, r)
		if p.accept(")") {
			break
		}
		if err := p.expect(","); err != nil {
			return err
		}
	}
	s.TupleReturns = len(s.Returns) == 1 && s.Returns[0].Name == ""
	return nil
}

func (p *parser) ret() (Return, error) {
	t, alias, err := p.typ()
	if err != nil {
		return Return{}, err
	}
	r := Return{Type: t, Alias: alias}
	if name, ok := p.ident(); ok {
		r.Name = name
	}
	return r, nil
}
