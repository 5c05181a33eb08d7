package schema

import (
	"fmt"
	"reflect"

	"github.com/born-ml/customop/internal/tensor"
)

// ParamKind is how a prototype parameter may be passed.
type ParamKind int

// Parameter kinds. Only PositionalOrKeyword and KeywordOnly are accepted by
// operator schemas; the rest exist so a prototype can describe them and be
// rejected with a precise error.
const (
	PositionalOrKeyword ParamKind = iota
	KeywordOnly
	PositionalOnly
	VarPositional
	VarKeyword
)

func (k ParamKind) String() string {
	switch k {
	case PositionalOrKeyword:
		return "positional-or-keyword"
	case KeywordOnly:
		return "keyword-only"
	case PositionalOnly:
		return "positional-only"
	case VarPositional:
		return "variadic positional"
	case VarKeyword:
		return "variadic keyword"
	default:
		return fmt.Sprintf("ParamKind(%d)", int(k))
	}
}

// Param is one parameter of a Prototype. A nil Type means the parameter
// carries no type annotation.
type Param struct {
	Name       string
	Kind       ParamKind
	Type       reflect.Type
	HasDefault bool
}

// WithDefault returns a copy of p marked as having a default value.
func (p Param) WithDefault() Param {
	p.HasDefault = true
	return p
}

// Prototype describes the Go-side signature an operator is defined from:
// its name, ordered parameters and return type.
type Prototype struct {
	Name   string
	Params []Param
	Return reflect.Type
}

// Func builds a prototype from parameters.
func Func(name string, params ...Param) *Prototype {
	return &Prototype{Name: name, Params: params}
}

// In is a positional-or-keyword parameter. t may be nil for an
// unannotated parameter.
func In(name string, t reflect.Type) Param {
	return Param{Name: name, Kind: PositionalOrKeyword, Type: t}
}

// KwOnly is a keyword-only parameter.
func KwOnly(name string, t reflect.Type) Param {
	return Param{Name: name, Kind: KeywordOnly, Type: t}
}

// Returning sets the return type and returns p.
func (p *Prototype) Returning(t reflect.Type) *Prototype {
	p.Return = t
	return p
}

var errorType = reflect.TypeFor[error]()

// FromFunc reads a prototype from a Go function value. names gives the
// parameter names in order. A trailing error result is ignored; several
// results of one type become a fixed-size array return.
func FromFunc(name string, fn any, names ...string) (*Prototype, error) {
	ft := reflect.TypeOf(fn)
	if ft == nil || ft.Kind() != reflect.Func {
		return nil, fmt.Errorf("%w: %T", ErrNotAFunction, fn)
	}
	if ft.NumIn() != len(names) {
		return nil, fmt.Errorf("%w: %s takes %d parameters, %d names given",
			ErrSignatureMismatch, name, ft.NumIn(), len(names))
	}

	proto := &Prototype{Name: name}
	for i := range ft.NumIn() {
		p := In(names[i], ft.In(i))
		if ft.IsVariadic() && i == ft.NumIn()-1 {
			p.Kind = VarPositional
			p.Type = ft.In(i).Elem()
		}
		proto.Params = append(proto.Params, p)
	}

	n := ft.NumOut()
	if n > 0 && ft.Out(n-1) == errorType {
		n--
	}
	switch n {
	case 0:
	case 1:
		proto.Return = ft.Out(0)
	default:
		first := ft.Out(0)
		for i := 1; i < n; i++ {
			if ft.Out(i) != first {
				return nil, fmt.Errorf("%w: %s returns mixed types %s and %s",
					ErrInvalidReturn, name, first, ft.Out(i))
			}
		}
		proto.Return = reflect.ArrayOf(n, first)
	}
	return proto, nil
}

// goTypes maps Go parameter types onto the schema type universe.
var goTypes = buildGoTypes()

// schemaTypes is the inverse of goTypes for canonical schema types.
var schemaTypes = invert(goTypes)

func buildGoTypes() map[reflect.Type]Type {
	m := make(map[reflect.Type]Type)
	derive[*tensor.Tensor](m, Tensor)
	derive[int64](m, SymInt)
	derive[float64](m, Float)
	derive[bool](m, Bool)
	derive[string](m, Str)
	derive[tensor.Scalar](m, Scalar)
	derive[tensor.DataType](m, ScalarType)
	derive[tensor.Device](m, Device)
	m[reflect.TypeFor[[]tensor.Optional[*tensor.Tensor]]()] = ListType{Elem: OptionalType{Elem: Tensor}}
	return m
}

func derive[G any](m map[reflect.Type]Type, b BaseType) {
	m[reflect.TypeFor[G]()] = b
	m[reflect.TypeFor[tensor.Optional[G]]()] = OptionalType{Elem: b}
	m[reflect.TypeFor[[]G]()] = ListType{Elem: b}
	if allowsListOptional(b) {
		m[reflect.TypeFor[tensor.Optional[[]G]]()] = OptionalType{Elem: ListType{Elem: b}}
	}
}

func invert(m map[reflect.Type]Type) map[Type]reflect.Type {
	out := make(map[Type]reflect.Type, len(m))
	for g, t := range m {
		out[t] = g
	}
	return out
}

// GoType returns the Go type values of schema type t are boxed as. Integer
// spellings share int64 and fixed-size lists share the unsized slice type.
func GoType(t Type) (reflect.Type, bool) {
	g, ok := schemaTypes[canonical(t)]
	return g, ok
}

func canonical(t Type) Type {
	switch x := t.(type) {
	case BaseType:
		if x == Int {
			return SymInt
		}
		return x
	case OptionalType:
		return OptionalType{Elem: canonical(x.Elem)}
	case ListType:
		return ListType{Elem: canonical(x.Elem)}
	default:
		return t
	}
}

var tensorType = reflect.TypeFor[*tensor.Tensor]()

// Infer builds a schema from an annotated prototype. Each parameter is
// checked for kind, annotation, type and default, in that order; the return
// must be a tensor or a fixed-size array of tensors.
//
// Infer does not call Validate.
func Infer(proto *Prototype) (*Schema, error) {
	if proto == nil {
		return nil, fmt.Errorf("%w: nil prototype", ErrMissingAnnotation)
	}
	s := &Schema{Name: proto.Name}
	for _, p := range proto.Params {
		if err := checkKind(proto, p); err != nil {
			return nil, err
		}
		if p.Type == nil {
			return nil, fmt.Errorf("%w: parameter %q of %s", ErrMissingAnnotation, p.Name, proto.Name)
		}
		t, ok := goTypes[p.Type]
		if !ok {
			return nil, fmt.Errorf("%w: parameter %q of %s has type %s",
				ErrUnsupportedType, p.Name, proto.Name, p.Type)
		}
		if p.HasDefault {
			return nil, fmt.Errorf("%w: parameter %q of %s", ErrDefaultNotAllowed, p.Name, proto.Name)
		}
		arg := Argument{Name: p.Name, Type: t}
		if p.Kind == KeywordOnly {
			s.KwargOnly = append(s.KwargOnly, arg)
		} else {
			s.Positional = append(s.Positional, arg)
		}
	}

	rets, tuple, err := inferReturns(proto)
	if err != nil {
		return nil, err
	}
	s.Returns = rets
	s.TupleReturns = tuple
	return s, nil
}

func checkKind(proto *Prototype, p Param) error {
	switch p.Kind {
	case PositionalOrKeyword, KeywordOnly:
		return nil
	default:
		return fmt.Errorf("%w: parameter %q of %s is %s",
			ErrUnsupportedParameterKind, p.Name, proto.Name, p.Kind)
	}
}

func inferReturns(proto *Prototype) ([]Return, bool, error) {
	t := proto.Return
	switch {
	case t == nil:
		return nil, false, fmt.Errorf("%w: %s has no return annotation", ErrInvalidReturn, proto.Name)
	case t == tensorType:
		return []Return{{Type: Tensor}}, false, nil
	case t.Kind() == reflect.Array && t.Elem() == tensorType && t.Len() > 0:
		rets := make([]Return, t.Len())
		for i := range rets {
			rets[i] = Return{Type: Tensor}
		}
		return rets, t.Len() == 1, nil
	default:
		return nil, false, fmt.Errorf("%w: %s returns %s, expected a tensor or a tuple of tensors",
			ErrInvalidReturn, proto.Name, t)
	}
}

// ValidateManual parses an explicitly written schema and checks it against
// an unannotated prototype: same positional and keyword-only names in the
// same order, and no defaults on either side.
func ValidateManual(src string, proto *Prototype) (*Schema, error) {
	if proto == nil {
		return nil, fmt.Errorf("%w: nil prototype", ErrSignatureMismatch)
	}
	for _, p := range proto.Params {
		if err := checkKind(proto, p); err != nil {
			return nil, err
		}
	}
	for _, p := range proto.Params {
		if p.Type != nil {
			return nil, fmt.Errorf("%w: %s: parameter %q is annotated although a schema was given",
				ErrSignatureMismatch, proto.Name, p.Name)
		}
	}
	if proto.Return != nil {
		return nil, fmt.Errorf("%w: %s: return is annotated although a schema was given",
			ErrSignatureMismatch, proto.Name)
	}

	s, err := ParseSignature(proto.Name, src)
	if err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	var positional, kwargOnly []Param
	for _, p := range proto.Params {
		if p.Kind == KeywordOnly {
			kwargOnly = append(kwargOnly, p)
		} else {
			positional = append(positional, p)
		}
	}
	if err := matchArguments(s, "positional", s.Positional, positional); err != nil {
		return nil, err
	}
	if err := matchArguments(s, "keyword-only", s.KwargOnly, kwargOnly); err != nil {
		return nil, err
	}
	return s, nil
}

func matchArguments(s *Schema, what string, args []Argument, params []Param) error {
	if len(args) != len(params) {
		return fmt.Errorf("%w: %s: schema has %d %s arguments, prototype has %d",
			ErrSignatureMismatch, s.Name, len(args), what, len(params))
	}
	for i, a := range args {
		p := params[i]
		if a.Name != p.Name {
			return fmt.Errorf("%w: %s: %s argument %d is %q in the schema and %q in the prototype",
				ErrSignatureMismatch, s.Name, what, i, a.Name, p.Name)
		}
		if a.Default != nil || p.HasDefault {
			return fmt.Errorf("%w: %s: argument %q has a default; defaults are not supported",
				ErrSignatureMismatch, s.Name, a.Name)
		}
	}
	return nil
}
