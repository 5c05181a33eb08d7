// Package schema models operator signatures: the typed parameter and return
// lists of a custom operator, their textual form, validation, and inference
// from Go prototypes.
//
// The textual form is the interchange representation:
//
//	name(Tensor x, Tensor? bias, *, SymInt n) -> (Tensor, Tensor)
//
// Parse and String round-trip: Parse(s.String()) yields s again.
package schema

import (
	"errors"
	"fmt"
	"strings"
)

// Definition errors reported by parsing, inference and validation.
var (
	ErrSyntax                   = errors.New("schema syntax error")
	ErrUnsupportedType          = errors.New("unsupported type")
	ErrMissingAnnotation        = errors.New("missing type annotation")
	ErrUnsupportedParameterKind = errors.New("unsupported parameter kind")
	ErrDefaultNotAllowed        = errors.New("default values are not allowed")
	ErrInvalidReturn            = errors.New("invalid return type")
	ErrSignatureMismatch        = errors.New("prototype does not match schema")
	ErrNonFunctionalSchema      = errors.New("non-functional schema")
	ErrViewReturnNotSupported   = errors.New("view returns are not supported")
	ErrNoReturns                = errors.New("schema has no returns")
	ErrReservedArgumentName     = errors.New("reserved argument name")
	ErrNotAFunction             = errors.New("prototype source is not a function")
)

// Annotation is an alias annotation such as (a) or (a!).
type Annotation struct {
	Set     string
	IsWrite bool
}

func (a *Annotation) String() string {
	if a.IsWrite {
		return "(" + a.Set + "!)"
	}
	return "(" + a.Set + ")"
}

// Argument is one declared parameter.
type Argument struct {
	Name    string
	Type    Type
	Default *string // raw default text, nil when absent
	Alias   *Annotation
}

func (a Argument) String() string {
	s := typeString(a.Type, a.Alias) + " " + a.Name
	if a.Default != nil {
		s += "=" + *a.Default
	}
	return s
}

// Return is one declared output.
type Return struct {
	Name  string
	Type  Type
	Alias *Annotation
}

func (r Return) String() string {
	s := typeString(r.Type, r.Alias)
	if r.Name != "" {
		s += " " + r.Name
	}
	return s
}

// Kind classifies a schema by its mutation semantics.
type Kind int

// Schema kinds.
const (
	Functional Kind = iota
	Inplace
	Out
	Mutable
)

func (k Kind) String() string {
	switch k {
	case Functional:
		return "functional"
	case Inplace:
		return "inplace"
	case Out:
		return "out"
	case Mutable:
		return "mutable"
	default:
		return "unknown"
	}
}

// Schema is a parsed operator signature.
type Schema struct {
	Name       string
	Positional []Argument
	KwargOnly  []Argument
	Returns    []Return
	// TupleReturns marks a single unnamed return written as a one-element
	// tuple, so (Tensor) and Tensor stay distinct. It is false otherwise.
	TupleReturns bool
}

// Arguments returns positional then keyword-only arguments, which is the
// order boxed arguments are passed in.
func (s *Schema) Arguments() []Argument {
	out := make([]Argument, 0, len(s.Positional)+len(s.KwargOnly))
	out = append(out, s.Positional...)
	return append(out, s.KwargOnly...)
}

// Kind reports how the schema mutates its inputs.
func (s *Schema) Kind() Kind {
	if strings.HasSuffix(s.Name, "_") {
		return Inplace
	}
	for _, a := range s.KwargOnly {
		if a.Alias != nil && a.Alias.IsWrite {
			return Out
		}
	}
	for _, a := range s.Positional {
		if a.Alias != nil && a.Alias.IsWrite {
			return Mutable
		}
	}
	return Functional
}

// Validate checks the constraints custom operators place on a schema:
// functional, no view returns, at least one return, no argument named self.
func (s *Schema) Validate() error {
	if k := s.Kind(); k != Functional {
		return fmt.Errorf("%w (%s): %s", ErrNonFunctionalSchema, k, s)
	}
	for _, r := range s.Returns {
		if r.Alias != nil && !r.Alias.IsWrite {
			return fmt.Errorf("%w: %s", ErrViewReturnNotSupported, s)
		}
	}
	if len(s.Returns) == 0 {
		return fmt.Errorf("%w: %s", ErrNoReturns, s)
	}
	for _, a := range s.Arguments() {
		if a.Name == "self" {
			return fmt.Errorf("%w: argument named 'self' in %s", ErrReservedArgumentName, s)
		}
	}
	return nil
}

// Signature formats the schema without its name.
func (s *Schema) Signature() string {
	var b strings.Builder
	b.WriteByte('(')
	args := make([]string, 0, len(s.Positional)+len(s.KwargOnly)+1)
	for _, a := range s.Positional {
		args = append(args, a.String())
	}
	if len(s.KwargOnly) > 0 {
		args = append(args, "*")
		for _, a := range s.KwargOnly {
			args = append(args, a.String())
		}
	}
	b.WriteString(strings.Join(args, ", "))
	b.WriteString(") -> ")

	rets := make([]string, len(s.Returns))
	named := false
	for i, r := range s.Returns {
		rets[i] = r.String()
		named = named || r.Name != ""
	}
	if len(rets) == 1 && !s.TupleReturns && !named {
		b.WriteString(rets[0])
	} else {
		b.WriteString("(" + strings.Join(rets, ", ") + ")")
	}
	return b.String()
}

// String formats the schema in its canonical textual form.
func (s *Schema) String() string {
	return s.Name + s.Signature()
}
