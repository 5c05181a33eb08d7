package schema

import "strconv"

// Type is a parameter or return type in an operator schema.
type Type interface {
	String() string
	isType()
}

// BaseType is a leaf type of the schema universe.
type BaseType string

// Base types accepted in schemas. SymInt and int are both integers; inference
// always produces SymInt.
const (
	Tensor     BaseType = "Tensor"
	SymInt     BaseType = "SymInt"
	Int        BaseType = "int"
	Float      BaseType = "float"
	Bool       BaseType = "bool"
	Str        BaseType = "str"
	Scalar     BaseType = "Scalar"
	ScalarType BaseType = "ScalarType"
	Device     BaseType = "Device"
)

var baseTypes = map[string]BaseType{
	string(Tensor):     Tensor,
	string(SymInt):     SymInt,
	string(Int):        Int,
	string(Float):      Float,
	string(Bool):       Bool,
	string(Str):        Str,
	string(Scalar):     Scalar,
	string(ScalarType): ScalarType,
	string(Device):     Device,
}

func (b BaseType) String() string { return string(b) }
func (BaseType) isType()          {}

// OptionalType is T?.
type OptionalType struct {
	Elem Type
}

func (o OptionalType) String() string { return typeString(o, nil) }
func (OptionalType) isType()          {}

// ListType is T[] or, with a non-zero Size, the fixed-length T[N].
type ListType struct {
	Elem Type
	Size int
}

func (l ListType) String() string { return typeString(l, nil) }
func (ListType) isType()          {}

// typeString formats t with an optional alias annotation attached to the
// innermost base type, e.g. Tensor(a!)[].
func typeString(t Type, alias *Annotation) string {
	switch x := t.(type) {
	case BaseType:
		if alias != nil {
			return string(x) + alias.String()
		}
		return string(x)
	case OptionalType:
		return typeString(x.Elem, alias) + "?"
	case ListType:
		if x.Size > 0 {
			return typeString(x.Elem, alias) + "[" + strconv.Itoa(x.Size) + "]"
		}
		return typeString(x.Elem, alias) + "[]"
	default:
		return "<nil>"
	}
}

// isInteger reports whether b is one of the integer spellings.
func isInteger(b BaseType) bool {
	return b == SymInt || b == Int
}

// allowsListOptional reports whether T[]? is in the universe for base b.
func allowsListOptional(b BaseType) bool {
	return isInteger(b) || b == Float || b == Bool
}

// Supported reports whether t is in the supported type universe: every base
// type B as B, B?, B[], B[N]; additionally Tensor?[] and, for integer, float
// and bool, B[]?.
func Supported(t Type) bool {
	switch x := t.(type) {
	case BaseType:
		_, ok := baseTypes[string(x)]
		return ok
	case OptionalType:
		switch e := x.Elem.(type) {
		case BaseType:
			return Supported(e)
		case ListType:
			b, ok := e.Elem.(BaseType)
			return ok && Supported(b) && allowsListOptional(b)
		}
	case ListType:
		switch e := x.Elem.(type) {
		case BaseType:
			return Supported(e)
		case OptionalType:
			b, ok := e.Elem.(BaseType)
			return ok && b == Tensor && x.Size == 0
		}
	}
	return false
}

// Base returns the innermost base type of t.
func Base(t Type) BaseType {
	switch x := t.(type) {
	case BaseType:
		return x
	case OptionalType:
		return Base(x.Elem)
	case ListType:
		return Base(x.Elem)
	default:
		return ""
	}
}
