package schema

import (
	"reflect"

	"github.com/born-ml/customop/internal/tensor"
)

// Conforms reports whether the boxed value v is acceptable for an argument
// declared as t. Tensors must be non-nil and fixed-size lists must have
// exactly the declared length.
func Conforms(t Type, v any) bool {
	want, ok := GoType(t)
	if !ok || v == nil {
		return false
	}
	if reflect.TypeOf(v) != want {
		return false
	}
	switch x := v.(type) {
	case *tensor.Tensor:
		return x != nil
	case []*tensor.Tensor:
		for _, e := range x {
			if e == nil {
				return false
			}
		}
	}
	if l, ok := t.(ListType); ok && l.Size > 0 {
		return reflect.ValueOf(v).Len() == l.Size
	}
	return true
}
