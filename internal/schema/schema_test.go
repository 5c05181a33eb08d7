package schema

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, src string) *Schema {
	t.Helper()
	s, err := Parse(src)
	require.NoError(t, err)
	return s
}

func TestParse_RoundTrip(t *testing.T) {
	sources := []string{
		"nonzero(Tensor x) -> Tensor",
		"linear(Tensor x, Tensor weight, Tensor? bias) -> Tensor",
		"minmax(Tensor x) -> (Tensor, Tensor)",
		"wrap(Tensor x) -> (Tensor)",
		"arange(SymInt n, *, ScalarType dtype, Device device) -> Tensor",
		"pad(Tensor x, SymInt[2] pad, float value=0.0) -> Tensor",
		"cat(Tensor?[] xs, SymInt[]? dims, str mode=\"a, b\") -> Tensor",
		"add_(Tensor(a!) x, Tensor y) -> Tensor(a!)",
		"stats(Tensor x) -> (Tensor mean, Tensor var)",
		"view(Tensor(a) x) -> Tensor(a)",
		"noop(Tensor x) -> ()",
		"(Scalar s, bool[] flags, int k) -> Tensor",
	}

	for _, src := range sources {
		t.Run(src, func(t *testing.T) {
			s := mustParse(t, src)
			assert.Equal(t, src, s.String())

			again := mustParse(t, s.String())
			if diff := cmp.Diff(s, again); diff != "" {
				t.Errorf("reparse mismatch (-first +second):\n%s", diff)
			}
		})
	}
}

func TestParse_Whitespace(t *testing.T) {
	s := mustParse(t, "  f ( Tensor x ,  *  , SymInt n )->(Tensor,Tensor) ")
	assert.Equal(t, "f(Tensor x, *, SymInt n) -> (Tensor, Tensor)", s.String())
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		src  string
		want error
	}{
		{"", ErrSyntax},
		{"f Tensor x) -> Tensor", ErrSyntax},
		{"f(Tensor x -> Tensor", ErrSyntax},
		{"f(Tensor) -> Tensor", ErrSyntax},
		{"f(Tensor x)", ErrSyntax},
		{"f(Tensor x, *, *, Tensor y) -> Tensor", ErrSyntax},
		{"f(Tensor x) -> Tensor y", ErrSyntax},
		{"f(Tensor x) -> Tensor extra junk", ErrSyntax},
		{"f(SymInt[0] x) -> Tensor", ErrSyntax},
		{"f(Tensor x=) -> Tensor", ErrSyntax},
		{"f(Widget x) -> Tensor", ErrUnsupportedType},
		{"f(str[]? x) -> Tensor", ErrUnsupportedType},
		{"f(SymInt?[] x) -> Tensor", ErrUnsupportedType},
		{"f(Tensor?[2] x) -> Tensor", ErrUnsupportedType},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, err := Parse(tt.src)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseSignature(t *testing.T) {
	s, err := ParseSignature("f", "(Tensor x) -> Tensor")
	require.NoError(t, err)
	assert.Equal(t, "f(Tensor x) -> Tensor", s.String())

	_, err = ParseSignature("f", "g(Tensor x) -> Tensor")
	assert.ErrorIs(t, err, ErrSignatureMismatch)
}

func TestSchema_Kind(t *testing.T) {
	tests := []struct {
		src  string
		want Kind
	}{
		{"f(Tensor x) -> Tensor", Functional},
		{"f_(Tensor x) -> Tensor", Inplace},
		{"f(Tensor x, *, Tensor(a!) out) -> Tensor(a!)", Out},
		{"f(Tensor(a!) x) -> Tensor", Mutable},
		{"f(Tensor(a) x) -> Tensor", Functional},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			assert.Equal(t, tt.want, mustParse(t, tt.src).Kind())
		})
	}
}

func TestSchema_Validate(t *testing.T) {
	tests := []struct {
		src  string
		want error
	}{
		{"f(Tensor x) -> Tensor", nil},
		{"f_(Tensor x) -> Tensor", ErrNonFunctionalSchema},
		{"f(Tensor x, *, Tensor(a!) out) -> Tensor", ErrNonFunctionalSchema},
		{"f(Tensor(a!) x) -> Tensor", ErrNonFunctionalSchema},
		{"f(Tensor(a) x) -> Tensor(a)", ErrViewReturnNotSupported},
		{"f(Tensor x) -> ()", ErrNoReturns},
		{"f(Tensor self) -> Tensor", ErrReservedArgumentName},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			err := mustParse(t, tt.src).Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported(ListType{Elem: OptionalType{Elem: Tensor}}))
	assert.True(t, Supported(OptionalType{Elem: ListType{Elem: Float}}))
	assert.True(t, Supported(ListType{Elem: Device, Size: 4}))
	assert.False(t, Supported(OptionalType{Elem: OptionalType{Elem: Tensor}}))
	assert.False(t, Supported(ListType{Elem: ListType{Elem: SymInt}}))
	assert.False(t, Supported(OptionalType{Elem: ListType{Elem: Tensor}}))
	assert.False(t, Supported(BaseType("Widget")))
	assert.Equal(t, Tensor, Base(ListType{Elem: OptionalType{Elem: Tensor}}))
}
