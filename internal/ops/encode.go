package ops

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"github.com/born-ml/customop/internal/customop"
	"github.com/born-ml/customop/internal/schema"
	"github.com/born-ml/customop/internal/tensor"
)

// TokenEncoder turns text into token ids. *tiktoken.Tiktoken satisfies it.
type TokenEncoder interface {
	Encode(text string, allowedSpecial []string, disallowedSpecial []string) []int
}

// EncodingLoader resolves an encoding name such as "cl100k_base".
type EncodingLoader func(name string) (TokenEncoder, error)

// TiktokenLoader loads encodings with tiktoken-go. The first use of an
// encoding may download its BPE ranks.
func TiktokenLoader(name string) (TokenEncoder, error) {
	enc, err := tiktoken.GetEncoding(name)
	if err != nil {
		return nil, fmt.Errorf("failed to load tiktoken encoding %q: %w", name, err)
	}
	return enc, nil
}

// encoder caches loaded encodings by name.
type encoder struct {
	load  EncodingLoader
	cache map[string]TokenEncoder
}

func newEncoder(load EncodingLoader) *encoder {
	return &encoder{load: load, cache: make(map[string]TokenEncoder)}
}

// encode returns the token ids of text as a 1-d int64 CPU tensor.
func (e *encoder) encode(text, encoding string) (*tensor.Tensor, error) {
	enc, ok := e.cache[encoding]
	if !ok {
		var err error
		if enc, err = e.load(encoding); err != nil {
			return nil, err
		}
		e.cache[encoding] = enc
	}

	tokens := enc.Encode(text, nil, nil)
	ids := make([]int64, len(tokens))
	for i, tok := range tokens {
		ids[i] = int64(tok)
	}
	return tensor.FromSlice(ids, tensor.Shape{len(ids)}, tensor.CPU)
}

func registerEncode(r *customop.Registry, e *encoder) (*customop.Operator, error) {
	proto, err := schema.FromFunc("encode", e.encode, "text", "encoding")
	if err != nil {
		return nil, err
	}
	op, err := r.Define(EncodeName, proto)
	if err != nil {
		return nil, err
	}
	if err := op.ImplFactory(func(args []any) ([]any, error) {
		return box(e.encode(args[0].(string), args[1].(string)))
	}); err != nil {
		return nil, err
	}
	return op, nil
}
