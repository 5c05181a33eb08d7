// Package customop defines custom operators: named, typed, side-effect-free
// computations registered once and given independent implementations per
// backend, a shape-only implementation, a factory implementation and a
// differentiability guard. Calling an operator dispatches to the right
// implementation based on its arguments.
//
// Typical use:
//
//	r := customop.NewRegistry(dispatch.New())
//	op, err := r.Define("mylib::scale", schema.Func("scale",
//		schema.In("x", reflect.TypeFor[*tensor.Tensor]()),
//		schema.In("k", reflect.TypeFor[float64]()),
//	).Returning(reflect.TypeFor[*tensor.Tensor]()))
//	err = op.Impl(scaleCPU, "cpu")
//	out, err := op.Call(x, 2.0)
//
// Registries, operators and the context stack are not safe for concurrent
// use.
package customop

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/born-ml/customop/internal/dispatch"
	"github.com/born-ml/customop/internal/schema"
)

var reservedNamespaces = map[string]bool{
	"prim":    true,
	"prims":   true,
	"aten":    true,
	"at":      true,
	"torch":   true,
	"pytorch": true,
}

// Registry owns the set of live custom operators, keyed by qualified name.
type Registry struct {
	dispatcher *dispatch.Dispatcher
	ops        map[string]*Operator
	logger     *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = l
	}
}

// NewRegistry creates an empty registry on top of d. A nil d gets a fresh
// dispatcher sharing the registry's logger.
func NewRegistry(d *dispatch.Dispatcher, opts ...Option) *Registry {
	r := &Registry{
		ops:    make(map[string]*Operator),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if d == nil {
		d = dispatch.New(dispatch.WithLogger(r.logger))
	}
	r.dispatcher = d
	return r
}

// Dispatcher returns the dispatcher operators are defined in.
func (r *Registry) Dispatcher() *dispatch.Dispatcher {
	return r.dispatcher
}

// Define creates an operator whose schema is inferred from an annotated
// prototype.
func (r *Registry) Define(qualname string, proto *schema.Prototype) (*Operator, error) {
	return r.define(qualname, proto, func() (*schema.Schema, error) {
		s, err := schema.Infer(proto)
		if err != nil {
			return nil, err
		}
		return s, s.Validate()
	})
}

// DefineManual creates an operator from an explicit schema string. The
// prototype must be unannotated and agree with the schema on argument names.
func (r *Registry) DefineManual(qualname, src string, proto *schema.Prototype) (*Operator, error) {
	return r.define(qualname, proto, func() (*schema.Schema, error) {
		return schema.ValidateManual(src, proto)
	})
}

func (r *Registry) define(qualname string, proto *schema.Prototype, build func() (*schema.Schema, error)) (*Operator, error) {
	ns, name, err := splitQualname(qualname)
	if err != nil {
		return nil, wrap(ErrDefinition, err)
	}
	if proto == nil {
		return nil, wrap(ErrDefinition, fmt.Errorf("%w: %s: nil prototype", ErrNameMismatch, qualname))
	}
	if proto.Name != name {
		return nil, wrap(ErrDefinition, fmt.Errorf("%w: %s defined from prototype %q", ErrNameMismatch, qualname, proto.Name))
	}
	if _, ok := r.ops[qualname]; ok {
		return nil, wrap(ErrDefinition, fmt.Errorf("%w: %s", ErrAlreadyDefined, qualname))
	}

	s, err := build()
	if err != nil {
		return nil, wrap(ErrDefinition, fmt.Errorf("%s: %w", qualname, err))
	}
	h, err := r.dispatcher.Define(qualname, s)
	if err != nil {
		return nil, wrap(ErrDefinition, err)
	}

	op := &Operator{
		registry:  r,
		qualname:  qualname,
		namespace: ns,
		name:      name,
		schema:    s,
		handle:    h,
	}
	if err := r.dispatcher.Impl(h, dispatch.Autograd, autogradGuard(r, qualname)); err != nil {
		r.dispatcher.Undefine(h)
		return nil, wrap(ErrDefinition, err)
	}
	r.ops[qualname] = op
	r.logger.Debug("custom op defined", "op", qualname, "schema", s.String())
	return op, nil
}

// splitQualname validates and splits namespace::name.
func splitQualname(qualname string) (string, string, error) {
	ns, name, ok := strings.Cut(qualname, "::")
	if !ok {
		return "", "", fmt.Errorf("%w: got %q", ErrMissingNamespace, qualname)
	}
	if ns == "" || strings.Contains(ns, ".") || !schema.IsIdentifier(ns) {
		return "", "", fmt.Errorf("%w: %q in %q", ErrInvalidNamespace, ns, qualname)
	}
	if reservedNamespaces[ns] {
		return "", "", fmt.Errorf("%w: %q is used by built-in operators; pick another namespace", ErrReservedNamespace, ns)
	}
	if !schema.IsIdentifier(name) {
		return "", "", fmt.Errorf("%w: %q in %q", ErrInvalidName, name, qualname)
	}
	return ns, name, nil
}

// Lookup returns the live operator registered as qualname.
func (r *Registry) Lookup(qualname string) (*Operator, bool) {
	op, ok := r.ops[qualname]
	return op, ok
}

// Names returns the qualified names of all live operators, sorted.
func (r *Registry) Names() []string {
	return slices.Sorted(maps.Keys(r.ops))
}

// Destroy removes op from the registry and the dispatcher. op is unusable
// afterwards and its name may be defined again.
func (r *Registry) Destroy(op *Operator) error {
	if op == nil || op.destroyed {
		name := "<nil>"
		if op != nil {
			name = op.qualname
		}
		return fmt.Errorf("%w: %s", ErrUseAfterDestroy, name)
	}
	if cur, ok := r.ops[op.qualname]; ok && cur == op {
		delete(r.ops, op.qualname)
	}
	r.dispatcher.Undefine(op.handle)
	op.destroyed = true
	op.abstract = nil
	r.logger.Debug("custom op destroyed", "op", op.qualname)
	return nil
}

// Clear destroys every live operator.
func (r *Registry) Clear() {
	for _, name := range r.Names() {
		_ = r.Destroy(r.ops[name])
	}
}
