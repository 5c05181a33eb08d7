// Package dispatch is an in-process operator dispatcher: it owns operator
// definitions, maps each (operator, key) pair to a kernel, and routes boxed
// calls to the kernel selected from the arguments' runtime properties.
//
// A Dispatcher is not safe for concurrent use.
package dispatch

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/google/uuid"

	"github.com/born-ml/customop/internal/schema"
	"github.com/born-ml/customop/internal/tensor"
)

// Dispatcher errors.
var (
	ErrAlreadyDefined = errors.New("operator already defined")
	ErrNotDefined     = errors.New("operator not defined")
	ErrNoKernel       = errors.New("no kernel for dispatch key")
	ErrNilKernel      = errors.New("nil kernel")
	ErrBadArguments   = errors.New("arguments do not match schema")
	ErrBadResults     = errors.New("kernel results do not match schema")
)

// Kernel is a boxed implementation. args follow the schema's positional then
// keyword-only order; results follow its returns.
type Kernel func(args []any) ([]any, error)

// Handle is the dispatcher's record of one defined operator.
type Handle struct {
	id      uuid.UUID
	name    string
	schema  *schema.Schema
	kernels map[Key]Kernel
	defined bool
}

// ID returns the handle's unique id.
func (h *Handle) ID() uuid.UUID { return h.id }

// Name returns the qualified operator name.
func (h *Handle) Name() string { return h.name }

// Schema returns the schema the operator was defined with.
func (h *Handle) Schema() *schema.Schema { return h.schema }

// Defined reports whether the handle has not been undefined.
func (h *Handle) Defined() bool { return h.defined }

// Dispatcher routes operator calls to kernels.
type Dispatcher struct {
	ops              map[string]*Handle
	autogradExcluded bool
	trace            bool
	logger           *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = l
	}
}

// WithTrace logs every key selection at info level instead of debug.
func WithTrace(on bool) Option {
	return func(d *Dispatcher) {
		d.trace = on
	}
}

// New creates an empty dispatcher.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		ops:    make(map[string]*Handle),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Define creates a handle for qualname. Defining a name twice fails with
// ErrAlreadyDefined.
func (d *Dispatcher) Define(qualname string, s *schema.Schema) (*Handle, error) {
	if _, ok := d.ops[qualname]; ok {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyDefined, qualname)
	}
	h := &Handle{
		id:      uuid.New(),
		name:    qualname,
		schema:  s,
		kernels: make(map[Key]Kernel),
		defined: true,
	}
	d.ops[qualname] = h
	d.logger.Debug("operator defined", "op", qualname, "schema", s.String(), "handle", h.id)
	return h, nil
}

// Find returns the handle defined for qualname.
func (d *Dispatcher) Find(qualname string) (*Handle, error) {
	h, ok := d.ops[qualname]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotDefined, qualname)
	}
	return h, nil
}

// Names returns the defined operator names, sorted.
func (d *Dispatcher) Names() []string {
	return slices.Sorted(maps.Keys(d.ops))
}

// Impl binds kernel to key. Binding a key again replaces the kernel.
func (d *Dispatcher) Impl(h *Handle, key Key, kernel Kernel) error {
	if err := d.check(h); err != nil {
		return err
	}
	if kernel == nil {
		return fmt.Errorf("%w: %s[%s]", ErrNilKernel, h.name, key)
	}
	if _, ok := h.kernels[key]; ok {
		d.logger.Warn("overriding kernel", "op", h.name, "key", key)
	}
	h.kernels[key] = kernel
	return nil
}

// Keys returns the keys with a bound kernel, in key order.
func (d *Dispatcher) Keys(h *Handle) []Key {
	return slices.Sorted(maps.Keys(h.kernels))
}

// HasKernel reports whether key is bound for h.
func (d *Dispatcher) HasKernel(h *Handle, key Key) bool {
	_, ok := h.kernels[key]
	return ok
}

// Undefine removes the operator. The handle becomes unusable.
func (d *Dispatcher) Undefine(h *Handle) {
	if cur, ok := d.ops[h.name]; ok && cur == h {
		delete(d.ops, h.name)
	}
	h.defined = false
	clear(h.kernels)
	d.logger.Debug("operator undefined", "op", h.name, "handle", h.id)
}

// ExcludeAutograd skips the Autograd key until the returned func runs:
//
//	defer d.ExcludeAutograd()()
func (d *Dispatcher) ExcludeAutograd() func() {
	was := d.autogradExcluded
	d.autogradExcluded = true
	return func() {
		d.autogradExcluded = was
	}
}

// AutogradExcluded reports whether the Autograd key is currently skipped.
func (d *Dispatcher) AutogradExcluded() bool {
	return d.autogradExcluded
}

// Call validates args against the schema, selects a key and runs its
// kernel. Key selection, first match wins:
//
//  1. Autograd, when bound and not excluded
//  2. BackendSelect, when there is no tensor argument
//  3. Meta, when any tensor argument lives on the meta device
//  4. the highest-priority backend among the tensor arguments
func (d *Dispatcher) Call(h *Handle, args []any) ([]any, error) {
	if err := d.check(h); err != nil {
		return nil, err
	}
	if err := h.CheckArgs(args); err != nil {
		return nil, err
	}

	key, err := d.selectKey(h, args)
	if err != nil {
		return nil, err
	}
	kernel, ok := h.kernels[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s has no %s kernel", ErrNoKernel, h.name, key)
	}
	if d.trace {
		d.logger.Info("dispatch", "op", h.name, "key", key)
	} else {
		d.logger.Debug("dispatch", "op", h.name, "key", key)
	}

	out, err := kernel(args)
	if err != nil {
		return nil, err
	}
	if err := h.CheckResults(out); err != nil {
		return nil, err
	}
	return out, nil
}

func (d *Dispatcher) check(h *Handle) error {
	if h == nil {
		return fmt.Errorf("%w: <nil>", ErrNotDefined)
	}
	if !h.defined {
		return fmt.Errorf("%w: %s (handle %s)", ErrNotDefined, h.name, h.id)
	}
	return nil
}

func (d *Dispatcher) selectKey(h *Handle, args []any) (Key, error) {
	if !d.autogradExcluded {
		if _, ok := h.kernels[Autograd]; ok {
			return Autograd, nil
		}
	}

	tensors := tensor.Collect(args)
	if len(tensors) == 0 {
		return BackendSelect, nil
	}
	for _, t := range tensors {
		if t.Device() == tensor.Meta {
			return Meta, nil
		}
	}

	devices := Affinities(args)
	dev, ok := ResolveBackend(devices)
	if !ok {
		return 0, fmt.Errorf("%w: %s has no backend for devices %v", ErrNoKernel, h.name, devices)
	}
	key, _ := BackendKey(dev)
	return key, nil
}

// CheckArgs validates boxed arguments against the schema.
func (h *Handle) CheckArgs(args []any) error {
	params := h.schema.Arguments()
	if len(args) != len(params) {
		return fmt.Errorf("%w: %s takes %d arguments, got %d", ErrBadArguments, h.name, len(params), len(args))
	}
	for i, p := range params {
		if !schema.Conforms(p.Type, args[i]) {
			return fmt.Errorf("%w: %s argument %q expects %s, got %T",
				ErrBadArguments, h.name, p.Name, p.Type, args[i])
		}
	}
	return nil
}

// CheckResults validates kernel results against the schema's returns.
func (h *Handle) CheckResults(out []any) error {
	rets := h.schema.Returns
	if len(out) != len(rets) {
		return fmt.Errorf("%w: %s returns %d values, kernel produced %d", ErrBadResults, h.name, len(rets), len(out))
	}
	for i, r := range rets {
		if !schema.Conforms(r.Type, out[i]) {
			return fmt.Errorf("%w: %s result %d expects %s, got %T", ErrBadResults, h.name, i, r.Type, out[i])
		}
	}
	return nil
}
