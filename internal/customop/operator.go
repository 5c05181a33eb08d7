package customop

import (
	"fmt"
	"runtime"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/born-ml/customop/internal/dispatch"
	"github.com/born-ml/customop/internal/schema"
	"github.com/born-ml/customop/internal/symbolic"
	"github.com/born-ml/customop/internal/tensor"
)

// backends maps the identifiers accepted by Impl to dispatch keys.
var backends = map[string]dispatch.Key{
	"cpu":    dispatch.CPU,
	"webgpu": dispatch.WebGPU,
}

// AbstractImpl is the shape-only implementation of an operator and where it
// was registered.
type AbstractImpl struct {
	Kernel   dispatch.Kernel
	Location string
}

// Operator is a live custom operator. Create one with Registry.Define or
// Registry.DefineManual. After Destroy every method fails with
// ErrUseAfterDestroy.
type Operator struct {
	registry  *Registry
	qualname  string
	namespace string
	name      string
	schema    *schema.Schema
	handle    *dispatch.Handle
	abstract  *AbstractImpl
	destroyed bool
}

// QualifiedName returns namespace::name.
func (op *Operator) QualifiedName() string { return op.qualname }

// Namespace returns the namespace part of the qualified name.
func (op *Operator) Namespace() string { return op.namespace }

// Name returns the operator name without its namespace.
func (op *Operator) Name() string { return op.name }

// Schema returns the operator's validated schema.
func (op *Operator) Schema() *schema.Schema { return op.schema }

// ID returns the id of the operator's dispatcher handle. A re-defined
// operator gets a new one.
func (op *Operator) ID() uuid.UUID { return op.handle.ID() }

// Destroyed reports whether Destroy has been called.
func (op *Operator) Destroyed() bool { return op.destroyed }

func (op *Operator) String() string {
	return fmt.Sprintf("<CustomOp(op=%q)>", op.qualname)
}

// Keys returns the dispatch keys with a bound kernel.
func (op *Operator) Keys() ([]dispatch.Key, error) {
	if err := op.alive(); err != nil {
		return nil, err
	}
	return op.registry.dispatcher.Keys(op.handle), nil
}

// Impl binds kernel to each named backend ("cpu", "webgpu"; case is
// ignored, repeats bind once). Either every backend is bound or none is.
func (op *Operator) Impl(kernel dispatch.Kernel, backendNames ...string) error {
	if err := op.alive(); err != nil {
		return wrap(ErrBinding, err)
	}
	if len(backendNames) == 0 {
		return fmt.Errorf("%w: %w: %s: no backend given", ErrBinding, ErrUnsupportedBackend, op.qualname)
	}
	if kernel == nil {
		return fmt.Errorf("%w: %w: %s", ErrBinding, dispatch.ErrNilKernel, op.qualname)
	}

	keys := make([]dispatch.Key, 0, len(backendNames))
	for _, b := range backendNames {
		key, ok := backends[strings.ToLower(strings.TrimSpace(b))]
		if !ok {
			return fmt.Errorf("%w: %w: %s: %q (expected cpu or webgpu)", ErrBinding, ErrUnsupportedBackend, op.qualname, b)
		}
		if !slices.Contains(keys, key) {
			keys = append(keys, key)
		}
	}
	for _, key := range keys {
		if err := op.bind(key, kernel); err != nil {
			return err
		}
	}
	return nil
}

// ImplFactory binds kernel for calls without any tensor argument. The
// kernel decides placement from its own arguments, typically a Device.
func (op *Operator) ImplFactory(kernel dispatch.Kernel) error {
	if err := op.alive(); err != nil {
		return wrap(ErrBinding, err)
	}
	if kernel == nil {
		return fmt.Errorf("%w: %w: %s", ErrBinding, dispatch.ErrNilKernel, op.qualname)
	}
	return op.bind(dispatch.BackendSelect, kernel)
}

// ImplAbstract registers the shape-only implementation. It may be called
// once per operator. The kernel computes output metadata and may call
// CreateUnbackedSize for data-dependent dimensions.
//
// The kernel also serves meta tensors through the Meta key, where no
// symbolic environment exists.
func (op *Operator) ImplAbstract(kernel dispatch.Kernel) error {
	location := callerLocation(2)
	if err := op.alive(); err != nil {
		return wrap(ErrBinding, err)
	}
	if kernel == nil {
		return fmt.Errorf("%w: %w: %s", ErrBinding, dispatch.ErrNilKernel, op.qualname)
	}
	if op.abstract != nil {
		return fmt.Errorf("%w: %w", ErrBinding, &DuplicateAbstractImplError{
			Operator:  op.qualname,
			Previous:  op.abstract.Location,
			Attempted: location,
		})
	}

	shapeOnly := &shapeOnlyContext{op: op, location: location}
	meta := func(args []any) ([]any, error) {
		defer contexts.enter(shapeOnly)()
		return kernel(args)
	}
	if err := op.bind(dispatch.Meta, meta); err != nil {
		return err
	}
	op.abstract = &AbstractImpl{Kernel: kernel, Location: location}
	return nil
}

// AbstractImpl returns the registered shape-only implementation.
func (op *Operator) AbstractImpl() (AbstractImpl, bool) {
	if op.abstract == nil {
		return AbstractImpl{}, false
	}
	return *op.abstract, true
}

// Call invokes the operator. Arguments follow the schema: positional then
// keyword-only, boxed as the Go types schema inference maps from.
func (op *Operator) Call(args ...any) ([]any, error) {
	if err := op.alive(); err != nil {
		return nil, wrap(ErrInvocation, err)
	}
	out, err := op.registry.dispatcher.Call(op.handle, args)
	if err != nil {
		return nil, wrap(ErrInvocation, err)
	}
	return out, nil
}

// CallOne invokes an operator with a single tensor return.
func (op *Operator) CallOne(args ...any) (*tensor.Tensor, error) {
	out, err := op.Call(args...)
	if err != nil {
		return nil, err
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("%w: %w: %s returns %d values", ErrInvocation, ErrBadResults, op.qualname, len(out))
	}
	return out[0].(*tensor.Tensor), nil
}

// CallAbstract runs the abstract implementation with an
// AbstractImplContext for env pushed, so the kernel can create symbolic
// sizes. Calls nest; the outer context is restored on return. Inputs that
// require grad are rejected as they are by Call.
func (op *Operator) CallAbstract(env symbolic.Env, args ...any) ([]any, error) {
	if err := op.alive(); err != nil {
		return nil, wrap(ErrInvocation, err)
	}
	if op.abstract == nil {
		return nil, fmt.Errorf("%w: %w: %s", ErrInvocation, ErrNoAbstractImpl, op.qualname)
	}
	if err := op.handle.CheckArgs(args); err != nil {
		return nil, wrap(ErrInvocation, err)
	}
	if !op.registry.dispatcher.AutogradExcluded() {
		if err := checkNoGrad(op.qualname, args); err != nil {
			return nil, err
		}
	}

	defer contexts.enter(&AbstractImplContext{env: env, op: op})()
	out, err := op.abstract.Kernel(args)
	if err != nil {
		return nil, wrap(ErrInvocation, err)
	}
	if err := op.handle.CheckResults(out); err != nil {
		return nil, wrap(ErrInvocation, err)
	}
	return out, nil
}

// Destroy removes the operator from its registry.
func (op *Operator) Destroy() error {
	return op.registry.Destroy(op)
}

func (op *Operator) alive() error {
	if op.destroyed {
		return fmt.Errorf("%w: %s", ErrUseAfterDestroy, op.qualname)
	}
	return nil
}

func (op *Operator) bind(key dispatch.Key, kernel dispatch.Kernel) error {
	if err := op.registry.dispatcher.Impl(op.handle, key, kernel); err != nil {
		return wrap(ErrBinding, err)
	}
	op.registry.logger.Debug("kernel bound", "op", op.qualname, "key", key)
	return nil
}

// callerLocation returns file:line of the frame skip levels above itself.
func callerLocation(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "unknown"
	}
	return fmt.Sprintf("%s:%d", file, line)
}
