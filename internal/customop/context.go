package customop

import (
	"fmt"

	"github.com/born-ml/customop/internal/symbolic"
)

// Context is what an abstract kernel sees while it runs. Obtain it with
// CurrentContext; it is only valid until the kernel returns.
type Context interface {
	// CreateUnbackedSize mints a symbolic size for a data-dependent output
	// dimension.
	CreateUnbackedSize(opts ...SizeOption) (*symbolic.Size, error)
}

type sizeBounds struct {
	min symbolic.Int
	max symbolic.Int
}

// SizeOption bounds a new unbacked size.
type SizeOption func(*sizeBounds)

// WithMin sets the inclusive lower bound. It defaults to 2 (also for a nil
// v) and may not be lower.
func WithMin(v symbolic.Int) SizeOption {
	return func(b *sizeBounds) {
		b.min = v
	}
}

// WithMax sets the inclusive upper bound. Sizes are unbounded by default.
func WithMax(v symbolic.Int) SizeOption {
	return func(b *sizeBounds) {
		b.max = v
	}
}

// AbstractImplContext is pushed for the duration of Operator.CallAbstract.
type AbstractImplContext struct {
	env symbolic.Env
	op  *Operator
}

// Env returns the symbolic environment, which may be nil.
func (c *AbstractImplContext) Env() symbolic.Env { return c.env }

// Operator returns the operator whose abstract kernel is running.
func (c *AbstractImplContext) Operator() *Operator { return c.op }

// CreateUnbackedSize mints a size from the environment and constrains it to
// [min, max]. Bounds must be static; min must be at least 2 so the size is
// never specialized to 0 or 1.
func (c *AbstractImplContext) CreateUnbackedSize(opts ...SizeOption) (*symbolic.Size, error) {
	if c.env == nil || !c.env.AllowDynamicOutputShapes() {
		return nil, fmt.Errorf("%w: %w: %s produces a data-dependent output shape",
			ErrInvocation, ErrSymbolicExecutionDisabled, c.op.qualname)
	}

	var b sizeBounds
	for _, opt := range opts {
		opt(&b)
	}
	if b.min == nil {
		b.min = symbolic.Const(2)
	}
	lo, ok := b.min.Static()
	if !ok {
		return nil, fmt.Errorf("%w: %w: min=%s", ErrInvocation, ErrNonStaticBound, b.min)
	}
	hi := symbolic.Unbounded()
	if b.max != nil {
		v, ok := b.max.Static()
		if !ok {
			return nil, fmt.Errorf("%w: %w: max=%s", ErrInvocation, ErrNonStaticBound, b.max)
		}
		hi = symbolic.Upto(v)
	}
	if lo < 2 {
		return nil, fmt.Errorf("%w: %w: got min=%d", ErrInvocation, ErrMinimumTooLow, lo)
	}

	size := c.env.NewUnbackedSize()
	if err := c.env.ConstrainRange(size, lo, hi); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvocation, c.op.qualname, err)
	}
	return size, nil
}

// shapeOnlyContext is active while an abstract kernel runs through the Meta
// key, where no symbolic environment exists.
type shapeOnlyContext struct {
	op       *Operator
	location string
}

func (c *shapeOnlyContext) CreateUnbackedSize(...SizeOption) (*symbolic.Size, error) {
	return nil, fmt.Errorf("%w: %w: %s (abstract impl registered at %s) was called with meta tensors; "+
		"data-dependent output shapes need CallAbstract with a symbolic environment",
		ErrInvocation, ErrShapeOnlyContextHasNoSymbolicSizes, c.op.qualname, c.location)
}

// noContext is returned by CurrentContext outside of any abstract call.
type noContext struct{}

func (noContext) CreateUnbackedSize(...SizeOption) (*symbolic.Size, error) {
	return nil, fmt.Errorf("%w: %w; CreateUnbackedSize may only be called from an abstract implementation",
		ErrInvocation, ErrNoActiveAbstractContext)
}

// ContextStack is the stack of active abstract contexts. The innermost frame
// is current.
type ContextStack struct {
	frames []Context
}

// enter pushes c and returns the func that pops back to the depth before
// the push. Run it with defer so every exit path restores the stack.
func (s *ContextStack) enter(c Context) func() {
	depth := len(s.frames)
	s.frames = append(s.frames, c)
	return func() {
		clear(s.frames[depth:])
		s.frames = s.frames[:depth]
	}
}

// Current returns the innermost context, or one whose operations fail with
// ErrNoActiveAbstractContext when the stack is empty.
func (s *ContextStack) Current() Context {
	if len(s.frames) == 0 {
		return noContext{}
	}
	return s.frames[len(s.frames)-1]
}

// Depth returns the number of active contexts.
func (s *ContextStack) Depth() int {
	return len(s.frames)
}

var contexts ContextStack

// CurrentContext returns the process-wide innermost abstract context.
func CurrentContext() Context {
	return contexts.Current()
}

// ContextDepth returns the depth of the process-wide context stack.
func ContextDepth() int {
	return contexts.Depth()
}

// CreateUnbackedSize calls CreateUnbackedSize on the current context.
func CreateUnbackedSize(opts ...SizeOption) (*symbolic.Size, error) {
	return CurrentContext().CreateUnbackedSize(opts...)
}
