package symbolic

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// ShapeEnv is an in-process Env that mints sizes named u0, u1, ... and keeps
// one value range per size. It is not safe for concurrent use.
type ShapeEnv struct {
	id           uuid.UUID
	allowDynamic bool
	sizes        []*Size
	ranges       map[*Size]Range
	logger       *slog.Logger
}

// Option configures a ShapeEnv.
type Option func(*ShapeEnv)

// WithDynamicOutputShapes enables or disables data-dependent output shapes.
// Environments allow them by default.
func WithDynamicOutputShapes(allow bool) Option {
	return func(e *ShapeEnv) {
		e.allowDynamic = allow
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(e *ShapeEnv) {
		e.logger = l
	}
}

// NewShapeEnv creates an empty environment.
func NewShapeEnv(opts ...Option) *ShapeEnv {
	e := &ShapeEnv{
		id:           uuid.New(),
		allowDynamic: true,
		ranges:       make(map[*Size]Range),
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ID identifies the environment in diagnostics.
func (e *ShapeEnv) ID() uuid.UUID {
	return e.id
}

// AllowDynamicOutputShapes implements Env.
func (e *ShapeEnv) AllowDynamicOutputShapes() bool {
	return e.allowDynamic
}

// NewUnbackedSize implements Env. A new size starts with range [0, inf].
func (e *ShapeEnv) NewUnbackedSize() *Size {
	s := &Size{
		id:   len(e.sizes),
		name: fmt.Sprintf("u%d", len(e.sizes)),
		env:  e,
	}
	e.sizes = append(e.sizes, s)
	e.ranges[s] = Range{Min: 0}
	e.logger.Debug("symbolic: new unbacked size", "env", e.id, "size", s.name)
	return s
}

// ConstrainRange implements Env. Repeated constraints intersect.
func (e *ShapeEnv) ConstrainRange(s *Size, min int64, max Bound) error {
	cur, ok := e.ranges[s]
	if !ok {
		return fmt.Errorf("%w: %s", ErrForeignSize, s)
	}
	if min < 0 || (max.Set && max.Value < 0) {
		return fmt.Errorf("%w: %s constrained to %s", ErrNegativeSize, s, Range{Min: min, Max: max})
	}

	next, err := cur.Intersect(Range{Min: min, Max: max})
	if err != nil {
		return fmt.Errorf("constrain %s: %w", s, err)
	}
	e.ranges[s] = next
	e.logger.Debug("symbolic: constrain range", "env", e.id, "size", s.name, "range", next.String())
	return nil
}

// Range returns the current range of s.
func (e *ShapeEnv) Range(s *Size) (Range, bool) {
	r, ok := e.ranges[s]
	return r, ok
}

// Sizes returns every size minted so far, in creation order.
func (e *ShapeEnv) Sizes() []*Size {
	out := make([]*Size, len(e.sizes))
	copy(out, e.sizes)
	return out
}
