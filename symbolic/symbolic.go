// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package symbolic provides symbolic sizes for shape-only execution.
//
// An unbacked size stands for a dimension whose value depends on data, such
// as the number of non-zero elements. A ShapeEnv mints sizes named u0, u1,
// ... and tracks the inclusive range each may take.
package symbolic

import (
	"log/slog"

	"github.com/born-ml/customop/internal/symbolic"
)

// Int is a static or symbolic integer.
type Int = symbolic.Int

// Const is a static integer.
type Const = symbolic.Const

// Size is an unbacked symbolic size.
type Size = symbolic.Size

// Bound is an optional upper bound.
type Bound = symbolic.Bound

// Range is the inclusive range of a size.
type Range = symbolic.Range

// Env is the environment abstract kernels mint sizes from.
type Env = symbolic.Env

// ShapeEnv is the in-process Env.
type ShapeEnv = symbolic.ShapeEnv

// Option configures a ShapeEnv.
type Option = symbolic.Option

// NewShapeEnv creates an environment. Dynamic output shapes are allowed
// unless disabled with WithDynamicOutputShapes(false).
func NewShapeEnv(opts ...Option) *ShapeEnv {
	return symbolic.NewShapeEnv(opts...)
}

// WithDynamicOutputShapes sets whether sizes may be minted.
func WithDynamicOutputShapes(allow bool) Option {
	return symbolic.WithDynamicOutputShapes(allow)
}

// WithLogger sets the environment's logger.
func WithLogger(l *slog.Logger) Option {
	return symbolic.WithLogger(l)
}

// Upto returns an upper bound of v.
func Upto(v int64) Bound {
	return symbolic.Upto(v)
}

// Unbounded returns the absent upper bound.
func Unbounded() Bound {
	return symbolic.Unbounded()
}
