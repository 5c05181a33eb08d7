// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package customop registers user-defined operators and dispatches calls to
// them.
//
// An operator is defined once from a prototype or a schema string, then
// given kernels: one per backend, an optional abstract kernel that computes
// output metadata only, and an optional factory kernel for calls without
// tensor arguments.
//
// Example:
//
//	r := customop.NewRegistry()
//	op, err := r.Define("mylib::scale", customop.Func("scale",
//	    customop.In("x", customop.TensorType),
//	    customop.In("k", reflect.TypeFor[float64]()),
//	).Returning(customop.TensorType))
//
//	err = op.Impl(func(args []any) ([]any, error) {
//	    x, k := args[0].(*tensor.Tensor), args[1].(float64)
//	    ...
//	}, "cpu", "webgpu")
//
//	out, err := op.Call(x, 2.0)
//
// Abstract kernels describe outputs whose size depends on data with
// CreateUnbackedSize:
//
//	err = op.ImplAbstract(func(args []any) ([]any, error) {
//	    n, err := customop.CreateUnbackedSize(customop.WithMax(symbolic.Const(100)))
//	    ...
//	})
//	out, err := op.CallAbstract(symbolic.NewShapeEnv(), metaInput)
package customop

import (
	"log/slog"
	"reflect"

	"github.com/born-ml/customop/internal/customop"
	"github.com/born-ml/customop/internal/dispatch"
	"github.com/born-ml/customop/internal/schema"
	"github.com/born-ml/customop/internal/symbolic"
	"github.com/born-ml/customop/internal/tensor"
)

// Type aliases for public API

// Registry owns the live operators.
type Registry = customop.Registry

// Operator is a live custom operator.
type Operator = customop.Operator

// Kernel is a boxed implementation: arguments in schema order in, results
// in return order out.
type Kernel = dispatch.Kernel

// Key selects a kernel during dispatch.
type Key = dispatch.Key

// AbstractImpl is a registered abstract kernel and its location.
type AbstractImpl = customop.AbstractImpl

// Context is the view an abstract kernel has of its invocation.
type Context = customop.Context

// AbstractImplContext is the context of Operator.CallAbstract.
type AbstractImplContext = customop.AbstractImplContext

// SizeOption bounds a new unbacked size.
type SizeOption = customop.SizeOption

// DuplicateAbstractImplError carries both registration sites of a
// rejected second abstract kernel.
type DuplicateAbstractImplError = customop.DuplicateAbstractImplError

// Schema is a parsed operator signature.
type Schema = schema.Schema

// Prototype describes the Go-side signature of an operator.
type Prototype = schema.Prototype

// Param is one prototype parameter.
type Param = schema.Param

// TensorType is the reflect.Type of *tensor.Tensor, for prototypes.
var TensorType = reflect.TypeFor[*tensor.Tensor]()

// Option configures a Registry.
type Option = customop.Option

// NewRegistry creates an empty registry with its own dispatcher.
func NewRegistry(opts ...Option) *Registry {
	return customop.NewRegistry(nil, opts...)
}

// WithLogger sets the registry's logger.
func WithLogger(l *slog.Logger) Option {
	return customop.WithLogger(l)
}

// Func builds a prototype.
func Func(name string, params ...Param) *Prototype {
	return schema.Func(name, params...)
}

// In is a positional parameter; t is nil for DefineManual prototypes.
func In(name string, t reflect.Type) Param {
	return schema.In(name, t)
}

// KwOnly is a keyword-only parameter.
func KwOnly(name string, t reflect.Type) Param {
	return schema.KwOnly(name, t)
}

// FromFunc reads a prototype from a Go function value.
func FromFunc(name string, fn any, names ...string) (*Prototype, error) {
	return schema.FromFunc(name, fn, names...)
}

// ParseSchema parses a schema string.
func ParseSchema(s string) (*Schema, error) {
	return schema.Parse(s)
}

// CurrentContext returns the innermost active abstract context.
func CurrentContext() Context {
	return customop.CurrentContext()
}

// CreateUnbackedSize mints a data-dependent size from the current context.
func CreateUnbackedSize(opts ...SizeOption) (*symbolic.Size, error) {
	return customop.CreateUnbackedSize(opts...)
}

// WithMin sets the lower bound of a new size (default 2).
func WithMin(v symbolic.Int) SizeOption {
	return customop.WithMin(v)
}

// WithMax sets the upper bound of a new size (default unbounded).
func WithMax(v symbolic.Int) SizeOption {
	return customop.WithMax(v)
}

// Errors, see the internal package for their meaning.
var (
	ErrDefinition = customop.ErrDefinition
	ErrBinding    = customop.ErrBinding
	ErrInvocation = customop.ErrInvocation

	ErrMissingNamespace         = customop.ErrMissingNamespace
	ErrReservedNamespace        = customop.ErrReservedNamespace
	ErrInvalidNamespace         = customop.ErrInvalidNamespace
	ErrInvalidName              = customop.ErrInvalidName
	ErrNameMismatch             = customop.ErrNameMismatch
	ErrAlreadyDefined           = customop.ErrAlreadyDefined
	ErrUnsupportedType          = customop.ErrUnsupportedType
	ErrMissingAnnotation        = customop.ErrMissingAnnotation
	ErrUnsupportedParameterKind = customop.ErrUnsupportedParameterKind
	ErrDefaultNotAllowed        = customop.ErrDefaultNotAllowed
	ErrInvalidReturn            = customop.ErrInvalidReturn
	ErrSignatureMismatch        = customop.ErrSignatureMismatch
	ErrNonFunctionalSchema      = customop.ErrNonFunctionalSchema
	ErrViewReturnNotSupported   = customop.ErrViewReturnNotSupported
	ErrNoReturns                = customop.ErrNoReturns
	ErrReservedArgumentName     = customop.ErrReservedArgumentName

	ErrUseAfterDestroy       = customop.ErrUseAfterDestroy
	ErrUnsupportedBackend    = customop.ErrUnsupportedBackend
	ErrDuplicateAbstractImpl = customop.ErrDuplicateAbstractImpl

	ErrNoAbstractImpl                     = customop.ErrNoAbstractImpl
	ErrAutogradNotImplemented             = customop.ErrAutogradNotImplemented
	ErrNoActiveAbstractContext            = customop.ErrNoActiveAbstractContext
	ErrShapeOnlyContextHasNoSymbolicSizes = customop.ErrShapeOnlyContextHasNoSymbolicSizes
	ErrSymbolicExecutionDisabled          = customop.ErrSymbolicExecutionDisabled
	ErrNonStaticBound                     = customop.ErrNonStaticBound
	ErrMinimumTooLow                      = customop.ErrMinimumTooLow
)
