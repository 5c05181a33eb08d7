package customop

import (
	"errors"
	"fmt"

	"github.com/born-ml/customop/internal/dispatch"
	"github.com/born-ml/customop/internal/schema"
)

// Error categories. Every error returned by this package matches exactly one
// of them and the specific sentinel below.
var (
	ErrDefinition = errors.New("operator definition failed")
	ErrBinding    = errors.New("implementation binding failed")
	ErrInvocation = errors.New("operator invocation failed")
)

// Definition errors.
var (
	ErrMissingNamespace  = errors.New("qualified name must be namespace::name")
	ErrReservedNamespace = errors.New("namespace is reserved")
	ErrInvalidNamespace  = errors.New("invalid namespace")
	ErrInvalidName       = errors.New("invalid operator name")
	ErrNameMismatch      = errors.New("prototype name does not match operator name")
	ErrAlreadyDefined    = dispatch.ErrAlreadyDefined

	ErrUnsupportedType          = schema.ErrUnsupportedType
	ErrMissingAnnotation        = schema.ErrMissingAnnotation
	ErrUnsupportedParameterKind = schema.ErrUnsupportedParameterKind
	ErrDefaultNotAllowed        = schema.ErrDefaultNotAllowed
	ErrInvalidReturn            = schema.ErrInvalidReturn
	ErrSignatureMismatch        = schema.ErrSignatureMismatch
	ErrNonFunctionalSchema      = schema.ErrNonFunctionalSchema
	ErrViewReturnNotSupported   = schema.ErrViewReturnNotSupported
	ErrNoReturns                = schema.ErrNoReturns
	ErrReservedArgumentName     = schema.ErrReservedArgumentName
	ErrSyntax                   = schema.ErrSyntax
)

// Lifecycle and binding errors.
var (
	ErrUseAfterDestroy       = errors.New("operator used after destroy")
	ErrUnsupportedBackend    = errors.New("unsupported backend")
	ErrDuplicateAbstractImpl = errors.New("abstract implementation already registered")
)

// Invocation errors.
var (
	ErrNoAbstractImpl                     = errors.New("no abstract implementation registered")
	ErrAutogradNotImplemented             = errors.New("autograd not implemented")
	ErrNoActiveAbstractContext            = errors.New("no abstract implementation context is active")
	ErrShapeOnlyContextHasNoSymbolicSizes = errors.New("shape-only execution cannot create symbolic sizes")
	ErrSymbolicExecutionDisabled          = errors.New("symbolic execution is disabled")
	ErrNonStaticBound                     = errors.New("size bounds must be static integers")
	ErrMinimumTooLow                      = errors.New("minimum size must be at least 2")
	ErrNoKernel                           = dispatch.ErrNoKernel
	ErrBadArguments                       = dispatch.ErrBadArguments
	ErrBadResults                         = dispatch.ErrBadResults
)

// DuplicateAbstractImplError reports a second ImplAbstract call with the
// locations of both registrations.
type DuplicateAbstractImplError struct {
	Operator  string
	Previous  string
	Attempted string
}

func (e *DuplicateAbstractImplError) Error() string {
	return fmt.Sprintf("%s: %s: registered at %s, attempted again at %s",
		e.Operator, ErrDuplicateAbstractImpl, e.Previous, e.Attempted)
}

func (e *DuplicateAbstractImplError) Unwrap() error {
	return ErrDuplicateAbstractImpl
}

func wrap(category, err error) error {
	if errors.Is(err, category) {
		return err
	}
	return fmt.Errorf("%w: %w", category, err)
}
