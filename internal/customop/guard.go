package customop

import (
	"fmt"

	"github.com/born-ml/customop/internal/dispatch"
	"github.com/born-ml/customop/internal/tensor"
)

// autogradGuard is the kernel every operator gets on the Autograd key.
// Custom operators have no derivative, so an input that requires grad is
// rejected before any kernel runs; otherwise the call is re-dispatched with
// the Autograd key excluded.
//
// The guard resolves its operator by name on every call instead of holding
// it, so a destroyed operator is reported rather than kept alive.
func autogradGuard(r *Registry, qualname string) dispatch.Kernel {
	return func(args []any) ([]any, error) {
		if err := checkNoGrad(qualname, args); err != nil {
			return nil, err
		}

		op, ok := r.ops[qualname]
		if !ok {
			return nil, fmt.Errorf("%w: %w: %s", ErrInvocation, ErrUseAfterDestroy, qualname)
		}
		defer r.dispatcher.ExcludeAutograd()()
		return r.dispatcher.Call(op.handle, args)
	}
}

// checkNoGrad fails when any tensor reachable from args requires grad.
func checkNoGrad(qualname string, args []any) error {
	if tensor.AnyRequiresGrad(args) {
		return fmt.Errorf("%w: %w: %s: an input requires grad but the operator has no derivative",
			ErrInvocation, ErrAutogradNotImplemented, qualname)
	}
	return nil
}
