package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/born-ml/customop/internal/customop"
	"github.com/born-ml/customop/internal/schema"
	"github.com/born-ml/customop/internal/symbolic"
	"github.com/born-ml/customop/internal/tensor"
)

var errUntraceable = errors.New("argument cannot be traced")

func newTraceCmd(a *app) *cobra.Command {
	var (
		shapes []string
		dtype  string
	)
	cmd := &cobra.Command{
		Use:   "trace [operator]",
		Short: "Run an operator's abstract kernel on meta tensors",
		Long: `trace builds one meta tensor per tensor argument from the --shape flags,
in argument order, and runs the operator's abstract kernel. Optional tensor
arguments without a shape are passed as None. Unbacked sizes created by the
kernel are printed with their ranges.`,
		Example: `  born-ops trace born::nonzero --shape 4,5
  born-ops trace born::linear --shape 8,3 --shape 4,3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			op, ok := a.registry.Lookup(args[0])
			if !ok {
				return fmt.Errorf("unknown operator %q, see born-ops ops", args[0])
			}
			dt, err := tensor.ParseDataType(dtype)
			if err != nil {
				return err
			}
			inputs, err := metaInputs(op, shapes, dt)
			if err != nil {
				return err
			}

			env := symbolic.NewShapeEnv(
				symbolic.WithDynamicOutputShapes(a.cfg.Symbolic.AllowDynamicOutputShapes),
				symbolic.WithLogger(a.logger),
			)
			results, err := op.CallAbstract(env, inputs...)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for i, r := range results {
				fmt.Fprintf(out, "out[%d]: %v\n", i, r)
			}
			for _, s := range env.Sizes() {
				rng, _ := env.Range(s)
				fmt.Fprintf(out, "%s: %s\n", s, rng)
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&shapes, "shape", nil, "comma-separated shape of the next tensor argument (repeatable)")
	cmd.Flags().StringVar(&dtype, "dtype", "float32", "dtype of the meta inputs")
	return cmd
}

// metaInputs builds boxed arguments for op from shape flags.
func metaInputs(op *customop.Operator, shapes []string, dt tensor.DataType) ([]any, error) {
	var args []any
	next := 0
	for _, arg := range op.Schema().Arguments() {
		switch arg.Type {
		case schema.Type(schema.Tensor):
			if next >= len(shapes) {
				return nil, fmt.Errorf("missing --shape for argument %q", arg.Name)
			}
			x, err := metaTensor(shapes[next], dt)
			if err != nil {
				return nil, fmt.Errorf("argument %q: %w", arg.Name, err)
			}
			next++
			args = append(args, x)
		case schema.Type(schema.OptionalType{Elem: schema.Tensor}):
			if next >= len(shapes) {
				args = append(args, tensor.None[*tensor.Tensor]())
				continue
			}
			x, err := metaTensor(shapes[next], dt)
			if err != nil {
				return nil, fmt.Errorf("argument %q: %w", arg.Name, err)
			}
			next++
			args = append(args, tensor.Some(x))
		default:
			return nil, fmt.Errorf("%w: %s %s", errUntraceable, arg.Type, arg.Name)
		}
	}
	if next < len(shapes) {
		return nil, fmt.Errorf("%d unused --shape flags", len(shapes)-next)
	}
	return args, nil
}

func metaTensor(flag string, dt tensor.DataType) (*tensor.Tensor, error) {
	var shape tensor.Shape
	if flag = strings.TrimSpace(flag); flag != "" {
		for _, part := range strings.Split(flag, ",") {
			n, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				return nil, fmt.Errorf("invalid shape %q: %w", flag, err)
			}
			shape = append(shape, n)
		}
	}
	return tensor.New(shape, dt, tensor.Meta)
}
