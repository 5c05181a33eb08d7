package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/born-ml/customop/internal/schema"
)

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema [signature]",
		Short: "Parse a schema string and print its canonical form",
		Example: `  born-ops schema "scale(Tensor x, *, float k) -> Tensor"
  born-ops schema "add_(Tensor(a!) x, Tensor y) -> Tensor(a!)"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := schema.Parse(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "schema: %s\n", s)
			fmt.Fprintf(out, "kind:   %s\n", s.Kind())
			if err := s.Validate(); err != nil {
				fmt.Fprintf(out, "custom: no (%v)\n", err)
				return nil
			}
			fmt.Fprintln(out, "custom: yes")
			return nil
		},
	}
}
