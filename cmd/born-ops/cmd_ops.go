package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newOpsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ops",
		Short: "List registered operators with their schemas and kernels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, op := range a.library.Operators() {
				keys, err := op.Keys()
				if err != nil {
					return err
				}
				names := make([]string, len(keys))
				for i, k := range keys {
					names[i] = k.String()
				}
				fmt.Fprintf(out, "%s\n  handle: %s\n  schema: %s\n  keys:   %s\n",
					op.QualifiedName(), op.ID(), op.Schema(), strings.Join(names, ", "))
				if impl, ok := op.AbstractImpl(); ok {
					fmt.Fprintf(out, "  abstract: %s\n", impl.Location)
				}
			}
			return nil
		},
	}
}
