package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/born-ml/customop/internal/gpu"
)

func newDevicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "Show which devices kernels can run on",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			for _, st := range gpu.Devices() {
				state := "available"
				if !st.Available {
					state = "unavailable"
					if st.Reason != "" {
						state += ": " + st.Reason
					}
				}
				fmt.Fprintf(out, "%-8s %s\n", st.Device, state)
			}
		},
	}
}
