package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/born-ml/customop/internal/config"
	"github.com/born-ml/customop/internal/customop"
	"github.com/born-ml/customop/internal/dispatch"
	"github.com/born-ml/customop/internal/logging"
	"github.com/born-ml/customop/internal/ops"
)

// app is the state shared by every subcommand, built before any of them
// runs.
type app struct {
	configPath string

	cfg      config.Config
	logger   *slog.Logger
	registry *customop.Registry
	library  *ops.Library
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	level, _ := logging.ParseLevel(cfg.Log.Level)
	a.cfg = cfg
	a.logger = logging.New(cmd.ErrOrStderr(), level, false)

	d := dispatch.New(dispatch.WithLogger(a.logger), dispatch.WithTrace(cfg.Dispatch.Trace))
	a.registry = customop.NewRegistry(d, customop.WithLogger(a.logger))
	a.library, err = ops.Register(a.registry)
	if err != nil {
		return fmt.Errorf("failed to register operators: %w", err)
	}
	return nil
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "born-ops",
		Short: "Inspect Born custom operators",
		Long: `born-ops lists the built-in custom operators, checks schema strings
and runs abstract kernels on meta tensors to show data-dependent shapes.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "born-ops.toml", "path to the TOML config file")

	root.AddCommand(
		newVersionCmd(),
		newSchemaCmd(),
		newOpsCmd(a),
		newTraceCmd(a),
		newDevicesCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "born-ops %s\n", version)
		},
	}
}
