// Package main provides born-ops, a command line tool for inspecting the
// built-in custom operators: their schemas, kernels and abstract shapes.
package main

import (
	"os"

	"github.com/born-ml/customop/internal/logging"
)

const version = "v0.1.0-dev"

func main() {
	logging.ConfigureRuntime()
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
