// Package main is the entry point for the guardian CLI.
package main

import (
	"os"

	"github.com/rifqisp97-lab/technician-guardian/cmd"
	"github.com/rifqisp97-lab/technician-guardian/internal/logging"
)

func main() {
	if err := cmd.Execute(); err != nil {
		logging.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}
