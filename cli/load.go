// Package cli implements the wsl-usb-manager command line.
package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/nickbeth/wsl-usb-manager/internal/instance"
	"github.com/nickbeth/wsl-usb-manager/internal/usbipd"
)

// Args contains the configuration for a new CLI instance.
type Args struct {
	Version           string
	DefaultListFormat string

	// Executor replaces the usbipd binary, mostly for testing.
	Executor usbipd.Executor

	// LogOutput receives log records, defaults to stderr.
	LogOutput io.Writer

	// LockName is the single instance lock taken by long-running commands.
	LockName string
}

// NewCommand returns the root cobra Command.
func NewCommand(args *Args) *cobra.Command {
	if args.DefaultListFormat == "" {
		args.DefaultListFormat = "table"
	}

	if args.LockName == "" {
		args.LockName = instance.Name
	}

	cmd := cmdRoot{
		args: args,
	}

	return cmd.command()
}
