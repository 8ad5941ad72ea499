package usbipd

import (
	"context"
	"errors"
	"os/exec"
	"strings"

	"github.com/lxc/incus/v6/shared/subprocess"
)

// Executable is the name of the usbipd binary looked up in PATH.
const Executable = "usbipd"

// Process represents a long-running usbipd child process.
type Process interface {
	Stop() error
}

// Executor runs usbipd with a given set of arguments.
type Executor interface {
	// Run executes usbipd and returns its standard output.
	Run(ctx context.Context, args ...string) (string, error)

	// RunElevated runs usbipd with administrative privileges. On Windows it
	// returns once the elevated process is launched, without waiting for it
	// to complete. Elsewhere it goes through sudo and waits for the result.
	RunElevated(ctx context.Context, args ...string) error

	// Start launches a long-running usbipd process.
	Start(ctx context.Context, args ...string) (Process, error)
}

type commandExecutor struct {
	path string
}

// NewExecutor returns an Executor running the usbipd binary at the given path.
func NewExecutor(path string) Executor {
	if path == "" {
		path = Executable
	}

	return &commandExecutor{path: path}
}

func (e *commandExecutor) Run(ctx context.Context, args ...string) (string, error) {
	stdout, stderr, err := subprocess.RunCommandSplit(ctx, nil, nil, e.path, args...)
	if err != nil {
		stderr = strings.TrimSpace(stderr)

		// A non-zero exit means usbipd itself reported the failure.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) || stderr != "" {
			return "", &ToolError{Args: args, Stderr: stderr, Err: err}
		}

		return "", &LaunchError{Args: args, Err: err}
	}

	return stdout, nil
}
