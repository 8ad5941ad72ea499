//go:build !windows

package usbipd

import (
	"context"

	"github.com/lxc/incus/v6/shared/subprocess"
)

// RunElevated re-runs the command through sudo. Interactive prompts are
// disabled as there's no terminal guaranteed to be attached.
func (e *commandExecutor) RunElevated(ctx context.Context, args ...string) error {
	_, err := subprocess.RunCommandContext(ctx, "sudo", append([]string{"--non-interactive", e.path}, args...)...)
	if err != nil {
		return &LaunchError{Args: args, Err: err}
	}

	return nil
}

func (e *commandExecutor) Start(ctx context.Context, args ...string) (Process, error) {
	p := subprocess.NewProcessWithFds(e.path, args, nil, discardCloser{}, discardCloser{})

	err := p.Start(ctx)
	if err != nil {
		return nil, &LaunchError{Args: args, Err: err}
	}

	return p, nil
}

type discardCloser struct{}

func (discardCloser) Write(p []byte) (int, error) {
	return len(p), nil
}

func (discardCloser) Close() error {
	return nil
}
