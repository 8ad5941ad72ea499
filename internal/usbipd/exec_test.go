//go:build !windows

package usbipd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeUsbipdScript stands in for the usbipd binary.
const fakeUsbipdScript = `#!/bin/sh
case "$1" in
state)
	echo '{"Devices":[]}'
	;;
bind)
	echo "Access denied; this operation requires administrator privileges." >&2
	exit 1
	;;
fail)
	exit 3
	;;
attach)
	exec sleep 60
	;;
esac
`

// The tests below fork, they aren't parallel so that no other test holds the
// script open for writing while it's executed.
func newScriptExecutor(t *testing.T) Executor {
	t.Helper()

	path := filepath.Join(t.TempDir(), "usbipd")

	err := os.WriteFile(path, []byte(fakeUsbipdScript), 0o755) //nolint:gosec
	require.NoError(t, err)

	return NewExecutor(path)
}

func TestExecutorRun(t *testing.T) {
	e := newScriptExecutor(t)

	stdout, err := e.Run(context.Background(), "state")
	require.NoError(t, err)
	require.JSONEq(t, `{"Devices":[]}`, stdout)
}

func TestExecutorRunNeedsElevation(t *testing.T) {
	e := newScriptExecutor(t)

	_, err := e.Run(context.Background(), "bind", "--busid", "1-1")

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	require.True(t, toolErr.NeedsElevation())
	require.Equal(t, []string{"bind", "--busid", "1-1"}, toolErr.Args)
	require.Contains(t, err.Error(), "administrator")
}

func TestExecutorRunExitCode(t *testing.T) {
	e := newScriptExecutor(t)

	_, err := e.Run(context.Background(), "fail")

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	require.False(t, toolErr.NeedsElevation())
	require.Empty(t, toolErr.Stderr)

	var launchErr *LaunchError
	require.False(t, errors.As(err, &launchErr))
}

func TestExecutorRunMissingBinary(t *testing.T) {
	e := NewExecutor(filepath.Join(t.TempDir(), "missing"))

	_, err := e.Run(context.Background(), "state")

	var launchErr *LaunchError
	require.ErrorAs(t, err, &launchErr)

	var toolErr *ToolError
	require.False(t, errors.As(err, &toolErr))
}

func TestExecutorStartStop(t *testing.T) {
	e := newScriptExecutor(t)

	p, err := e.Start(context.Background(), "attach", "--busid", "1-1", "--auto-attach")
	require.NoError(t, err)
	require.NoError(t, p.Stop())
}

func TestExecutorStartMissingBinary(t *testing.T) {
	e := NewExecutor(filepath.Join(t.TempDir(), "missing"))

	_, err := e.Start(context.Background(), "attach")

	var launchErr *LaunchError
	require.ErrorAs(t, err, &launchErr)
}
