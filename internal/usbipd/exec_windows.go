//go:build windows

package usbipd

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"syscall"

	"golang.org/x/sys/windows"
)

// RunElevated goes through ShellExecute with the "runas" verb, which shows the
// UAC prompt. The console window of the elevated process is hidden.
func (e *commandExecutor) RunElevated(_ context.Context, args ...string) error {
	escaped := make([]string, 0, len(args))
	for _, arg := range args {
		escaped = append(escaped, windows.EscapeArg(arg))
	}

	verb, err := windows.UTF16PtrFromString("runas")
	if err != nil {
		return &LaunchError{Args: args, Err: err}
	}

	file, err := windows.UTF16PtrFromString(e.path)
	if err != nil {
		return &LaunchError{Args: args, Err: err}
	}

	params, err := windows.UTF16PtrFromString(strings.Join(escaped, " "))
	if err != nil {
		return &LaunchError{Args: args, Err: err}
	}

	err = windows.ShellExecute(0, verb, file, params, nil, windows.SW_HIDE)
	if err != nil {
		return &LaunchError{Args: args, Err: err}
	}

	return nil
}

// Start spawns usbipd without a console window. The process isn't tied to
// the context, only Stop ends it.
func (e *commandExecutor) Start(_ context.Context, args ...string) (Process, error) {
	cmd := exec.Command(e.path, args...) //nolint:noctx
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: windows.CREATE_NO_WINDOW,
	}

	err := cmd.Start()
	if err != nil {
		return nil, &LaunchError{Args: args, Err: err}
	}

	p := &windowsProcess{cmd: cmd, exited: make(chan struct{})}

	go func() {
		defer close(p.exited)

		_ = cmd.Wait()
	}()

	return p, nil
}

type windowsProcess struct {
	cmd    *exec.Cmd
	exited chan struct{}
}

// Stop kills the process and waits for it to be reaped.
func (p *windowsProcess) Stop() error {
	err := p.cmd.Process.Kill()
	if err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}

	<-p.exited

	return nil
}
