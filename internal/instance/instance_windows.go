//go:build windows

package instance

import (
	"errors"
	"fmt"

	"golang.org/x/sys/windows"
)

// Acquire takes the named mutex, failing with ErrAlreadyRunning if it already exists.
func Acquire(name string) (*Lock, error) {
	namePtr, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return nil, err
	}

	handle, err := windows.CreateMutex(nil, false, namePtr)
	if err != nil {
		if errors.Is(err, windows.ERROR_ALREADY_EXISTS) {
			if handle != 0 {
				_ = windows.CloseHandle(handle)
			}

			return nil, ErrAlreadyRunning
		}

		return nil, fmt.Errorf("failed to create mutex %q: %w", name, err)
	}

	return &Lock{release: func() error {
		return windows.CloseHandle(handle)
	}}, nil
}
