// Package instance keeps a single copy of the manager running per user.
package instance

import (
	"errors"
)

// Name is the lock name shared by every copy of the manager.
const Name = "WSL_USB_MANAGER_SINGLE_INSTANCE_LOCK"

// ErrAlreadyRunning is returned when another process holds the lock.
var ErrAlreadyRunning = errors.New("another instance is already running")

// Lock is a held single instance lock.
type Lock struct {
	release func() error
}

// Release gives up the lock. It's safe to call more than once.
func (l *Lock) Release() error {
	if l == nil || l.release == nil {
		return nil
	}

	release := l.release
	l.release = nil

	return release()
}
