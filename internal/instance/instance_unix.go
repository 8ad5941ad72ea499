//go:build linux || darwin || freebsd || openbsd || netbsd

package instance

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// lockPath maps a lock name to a file in the runtime directory.
func lockPath(name string) string {
	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		dir = os.TempDir()
	}

	return filepath.Join(dir, strings.ToLower(name)+".lock")
}

// Acquire takes an exclusive flock on the lock file, failing with
// ErrAlreadyRunning if another process holds it.
func Acquire(name string) (*Lock, error) {
	path := lockPath(name)

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file %q: %w", path, err)
	}

	err = unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB) //nolint:gosec
	if err != nil {
		_ = f.Close()

		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, ErrAlreadyRunning
		}

		return nil, fmt.Errorf("failed to lock %q: %w", path, err)
	}

	return &Lock{release: func() error {
		_ = unix.Flock(int(f.Fd()), unix.LOCK_UN) //nolint:gosec

		return f.Close()
	}}, nil
}
