//go:build linux

package notify

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sys/unix"
)

const (
	// ueventBufferSize fits the largest uevent the kernel sends.
	ueventBufferSize = 16 * 1024

	// ueventKernelGroup is the netlink multicast group of kernel uevents.
	ueventKernelGroup = 1

	// pollTimeout bounds how long Close waits for the reader to notice.
	pollTimeout = 250
)

func register(trigger func()) (func() error, error) {
	fd, err := unix.Socket(unix.AF_NETLINK, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC|unix.SOCK_NONBLOCK, unix.NETLINK_KOBJECT_UEVENT)
	if err != nil {
		return nil, fmt.Errorf("failed to open uevent socket: %w", err)
	}

	err = unix.Bind(fd, &unix.SockaddrNetlink{Family: unix.AF_NETLINK, Groups: ueventKernelGroup})
	if err != nil {
		_ = unix.Close(fd)

		return nil, fmt.Errorf("failed to bind uevent socket: %w", err)
	}

	done := make(chan struct{})
	wg := sync.WaitGroup{}

	wg.Add(1)

	go func() {
		defer wg.Done()

		readUEvents(fd, done, trigger)
	}()

	return func() error {
		close(done)
		wg.Wait()

		return unix.Close(fd)
	}, nil
}

func readUEvents(fd int, done <-chan struct{}, trigger func()) {
	buf := make([]byte, ueventBufferSize)
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}} //nolint:gosec

	for {
		select {
		case <-done:
			return
		default:
		}

		n, err := unix.Poll(fds, pollTimeout)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}

			slog.Error("Failed to poll uevent socket", "err", err)

			return
		}

		if n == 0 {
			continue
		}

		// Drain everything queued, the socket is non-blocking.
		for {
			size, _, err := unix.Recvfrom(fd, buf, 0)
			if err != nil {
				if !errors.Is(err, unix.EAGAIN) && !errors.Is(err, unix.EINTR) {
					slog.Warn("Failed to read uevent", "err", err)
				}

				break
			}

			if parseUEvent(buf[:size]).isUSBDeviceChange() {
				trigger()
			}
		}
	}
}
