// Package notify delivers USB device arrival and removal notifications.
package notify

import (
	"errors"
	"sync"
)

// ErrUnsupported is returned on platforms without a USB notification source.
var ErrUnsupported = errors.New("USB device notifications aren't supported on this platform")

// registerFunc hooks the platform notification source up to trigger and returns
// the function tearing it down.
type registerFunc func(trigger func()) (func() error, error)

// Subscription is a live USB device notification registration.
type Subscription struct {
	notice     *Notice
	unregister func() error

	once    sync.Once
	done    chan struct{}
	stopped chan struct{}
}

// Subscribe calls onChange after USB devices arrive or are removed.
//
// Events are coalesced: onChange runs at least once after any number of
// events, on a goroutine owned by the subscription rather than on the OS
// thread delivering the event. onChange mustn't call Close.
func Subscribe(onChange func()) (*Subscription, error) {
	return subscribe(register, onChange)
}

func subscribe(reg registerFunc, onChange func()) (*Subscription, error) {
	s := &Subscription{
		notice:  NewNotice(),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}

	unregister, err := reg(s.notice.Notify)
	if err != nil {
		return nil, err
	}

	s.unregister = unregister

	go s.dispatch(onChange)

	return s, nil
}

func (s *Subscription) dispatch(onChange func()) {
	defer close(s.stopped)

	for {
		select {
		case <-s.done:
			return
		case <-s.notice.C():
			onChange()
		}
	}
}

// Close unregisters from the OS and waits for a running onChange to return.
// No call to onChange starts after Close returns.
func (s *Subscription) Close() error {
	var err error

	s.once.Do(func() {
		err = s.unregister()

		close(s.done)
		<-s.stopped
	})

	return err
}
