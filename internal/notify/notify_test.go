package notify

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu           sync.Mutex
	trigger      func()
	unregistered int
	failRegister error
}

func (f *fakeSource) register(trigger func()) (func() error, error) {
	if f.failRegister != nil {
		return nil, f.failRegister
	}

	f.mu.Lock()
	f.trigger = trigger
	f.mu.Unlock()

	return func() error {
		f.mu.Lock()
		defer f.mu.Unlock()

		f.unregistered++
		f.trigger = nil

		return nil
	}, nil
}

func (f *fakeSource) fire() {
	f.mu.Lock()
	trigger := f.trigger
	f.mu.Unlock()

	if trigger != nil {
		trigger()
	}
}

func TestSubscribeDelivers(t *testing.T) {
	t.Parallel()

	src := &fakeSource{}
	calls := make(chan struct{}, 10)

	sub, err := subscribe(src.register, func() { calls <- struct{}{} })
	require.NoError(t, err)

	defer func() { _ = sub.Close() }()

	src.fire()

	select {
	case <-calls:
	case <-time.After(5 * time.Second):
		require.Fail(t, "onChange wasn't called")
	}
}

func TestSubscribeCoalesces(t *testing.T) {
	t.Parallel()

	src := &fakeSource{}
	release := make(chan struct{})
	var count atomic.Int32

	sub, err := subscribe(src.register, func() {
		count.Add(1)
		<-release
	})
	require.NoError(t, err)

	// First event blocks the callback, the burst behind it collapses into one.
	src.fire()
	require.Eventually(t, func() bool { return count.Load() == 1 }, 5*time.Second, time.Millisecond)

	for range 20 {
		src.fire()
	}

	close(release)

	require.Eventually(t, func() bool { return count.Load() == 2 }, 5*time.Second, time.Millisecond)
	require.NoError(t, sub.Close())
	require.Equal(t, int32(2), count.Load())
}

func TestSubscriptionClose(t *testing.T) {
	t.Parallel()

	src := &fakeSource{}
	var count atomic.Int32

	sub, err := subscribe(src.register, func() { count.Add(1) })
	require.NoError(t, err)

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())
	require.Equal(t, 1, src.unregistered)

	src.fire()
	time.Sleep(10 * time.Millisecond)
	require.Equal(t, int32(0), count.Load())
}

func TestSubscribeRegisterFailure(t *testing.T) {
	t.Parallel()

	src := &fakeSource{failRegister: errors.New("no access")}

	sub, err := subscribe(src.register, func() {})
	require.Error(t, err)
	require.Nil(t, sub)
}

func TestIsInterfaceChange(t *testing.T) {
	t.Parallel()

	require.True(t, isInterfaceChange(cmNotifyActionDeviceInterfaceArrival))
	require.True(t, isInterfaceChange(cmNotifyActionDeviceInterfaceRemoval))

	// Device instance enumerated, started and removed.
	for _, action := range []uint32{2, 3, 4, 5, 6, 7, 8, 9} {
		require.False(t, isInterfaceChange(action))
	}
}
