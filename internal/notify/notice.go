package notify

// Notice is a coalescing wake-up signal. Any number of Notify calls made
// before the receiver wakes up result in a single pending notice.
//
// Notify never blocks, so it's safe to call from OS callback threads.
type Notice struct {
	c chan struct{}
}

// NewNotice returns a Notice with nothing pending.
func NewNotice() *Notice {
	return &Notice{c: make(chan struct{}, 1)}
}

// Notify marks the notice as pending.
func (n *Notice) Notify() {
	select {
	case n.c <- struct{}{}:
	default:
		// Already pending.
	}
}

// C returns the channel receiving pending notices.
func (n *Notice) C() <-chan struct{} {
	return n.c
}
