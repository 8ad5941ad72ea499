//go:build !windows && !linux

package notify

func register(_ func()) (func() error, error) {
	return nil, ErrUnsupported
}
