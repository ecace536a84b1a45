//go:build !linux

package hardware

import "errors"

// RelayPump is not available on non-Linux platforms.
type RelayPump struct{}

func NewRelayPump(pin int) (*RelayPump, error) {
	return nil, errors.New("gpio pump: not supported on this platform (requires Linux)")
}

func (p *RelayPump) SetActive(on bool) error {
	return errors.New("gpio pump: not supported")
}

func (p *RelayPump) Close() error { return nil }
