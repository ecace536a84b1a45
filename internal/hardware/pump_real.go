//go:build linux

package hardware

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RelayPump drives the pump relay through the Linux GPIO character device.
type RelayPump struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// NewRelayPump requests the relay line as an output driven low, so the pump
// is off from the moment the line is claimed.
func NewRelayPump(pin int) (*RelayPump, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	line, err := chip.RequestLine(pin, gpiocdev.AsOutput(0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request pump pin %d: %w", pin, err)
	}
	return &RelayPump{chip: chip, line: line}, nil
}

func (p *RelayPump) SetActive(on bool) error {
	v := 0
	if on {
		v = 1
	}
	if err := p.line.SetValue(v); err != nil {
		return fmt.Errorf("set pump pin: %w", err)
	}
	return nil
}

// Close drives the line low before releasing it so the relay cannot be left
// energized across a restart.
func (p *RelayPump) Close() error {
	var errs []error
	if p.line != nil {
		if err := p.line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("force pump off: %w", err))
		}
		if err := p.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pump line: %w", err))
		}
	}
	if p.chip != nil {
		if err := p.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
