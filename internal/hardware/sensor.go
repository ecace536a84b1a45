package hardware

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// IIOSensor reads the capacitive probe through a Linux IIO ADC channel
// (in_voltage*_raw). The raw value is returned as-is, no scaling.
type IIOSensor struct {
	Path string
}

// NewIIOSensor opens the ADC channel at path and performs one probe read so
// a miswired sensor fails at startup instead of at the first trigger.
func NewIIOSensor(path string) (*IIOSensor, error) {
	s := &IIOSensor{Path: path}
	if _, err := s.Read(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *IIOSensor) Read() (int, error) {
	raw, err := os.ReadFile(s.Path)
	if err != nil {
		return 0, fmt.Errorf("read adc: %w", err)
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return 0, fmt.Errorf("parse adc value %q: %w", strings.TrimSpace(string(raw)), err)
	}
	return v, nil
}
