package hardware

import (
	"errors"
	"time"
)

// FakeClock is a settable clock for tests.
type FakeClock struct {
	Current time.Time
	Err     error
}

func (c *FakeClock) Now() (time.Time, error) {
	if c.Err != nil {
		return time.Time{}, c.Err
	}
	return c.Current, nil
}

// Advance moves the fake clock forward.
func (c *FakeClock) Advance(d time.Duration) { c.Current = c.Current.Add(d) }

// FakeSensor returns scripted samples. Each Read consumes the next sample;
// when exhausted the last one repeats.
type FakeSensor struct {
	Samples []int
	Err     error

	index int
}

func (s *FakeSensor) Read() (int, error) {
	if s.Err != nil {
		return 0, s.Err
	}
	if len(s.Samples) == 0 {
		return 0, errors.New("no samples configured")
	}
	v := s.Samples[s.index]
	if s.index < len(s.Samples)-1 {
		s.index++
	}
	return v, nil
}

// FakePump records every relay transition so tests can assert the pump was
// on only inside the watering hold window.
type FakePump struct {
	Active      bool
	Transitions []bool
	Closed      bool
	Err         error
}

func (p *FakePump) SetActive(on bool) error {
	if p.Err != nil {
		return p.Err
	}
	p.Active = on
	p.Transitions = append(p.Transitions, on)
	return nil
}

func (p *FakePump) Close() error {
	p.Closed = true
	return nil
}

// FakeDisplay records rendered lines and log output.
type FakeDisplay struct {
	Lines [][2]string
	Logs  []string
}

func (d *FakeDisplay) Show(line1, line2 string) {
	d.Lines = append(d.Lines, [2]string{Clip(line1), Clip(line2)})
}

func (d *FakeDisplay) Log(msg string) { d.Logs = append(d.Logs, msg) }

// LastLines returns the most recent Show call, or empty strings.
func (d *FakeDisplay) LastLines() (string, string) {
	if len(d.Lines) == 0 {
		return "", ""
	}
	l := d.Lines[len(d.Lines)-1]
	return l[0], l[1]
}
