package hardware

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestRTCClockReadsEpoch(t *testing.T) {
	want := time.Date(2026, 8, 29, 7, 59, 0, 0, time.UTC)
	path := writeTemp(t, "since_epoch", strconv.FormatInt(want.Unix(), 10)+"\n")

	clock, err := NewRTCClock(path, time.UTC)
	if err != nil {
		t.Fatalf("NewRTCClock: %v", err)
	}
	got, err := clock.Now()
	if err != nil {
		t.Fatalf("Now: %v", err)
	}
	if !got.Equal(want) {
		t.Errorf("Now = %v, want %v", got, want)
	}
}

func TestRTCClockRejectsDeadBattery(t *testing.T) {
	// An RTC with a dead backup battery resets to its build epoch.
	path := writeTemp(t, "since_epoch", "946684800\n") // 2000-01-01
	if _, err := NewRTCClock(path, time.UTC); err == nil {
		t.Error("expected error for pre-2020 epoch")
	}
}

func TestRTCClockMissingDevice(t *testing.T) {
	if _, err := NewRTCClock(filepath.Join(t.TempDir(), "absent"), time.UTC); err == nil {
		t.Error("expected error for missing rtc")
	}
}

func TestIIOSensorReads(t *testing.T) {
	path := writeTemp(t, "in_voltage0_raw", " 612\n")
	s, err := NewIIOSensor(path)
	if err != nil {
		t.Fatalf("NewIIOSensor: %v", err)
	}
	v, err := s.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if v != 612 {
		t.Errorf("Read = %d, want 612", v)
	}
}

func TestIIOSensorBadValue(t *testing.T) {
	path := writeTemp(t, "in_voltage0_raw", "garbage\n")
	if _, err := NewIIOSensor(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestSerialDisplayClipsLines(t *testing.T) {
	var buf bytes.Buffer
	d := NewSerialDisplay(&buf)

	d.Show("a line that is far too long for the module", "ok")

	out := buf.String()
	if !strings.HasPrefix(out, "\f") {
		t.Error("frame must start with a clear")
	}
	lines := strings.Split(strings.TrimPrefix(out, "\f"), "\n")
	if len(lines[0]) != DisplayWidth {
		t.Errorf("line1 length = %d, want %d", len(lines[0]), DisplayWidth)
	}
	if lines[1] != "ok" {
		t.Errorf("line2 = %q", lines[1])
	}
}

func TestFakeSensorRepeatsLastSample(t *testing.T) {
	s := &FakeSensor{Samples: []int{1, 2}}
	got := []int{}
	for i := 0; i < 4; i++ {
		v, err := s.Read()
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		got = append(got, v)
	}
	want := []int{1, 2, 2, 2}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("reads = %v, want %v", got, want)
		}
	}
}
