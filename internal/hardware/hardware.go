// Package hardware abstracts the four peripherals of the watering device:
// the battery backed clock, the capacitive soil moisture probe, the pump
// relay and the two line status display. Real implementations talk to Linux
// sysfs / the GPIO character device; fakes allow testing without hardware.
package hardware

import "time"

// Clock supplies the current wall clock time. Scheduling is meaningless
// without it, so callers treat a read error at startup as fatal.
type Clock interface {
	Now() (time.Time, error)
}

// Sensor returns one raw moisture sample. Higher means drier; a reading at
// or above the sensor's near-maximum value means the probe is disconnected
// or in open air, not that the soil is extremely dry.
type Sensor interface {
	Read() (int, error)
}

// Pump drives the normally-off relay. There is no readback: the only safe
// discipline is to force a known off state before and after any activation.
type Pump interface {
	SetActive(on bool) error
	Close() error
}

// Display renders two lines of at most 16 characters each and accepts
// append-only log lines. Both calls are fire and forget.
type Display interface {
	Show(line1, line2 string)
	Log(msg string)
}

// Defaults for a Raspberry Pi with a DS3231 RTC, an ADS1015 ADC exposed
// through IIO and the relay on BCM 17.
const (
	DefaultRTCPath    = "/sys/class/rtc/rtc0/since_epoch"
	DefaultSensorPath = "/sys/bus/iio/devices/iio:device0/in_voltage0_raw"
	DefaultPumpPin    = 17

	// SensorMax is the top of the 10-bit ADC range.
	SensorMax = 1023
)

// DisplayWidth is the character width of the status display.
const DisplayWidth = 16
