package hardware

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// RTCClock reads the battery backed real-time clock through the Linux RTC
// class device (since_epoch is seconds since the Unix epoch, UTC).
type RTCClock struct {
	Path string
	Loc  *time.Location
}

// NewRTCClock opens the RTC at path and performs one sanity read. A missing
// device or an epoch before 2020 (dead backup battery) is an error: the
// caller must halt rather than schedule against unknown time.
func NewRTCClock(path string, loc *time.Location) (*RTCClock, error) {
	if loc == nil {
		loc = time.Local
	}
	c := &RTCClock{Path: path, Loc: loc}
	t, err := c.Now()
	if err != nil {
		return nil, err
	}
	if t.Year() < 2020 {
		return nil, fmt.Errorf("rtc %s reports %s, backup battery likely dead", path, t.Format(time.RFC3339))
	}
	return c, nil
}

func (c *RTCClock) Now() (time.Time, error) {
	raw, err := os.ReadFile(c.Path)
	if err != nil {
		return time.Time{}, fmt.Errorf("read rtc: %w", err)
	}
	sec, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse rtc epoch %q: %w", strings.TrimSpace(string(raw)), err)
	}
	return time.Unix(sec, 0).In(c.Loc), nil
}
