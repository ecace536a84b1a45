// Package schedule decides when the daily moisture checks run. Triggers are
// plain (hour, minute) pairs; the control loop polls the clock far faster
// than once a minute and uses an Edge to fire each trigger exactly once.
package schedule

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Entry is one daily trigger time.
type Entry struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

func (e Entry) String() string { return fmt.Sprintf("%02d:%02d", e.Hour, e.Minute) }

func (e Entry) minuteOfDay() int { return e.Hour*60 + e.Minute }

// ParseList parses a comma separated "HH:MM" list ("08:00,20:00") into
// entries sorted ascending by time of day. NextTrigger relies on that order.
func ParseList(raw string) ([]Entry, error) {
	var out []Entry
	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		hh, mm, ok := strings.Cut(p, ":")
		if !ok {
			return nil, fmt.Errorf("schedule entry %q: want HH:MM", p)
		}
		h, err := strconv.Atoi(hh)
		if err != nil {
			return nil, fmt.Errorf("schedule entry %q: %w", p, err)
		}
		m, err := strconv.Atoi(mm)
		if err != nil {
			return nil, fmt.Errorf("schedule entry %q: %w", p, err)
		}
		if h < 0 || h > 23 || m < 0 || m > 59 {
			return nil, fmt.Errorf("schedule entry %q out of range", p)
		}
		out = append(out, Entry{Hour: h, Minute: m})
	}
	if len(out) == 0 {
		return nil, errors.New("schedule is empty")
	}
	sort.Slice(out, func(i, j int) bool { return out[i].minuteOfDay() < out[j].minuteOfDay() })
	return out, nil
}

// IsTriggerMinute reports whether now's (hour, minute) matches an entry.
// Seconds are ignored: a trigger is a one minute wide window.
func IsTriggerMinute(now time.Time, entries []Entry) bool {
	for _, e := range entries {
		if now.Hour() == e.Hour && now.Minute() == e.Minute {
			return true
		}
	}
	return false
}

// NextTrigger returns the earliest entry strictly later than now's
// (hour, minute) on the same day, or the first entry of the following day
// once today's entries are exhausted. Entries are scanned in list order, so
// the slice must be sorted ascending (ParseList guarantees that).
func NextTrigger(now time.Time, entries []Entry) time.Time {
	nowMin := now.Hour()*60 + now.Minute()
	for _, e := range entries {
		if e.minuteOfDay() > nowMin {
			return time.Date(now.Year(), now.Month(), now.Day(), e.Hour, e.Minute, 0, 0, now.Location())
		}
	}
	e := entries[0]
	d := now.AddDate(0, 0, 1)
	return time.Date(d.Year(), d.Month(), d.Day(), e.Hour, e.Minute, 0, 0, now.Location())
}

// Edge remembers the last minute an evaluation already ran. It replaces a
// timer interrupt: the loop re-checks every poll tick, Fire returns true at
// most once per qualifying minute.
type Edge struct {
	lastFired time.Time
}

// Fire reports whether a scheduled evaluation should run now. A trigger
// minute that elapses while the device is busy elsewhere is not retried.
func (e *Edge) Fire(now time.Time, entries []Entry) bool {
	if !IsTriggerMinute(now, entries) {
		return false
	}
	minute := now.Truncate(time.Minute)
	if !e.lastFired.IsZero() && !minute.After(e.lastFired) {
		return false
	}
	e.lastFired = minute
	return true
}
