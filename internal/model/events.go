package model

import "time"

// Outcome is the terminal state of one scheduled moisture evaluation.
type Outcome string

const (
	OutcomeFault   Outcome = "fault"
	OutcomeSkipWet Outcome = "skip_wet"
	OutcomeWater   Outcome = "water"
	OutcomeOK      Outcome = "ok"
)

// StatusEvent is published after every scheduled evaluation, whatever the outcome.
type StatusEvent struct {
	DeviceID     string    `json:"device_id"`
	Outcome      Outcome   `json:"outcome"`
	Moisture     int       `json:"moisture"`
	WetThreshold int       `json:"wet_threshold"`
	DryThreshold int       `json:"dry_threshold"`
	Timestamp    time.Time `json:"timestamp"`
}

// WateringEvent is published once per completed pump run.
type WateringEvent struct {
	ID          string    `json:"id"`
	DeviceID    string    `json:"device_id"`
	Moisture    int       `json:"moisture"`
	DurationMs  int64     `json:"duration_ms"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// CalibrationEvent records the startup calibration result, including whether
// the wet threshold had to be clamped below the dry one.
type CalibrationEvent struct {
	DeviceID     string    `json:"device_id"`
	DryReading   int       `json:"dry_reading"`
	WetReading   int       `json:"wet_reading"`
	WetThreshold int       `json:"wet_threshold"`
	DryThreshold int       `json:"dry_threshold"`
	Clamped      bool      `json:"clamped"`
	Timestamp    time.Time `json:"timestamp"`
}
