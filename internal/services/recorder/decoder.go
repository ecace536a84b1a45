// Package recorder subscribes to the controller's event topics and writes
// them to InfluxDB for history and dashboards.
package recorder

import (
	"encoding/json"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/JhonwillBantilan/RTC-Informed-Capacitive-Watering-System/internal/model"
	"github.com/JhonwillBantilan/RTC-Informed-Capacitive-Watering-System/pkg/dedup"
)

// Topic prefixes produced by the controller.
const (
	statusPrefix      = "watering/status/"
	runPrefix         = "watering/run/"
	calibrationPrefix = "watering/calibration/"
)

// Event is the normalized form handed to the Influx writer.
type Event struct {
	Measurement string
	Tags        map[string]string
	Fields      map[string]interface{}
	Timestamp   time.Time
}

// Handler turns MQTT messages into Events and passes them to sink. Run and
// calibration events arrive at QoS 1, so identical redeliveries are dropped
// by payload hash before decoding.
type Handler struct {
	sink  func(Event)
	dedup *dedup.Cache
}

func NewHandler(sink func(Event)) *Handler {
	return &Handler{sink: sink, dedup: dedup.New(10*time.Minute, 20000)}
}

func (h *Handler) Handle(topic string, m mqtt.Message) error {
	payload := m.Payload()

	var (
		evt Event
		err error
	)
	switch {
	case strings.HasPrefix(topic, statusPrefix):
		evt, err = decodeStatus(payload)
	case strings.HasPrefix(topic, runPrefix):
		if !h.dedup.FirstSeen(dedup.Hash(payload)) {
			return nil
		}
		evt, err = decodeRun(payload)
	case strings.HasPrefix(topic, calibrationPrefix):
		if !h.dedup.FirstSeen(dedup.Hash(payload)) {
			return nil
		}
		evt, err = decodeCalibration(payload)
	default:
		return nil
	}
	if err != nil {
		return err
	}
	if h.sink != nil {
		h.sink(evt)
	}
	return nil
}

func decodeStatus(payload []byte) (Event, error) {
	var s model.StatusEvent
	if err := json.Unmarshal(payload, &s); err != nil {
		return Event{}, err
	}
	return Event{
		Measurement: "watering_status",
		Tags: map[string]string{
			"device_id": s.DeviceID,
			"outcome":   string(s.Outcome),
		},
		Fields: map[string]interface{}{
			"moisture":      s.Moisture,
			"wet_threshold": s.WetThreshold,
			"dry_threshold": s.DryThreshold,
		},
		Timestamp: s.Timestamp,
	}, nil
}

func decodeRun(payload []byte) (Event, error) {
	var r model.WateringEvent
	if err := json.Unmarshal(payload, &r); err != nil {
		return Event{}, err
	}
	return Event{
		Measurement: "watering_run",
		Tags: map[string]string{
			"device_id": r.DeviceID,
			"run_id":    r.ID,
		},
		Fields: map[string]interface{}{
			"moisture":    r.Moisture,
			"duration_ms": r.DurationMs,
		},
		Timestamp: r.CompletedAt,
	}, nil
}

func decodeCalibration(payload []byte) (Event, error) {
	var c model.CalibrationEvent
	if err := json.Unmarshal(payload, &c); err != nil {
		return Event{}, err
	}
	return Event{
		Measurement: "watering_calibration",
		Tags: map[string]string{
			"device_id": c.DeviceID,
		},
		Fields: map[string]interface{}{
			"dry_reading":   c.DryReading,
			"wet_reading":   c.WetReading,
			"wet_threshold": c.WetThreshold,
			"dry_threshold": c.DryThreshold,
			"clamped":       c.Clamped,
		},
		Timestamp: c.Timestamp,
	}, nil
}
