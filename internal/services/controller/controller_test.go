package controller

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/JhonwillBantilan/RTC-Informed-Capacitive-Watering-System/internal/calibration"
	"github.com/JhonwillBantilan/RTC-Informed-Capacitive-Watering-System/internal/hardware"
	"github.com/JhonwillBantilan/RTC-Informed-Capacitive-Watering-System/internal/model"
	"github.com/JhonwillBantilan/RTC-Informed-Capacitive-Watering-System/internal/schedule"
)

type published struct {
	topic   string
	qos     byte
	payload []byte
}

type fakePublisher struct {
	events []published
	err    error
}

func (f *fakePublisher) Publish(topic string, qos byte, retained bool, payload []byte) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, published{topic: topic, qos: qos, payload: payload})
	return nil
}

func (f *fakePublisher) Close() {}

var testThresholds = calibration.Thresholds{Wet: 450, Dry: 850}

func newTestController(sensor *hardware.FakeSensor, pump *hardware.FakePump,
	display *hardware.FakeDisplay, pub *fakePublisher) (*Controller, *[]time.Duration) {
	clock := &hardware.FakeClock{Current: time.Date(2026, 8, 29, 8, 0, 0, 0, time.UTC)}
	c := New(Config{
		DeviceID: "plant-1",
		Schedule: []schedule.Entry{{Hour: 8, Minute: 0}},
	}, clock, sensor, pump, display, pub, testThresholds)

	waits := &[]time.Duration{}
	c.sleep = func(_ context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return nil
	}
	return c, waits
}

func TestClassifyIsTotalPartition(t *testing.T) {
	counts := map[model.Outcome]int{}
	for reading := 0; reading <= hardware.SensorMax; reading++ {
		counts[Classify(reading, testThresholds, DefaultFaultThreshold)]++
	}
	// Exactly one outcome per reading, and all bands non-empty.
	total := 0
	for _, n := range counts {
		total += n
	}
	if total != hardware.SensorMax+1 {
		t.Fatalf("expected %d classified readings, got %d", hardware.SensorMax+1, total)
	}
	if counts[model.OutcomeSkipWet] != 450 {
		t.Errorf("skip_wet band: want 450, got %d", counts[model.OutcomeSkipWet])
	}
	if counts[model.OutcomeOK] != 401 {
		t.Errorf("ok band: want 401, got %d", counts[model.OutcomeOK])
	}
	if counts[model.OutcomeWater] != 149 {
		t.Errorf("water band: want 149, got %d", counts[model.OutcomeWater])
	}
	if counts[model.OutcomeFault] != 24 {
		t.Errorf("fault band: want 24, got %d", counts[model.OutcomeFault])
	}
}

func TestClassifyBoundaries(t *testing.T) {
	tests := []struct {
		reading int
		want    model.Outcome
	}{
		{449, model.OutcomeSkipWet},
		{450, model.OutcomeOK},
		{850, model.OutcomeOK},
		{851, model.OutcomeWater},
		{999, model.OutcomeWater},
		{1000, model.OutcomeFault},
		{1020, model.OutcomeFault},
	}
	for _, tt := range tests {
		if got := Classify(tt.reading, testThresholds, DefaultFaultThreshold); got != tt.want {
			t.Errorf("Classify(%d) = %s, want %s", tt.reading, got, tt.want)
		}
	}
}

func TestClassifyFaultPrecedence(t *testing.T) {
	// Fault wins even when the thresholds would put the reading in the
	// water (or ok) band.
	th := calibration.Thresholds{Wet: 990, Dry: 1010}
	if got := Classify(1005, th, 1000); got != model.OutcomeFault {
		t.Errorf("Classify(1005) = %s, want fault", got)
	}
}

func TestEvaluateWaterRunsBoundedSequence(t *testing.T) {
	sensor := &hardware.FakeSensor{Samples: []int{900}}
	pump := &hardware.FakePump{}
	display := &hardware.FakeDisplay{}
	pub := &fakePublisher{}
	c, waits := newTestController(sensor, pump, display, pub)

	now := time.Date(2026, 8, 29, 8, 0, 0, 0, time.UTC)
	if got := c.Evaluate(context.Background(), now); got != model.OutcomeWater {
		t.Fatalf("outcome = %s, want water", got)
	}

	// Forced off, on for the hold, off again.
	want := []bool{false, true, false}
	if len(pump.Transitions) != len(want) {
		t.Fatalf("pump transitions = %v, want %v", pump.Transitions, want)
	}
	for i, v := range want {
		if pump.Transitions[i] != v {
			t.Fatalf("pump transitions = %v, want %v", pump.Transitions, want)
		}
	}
	if pump.Active {
		t.Error("pump left on after watering")
	}
	if len(*waits) != 1 || (*waits)[0] != DefaultWateringDuration {
		t.Errorf("hold waits = %v, want [%v]", *waits, DefaultWateringDuration)
	}

	// One run event (QoS 1) and one status event (QoS 0).
	if len(pub.events) != 2 {
		t.Fatalf("published %d events, want 2", len(pub.events))
	}
	run := pub.events[0]
	if run.topic != "watering/run/plant-1" || run.qos != 1 {
		t.Errorf("run event on %s qos=%d", run.topic, run.qos)
	}
	var evt model.WateringEvent
	if err := json.Unmarshal(run.payload, &evt); err != nil {
		t.Fatalf("unmarshal run event: %v", err)
	}
	if evt.ID == "" || evt.DurationMs != DefaultWateringDuration.Milliseconds() || evt.Moisture != 900 {
		t.Errorf("run event = %+v", evt)
	}
	status := pub.events[1]
	if status.topic != "watering/status/plant-1" || status.qos != 0 {
		t.Errorf("status event on %s qos=%d", status.topic, status.qos)
	}
}

func TestEvaluateWateringFromPumpAlreadyOn(t *testing.T) {
	sensor := &hardware.FakeSensor{Samples: []int{900}}
	pump := &hardware.FakePump{Active: true} // inconsistent prior state
	c, _ := newTestController(sensor, pump, &hardware.FakeDisplay{}, &fakePublisher{})

	c.Evaluate(context.Background(), time.Now())

	if pump.Transitions[0] != false {
		t.Error("watering must force the pump off before activating")
	}
	if pump.Active {
		t.Error("pump left on after watering")
	}
}

func TestEvaluateFaultForcesPumpOff(t *testing.T) {
	sensor := &hardware.FakeSensor{Samples: []int{1020}}
	pump := &hardware.FakePump{Active: true}
	display := &hardware.FakeDisplay{}
	pub := &fakePublisher{}
	c, waits := newTestController(sensor, pump, display, pub)

	if got := c.Evaluate(context.Background(), time.Now()); got != model.OutcomeFault {
		t.Fatalf("outcome = %s, want fault", got)
	}
	if pump.Active {
		t.Error("pump must be off in fault state")
	}
	for _, on := range pump.Transitions {
		if on {
			t.Error("fault state must never activate the pump")
		}
	}
	if l1, _ := display.LastLines(); l1 != "Sensor error" {
		t.Errorf("display line1 = %q, want Sensor error", l1)
	}
	if len(*waits) != 1 || (*waits)[0] != DefaultFaultCooldown {
		t.Errorf("cooldown waits = %v", *waits)
	}
	var evt model.StatusEvent
	if err := json.Unmarshal(pub.events[0].payload, &evt); err != nil {
		t.Fatalf("unmarshal status: %v", err)
	}
	if evt.Outcome != model.OutcomeFault {
		t.Errorf("status outcome = %s", evt.Outcome)
	}
}

func TestEvaluateSkipWetAndOKLeavePumpAlone(t *testing.T) {
	tests := []struct {
		reading int
		want    model.Outcome
		line1   string
	}{
		{200, model.OutcomeSkipWet, "Too wet"},
		{600, model.OutcomeOK, "Moisture OK"},
	}
	for _, tt := range tests {
		sensor := &hardware.FakeSensor{Samples: []int{tt.reading}}
		pump := &hardware.FakePump{}
		display := &hardware.FakeDisplay{}
		c, waits := newTestController(sensor, pump, display, &fakePublisher{})

		if got := c.Evaluate(context.Background(), time.Now()); got != tt.want {
			t.Errorf("reading %d: outcome = %s, want %s", tt.reading, got, tt.want)
		}
		if len(pump.Transitions) != 0 {
			t.Errorf("reading %d: pump touched: %v", tt.reading, pump.Transitions)
		}
		if len(*waits) != 0 {
			t.Errorf("reading %d: unexpected waits %v", tt.reading, *waits)
		}
		if l1, _ := display.LastLines(); l1 != tt.line1 {
			t.Errorf("reading %d: display line1 = %q, want %q", tt.reading, l1, tt.line1)
		}
	}
}

func TestEvaluateSensorReadError(t *testing.T) {
	sensor := &hardware.FakeSensor{Err: errSensor}
	pump := &hardware.FakePump{Active: true}
	pub := &fakePublisher{}
	c, _ := newTestController(sensor, pump, &hardware.FakeDisplay{}, pub)

	if got := c.Evaluate(context.Background(), time.Now()); got != model.OutcomeFault {
		t.Fatalf("outcome = %s, want fault", got)
	}
	if pump.Active {
		t.Error("pump must be forced off on a read error")
	}
	if len(pub.events) != 0 {
		t.Errorf("no event expected on read error, got %d", len(pub.events))
	}
}

var errSensor = errSensorType{}

type errSensorType struct{}

func (errSensorType) Error() string { return "adc gone" }

func TestRunEvaluatesOncePerTriggerMinute(t *testing.T) {
	clock := &hardware.FakeClock{Current: time.Date(2026, 8, 29, 8, 0, 0, 0, time.UTC)}
	sensor := &hardware.FakeSensor{Samples: []int{600}} // ok band, no watering
	pump := &hardware.FakePump{}
	c := New(Config{
		DeviceID:     "plant-1",
		Schedule:     []schedule.Entry{{Hour: 8, Minute: 0}},
		PollInterval: time.Millisecond,
	}, clock, sensor, pump, &hardware.FakeDisplay{}, nil, testThresholds)

	reads := 0
	c.sensor = readCounter{inner: sensor, n: &reads}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	if err := c.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// The loop ticked dozens of times inside the trigger minute but the
	// edge allows a single evaluation.
	if reads != 1 {
		t.Errorf("sensor read %d times, want 1", reads)
	}
	if pump.Active {
		t.Error("pump left on after shutdown")
	}
}

type readCounter struct {
	inner *hardware.FakeSensor
	n     *int
}

func (r readCounter) Read() (int, error) {
	*r.n++
	return r.inner.Read()
}
