package recorder

import (
	"log"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
)

// Writer wraps the async Influx WriteAPI and tracks the time of the last
// write error for /healthz and /readyz.
type Writer struct {
	api     api.WriteAPI
	mu      sync.RWMutex
	lastErr time.Time
	counts  map[string]int64
}

// NewWriter starts the listener for the write API's async errors.
func NewWriter(w api.WriteAPI) *Writer {
	ww := &Writer{
		api:     w,
		lastErr: time.Now().Add(-24 * time.Hour),
		counts:  make(map[string]int64),
	}
	go func() {
		for err := range w.Errors() {
			if err != nil {
				ww.mu.Lock()
				ww.lastErr = time.Now()
				ww.mu.Unlock()
				log.Printf("influx write error: %v", err)
			}
		}
	}()
	return ww
}

// Write queues one event. Delivery is asynchronous; failures surface
// through the error listener.
func (w *Writer) Write(evt Event) {
	p := influxdb2.NewPoint(evt.Measurement, evt.Tags, evt.Fields, evt.Timestamp)
	w.api.WritePoint(p)
	w.mu.Lock()
	w.counts[evt.Measurement]++
	w.mu.Unlock()
}

// LastErrorAge returns how long ago the last write error happened.
func (w *Writer) LastErrorAge() time.Duration {
	w.mu.RLock()
	t := w.lastErr
	w.mu.RUnlock()
	return time.Since(t)
}

// Count returns how many events were queued for a measurement.
func (w *Writer) Count(measurement string) int64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.counts[measurement]
}
