package recorder

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
)

// Run is the payload returned by /runs/latest.
type Run struct {
	DeviceID   string `json:"device_id,omitempty"`
	DurationMs int64  `json:"duration_ms"`
	Time       string `json:"time"` // RFC3339
}

type runQueryParams struct {
	Minutes   int
	Limit     int
	TimeoutMS int
}

func parseRunQuery(r *http.Request, defMin, defLim, defTOms int) runQueryParams {
	q := r.URL.Query()
	get := func(k string, def, min, max int) int {
		if v := strings.TrimSpace(q.Get(k)); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				if n < min {
					return min
				}
				if max > 0 && n > max {
					return max
				}
				return n
			}
		}
		return def
	}
	return runQueryParams{
		Minutes:   get("minutes", defMin, 1, 7*24*60),
		Limit:     get("limit", defLim, 1, 500),
		TimeoutMS: get("timeout_ms", defTOms, 200, 5000),
	}
}

func buildRunsFlux(bucket string, minutes, limit int) string {
	return fmt.Sprintf(`
from(bucket: %q)
  |> range(start: -%dm)
  |> filter(fn: (r) => r._measurement == "watering_run" and r._field == "duration_ms")
  |> keep(columns: ["_time","_value","device_id"])
  |> sort(columns: ["_time"], desc: true)
  |> limit(n:%d)
`, bucket, minutes, limit)
}

type runsLatestHandler struct {
	influx influxdb2.Client
	org    string
	bucket string
}

// NewRunsLatestHandler serves GET /runs/latest?limit=N&minutes=M from the
// recorded watering runs.
func NewRunsLatestHandler(influx influxdb2.Client, org, bucket string) http.Handler {
	return &runsLatestHandler{influx: influx, org: org, bucket: bucket}
}

func (h *runsLatestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p := parseRunQuery(r, 24*60, 20, 2000)

	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(p.TimeoutMS)*time.Millisecond)
	defer cancel()

	w.Header().Set("Content-Type", "application/json")

	res, err := h.influx.QueryAPI(h.org).Query(ctx, buildRunsFlux(h.bucket, p.Minutes, p.Limit))
	if err != nil {
		w.Header().Set("X-Error", "influx-query-error")
		_, _ = w.Write([]byte("[]"))
		return
	}
	defer res.Close()

	out := make([]Run, 0, p.Limit)
	for res.Next() {
		rec := res.Record()
		run := Run{Time: rec.Time().Format(time.RFC3339)}
		if v, ok := rec.ValueByKey("device_id").(string); ok {
			run.DeviceID = v
		}
		switch v := rec.Value().(type) {
		case int64:
			run.DurationMs = v
		case float64:
			run.DurationMs = int64(v)
		}
		out = append(out, run)
	}
	_ = json.NewEncoder(w).Encode(out)
}
