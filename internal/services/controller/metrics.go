package controller

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	evaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "watering_evaluations_total",
		Help: "Scheduled moisture evaluations by terminal outcome.",
	}, []string{"outcome"})

	wateringsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "watering_runs_total",
		Help: "Completed pump activations.",
	})

	pumpSecondsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "watering_pump_seconds_total",
		Help: "Total seconds the pump relay was held on.",
	})

	lastMoisture = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "watering_last_moisture_raw",
		Help: "Most recent raw moisture reading.",
	})

	publishErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "watering_publish_errors_total",
		Help: "Event publishes rejected by the broker or the circuit breaker.",
	})
)
