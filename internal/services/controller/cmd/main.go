// watering-controller is the on-device daemon: it calibrates the probe at
// startup, then checks soil moisture at the scheduled minutes and drives
// the pump relay.
package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JhonwillBantilan/RTC-Informed-Capacitive-Watering-System/internal/calibration"
	"github.com/JhonwillBantilan/RTC-Informed-Capacitive-Watering-System/internal/hardware"
	"github.com/JhonwillBantilan/RTC-Informed-Capacitive-Watering-System/internal/schedule"
	"github.com/JhonwillBantilan/RTC-Informed-Capacitive-Watering-System/internal/services/controller"
	"github.com/JhonwillBantilan/RTC-Informed-Capacitive-Watering-System/pkg/mqttbus"
)

func envStr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envDur(key string, def time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func main() {
	_ = godotenv.Load()

	cfg := struct {
		DeviceID    string
		ScheduleRaw string

		RTCPath     string
		SensorPath  string
		PumpPin     int
		DisplayPath string

		Settle      time.Duration
		Margin      int
		FallbackGap int

		Mqtt     mqttbus.Config
		HTTPAddr string
	}{
		DeviceID:    envStr("DEVICE_ID", "plant-1"),
		ScheduleRaw: envStr("WATERING_SCHEDULE", "08:00,20:00"),

		RTCPath:     envStr("RTC_PATH", hardware.DefaultRTCPath),
		SensorPath:  envStr("SENSOR_PATH", hardware.DefaultSensorPath),
		PumpPin:     envInt("PUMP_PIN", hardware.DefaultPumpPin),
		DisplayPath: envStr("DISPLAY_PATH", "/dev/ttyAMA0"),

		Settle:      envDur("CALIBRATION_SETTLE", calibration.DefaultSettle),
		Margin:      envInt("CALIBRATION_MARGIN", calibration.DefaultMargin),
		FallbackGap: envInt("CALIBRATION_FALLBACK_GAP", calibration.DefaultFallbackGap),

		Mqtt: mqttbus.Config{
			Host:     envStr("MQTT_HOST", ""),
			Port:     envInt("MQTT_PORT", 1883),
			User:     envStr("MQTT_USER", ""),
			Password: envStr("MQTT_PASSWORD", ""),
			ClientID: envStr("MQTT_CLIENTID", "watering-controller"),
		},
		HTTPAddr: envStr("HTTP_ADDR", ":8080"),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	go func() {
		s := <-sigc
		log.Printf("received %v, shutting down", s)
		cancel()
	}()

	entries, err := schedule.ParseList(cfg.ScheduleRaw)
	if err != nil {
		log.Fatalf("WATERING_SCHEDULE: %v", err)
	}

	// Clock unavailable is fatal: time-of-day scheduling is meaningless
	// without a trusted RTC.
	clock, err := hardware.NewRTCClock(cfg.RTCPath, time.Local)
	if err != nil {
		log.Fatalf("rtc init: %v", err)
	}

	sensor, err := hardware.NewIIOSensor(cfg.SensorPath)
	if err != nil {
		log.Fatalf("moisture sensor init: %v", err)
	}

	pump, err := hardware.NewRelayPump(cfg.PumpPin)
	if err != nil {
		log.Fatalf("pump relay init: %v", err)
	}
	defer pump.Close()

	var displayW io.Writer = os.Stdout
	if f, err := os.OpenFile(cfg.DisplayPath, os.O_WRONLY, 0); err != nil {
		log.Printf("WARN: display %s unavailable (%v), using stdout", cfg.DisplayPath, err)
	} else {
		defer f.Close()
		displayW = f
	}
	display := hardware.NewSerialDisplay(displayW)

	// The broker is optional: the device keeps watering without it.
	var publisher mqttbus.Publisher
	if cfg.Mqtt.Host != "" {
		client, err := mqttbus.NewConn(ctx, &cfg.Mqtt)
		if err != nil {
			log.Printf("WARN: mqtt unavailable, running without event publishing: %v", err)
		} else {
			publisher = mqttbus.NewPublisher(client)
		}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	go func() {
		if err := http.ListenAndServe(cfg.HTTPAddr, mux); err != nil {
			log.Printf("http server error: %v", err)
		}
	}()

	cal := &calibration.Calibrator{
		Sensor:      sensor,
		Display:     display,
		Settle:      cfg.Settle,
		Margin:      cfg.Margin,
		FallbackGap: cfg.FallbackGap,
	}
	res, err := cal.Run(ctx)
	if err != nil {
		log.Fatalf("calibration: %v", err)
	}

	ctrl := controller.New(controller.Config{
		DeviceID:         cfg.DeviceID,
		Schedule:         entries,
		FaultThreshold:   envInt("SENSOR_FAULT_THRESHOLD", controller.DefaultFaultThreshold),
		WateringDuration: envDur("WATERING_DURATION", controller.DefaultWateringDuration),
		FaultCooldown:    envDur("FAULT_COOLDOWN", controller.DefaultFaultCooldown),
		PollInterval:     envDur("POLL_INTERVAL", controller.DefaultPollInterval),
	}, clock, sensor, pump, display, publisher, res.Thresholds)

	if now, err := clock.Now(); err == nil {
		ctrl.PublishCalibration(res, now)
	}

	log.Printf("controller started: device=%s schedule=%s", cfg.DeviceID, cfg.ScheduleRaw)
	if err := ctrl.Run(ctx); err != nil {
		log.Fatalf("controller: %v", err)
	}
}
