// event-recorder subscribes to the watering controller's MQTT topics and
// writes the events to InfluxDB.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/joho/godotenv"

	"github.com/JhonwillBantilan/RTC-Informed-Capacitive-Watering-System/internal/services/recorder"
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

func main() {
	_ = godotenv.Load()

	cfg := struct {
		Mqtt mqttbus.Config

		InfluxURL    string
		InfluxToken  string
		InfluxOrg    string
		InfluxBucket string

		BatchSize     int
		FlushInterval time.Duration

		HTTPPort int
	}{
		Mqtt: mqttbus.Config{
			Host:     envStr("MQTT_HOST", "localhost"),
			Port:     envInt("MQTT_PORT", 1883),
			User:     envStr("MQTT_USER", ""),
			Password: envStr("MQTT_PASSWORD", ""),
			ClientID: envStr("HOSTNAME", "event-recorder"),
		},

		InfluxURL:    envStr("INFLUX_URL", "http://localhost:8086"),
		InfluxToken:  os.Getenv("INFLUX_TOKEN"),
		InfluxOrg:    envStr("INFLUX_ORG", "home"),
		InfluxBucket: envStr("INFLUX_BUCKET", "watering"),

		BatchSize:     envInt("WRITE_BATCH_SIZE", 10),
		FlushInterval: time.Duration(envInt("WRITE_FLUSH_INTERVAL_MS", 200)) * time.Millisecond,

		HTTPPort: envInt("HTTP_PORT", 8081),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts := influxdb2.DefaultOptions().
		SetBatchSize(uint(cfg.BatchSize)).
		SetFlushInterval(uint(cfg.FlushInterval.Milliseconds()))
	influx := influxdb2.NewClientWithOptions(cfg.InfluxURL, cfg.InfluxToken, opts)
	defer influx.Close()
	writer := recorder.NewWriter(influx.WriteAPI(cfg.InfluxOrg, cfg.InfluxBucket))

	mqttClient, err := mqttbus.NewConn(ctx, &cfg.Mqtt)
	if err != nil {
		log.Fatalf("mqtt connection error: %v", err)
	}
	defer mqttbus.CloseConn(mqttClient)

	handler := recorder.NewHandler(writer.Write)
	consumer := mqttbus.NewConsumer(mqttClient, map[string]byte{
		"watering/status/#":      0,
		"watering/run/#":         1,
		"watering/calibration/#": 1,
	})
	consumer.SetHandler(handler.Handle)
	go consumer.Consume(ctx)

	mux := http.NewServeMux()
	mux.Handle("/healthz", recorder.NewHealthHandler(mqttClient, influx, writer))
	mux.Handle("/readyz", recorder.NewReadyHandler(mqttClient, influx, writer, 2*time.Second))
	mux.Handle("/runs/latest", recorder.NewRunsLatestHandler(influx, cfg.InfluxOrg, cfg.InfluxBucket))

	hs := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.HTTPPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Printf("event-recorder http on %s", hs.Addr)
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http serve error: %v", err)
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	<-sigc
	log.Println("shutting down...")
	cancel()

	shCtx, shCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer shCancel()
	_ = hs.Shutdown(shCtx)
}
