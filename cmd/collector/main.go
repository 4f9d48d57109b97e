package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/kirbo/swishsensei/internal/bus"
	"github.com/kirbo/swishsensei/internal/config"
	"github.com/kirbo/swishsensei/internal/ingest"
	"github.com/kirbo/swishsensei/internal/logging"
	"github.com/kirbo/swishsensei/internal/metrics"
	"github.com/kirbo/swishsensei/internal/web"
)

const (
	expireInterval = 250 * time.Millisecond
	disconnectWait = 250 // milliseconds
)

var (
	stderr io.Writer = os.Stderr
	osExit           = os.Exit
)

// exitf reports a failure that happens before the logger exists.
func exitf(format string, args ...interface{}) {
	fmt.Fprintf(stderr, format+"\n", args...)
	osExit(1)
}

func main() {
	app := kingpin.New("swish-collector", "Subscribes to the sensor topics and turns jumps into shots")
	configFile := app.Flag("config", "Path to YAML configuration file").String()
	sets := app.Flag("set", "Override a config key, e.g. --set MQTT_BROKER=10.0.0.2").StringMap()
	kingpin.MustParse(app.Parse(os.Args[1:]))

	cfg, err := config.Load(config.Options{File: *configFile, Overrides: *sets})
	if err != nil {
		exitf("failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Runtime.LogLevel, cfg.Runtime.LogFormat)
	if err != nil {
		exitf("failed to initialize logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b := bus.New(cfg.RedisAddr(), cfg.Runtime.RedisPassword, logger.Named("bus"))
	defer b.Close()
	if err := b.Ping(ctx); err != nil {
		logger.Fatal("failed to reach redis", zap.String("addr", cfg.RedisAddr()), zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := ingest.New(cfg.Topics, cfg.Runtime, b, metrics.NewCollector(reg), logger.Named("ingest"))

	mqttLogger := logger.With(zap.String("broker", cfg.BrokerURL()))
	client := mqtt.NewClient(ingest.ClientOptions(cfg.MQTT, mqttLogger))
	if err := ingest.Connect(client); err != nil {
		mqttLogger.Fatal("error connecting to mqtt", zap.Error(err))
	}
	defer client.Disconnect(disconnectWait)
	mqttLogger.Info("mqtt client connected")

	if err := ingest.Subscribe(ctx, client, collector); err != nil {
		mqttLogger.Fatal("error subscribing to sensor topics", zap.Error(err))
	}

	go collector.Run(ctx, expireInterval)

	router := web.NewRouter(logger.Named("http"),
		web.WithMetrics(reg),
		web.WithDevices(collector.Registry().Devices),
	)
	server := &http.Server{
		Addr:              cfg.Runtime.MetricsAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("metrics listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down collector")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	}
}
