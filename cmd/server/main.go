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
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/kirbo/swishsensei/internal/bus"
	"github.com/kirbo/swishsensei/internal/config"
	"github.com/kirbo/swishsensei/internal/logging"
	"github.com/kirbo/swishsensei/internal/metrics"
	"github.com/kirbo/swishsensei/internal/store"
	"github.com/kirbo/swishsensei/internal/web"
)

const shutdownGracePeriod = 10 * time.Second

var signalNotify = signal.Notify

var (
	stderr io.Writer = os.Stderr
	osExit           = os.Exit
)

// exitf reports a failure that happens before the logger exists.
func exitf(format string, args ...interface{}) {
	fmt.Fprintf(stderr, format+"\n", args...)
	osExit(1)
}

func connectStore(ctx context.Context, cfg config.Runtime, logger *zap.Logger) (store.Store, error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set, keeping shots in memory")
		return store.NewMemoryStore(), nil
	}

	st, err := store.OpenPostgres(ctx, cfg.DatabaseURL, cfg.ShotsTable)
	if err != nil {
		return nil, err
	}
	if err := st.Init(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	logger.Info("connected to postgres", zap.String("table", cfg.ShotsTable))
	return st, nil
}

func main() {
	app := kingpin.New("swish-server", "Stores shots from the bus and serves them over HTTP and SocketIO")
	configFile := app.Flag("config", "Path to YAML configuration file").String()
	sets := app.Flag("set", "Override a config key, e.g. --set HTTP_PORT=5001").StringMap()
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := connectStore(ctx, cfg.Runtime, logger)
	if err != nil {
		logger.Fatal("failed to open shot store", zap.Error(err))
	}
	defer st.Close()

	b := bus.New(cfg.RedisAddr(), cfg.Runtime.RedisPassword, logger.Named("bus"))
	defer b.Close()
	if err := b.Ping(ctx); err != nil {
		logger.Fatal("failed to reach redis", zap.String("addr", cfg.RedisAddr()), zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewServer(reg)

	hub, err := web.NewHub(st, m, logger.Named("socket"))
	if err != nil {
		logger.Fatal("failed to create socket server", zap.Error(err))
	}
	go func() {
		if err := hub.Serve(); err != nil {
			logger.Error("socket server stopped", zap.Error(err))
		}
	}()
	defer hub.Close()

	ingestor := web.NewIngestor(st, hub, b, m, logger.Named("ingest"))

	go func() {
		n, err := b.Pending(ctx, ingestor)
		if err != nil {
			logger.Error("replay pending inserts", zap.Error(err))
			return
		}
		logger.Info("replayed pending inserts", zap.Int("count", n))
	}()

	go func() {
		if err := b.Subscribe(ctx, ingestor); err != nil && !errors.Is(err, context.Canceled) {
			logger.Fatal("bus subscription failed", zap.Error(err))
		}
	}()

	router := web.NewRouter(logger.Named("http"),
		web.WithMetrics(reg),
		web.WithShots(st, cfg.Runtime.RateLimitRPS, cfg.Runtime.RateLimitBurst),
		web.WithHub(hub),
	)
	server := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	shutdown(server, shutdownGracePeriod, logger)
	cancel()
}

func shutdown(server *http.Server, timeout time.Duration, logger *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("forced close failed", zap.Error(closeErr))
		}
	}
}
