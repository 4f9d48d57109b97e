package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kirbo/swishsensei/internal/models"
	"github.com/kirbo/swishsensei/internal/store"
)

// RouterOption configures NewRouter.
type RouterOption func(*routerConfig)

type routerConfig struct {
	logger   *zap.Logger
	gatherer prometheus.Gatherer
	store    store.Store
	limiter  rateLimiter
	hub      *Hub
	devices  func() []models.Device
}

// WithShots mounts GET /shots, rate limited at rps with the given burst.
// rps 0 disables limiting.
func WithShots(st store.Store, rps float64, burst int) RouterOption {
	return func(cfg *routerConfig) {
		cfg.store = st
		if rps > 0 {
			cfg.limiter = newTokenBucketLimiter(rps, burst)
		}
	}
}

// WithHub mounts the SocketIO endpoint.
func WithHub(h *Hub) RouterOption {
	return func(cfg *routerConfig) {
		cfg.hub = h
	}
}

// WithDevices mounts GET /devices.
func WithDevices(list func() []models.Device) RouterOption {
	return func(cfg *routerConfig) {
		cfg.devices = list
	}
}

// WithMetrics serves gatherer on GET /metrics instead of the default registry.
func WithMetrics(gatherer prometheus.Gatherer) RouterOption {
	return func(cfg *routerConfig) {
		cfg.gatherer = gatherer
	}
}

// NewRouter builds the gin engine shared by the server and the collector.
func NewRouter(logger *zap.Logger, opts ...RouterOption) *gin.Engine {
	cfg := routerConfig{
		logger:   logger,
		gatherer: prometheus.DefaultGatherer,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	router := gin.New()
	router.Use(gin.Recovery(), accessLog(logger), corsMiddleware("*"))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.gatherer, promhttp.HandlerOpts{})))

	if cfg.store != nil {
		router.GET("/shots", rateLimit(cfg.limiter), shotsHandler(cfg.store, logger))
	}
	if cfg.devices != nil {
		router.GET("/devices", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"devices": cfg.devices()})
		})
	}
	if cfg.hub != nil {
		router.GET("/socket.io/*any", gin.WrapH(cfg.hub.Handler()))
		router.POST("/socket.io/*any", gin.WrapH(cfg.hub.Handler()))
	}

	return router
}

func shotsHandler(st store.Store, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := store.DefaultLimit
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
				return
			}
			limit = n
		}

		shots, err := st.RecentShots(c.Request.Context(), limit)
		if err != nil {
			logger.Error("list shots", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load shots"})
			return
		}
		if shots == nil {
			shots = []models.Shot{}
		}
		c.JSON(http.StatusOK, gin.H{"shots": shots})
	}
}

func corsMiddleware(allowOrigin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", allowOrigin)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, Content-Length, X-CSRF-Token, Origin, X-Requested-With")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		// go-socket.io rejects cross-origin upgrades on its own check.
		c.Request.Header.Del("Origin")

		c.Next()
	}
}

func accessLog(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}
