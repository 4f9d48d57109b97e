// Package ingest consumes the sensor topics, runs jump detection and hands
// finalized shots to the bus.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/kirbo/swishsensei/internal/config"
	"github.com/kirbo/swishsensei/internal/jump"
	"github.com/kirbo/swishsensei/internal/metrics"
	"github.com/kirbo/swishsensei/internal/models"
	"github.com/kirbo/swishsensei/internal/shot"
)

// ErrDecode marks a payload that is not valid JSON for its topic.
var ErrDecode = errors.New("decode payload")

// Publisher is where shots and jump events go.
type Publisher interface {
	shot.Sink
	PublishJump(ctx context.Context, ev models.JumpEvent) error
}

// Collector routes decoded sensor messages through the detector and the
// assembler.
type Collector struct {
	detector  *jump.Detector
	assembler *shot.Assembler
	registry  *Registry
	pub       Publisher
	metrics   *metrics.Collector
	logger    *zap.Logger
	routes    map[string]models.DeviceKind
}

// New wires a collector for the given topics and runtime windows.
func New(topics config.Topics, rt config.Runtime, pub Publisher, m *metrics.Collector, logger *zap.Logger) *Collector {
	c := &Collector{
		detector: jump.New(),
		registry: NewRegistry(),
		pub:      pub,
		metrics:  m,
		logger:   logger,
		routes: map[string]models.DeviceKind{
			topics.FootRaw:   models.Foot,
			topics.GloveRaw:  models.Glove,
			topics.HoopEvent: models.Hoop,
		},
	}
	c.assembler = shot.New(rt.PerfectWindow, rt.HoopWindow, c, logger)
	return c
}

// Registry exposes device liveness.
func (c *Collector) Registry() *Registry {
	return c.registry
}

// Kind maps a topic onto its device kind.
func (c *Collector) Kind(topic string) (models.DeviceKind, bool) {
	kind, ok := c.routes[topic]
	return kind, ok
}

// HandleMessage decodes and processes one message from topic.
func (c *Collector) HandleMessage(ctx context.Context, topic string, payload []byte) error {
	kind, ok := c.Kind(topic)
	if !ok {
		return fmt.Errorf("unrouted topic %q", topic)
	}

	c.metrics.Samples.WithLabelValues(string(kind)).Inc()
	device := c.registry.Seen(kind)
	c.metrics.LastSeen.WithLabelValues(string(kind)).Set(float64(device.LastSeen) / 1000)

	var err error
	switch kind {
	case models.Foot:
		var s models.FootSample
		if err = decode(payload, &s); err == nil {
			c.handleFoot(ctx, s)
		}
	case models.Glove:
		var s models.GloveSample
		if err = decode(payload, &s); err == nil {
			c.detector.Glove(s)
		}
	case models.Hoop:
		var ev models.HoopEvent
		if err = decode(payload, &ev); err == nil {
			if !c.assembler.Hoop(ctx, ev) {
				c.logger.Debug("hoop event without pending shot", zap.Bool("scored", ev.Scored))
			}
		}
	}

	if err != nil {
		c.metrics.DecodeErrors.WithLabelValues(string(kind)).Inc()
		c.logger.Warn("dropping sensor message", zap.String("topic", topic), zap.ByteString("payload", payload), zap.Error(err))
	}
	return err
}

func (c *Collector) handleFoot(ctx context.Context, s models.FootSample) {
	ev := c.detector.Foot(s)
	if ev == nil {
		return
	}

	if ev.Phase == models.JumpEnded {
		c.metrics.Jumps.Inc()
		c.logger.Info("jump ended",
			zap.Float64("duration_s", ev.Summary.DurationSec),
			zap.Float64("height_m", ev.Summary.HeightM),
			zap.Int("glove_samples", len(ev.Summary.Glove)),
		)
		c.assembler.Jump(ctx, *ev.Summary)
	} else {
		c.logger.Info("jump started", zap.Int64("ts", ev.Timestamp))
	}

	if err := c.pub.PublishJump(ctx, *ev); err != nil {
		c.metrics.PublishFails.Inc()
		c.logger.Error("publish jump event failed", zap.Error(err))
	}
}

// PublishShot counts and forwards a finalized shot.
func (c *Collector) PublishShot(ctx context.Context, s models.Shot) error {
	if err := c.pub.PublishShot(ctx, s); err != nil {
		c.metrics.PublishFails.Inc()
		return err
	}
	c.metrics.Shots.WithLabelValues(s.Classification.String(), strconv.FormatBool(s.Scored)).Inc()
	return nil
}

// Run expires pending shots every interval until ctx is done.
func (c *Collector) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			c.assembler.Expire(ctx, now)
		}
	}
}

func decode(payload []byte, v interface{}) error {
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return nil
}
