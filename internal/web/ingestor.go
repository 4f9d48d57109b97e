package web

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/kirbo/swishsensei/internal/metrics"
	"github.com/kirbo/swishsensei/internal/models"
	"github.com/kirbo/swishsensei/internal/store"
)

const seenTTL = 10 * time.Minute

// Acker removes a handled insert key from the bus.
type Acker interface {
	Ack(ctx context.Context, key string) error
}

// Ingestor stores shots arriving on the bus and relays them to clients.
// Keys handled within seenTTL are skipped, so a shot delivered both live and
// by startup replay is stored once.
type Ingestor struct {
	store   store.Store
	out     Broadcaster
	acker   Acker
	seen    *cache.Cache
	metrics *metrics.Server
	logger  *zap.Logger
}

func NewIngestor(st store.Store, out Broadcaster, acker Acker, m *metrics.Server, logger *zap.Logger) *Ingestor {
	return &Ingestor{
		store:   st,
		out:     out,
		acker:   acker,
		seen:    cache.New(seenTTL, 2*seenTTL),
		metrics: m,
		logger:  logger,
	}
}

// HandleInsert implements bus.Handler. The key is reserved before the store
// call so that replay and live delivery racing on one key store it once.
func (i *Ingestor) HandleInsert(ctx context.Context, key string, shot models.Shot) {
	if err := i.seen.Add(key, int64(0), cache.DefaultExpiration); err != nil {
		i.logger.Debug("duplicate insert key", zap.String("key", key))
		return
	}

	shot.ID = 0
	if _, err := i.store.InsertShot(ctx, &shot); err != nil {
		i.seen.Delete(key)
		i.metrics.InsertErrors.Inc()
		i.logger.Error("store shot failed", zap.String("key", key), zap.Error(err))
		return
	}
	i.metrics.Inserts.Inc()
	i.seen.Set(key, shot.ID, cache.DefaultExpiration)
	i.logger.Info("shot stored", zap.String("key", key), zap.Int64("id", shot.ID))
	i.out.Broadcast(ShotEvent, models.NewBroadcastMessage(shot))

	if err := i.acker.Ack(ctx, key); err != nil {
		i.logger.Warn("ack insert key failed", zap.String("key", key), zap.Error(err))
	}
}

// HandleJump implements bus.Handler.
func (i *Ingestor) HandleJump(_ context.Context, ev models.JumpEvent) {
	i.out.Broadcast(JumpEvent, ev)
}
