// Package bus fans finalized shots and live jump events out over redis.
// Shots are written as insert:* keys and published so that a server which
// was down can replay them from the keys on startup.
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/kirbo/swishsensei/internal/channels"
	"github.com/kirbo/swishsensei/internal/models"
)

const (
	defaultAckRetries = 60
	defaultAckDelay   = time.Second
)

// ErrAckFailed is returned when an insert key survives every delete attempt.
var ErrAckFailed = errors.New("insert key not deleted")

// Handler consumes messages received by Subscribe and Pending.
type Handler interface {
	HandleInsert(ctx context.Context, key string, shot models.Shot)
	HandleJump(ctx context.Context, ev models.JumpEvent)
}

// Bus wraps a redis client.
type Bus struct {
	rdb    *redis.Client
	logger *zap.Logger
	now    func() time.Time
	seq    uint64

	del        func(ctx context.Context, keys ...string) *redis.IntCmd
	ackRetries int
	ackDelay   time.Duration
}

// New connects lazily to addr.
func New(addr, password string, logger *zap.Logger) *Bus {
	return NewWithClient(redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	}), logger)
}

// NewWithClient wraps an existing client.
func NewWithClient(rdb *redis.Client, logger *zap.Logger) *Bus {
	return &Bus{
		rdb:        rdb,
		logger:     logger,
		now:        time.Now,
		del:        rdb.Del,
		ackRetries: defaultAckRetries,
		ackDelay:   defaultAckDelay,
	}
}

func (b *Bus) Ping(ctx context.Context) error {
	return b.rdb.Ping(ctx).Err()
}

func (b *Bus) Close() error {
	return b.rdb.Close()
}

// insertKey is insert:<unix ms>:<seq>.
func (b *Bus) insertKey() string {
	return fmt.Sprintf("%s%d:%d", channels.Insert, b.now().UnixMilli(), atomic.AddUint64(&b.seq, 1))
}

// PublishShot stores the shot under a fresh insert key and announces it.
func (b *Bus) PublishShot(ctx context.Context, shot models.Shot) error {
	data, err := json.Marshal(shot)
	if err != nil {
		return fmt.Errorf("encode shot: %w", err)
	}
	return b.setAndPublish(ctx, b.insertKey(), string(data))
}

// PublishJump announces a live jump event. Nothing is stored.
func (b *Bus) PublishJump(ctx context.Context, ev models.JumpEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode jump event: %w", err)
	}
	channel := fmt.Sprintf("%s%d", channels.Jump, ev.Timestamp)
	if err := b.rdb.Publish(ctx, channel, string(data)).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	return nil
}

func (b *Bus) setAndPublish(ctx context.Context, key, data string) error {
	if err := b.rdb.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	if err := b.rdb.Publish(ctx, key, data).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", key, err)
	}
	return nil
}

// Subscribe dispatches insert and jump messages until ctx is done.
func (b *Bus) Subscribe(ctx context.Context, h Handler) error {
	pubsub := b.rdb.PSubscribe(ctx, channels.Insert+"*", channels.Jump+"*")
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("psubscribe: %w", err)
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			b.dispatch(ctx, h, msg.Channel, msg.Payload)
		}
	}
}

func (b *Bus) dispatch(ctx context.Context, h Handler, channel, payload string) {
	switch {
	case strings.HasPrefix(channel, channels.Insert):
		shot, err := DecodeShot(payload)
		if err != nil {
			b.logger.Warn("dropping malformed shot", zap.String("key", channel), zap.Error(err))
			return
		}
		h.HandleInsert(ctx, channel, shot)
	case strings.HasPrefix(channel, channels.Jump):
		var ev models.JumpEvent
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			b.logger.Warn("dropping malformed jump event", zap.String("channel", channel), zap.Error(err))
			return
		}
		h.HandleJump(ctx, ev)
	default:
		b.logger.Debug("ignoring channel", zap.String("channel", channel))
	}
}

// Pending replays insert keys left over from a previous run.
func (b *Bus) Pending(ctx context.Context, h Handler) (int, error) {
	replayed := 0
	iter := b.rdb.Scan(ctx, 0, channels.Insert+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		payload, err := b.rdb.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return replayed, fmt.Errorf("get %s: %w", key, err)
		}
		shot, err := DecodeShot(payload)
		if err != nil {
			b.logger.Warn("dropping malformed shot", zap.String("key", key), zap.Error(err))
			continue
		}
		h.HandleInsert(ctx, key, shot)
		replayed++
	}
	if err := iter.Err(); err != nil {
		return replayed, fmt.Errorf("scan inserts: %w", err)
	}
	return replayed, nil
}

// Ack deletes a handled insert key, retrying while redis returns an error.
// A key that is already gone counts as acked.
func (b *Bus) Ack(ctx context.Context, key string) error {
	for i := 0; ; i++ {
		n, err := b.del(ctx, key).Result()
		if err == nil {
			if n == 0 {
				b.logger.Debug("insert key already deleted", zap.String("key", key))
			}
			return nil
		}
		if i >= b.ackRetries {
			return fmt.Errorf("%w: %s: %v", ErrAckFailed, key, err)
		}
		b.logger.Debug("retrying insert key delete", zap.String("key", key), zap.Int("attempt", i+1), zap.Error(err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(b.ackDelay):
		}
	}
}

// DecodeShot parses an insert payload.
func DecodeShot(payload string) (models.Shot, error) {
	var shot models.Shot
	if err := json.Unmarshal([]byte(payload), &shot); err != nil {
		return models.Shot{}, fmt.Errorf("decode shot: %w", err)
	}
	return shot, nil
}
