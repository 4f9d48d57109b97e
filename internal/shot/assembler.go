// Package shot turns completed jumps into graded shots and pairs them with
// the hoop sensor's verdict.
package shot

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kirbo/swishsensei/internal/models"
)

// Sink receives finalized shots.
type Sink interface {
	PublishShot(ctx context.Context, s models.Shot) error
}

// Assembler holds at most one shot waiting for a hoop event.
type Assembler struct {
	mu            sync.Mutex
	perfectWindow time.Duration
	hoopWindow    time.Duration
	sink          Sink
	logger        *zap.Logger
	now           func() time.Time

	pending  *models.Shot
	deadline time.Time
}

// New returns an Assembler. perfectWindow is the allowed distance between
// release and apex for a Perfect grade; hoopWindow is how long a shot waits
// for the hoop sensor.
func New(perfectWindow, hoopWindow time.Duration, sink Sink, logger *zap.Logger) *Assembler {
	return &Assembler{
		perfectWindow: perfectWindow,
		hoopWindow:    hoopWindow,
		sink:          sink,
		logger:        logger,
		now:           time.Now,
	}
}

// Jump grades a completed jump and parks it until a hoop event or expiry.
// An older pending shot is finalized unscored first.
func (a *Assembler) Jump(ctx context.Context, summary models.JumpSummary) models.Shot {
	a.mu.Lock()
	now := a.now()
	stale := a.take()
	s := Build(summary, a.perfectWindow)
	s.CreatedAt = now.UTC()
	a.pending = &s
	a.deadline = now.Add(a.hoopWindow)
	a.mu.Unlock()

	if stale != nil {
		a.finalize(ctx, *stale)
	}
	return s
}

// Hoop applies a hoop verdict to the pending shot. It reports false when
// nothing was waiting.
func (a *Assembler) Hoop(ctx context.Context, ev models.HoopEvent) bool {
	a.mu.Lock()
	s := a.take()
	a.mu.Unlock()

	if s == nil {
		return false
	}
	s.Scored = ev.Scored
	a.finalize(ctx, *s)
	return true
}

// Expire finalizes the pending shot unscored once its hoop window elapsed.
func (a *Assembler) Expire(ctx context.Context, now time.Time) bool {
	a.mu.Lock()
	var s *models.Shot
	if a.pending != nil && !now.Before(a.deadline) {
		s = a.take()
	}
	a.mu.Unlock()

	if s == nil {
		return false
	}
	a.finalize(ctx, *s)
	return true
}

// Pending returns the shot waiting for a hoop event, if any.
func (a *Assembler) Pending() (models.Shot, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.pending == nil {
		return models.Shot{}, false
	}
	return *a.pending, true
}

// take must be called with mu held.
func (a *Assembler) take() *models.Shot {
	s := a.pending
	a.pending = nil
	a.deadline = time.Time{}
	return s
}

func (a *Assembler) finalize(ctx context.Context, s models.Shot) {
	if err := a.sink.PublishShot(ctx, s); err != nil {
		a.logger.Error("publish shot failed", zap.Error(err), zap.Float64("release", s.ReleaseTS))
		return
	}
	a.logger.Info("shot finalized",
		zap.Stringer("classification", s.Classification),
		zap.Bool("scored", s.Scored),
		zap.Float64("jump_height", s.JumpHeight),
	)
}
