package shot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/kirbo/swishsensei/internal/models"
)

type recordingSink struct {
	mu    sync.Mutex
	shots []models.Shot
	err   error
}

func (r *recordingSink) PublishShot(_ context.Context, s models.Shot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.shots = append(r.shots, s)
	return nil
}

func (r *recordingSink) all() []models.Shot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Shot(nil), r.shots...)
}

func newTestAssembler(t *testing.T, sink Sink, now time.Time) *Assembler {
	t.Helper()
	a := New(50*time.Millisecond, 3*time.Second, sink, zaptest.NewLogger(t))
	a.now = func() time.Time { return now }
	return a
}

func summary(start, end int64, glove ...models.GloveSample) models.JumpSummary {
	return models.JumpSummary{StartTS: start, EndTS: end, HeightM: 0.4, Glove: glove}
}

func TestClassify(t *testing.T) {
	w := 50 * time.Millisecond
	assert.Equal(t, models.Early, Classify(1000, 1051, w))
	assert.Equal(t, models.Perfect, Classify(1000, 1050, w))
	assert.Equal(t, models.Perfect, Classify(1050, 1000, w))
	assert.Equal(t, models.Late, Classify(1051, 1000, w))
	assert.Equal(t, models.Perfect, Classify(1000, 1000, 0))
}

func TestReleaseTS(t *testing.T) {
	glove := []models.GloveSample{
		{Timestamp: 100, FSR1: 100, FSR2: 100},
		{Timestamp: 200, FSR1: 400, FSR2: 400},
		{Timestamp: 300, FSR1: 300, FSR2: 300},
		{Timestamp: 400, FSR1: 150, FSR2: 200},
		{Timestamp: 500, FSR1: 10, FSR2: 10},
	}
	assert.Equal(t, int64(400), ReleaseTS(glove, 9999))
	assert.Equal(t, int64(300), ReleaseTS(glove[:3], 9999), "no drop falls back to last sample")
	assert.Equal(t, int64(9999), ReleaseTS(nil, 9999))
	assert.Equal(t, 800, GripPeak(glove))
}

func TestBuild(t *testing.T) {
	s := Build(summary(1000, 1600,
		models.GloveSample{Timestamp: 1100, FSR1: 500, FSR2: 500},
		models.GloveSample{Timestamp: 1290, FSR1: 100, FSR2: 100},
	), 50*time.Millisecond)

	assert.Equal(t, 1300.0, s.ApexTS)
	assert.Equal(t, 1290.0, s.ReleaseTS)
	assert.Equal(t, models.Perfect, s.Classification)
	assert.Equal(t, 1000, s.GripPeak)
	assert.Equal(t, 0.4, s.JumpHeight)
	assert.False(t, s.Scored)
}

func TestAssemblerHoopScoresPendingShot(t *testing.T) {
	sink := &recordingSink{}
	a := newTestAssembler(t, sink, time.Unix(100, 0))
	ctx := context.Background()

	a.Jump(ctx, summary(0, 1000))
	_, ok := a.Pending()
	require.True(t, ok)

	assert.True(t, a.Hoop(ctx, models.HoopEvent{Timestamp: 2000, Scored: true}))
	shots := sink.all()
	require.Len(t, shots, 1)
	assert.True(t, shots[0].Scored)
	assert.Equal(t, time.Unix(100, 0).UTC(), shots[0].CreatedAt)

	_, ok = a.Pending()
	assert.False(t, ok)
	assert.False(t, a.Hoop(ctx, models.HoopEvent{Scored: true}), "no pending shot")
	assert.Len(t, sink.all(), 1)
}

func TestAssemblerExpire(t *testing.T) {
	sink := &recordingSink{}
	start := time.Unix(100, 0)
	a := newTestAssembler(t, sink, start)
	ctx := context.Background()

	a.Jump(ctx, summary(0, 1000))
	assert.False(t, a.Expire(ctx, start.Add(2999*time.Millisecond)))
	assert.Empty(t, sink.all())

	assert.True(t, a.Expire(ctx, start.Add(3*time.Second)))
	shots := sink.all()
	require.Len(t, shots, 1)
	assert.False(t, shots[0].Scored)
	assert.False(t, a.Expire(ctx, start.Add(time.Hour)))
}

func TestAssemblerNewJumpFlushesStaleShot(t *testing.T) {
	sink := &recordingSink{}
	a := newTestAssembler(t, sink, time.Unix(100, 0))
	ctx := context.Background()

	a.Jump(ctx, summary(0, 1000))
	a.Jump(ctx, summary(5000, 5600))

	shots := sink.all()
	require.Len(t, shots, 1)
	assert.Equal(t, 500.0, shots[0].ApexTS)

	pending, ok := a.Pending()
	require.True(t, ok)
	assert.Equal(t, 5300.0, pending.ApexTS)
}

func TestAssemblerSinkErrorDropsShot(t *testing.T) {
	sink := &recordingSink{err: errors.New("redis down")}
	a := newTestAssembler(t, sink, time.Unix(100, 0))
	ctx := context.Background()

	a.Jump(ctx, summary(0, 1000))
	assert.True(t, a.Hoop(ctx, models.HoopEvent{Scored: true}))
	_, ok := a.Pending()
	assert.False(t, ok)
}
