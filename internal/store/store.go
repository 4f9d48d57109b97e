package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kirbo/swishsensei/internal/models"
)

const (
	// DefaultLimit is how many shots a listing returns when unspecified.
	DefaultLimit = 20
	// MaxLimit caps a single listing.
	MaxLimit = 200
)

// Store persists shots.
type Store interface {
	Init(ctx context.Context) error
	InsertShot(ctx context.Context, shot *models.Shot) (int64, error)
	RecentShots(ctx context.Context, limit int) ([]models.Shot, error)
	Close() error
}

// ClampLimit maps a requested listing size into 1..MaxLimit.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	}
	return limit
}

// MemoryStore keeps shots in-memory and guards access with a RWMutex.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	shots  map[int64]models.Shot
}

// NewMemoryStore returns an empty store. Ids start at 1.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID: 1,
		shots:  map[int64]models.Shot{},
	}
}

func (s *MemoryStore) Init(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

// InsertShot assigns the next id and sets CreatedAt if it is zero.
func (s *MemoryStore) InsertShot(_ context.Context, shot *models.Shot) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	shot.ID = s.nextID
	s.nextID++
	if shot.CreatedAt.IsZero() {
		shot.CreatedAt = time.Now().UTC()
	}
	s.shots[shot.ID] = *shot
	return shot.ID, nil
}

// RecentShots returns up to limit shots, newest id first.
func (s *MemoryStore) RecentShots(_ context.Context, limit int) ([]models.Shot, error) {
	limit = ClampLimit(limit)

	s.mu.RLock()
	out := make([]models.Shot, 0, len(s.shots))
	for _, shot := range s.shots {
		out = append(out, shot)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
