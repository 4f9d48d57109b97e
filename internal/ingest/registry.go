package ingest

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/kirbo/swishsensei/internal/models"
)

const devicePrefix = "device:"

// Registry remembers when each sensor was last heard from.
type Registry struct {
	mu    sync.Mutex
	cache *cache.Cache
	now   func() time.Time
}

// NewRegistry returns an empty registry whose entries never expire.
func NewRegistry() *Registry {
	return &Registry{
		cache: cache.New(cache.NoExpiration, 0),
		now:   time.Now,
	}
}

// Seen records a message from kind and returns the updated entry. Ping is
// the gap to the previous message in milliseconds.
func (r *Registry) Seen(kind models.DeviceKind) models.Device {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := fmt.Sprintf("%s%s", devicePrefix, kind)
	now := r.now().UnixMilli()

	device := models.Device{Kind: kind}
	if x, found := r.cache.Get(key); found {
		device = x.(models.Device)
		device.Ping = now - device.LastSeen
	}
	device.LastSeen = now
	device.Samples++

	r.cache.Set(key, device, cache.NoExpiration)
	return device
}

// Devices lists every known device sorted by kind.
func (r *Registry) Devices() []models.Device {
	items := r.cache.Items()
	out := make([]models.Device, 0, len(items))
	for _, item := range items {
		if d, ok := item.Object.(models.Device); ok {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}
