package web

import (
	"context"
	"net/http"

	socketio "github.com/googollee/go-socket.io"
	"go.uber.org/zap"

	"github.com/kirbo/swishsensei/internal/metrics"
	"github.com/kirbo/swishsensei/internal/models"
	"github.com/kirbo/swishsensei/internal/store"
)

const (
	namespace = "/"
	room      = "shots"

	// InitialEvent carries recent shots to a newly connected client.
	InitialEvent = "initial"
	// ShotEvent carries one stored shot.
	ShotEvent = "shot"
	// JumpEvent carries a live jump notification.
	JumpEvent = "jump"
)

// Broadcaster sends an event to every connected client.
type Broadcaster interface {
	Broadcast(event string, v interface{})
}

// Hub is the SocketIO endpoint of the collector.
type Hub struct {
	server  *socketio.Server
	store   store.Store
	metrics *metrics.Server
	logger  *zap.Logger
}

// NewHub creates the SocketIO server and registers its handlers.
func NewHub(st store.Store, m *metrics.Server, logger *zap.Logger) (*Hub, error) {
	server, err := socketio.NewServer(nil)
	if err != nil {
		return nil, err
	}

	h := &Hub{server: server, store: st, metrics: m, logger: logger}

	server.OnConnect(namespace, func(s socketio.Conn) error {
		s.Join(room)
		clientCount := server.Count()
		m.Clients.Set(float64(clientCount))
		logger.Info("client connected", zap.String("id", s.ID()), zap.Int("clients", clientCount))

		initial, err := h.initial(context.Background())
		if err != nil {
			logger.Error("load initial shots", zap.Error(err))
			return nil
		}
		s.Emit(InitialEvent, initial)
		return nil
	})

	server.OnError(namespace, func(s socketio.Conn, e error) {
		logger.Warn("socket error", zap.Error(e))
		if s != nil {
			s.Close()
		}
	})

	server.OnDisconnect(namespace, func(s socketio.Conn, reason string) {
		clientCount := server.Count()
		m.Clients.Set(float64(clientCount))
		logger.Info("client disconnected", zap.String("id", s.ID()), zap.String("reason", reason), zap.Int("clients", clientCount))
	})

	return h, nil
}

func (h *Hub) initial(ctx context.Context) ([]models.BroadcastMessage, error) {
	shots, err := h.store.RecentShots(ctx, store.DefaultLimit)
	if err != nil {
		return nil, err
	}
	out := make([]models.BroadcastMessage, 0, len(shots))
	for _, s := range shots {
		out = append(out, models.NewBroadcastMessage(s))
	}
	return out, nil
}

// Serve runs the SocketIO event loop. It blocks.
func (h *Hub) Serve() error {
	return h.server.Serve()
}

func (h *Hub) Close() error {
	return h.server.Close()
}

// Handler is mounted under /socket.io/.
func (h *Hub) Handler() http.Handler {
	return h.server
}

// Broadcast implements Broadcaster.
func (h *Hub) Broadcast(event string, v interface{}) {
	h.server.BroadcastToRoom(namespace, room, event, v)
	h.metrics.Broadcasts.WithLabelValues(event).Inc()
}
