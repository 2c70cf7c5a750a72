package server

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/framegrace/winmux/layout"
	"github.com/framegrace/winmux/mux"
	"github.com/framegrace/winmux/protocol"
	"github.com/framegrace/winmux/wm"
)

// Hub fans engine notifications out to per-client queues. It implements
// mux.Notifier, so every method runs on the engine loop and must only
// enqueue, never block on a socket.
type Hub struct {
	mu        sync.Mutex
	clients   map[uuid.UUID]*queue
	queueSize int
	logger    *zap.Logger
}

func NewHub(queueSize int, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:   make(map[uuid.UUID]*queue),
		queueSize: queueSize,
		logger:    logger,
	}
}

// Register creates the queue for a newly connected client.
func (h *Hub) Register(client uuid.UUID) *queue {
	h.mu.Lock()
	defer h.mu.Unlock()
	q := newQueue(h.queueSize)
	h.clients[client] = q
	metricClients.Inc()
	return q
}

func (h *Hub) Unregister(client uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if q, ok := h.clients[client]; ok {
		q.Close()
		delete(h.clients, client)
		metricClients.Dec()
	}
}

func (h *Hub) broadcast(p Packet) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, q := range h.clients {
		if err := q.Push(p); err != nil {
			h.logger.Debug("notify push failed",
				zap.String("client", id.String()), zap.Error(err))
		}
	}
}

func (h *Hub) LayoutChanged(session, workspace string, geoms map[uuid.UUID]layout.Rect) {
	wire := make(map[string]layout.Rect, len(geoms))
	for id, r := range geoms {
		wire[id.String()] = r
	}
	payload, err := protocol.EncodeNotification(protocol.Notification{
		Kind:       protocol.NotifyLayoutChanged,
		Session:    session,
		Workspace:  workspace,
		Geometries: wire,
	})
	if err != nil {
		h.logger.Error("encode layout notification", zap.Error(err))
		return
	}
	h.broadcast(Packet{
		Kind:    protocol.NotifyLayoutChanged,
		Key:     session + "/" + workspace,
		Payload: payload,
	})
}

func (h *Hub) SessionDestroyed(name string) {
	payload, err := protocol.EncodeNotification(protocol.Notification{
		Kind:    protocol.NotifySessionDestroyed,
		Session: name,
	})
	if err != nil {
		h.logger.Error("encode destroy notification", zap.Error(err))
		return
	}
	h.broadcast(Packet{Kind: protocol.NotifySessionDestroyed, Payload: payload})
}

func (h *Hub) PaneBound(session string, pane uuid.UUID, handle wm.Handle, attrs wm.Attrs) {
	payload, err := protocol.EncodeNotification(protocol.Notification{
		Kind:    protocol.NotifyPaneBound,
		Session: session,
		Pane:    pane,
		Handle:  string(handle),
		Class:   attrs.Class,
		Title:   attrs.Title,
	})
	if err != nil {
		h.logger.Error("encode bind notification", zap.Error(err))
		return
	}
	h.broadcast(Packet{Kind: protocol.NotifyPaneBound, Payload: payload})
}

// FocusChanged coalesces per workspace: only the latest focus target
// matters to a catching-up client.
func (h *Hub) FocusChanged(session, workspace string, pane uuid.UUID) {
	payload, err := protocol.EncodeNotification(protocol.Notification{
		Kind:      protocol.NotifyFocusChanged,
		Session:   session,
		Workspace: workspace,
		Pane:      pane,
	})
	if err != nil {
		h.logger.Error("encode focus notification", zap.Error(err))
		return
	}
	h.broadcast(Packet{
		Kind:    protocol.NotifyFocusChanged,
		Key:     session + "/" + workspace,
		Payload: payload,
	})
}

// FullState goes to exactly one client, right after its attach.
func (h *Hub) FullState(client uuid.UUID, snap mux.Snapshot) {
	payload, err := protocol.EncodeNotification(protocol.Notification{
		Kind:     protocol.NotifyFullState,
		Sessions: stateFromSnapshot(snap),
	})
	if err != nil {
		h.logger.Error("encode full-state notification", zap.Error(err))
		return
	}
	h.mu.Lock()
	q, ok := h.clients[client]
	h.mu.Unlock()
	if !ok {
		return
	}
	if err := q.Push(Packet{Kind: protocol.NotifyFullState, Payload: payload}); err != nil {
		h.logger.Debug("full-state push failed", zap.Error(err))
	}
}
