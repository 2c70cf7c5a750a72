package server

import (
	"errors"
	"sync"

	"github.com/framegrace/winmux/protocol"
)

var ErrQueueClosed = errors.New("server: client queue closed")

// Packet is one notification waiting to be written to a client. The wire
// sequence is assigned by the connection at send time so the stream the
// client observes stays gap-free even when the queue drops entries.
type Packet struct {
	Kind    protocol.NotificationKind
	Key     string // coalescing key, empty for non-coalescable kinds
	Payload []byte
}

// QueueStats reports per-client queue pressure.
type QueueStats struct {
	Pending int
	Dropped uint64
}

// queue buffers notifications for one client connection. Layout updates
// coalesce per workspace: a newer geometry set replaces the queued one in
// place, so a slow client sees the latest layout rather than a replay of
// every intermediate. On overflow the oldest droppable entry goes first;
// only pane-bound and focus relays are droppable. Structural packets
// (layout, session-destroyed, full-state) are never dropped because a
// client that misses one keeps rendering stale state.
type queue struct {
	mu      sync.Mutex
	packets []Packet
	max     int
	dropped uint64
	closed  bool
	wake    chan struct{}
}

func newQueue(max int) *queue {
	if max <= 0 {
		max = 128
	}
	return &queue{max: max, wake: make(chan struct{}, 1)}
}

// Push enqueues a packet, coalescing and applying the overflow policy.
func (q *queue) Push(p Packet) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}

	if p.Key != "" {
		for i := range q.packets {
			if q.packets[i].Kind == p.Kind && q.packets[i].Key == p.Key {
				q.packets[i].Payload = p.Payload
				q.signal()
				return nil
			}
		}
	}

	q.packets = append(q.packets, p)
	for len(q.packets) > q.max {
		if !q.dropOldest() {
			break // everything left is critical; tolerate the overshoot
		}
	}
	q.signal()
	return nil
}

// dropOldest removes the oldest droppable packet, reporting whether one
// was found.
func (q *queue) dropOldest() bool {
	for i, p := range q.packets {
		if !droppable(p.Kind) {
			continue
		}
		q.packets = append(q.packets[:i], q.packets[i+1:]...)
		q.dropped++
		metricNotifyDropped.Inc()
		return true
	}
	return false
}

func droppable(k protocol.NotificationKind) bool {
	return k == protocol.NotifyPaneBound || k == protocol.NotifyFocusChanged
}

// Drain removes and returns all queued packets.
func (q *queue) Drain() []Packet {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.packets
	q.packets = nil
	return out
}

// Wake returns the channel the connection writer blocks on.
func (q *queue) Wake() <-chan struct{} {
	return q.wake
}

func (q *queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *queue) Stats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return QueueStats{Pending: len(q.packets), Dropped: q.dropped}
}

func (q *queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.packets = nil
	q.signal()
}
