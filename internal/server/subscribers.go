package server

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/smukkama/envdash-server/internal/metrics"
)

const sendQueueSize = 32

// Subscriber holds one connected dashboard client
type Subscriber struct {
	ID          string
	ConnectedAt time.Time
	conn        *websocket.Conn
	send        chan []byte
	mu          sync.Mutex
	closed      bool
}

// enqueue queues a message for the subscriber without blocking. Returns
// false if the subscriber is closed or its queue is full.
func (s *Subscriber) enqueue(data []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	select {
	case s.send <- data:
		return true
	default:
		return false
	}
}

// close marks the subscriber closed and shuts its send queue
func (s *Subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	close(s.send)
}

// Registry manages all connected dashboard subscribers
type Registry struct {
	subscribers map[string]*Subscriber
	mu          sync.RWMutex
	maxSubs     int
}

// NewRegistry creates a new subscriber registry
func NewRegistry(maxSubscribers int) *Registry {
	return &Registry{
		subscribers: make(map[string]*Subscriber),
		maxSubs:     maxSubscribers,
	}
}

// Register adds a new subscriber
func (r *Registry) Register(subscriberID string, conn *websocket.Conn) (*Subscriber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check max subscribers
	if len(r.subscribers) >= r.maxSubs {
		return nil, ErrMaxSubscribersReached
	}

	// Check if subscriber ID already exists
	if _, exists := r.subscribers[subscriberID]; exists {
		return nil, fmt.Errorf("subscriber ID %s already registered", subscriberID)
	}

	sub := &Subscriber{
		ID:          subscriberID,
		ConnectedAt: time.Now(),
		conn:        conn,
		send:        make(chan []byte, sendQueueSize),
	}

	r.subscribers[subscriberID] = sub
	metrics.SubscribersConnected.Set(float64(len(r.subscribers)))

	return sub, nil
}

// Unregister removes a subscriber and closes its send queue
func (r *Registry) Unregister(subscriberID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, exists := r.subscribers[subscriberID]
	if !exists {
		return fmt.Errorf("subscriber ID %s not found", subscriberID)
	}

	sub.close()
	delete(r.subscribers, subscriberID)
	metrics.SubscribersConnected.Set(float64(len(r.subscribers)))

	return nil
}

// Get retrieves a subscriber by ID
func (r *Registry) Get(subscriberID string) (*Subscriber, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sub, exists := r.subscribers[subscriberID]
	return sub, exists
}

// Count returns the number of connected subscribers
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subscribers)
}

// Broadcast queues a message for every subscriber. Returns the number
// of subscribers the message was queued for; slow subscribers that
// cannot keep up are skipped rather than blocking the caller.
func (r *Registry) Broadcast(data []byte) int {
	r.mu.RLock()
	subs := make([]*Subscriber, 0, len(r.subscribers))
	for _, sub := range r.subscribers {
		subs = append(subs, sub)
	}
	r.mu.RUnlock()

	delivered := 0
	for _, sub := range subs {
		if sub.enqueue(data) {
			delivered++
		}
	}
	return delivered
}

// CloseAll closes every subscriber's send queue, prompting their write
// loops to send a close frame and exit
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, sub := range r.subscribers {
		sub.close()
		delete(r.subscribers, id)
	}
	metrics.SubscribersConnected.Set(0)
}

// Stats returns statistics about the registry
func (r *Registry) Stats() RegistryStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return RegistryStats{
		ActiveSubscribers: len(r.subscribers),
		MaxSubscribers:    r.maxSubs,
	}
}

// RegistryStats contains statistics about the subscriber registry
type RegistryStats struct {
	ActiveSubscribers int
	MaxSubscribers    int
}

var (
	ErrMaxSubscribersReached = &SubscriberError{"maximum subscribers reached"}
)

// SubscriberError represents a subscriber error
type SubscriberError struct {
	msg string
}

func (e *SubscriberError) Error() string {
	return e.msg
}
