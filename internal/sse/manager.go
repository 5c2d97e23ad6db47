// Package sse fans activity events out to connected browser clients
// over Server-Sent Events, one subscription set per user.
package sse

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"inbox-pilot/internal/model"
)

const clientBuffer = 16

type Manager struct {
	mu      sync.RWMutex
	clients map[string]map[chan []byte]struct{}
	closed  bool
	logger  zerolog.Logger
}

func NewManager(log zerolog.Logger) *Manager {
	return &Manager{
		clients: make(map[string]map[chan []byte]struct{}),
		logger:  log.With().Str("component", "sse").Logger(),
	}
}

// Subscribe registers a new client channel for the user. The caller must
// Unsubscribe when the connection ends.
func (m *Manager) Subscribe(userID string) chan []byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch := make(chan []byte, clientBuffer)
	if m.closed {
		close(ch)
		return ch
	}

	if m.clients[userID] == nil {
		m.clients[userID] = make(map[chan []byte]struct{})
	}
	m.clients[userID][ch] = struct{}{}

	m.logger.Debug().Str("user_id", userID).Int("connections", len(m.clients[userID])).Msg("stream client connected")
	return ch
}

func (m *Manager) Unsubscribe(userID string, ch chan []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	userClients, ok := m.clients[userID]
	if !ok {
		return
	}
	if _, ok := userClients[ch]; !ok {
		return
	}

	delete(userClients, ch)
	close(ch)
	if len(userClients) == 0 {
		delete(m.clients, userID)
	}
	m.logger.Debug().Str("user_id", userID).Msg("stream client disconnected")
}

// Publish delivers an activity event to every connected client of the
// user. A client whose buffer is full misses the event; the polling
// activity endpoint remains the source of truth.
func (m *Manager) Publish(userID string, event *model.ActivityEvent) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	userClients, ok := m.clients[userID]
	if !ok || len(userClients) == 0 {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		m.logger.Error().Err(err).Msg("event marshal failed")
		return
	}

	for ch := range userClients {
		select {
		case ch <- payload:
		default:
			m.logger.Warn().Str("user_id", userID).Msg("slow stream client, dropping event")
		}
	}
}

// ConnectionCount reports how many clients the user has open.
func (m *Manager) ConnectionCount(userID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients[userID])
}

// Close shuts every client channel. Subsequent Subscribes return a
// closed channel so handlers terminate immediately.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	for userID, userClients := range m.clients {
		for ch := range userClients {
			close(ch)
		}
		delete(m.clients, userID)
	}
}
