// Package store holds the game.Store implementations.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/kiliankoe/pokerplanning/internal/game"
)

// Memory keeps documents in process. Sessions are copied on the way in and out
// so callers never share state with the store.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string][]byte
	chat     map[string][]game.Message
}

func NewMemory() *Memory {
	return &Memory{
		sessions: make(map[string][]byte),
		chat:     make(map[string][]game.Message),
	}
}

func (m *Memory) Exists(_ context.Context, code string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.sessions[code]
	return ok, nil
}

func (m *Memory) Load(_ context.Context, code string) (*game.Session, error) {
	m.mu.RLock()
	doc, ok := m.sessions[code]
	m.mu.RUnlock()
	if !ok {
		return nil, game.ErrSessionNotFound
	}
	return decodeSession(doc)
}

func (m *Memory) Save(_ context.Context, s *game.Session) error {
	doc, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = doc
	return nil
}

func (m *Memory) AppendMessage(_ context.Context, code string, msg game.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chat[code] = append(m.chat[code], msg)
	return nil
}

func (m *Memory) Messages(_ context.Context, code string, limit int) ([]game.Message, error) {
	m.mu.RLock()
	out := make([]game.Message, len(m.chat[code]))
	copy(out, m.chat[code])
	m.mu.RUnlock()
	return game.SortMessages(out, limit), nil
}

// decodeSession reads a stored document, filling defaults for missing fields.
func decodeSession(doc []byte) (*game.Session, error) {
	var s game.Session
	if err := json.Unmarshal(doc, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	s.Normalize()
	return &s, nil
}
