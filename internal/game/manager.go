package game

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const codeLength = 6

// Store persists session documents and their chat logs. Implementations must
// return ErrSessionNotFound from Load for unknown codes.
type Store interface {
	Exists(ctx context.Context, code string) (bool, error)
	Load(ctx context.Context, code string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	AppendMessage(ctx context.Context, code string, m Message) error
	Messages(ctx context.Context, code string, limit int) ([]Message, error)
}

// Manager runs every game operation as one load-mutate-save cycle against the
// store, serialized per session code.
type Manager struct {
	store     Store
	now       func() time.Time
	newCode   func() string
	chatLimit int

	createMu sync.Mutex
	mu       sync.Mutex
	locks    map[string]*sync.Mutex
}

func NewManager(store Store) *Manager {
	return &Manager{
		store:     store,
		now:       time.Now,
		newCode:   func() string { return randomCode(codeLength) },
		chatLimit: DefaultChatLimit,
		locks:     make(map[string]*sync.Mutex),
	}
}

func (m *Manager) SetChatLimit(n int) {
	if n > 0 {
		m.chatLimit = n
	}
}

func (m *Manager) lock(code string) func() {
	m.mu.Lock()
	l := m.locks[code]
	if l == nil {
		l = &sync.Mutex{}
		m.locks[code] = l
	}
	m.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// NormalizeCode trims and upper-cases a code typed by a player.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// update loads code, applies fn and saves when fn reports a change.
func (m *Manager) update(ctx context.Context, code string, fn func(*Session) (bool, error)) (*Session, error) {
	code = NormalizeCode(code)
	unlock := m.lock(code)
	defer unlock()

	s, err := m.store.Load(ctx, code)
	if err != nil {
		return nil, err
	}
	changed, err := fn(s)
	if err != nil {
		return nil, err
	}
	if changed {
		if err := m.store.Save(ctx, s); err != nil {
			return nil, fmt.Errorf("save session %s: %w", code, err)
		}
	}
	return s, nil
}

// allocate picks a code nobody uses yet and stores the session built for it.
func (m *Manager) allocate(ctx context.Context, build func(code string) (*Session, error)) (*Session, error) {
	m.createMu.Lock()
	defer m.createMu.Unlock()

	code := m.newCode()
	for {
		exists, err := m.store.Exists(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("check session code: %w", err)
		}
		if !exists {
			break
		}
		code = m.newCode()
	}
	s, err := build(code)
	if err != nil {
		return nil, err
	}
	if err := m.store.Save(ctx, s); err != nil {
		return nil, fmt.Errorf("save session %s: %w", code, err)
	}
	return s, nil
}

func (m *Manager) CreateSession(ctx context.Context, p CreateParams) (*Session, error) {
	s, err := m.allocate(ctx, func(code string) (*Session, error) {
		return NewSession(code, p)
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("code", s.ID).Str("organizer", s.Organizer).Bool("imported", p.Import != nil).Msg("session created")
	return s, nil
}

func (m *Manager) JoinSession(ctx context.Context, code, name, avatarSeed string) (*Session, error) {
	name = strings.TrimSpace(name)
	if name == "" || NormalizeCode(code) == "" {
		return nil, ErrNameRequired
	}
	return m.update(ctx, code, func(s *Session) (bool, error) {
		s.AddParticipant(name, avatarSeed)
		return true, nil
	})
}

func (m *Manager) StartGame(ctx context.Context, code, requester string) (*Session, error) {
	return m.update(ctx, code, func(s *Session) (bool, error) {
		return true, s.Start(requester, m.now())
	})
}

func (m *Manager) RevealVotes(ctx context.Context, code, requester string) (*Session, error) {
	return m.update(ctx, code, func(s *Session) (bool, error) {
		return true, s.RevealVotes(requester)
	})
}

func (m *Manager) SubmitVote(ctx context.Context, code, voter, avatarSeed, value string) (*Session, error) {
	if voter == "" {
		return nil, ErrUnauthenticated
	}
	return m.update(ctx, code, func(s *Session) (bool, error) {
		s.SubmitVote(voter, avatarSeed, value)
		return true, nil
	})
}

// GetGameView returns the projection for viewer, persisting the coffee-break
// pause when the view triggers it.
func (m *Manager) GetGameView(ctx context.Context, code, viewer string) (GameView, error) {
	var view GameView
	_, err := m.update(ctx, code, func(s *Session) (bool, error) {
		var paused bool
		view, paused = s.ComputeGameView(viewer, m.now())
		if paused {
			log.Info().Str("code", s.ID).Int64("remaining", *s.PauseRemaining).Msg("coffee break: game paused")
		}
		return paused, nil
	})
	return view, err
}

// ResumeFromPause reports false when the game was not paused.
func (m *Manager) ResumeFromPause(ctx context.Context, code string) (bool, error) {
	var resumed bool
	_, err := m.update(ctx, code, func(s *Session) (bool, error) {
		resumed = s.Resume(m.now())
		return resumed, nil
	})
	return resumed, err
}

func (m *Manager) AdvanceStory(ctx context.Context, code string, result any) (*Session, error) {
	s, err := m.update(ctx, code, func(s *Session) (bool, error) {
		return true, s.NextStory(result, m.now())
	})
	if err != nil {
		return nil, err
	}
	if s.Status == StatusFinished {
		log.Info().Str("code", s.ID).Int("stories", len(s.History)).Msg("game finished")
	}
	return s, nil
}

func (m *Manager) RequestRevote(ctx context.Context, code string) (*Session, error) {
	return m.update(ctx, code, func(s *Session) (bool, error) {
		return true, s.Revote()
	})
}

// Participants lists the raw participant table with the session status.
func (m *Manager) Participants(ctx context.Context, code string) ([]Participant, Status, error) {
	s, err := m.store.Load(ctx, NormalizeCode(code))
	if err != nil {
		return nil, "", err
	}
	return s.ListParticipants(), s.Status, nil
}

func (m *Manager) PostChatMessage(ctx context.Context, code, sender, text string) (Message, error) {
	code = NormalizeCode(code)
	exists, err := m.store.Exists(ctx, code)
	if err != nil {
		return Message{}, err
	}
	if !exists {
		return Message{}, ErrSessionNotFound
	}
	msg, err := NewMessage(sender, text, m.now())
	if err != nil {
		return Message{}, err
	}
	if err := m.store.AppendMessage(ctx, code, msg); err != nil {
		return Message{}, fmt.Errorf("append chat message: %w", err)
	}
	return msg, nil
}

// ListChatMessages returns up to limit messages, oldest first. A non-positive
// limit uses the configured default.
func (m *Manager) ListChatMessages(ctx context.Context, code string, limit int) ([]Message, error) {
	code = NormalizeCode(code)
	exists, err := m.store.Exists(ctx, code)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrSessionNotFound
	}
	if limit <= 0 || limit > m.chatLimit {
		limit = m.chatLimit
	}
	return m.store.Messages(ctx, code, limit)
}

func (m *Manager) ExportFullState(ctx context.Context, code string) (Snapshot, error) {
	s, err := m.store.Load(ctx, NormalizeCode(code))
	if err != nil {
		return Snapshot{}, err
	}
	return s.ExportFullState(), nil
}

func (m *Manager) ExportResultsOnly(ctx context.Context, code string) (Results, error) {
	s, err := m.store.Load(ctx, NormalizeCode(code))
	if err != nil {
		return Results{}, err
	}
	return s.ExportResultsOnly(), nil
}

// ImportAndResume stores a new session derived from sn under a fresh code.
func (m *Manager) ImportAndResume(ctx context.Context, sn *Snapshot) (*Session, error) {
	if sn == nil {
		return nil, ErrInvalidImport
	}
	s, err := m.allocate(ctx, func(code string) (*Session, error) {
		return ResumeSession(code, sn), nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("code", s.ID).Str("status", string(s.Status)).Int("index", s.CurrentStoryIndex).Msg("session imported")
	return s, nil
}

func randomCode(n int) string {
	letters := []rune("ABCDEFGHJKLMNPQRSTUVWXYZ23456789")
	b := make([]rune, n)
	for i := range b {
		b[i] = letters[rand.Intn(len(letters))]
	}
	return string(b)
}
