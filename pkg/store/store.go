// Package store provides in-memory storage for keypad sessions and batch
// evaluations.
package store

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lemonberrylabs/five-function-calculator/pkg/keypad"
	"github.com/lemonberrylabs/five-function-calculator/pkg/trace"
)

// ErrNotFound is returned for unknown session IDs.
var ErrNotFound = errors.New("not found")

// Session is a snapshot of a stored keypad session.
type Session struct {
	ID         string       `json:"id"`
	State      keypad.State `json:"state"`
	Presses    int          `json:"presses"`
	CreateTime time.Time    `json:"createTime"`
	UpdateTime time.Time    `json:"updateTime"`
}

type session struct {
	id         string
	display    *keypad.Display
	presses    int
	createTime time.Time
	updateTime time.Time
}

func (s *session) snapshot() *Session {
	return &Session{
		ID:         s.id,
		State:      s.display.State(),
		Presses:    s.presses,
		CreateTime: s.createTime,
		UpdateTime: s.updateTime,
	}
}

// Store is a thread-safe in-memory storage for keypad sessions and batch
// evaluations.
type Store struct {
	mu       sync.RWMutex
	sink     trace.Sink
	sessions map[string]*session
	batches  map[string]*Batch
}

// New creates a new empty store. Every session reports to sink.
func New(sink trace.Sink) *Store {
	return &Store{
		sink:     sink,
		sessions: make(map[string]*session),
		batches:  make(map[string]*Batch),
	}
}

// CreateSession starts a session with an empty display.
func (s *Store) CreateSession() *Session {
	return s.createSession(uuid.NewString())
}

// EnsureSession returns the session with the given ID, creating it if it does
// not exist yet.
func (s *Store) EnsureSession(id string) *Session {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	if ok {
		snap := sess.snapshot()
		s.mu.RUnlock()
		return snap
	}
	s.mu.RUnlock()
	return s.createSession(id)
}

func (s *Store) createSession(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[id]; ok {
		return sess.snapshot()
	}
	now := time.Now()
	sess := &session{
		id:         id,
		display:    keypad.New(s.sink),
		createTime: now,
		updateTime: now,
	}
	s.sessions[id] = sess
	return sess.snapshot()
}

// GetSession retrieves a session by ID.
func (s *Store) GetSession(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session '%s': %w", id, ErrNotFound)
	}
	return sess.snapshot(), nil
}

// ListSessions returns all sessions, oldest first.
func (s *Store) ListSessions() []*Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		result = append(result, sess.snapshot())
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreateTime.Equal(result[j].CreateTime) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreateTime.Before(result[j].CreateTime)
	})
	return result
}

// PressKeys types keys into a session's display. See keypad.Keystroke for the
// accepted runes.
func (s *Store) PressKeys(id, keys string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session '%s': %w", id, ErrNotFound)
	}
	sess.display.Type(keys)
	sess.presses += len([]rune(keys))
	sess.updateTime = time.Now()
	return sess.snapshot(), nil
}

// PressButton clicks a single keypad button in a session.
func (s *Store) PressButton(id string, k keypad.Key) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session '%s': %w", id, ErrNotFound)
	}
	sess.display.Press(k)
	sess.presses++
	sess.updateTime = time.Now()
	return sess.snapshot(), nil
}

// DeleteSession removes a session.
func (s *Store) DeleteSession(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return fmt.Errorf("session '%s': %w", id, ErrNotFound)
	}
	delete(s.sessions, id)
	return nil
}
