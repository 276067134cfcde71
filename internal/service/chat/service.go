package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/zhouzirui/bikebot/internal/logging"
	"github.com/zhouzirui/bikebot/internal/model/catalog"
	"github.com/zhouzirui/bikebot/internal/model/chat"
	"github.com/zhouzirui/bikebot/internal/service/reply"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionClosed   = errors.New("session closed")
)

// Service keeps the live chat sessions in memory.
type Service struct {
	catalog catalog.Catalog
	source  reply.Source
	delay   Delayer
	logger  zerolog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewService wires the catalog, the reply source and the typing delay.
func NewService(cat catalog.Catalog, source reply.Source, delay Delayer) *Service {
	return &Service{
		catalog:  cat,
		source:   source,
		delay:    delay,
		logger:   logging.Component("chat"),
		sessions: make(map[string]*Session),
	}
}

// Catalog returns the catalog the service was built with.
func (s *Service) Catalog() catalog.Catalog {
	return s.catalog
}

// CreateSession starts a conversation seeded with the welcome message.
func (s *Service) CreateSession(_ context.Context) (chat.Snapshot, error) {
	session := newSession(s.catalog.Welcome, s.source, s.delay, s.logger)

	s.mu.Lock()
	s.sessions[session.ID()] = session
	s.mu.Unlock()

	s.logger.Info().Str("session", session.ID()).Msg("session created")
	return session.Snapshot(), nil
}

// GetSession retrieves a session by identifier.
func (s *Service) GetSession(_ context.Context, sessionID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// Snapshot returns the current state of a session.
func (s *Service) Snapshot(ctx context.Context, sessionID string) (chat.Snapshot, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return chat.Snapshot{}, err
	}
	return session.Snapshot(), nil
}

// Submit forwards user input to the session. The bool reports whether the
// input was accepted.
func (s *Service) Submit(ctx context.Context, sessionID, text string) (bool, chat.Snapshot, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return false, chat.Snapshot{}, err
	}

	accepted, err := session.Submit(text)
	if err != nil {
		return false, chat.Snapshot{}, err
	}
	return accepted, session.Snapshot(), nil
}

// QuickReply submits the catalog prompt bound to index.
func (s *Service) QuickReply(ctx context.Context, sessionID string, index int) (bool, chat.Snapshot, error) {
	text, err := s.catalog.QuickReply(index)
	if err != nil {
		return false, chat.Snapshot{}, err
	}
	return s.Submit(ctx, sessionID, text)
}

// SetDraft updates the session input buffer.
func (s *Service) SetDraft(ctx context.Context, sessionID, text string) (chat.Snapshot, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return chat.Snapshot{}, err
	}
	if err := session.SetDraft(text); err != nil {
		return chat.Snapshot{}, err
	}
	return session.Snapshot(), nil
}

// CloseSession discards a session and cancels its pending reply.
func (s *Service) CloseSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	session, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	session.Close()
	s.logger.Info().Str("session", sessionID).Msg("session closed")
	return nil
}

// SweepIdle closes sessions untouched for longer than maxIdle and returns
// how many were removed.
func (s *Service) SweepIdle(maxIdle time.Duration) int {
	now := time.Now()

	s.mu.Lock()
	var stale []*Session
	for id, session := range s.sessions {
		if session.idleFor(now) > maxIdle {
			stale = append(stale, session)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, session := range stale {
		session.Close()
	}
	return len(stale)
}

// Len reports the number of live sessions.
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Shutdown closes every session.
func (s *Service) Shutdown() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()

	for _, session := range sessions {
		session.Close()
	}
	s.logger.Info().Int("sessions", len(sessions)).Msg("chat service stopped")
}
