package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/bikebot/internal/model/chat"
	"github.com/zhouzirui/bikebot/internal/service/reply"
)

const subscriberBuffer = 32

// Delayer yields how long the bot "types" before a reply lands.
type Delayer interface {
	Next() time.Duration
}

// Session owns the state of one conversation: the transcript, the input
// buffer and the composing flag. At most one reply is pending at a time.
type Session struct {
	id        string
	createdAt time.Time
	source    reply.Source
	delay     Delayer
	logger    zerolog.Logger

	mu         sync.Mutex
	messages   []chat.Message
	draft      string
	composing  bool
	closed     bool
	lastActive time.Time
	pending    *pendingReply
	subs       map[int]chan chat.Event
	nextSub    int
}

// pendingReply is the handle of a scheduled bot reply.
type pendingReply struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func newSession(welcome string, source reply.Source, delay Delayer, logger zerolog.Logger) *Session {
	now := time.Now()
	id := uuid.NewString()
	s := &Session{
		id:         id,
		createdAt:  now.UTC(),
		source:     source,
		delay:      delay,
		logger:     logger.With().Str("session", id).Logger(),
		messages:   make([]chat.Message, 0, 16),
		lastActive: now,
		subs:       make(map[int]chan chat.Event),
	}
	if welcome != "" {
		s.messages = append(s.messages, newMessage(welcome, true))
	}
	return s
}

func newMessage(text string, isBot bool) chat.Message {
	return chat.Message{
		ID:        uuid.NewString(),
		Text:      text,
		IsBot:     isBot,
		Timestamp: time.Now(),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Submit appends a user message and schedules the bot reply. Blank input and
// input arriving while a reply is pending are ignored and report false.
func (s *Session) Submit(text string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, ErrSessionClosed
	}
	if strings.TrimSpace(text) == "" || s.composing {
		return false, nil
	}

	msg := newMessage(text, false)
	s.messages = append(s.messages, msg)
	s.draft = ""
	s.composing = true
	s.lastActive = time.Now()

	ctx, cancel := context.WithCancel(context.Background())
	p := &pendingReply{cancel: cancel, done: make(chan struct{})}
	s.pending = p

	s.publishLocked(chat.Event{Type: chat.EventMessage, Message: &msg})
	s.publishLocked(chat.Event{Type: chat.EventComposing, Composing: true})

	go s.deliver(ctx, p, text, s.delay.Next())
	return true, nil
}

func (s *Session) deliver(ctx context.Context, p *pendingReply, prompt string, wait time.Duration) {
	defer close(p.done)

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	text, err := s.source.Reply(ctx, prompt)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending != p || ctx.Err() != nil {
		return
	}
	s.pending = nil
	s.composing = false
	s.lastActive = time.Now()
	p.cancel()

	if err != nil {
		s.logger.Error().Err(err).Msg("reply source failed")
		s.publishLocked(chat.Event{Type: chat.EventComposing, Composing: false})
		return
	}

	msg := newMessage(text, true)
	s.messages = append(s.messages, msg)
	s.publishLocked(chat.Event{Type: chat.EventMessage, Message: &msg})
	s.publishLocked(chat.Event{Type: chat.EventComposing, Composing: false})
	s.logger.Debug().Dur("delay", wait).Msg("bot reply delivered")
}

// SetDraft updates the input buffer. The input is disabled while composing,
// so changes made then are dropped.
func (s *Session) SetDraft(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	if s.composing {
		return nil
	}
	s.draft = text
	s.lastActive = time.Now()
	return nil
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() chat.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return chat.Snapshot{
		ID:            s.id,
		Messages:      append([]chat.Message(nil), s.messages...),
		Draft:         s.draft,
		Composing:     s.composing,
		CanSubmit:     !s.composing && strings.TrimSpace(s.draft) != "",
		InputDisabled: s.composing,
		CreatedAt:     s.createdAt,
	}
}

// Subscribe registers for state change events. The channel is closed when
// the session closes or the returned func is called.
func (s *Session) Subscribe() (<-chan chat.Event, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan chat.Event, subscriberBuffer)
	if s.closed {
		close(ch)
		return ch, func() {}
	}

	key := s.nextSub
	s.nextSub++
	s.subs[key] = ch

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[key]; ok {
			delete(s.subs, key)
			close(c)
		}
	}
}

// Close cancels a pending reply and waits for it to stop. It is safe to call
// more than once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	p := s.pending
	s.pending = nil
	s.composing = false

	s.publishLocked(chat.Event{Type: chat.EventClosed})
	for key, ch := range s.subs {
		delete(s.subs, key)
		close(ch)
	}
	s.mu.Unlock()

	if p != nil {
		p.cancel()
		<-p.done
		s.logger.Debug().Msg("pending reply canceled")
	}
}

// idleFor reports how long the session has been untouched. Sessions with a
// pending reply or live subscribers are never idle.
func (s *Session) idleFor(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.composing || len(s.subs) > 0 {
		return 0
	}
	return now.Sub(s.lastActive)
}

func (s *Session) publishLocked(ev chat.Event) {
	ev.SessionID = s.id
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
			s.logger.Warn().Str("event", string(ev.Type)).Msg("subscriber buffer full, dropping event")
		}
	}
}
