// Package chat maintains ordered, append-only per-session message logs and
// dispatches user turns to an opaque Responder. At most one response is
// outstanding per session; a newer user message or an explicit cancel
// discards the in-flight response without appending it.
package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arca-compliance/backend/internal/domain"
	"github.com/arca-compliance/backend/internal/metrics"
	"github.com/arca-compliance/backend/pkg/logger"
)

// Responder is the opaque collaborator that produces assistant replies.
// The manager only requires that it respects context cancellation.
type Responder interface {
	Respond(ctx context.Context, history []domain.ChatMessage) (string, error)
}

type pending struct {
	gen    uint64
	cancel context.CancelFunc
}

type session struct {
	id        string
	messages  []domain.ChatMessage
	pending   *pending
	nextGen   uint64
	watchers  map[uint64]chan domain.ChatMessage
	nextWatch uint64
}

type Manager struct {
	responder Responder
	timeout   time.Duration

	mu       sync.Mutex
	sessions map[string]*session
}

func NewManager(responder Responder, responderTimeout time.Duration) *Manager {
	if responderTimeout <= 0 {
		responderTimeout = 60 * time.Second
	}
	return &Manager{
		responder: responder,
		timeout:   responderTimeout,
		sessions:  make(map[string]*session),
	}
}

func (m *Manager) CreateSession() string {
	id := uuid.New().String()
	m.mu.Lock()
	m.sessions[id] = &session{
		id:       id,
		watchers: make(map[uint64]chan domain.ChatMessage),
	}
	m.mu.Unlock()

	logger.Debug("Chat session created", zap.String("session_id", id))
	return id
}

// AppendUserMessage appends a user turn. A response already in flight is
// implicitly canceled: last request wins.
func (m *Manager) AppendUserMessage(sessionID, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: message text is empty", domain.ErrValidation)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return "", fmt.Errorf("%w: session %s", domain.ErrNotFound, sessionID)
	}

	if s.pending != nil {
		s.pending.cancel()
		s.pending = nil
		metrics.ChatResponsesCanceled.Inc()
	}

	msg := domain.ChatMessage{
		ID:        uuid.New().String(),
		Sender:    domain.SenderUser,
		Text:      text,
		Timestamp: time.Now(),
	}
	m.appendLocked(s, msg)

	return msg.ID, nil
}

// AwaitResponse dispatches the session history to the Responder and blocks
// until the assistant message is appended, the response is canceled, or ctx
// is done. A canceled response is discarded, never partially appended.
func (m *Manager) AwaitResponse(ctx context.Context, sessionID string) (domain.ChatMessage, error) {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if !ok {
		m.mu.Unlock()
		return domain.ChatMessage{}, fmt.Errorf("%w: session %s", domain.ErrNotFound, sessionID)
	}

	if s.pending != nil {
		// Replace the outstanding dispatch: last request wins.
		s.pending.cancel()
		s.pending = nil
		metrics.ChatResponsesCanceled.Inc()
	}

	respCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	s.nextGen++
	p := &pending{gen: s.nextGen, cancel: cancel}
	s.pending = p
	history := append([]domain.ChatMessage(nil), s.messages...)
	m.mu.Unlock()

	text, err := m.responder.Respond(respCtx, history)

	m.mu.Lock()
	defer m.mu.Unlock()

	// Only the generation that is still current may append. A canceled or
	// superseded response is discarded wholesale.
	if s.pending == nil || s.pending.gen != p.gen {
		return domain.ChatMessage{}, fmt.Errorf("%w: response was canceled", domain.ErrInvalidState)
	}
	s.pending = nil

	if err != nil {
		if respCtx.Err() != nil {
			return domain.ChatMessage{}, fmt.Errorf("%w: response was canceled", domain.ErrInvalidState)
		}
		return domain.ChatMessage{}, fmt.Errorf("responder: %w", err)
	}

	msg := domain.ChatMessage{
		ID:        uuid.New().String(),
		Sender:    domain.SenderAssistant,
		Text:      text,
		Timestamp: time.Now(),
	}
	m.appendLocked(s, msg)

	return msg, nil
}

// CancelResponse discards the in-flight response, if any.
func (m *Manager) CancelResponse(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return fmt.Errorf("%w: session %s", domain.ErrNotFound, sessionID)
	}
	if s.pending == nil {
		return fmt.Errorf("%w: no response in flight", domain.ErrInvalidState)
	}

	s.pending.cancel()
	s.pending = nil
	metrics.ChatResponsesCanceled.Inc()

	logger.Debug("Chat response canceled", zap.String("session_id", sessionID))
	return nil
}

// Messages returns the messages appended after the given cursor (0 returns
// the whole log) along with the new cursor.
func (m *Manager) Messages(sessionID string, afterCursor int) ([]domain.ChatMessage, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, 0, fmt.Errorf("%w: session %s", domain.ErrNotFound, sessionID)
	}
	if afterCursor < 0 || afterCursor > len(s.messages) {
		return nil, 0, fmt.Errorf("%w: cursor %d out of range", domain.ErrValidation, afterCursor)
	}

	out := append([]domain.ChatMessage(nil), s.messages[afterCursor:]...)
	return out, len(s.messages), nil
}

// Watch streams messages appended after subscription. The returned stop
// function must be called to release the watcher. A watcher that falls
// more than a buffer's worth behind gets its channel closed; clients
// recover by re-reading Messages.
func (m *Manager) Watch(sessionID string) (<-chan domain.ChatMessage, func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, nil, fmt.Errorf("%w: session %s", domain.ErrNotFound, sessionID)
	}

	ch := make(chan domain.ChatMessage, 16)
	id := s.nextWatch
	s.nextWatch++
	s.watchers[id] = ch

	stop := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if _, ok := s.watchers[id]; ok {
			delete(s.watchers, id)
			close(ch)
		}
	}
	return ch, stop, nil
}

// appendLocked adds a message to the ordered log and fans it out to
// watchers. Callers hold m.mu.
func (m *Manager) appendLocked(s *session, msg domain.ChatMessage) {
	s.messages = append(s.messages, msg)
	metrics.ChatMessages.WithLabelValues(string(msg.Sender)).Inc()

	for id, ch := range s.watchers {
		select {
		case ch <- msg:
		default:
			// Watcher fell behind; close its channel so the client
			// resyncs from the log instead of silently missing messages.
			delete(s.watchers, id)
			close(ch)
			logger.Debug("Chat watcher closed on overflow", zap.String("session_id", s.id))
		}
	}
}
