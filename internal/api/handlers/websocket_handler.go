package handlers

import (
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/arca-compliance/backend/internal/chat"
	"github.com/arca-compliance/backend/internal/domain"
	"github.com/arca-compliance/backend/pkg/logger"
)

type WebSocketHandler struct {
	manager *chat.Manager
}

func NewWebSocketHandler(manager *chat.Manager) *WebSocketHandler {
	return &WebSocketHandler{manager: manager}
}

// HandleSession streams session messages to the client in append order,
// starting with the existing log.
func (h *WebSocketHandler) HandleSession(c *websocket.Conn) {
	sessionID := c.Params("sessionId")

	defer func() {
		c.Close()
		logger.Debug("WebSocket connection closed", zap.String("session_id", sessionID))
	}()

	// Subscribe before reading the backlog so a message appended in
	// between lands on the channel instead of vanishing; the replay
	// filter drops the duplicates this ordering can produce.
	ch, stop, err := h.manager.Watch(sessionID)
	if err != nil {
		h.sendError(c, "unknown session")
		return
	}
	defer stop()

	backlog, _, err := h.manager.Messages(sessionID, 0)
	if err != nil {
		h.sendError(c, "unknown session")
		return
	}

	logger.Debug("WebSocket connection established", zap.String("session_id", sessionID))

	filter := newReplayFilter(backlog)
	for _, msg := range backlog {
		if err := h.sendMessage(c, msg); err != nil {
			return
		}
	}

	// Reader goroutine: its exit signals a closed connection.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case msg, ok := <-ch:
			if !ok {
				// Watcher overflowed; drop the connection so the
				// client reconnects and replays the log.
				return
			}
			if filter.replayed(msg.ID) {
				continue
			}
			if err := h.sendMessage(c, msg); err != nil {
				return
			}
		}
	}
}

// replayFilter tracks backlog message IDs so the subscribe-then-replay
// handshake never streams a message twice.
type replayFilter struct {
	seen map[string]bool
}

func newReplayFilter(backlog []domain.ChatMessage) *replayFilter {
	seen := make(map[string]bool, len(backlog))
	for _, msg := range backlog {
		seen[msg.ID] = true
	}
	return &replayFilter{seen: seen}
}

// replayed reports whether id was already sent as part of the backlog,
// consuming the entry so only the one duplicate is suppressed.
func (f *replayFilter) replayed(id string) bool {
	if f.seen[id] {
		delete(f.seen, id)
		return true
	}
	return false
}

func (h *WebSocketHandler) sendMessage(c *websocket.Conn, msg domain.ChatMessage) error {
	return c.WriteJSON(map[string]interface{}{
		"type":      "message",
		"id":        msg.ID,
		"sender":    msg.Sender,
		"text":      msg.Text,
		"timestamp": msg.Timestamp,
	})
}

func (h *WebSocketHandler) sendError(c *websocket.Conn, errorMsg string) {
	c.WriteJSON(map[string]interface{}{
		"type":  "error",
		"error": errorMsg,
	})
}
