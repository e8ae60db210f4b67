package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/arca-compliance/backend/internal/chat"
	"github.com/arca-compliance/backend/internal/domain"
	"github.com/arca-compliance/backend/pkg/logger"
)

const maxPollWait = 30 * time.Second

type ChatHandler struct {
	manager *chat.Manager
}

func NewChatHandler(manager *chat.Manager) *ChatHandler {
	return &ChatHandler{manager: manager}
}

func (h *ChatHandler) CreateSession(c *fiber.Ctx) error {
	sessionID := h.manager.CreateSession()
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"session_id": sessionID,
	})
}

// PostMessage appends the user turn and dispatches the responder in the
// background; clients pick the reply up via the poll or websocket routes.
func (h *ChatHandler) PostMessage(c *fiber.Ctx) error {
	sessionID := c.Params("sessionId")

	var req struct {
		Text string `json:"text"`
	}
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, fmt.Errorf("%w: invalid request body", domain.ErrValidation))
	}

	messageID, err := h.manager.AppendUserMessage(sessionID, req.Text)
	if err != nil {
		return respondError(c, err)
	}

	go func() {
		// The dispatch outlives the HTTP request; cancellation comes from
		// the session manager, not the connection.
		_, err := h.manager.AwaitResponse(context.Background(), sessionID)
		if err != nil && !errors.Is(err, domain.ErrInvalidState) {
			logger.Warn("Chat response failed",
				zap.String("session_id", sessionID),
				zap.Error(err),
			)
		}
	}()

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"message_id": messageID,
	})
}

// GetMessages returns messages appended after the "after" cursor. With
// "wait_ms" set it long-polls until a new message arrives or the wait
// expires.
func (h *ChatHandler) GetMessages(c *fiber.Ctx) error {
	sessionID := c.Params("sessionId")
	after := c.QueryInt("after", 0)
	waitMS := c.QueryInt("wait_ms", 0)

	msgs, cursor, err := h.manager.Messages(sessionID, after)
	if err != nil {
		return respondError(c, err)
	}

	if len(msgs) == 0 && waitMS > 0 {
		wait := time.Duration(waitMS) * time.Millisecond
		if wait > maxPollWait {
			wait = maxPollWait
		}

		ch, stop, err := h.manager.Watch(sessionID)
		if err != nil {
			return respondError(c, err)
		}
		defer stop()

		// Re-read under the watch to close the race between the first
		// read and subscription.
		msgs, cursor, err = h.manager.Messages(sessionID, after)
		if err != nil {
			return respondError(c, err)
		}
		if len(msgs) == 0 {
			timer := time.NewTimer(wait)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-ch:
				msgs, cursor, err = h.manager.Messages(sessionID, after)
				if err != nil {
					return respondError(c, err)
				}
			}
		}
	}

	out := make([]fiber.Map, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, messageJSON(msg))
	}
	return c.JSON(fiber.Map{
		"messages": out,
		"cursor":   cursor,
	})
}

func (h *ChatHandler) CancelResponse(c *fiber.Ctx) error {
	if err := h.manager.CancelResponse(c.Params("sessionId")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"canceled": true})
}

func messageJSON(msg domain.ChatMessage) fiber.Map {
	return fiber.Map{
		"id":        msg.ID,
		"sender":    msg.Sender,
		"text":      msg.Text,
		"timestamp": msg.Timestamp.Format(time.RFC3339),
	}
}
