package responder

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/arca-compliance/backend/internal/domain"
)

var errEmptyCompletion = errors.New("completion returned no choices")

// StaticResponder is the default backend when no API key is configured,
// and the deterministic double used in tests. It echoes a canned answer
// keyed on the latest user message.
type StaticResponder struct{}

func NewStaticResponder() *StaticResponder {
	return &StaticResponder{}
}

func (StaticResponder) Respond(ctx context.Context, history []domain.ChatMessage) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var last string
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Sender == domain.SenderUser {
			last = history[i].Text
			break
		}
	}
	if last == "" {
		return "Hello! Ask me about your compliance documents.", nil
	}

	lower := strings.ToLower(last)
	switch {
	case strings.Contains(lower, "risk"):
		return "Risk scores combine contradiction severity with missing required clauses. Run a comparison to get a current score.", nil
	case strings.Contains(lower, "upload"):
		return "Upload PDF, DOCX, or TXT policies up to 10MB; they are indexed into the reference corpus automatically.", nil
	default:
		return fmt.Sprintf("I received your question about %q. A full answer requires a configured language model backend.", truncate(last, 80)), nil
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
