// Package responder provides implementations of the chat Responder
// collaborator. The service treats response generation as opaque; these
// adapters are the pluggable backends.
package responder

import (
	"context"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/arca-compliance/backend/internal/domain"
	"github.com/arca-compliance/backend/pkg/circuitbreaker"
	"github.com/arca-compliance/backend/pkg/logger"
	"github.com/arca-compliance/backend/pkg/retry"
)

const systemPrompt = "You are ARCA, a compliance assistant. Answer questions " +
	"about regulatory compliance, policy documents, and the analysis reports " +
	"this service produces. Be concise and cite regulations when relevant."

// OpenAIResponder generates assistant replies via the OpenAI chat API,
// guarded by a circuit breaker and retried with backoff.
type OpenAIResponder struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	cb          *circuitbreaker.CircuitBreaker
	retryConfig retry.Config
}

func NewOpenAIResponder(apiKey, model string, temperature float32, maxTokens int) *OpenAIResponder {
	cb := circuitbreaker.New("responder", circuitbreaker.Config{
		MaxRequests:      5,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Logger:           logger.GetLogger(),
	})

	retryConfig := retry.Config{
		MaxAttempts:    3,
		InitialDelay:   500 * time.Millisecond,
		MaxDelay:       5 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
		Logger:         logger.GetLogger(),
	}

	logger.Info("OpenAI responder initialized", zap.String("model", model))

	return &OpenAIResponder{
		client:      openai.NewClient(apiKey),
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		cb:          cb,
		retryConfig: retryConfig,
	}
}

func (r *OpenAIResponder) Respond(ctx context.Context, history []domain.ChatMessage) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt,
	})
	for _, msg := range history {
		role := openai.ChatMessageRoleUser
		if msg.Sender == domain.SenderAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: msg.Text,
		})
	}

	return retry.DoWithResult(ctx, r.retryConfig, func() (string, error) {
		var content string
		err := r.cb.Execute(ctx, func() error {
			resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
				Model:       r.model,
				Messages:    messages,
				Temperature: r.temperature,
				MaxTokens:   r.maxTokens,
			})
			if err != nil {
				return err
			}
			if len(resp.Choices) == 0 {
				return errEmptyCompletion
			}
			content = resp.Choices[0].Message.Content
			return nil
		})
		return content, err
	})
}
