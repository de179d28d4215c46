package responder

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/spec-kit/weaver-helpdesk/internal/config"
	"github.com/spec-kit/weaver-helpdesk/internal/domain"
)

const (
	initialMaxTokens    = 1024
	escalationMaxTokens = 256
)

// Completer sends one system + user prompt pair to a model and returns its text.
type Completer func(ctx context.Context, system, prompt string, maxTokens int64) (string, error)

// Claude generates replies with the Anthropic Messages API and falls back
// to Fallback on any error.
type Claude struct {
	complete          Completer
	initialTimeout    time.Duration
	escalationTimeout time.Duration
	fallback          Fallback
	logger            *zap.Logger
}

// New returns a Claude responder when an API key is configured, otherwise
// the fallback responder.
func New(cfg config.ResponderConfig, logger *zap.Logger) Responder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.APIKey == "" {
		logger.Warn("CLAUDE_API_KEY not set; assistant replies use fallback text")
		return Fallback{}
	}
	client := anthropic.NewClient(option.WithAPIKey(cfg.APIKey))
	model := anthropic.Model(cfg.Model)

	complete := func(ctx context.Context, system, prompt string, maxTokens int64) (string, error) {
		msg, err := client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     model,
			MaxTokens: maxTokens,
			System:    []anthropic.TextBlockParam{{Text: system}},
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			},
		})
		if err != nil {
			return "", err
		}
		var out strings.Builder
		for _, block := range msg.Content {
			if block.Type == "text" {
				out.WriteString(block.Text)
			}
		}
		return out.String(), nil
	}

	return NewClaude(complete, time.Duration(cfg.InitialTimeoutSeconds)*time.Second,
		time.Duration(cfg.EscalationTimeoutSecs)*time.Second, logger)
}

// NewClaude wires a responder around an arbitrary completer.
func NewClaude(complete Completer, initialTimeout, escalationTimeout time.Duration, logger *zap.Logger) *Claude {
	if initialTimeout <= 0 {
		initialTimeout = 30 * time.Second
	}
	if escalationTimeout <= 0 {
		escalationTimeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Claude{
		complete:          complete,
		initialTimeout:    initialTimeout,
		escalationTimeout: escalationTimeout,
		logger:            logger.Named("responder"),
	}
}

// InitialResponse implements Responder.
func (c *Claude) InitialResponse(ctx context.Context, req InitialRequest) string {
	text, err := c.call(ctx, c.initialTimeout, initialSystemPrompt, buildInitialPrompt(req), initialMaxTokens)
	if err != nil {
		c.logger.Error("initial response generation failed", zap.Error(err), zap.Int64("ticket_id", req.Ticket.ID))
		return c.fallback.InitialResponse(ctx, req)
	}
	c.logger.Info("initial response generated", zap.Int64("ticket_id", req.Ticket.ID))
	return text
}

// EscalationNotice implements Responder.
func (c *Claude) EscalationNotice(ctx context.Context, t domain.Ticket, waited time.Duration) string {
	text, err := c.call(ctx, c.escalationTimeout, escalationSystemPrompt, buildEscalationPrompt(t, waited), escalationMaxTokens)
	if err != nil {
		c.logger.Error("escalation notice generation failed", zap.Error(err), zap.Int64("ticket_id", t.ID))
		return c.fallback.EscalationNotice(ctx, t, waited)
	}
	return text
}

func (c *Claude) call(ctx context.Context, timeout time.Duration, system, prompt string, maxTokens int64) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	text, err := c.complete(ctx, system, prompt, maxTokens)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("empty completion")
	}
	return text, nil
}
