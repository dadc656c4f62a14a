// Package general answers questions that need no stored user data, using the
// cheaper chat model. Failures degrade to fixed advice text so the caller
// always has something to show.
package general

import (
	"context"
	"strings"

	"finplan-assistant/internal/common/config"
	"finplan-assistant/internal/common/logger"
	"finplan-assistant/internal/llm"
	"finplan-assistant/internal/prompts"
	"finplan-assistant/internal/security"
)

const (
	// maxResponseLength caps general advice before it goes back to the user.
	maxResponseLength = 1000

	SecurityFallback = "I apologize, but I'm having trouble processing your request. Please try rephrasing your question about financial planning."
	ProviderFallback = "I'm experiencing technical difficulties. For general financial advice, I'd recommend starting with creating a budget and setting clear financial goals."
)

type Handler struct {
	config    *Config
	client    llm.Client
	sanitizer *security.Sanitizer
	events    *security.EventRecorder
	logger    logger.Logger
}

func NewHandler(cfg *Config, client llm.Client, sanitizer *security.Sanitizer, events *security.EventRecorder, log logger.Logger) *Handler {
	return &Handler{
		config:    cfg,
		client:    client,
		sanitizer: sanitizer,
		events:    events,
		logger:    log.With(map[string]interface{}{"component": "general"}),
	}
}

// Respond produces general financial advice for one message. It never
// returns an error.
func (h *Handler) Respond(ctx context.Context, message string, history []llm.Message, userID string) string {
	clean, err := h.sanitizer.SanitizeText(message, h.sanitizer.MaxInput())
	if err != nil {
		h.events.Record("general_chat_security_violation", err.Error(), userID)
		return SecurityFallback
	}

	callCtx, cancel := context.WithTimeout(ctx, config.GetDuration(h.config.Call.Timeout))
	defer cancel()

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: "system", Content: prompts.GeneralSystem})
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: "user", Content: clean})

	resp, err := h.client.Complete(callCtx, &llm.Request{
		Purpose:     "general",
		Model:       h.config.Model,
		Messages:    messages,
		MaxTokens:   h.config.Call.MaxTokens,
		Temperature: h.config.Call.Temperature,
	})
	if err != nil {
		h.logger.Warn("general advice call failed", map[string]interface{}{
			"userId": userID,
			"error":  err.Error(),
		})
		return ProviderFallback
	}

	content := strings.TrimSpace(resp.Text)
	if content == "" {
		return ProviderFallback
	}
	if len(content) > maxResponseLength {
		content = content[:maxResponseLength] + "..."
	}
	return content
}
