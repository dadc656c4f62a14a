// Package personalized runs the expensive chat path: the full model answers
// with conversation context and quietly extracts profile data as structured
// output. Extracted sections are re-validated before anything is returned.
package personalized

import (
	"context"
	"strings"

	"finplan-assistant/internal/common/config"
	cerrors "finplan-assistant/internal/common/errors"
	"finplan-assistant/internal/common/logger"
	"finplan-assistant/internal/llm"
	"finplan-assistant/internal/prompts"
	"finplan-assistant/internal/schemas"
	"finplan-assistant/internal/security"
)

// SafeFallback is the reply when this path cannot produce a trustworthy
// answer. Extraction fields are always nil alongside it.
const SafeFallback = "I apologize, but I'm having trouble processing your request right now. Please try rephrasing your question about your financial planning."

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
		logger:    log.With(map[string]interface{}{"component": "personalized"}),
	}
}

// Invoke answers one message with full context and structured extraction.
// It never returns an error: every failure collapses to a fallback response
// with nil extraction fields.
func (h *Handler) Invoke(ctx context.Context, message string, history []llm.Message, userID string) *schemas.ChatResponse {
	resp, err := h.invoke(ctx, message, history)
	if err == nil {
		return resp
	}

	if cerrors.IsSecurityViolation(err) {
		h.events.Record("personalized_chat_security_violation", err.Error(), userID)
	} else {
		h.logger.Warn("personalized chat failed", map[string]interface{}{
			"userId": userID,
			"error":  err.Error(),
		})
	}
	return &schemas.ChatResponse{Message: SafeFallback}
}

func (h *Handler) invoke(ctx context.Context, message string, history []llm.Message) (*schemas.ChatResponse, error) {
	clean, err := h.sanitizer.SanitizeText(message, h.sanitizer.MaxInput())
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, config.GetDuration(h.config.Call.Timeout))
	defer cancel()

	schema := schemas.ChatResponseSchema()
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{
		Role:    "system",
		Content: prompts.ExtractionSystem + "\n\n" + prompts.FormatInstructions(schema),
	})
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: "user", Content: clean})

	raw, err := h.client.Complete(callCtx, &llm.Request{
		Purpose:        "personalized",
		Model:          h.config.Model,
		Messages:       messages,
		MaxTokens:      h.config.Call.MaxTokens,
		Temperature:    h.config.Call.Temperature,
		ResponseSchema: schema,
	})
	if err != nil {
		return nil, err
	}

	resp, err := schemas.ParseChatResponse(raw.Structured)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(resp.Message) == "" {
		return nil, cerrors.NewSchemaValidationFailedError("response missing message")
	}

	// Model output is untrusted. Extracted sections go through the same
	// domain validators as any inbound data.
	if len(resp.PersonalInfo) > 0 {
		cleaned, err := h.sanitizer.ValidatePersonalInfo(resp.PersonalInfo)
		if err != nil {
			return nil, err
		}
		resp.PersonalInfo = cleaned
	}
	if len(resp.FinancialInfo) > 0 {
		fin := make(map[string]interface{}, len(resp.FinancialInfo))
		for k, v := range resp.FinancialInfo {
			fin[k] = v
		}
		if _, err := h.sanitizer.ValidateFinancialData(fin); err != nil {
			return nil, err
		}
	}
	for _, goal := range resp.Goals {
		if _, err := h.sanitizer.SanitizeText(goal.Title, security.MaxStringLength); err != nil {
			return nil, err
		}
	}

	return resp, nil
}
