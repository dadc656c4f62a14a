// Package router is the first layer of the chat pipeline. It classifies
// each inbound message as answerable with general knowledge or requiring
// the user's stored data, so the expensive personalized model is only
// invoked when it has to be.
package router

import (
	"context"

	"finplan-assistant/internal/common/config"
	"finplan-assistant/internal/common/logger"
	"finplan-assistant/internal/llm"
	"finplan-assistant/internal/prompts"
	"finplan-assistant/internal/schemas"
	"finplan-assistant/internal/security"
)

// SecurityFallback is returned when the inbound message fails sanitization.
// The message never reaches a model in that case.
const SecurityFallback = "I apologize, but I'm having trouble processing your request. Please try rephrasing your question about financial planning."

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
		logger:    log.With(map[string]interface{}{"component": "router"}),
	}
}

// Route classifies one message. It never returns an error: a rejected input
// fails closed to a canned apology, while provider or schema trouble fails
// open so the caller still attempts a personalized answer.
func (h *Handler) Route(ctx context.Context, message, userID string) *schemas.RoutingDecision {
	clean, err := h.sanitizer.SanitizeText(message, h.sanitizer.MaxInput())
	if err != nil {
		h.events.Record("router_security_violation", err.Error(), userID)
		return &schemas.RoutingDecision{
			NeedsUserData:  false,
			MessageType:    schemas.MessageTypeGeneral,
			SimpleResponse: SecurityFallback,
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, config.GetDuration(h.config.Call.Timeout))
	defer cancel()

	schema := schemas.RoutingDecisionSchema()
	resp, err := h.client.Complete(callCtx, &llm.Request{
		Purpose:        "router",
		Model:          h.config.Model,
		Messages:       []llm.Message{{Role: "user", Content: prompts.Router(clean, schema)}},
		MaxTokens:      h.config.Call.MaxTokens,
		Temperature:    h.config.Call.Temperature,
		ResponseSchema: schema,
	})
	if err != nil {
		h.logger.Warn("routing call failed, defaulting to personalized path", map[string]interface{}{
			"userId": userID,
			"error":  err.Error(),
		})
		return failOpen()
	}

	decision, err := schemas.ParseRoutingDecision(resp.Structured)
	if err != nil {
		h.logger.Warn("routing decision unparseable, defaulting to personalized path", map[string]interface{}{
			"userId": userID,
			"error":  err.Error(),
		})
		return failOpen()
	}

	return decision
}

// failOpen assumes user data is needed so that a broken router degrades to
// the richer path rather than silently dropping context.
func failOpen() *schemas.RoutingDecision {
	return &schemas.RoutingDecision{
		NeedsUserData: true,
		MessageType:   schemas.MessageTypeGeneral,
	}
}
