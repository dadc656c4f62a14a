// Package orchestrator wires the chat pipeline together: route first, then
// the cheap or the expensive responder, then the confidence-gated profile
// merge. It is the last line of defense and never lets an error escape.
package orchestrator

import (
	"context"
	"strings"

	"finplan-assistant/internal/chat/confidence"
	"finplan-assistant/internal/chat/general"
	"finplan-assistant/internal/chat/personalized"
	"finplan-assistant/internal/chat/router"
	"finplan-assistant/internal/common/logger"
	"finplan-assistant/internal/common/metrics"
	"finplan-assistant/internal/llm"
	"finplan-assistant/internal/profile"
	"finplan-assistant/internal/schemas"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	// minSimpleResponse is the shortest router answer worth returning
	// directly; anything shorter goes to the general responder.
	minSimpleResponse = 10

	// NoProfilePrompt is returned when a personalized answer is wanted but
	// nothing is known about the user yet.
	NoProfilePrompt = "I'd be happy to provide personalized advice! To give you the best recommendations, could you share some details about your financial situation, goals, or what specific area you'd like help with?"

	// CatchAllFallback is the absolute floor: returned when anything in the
	// pipeline panics.
	CatchAllFallback = "I apologize, but I'm experiencing technical difficulties. Please try rephrasing your question about financial planning."
)

// Request is one chat turn.
type Request struct {
	Message string        `json:"message"`
	UserID  string        `json:"userId"`
	History []llm.Message `json:"history,omitempty"`
}

// Response is the unified reply from either pipeline layer. UsedUserData
// records which layer answered.
type Response struct {
	Message       string                 `json:"message"`
	PersonalInfo  map[string]interface{} `json:"personalInfo,omitempty"`
	FinancialInfo map[string]float64     `json:"financialInfo,omitempty"`
	Goals         []schemas.Goal         `json:"goals,omitempty"`
	UsedUserData  bool                   `json:"usedUserData"`
}

type Orchestrator struct {
	router       *router.Handler
	general      *general.Handler
	personalized *personalized.Handler
	profiles     profile.Store
	tracer       trace.Tracer
	logger       logger.Logger
}

func New(r *router.Handler, g *general.Handler, p *personalized.Handler, profiles profile.Store, tracer trace.Tracer, log logger.Logger) *Orchestrator {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("orchestrator")
	}
	return &Orchestrator{
		router:       r,
		general:      g,
		personalized: p,
		profiles:     profiles,
		tracer:       tracer,
		logger:       log.With(map[string]interface{}{"component": "orchestrator"}),
	}
}

// Invoke answers one chat turn. It never returns an error and never panics
// outward.
func (o *Orchestrator) Invoke(ctx context.Context, req *Request) (resp *Response) {
	ctx, span := o.tracer.Start(ctx, "chat.invoke")
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("chat pipeline panicked", map[string]interface{}{
				"userId": req.UserID,
				"panic":  r,
			})
			metrics.ChatRequests.WithLabelValues("panic").Inc()
			resp = &Response{Message: CatchAllFallback}
		}
	}()

	decision := o.router.Route(ctx, req.Message, req.UserID)
	span.SetAttributes(
		attribute.Bool("chat.needs_user_data", decision.NeedsUserData),
		attribute.String("chat.message_type", decision.MessageType),
	)

	if !decision.NeedsUserData {
		if simple := strings.TrimSpace(decision.SimpleResponse); len(simple) > minSimpleResponse {
			metrics.ChatRequests.WithLabelValues("simple").Inc()
			return &Response{Message: simple}
		}
		metrics.ChatRequests.WithLabelValues("general").Inc()
		return &Response{Message: o.general.Respond(ctx, req.Message, req.History, req.UserID)}
	}

	stored := o.loadProfile(ctx, req.UserID)
	if stored.IsEmpty() {
		metrics.ChatRequests.WithLabelValues("no_profile").Inc()
		return &Response{Message: NoProfilePrompt}
	}

	full := o.personalized.Invoke(ctx, req.Message, req.History, req.UserID)
	o.maybePersist(ctx, req.UserID, full)

	metrics.ChatRequests.WithLabelValues("personalized").Inc()
	return &Response{
		Message:       full.Message,
		PersonalInfo:  full.PersonalInfo,
		FinancialInfo: full.FinancialInfo,
		Goals:         full.Goals,
		UsedUserData:  true,
	}
}

// loadProfile treats every store problem as an absent profile so the turn
// still gets an answer.
func (o *Orchestrator) loadProfile(ctx context.Context, userID string) *profile.Profile {
	if userID == "" {
		return nil
	}
	p, err := o.profiles.Get(ctx, userID)
	if err != nil {
		o.logger.Warn("profile load failed, continuing without profile", map[string]interface{}{
			"userId": userID,
			"error":  err.Error(),
		})
		return nil
	}
	return p
}

// maybePersist merges the extraction back only when the confidence scorer
// trusts it. Persistence failure never affects the reply.
func (o *Orchestrator) maybePersist(ctx context.Context, userID string, resp *schemas.ChatResponse) {
	if userID == "" || !confidence.ShouldPersist(resp) {
		return
	}
	if err := o.profiles.Merge(ctx, userID, func(p *profile.Profile) { p.Merge(resp) }); err != nil {
		o.logger.Warn("profile merge failed", map[string]interface{}{
			"userId": userID,
			"error":  err.Error(),
		})
	}
}
