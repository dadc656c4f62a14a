// Package planner turns a user profile plus one goal into a bounded,
// multi-step financial plan. The model proposes the plan; this package
// enforces its size and always has a fallback, because a plan request must
// never come back empty.
package planner

import (
	"context"
	"encoding/json"
	"fmt"

	"finplan-assistant/internal/common/config"
	cerrors "finplan-assistant/internal/common/errors"
	"finplan-assistant/internal/common/logger"
	"finplan-assistant/internal/common/metrics"
	"finplan-assistant/internal/llm"
	"finplan-assistant/internal/prompts"
	"finplan-assistant/internal/schemas"
	"finplan-assistant/internal/security"

	"github.com/google/uuid"
)

const (
	maxSteps           = 10
	maxMilestones      = 10
	maxStepDescription = 500
	maxTitleLength     = 100
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
		logger:    log.With(map[string]interface{}{"component": "planner"}),
	}
}

// Generate builds a plan for one goal. Security violations in the inputs are
// the only error the caller sees; every other failure is absorbed into a
// fixed fallback plan.
func (h *Handler) Generate(ctx context.Context, userProfile, goalData map[string]interface{}, userID string) (*schemas.Plan, error) {
	plan, err := h.generate(ctx, userProfile, goalData)
	if err == nil {
		metrics.PlansGenerated.WithLabelValues("ok").Inc()
		return plan, nil
	}

	if cerrors.IsSecurityViolation(err) {
		h.events.Record("plan_generation_security_violation", err.Error(), userID)
		metrics.PlansGenerated.WithLabelValues("security_violation").Inc()
		return nil, err
	}

	h.logger.Warn("plan generation failed, using fallback plan", map[string]interface{}{
		"userId": userID,
		"error":  err.Error(),
	})
	metrics.PlansGenerated.WithLabelValues("fallback").Inc()
	return fallbackPlan(goalData), nil
}

func (h *Handler) generate(ctx context.Context, userProfile, goalData map[string]interface{}) (*schemas.Plan, error) {
	cleanProfile, err := h.sanitizer.SanitizeMap(userProfile, security.MaxJSONSize)
	if err != nil {
		return nil, err
	}
	cleanGoal, err := h.sanitizer.SanitizeMap(goalData, security.MaxJSONSize)
	if err != nil {
		return nil, err
	}

	profileJSON, err := json.Marshal(cleanProfile)
	if err != nil {
		return nil, fmt.Errorf("encode profile: %w", err)
	}
	goalJSON, err := json.Marshal(cleanGoal)
	if err != nil {
		return nil, fmt.Errorf("encode goal: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, config.GetDuration(h.config.Call.Timeout))
	defer cancel()

	schema := schemas.PlanSchema()
	resp, err := h.client.Complete(callCtx, &llm.Request{
		Purpose:        "plan",
		Model:          h.config.Model,
		Messages:       []llm.Message{{Role: "user", Content: prompts.Plan(profileJSON, goalJSON, schema)}},
		MaxTokens:      h.config.Call.MaxTokens,
		Temperature:    h.config.Call.Temperature,
		ResponseSchema: schema,
	})
	if err != nil {
		return nil, err
	}

	plan, err := schemas.ParsePlan(resp.Structured)
	if err != nil {
		return nil, err
	}
	if err := validatePlanSize(plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// validatePlanSize re-checks the decoded plan against hard limits the
// schema does not enforce.
func validatePlanSize(plan *schemas.Plan) error {
	if len(plan.Steps) > maxSteps {
		return cerrors.NewPlanSizeViolationError(
			fmt.Sprintf("too many steps (%d), limit is %d", len(plan.Steps), maxSteps))
	}
	if len(plan.Milestones) > maxMilestones {
		return cerrors.NewPlanSizeViolationError(
			fmt.Sprintf("too many milestones (%d), limit is %d", len(plan.Milestones), maxMilestones))
	}
	if len(plan.Title) > maxTitleLength {
		return cerrors.NewPlanSizeViolationError(
			fmt.Sprintf("plan title too long (%d chars)", len(plan.Title)))
	}
	for _, step := range plan.Steps {
		if len(step.Title) > maxTitleLength {
			return cerrors.NewPlanSizeViolationError(
				fmt.Sprintf("step %q title too long (%d chars)", step.ID, len(step.Title)))
		}
		if len(step.Description) > maxStepDescription {
			return cerrors.NewPlanSizeViolationError(
				fmt.Sprintf("step %q description too long (%d chars)", step.ID, len(step.Description)))
		}
	}
	return nil
}

// fallbackPlan is the minimal viable plan returned when the model cannot
// produce one.
func fallbackPlan(goalData map[string]interface{}) *schemas.Plan {
	title := "Financial Goal"
	if t, ok := goalData["title"].(string); ok && t != "" {
		title = t
	}

	steps := []schemas.PlanStep{
		{
			ID:          uuid.NewString(),
			Title:       "Assessment",
			Description: "Review your current financial situation, income, expenses, and existing savings.",
			Order:       1,
			Timeframe:   "1-2 weeks",
		},
		{
			ID:          uuid.NewString(),
			Title:       "Planning",
			Description: "Set a target amount and date, then break the goal into monthly contributions.",
			Order:       2,
			Timeframe:   "1 week",
		},
		{
			ID:          uuid.NewString(),
			Title:       "Implementation",
			Description: "Automate contributions and review progress monthly, adjusting as needed.",
			Order:       3,
			Timeframe:   "ongoing",
		},
	}

	return &schemas.Plan{
		Title:       title,
		Description: "A starter plan to make progress on this goal while a detailed plan is prepared.",
		Category:    schemas.PlanCategoryMixed,
		Priority:    schemas.PriorityMedium,
		Timeframe:   "3-6 months",
		RiskLevel:   schemas.RiskLow,
		Steps:       steps,
		Milestones: []schemas.PlanMilestone{
			{
				ID:          uuid.NewString(),
				Title:       "First month of consistent progress",
				Description: "Complete the assessment and make the first planned contribution.",
				TargetDate:  "1 month",
			},
		},
	}
}
