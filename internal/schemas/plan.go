package schemas

import (
	"encoding/json"

	cerrors "finplan-assistant/internal/common/errors"
)

// Plan categories, priorities and risk levels the generator may emit.
const (
	PlanCategoryInvestment = "investment"
	PlanCategorySavings    = "savings"
	PlanCategoryDebt       = "debt"
	PlanCategoryIncome     = "income"
	PlanCategoryBudget     = "budget"
	PlanCategoryMixed      = "mixed"

	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"

	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"

	ResourceLink     = "link"
	ResourceDocument = "document"
	ResourceTool     = "tool"
	ResourceContact  = "contact"
)

// PlanResource points at supporting material for a step or plan.
type PlanResource struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	URL         string `json:"url,omitempty"`
	Description string `json:"description,omitempty"`
}

// PlanStep is one actionable item inside a plan.
type PlanStep struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Order       int            `json:"order"`
	Timeframe   string         `json:"timeframe"`
	Completed   bool           `json:"completed"`
	DueDate     string         `json:"dueDate,omitempty"`
	Cost        float64        `json:"cost,omitempty"`
	Resources   []PlanResource `json:"resources,omitempty"`
}

// PlanMilestone marks a measurable checkpoint.
type PlanMilestone struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	TargetAmount  float64 `json:"targetAmount,omitempty"`
	TargetDate    string  `json:"targetDate"`
	Completed     bool    `json:"completed"`
	CompletedDate string  `json:"completedDate,omitempty"`
}

// Plan is a generated financial plan for a single goal. Immutable once
// returned to the caller.
type Plan struct {
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	Category       string          `json:"category"`
	Priority       string          `json:"priority"`
	Timeframe      string          `json:"timeframe"`
	RiskLevel      string          `json:"riskLevel"`
	Steps          []PlanStep      `json:"steps"`
	Milestones     []PlanMilestone `json:"milestones"`
	EstimatedCost  float64         `json:"estimatedCost,omitempty"`
	ExpectedReturn string          `json:"expectedReturn,omitempty"`
	Prerequisites  []string        `json:"prerequisites,omitempty"`
	Resources      []PlanResource  `json:"resources,omitempty"`
}

const planResourceSchema = `{
	"type": "object",
	"required": ["type", "title"],
	"properties": {
		"type": {"type": "string", "enum": ["link", "document", "tool", "contact"]},
		"title": {"type": "string"},
		"url": {"type": "string"},
		"description": {"type": "string"}
	}
}`

const planStepSchema = `{
	"type": "object",
	"required": ["id", "title", "description", "order", "timeframe"],
	"properties": {
		"id": {"type": "string"},
		"title": {"type": "string"},
		"description": {"type": "string"},
		"order": {"type": "integer"},
		"timeframe": {"type": "string"},
		"completed": {"type": "boolean"},
		"dueDate": {"type": "string"},
		"cost": {"type": "number"},
		"resources": {"type": "array", "items": ` + planResourceSchema + `}
	}
}`

const planMilestoneSchema = `{
	"type": "object",
	"required": ["id", "title", "description", "targetDate"],
	"properties": {
		"id": {"type": "string"},
		"title": {"type": "string"},
		"description": {"type": "string"},
		"targetAmount": {"type": "number"},
		"targetDate": {"type": "string"},
		"completed": {"type": "boolean"},
		"completedDate": {"type": "string"}
	}
}`

const planSchema = `{
	"type": "object",
	"required": ["title", "description", "category", "priority", "timeframe", "riskLevel", "steps", "milestones"],
	"properties": {
		"title": {"type": "string"},
		"description": {"type": "string"},
		"category": {"type": "string", "enum": ["investment", "savings", "debt", "income", "budget", "mixed"]},
		"priority": {"type": "string", "enum": ["low", "medium", "high"]},
		"timeframe": {"type": "string"},
		"riskLevel": {"type": "string", "enum": ["low", "medium", "high"]},
		"steps": {"type": "array", "items": ` + planStepSchema + `},
		"milestones": {"type": "array", "items": ` + planMilestoneSchema + `},
		"estimatedCost": {"type": "number"},
		"expectedReturn": {"type": "string"},
		"prerequisites": {"type": "array", "items": {"type": "string"}},
		"resources": {"type": "array", "items": ` + planResourceSchema + `}
	}
}`

// PlanSchema returns the JSON Schema sent as format instructions for plan
// generation calls. Step and milestone counts are enforced by the planner
// after decoding, not here.
func PlanSchema() json.RawMessage {
	return json.RawMessage(planSchema)
}

// ParsePlan validates and decodes a generated plan.
func ParsePlan(raw json.RawMessage) (*Plan, error) {
	if err := validateAgainst(planSchema, raw); err != nil {
		return nil, err
	}

	var plan Plan
	if err := json.Unmarshal(raw, &plan); err != nil {
		return nil, cerrors.NewSchemaValidationFailedError(err.Error())
	}
	return &plan, nil
}
