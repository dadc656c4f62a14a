// Package schemas declares the structured-output shapes the LLM provider is
// instructed to emit, and the parse-and-validate step that rejects anything
// that does not conform. Provider output is never trusted structurally.
package schemas

import (
	"encoding/json"
	"fmt"

	cerrors "finplan-assistant/internal/common/errors"

	"github.com/xeipuuv/gojsonschema"
)

// Message categories assigned by the router.
const (
	MessageTypeGeneral     = "general"
	MessageTypePersonal    = "personal"
	MessageTypeFinancial   = "financial"
	MessageTypeGoalSetting = "goal_setting"
)

// RoutingDecision is the router's verdict for one inbound message. Created
// per message, consumed once, never persisted.
type RoutingDecision struct {
	NeedsUserData  bool   `json:"needs_user_data"`
	MessageType    string `json:"message_type"`
	SimpleResponse string `json:"simple_response"`
}

// Goal is one extracted user goal.
type Goal struct {
	Title    string            `json:"title"`
	Category string            `json:"category"`
	Status   string            `json:"status"`
	Data     map[string]string `json:"data,omitempty"`
}

// ChatResponse is the personalized responder's reply: a natural-language
// message plus whatever structured data the model extracted.
type ChatResponse struct {
	Message       string                 `json:"message"`
	PersonalInfo  map[string]interface{} `json:"personalInfo,omitempty"`
	FinancialInfo map[string]float64     `json:"financialInfo,omitempty"`
	Goals         []Goal                 `json:"goals,omitempty"`
}

// HasExtractedData reports whether any extraction section is non-empty.
func (r *ChatResponse) HasExtractedData() bool {
	return len(r.PersonalInfo) > 0 || len(r.FinancialInfo) > 0 || len(r.Goals) > 0
}

const routingDecisionSchema = `{
	"type": "object",
	"required": ["needs_user_data", "message_type"],
	"properties": {
		"needs_user_data": {"type": "boolean"},
		"message_type": {"type": "string", "enum": ["general", "personal", "financial", "goal_setting"]},
		"simple_response": {"type": "string"}
	}
}`

const goalSchema = `{
	"type": "object",
	"required": ["title", "category", "status"],
	"properties": {
		"title": {"type": "string"},
		"category": {"type": "string"},
		"status": {"type": "string"},
		"data": {"type": "object", "additionalProperties": {"type": "string"}}
	}
}`

const chatResponseSchema = `{
	"type": "object",
	"required": ["message"],
	"properties": {
		"message": {"type": "string"},
		"personalInfo": {"type": "object"},
		"financialInfo": {"type": "object", "additionalProperties": {"type": "number"}},
		"goals": {"type": "array", "items": ` + goalSchema + `}
	}
}`

// RoutingDecisionSchema returns the JSON Schema sent to the provider as
// format instructions for routing calls.
func RoutingDecisionSchema() json.RawMessage {
	return json.RawMessage(routingDecisionSchema)
}

// ChatResponseSchema returns the JSON Schema for personalized chat calls.
func ChatResponseSchema() json.RawMessage {
	return json.RawMessage(chatResponseSchema)
}

// validateAgainst checks raw provider output against a declared schema.
func validateAgainst(schemaJSON string, raw json.RawMessage) error {
	if len(raw) == 0 {
		return cerrors.NewSchemaValidationFailedError("empty structured output")
	}

	schemaLoader := gojsonschema.NewStringLoader(schemaJSON)
	documentLoader := gojsonschema.NewBytesLoader(raw)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return cerrors.NewSchemaValidationFailedError(fmt.Sprintf("validation error: %v", err))
	}

	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return cerrors.NewSchemaValidationFailedError(fmt.Sprintf("output validation failed: %v", errs))
	}

	return nil
}

// ParseRoutingDecision validates and decodes a routing decision.
func ParseRoutingDecision(raw json.RawMessage) (*RoutingDecision, error) {
	if err := validateAgainst(routingDecisionSchema, raw); err != nil {
		return nil, err
	}

	var decision RoutingDecision
	if err := json.Unmarshal(raw, &decision); err != nil {
		return nil, cerrors.NewSchemaValidationFailedError(err.Error())
	}
	return &decision, nil
}

// ParseChatResponse validates and decodes a personalized chat response.
func ParseChatResponse(raw json.RawMessage) (*ChatResponse, error) {
	if err := validateAgainst(chatResponseSchema, raw); err != nil {
		return nil, err
	}

	var resp ChatResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, cerrors.NewSchemaValidationFailedError(err.Error())
	}
	return &resp, nil
}
