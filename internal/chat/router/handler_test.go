package router

import (
	"context"
	"encoding/json"
	"testing"

	"finplan-assistant/internal/common/config"
	cerrors "finplan-assistant/internal/common/errors"
	"finplan-assistant/internal/common/logger"
	"finplan-assistant/internal/llm"
	"finplan-assistant/internal/schemas"
	"finplan-assistant/internal/security"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	lastRequest *llm.Request
	response    *llm.Response
	err         error
	calls       int
}

func (f *fakeClient) Complete(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	f.calls++
	f.lastRequest = req
	return f.response, f.err
}

func newTestHandler(t *testing.T, client llm.Client) *Handler {
	log := logger.NewTestLogger(t)
	cfg := &Config{
		Model: "gpt-3.5-turbo",
		Call:  config.CallConfig{MaxTokens: 200, Timeout: 15000, Temperature: 0.1},
	}
	return NewHandler(cfg, client, security.Default(), security.NewEventRecorder(log), log)
}

func TestRouteGeneralQuestion(t *testing.T) {
	structured, _ := json.Marshal(map[string]interface{}{
		"needs_user_data": false,
		"message_type":    "general",
		"simple_response": "A 401k is an employer-sponsored retirement account.",
	})
	client := &fakeClient{response: &llm.Response{Structured: structured}}

	decision := newTestHandler(t, client).Route(context.Background(), "What is a 401k?", "user-1")

	assert.False(t, decision.NeedsUserData)
	assert.Equal(t, schemas.MessageTypeGeneral, decision.MessageType)
	assert.NotEmpty(t, decision.SimpleResponse)
	require.NotNil(t, client.lastRequest)
	assert.Equal(t, "router", client.lastRequest.Purpose)
	assert.Equal(t, "gpt-3.5-turbo", client.lastRequest.Model)
	assert.NotEmpty(t, client.lastRequest.ResponseSchema)
	assert.Contains(t, client.lastRequest.Messages[0].Content, "What is a 401k?")
}

func TestRoutePersonalQuestion(t *testing.T) {
	structured, _ := json.Marshal(map[string]interface{}{
		"needs_user_data": true,
		"message_type":    "financial",
	})
	client := &fakeClient{response: &llm.Response{Structured: structured}}

	decision := newTestHandler(t, client).Route(context.Background(), "How much should I save based on my income?", "user-1")

	assert.True(t, decision.NeedsUserData)
	assert.Equal(t, schemas.MessageTypeFinancial, decision.MessageType)
	assert.Empty(t, decision.SimpleResponse)
}

func TestRouteFailsClosedOnTaintedInput(t *testing.T) {
	client := &fakeClient{}

	decision := newTestHandler(t, client).Route(context.Background(), "my password is hunter2", "user-1")

	assert.False(t, decision.NeedsUserData)
	assert.Equal(t, SecurityFallback, decision.SimpleResponse)
	assert.Zero(t, client.calls, "tainted input must never reach the provider")
}

func TestRouteFailsOpenOnProviderError(t *testing.T) {
	client := &fakeClient{err: cerrors.NewLLMTimeoutError("deadline exceeded")}

	decision := newTestHandler(t, client).Route(context.Background(), "Should I invest more?", "user-1")

	assert.True(t, decision.NeedsUserData)
	assert.Empty(t, decision.SimpleResponse)
}

func TestRouteFailsOpenOnBadStructuredOutput(t *testing.T) {
	client := &fakeClient{response: &llm.Response{Structured: json.RawMessage(`{"message_type": 7}`)}}

	decision := newTestHandler(t, client).Route(context.Background(), "Should I invest more?", "user-1")

	assert.True(t, decision.NeedsUserData)
}
