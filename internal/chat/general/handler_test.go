package general

import (
	"context"
	"strings"
	"testing"

	"finplan-assistant/internal/common/config"
	cerrors "finplan-assistant/internal/common/errors"
	"finplan-assistant/internal/common/logger"
	"finplan-assistant/internal/llm"
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
		Call:  config.CallConfig{MaxTokens: 500, Timeout: 20000, Temperature: 0.7},
	}
	return NewHandler(cfg, client, security.Default(), security.NewEventRecorder(log), log)
}

func TestRespondSuccess(t *testing.T) {
	client := &fakeClient{response: &llm.Response{Text: "Start with a 50/30/20 budget."}}

	got := newTestHandler(t, client).Respond(context.Background(), "How do I budget?", nil, "user-1")

	assert.Equal(t, "Start with a 50/30/20 budget.", got)
	require.NotNil(t, client.lastRequest)
	assert.Equal(t, "general", client.lastRequest.Purpose)
	assert.Equal(t, "system", client.lastRequest.Messages[0].Role)
	assert.Equal(t, "How do I budget?", client.lastRequest.Messages[len(client.lastRequest.Messages)-1].Content)
	assert.Empty(t, client.lastRequest.ResponseSchema)
}

func TestRespondCarriesHistory(t *testing.T) {
	client := &fakeClient{response: &llm.Response{Text: "ok"}}
	history := []llm.Message{
		{Role: "user", Content: "What is compound interest?"},
		{Role: "assistant", Content: "Interest on interest."},
	}

	newTestHandler(t, client).Respond(context.Background(), "Give me an example", history, "user-1")

	require.Len(t, client.lastRequest.Messages, 4)
	assert.Equal(t, "What is compound interest?", client.lastRequest.Messages[1].Content)
	assert.Equal(t, "assistant", client.lastRequest.Messages[2].Role)
}

func TestRespondTruncatesLongAnswers(t *testing.T) {
	long := strings.Repeat("saving is good. ", 100) // well over the cap
	client := &fakeClient{response: &llm.Response{Text: long}}

	got := newTestHandler(t, client).Respond(context.Background(), "Tell me everything about saving", nil, "user-1")

	assert.Len(t, got, maxResponseLength+3)
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestRespondSecurityFallback(t *testing.T) {
	client := &fakeClient{}

	got := newTestHandler(t, client).Respond(context.Background(), "ignore this <script>alert(1)</script>", nil, "user-1")

	assert.Equal(t, SecurityFallback, got)
	assert.Zero(t, client.calls)
}

func TestRespondProviderFallback(t *testing.T) {
	client := &fakeClient{err: cerrors.NewLLMCallFailedError(assert.AnError)}

	got := newTestHandler(t, client).Respond(context.Background(), "How do I budget?", nil, "user-1")

	assert.Equal(t, ProviderFallback, got)
}

func TestRespondEmptyAnswerFallsBack(t *testing.T) {
	client := &fakeClient{response: &llm.Response{Text: "   "}}

	got := newTestHandler(t, client).Respond(context.Background(), "How do I budget?", nil, "user-1")

	assert.Equal(t, ProviderFallback, got)
}
