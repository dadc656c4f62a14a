package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"finplan-assistant/internal/chat/general"
	"finplan-assistant/internal/chat/personalized"
	"finplan-assistant/internal/chat/router"
	"finplan-assistant/internal/common/config"
	"finplan-assistant/internal/common/database"
	"finplan-assistant/internal/common/logger"
	"finplan-assistant/internal/llm"
	"finplan-assistant/internal/profile"
	"finplan-assistant/internal/security"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedProvider answers each completion according to the request purpose,
// standing in for the remote LLM behind the real HTTP client.
type scriptedProvider struct {
	t         *testing.T
	responses map[string]interface{} // purpose -> structured payload or text
	calls     []string
}

func (s *scriptedProvider) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model          string          `json:"model"`
			Messages       []llm.Message   `json:"messages"`
			ResponseSchema json.RawMessage `json:"response_schema"`
		}
		require.NoError(s.t, json.NewDecoder(r.Body).Decode(&req))

		purpose := "general"
		if len(req.ResponseSchema) > 0 {
			if req.Model == "gpt-4" {
				purpose = "personalized"
			} else {
				purpose = "router"
			}
		}
		s.calls = append(s.calls, purpose)

		payload, ok := s.responses[purpose]
		if !ok {
			http.Error(w, "unexpected call", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		switch v := payload.(type) {
		case string:
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"text": v})
		default:
			structured, err := json.Marshal(v)
			require.NoError(s.t, err)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"text":       "",
				"structured": json.RawMessage(structured),
			})
		}
	}
}

type fixture struct {
	orch     *Orchestrator
	store    *profile.RedisStore
	provider *scriptedProvider
}

func newFixture(t *testing.T, responses map[string]interface{}) *fixture {
	provider := &scriptedProvider{t: t, responses: responses}
	server := httptest.NewServer(provider.handler())
	t.Cleanup(server.Close)

	log := logger.NewTestLogger(t)
	client := llm.NewHTTPClient(&llm.Config{BaseURL: server.URL}, log)
	sanitizer := security.Default()
	events := security.NewEventRecorder(log)

	mr := miniredis.RunT(t)
	redisClient := &database.RedisClient{Client: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
	t.Cleanup(func() { _ = redisClient.Close() })
	store := profile.NewRedisStore(redisClient, config.ProfileConfig{KeyPrefix: "user:profile:"}, log)

	call := func(maxTokens, timeout int, temp float64) config.CallConfig {
		return config.CallConfig{MaxTokens: maxTokens, Timeout: timeout, Temperature: temp}
	}
	r := router.NewHandler(&router.Config{Model: "gpt-3.5-turbo", Call: call(200, 15000, 0.1)}, client, sanitizer, events, log)
	g := general.NewHandler(&general.Config{Model: "gpt-3.5-turbo", Call: call(500, 20000, 0.7)}, client, sanitizer, events, log)
	p := personalized.NewHandler(&personalized.Config{Model: "gpt-4", Call: call(1000, 30000, 0.7)}, client, sanitizer, events, log)

	return &fixture{
		orch:     New(r, g, p, store, nil, log),
		store:    store,
		provider: provider,
	}
}

func TestInvokeSimpleRouterAnswer(t *testing.T) {
	f := newFixture(t, map[string]interface{}{
		"router": map[string]interface{}{
			"needs_user_data": false,
			"message_type":    "general",
			"simple_response": "A 401k is an employer-sponsored retirement account.",
		},
	})

	resp := f.orch.Invoke(context.Background(), &Request{Message: "What is a 401k?", UserID: "user-1"})

	assert.Equal(t, "A 401k is an employer-sponsored retirement account.", resp.Message)
	assert.False(t, resp.UsedUserData)
	assert.Equal(t, []string{"router"}, f.provider.calls, "a usable simple answer skips every other model call")
}

func TestInvokeShortSimpleAnswerGoesToGeneral(t *testing.T) {
	f := newFixture(t, map[string]interface{}{
		"router": map[string]interface{}{
			"needs_user_data": false,
			"message_type":    "general",
			"simple_response": "Yes.",
		},
		"general": "Index funds spread risk across the whole market.",
	})

	resp := f.orch.Invoke(context.Background(), &Request{Message: "Are index funds diversified?", UserID: "user-1"})

	assert.Equal(t, "Index funds spread risk across the whole market.", resp.Message)
	assert.False(t, resp.UsedUserData)
	assert.Equal(t, []string{"router", "general"}, f.provider.calls)
}

func TestInvokeNoProfilePromptsForDetails(t *testing.T) {
	f := newFixture(t, map[string]interface{}{
		"router": map[string]interface{}{
			"needs_user_data": true,
			"message_type":    "financial",
		},
	})

	resp := f.orch.Invoke(context.Background(), &Request{Message: "How much should I be saving?", UserID: "user-1"})

	assert.Equal(t, NoProfilePrompt, resp.Message)
	assert.False(t, resp.UsedUserData)
	assert.Equal(t, []string{"router"}, f.provider.calls, "the expensive path is never called without a profile")
}

func TestInvokePersonalizedExtractsAndPersists(t *testing.T) {
	f := newFixture(t, map[string]interface{}{
		"router": map[string]interface{}{
			"needs_user_data": true,
			"message_type":    "financial",
		},
		"personalized": map[string]interface{}{
			"message": "With $75,000 income and $10,000 saved, a five year house goal is realistic.",
			"personalInfo": map[string]interface{}{
				"age": 30, "employment": "full-time", "name": "Sam",
			},
			"financialInfo": map[string]interface{}{
				"income": 75000, "savings": 10000, "expenses": 3000, "debt": 0,
			},
			"goals": []map[string]interface{}{
				{"title": "Buy a house", "category": "financial", "status": "active"},
			},
		},
	})

	ctx := context.Background()
	require.NoError(t, f.store.Update(ctx, "user-1", &profile.Profile{
		PersonalInfo: map[string]interface{}{"name": "Sam"},
	}))

	resp := f.orch.Invoke(ctx, &Request{
		Message: "I make $75,000 per year and have $10,000 in savings. I want to buy a house in 5 years.",
		UserID:  "user-1",
	})

	assert.True(t, resp.UsedUserData)
	assert.Contains(t, resp.Message, "realistic")
	assert.Equal(t, 75000.0, resp.FinancialInfo["income"])
	assert.Equal(t, []string{"router", "personalized"}, f.provider.calls)

	stored, err := f.store.Get(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, 75000.0, stored.FinancialInfo["income"])
	require.Len(t, stored.Goals, 1)
	assert.Equal(t, "Buy a house", stored.Goals[0].Title)
}

func TestInvokeLowConfidenceExtractionNotPersisted(t *testing.T) {
	f := newFixture(t, map[string]interface{}{
		"router": map[string]interface{}{
			"needs_user_data": true,
			"message_type":    "personal",
		},
		"personalized": map[string]interface{}{
			"message":       "Happy to help once I know more.",
			"financialInfo": map[string]interface{}{"income": 75000},
		},
	})

	ctx := context.Background()
	require.NoError(t, f.store.Update(ctx, "user-1", &profile.Profile{
		PersonalInfo: map[string]interface{}{"name": "Sam"},
	}))

	resp := f.orch.Invoke(ctx, &Request{Message: "Any thoughts on my situation?", UserID: "user-1"})
	assert.True(t, resp.UsedUserData)

	stored, err := f.store.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, stored.FinancialInfo, "a weak extraction must not touch the profile")
}

func TestInvokeTaintedInputFailsClosed(t *testing.T) {
	f := newFixture(t, map[string]interface{}{})

	resp := f.orch.Invoke(context.Background(), &Request{
		Message: "my password is hunter2",
		UserID:  "user-1",
	})

	assert.Equal(t, router.SecurityFallback, resp.Message)
	assert.False(t, resp.UsedUserData)
	assert.Empty(t, f.provider.calls, "tainted input never reaches the provider")
}

func TestInvokeRouterFailureFailsOpen(t *testing.T) {
	// No scripted responses: every provider call returns 500, so the router
	// decision fails open toward the personalized path. With no profile the
	// turn still gets a usable reply.
	f := newFixture(t, map[string]interface{}{})

	resp := f.orch.Invoke(context.Background(), &Request{Message: "How am I doing financially?", UserID: "nobody"})

	assert.Equal(t, NoProfilePrompt, resp.Message)
	assert.False(t, resp.UsedUserData)
	assert.Equal(t, []string{"router"}, f.provider.calls)
}

func TestInvokeNeverPanicsOutward(t *testing.T) {
	f := newFixture(t, map[string]interface{}{})
	f.orch.router = nil // force a nil dereference inside the pipeline

	resp := f.orch.Invoke(context.Background(), &Request{Message: "hello", UserID: "user-1"})

	assert.Equal(t, CatchAllFallback, resp.Message)
	assert.False(t, resp.UsedUserData)
}

func TestRequestRoundTripsAsJSON(t *testing.T) {
	raw := fmt.Sprintf(`{"message": %q, "userId": "user-1"}`, "What is a 401k?")
	var req Request
	require.NoError(t, json.Unmarshal([]byte(raw), &req))
	assert.Equal(t, "What is a 401k?", req.Message)
}
