// Package llm wraps the remote LLM provider behind a small client interface.
// The provider is opaque: prompt plus optional schema in, text or structured
// JSON out. Quota, network, and timeout problems surface as provider errors.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	cerrors "finplan-assistant/internal/common/errors"
	"finplan-assistant/internal/common/logger"
	"finplan-assistant/internal/common/metrics"
)

// Message is one turn of conversation context sent to the provider.
type Message struct {
	Role    string `json:"role"` // system, user, assistant
	Content string `json:"content"`
}

// Request describes a single completion call.
type Request struct {
	Purpose        string          `json:"-"` // router, general, personalized, plan
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	MaxTokens      int             `json:"max_tokens"`
	Temperature    float64         `json:"temperature"`
	ResponseSchema json.RawMessage `json:"response_schema,omitempty"`
}

// Response is the provider's answer. Structured is only set when the request
// carried a response schema.
type Response struct {
	Text       string          `json:"text"`
	Structured json.RawMessage `json:"structured,omitempty"`
}

// Client is the provider collaborator used by every pipeline component.
type Client interface {
	Complete(ctx context.Context, req *Request) (*Response, error)
}

type Config struct {
	BaseURL    string
	APIKey     string
	MaxRetries int
}

// HTTPClient talks to the provider's completion endpoint. Cancellation and
// deadlines come from the caller's context only.
type HTTPClient struct {
	config *Config
	client *http.Client
	logger logger.Logger
}

func NewHTTPClient(config *Config, log logger.Logger) *HTTPClient {
	return &HTTPClient{
		config: config,
		client: &http.Client{
			// No client timeout, rely only on context
		},
		logger: log.WithFields(map[string]interface{}{"component": "llm"}),
	}
}

func (c *HTTPClient) Complete(ctx context.Context, req *Request) (*Response, error) {
	start := time.Now()
	resp, err := c.complete(ctx, req)
	metrics.LLMCallDuration.WithLabelValues(req.Purpose).Observe(time.Since(start).Seconds())
	if err != nil {
		code := string(cerrors.ErrCodeLLMCallFailed)
		var stdErr *cerrors.StandardError
		if errors.As(err, &stdErr) {
			code = string(stdErr.Code)
		}
		metrics.LLMCallFailures.WithLabelValues(req.Purpose, code).Inc()
		c.logger.Warn("provider call failed", map[string]interface{}{
			"purpose":   req.Purpose,
			"errorCode": code,
			"retryable": cerrors.IsRetryableErrorCode(cerrors.ErrorCode(code)),
		})
	}
	return resp, err
}

func (c *HTTPClient) complete(ctx context.Context, req *Request) (*Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, cerrors.NewLLMCallFailedError(fmt.Errorf("encode request: %w", err))
	}

	var resp *http.Response
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff between attempts
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, cerrors.NewLLMTimeoutError(ctx.Err().Error())
			}
		}

		httpReq, err := http.NewRequestWithContext(ctx, "POST", c.config.BaseURL+"/api/ai/complete", bytes.NewReader(body))
		if err != nil {
			return nil, cerrors.NewLLMCallFailedError(err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		if c.config.APIKey != "" {
			httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
		}

		resp, lastErr = c.client.Do(httpReq)

		// If the context expired during the request, report timeout immediately.
		if ctx.Err() != nil ||
			errors.Is(lastErr, context.DeadlineExceeded) ||
			errors.Is(lastErr, context.Canceled) {
			return nil, cerrors.NewLLMTimeoutError("provider call exceeded deadline")
		}

		if lastErr == nil {
			if resp.StatusCode == http.StatusOK {
				break
			}
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			resp = nil
		}
	}

	if lastErr != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, cerrors.NewLLMTimeoutError("provider call exceeded deadline")
		}
		return nil, cerrors.NewLLMCallFailedError(lastErr)
	}

	if resp == nil {
		return nil, cerrors.NewLLMCallFailedError(fmt.Errorf("no successful response after retries"))
	}
	defer resp.Body.Close()

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, cerrors.NewLLMCallFailedError(fmt.Errorf("decode error: %w", err))
	}

	c.logger.Debug("completion received", map[string]interface{}{
		"purpose":       req.Purpose,
		"model":         req.Model,
		"textLength":    len(out.Text),
		"hasStructured": len(out.Structured) > 0,
	})

	return &out, nil
}
