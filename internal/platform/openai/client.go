package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/phrazzld/briefly-api/internal/config"
	"github.com/phrazzld/briefly-api/internal/domain"
	"github.com/phrazzld/briefly-api/internal/generation"
)

// Retry policy for transient provider failures.
const (
	maxAttempts = 3
	baseDelay   = 400 * time.Millisecond
	jitterMax   = 200 * time.Millisecond
)

// Client implements generation.Generator against the OpenAI Responses API.
type Client struct {
	logger      *slog.Logger
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	timeout     time.Duration
	temperature float64

	// Overridable in tests to keep backoff sleeps short.
	baseDelay time.Duration
	jitterMax time.Duration
	rng       *rand.Rand
}

// NewClient creates a Client from LLM configuration.
func NewClient(logger *slog.Logger, cfg config.LLMConfig) (*Client, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: API key cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: base URL cannot be empty", generation.ErrInvalidConfig)
	}

	timeout := time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &Client{
		logger:      logger,
		httpClient:  &http.Client{},
		apiKey:      cfg.APIKey,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		timeout:     timeout,
		temperature: cfg.Temperature,
		baseDelay:   baseDelay,
		jitterMax:   jitterMax,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// Generate sends one structured request, retrying transient failures up to
// maxAttempts with exponential backoff plus jitter. Non-retryable provider
// errors are classified immediately without consuming remaining attempts.
func (c *Client) Generate(ctx context.Context, req generation.Request) (json.RawMessage, error) {
	body, err := json.Marshal(responsesRequest{
		Model:           req.Model,
		Input:           req.Input,
		Temperature:     c.temperature,
		MaxOutputTokens: req.MaxOutputTokens,
		Truncation:      "auto",
		Store:           false,
		Text: textOptions{
			Format: textFormat{
				Type:   "json_schema",
				Name:   req.SchemaName,
				Strict: true,
				Schema: req.Schema,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var lastStatus int
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		c.logger.DebugContext(ctx, "calling generative API",
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"model", req.Model,
			"schema", req.SchemaName)

		raw, status, err := c.post(ctx, body)
		lastStatus = status
		lastErr = err

		switch {
		case err != nil:
			// Network failure or per-attempt timeout: transient.
			c.logger.WarnContext(ctx, "generative API call failed",
				"attempt", attempt, "error", err)

		case status == http.StatusTooManyRequests || status >= 500:
			// The provider reports quota exhaustion as a 429 with an
			// insufficient_quota code; that is terminal, not transient.
			if status == http.StatusTooManyRequests && hasProviderCode(raw, "insufficient_quota") {
				return nil, classifyHTTPError(status, raw)
			}
			c.logger.WarnContext(ctx, "generative API returned retryable status",
				"attempt", attempt, "status", status)
			lastErr = fmt.Errorf("provider status %d", status)

		case status >= 400:
			// Non-retryable 4xx: classify and fail immediately.
			return nil, classifyHTTPError(status, raw)

		default:
			text, perr := c.extractOutput(raw)
			if perr != nil {
				return nil, perr
			}
			if verr := generation.ValidateResponse(req.SchemaName, text); verr != nil {
				return nil, generation.NewError(domain.ErrCodeInvalidResponse, verr)
			}
			return text, nil
		}

		if attempt == maxAttempts {
			break
		}

		delay := c.backoffDelay(attempt)
		c.logger.DebugContext(ctx, "retrying after backoff",
			"attempt", attempt, "delay", delay)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, generation.NewError(domain.ErrCodeAPIFailure,
				fmt.Errorf("%w: %v", generation.ErrAPIFailure, ctx.Err()))
		}
	}

	if lastStatus == http.StatusTooManyRequests {
		return nil, generation.NewError(domain.ErrCodeAPIRateLimit,
			fmt.Errorf("%w: exhausted %d attempts", generation.ErrRateLimited, maxAttempts))
	}
	return nil, generation.NewError(domain.ErrCodeAPIFailure,
		fmt.Errorf("%w: exhausted %d attempts: %v", generation.ErrAPIFailure, maxAttempts, lastErr))
}

// post performs one attempt under its own timeout. A non-nil error means the
// request never produced an HTTP response.
func (c *Client) post(ctx context.Context, body []byte) ([]byte, int, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(
		attemptCtx, http.MethodPost, c.baseURL+"/responses", bytes.NewReader(body))
	if err != nil {
		return nil, 0, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, 0, fmt.Errorf("provider http error: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Warn("provider response body close error", "error", cerr)
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read provider response: %w", err)
	}

	return raw, resp.StatusCode, nil
}

func (c *Client) extractOutput(raw []byte) (json.RawMessage, error) {
	var parsed responsesResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, generation.NewError(domain.ErrCodeInvalidResponse,
			fmt.Errorf("%w: decode response envelope: %v", generation.ErrInvalidResponse, err))
	}
	if parsed.Error != nil {
		return nil, generation.NewError(domain.ErrCodeInvalidResponse,
			fmt.Errorf("%w: provider error in 2xx response: %s", generation.ErrInvalidResponse, parsed.Error.Message))
	}
	text, ok := parsed.firstOutputText()
	if !ok {
		return nil, generation.NewError(domain.ErrCodeInvalidResponse,
			fmt.Errorf("%w: no output_text content item", generation.ErrInvalidResponse))
	}
	return text, nil
}

// backoffDelay computes base * 2^(attempt-1) plus random jitter in
// [0, jitterMax).
func (c *Client) backoffDelay(attempt int) time.Duration {
	delay := c.baseDelay << (attempt - 1)
	if c.jitterMax > 0 {
		delay += time.Duration(c.rng.Int63n(int64(c.jitterMax)))
	}
	return delay
}

// hasProviderCode reports whether the error body carries the given code.
func hasProviderCode(raw []byte, code string) bool {
	var body errorBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return false
	}
	return body.Error.Code == code || body.Error.Type == code
}

// classifyHTTPError maps a non-retryable 4xx to a classified failure.
// Quota and auth conditions are suspendable; everything else is a malformed
// request on our side.
func classifyHTTPError(status int, raw []byte) *generation.Error {
	var body errorBody
	_ = json.Unmarshal(raw, &body)

	providerCode := body.Error.Code
	if providerCode == "" {
		providerCode = body.Error.Type
	}

	msg := body.Error.Message
	if msg == "" {
		msg = string(raw)
	}
	err := fmt.Errorf("provider status %d (%s): %s", status, providerCode, msg)

	switch {
	case providerCode == "insufficient_quota":
		return generation.NewError(domain.ErrCodeQuotaExceeded, err)
	case status == http.StatusPaymentRequired:
		return generation.NewError(domain.ErrCodeInsufficientBalance, err)
	case status == http.StatusUnauthorized:
		return generation.NewError(domain.ErrCodeInvalidAPIKey, err)
	case status == http.StatusForbidden:
		return generation.NewError(domain.ErrCodeAccessDenied, err)
	default:
		return generation.NewError(domain.ErrCodeBadRequest, err)
	}
}
