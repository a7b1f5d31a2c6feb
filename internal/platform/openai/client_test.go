package openai

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/phrazzld/briefly-api/internal/config"
	"github.com/phrazzld/briefly-api/internal/domain"
	"github.com/phrazzld/briefly-api/internal/generation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	client, err := NewClient(testLogger(), config.LLMConfig{
		APIKey:                "test-key",
		BaseURL:               serverURL,
		Model:                 "gpt-4o-mini",
		PromptVersion:         "v1",
		Temperature:           0.3,
		RequestTimeoutSeconds: 5,
	})
	require.NoError(t, err)
	// Keep backoff sleeps short in tests.
	client.baseDelay = 5 * time.Millisecond
	client.jitterMax = time.Millisecond
	return client
}

func summaryRequest() generation.Request {
	return generation.Request{
		Model:           "gpt-4o-mini",
		Input:           []generation.Message{{Role: "user", Content: "body"}},
		MaxOutputTokens: 2048,
		SchemaName:      generation.SchemaNameSummary,
		Schema:          generation.SummarySchema(),
	}
}

func successEnvelope(t *testing.T, payload any) []byte {
	t.Helper()
	text, err := json.Marshal(payload)
	require.NoError(t, err)
	envelope := map[string]any{
		"output": []map[string]any{
			{
				"type": "message",
				"content": []map[string]any{
					{"type": "output_text", "text": string(text)},
				},
			},
		},
	}
	raw, err := json.Marshal(envelope)
	require.NoError(t, err)
	return raw
}

func TestGenerateSuccess(t *testing.T) {
	var gotBody responsesRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "/responses", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Write(successEnvelope(t, generation.SummaryPayload{
			Summary3:    []string{"a", "b", "c"},
			SummaryFull: "full",
		}))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	raw, err := client.Generate(context.Background(), summaryRequest())
	require.NoError(t, err)

	var payload generation.SummaryPayload
	require.NoError(t, json.Unmarshal(raw, &payload))
	assert.Equal(t, []string{"a", "b", "c"}, payload.Summary3)

	// Wire format assertions
	assert.Equal(t, "auto", gotBody.Truncation)
	assert.False(t, gotBody.Store)
	assert.Equal(t, "json_schema", gotBody.Text.Format.Type)
	assert.True(t, gotBody.Text.Format.Strict)
	assert.Equal(t, generation.SchemaNameSummary, gotBody.Text.Format.Name)
	assert.Equal(t, 0.3, gotBody.Temperature)
}

// The sampling temperature on the wire comes from the client's own
// configuration, not from anything the pipeline builds per stage.
func TestGenerateUsesConfiguredTemperature(t *testing.T) {
	var gotBody responsesRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write(successEnvelope(t, generation.SummaryPayload{
			Summary3:    []string{"a", "b", "c"},
			SummaryFull: "full",
		}))
	}))
	defer server.Close()

	client, err := NewClient(testLogger(), config.LLMConfig{
		APIKey:                "test-key",
		BaseURL:               server.URL,
		Model:                 "gpt-4o-mini",
		PromptVersion:         "v1",
		Temperature:           0.7,
		RequestTimeoutSeconds: 5,
	})
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), summaryRequest())
	require.NoError(t, err)
	assert.Equal(t, 0.7, gotBody.Temperature)
}

// Two 429s then success: the client retries through exactly three attempts.
func TestGenerateRetriesRateLimitThenSucceeds(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":{"code":"rate_limit_exceeded","message":"slow down"}}`))
			return
		}
		w.Write(successEnvelope(t, generation.SummaryPayload{
			Summary3:    []string{"a", "b", "c"},
			SummaryFull: "full",
		}))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Generate(context.Background(), summaryRequest())
	require.NoError(t, err)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestGenerateRateLimitExhaustion(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"code":"rate_limit_exceeded","message":"slow down"}}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Generate(context.Background(), summaryRequest())
	require.Error(t, err)
	assert.Equal(t, int32(3), attempts.Load())
	assert.ErrorIs(t, err, generation.ErrRateLimited)
	assert.Equal(t, domain.ErrCodeAPIRateLimit, generation.CodeOf(err))
}

func TestGenerateServerErrorExhaustion(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Generate(context.Background(), summaryRequest())
	require.Error(t, err)
	assert.Equal(t, int32(3), attempts.Load())
	assert.ErrorIs(t, err, generation.ErrAPIFailure)
	assert.Equal(t, domain.ErrCodeAPIFailure, generation.CodeOf(err))
}

// A 401 fails immediately with no retry attempted.
func TestGenerateAuthFailureNoRetry(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"code":"invalid_api_key","message":"bad key"}}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Generate(context.Background(), summaryRequest())
	require.Error(t, err)
	assert.Equal(t, int32(1), attempts.Load())
	assert.Equal(t, domain.ErrCodeInvalidAPIKey, generation.CodeOf(err))
}

func TestGenerateQuotaExhaustedOn429(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"code":"insufficient_quota","message":"quota exhausted"}}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Generate(context.Background(), summaryRequest())
	require.Error(t, err)
	assert.Equal(t, int32(1), attempts.Load(), "terminal quota errors must not consume retries")
	assert.Equal(t, domain.ErrCodeQuotaExceeded, generation.CodeOf(err))
}

func TestGenerateClassification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode domain.ErrorCode
	}{
		{"payment required", http.StatusPaymentRequired, `{}`, domain.ErrCodeInsufficientBalance},
		{"forbidden", http.StatusForbidden, `{}`, domain.ErrCodeAccessDenied},
		{"bad request", http.StatusBadRequest, `{}`, domain.ErrCodeBadRequest},
		{"quota via code", http.StatusForbidden, `{"error":{"code":"insufficient_quota"}}`, domain.ErrCodeQuotaExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := newTestClient(t, server.URL)
			_, err := client.Generate(context.Background(), summaryRequest())
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, generation.CodeOf(err))
		})
	}
}

func TestGenerateRejectsOffSchemaResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(successEnvelope(t, map[string]any{
			"summary3": []string{"only", "two"},
		}))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Generate(context.Background(), summaryRequest())
	require.Error(t, err)
	assert.Equal(t, domain.ErrCodeInvalidResponse, generation.CodeOf(err))

	var genErr *generation.Error
	assert.True(t, errors.As(err, &genErr))
}

func TestGenerateNoOutputText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"output":[{"type":"reasoning","content":[]}]}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Generate(context.Background(), summaryRequest())
	require.Error(t, err)
	assert.Equal(t, domain.ErrCodeInvalidResponse, generation.CodeOf(err))
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(nil, config.LLMConfig{APIKey: "k", BaseURL: "http://x"})
	assert.Error(t, err)

	_, err = NewClient(testLogger(), config.LLMConfig{BaseURL: "http://x"})
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)

	_, err = NewClient(testLogger(), config.LLMConfig{APIKey: "k"})
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)
}
