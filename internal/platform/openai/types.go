package openai

import (
	"encoding/json"

	"github.com/phrazzld/briefly-api/internal/generation"
)

// responsesRequest is the wire shape of one Responses API call.
type responsesRequest struct {
	Model           string               `json:"model"`
	Input           []generation.Message `json:"input"`
	Temperature     float64              `json:"temperature"`
	MaxOutputTokens int                  `json:"max_output_tokens"`
	Truncation      string               `json:"truncation"`
	Store           bool                 `json:"store"`
	Text            textOptions          `json:"text"`
}

type textOptions struct {
	Format textFormat `json:"format"`
}

type textFormat struct {
	Type   string         `json:"type"`
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

// responsesResponse is the subset of the Responses API reply we consume.
type responsesResponse struct {
	Output []outputItem `json:"output"`
	Error  *apiError    `json:"error,omitempty"`
}

type outputItem struct {
	Type    string        `json:"type"`
	Content []contentItem `json:"content"`
}

type contentItem struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// apiError is the provider's error envelope, also returned on non-2xx
// statuses.
type apiError struct {
	Code    string `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

// errorBody wraps apiError the way the provider nests it on HTTP errors.
type errorBody struct {
	Error apiError `json:"error"`
}

// firstOutputText scans the response for the first output_text content item.
func (r *responsesResponse) firstOutputText() (json.RawMessage, bool) {
	for _, item := range r.Output {
		for _, content := range item.Content {
			if content.Type == "output_text" && content.Text != "" {
				return json.RawMessage(content.Text), true
			}
		}
	}
	return nil, false
}
