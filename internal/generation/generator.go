package generation

import (
	"context"
	"encoding/json"
)

// Message is one role/content pair in a request's input.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a single structured call to the external generative-text API.
// The schema is sent as a strict json_schema output format and is also used
// to validate the response before it reaches a processor.
type Request struct {
	Model           string
	Input           []Message
	MaxOutputTokens int
	SchemaName      string
	Schema          map[string]any
}

// Generator defines the interface for issuing structured generation requests.
// This interface is the boundary between the job pipeline and the external
// provider; the platform implementation owns retries, backoff, and error
// classification.
type Generator interface {
	// Generate sends the request and returns the raw JSON text of the first
	// output_text content item, already validated against req.Schema.
	// Failures are returned as *Error with a classified code.
	Generate(ctx context.Context, req Request) (json.RawMessage, error)
}
