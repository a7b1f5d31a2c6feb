// Package openai implements the generation.Generator interface against the
// OpenAI Responses API. It owns transport, bounded retries with exponential
// backoff and jitter, per-attempt timeouts, and error classification into
// the pipeline's failure taxonomy.
package openai
