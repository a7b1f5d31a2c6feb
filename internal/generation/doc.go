// Package generation provides interfaces and types for interacting with the
// external generative-text API. It abstracts the provider integration behind
// a single structured-request operation, allowing stage processors to build
// requests and consume shaped responses without coupling to the provider's
// transport or retry behavior.
package generation
