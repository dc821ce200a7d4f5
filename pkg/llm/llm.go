// Package llm is the contract with the generative backend and its implementations.
package llm

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/m-mizutani/goerr/v2"
)

var (
	// ErrUnavailable marks failures where the backend refused or could not serve in
	// time: quota and rate limits, overload, and call deadlines. Callers downgrade
	// to a local path on this error.
	ErrUnavailable = goerr.New("generative backend unavailable")

	// ErrMalformedOutput is returned when structured output does not match the schema
	ErrMalformedOutput = goerr.New("malformed structured output")

	// ErrEmptyResponse is returned when the backend answers with no text
	ErrEmptyResponse = goerr.New("empty response from generative backend")
)

// Client generates text from a prompt
type Client interface {
	// Generate returns free text for the prompt
	Generate(ctx context.Context, prompt string, opts ...Option) (string, error)

	// GenerateJSON asks for output restricted to schema and decodes it into out
	GenerateJSON(ctx context.Context, text string, schema *jsonschema.Schema, out any, opts ...Option) error
}

// Request holds per-call settings
type Request struct {
	SystemInstruction string
	Temperature       *float32
}

type Option func(*Request)

func WithSystemInstruction(instruction string) Option {
	return func(r *Request) {
		r.SystemInstruction = instruction
	}
}

func WithTemperature(t float32) Option {
	return func(r *Request) {
		r.Temperature = &t
	}
}

// NewRequest applies options to an empty request
func NewRequest(opts ...Option) *Request {
	r := &Request{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}
