// Package guardrail decides whether a question belongs to the kost domain
// before any other processing.
package guardrail

import (
	"context"
	_ "embed"
	"errors"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/m-mizutani/goerr/v2"
	"github.com/sabrinaskaa/chatbot-binara/pkg/llm"
	"github.com/sabrinaskaa/chatbot-binara/pkg/metrics"
	"github.com/sabrinaskaa/chatbot-binara/pkg/model"
	"github.com/sabrinaskaa/chatbot-binara/pkg/utils/logging"
)

//go:embed prompt/system.md
var systemInstruction string

// Sources reported to metrics
const (
	SourceBackend = "backend"
	SourceLocal   = "local"
)

// Classifier asks the generative backend for a scope decision and falls
// back to LocalClassify when the backend cannot serve
type Classifier struct {
	client  llm.Client
	policy  *Policy
	metrics *metrics.Metrics
}

type Option func(*Classifier)

// WithPolicy evaluates p after every decision
func WithPolicy(p *Policy) Option {
	return func(c *Classifier) {
		c.policy = p
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Classifier) {
		c.metrics = m
	}
}

// New creates a classifier. A nil client always uses the local classifier.
func New(client llm.Client, opts ...Option) *Classifier {
	c := &Classifier{client: client}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func responseSchema() *jsonschema.Schema {
	topics := make([]any, 0, len(model.Topics()))
	for _, t := range model.Topics() {
		topics = append(topics, string(t))
	}

	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"in_scope": {Type: "boolean"},
			"intent":   {Type: "string", Enum: topics},
		},
		Required: []string{"in_scope", "intent"},
	}
}

// Classify returns the scope decision for question. Only backend failures
// other than unavailability or malformed output are returned as errors.
func (c *Classifier) Classify(ctx context.Context, question string) (model.GuardrailResult, error) {
	result, source, err := c.classify(ctx, question)
	if err != nil {
		return model.GuardrailResult{}, err
	}

	if c.policy != nil {
		deny, err := c.policy.Deny(ctx, question, result)
		if err != nil {
			logging.From(ctx).Warn("guardrail policy failed, ignoring it", "error", err)
		} else if deny {
			result = model.GuardrailResult{InScope: false, Intent: model.TopicOther}
		}
	}

	c.metrics.ObserveGuardrail(source, result.InScope)
	return result, nil
}

func (c *Classifier) classify(ctx context.Context, question string) (model.GuardrailResult, string, error) {
	if c.client == nil {
		return LocalClassify(question), SourceLocal, nil
	}

	var result model.GuardrailResult
	err := c.client.GenerateJSON(ctx, question, responseSchema(), &result,
		llm.WithSystemInstruction(systemInstruction),
		llm.WithTemperature(0),
	)
	if err == nil && result.Intent.Validate() != nil {
		err = goerr.Wrap(llm.ErrMalformedOutput, "guardrail topic outside of the topic set", goerr.V("intent", result.Intent))
	}

	switch {
	case err == nil:
		return result, SourceBackend, nil

	case errors.Is(err, llm.ErrUnavailable):
		logging.From(ctx).Debug("backend unavailable, using local guardrail", "error", err)
		return LocalClassify(question), SourceLocal, nil

	case errors.Is(err, llm.ErrMalformedOutput):
		logging.From(ctx).Warn("malformed guardrail output, using local guardrail", "error", err)
		return LocalClassify(question), SourceLocal, nil

	default:
		return model.GuardrailResult{}, "", goerr.Wrap(err, "failed to classify question scope")
	}
}

// SystemInstructionForTest exposes the fixed system instruction
func SystemInstructionForTest() string {
	return systemInstruction
}
