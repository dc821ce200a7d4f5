// Package tool turns a user message into one of the fixed domain operations
// and executes it against the data gateway.
package tool

import (
	"bytes"
	"context"
	_ "embed"
	"text/template"
	"time"

	"github.com/sabrinaskaa/chatbot-binara/pkg/interfaces"
	"github.com/sabrinaskaa/chatbot-binara/pkg/llm"
	"github.com/sabrinaskaa/chatbot-binara/pkg/metrics"
	"github.com/sabrinaskaa/chatbot-binara/pkg/model"
	"github.com/sabrinaskaa/chatbot-binara/pkg/utils/logging"
)

//go:embed prompt/schema.md
var schemaPromptRaw string

var schemaPromptTmpl = template.Must(template.New("schema").Parse(schemaPromptRaw))

// ApologyAnswer is the NoneCall answer when the backend cannot decide
const ApologyAnswer = "Maaf, aku lagi nggak bisa memproses permintaan itu. Coba lagi sebentar lagi ya."

// Router decides tool calls with the generative backend and dispatches them
type Router struct {
	client   llm.Client
	registry *Registry
	metrics  *metrics.Metrics
	now      func() time.Time
}

type Option func(*Router)

// WithClient sets the backend used by Decide
func WithClient(client llm.Client) Option {
	return func(r *Router) {
		r.client = client
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Router) {
		r.metrics = m
	}
}

// WithClock replaces time.Now for created records and the prompt date
func WithClock(now func() time.Time) Option {
	return func(r *Router) {
		r.now = now
	}
}

func NewRouter(gateway interfaces.Gateway, opts ...Option) *Router {
	r := &Router{now: time.Now}
	for _, opt := range opts {
		opt(r)
	}

	r.registry = NewRegistry(
		&listRooms{gateway: gateway},
		&createVisit{gateway: gateway, now: r.now},
		&createTicket{gateway: gateway, now: r.now},
		&checkUnpaid{gateway: gateway},
	)
	return r
}

func (r *Router) systemInstruction() (string, error) {
	var buf bytes.Buffer
	if err := schemaPromptTmpl.Execute(&buf, struct{ Today string }{
		Today: r.now().Format(model.DateLayout),
	}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Decide asks the backend which tool fits message. It always returns a
// usable Call; failures become a NoneCall with ApologyAnswer.
func (r *Router) Decide(ctx context.Context, message string) Call {
	logger := logging.From(ctx)
	if r.client == nil {
		return NoneCall{Answer: ApologyAnswer}
	}

	instruction, err := r.systemInstruction()
	if err != nil {
		logger.Error("failed to render tool schema prompt", "error", err)
		return NoneCall{Answer: ApologyAnswer}
	}

	raw, err := r.client.Generate(ctx, message,
		llm.WithSystemInstruction(instruction),
		llm.WithTemperature(0),
	)
	if err != nil {
		logger.Warn("failed to decide tool call", "error", err)
		return NoneCall{Answer: ApologyAnswer}
	}

	call := Parse(raw)
	logger.Debug("tool call decided", "tool", call.Tool())
	return call
}

// Dispatch executes call. A NoneCall returns its answer.
func (r *Router) Dispatch(ctx context.Context, call Call) Result {
	result := r.registry.Execute(ctx, call)
	if call.Tool() != NameNone {
		r.metrics.ObserveTool(string(call.Tool()), result.Outcome())
	}
	return result
}

// Tools returns the names of dispatchable tools
func (r *Router) Tools() []Name {
	return r.registry.Names()
}
