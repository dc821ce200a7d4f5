// Package chat answers one user message at a time by walking the guardrail,
// grounded, tool and generative tiers in order.
package chat

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"text/template"

	"github.com/m-mizutani/goerr/v2"
	"github.com/sabrinaskaa/chatbot-binara/pkg/interfaces"
	"github.com/sabrinaskaa/chatbot-binara/pkg/llm"
	"github.com/sabrinaskaa/chatbot-binara/pkg/memory"
	"github.com/sabrinaskaa/chatbot-binara/pkg/metrics"
	"github.com/sabrinaskaa/chatbot-binara/pkg/model"
	"github.com/sabrinaskaa/chatbot-binara/pkg/tool"
	"github.com/sabrinaskaa/chatbot-binara/pkg/utils/logging"
)

//go:embed prompt/persona.md
var personaPrompt string

//go:embed prompt/answer.md
var answerPromptRaw string

var answerPromptTmpl = template.Must(template.New("answer").Parse(answerPromptRaw))

const (
	// ToolThreshold is the confidence below which the tool router decides
	ToolThreshold = 0.55

	// ContextTurns is the number of turns before the current message given to the generative backend
	ContextTurns = 6

	answerTemperature = 0.3
)

// actionIntents always go to the tool router
var actionIntents = map[string]bool{
	model.IntentBookVisit:    true,
	model.IntentCreateTicket: true,
	model.IntentCheckUnpaid:  true,
}

type GuardrailClassifier interface {
	Classify(ctx context.Context, question string) (model.GuardrailResult, error)
}

type IntentClassifier interface {
	Classify(text string) model.IntentResult
}

type ToolRouter interface {
	Decide(ctx context.Context, message string) tool.Call
	Dispatch(ctx context.Context, call tool.Call) tool.Result
}

// Input contains the collaborators of an Orchestrator
type Input struct {
	Memory    *memory.Store
	Guardrail GuardrailClassifier
	Intent    IntentClassifier
	Router    ToolRouter
	Gateway   interfaces.Gateway
	Client    llm.Client
	Metrics   *metrics.Metrics

	// Fallback enables the tool and generative tiers
	Fallback bool

	// KostID scopes context lookups. Empty means model.DefaultKostID.
	KostID model.KostID
}

// Orchestrator produces the reply for a message
type Orchestrator struct {
	memory    *memory.Store
	guardrail GuardrailClassifier
	intent    IntentClassifier
	router    ToolRouter
	gateway   interfaces.Gateway
	client    llm.Client
	metrics   *metrics.Metrics
	fallback  bool
	kostID    model.KostID
}

func New(input Input) (*Orchestrator, error) {
	switch {
	case input.Memory == nil:
		return nil, goerr.Wrap(model.ErrConfiguration, "memory store is required")
	case input.Guardrail == nil:
		return nil, goerr.Wrap(model.ErrConfiguration, "guardrail classifier is required")
	case input.Intent == nil:
		return nil, goerr.Wrap(model.ErrConfiguration, "intent classifier is required")
	case input.Router == nil:
		return nil, goerr.Wrap(model.ErrConfiguration, "tool router is required")
	case input.Gateway == nil:
		return nil, goerr.Wrap(model.ErrConfiguration, "data gateway is required")
	case input.Fallback && input.Client == nil:
		return nil, goerr.Wrap(model.ErrConfiguration, "generative backend is required when fallback is enabled")
	}

	kostID := input.KostID
	if kostID == "" {
		kostID = model.DefaultKostID
	}

	return &Orchestrator{
		memory:    input.Memory,
		guardrail: input.Guardrail,
		intent:    input.Intent,
		router:    input.Router,
		gateway:   input.Gateway,
		client:    input.Client,
		metrics:   input.Metrics,
		fallback:  input.Fallback,
		kostID:    kostID,
	}, nil
}

// Chat answers message in session sessionID. The only error returned comes
// from the guardrail when the backend fails for a reason other than
// unavailability.
func (o *Orchestrator) Chat(ctx context.Context, sessionID, message string) (*Reply, error) {
	if err := o.memory.Add(sessionID, model.RoleUser, message); err != nil {
		return nil, goerr.Wrap(err, "failed to record user turn", goerr.V("session_id", sessionID))
	}

	scope, err := o.guardrail.Classify(ctx, message)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to check question scope", goerr.V("session_id", sessionID))
	}
	if !scope.InScope {
		return o.finish(ctx, sessionID, TierGuardrail, model.IntentOutOfScope, RedirectReply), nil
	}

	result := o.intent.Classify(message)
	logging.From(ctx).Debug("intent classified",
		"label", result.Label,
		"confidence", result.Confidence,
		"topic", scope.Intent)

	if reply, ok := o.grounded(ctx, result); ok {
		return o.finish(ctx, sessionID, TierGrounded, result.Label, reply), nil
	}

	if !o.fallback {
		return o.finish(ctx, sessionID, TierDefault, result.Label, NotUnderstoodReply), nil
	}

	if actionIntents[result.Label] || result.Confidence < ToolThreshold {
		call := o.router.Decide(ctx, message)
		reply := o.router.Dispatch(ctx, call).Text()
		return o.finish(ctx, sessionID, TierTool, result.Label, reply), nil
	}

	reply := o.generate(ctx, sessionID, message, scope.Intent)
	return o.finish(ctx, sessionID, TierGenerative, result.Label, reply), nil
}

// finish records the bot turn unless the caller has gone away
func (o *Orchestrator) finish(ctx context.Context, sessionID, tier, intent, reply string) *Reply {
	logger := logging.From(ctx)
	o.metrics.ObserveReply(tier)

	if ctx.Err() != nil {
		logger.Info("caller cancelled, reply not recorded", "tier", tier, "intent", intent)
	} else if err := o.memory.Add(sessionID, model.RoleBot, reply); err != nil {
		logger.Warn("failed to record bot turn", "error", err)
	}

	logger.Info("replied", "tier", tier, "intent", intent)
	return &Reply{Intent: intent, Reply: reply}
}

type answerPrompt struct {
	Context string
	History []model.Turn
	Message string
}

// generate asks the backend for free text. Topics with records get a context
// bundle, which is also the deterministic answer when the backend fails.
func (o *Orchestrator) generate(ctx context.Context, sessionID, message string, topic model.Topic) string {
	logger := logging.From(ctx)

	var bundle *model.ContextBundle
	if model.TopicHasContext(topic) {
		b, err := o.gateway.FetchContext(ctx, topic, o.kostID)
		if err != nil {
			logger.Warn("failed to fetch context", "topic", topic, "error", err)
		} else {
			bundle = b
		}
	}

	prompt, err := o.buildPrompt(sessionID, message, bundle)
	if err != nil {
		logger.Error("failed to build prompt", "error", err)
		return ApologyReply
	}

	text, err := o.client.Generate(ctx, prompt,
		llm.WithSystemInstruction(personaPrompt),
		llm.WithTemperature(answerTemperature),
	)
	if err == nil {
		return text
	}

	logger.Warn("failed to generate answer", "error", err)
	if bundle != nil && (errors.Is(err, llm.ErrUnavailable) || ctx.Err() != nil) {
		return RenderContext(bundle)
	}
	return ApologyReply
}

func (o *Orchestrator) buildPrompt(sessionID, message string, bundle *model.ContextBundle) (string, error) {
	// History is the ContextTurns prior turns. The current message is
	// already stored as the last turn and is rendered separately.
	turns := o.memory.Get(sessionID).Last(ContextTurns + 1)
	if n := len(turns); n > 0 && turns[n-1].Role == model.RoleUser && turns[n-1].Text == message {
		turns = turns[:n-1]
	}
	if len(turns) > ContextTurns {
		turns = turns[len(turns)-ContextTurns:]
	}

	input := answerPrompt{History: turns, Message: message}
	if bundle != nil && !bundle.IsEmpty() {
		data, err := json.MarshalIndent(bundle, "", "  ")
		if err != nil {
			return "", goerr.Wrap(err, "failed to marshal context bundle")
		}
		input.Context = string(data)
	}

	var buf bytes.Buffer
	if err := answerPromptTmpl.Execute(&buf, input); err != nil {
		return "", goerr.Wrap(err, "failed to render answer prompt")
	}
	return buf.String(), nil
}
