package guardrail

import (
	"context"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/open-policy-agent/opa/v1/rego"
	"github.com/sabrinaskaa/chatbot-binara/pkg/model"
)

const policyQuery = "data.guardrail.deny"

// Policy is an operator supplied Rego module that can force a question out of
// scope. The module defines `deny` in package guardrail and receives
// {"question", "in_scope", "intent"} as input.
type Policy struct {
	query rego.PreparedEvalQuery
}

// NewPolicy compiles a Rego module
func NewPolicy(ctx context.Context, name, module string) (*Policy, error) {
	query, err := rego.New(
		rego.Query(policyQuery),
		rego.Module(name, module),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, goerr.Wrap(model.ErrConfiguration, "failed to compile guardrail policy",
			goerr.V("name", name),
			goerr.V("error", err.Error()))
	}
	return &Policy{query: query}, nil
}

// LoadPolicy compiles the Rego module at path
func LoadPolicy(ctx context.Context, path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(model.ErrConfiguration, "failed to read guardrail policy",
			goerr.V("path", path),
			goerr.V("error", err.Error()))
	}
	return NewPolicy(ctx, path, string(data))
}

// Deny reports whether the policy rejects the question. An undefined deny
// rule means no rejection.
func (p *Policy) Deny(ctx context.Context, question string, result model.GuardrailResult) (bool, error) {
	input := map[string]any{
		"question": question,
		"in_scope": result.InScope,
		"intent":   string(result.Intent),
	}

	rs, err := p.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return false, goerr.Wrap(err, "failed to evaluate guardrail policy")
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return false, nil
	}

	deny, ok := rs[0].Expressions[0].Value.(bool)
	if !ok {
		return false, goerr.New("guardrail policy deny must be boolean",
			goerr.V("value", rs[0].Expressions[0].Value))
	}
	return deny, nil
}
