package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
)

// Engine is the OPA policy engine gating which messages get embedded.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.embed_policy.decision"),
		rego.Module("embed_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Evaluate checks the embedding policy for a message.
// Input is a map with keys: role, content, content_length, session_id.
// Returns the decision string ("embed" or "skip").
func (e *Engine) Evaluate(ctx context.Context, input interface{}) (string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		// The policy defines a default, so an empty result set means the
		// module is malformed. Treat it as embeddable.
		return "embed", nil
	}

	val := results[0].Expressions[0].Value
	if s, ok := val.(string); ok {
		return s, nil
	}

	return "embed", nil
}

// DefaultPolicy is the default policy content.
const DefaultPolicy = `
package embed_policy

default decision = "embed"

# System prompts are static instructions, not conversational memory.
decision = "skip" {
	input.role == "system"
}

# Oversized payloads blow past embedding model context windows.
decision = "skip" {
	input.content_length > 8192
}
`
