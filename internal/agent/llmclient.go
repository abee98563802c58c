// Package agent implements the bounded reason-act Agent Executor and the
// provider-neutral LLMClient capability it drives. Grounded on
// codeready-toolchain-tarsy's pkg/agent package: ConversationMessage/
// ToolCall/Chunk shapes from llm_client.go, the gRPC sidecar bridge from
// llm_grpc.go, and the override-hierarchy resolution style from
// config_resolver.go.
package agent

import (
	"context"
	"strings"
)

// Message roles, carried over from the teacher's conversation shape.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one turn in the conversation sent to an LLMClient.
type Message struct {
	Role       string
	Content    string
	ToolCallID string // set on RoleTool messages, echoing the ToolStep.CallID
}

// ToolDefinition advertises one dispatchable tool to the LLM.
type ToolDefinition struct {
	Name        string
	Description string
	ParamsJSON  string // JSON Schema for the tool's params
}

// ToolStep is one tool invocation the LLM requested in its response.
type ToolStep struct {
	CallID string
	Tool   string
	Params map[string]any
}

// Usage reports per-call token consumption.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// ChatRequest is a single LLMClient.Chat call's input.
type ChatRequest struct {
	Messages    []Message
	Temperature float64
	Tools       []ToolDefinition
}

// ChatResponse is a single LLMClient.Chat call's output. ToolSteps is empty
// when the LLM has produced a final answer instead of requesting tools.
type ChatResponse struct {
	Content   string
	ToolSteps []ToolStep
	Usage     Usage
}

// LLMClient is the provider-neutral chat-completion capability the
// executor drives. A single implementation may front any provider; which
// implementation handles a given model is a ClientResolver's job.
type LLMClient interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	Close() error
}

// ClientResolver picks an LLMClient implementation by model-name prefix
// (the OpenAI-family / Anthropic-family / ... split).
type ClientResolver struct {
	byPrefix map[string]LLMClient
	fallback LLMClient
}

// NewClientResolver builds a resolver with no registered prefixes; use
// Register to wire in per-family clients.
func NewClientResolver() *ClientResolver {
	return &ClientResolver{byPrefix: make(map[string]LLMClient)}
}

// Register associates a model-name prefix (e.g. "gpt-", "claude-") with the
// LLMClient that should serve it.
func (r *ClientResolver) Register(prefix string, client LLMClient) {
	r.byPrefix[prefix] = client
}

// SetFallback sets the client used when no registered prefix matches.
func (r *ClientResolver) SetFallback(client LLMClient) {
	r.fallback = client
}

// Resolve returns the LLMClient registered for model's prefix, or the
// fallback if none matches.
func (r *ClientResolver) Resolve(model string) (LLMClient, bool) {
	for prefix, client := range r.byPrefix {
		if strings.HasPrefix(model, prefix) {
			return client, true
		}
	}
	if r.fallback != nil {
		return r.fallback, true
	}
	return nil, false
}

// ModelRates is a model catalog entry: cost per 1000 tokens, input and
// output priced independently since providers typically charge output
// tokens at a higher rate.
type ModelRates struct {
	InputRate  float64
	OutputRate float64
}

// Catalog maps model name to its billing rates.
type Catalog map[string]ModelRates

// Cost computes (input_tokens*input_rate + output_tokens*output_rate)/1000
// for the given model. An unknown model costs zero rather than erroring —
// cost accounting must never abort an otherwise-successful agent run.
func (c Catalog) Cost(model string, usage Usage) float64 {
	rates, ok := c[model]
	if !ok {
		return 0
	}
	return (float64(usage.InputTokens)*rates.InputRate + float64(usage.OutputTokens)*rates.OutputRate) / 1000
}
