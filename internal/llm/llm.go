// Package llm talks to hosted language models. Callers build a Request,
// optionally with a JSON Schema, and get back validated JSON. Providers
// are wrapped with retry and request logging by NewProvider.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
)

// Provider generates a response for a request.
type Provider interface {
	// Generate sends req to the model. When req.Schema is set the
	// response Content is JSON that conforms to it.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model the provider is configured to use.
	ModelID() string
}

// Request is a single generation call.
type Request struct {
	System      string
	Messages    []Message
	Schema      *Schema
	MaxTokens   int
	Temperature float64 // 0 leaves the provider default
}

// Prompt returns a single-turn request.
func Prompt(system, user string, schema *Schema, maxTokens int) Request {
	return Request{
		System:    system,
		Messages:  []Message{{Role: RoleUser, Content: user}},
		Schema:    schema,
		MaxTokens: maxTokens,
	}
}

// Message is one turn of a conversation.
type Message struct {
	Role    Role
	Content string
}

// Role is the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema is a named JSON Schema for structured output. Name is
// kebab-case and is sent to providers as the schema or tool name.
type Schema struct {
	Name        string
	Description string
	Definition  map[string]any
}

// Response is the output of a generation call.
type Response struct {
	Content    json.RawMessage
	Usage      Usage
	Model      string
	StopReason string // "end" or "max_tokens"
}

// Decode unmarshals the response content into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Content, v); err != nil {
		return &ErrInvalidResponse{Content: r.Content, Err: fmt.Errorf("decode: %w", err)}
	}
	return nil
}

// Usage is the token consumption of one call.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

type purposeKey struct{}

// Purposes recorded in the request log.
const (
	PurposeStudyPlan = "study-plan"
	PurposeUnknown   = "unknown"
)

// WithPurpose labels the LLM calls made with ctx.
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, purposeKey{}, purpose)
}

// PurposeFrom returns the label set by WithPurpose, or PurposeUnknown.
func PurposeFrom(ctx context.Context) string {
	if v, ok := ctx.Value(purposeKey{}).(string); ok && v != "" {
		return v
	}
	return PurposeUnknown
}
