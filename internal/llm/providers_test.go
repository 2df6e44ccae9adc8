package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
)

var planSchema = &Schema{
	Name: "test-plan",
	Definition: map[string]any{
		"type":                 "object",
		"properties":           map[string]any{"title": map[string]any{"type": "string"}},
		"required":             []string{"title"},
		"additionalProperties": false,
	},
}

func serve(t *testing.T, status int, body any) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func anthropicMessage(text, stop string) map[string]any {
	return map[string]any{
		"id":          "msg_1",
		"type":        "message",
		"role":        "assistant",
		"content":     []map[string]any{{"type": "text", "text": text}},
		"model":       "claude-haiku-4-5-20251001",
		"stop_reason": stop,
		"usage":       map[string]any{"input_tokens": 50, "output_tokens": 30},
	}
}

func newAnthropic(t *testing.T, url string) *AnthropicProvider {
	t.Helper()
	p, err := NewAnthropicProvider(ProviderConfig{APIKey: "k", Model: "claude-haiku", BaseURL: url}, option.WithMaxRetries(0))
	if err != nil {
		t.Fatalf("NewAnthropicProvider: %v", err)
	}
	return p
}

func TestAnthropicGenerate(t *testing.T) {
	p := newAnthropic(t, serve(t, http.StatusOK, anthropicMessage(`{"title":"Go"}`, "end_turn")))
	if p.ModelID() != "claude-haiku-4-5-20251001" {
		t.Fatalf("alias not resolved: %q", p.ModelID())
	}

	resp, err := p.Generate(context.Background(), Prompt("sys", "plan", planSchema, 256))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.Usage.TotalTokens != 80 {
		t.Errorf("total tokens = %d, want 80", resp.Usage.TotalTokens)
	}
	if resp.StopReason != "end" {
		t.Errorf("stop = %q, want end", resp.StopReason)
	}
	var out struct{ Title string }
	if err := resp.Decode(&out); err != nil || out.Title != "Go" {
		t.Errorf("Decode = %+v, %v", out, err)
	}
}

func TestAnthropicSchemaMismatch(t *testing.T) {
	p := newAnthropic(t, serve(t, http.StatusOK, anthropicMessage(`{"name":"Go"}`, "end_turn")))
	_, err := p.Generate(context.Background(), Prompt("", "plan", planSchema, 256))
	var invalid *ErrInvalidResponse
	if !errors.As(err, &invalid) {
		t.Fatalf("err = %v, want ErrInvalidResponse", err)
	}
}

func TestAnthropicTruncated(t *testing.T) {
	p := newAnthropic(t, serve(t, http.StatusOK, anthropicMessage(`{"title":"G`, "max_tokens")))
	_, err := p.Generate(context.Background(), Prompt("", "plan", planSchema, 4))
	var truncated *ErrMaxTokensExceeded
	if !errors.As(err, &truncated) {
		t.Fatalf("err = %v, want ErrMaxTokensExceeded", err)
	}
}

func TestAnthropicRateLimit(t *testing.T) {
	url := serve(t, http.StatusTooManyRequests, map[string]any{
		"type":  "error",
		"error": map[string]any{"type": "rate_limit_error", "message": "slow down"},
	})
	_, err := newAnthropic(t, url).Generate(context.Background(), Prompt("", "plan", nil, 16))
	var rl *ErrRateLimit
	if !errors.As(err, &rl) {
		t.Fatalf("err = %v, want ErrRateLimit", err)
	}
}

func openAICompletion(content, finish string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1736150400,
		"model":   "gpt-4o-mini",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": finish,
		}},
		"usage": map[string]any{"prompt_tokens": 40, "completion_tokens": 25, "total_tokens": 65},
	}
}

func TestOpenAIGenerate(t *testing.T) {
	url := serve(t, http.StatusOK, openAICompletion(`{"title":"Go"}`, "stop"))
	p, err := NewOpenAIProvider(ProviderConfig{APIKey: "k", Model: "gpt-4o-mini", BaseURL: url + "/v1"})
	if err != nil {
		t.Fatal(err)
	}
	resp, err := p.Generate(context.Background(), Prompt("sys", "plan", planSchema, 256))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.Usage.InputTokens != 40 || resp.Usage.OutputTokens != 25 {
		t.Errorf("usage = %+v", resp.Usage)
	}
	if resp.Model != "gpt-4o-mini" {
		t.Errorf("model = %q", resp.Model)
	}
}

func TestOpenAIServerError(t *testing.T) {
	url := serve(t, http.StatusInternalServerError, map[string]any{
		"error": map[string]any{"message": "boom", "type": "server_error"},
	})
	p, _ := NewOpenAIProvider(ProviderConfig{APIKey: "k", Model: "gpt-4o-mini", BaseURL: url + "/v1"})
	_, err := p.Generate(context.Background(), Prompt("", "plan", nil, 16))
	var unavailable *ErrProviderUnavailable
	if !errors.As(err, &unavailable) {
		t.Fatalf("err = %v, want ErrProviderUnavailable", err)
	}
}

func TestOpenRouterDefaultsBaseURL(t *testing.T) {
	p, err := NewOpenRouterProvider(ProviderConfig{APIKey: "k", Model: "m"})
	if err != nil {
		t.Fatal(err)
	}
	if p.ModelID() != "m" {
		t.Errorf("model = %q", p.ModelID())
	}
	if _, err := NewOpenRouterProvider(ProviderConfig{}); err == nil {
		t.Error("expected missing key error")
	}
}

func TestGeminiSchemaConversion(t *testing.T) {
	s := geminiSchema(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"lessons": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items": map[string]any{
					"type":       "object",
					"properties": map[string]any{"minutes": map[string]any{"type": "integer", "minimum": 5}},
				},
			},
			"kind": map[string]any{"type": "string", "enum": []any{"theory", "exercise"}},
		},
		"required": []string{"lessons"},
	})
	if len(s.Required) != 1 || s.Required[0] != "lessons" {
		t.Errorf("required = %v", s.Required)
	}
	lessons := s.Properties["lessons"]
	if lessons == nil || lessons.Items == nil || *lessons.MinItems != 1 {
		t.Fatalf("lessons = %+v", lessons)
	}
	if lo := lessons.Items.Properties["minutes"].Minimum; lo == nil || *lo != 5 {
		t.Errorf("minimum = %v", lo)
	}
	if got := s.Properties["kind"].Enum; len(got) != 2 {
		t.Errorf("enum = %v", got)
	}
}
