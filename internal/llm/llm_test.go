package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func TestMockProvider(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Content: json.RawMessage(`{"a":1}`), Usage: Usage{InputTokens: 10}},
		MockJSON(map[string]int{"b": 2}),
	)

	r1, err := mock.Generate(context.Background(), Prompt("sys", "first", nil, 0))
	if err != nil {
		t.Fatal(err)
	}
	if string(r1.Content) != `{"a":1}` || r1.Usage.InputTokens != 10 || r1.StopReason != "end" {
		t.Errorf("first = %+v", r1)
	}
	r2, err := mock.Generate(context.Background(), Request{})
	if err != nil || string(r2.Content) != `{"b":2}` {
		t.Errorf("second = %s, %v", r2.Content, err)
	}

	_, err = mock.Generate(context.Background(), Request{})
	var unavailable *ErrProviderUnavailable
	if !errors.As(err, &unavailable) {
		t.Errorf("empty queue err = %v", err)
	}
	calls := mock.Calls()
	if len(calls) != 3 || calls[0].System != "sys" {
		t.Errorf("calls = %+v", calls)
	}
}

func TestMockProviderValidatesSchema(t *testing.T) {
	mock := NewMockProvider(MockJSON(map[string]any{"title": 3}))
	_, err := mock.Generate(context.Background(), Prompt("", "x", planSchema, 0))
	var invalid *ErrInvalidResponse
	if !errors.As(err, &invalid) {
		t.Fatalf("err = %v, want ErrInvalidResponse", err)
	}
}

func TestPurpose(t *testing.T) {
	ctx := context.Background()
	if p := PurposeFrom(ctx); p != PurposeUnknown {
		t.Errorf("default purpose = %q", p)
	}
	if p := PurposeFrom(WithPurpose(ctx, PurposeStudyPlan)); p != PurposeStudyPlan {
		t.Errorf("purpose = %q", p)
	}
}

func TestValidateJSON(t *testing.T) {
	tests := []struct {
		raw     string
		wantErr bool
	}{
		{`{"title":"ok"}`, false},
		{`{"title":1}`, true},
		{`{}`, true},
		{`{"title":"ok","extra":1}`, true},
		{`not json`, true},
	}
	for _, tt := range tests {
		err := ValidateJSON(planSchema, json.RawMessage(tt.raw))
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateJSON(%s) = %v, wantErr %v", tt.raw, err, tt.wantErr)
		}
	}
	if err := ValidateJSON(nil, json.RawMessage(`garbage`)); err != nil {
		t.Errorf("nil schema: %v", err)
	}
}

func TestConfigFromEnv(t *testing.T) {
	env := func(vars map[string]string) func(string) string {
		return func(k string) string { return vars[k] }
	}

	cfg := configFromLookup(env(nil))
	if cfg.Provider != ProviderAnthropic || cfg.Anthropic.Model != "claude-haiku" {
		t.Errorf("defaults = %+v", cfg)
	}

	cfg = configFromLookup(env(map[string]string{
		"OPENAI_API_KEY":         "sk-vendor",
		"TRACKWISE_OPENAI_MODEL": "gpt-4.1-mini",
		"TRACKWISE_LLM_TIMEOUT":  "5s",
	}))
	if cfg.Provider != ProviderOpenAI || cfg.OpenAI.APIKey != "sk-vendor" || cfg.OpenAI.Model != "gpt-4.1-mini" {
		t.Errorf("discovered = %+v", cfg)
	}
	if cfg.Timeout.Seconds() != 5 {
		t.Errorf("timeout = %v", cfg.Timeout)
	}

	cfg = configFromLookup(env(map[string]string{
		"TRACKWISE_LLM_PROVIDER":    "gemini",
		"TRACKWISE_GEMINI_API_KEY":  "g",
		"GEMINI_API_KEY":            "ignored",
		"TRACKWISE_OPENAI_API_KEY":  "o",
		"TRACKWISE_GEMINI_BASE_URL": "http://localhost",
	}))
	if cfg.Provider != ProviderGemini || cfg.Gemini.APIKey != "g" {
		t.Errorf("explicit = %+v", cfg)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"anthropic without key", Config{Provider: ProviderAnthropic}, true},
		{"anthropic with key", Config{Provider: ProviderAnthropic, Anthropic: ProviderConfig{APIKey: "k"}}, false},
		{"openrouter without key", Config{Provider: ProviderOpenRouter}, true},
		{"mock", Config{Provider: ProviderMock}, false},
		{"unknown", Config{Provider: "llama"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
