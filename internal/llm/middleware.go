package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/abhisek/trackwise/internal/store"
)

// retrying retries transient failures with jittered exponential backoff.
// An invalid response is retried once; max-token truncation and context
// errors are not retried.
type retrying struct {
	inner Provider
	cfg   RetryConfig
	sleep func(context.Context, time.Duration) error
}

// WithRetry wraps p with retries.
func WithRetry(p Provider, cfg RetryConfig) Provider {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &retrying{inner: p, cfg: cfg, sleep: sleepCtx}
}

func (r *retrying) Generate(ctx context.Context, req Request) (*Response, error) {
	var err error
	invalidSeen := false
	for attempt := 0; attempt < r.cfg.MaxAttempts; attempt++ {
		var resp *Response
		resp, err = r.inner.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}
		if !retryable(err, &invalidSeen) || attempt == r.cfg.MaxAttempts-1 {
			return nil, err
		}
		if serr := r.sleep(ctx, r.wait(attempt, err)); serr != nil {
			return nil, serr
		}
	}
	return nil, err
}

func (r *retrying) ModelID() string { return r.inner.ModelID() }

func retryable(err error, invalidSeen *bool) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var truncated *ErrMaxTokensExceeded
	if errors.As(err, &truncated) {
		return false
	}
	var invalid *ErrInvalidResponse
	if errors.As(err, &invalid) {
		if *invalidSeen {
			return false
		}
		*invalidSeen = true
	}
	return true
}

func (r *retrying) wait(attempt int, err error) time.Duration {
	var rl *ErrRateLimit
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		return rl.RetryAfter
	}
	d := math.Min(float64(r.cfg.InitialWait)*math.Pow(r.cfg.Multiplier, float64(attempt)), float64(r.cfg.MaxWait))
	d += d * 0.2 * (2*rand.Float64() - 1)
	return time.Duration(math.Max(d, 0))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// recording stores every call in the LLM request log.
type recording struct {
	inner    Provider
	provider string
	repo     store.LLMEventRepo
	logger   *slog.Logger
}

// WithRecording wraps p so each call is appended to repo. A failure to
// record is logged and never fails the call.
func WithRecording(p Provider, providerName string, repo store.LLMEventRepo, logger *slog.Logger) Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &recording{inner: p, provider: providerName, repo: repo, logger: logger}
}

func (l *recording) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := l.inner.Generate(ctx, req)

	ev := store.LLMRequestEventData{
		Provider:    l.provider,
		Model:       l.inner.ModelID(),
		Purpose:     PurposeFrom(ctx),
		LatencyMs:   time.Since(start).Milliseconds(),
		Success:     err == nil,
		RequestBody: describeRequest(req),
	}
	if resp != nil {
		ev.Model = resp.Model
		ev.InputTokens = resp.Usage.InputTokens
		ev.OutputTokens = resp.Usage.OutputTokens
		ev.ResponseBody = string(resp.Content)
	}
	if err != nil {
		ev.ErrorMessage = err.Error()
		l.logger.Warn("llm request failed", "provider", l.provider, "purpose", ev.Purpose, "error", err)
	} else {
		l.logger.Debug("llm request", "provider", l.provider, "model", ev.Model,
			"purpose", ev.Purpose, "latency_ms", ev.LatencyMs,
			"cost_usd", LookupCost(ev.Model).Cost(ev.InputTokens, ev.OutputTokens))
	}

	if rerr := l.repo.AppendLLMRequest(context.WithoutCancel(ctx), ev); rerr != nil {
		l.logger.Warn("failed to record llm request", "error", rerr)
	}
	return resp, err
}

func (l *recording) ModelID() string { return l.inner.ModelID() }

// describeRequest renders req for the request log.
func describeRequest(req Request) string {
	var b strings.Builder
	if req.System != "" {
		fmt.Fprintf(&b, "[system]\n%s\n\n", req.System)
	}
	for _, m := range req.Messages {
		fmt.Fprintf(&b, "[%s]\n%s\n\n", m.Role, m.Content)
	}
	if req.Schema != nil {
		if def, err := json.Marshal(req.Schema.Definition); err == nil {
			fmt.Fprintf(&b, "[schema: %s]\n%s\n", req.Schema.Name, def)
		}
	}
	return b.String()
}

// timed bounds every call with a timeout.
type timed struct {
	inner   Provider
	timeout time.Duration
}

func (t *timed) Generate(ctx context.Context, req Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.inner.Generate(ctx, req)
}

func (t *timed) ModelID() string { return t.inner.ModelID() }

// NewProvider builds the configured provider and wraps it as
// timeout → retry → recording → provider. repo may be nil to disable
// recording.
func NewProvider(ctx context.Context, cfg Config, repo store.LLMEventRepo, logger *slog.Logger) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var base Provider
	var err error
	switch cfg.Provider {
	case ProviderAnthropic:
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case ProviderOpenAI:
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case ProviderOpenRouter:
		base, err = NewOpenRouterProvider(cfg.OpenRouter)
	case ProviderGemini:
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	case ProviderMock:
		base = NewMockProvider()
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	p := base
	if repo != nil {
		p = WithRecording(p, cfg.Provider, repo, logger)
	}
	p = WithRetry(p, cfg.Retry)
	if cfg.Timeout > 0 {
		p = &timed{inner: p, timeout: cfg.Timeout}
	}
	return p, nil
}
