package extraction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/pintuan-hub/publisher/internal/gemini"
	"github.com/pintuan-hub/publisher/internal/ollama"
	"github.com/pintuan-hub/publisher/internal/openai"
	"github.com/pintuan-hub/publisher/internal/providers"
	"golang.org/x/time/rate"
)

const prompt = `You are doing OCR and information extraction on a group-buy share screenshot.
Return a single JSON object with these keys:
  title            string  - product title
  price            number  - group price
  original_price   number  - original price, null if absent
  group_size       integer - people needed for the group, null if absent
  missing_count    integer - people still missing, null if absent
  remaining_hours  number  - hours left before the group closes, null if absent
  is_baiyi_butie   boolean - whether the product carries the subsidy badge
Output pure JSON only. No code fences, no explanations.`

// Service turns a screenshot into a Record through a vision provider.
type Service struct {
	provider    providers.Provider
	model       string
	temperature float64
	timeout     time.Duration
	limiter     *rate.Limiter
}

// Option configures a Service
type Option func(*Service)

// WithModel overrides the provider's default model.
func WithModel(model string) Option {
	return func(s *Service) {
		if model != "" {
			s.model = model
		}
	}
}

// WithTimeout bounds every provider call. Expiry counts as ErrServiceBusy.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

// WithRateLimit caps provider calls per second; perSecond <= 0 disables it.
func WithRateLimit(perSecond float64) Option {
	return func(s *Service) {
		if perSecond <= 0 {
			s.limiter = nil
			return
		}
		s.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// NewService creates a new extraction service
func NewService(provider providers.Provider, opts ...Option) *Service {
	s := &Service{
		provider: provider,
		timeout:  30 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewProvider resolves a provider by name. An empty name reads
// EXTRACTION_PROVIDER and falls back to gemini.
func NewProvider(name string) (providers.Provider, string, error) {
	if name == "" {
		name = os.Getenv("EXTRACTION_PROVIDER")
		if name == "" {
			name = "gemini"
		}
	}

	switch name {
	case "gemini":
		return gemini.New(), DefaultModel(name), nil
	case "openai":
		return openai.New(), DefaultModel(name), nil
	case "ollama":
		return ollama.New(), DefaultModel(name), nil
	default:
		return nil, "", fmt.Errorf("unsupported provider: %s", name)
	}
}

// DefaultModel returns the configured or built-in model for a provider
func DefaultModel(provider string) string {
	switch provider {
	case "gemini":
		model := os.Getenv("GEMINI_MODEL")
		if model == "" {
			return "gemini-2.5-flash"
		}
		return model
	case "openai":
		model := os.Getenv("OPENAI_MODEL")
		if model == "" {
			return "gpt-4o"
		}
		return model
	case "ollama":
		model := os.Getenv("OLLAMA_MODEL")
		if model == "" {
			return "mistral-small3.2:24b"
		}
		return model
	default:
		return ""
	}
}

// Extract recognises the listing fields on image. A reply without a title is
// returned as ErrSoftFailure; provider failures are ErrServiceBusy or
// ErrServiceUnavailable.
func (s *Service) Extract(ctx context.Context, image []byte, mimeType string) (*Record, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrServiceBusy, err)
		}
	}

	start := time.Now()
	text, err := s.provider.ExtractText(ctx, providers.Config{
		Model:       s.model,
		Temperature: s.temperature,
		Prompt:      prompt,
		Image:       image,
		MimeType:    mimeType,
	})
	if err != nil {
		err = classify(ctx, err)
		slog.Warn("Extraction failed", "kind", Kind(err), "model", s.model, "err", err)
		return nil, err
	}

	rec := Normalize(ParseLoose(text))
	if rec.Title == "" {
		slog.Info("Extraction returned no title", "model", s.model, "length", len(text))
		return nil, ErrSoftFailure
	}

	slog.Info("Extracted listing fields", "model", s.model, "title", rec.Title, "duration", time.Since(start))
	return &rec, nil
}

func classify(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, providers.ErrBusy),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrServiceBusy, err)
	default:
		return fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
	}
}
