package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"AckeeVeille/internal/domain"
	"AckeeVeille/internal/logging"
	"AckeeVeille/internal/ports"
)

// SynthesisSettings are the decoding parameters of the generative call.
type SynthesisSettings struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

// Synthesizer turns the context blob into a SynthesisResult with exactly one generative call.
type Synthesizer struct {
	generator ports.TextGenerator
	settings  SynthesisSettings
	logger    *slog.Logger
	now       func() time.Time
}

// NewSynthesizer wires the generative capability with its decoding parameters.
func NewSynthesizer(generator ports.TextGenerator, settings SynthesisSettings, logger *slog.Logger) *Synthesizer {
	return &Synthesizer{
		generator: generator,
		settings:  settings,
		logger:    logging.OrDiscard(logger),
		now:       time.Now,
	}
}

// Model returns the configured model identifier.
func (s *Synthesizer) Model() string {
	return s.settings.Model
}

// Synthesize builds the prompt and calls the generator once. Every failure wraps ErrSynthesis.
func (s *Synthesizer) Synthesize(ctx context.Context, contextText string, window domain.RunWindow) (domain.SynthesisResult, error) {
	if s.generator == nil {
		return domain.SynthesisResult{}, fmt.Errorf("%w: text generator is not configured", domain.ErrSynthesis)
	}

	prompt := BuildPrompt(contextText, window)
	s.logger.Info("synthesis requested",
		"model", s.settings.Model,
		"max_tokens", s.settings.MaxTokens,
		"prompt_chars", len(prompt),
	)

	started := s.now()
	text, err := s.generator.Generate(ctx, ports.GenerationRequest{
		Model:       s.settings.Model,
		MaxTokens:   s.settings.MaxTokens,
		Temperature: s.settings.Temperature,
		Prompt:      prompt,
	})
	if err != nil {
		s.logger.Error("synthesis failed", "model", s.settings.Model, "error", err)
		if errors.Is(err, domain.ErrSynthesis) {
			return domain.SynthesisResult{}, err
		}
		return domain.SynthesisResult{}, fmt.Errorf("%w: %w", domain.ErrSynthesis, err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		s.logger.Error("synthesis returned no text", "model", s.settings.Model)
		return domain.SynthesisResult{}, fmt.Errorf("%w: empty response", domain.ErrSynthesis)
	}

	generatedAt := s.now()
	result := domain.SynthesisResult{
		Period:            window,
		GeneratedAt:       generatedAt,
		ModelIdentifier:   s.settings.Model,
		BodyText:          text,
		ItemCountEstimate: LineCount(contextText),
	}
	s.logger.Info("synthesis done", "chars", len(text), "elapsed", generatedAt.Sub(started).Round(time.Millisecond))
	return result, nil
}
