package dialogue

import (
	"context"
	"errors"
	"fmt"
)

// FallbackGenerator tries a primary generator and falls back on provider
// errors. Context cancellation and deadline errors pass through untouched
// so a caller-imposed timeout stays observable.
type FallbackGenerator struct {
	primary  Generator
	fallback Generator
}

func NewFallbackGenerator(primary, fallback Generator) *FallbackGenerator {
	return &FallbackGenerator{primary: primary, fallback: fallback}
}

func (g *FallbackGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	text, err := g.primary.Generate(ctx, prompt)
	if err == nil {
		return text, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "", err
	}
	if g.fallback == nil {
		return "", err
	}

	text, fallbackErr := g.fallback.Generate(ctx, prompt)
	if fallbackErr != nil {
		return "", fmt.Errorf("primary generator error: %w; fallback generator error: %v", err, fallbackErr)
	}
	return text, nil
}
