package dialogue

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Generator produces natural-language text for a prompt. Implementations
// must honor ctx cancellation and return errors instead of panicking, so a
// provider outage degrades to an error result at the caller.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ErrUnavailable marks a provider failure the caller should narrate as an
// apology rather than propagate.
var ErrUnavailable = errors.New("dialogue provider unavailable")

// Config controls generator construction.
type Config struct {
	Mode   string
	APIURL string
	APIKey string
}

// NewGenerator builds a generator for the configured mode
// (auto | http | mock).
func NewGenerator(cfg Config) (Generator, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		if strings.TrimSpace(cfg.APIURL) != "" {
			// Keep a deterministic fallback so a provider outage never
			// silences the recovery chat.
			return NewFallbackGenerator(NewHTTPGenerator(cfg.APIURL, cfg.APIKey), NewMockGenerator()), nil
		}
		return NewMockGenerator(), nil
	case "http":
		if strings.TrimSpace(cfg.APIURL) == "" {
			return nil, errors.New("generator API url is required for http mode")
		}
		return NewHTTPGenerator(cfg.APIURL, cfg.APIKey), nil
	case "mock":
		return NewMockGenerator(), nil
	default:
		return nil, fmt.Errorf("unsupported generator mode %q", cfg.Mode)
	}
}
