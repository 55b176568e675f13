package dialogue

import (
	"context"
	"errors"
	"time"

	"github.com/sudipkhatiwada/lockbox/internal/observability"
)

// InstrumentedGenerator wraps another Generator and records call latency
// and error counts.
type InstrumentedGenerator struct {
	inner   Generator
	metrics *observability.Metrics
}

func NewInstrumentedGenerator(inner Generator, metrics *observability.Metrics) *InstrumentedGenerator {
	return &InstrumentedGenerator{inner: inner, metrics: metrics}
}

func (g *InstrumentedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	text, err := g.inner.Generate(ctx, prompt)
	g.metrics.ObserveGeneratorLatency(time.Since(start))
	if err != nil {
		g.metrics.GeneratorErrors.WithLabelValues(errorKind(err)).Inc()
		return "", err
	}
	return text, nil
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	default:
		return "other"
	}
}
