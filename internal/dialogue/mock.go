package dialogue

import (
	"context"
	"fmt"
	"strings"
)

// MockGenerator provides deterministic local replies when no provider is
// configured.
type MockGenerator struct{}

func NewMockGenerator() *MockGenerator { return &MockGenerator{} }

func (g *MockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	lines := strings.Split(strings.TrimSpace(prompt), "\n")
	last := ""
	for i := len(lines) - 1; i >= 0; i-- {
		if s := strings.TrimSpace(lines[i]); s != "" {
			last = s
			break
		}
	}
	if last == "" {
		return "I'm here to help with your account.", nil
	}
	return fmt.Sprintf("I'm here to help with your account. You said: %s", last), nil
}
