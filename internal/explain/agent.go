package explain

import (
	"context"
	"fmt"
	"strings"
)

// Strategy selects which explanation agent narrates an account status.
type Strategy string

const (
	StrategyClassical Strategy = "classical"
	StrategyGenAI     Strategy = "genai"
)

// ParseStrategy validates a caller-supplied strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case StrategyClassical, "":
		return StrategyClassical, nil
	case StrategyGenAI:
		return StrategyGenAI, nil
	default:
		return "", fmt.Errorf("unknown explanation strategy %q", s)
	}
}

// LocalizedText carries a narration in English and Nepali. Generator-made
// narrations arrive as one bilingual block and are stored in English with
// Nepali empty.
type LocalizedText struct {
	English string `json:"english"`
	Nepali  string `json:"nepali,omitempty"`
}

func (t LocalizedText) String() string {
	if t.Nepali == "" {
		return t.English
	}
	return t.English + "\n" + t.Nepali
}

// Agent narrates the status of an account to the user or support staff.
type Agent interface {
	Explain(ctx context.Context, username string) (LocalizedText, error)
}
