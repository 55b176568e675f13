package explain

import (
	"context"
	"fmt"
	"time"

	"github.com/sudipkhatiwada/lockbox/internal/dialogue"
	"github.com/sudipkhatiwada/lockbox/internal/lockout"
)

// GenAIAgent delegates the narration to the dialogue generator.
type GenAIAgent struct {
	policy    *lockout.Policy
	generator dialogue.Generator
	timeout   time.Duration
}

func NewGenAIAgent(policy *lockout.Policy, generator dialogue.Generator, timeout time.Duration) *GenAIAgent {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &GenAIAgent{policy: policy, generator: generator, timeout: timeout}
}

func (a *GenAIAgent) Explain(ctx context.Context, username string) (LocalizedText, error) {
	status, err := a.policy.AccountStatus(ctx, username)
	if err != nil {
		return LocalizedText{}, err
	}

	if status == lockout.StatusNotFound {
		return notFoundMessage(), nil
	}

	var prompt string
	if status == lockout.StatusLocked {
		prompt = fmt.Sprintf(
			"Explain very concisely why the account '%s' was locked due to multiple failed login attempts. "+
				"Provide the explanation in both English and Nepali. Keep it clear and reassuring.",
			username)
	} else {
		prompt = fmt.Sprintf(
			"Explain very concisely that the account '%s' is currently active and not locked. "+
				"Provide this information in both English and Nepali. Keep it clear and reassuring.",
			username)
	}

	genCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	text, err := a.generator.Generate(genCtx, prompt)
	if err != nil {
		return LocalizedText{}, fmt.Errorf("generate explanation for %q: %w", username, err)
	}
	return LocalizedText{English: text}, nil
}
