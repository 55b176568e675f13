package explain

import (
	"context"
	"fmt"

	"github.com/sudipkhatiwada/lockbox/internal/account"
	"github.com/sudipkhatiwada/lockbox/internal/lockout"
	"github.com/sudipkhatiwada/lockbox/internal/risk"
)

// ClassicalAgent narrates account status through the offline-trained risk
// model. The classifier only shapes the wording; the lock decision itself
// belongs to the lockout policy and is never changed here.
type ClassicalAgent struct {
	policy     *lockout.Policy
	store      account.Store
	classifier risk.Classifier
}

func NewClassicalAgent(policy *lockout.Policy, store account.Store, classifier risk.Classifier) *ClassicalAgent {
	return &ClassicalAgent{policy: policy, store: store, classifier: classifier}
}

func (a *ClassicalAgent) Explain(ctx context.Context, username string) (LocalizedText, error) {
	status, err := a.policy.AccountStatus(ctx, username)
	if err != nil {
		return LocalizedText{}, err
	}

	switch status {
	case lockout.StatusNotFound:
		return notFoundMessage(), nil
	case lockout.StatusActive:
		return activeMessage(username), nil
	}

	rec, err := a.store.GetAccount(ctx, username)
	if err != nil {
		return LocalizedText{}, fmt.Errorf("load account for explanation: %w", err)
	}

	recommended, err := a.classifier.Predict(ctx, risk.PlaceholderFeatures(rec.FailedAttempts))
	if err != nil {
		return LocalizedText{}, fmt.Errorf("risk prediction for %q: %w", username, err)
	}

	if recommended {
		return escalationMessage(username), nil
	}
	return activeMessage(username), nil
}
