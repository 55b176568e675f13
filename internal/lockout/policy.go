package lockout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sudipkhatiwada/lockbox/internal/account"
)

// DefaultThreshold is the failed-attempt count at which an account locks.
const DefaultThreshold = 3

var ErrMissingContactInfo = errors.New("email and phone are required for registration")

// OutcomeKind labels the decision of one login evaluation. Outcomes are
// values, not errors: the caller renders them without special-casing
// control flow.
type OutcomeKind string

const (
	OutcomeLoginSuccess      OutcomeKind = "login_success"
	OutcomeUserNotFound      OutcomeKind = "user_not_found"
	OutcomeAccountLocked     OutcomeKind = "account_locked"
	OutcomeAccountNowLocked  OutcomeKind = "account_now_locked"
	OutcomeInvalidCredential OutcomeKind = "invalid_credential"
)

// Outcome is the user-facing result of one login attempt.
type Outcome struct {
	Kind              OutcomeKind `json:"kind"`
	AttemptsRemaining int         `json:"attempts_remaining,omitempty"`
}

// Status is the pure account-state projection used by every other component.
type Status string

const (
	StatusNotFound Status = "not_found"
	StatusLocked   Status = "locked"
	StatusActive   Status = "active"
)

// Policy applies the lockout rules over the account store.
type Policy struct {
	store     account.Store
	threshold int
}

func NewPolicy(store account.Store, threshold int) *Policy {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Policy{store: store, threshold: threshold}
}

// Register creates a new account with a clean lock state.
func (p *Policy) Register(ctx context.Context, username, secret, email, phone string) error {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(phone) == "" {
		return ErrMissingContactInfo
	}
	err := p.store.CreateAccount(ctx, account.Account{
		Username:       username,
		PasswordSecret: secret,
		Email:          email,
		Phone:          phone,
	})
	if err != nil {
		if errors.Is(err, account.ErrDuplicateUsername) {
			return err
		}
		return fmt.Errorf("register %q: %w", username, err)
	}
	return nil
}

// EvaluateLogin applies one login attempt and returns the resulting
// outcome. Attempts against an already-locked account never touch the
// counter, and a correct credential fully resets it.
func (p *Policy) EvaluateLogin(ctx context.Context, username, suppliedSecret string) (Outcome, error) {
	rec, err := p.store.GetAccount(ctx, username)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return Outcome{Kind: OutcomeUserNotFound}, nil
		}
		return Outcome{}, fmt.Errorf("evaluate login %q: %w", username, err)
	}

	if rec.Locked {
		return Outcome{Kind: OutcomeAccountLocked}, nil
	}

	if suppliedSecret == rec.PasswordSecret {
		if err := p.store.UpdateLockState(ctx, username, 0, false); err != nil {
			return Outcome{}, fmt.Errorf("reset lock state %q: %w", username, err)
		}
		return Outcome{Kind: OutcomeLoginSuccess}, nil
	}

	attempts := rec.FailedAttempts + 1
	if attempts >= p.threshold {
		if err := p.store.UpdateLockState(ctx, username, attempts, true); err != nil {
			return Outcome{}, fmt.Errorf("lock account %q: %w", username, err)
		}
		return Outcome{Kind: OutcomeAccountNowLocked}, nil
	}

	if err := p.store.UpdateLockState(ctx, username, attempts, false); err != nil {
		return Outcome{}, fmt.Errorf("record failed attempt %q: %w", username, err)
	}
	return Outcome{Kind: OutcomeInvalidCredential, AttemptsRemaining: p.threshold - attempts}, nil
}

// ForceUnlock resets the lock state unconditionally.
func (p *Policy) ForceUnlock(ctx context.Context, username string) error {
	if err := p.store.UpdateLockState(ctx, username, 0, false); err != nil {
		return fmt.Errorf("unlock %q: %w", username, err)
	}
	return nil
}

// SetPassword replaces the credential without touching lock state.
func (p *Policy) SetPassword(ctx context.Context, username, newSecret string) error {
	if err := p.store.UpdateCredential(ctx, username, newSecret); err != nil {
		return fmt.Errorf("set password %q: %w", username, err)
	}
	return nil
}

// AccountStatus projects the current account state. It never mutates.
func (p *Policy) AccountStatus(ctx context.Context, username string) (Status, error) {
	rec, err := p.store.GetAccount(ctx, username)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return StatusNotFound, nil
		}
		return "", fmt.Errorf("account status %q: %w", username, err)
	}
	if rec.Locked {
		return StatusLocked, nil
	}
	return StatusActive, nil
}
