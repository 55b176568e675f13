package lockout

import (
	"context"
	"errors"
	"testing"

	"github.com/sudipkhatiwada/lockbox/internal/account"
)

func newTestPolicy(t *testing.T) (*Policy, account.Store) {
	t.Helper()
	store := account.NewInMemoryStore()
	return NewPolicy(store, DefaultThreshold), store
}

func registerAlice(t *testing.T, p *Policy) {
	t.Helper()
	if err := p.Register(context.Background(), "alice", "pw1", "a@x.com", "9800000000"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
}

func TestRegisterThenLoginSucceeds(t *testing.T) {
	p, store := newTestPolicy(t)
	registerAlice(t, p)

	out, err := p.EvaluateLogin(context.Background(), "alice", "pw1")
	if err != nil {
		t.Fatalf("EvaluateLogin() error = %v", err)
	}
	if out.Kind != OutcomeLoginSuccess {
		t.Fatalf("outcome = %q, want %q", out.Kind, OutcomeLoginSuccess)
	}

	rec, err := store.GetAccount(context.Background(), "alice")
	if err != nil {
		t.Fatalf("GetAccount() error = %v", err)
	}
	if rec.FailedAttempts != 0 || rec.Locked {
		t.Fatalf("record = (%d, %v), want (0, false)", rec.FailedAttempts, rec.Locked)
	}
}

func TestRegisterValidations(t *testing.T) {
	p, _ := newTestPolicy(t)
	registerAlice(t, p)

	if err := p.Register(context.Background(), "alice", "pw2", "b@x.com", "9811111111"); !errors.Is(err, account.ErrDuplicateUsername) {
		t.Fatalf("duplicate register error = %v, want ErrDuplicateUsername", err)
	}
	if err := p.Register(context.Background(), "bob", "pw2", "", "9811111111"); !errors.Is(err, ErrMissingContactInfo) {
		t.Fatalf("missing email error = %v, want ErrMissingContactInfo", err)
	}
	if err := p.Register(context.Background(), "bob", "pw2", "b@x.com", ""); !errors.Is(err, ErrMissingContactInfo) {
		t.Fatalf("missing phone error = %v, want ErrMissingContactInfo", err)
	}
}

func TestThreeWrongAttemptsLockTheAccount(t *testing.T) {
	p, store := newTestPolicy(t)
	registerAlice(t, p)
	ctx := context.Background()

	wrong := []string{"x", "y", "z"}
	var out Outcome
	var err error
	for i, pw := range wrong {
		out, err = p.EvaluateLogin(ctx, "alice", pw)
		if err != nil {
			t.Fatalf("attempt %d error = %v", i+1, err)
		}
	}
	if out.Kind != OutcomeAccountNowLocked {
		t.Fatalf("third attempt outcome = %q, want %q", out.Kind, OutcomeAccountNowLocked)
	}

	rec, err := store.GetAccount(ctx, "alice")
	if err != nil {
		t.Fatalf("GetAccount() error = %v", err)
	}
	if rec.FailedAttempts != 3 || !rec.Locked {
		t.Fatalf("record = (%d, %v), want (3, true)", rec.FailedAttempts, rec.Locked)
	}
}

func TestAttemptsRemainingCountdown(t *testing.T) {
	p, _ := newTestPolicy(t)
	registerAlice(t, p)
	ctx := context.Background()

	out, err := p.EvaluateLogin(ctx, "alice", "x")
	if err != nil {
		t.Fatalf("EvaluateLogin() error = %v", err)
	}
	if out.Kind != OutcomeInvalidCredential || out.AttemptsRemaining != 2 {
		t.Fatalf("first wrong outcome = %+v, want invalid_credential with 2 remaining", out)
	}

	out, err = p.EvaluateLogin(ctx, "alice", "y")
	if err != nil {
		t.Fatalf("EvaluateLogin() error = %v", err)
	}
	if out.Kind != OutcomeInvalidCredential || out.AttemptsRemaining != 1 {
		t.Fatalf("second wrong outcome = %+v, want invalid_credential with 1 remaining", out)
	}
}

func TestLockedAccountAttemptsAreIdempotent(t *testing.T) {
	p, store := newTestPolicy(t)
	registerAlice(t, p)
	ctx := context.Background()

	for _, pw := range []string{"x", "y", "z"} {
		if _, err := p.EvaluateLogin(ctx, "alice", pw); err != nil {
			t.Fatalf("EvaluateLogin() error = %v", err)
		}
	}

	// Further attempts, even with the right password, must not move the counter.
	for _, pw := range []string{"x", "pw1", "y"} {
		out, err := p.EvaluateLogin(ctx, "alice", pw)
		if err != nil {
			t.Fatalf("EvaluateLogin() error = %v", err)
		}
		if out.Kind != OutcomeAccountLocked {
			t.Fatalf("outcome under lock = %q, want %q", out.Kind, OutcomeAccountLocked)
		}
	}

	rec, err := store.GetAccount(ctx, "alice")
	if err != nil {
		t.Fatalf("GetAccount() error = %v", err)
	}
	if rec.FailedAttempts != 3 {
		t.Fatalf("FailedAttempts = %d, want 3", rec.FailedAttempts)
	}
}

func TestForceUnlockResetsCounter(t *testing.T) {
	p, store := newTestPolicy(t)
	registerAlice(t, p)
	ctx := context.Background()

	for _, pw := range []string{"x", "y", "z"} {
		if _, err := p.EvaluateLogin(ctx, "alice", pw); err != nil {
			t.Fatalf("EvaluateLogin() error = %v", err)
		}
	}
	if err := p.ForceUnlock(ctx, "alice"); err != nil {
		t.Fatalf("ForceUnlock() error = %v", err)
	}

	rec, err := store.GetAccount(ctx, "alice")
	if err != nil {
		t.Fatalf("GetAccount() error = %v", err)
	}
	if rec.FailedAttempts != 0 || rec.Locked {
		t.Fatalf("record = (%d, %v), want (0, false)", rec.FailedAttempts, rec.Locked)
	}

	// One subsequent mistake must not re-lock a freshly recovered account.
	out, err := p.EvaluateLogin(ctx, "alice", "oops")
	if err != nil {
		t.Fatalf("EvaluateLogin() error = %v", err)
	}
	if out.Kind != OutcomeInvalidCredential || out.AttemptsRemaining != 2 {
		t.Fatalf("post-unlock outcome = %+v, want invalid_credential with 2 remaining", out)
	}
}

func TestUnknownUserOutcome(t *testing.T) {
	p, _ := newTestPolicy(t)

	out, err := p.EvaluateLogin(context.Background(), "ghost", "pw")
	if err != nil {
		t.Fatalf("EvaluateLogin() error = %v", err)
	}
	if out.Kind != OutcomeUserNotFound {
		t.Fatalf("outcome = %q, want %q", out.Kind, OutcomeUserNotFound)
	}

	status, err := p.AccountStatus(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("AccountStatus() error = %v", err)
	}
	if status != StatusNotFound {
		t.Fatalf("status = %q, want %q", status, StatusNotFound)
	}
}

func TestSetPasswordKeepsLockState(t *testing.T) {
	p, store := newTestPolicy(t)
	registerAlice(t, p)
	ctx := context.Background()

	for _, pw := range []string{"x", "y", "z"} {
		if _, err := p.EvaluateLogin(ctx, "alice", pw); err != nil {
			t.Fatalf("EvaluateLogin() error = %v", err)
		}
	}
	if err := p.SetPassword(ctx, "alice", "newpass1"); err != nil {
		t.Fatalf("SetPassword() error = %v", err)
	}

	rec, err := store.GetAccount(ctx, "alice")
	if err != nil {
		t.Fatalf("GetAccount() error = %v", err)
	}
	if rec.PasswordSecret != "newpass1" {
		t.Fatalf("PasswordSecret = %q, want %q", rec.PasswordSecret, "newpass1")
	}
	if !rec.Locked {
		t.Fatalf("SetPassword must not unlock the account")
	}
}
