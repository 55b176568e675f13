package recovery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func newManagerFixture(t *testing.T) (*Manager, *fixture) {
	t.Helper()
	f := newFixture(t)
	return NewManager(f.engine, f.policy, time.Minute), f
}

func TestStartPicksModeFromAccountStatus(t *testing.T) {
	m, f := newManagerFixture(t)
	f.lockAlice(t)
	ctx := context.Background()

	conv, err := m.Start(ctx, "alice")
	if err != nil {
		t.Fatalf("Start(alice) error = %v", err)
	}
	if conv.Mode != ModeRecovery || conv.Step != StepAwaitingContact {
		t.Fatalf("conversation = (%q, %q), want recovery at step 1", conv.Mode, conv.Step)
	}
	if len(conv.Transcript) != 1 || conv.Transcript[0].Speaker != SpeakerAssistant {
		t.Fatalf("transcript = %+v, want one opening assistant turn", conv.Transcript)
	}

	if err := f.policy.Register(ctx, "bob", "pw2", "b@x.com", "9851000000"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	conv, err = m.Start(ctx, "bob")
	if err != nil {
		t.Fatalf("Start(bob) error = %v", err)
	}
	if conv.Mode != ModeOpenDialogue {
		t.Fatalf("active-account mode = %q, want %q", conv.Mode, ModeOpenDialogue)
	}

	conv, err = m.Start(ctx, "ghost")
	if err != nil {
		t.Fatalf("Start(ghost) error = %v", err)
	}
	if conv.Mode != ModeOpenDialogue {
		t.Fatalf("unknown-user mode = %q, want %q", conv.Mode, ModeOpenDialogue)
	}
}

func TestSecondConcurrentRecoveryIsRejected(t *testing.T) {
	m, f := newManagerFixture(t)
	f.lockAlice(t)
	ctx := context.Background()

	first, err := m.Start(ctx, "alice")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, err := m.Start(ctx, "alice"); !errors.Is(err, ErrRecoveryInProgress) {
		t.Fatalf("second Start() error = %v, want ErrRecoveryInProgress", err)
	}

	if err := m.Abandon(first.ID); err != nil {
		t.Fatalf("Abandon() error = %v", err)
	}
	if _, err := m.Start(ctx, "alice"); err != nil {
		t.Fatalf("Start() after abandon error = %v", err)
	}
}

func TestManagerDrivesFullRecovery(t *testing.T) {
	m, f := newManagerFixture(t)
	f.lockAlice(t)
	ctx := context.Background()

	conv, err := m.Start(ctx, "alice")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	for _, utterance := range []string{"a@x.com", "42.50", "newpass1"} {
		conv, _, err = m.Advance(ctx, conv.ID, utterance)
		if err != nil {
			t.Fatalf("Advance(%q) error = %v", utterance, err)
		}
	}
	if !conv.Completed() {
		t.Fatalf("conversation not completed: step = %q", conv.Step)
	}

	rec, err := f.store.GetAccount(ctx, "alice")
	if err != nil {
		t.Fatalf("GetAccount() error = %v", err)
	}
	if rec.Locked || rec.PasswordSecret != "newpass1" {
		t.Fatalf("record = (locked=%v, secret=%q), want unlocked with new password", rec.Locked, rec.PasswordSecret)
	}

	// Completion frees the recovery slot while the conversation stays
	// readable.
	if _, err := m.Get(conv.ID); err != nil {
		t.Fatalf("Get() after completion error = %v", err)
	}
}

func TestConcurrentAdvancesKeepEveryTurn(t *testing.T) {
	m, f := newManagerFixture(t)
	ctx := context.Background()
	if err := f.policy.Register(ctx, "bob", "pw2", "b@x.com", "9851000000"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	conv, err := m.Start(ctx, "bob")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	const turns = 8
	var wg sync.WaitGroup
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if _, _, err := m.Advance(ctx, conv.ID, fmt.Sprintf("message %d", n)); err != nil {
				t.Errorf("Advance(%d) error = %v", n, err)
			}
		}(i)
	}
	wg.Wait()

	got, err := m.Get(conv.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	// Greeting plus a user and assistant turn per advance; a racing
	// write-back would drop pairs.
	if want := 1 + 2*turns; len(got.Transcript) != want {
		t.Fatalf("transcript length = %d, want %d", len(got.Transcript), want)
	}
}

func TestAdvanceUnknownConversation(t *testing.T) {
	m, _ := newManagerFixture(t)
	if _, _, err := m.Advance(context.Background(), "missing", "hi"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Advance(missing) error = %v, want ErrNotFound", err)
	}
}

func TestResumeRebuildsStepFromSentinels(t *testing.T) {
	m, f := newManagerFixture(t)
	f.lockAlice(t)
	ctx := context.Background()

	transcript := Transcript{}.
		append(SpeakerAssistant, "greeting").
		append(SpeakerUser, "a@x.com").
		append(SpeakerAssistant, sentinelContactVerified+"\n"+msgAskTransaction).
		append(SpeakerUser, "42.50").
		append(SpeakerAssistant, sentinelTransactionVerified+"\nStep 3 of 3")

	conv, err := m.Resume(ctx, "alice", transcript)
	if err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if conv.Step != StepAwaitingNewPassword {
		t.Fatalf("resumed step = %q, want %q", conv.Step, StepAwaitingNewPassword)
	}

	conv, _, err = m.Advance(ctx, conv.ID, "newpass1")
	if err != nil {
		t.Fatalf("Advance() error = %v", err)
	}
	if !conv.Completed() {
		t.Fatalf("resumed conversation should complete, step = %q", conv.Step)
	}
}

func TestJanitorExpiresInactiveConversations(t *testing.T) {
	f := newFixture(t)
	f.lockAlice(t)
	m := NewManager(f.engine, f.policy, 30*time.Millisecond)

	expired := make(chan *Conversation, 1)
	m.SetExpireHook(func(c *Conversation) { expired <- c })

	conv, err := m.Start(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.StartJanitor(ctx, 10*time.Millisecond)

	select {
	case c := <-expired:
		if c.ID != conv.ID {
			t.Fatalf("expired conversation = %q, want %q", c.ID, conv.ID)
		}
	case <-time.After(time.Second):
		t.Fatalf("janitor did not expire the conversation")
	}

	if _, err := m.Get(conv.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() after expiry error = %v, want ErrNotFound", err)
	}
	if _, err := m.Start(context.Background(), "alice"); err != nil {
		t.Fatalf("Start() after expiry error = %v, want slot freed", err)
	}
}
