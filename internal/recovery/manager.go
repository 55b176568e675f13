package recovery

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sudipkhatiwada/lockbox/internal/lockout"
)

var (
	ErrNotFound           = errors.New("conversation not found")
	ErrRecoveryInProgress = errors.New("a recovery conversation is already in progress for this user")
)

// liveConversation pairs a conversation with the mutex that serializes
// its turns. Advance holds turnMu across the whole read-advance-write so
// two concurrent advances on one conversation cannot drop a turn.
type liveConversation struct {
	turnMu sync.Mutex
	conv   Conversation
}

// Manager owns the live conversations. One username holds at most one
// uncompleted recovery conversation at a time; a second start is rejected
// until the first completes or is abandoned.
type Manager struct {
	mu                sync.RWMutex
	conversations     map[string]*liveConversation
	recoveryByUser    map[string]string
	engine            *Engine
	policy            *lockout.Policy
	inactivityTimeout time.Duration
	onExpire          func(*Conversation)
}

func NewManager(engine *Engine, policy *lockout.Policy, inactivityTimeout time.Duration) *Manager {
	if inactivityTimeout <= 0 {
		inactivityTimeout = 10 * time.Minute
	}
	return &Manager{
		conversations:     make(map[string]*liveConversation),
		recoveryByUser:    make(map[string]string),
		engine:            engine,
		policy:            policy,
		inactivityTimeout: inactivityTimeout,
	}
}

func (m *Manager) SetExpireHook(hook func(*Conversation)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onExpire = hook
}

// Start opens a conversation for the username. Locked accounts enter the
// guided recovery flow; active or unknown accounts get open dialogue.
func (m *Manager) Start(ctx context.Context, username string) (Conversation, error) {
	status, err := m.policy.AccountStatus(ctx, username)
	if err != nil {
		return Conversation{}, err
	}

	mode := ModeOpenDialogue
	if status == lockout.StatusLocked {
		mode = ModeRecovery
	}

	m.mu.Lock()
	if mode == ModeRecovery {
		if id, ok := m.recoveryByUser[username]; ok {
			if existing, live := m.conversations[id]; live && !existing.conv.Completed() {
				m.mu.Unlock()
				return Conversation{}, ErrRecoveryInProgress
			}
		}
	}
	m.mu.Unlock()

	now := time.Now().UTC()
	conv := Conversation{
		ID:             uuid.NewString(),
		Username:       username,
		Mode:           mode,
		Step:           StepAwaitingContact,
		StartedAt:      now,
		LastActivityAt: now,
	}
	greeting := m.engine.Greet(ctx, username, status)
	conv.Transcript = conv.Transcript.append(SpeakerAssistant, greeting)

	m.mu.Lock()
	defer m.mu.Unlock()
	// Re-check under the lock: a racing Start for the same username must
	// not yield two live recovery conversations.
	if mode == ModeRecovery {
		if id, ok := m.recoveryByUser[username]; ok {
			if existing, live := m.conversations[id]; live && !existing.conv.Completed() {
				return Conversation{}, ErrRecoveryInProgress
			}
		}
		m.recoveryByUser[username] = conv.ID
	}
	m.conversations[conv.ID] = &liveConversation{conv: conv}
	return conv, nil
}

// Resume rebuilds a conversation from a persisted transcript. The step is
// rederived from the sentinel markers, so resuming reproduces the behavior
// the transcript already shows.
func (m *Manager) Resume(ctx context.Context, username string, transcript Transcript) (Conversation, error) {
	status, err := m.policy.AccountStatus(ctx, username)
	if err != nil {
		return Conversation{}, err
	}

	mode := ModeOpenDialogue
	if status == lockout.StatusLocked {
		mode = ModeRecovery
	}

	now := time.Now().UTC()
	conv := Conversation{
		ID:             uuid.NewString(),
		Username:       username,
		Mode:           mode,
		Step:           StepFromTranscript(transcript),
		Transcript:     transcript,
		StartedAt:      now,
		LastActivityAt: now,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if mode == ModeRecovery {
		if id, ok := m.recoveryByUser[username]; ok {
			if existing, live := m.conversations[id]; live && !existing.conv.Completed() {
				return Conversation{}, ErrRecoveryInProgress
			}
		}
		m.recoveryByUser[username] = conv.ID
	}
	m.conversations[conv.ID] = &liveConversation{conv: conv}
	return conv, nil
}

// Advance applies one user utterance to a live conversation. Turns on one
// conversation are serial: a concurrent Advance for the same ID waits for
// the in-flight turn instead of racing its write-back.
func (m *Manager) Advance(ctx context.Context, conversationID, utterance string) (Conversation, string, error) {
	m.mu.RLock()
	entry, ok := m.conversations[conversationID]
	m.mu.RUnlock()
	if !ok {
		return Conversation{}, "", ErrNotFound
	}

	entry.turnMu.Lock()
	defer entry.turnMu.Unlock()

	next, reply, err := m.engine.Advance(ctx, entry.conv, utterance)
	if err != nil {
		return Conversation{}, "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// The janitor or Abandon may have dropped the entry while the engine ran.
	if _, ok := m.conversations[conversationID]; !ok {
		return Conversation{}, "", ErrNotFound
	}
	entry.conv = next
	if next.Completed() {
		if m.recoveryByUser[next.Username] == conversationID {
			delete(m.recoveryByUser, next.Username)
		}
	}
	return next, reply, nil
}

func (m *Manager) Get(conversationID string) (Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.conversations[conversationID]
	if !ok {
		return Conversation{}, ErrNotFound
	}
	return entry.conv, nil
}

// Abandon drops a conversation and frees the username's recovery slot.
func (m *Manager) Abandon(conversationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.conversations[conversationID]
	if !ok {
		return ErrNotFound
	}
	delete(m.conversations, conversationID)
	if m.recoveryByUser[entry.conv.Username] == conversationID {
		delete(m.recoveryByUser, entry.conv.Username)
	}
	return nil
}

func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.conversations)
}

// StartJanitor expires conversations that have gone quiet.
func (m *Manager) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.expireInactive()
			}
		}
	}()
}

func (m *Manager) expireInactive() {
	now := time.Now().UTC()
	var expired []*Conversation

	m.mu.Lock()
	for id, entry := range m.conversations {
		if now.Sub(entry.conv.LastActivityAt) < m.inactivityTimeout {
			continue
		}
		dropped := entry.conv
		expired = append(expired, &dropped)
		delete(m.conversations, id)
		if m.recoveryByUser[entry.conv.Username] == id {
			delete(m.recoveryByUser, entry.conv.Username)
		}
	}
	hook := m.onExpire
	m.mu.Unlock()

	if hook != nil {
		for _, conv := range expired {
			hook(conv)
		}
	}
}
