package account

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore is a simple in-process store for local/dev use.
type InMemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]Account
	feedback []Feedback
	tickets  map[string]RecoveryRequest
	// insertion order for stable ticket listings
	ticketOrder []string
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		accounts: make(map[string]Account),
		tickets:  make(map[string]RecoveryRequest),
	}
}

func (s *InMemoryStore) CreateAccount(_ context.Context, a Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[a.Username]; ok {
		return ErrDuplicateUsername
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	s.accounts[a.Username] = a
	return nil
}

func (s *InMemoryStore) GetAccount(_ context.Context, username string) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[username]
	if !ok {
		return Account{}, ErrNotFound
	}
	return a, nil
}

func (s *InMemoryStore) UpdateLockState(_ context.Context, username string, failedAttempts int, locked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[username]
	if !ok {
		return ErrNotFound
	}
	a.FailedAttempts = failedAttempts
	a.Locked = locked
	s.accounts[username] = a
	return nil
}

func (s *InMemoryStore) UpdateCredential(_ context.Context, username, newSecret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[username]
	if !ok {
		return ErrNotFound
	}
	a.PasswordSecret = newSecret
	s.accounts[username] = a
	return nil
}

func (s *InMemoryStore) SubmitFeedback(_ context.Context, f Feedback) (Feedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	s.feedback = append(s.feedback, f)
	return f, nil
}

func (s *InMemoryStore) ListFeedback(_ context.Context, username string) ([]Feedback, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Feedback, 0)
	for _, f := range s.feedback {
		if username == "" || f.Username == username {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *InMemoryStore) CreateRecoveryRequest(_ context.Context, r RecoveryRequest) (RecoveryRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Status == "" {
		r.Status = TicketPending
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	s.tickets[r.ID] = r
	s.ticketOrder = append(s.ticketOrder, r.ID)
	return r, nil
}

func (s *InMemoryStore) ListRecoveryRequests(_ context.Context, status string) ([]RecoveryRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]RecoveryRequest, 0)
	for _, id := range s.ticketOrder {
		r := s.tickets[id]
		if status == "" || r.Status == status {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *InMemoryStore) UpdateRecoveryRequestStatus(_ context.Context, id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.tickets[id]
	if !ok {
		return ErrTicketNotFound
	}
	r.Status = status
	s.tickets[id] = r
	return nil
}

func (s *InMemoryStore) Close() error { return nil }
