package account

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("account not found")
	ErrDuplicateUsername = errors.New("username already exists")
	ErrTicketNotFound    = errors.New("recovery request not found")
)

// Account is one registered user record. PasswordSecret is the opaque
// credential compared verbatim on login; the lockout policy owns
// FailedAttempts and Locked.
type Account struct {
	Username       string    `json:"username"`
	PasswordSecret string    `json:"-"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone"`
	FailedAttempts int       `json:"failed_attempts"`
	Locked         bool      `json:"locked"`
	CreatedAt      time.Time `json:"created_at"`
}

// Feedback is a user rating submitted from the insights page.
type Feedback struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

// Recovery request ticket statuses.
const (
	TicketPending  = "Pending"
	TicketResolved = "Resolved"
	TicketRejected = "Rejected"
)

// RecoveryRequest is a support ticket raised when self-service recovery
// is not enough.
type RecoveryRequest struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Issue     string    `json:"issue"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists accounts, feedback, and recovery request tickets.
//
// UpdateLockState must apply atomically per username: concurrent login
// evaluations for one account serialize on the record write.
type Store interface {
	CreateAccount(ctx context.Context, a Account) error
	GetAccount(ctx context.Context, username string) (Account, error)
	UpdateLockState(ctx context.Context, username string, failedAttempts int, locked bool) error
	UpdateCredential(ctx context.Context, username, newSecret string) error

	SubmitFeedback(ctx context.Context, f Feedback) (Feedback, error)
	ListFeedback(ctx context.Context, username string) ([]Feedback, error)

	CreateRecoveryRequest(ctx context.Context, r RecoveryRequest) (RecoveryRequest, error)
	ListRecoveryRequests(ctx context.Context, status string) ([]RecoveryRequest, error)
	UpdateRecoveryRequestStatus(ctx context.Context, id, status string) error

	Close() error
}
