package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists account state in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			username TEXT PRIMARY KEY,
			password TEXT NOT NULL,
			email TEXT NOT NULL,
			phone TEXT NOT NULL,
			failed_attempts INTEGER NOT NULL DEFAULT 0,
			locked BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE TABLE IF NOT EXISTS feedback (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL,
			rating INTEGER NOT NULL,
			comment TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_feedback_username ON feedback (username, created_at);`,
		`CREATE TABLE IF NOT EXISTS recovery_requests (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL,
			issue TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'Pending',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_recovery_requests_status ON recovery_requests (status, created_at);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) CreateAccount(ctx context.Context, a Account) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO accounts (username, password, email, phone, failed_attempts, locked, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.Username, a.PasswordSecret, a.Email, a.Phone, a.FailedAttempts, a.Locked, a.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateUsername
		}
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetAccount(ctx context.Context, username string) (Account, error) {
	var a Account
	err := s.pool.QueryRow(ctx,
		`SELECT username, password, email, phone, failed_attempts, locked, created_at
		 FROM accounts WHERE username=$1`,
		username,
	).Scan(&a.Username, &a.PasswordSecret, &a.Email, &a.Phone, &a.FailedAttempts, &a.Locked, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

// UpdateLockState is a single guarded UPDATE so concurrent login
// evaluations for one username serialize on the row.
func (s *PostgresStore) UpdateLockState(ctx context.Context, username string, failedAttempts int, locked bool) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE accounts SET failed_attempts=$2, locked=$3 WHERE username=$1`,
		username, failedAttempts, locked,
	)
	if err != nil {
		return fmt.Errorf("update lock state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) UpdateCredential(ctx context.Context, username, newSecret string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE accounts SET password=$2 WHERE username=$1`,
		username, newSecret,
	)
	if err != nil {
		return fmt.Errorf("update credential: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SubmitFeedback(ctx context.Context, f Feedback) (Feedback, error) {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO feedback (id, username, rating, comment, created_at) VALUES ($1, $2, $3, $4, $5)`,
		f.ID, f.Username, f.Rating, f.Comment, f.CreatedAt,
	)
	if err != nil {
		return Feedback{}, fmt.Errorf("submit feedback: %w", err)
	}
	return f, nil
}

func (s *PostgresStore) ListFeedback(ctx context.Context, username string) ([]Feedback, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, username, rating, comment, created_at
		 FROM feedback WHERE ($1 = '' OR username=$1) ORDER BY created_at`,
		username,
	)
	if err != nil {
		return nil, fmt.Errorf("query feedback: %w", err)
	}
	defer rows.Close()

	out := make([]Feedback, 0)
	for rows.Next() {
		var f Feedback
		if err := rows.Scan(&f.ID, &f.Username, &f.Rating, &f.Comment, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan feedback row: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feedback rows: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) CreateRecoveryRequest(ctx context.Context, r RecoveryRequest) (RecoveryRequest, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Status == "" {
		r.Status = TicketPending
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO recovery_requests (id, username, issue, status, created_at) VALUES ($1, $2, $3, $4, $5)`,
		r.ID, r.Username, r.Issue, r.Status, r.CreatedAt,
	)
	if err != nil {
		return RecoveryRequest{}, fmt.Errorf("create recovery request: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) ListRecoveryRequests(ctx context.Context, status string) ([]RecoveryRequest, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, username, issue, status, created_at
		 FROM recovery_requests WHERE ($1 = '' OR status=$1) ORDER BY created_at`,
		status,
	)
	if err != nil {
		return nil, fmt.Errorf("query recovery requests: %w", err)
	}
	defer rows.Close()

	out := make([]RecoveryRequest, 0)
	for rows.Next() {
		var r RecoveryRequest
		if err := rows.Scan(&r.ID, &r.Username, &r.Issue, &r.Status, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan recovery request row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recovery request rows: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) UpdateRecoveryRequestStatus(ctx context.Context, id, status string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE recovery_requests SET status=$2 WHERE id=$1`,
		id, status,
	)
	if err != nil {
		return fmt.Errorf("update recovery request status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTicketNotFound
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
