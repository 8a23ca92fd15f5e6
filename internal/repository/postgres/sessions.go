package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/core/domain"
	"github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/core/port"
	"github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/repository"
)

var sessionColumns = []string{
	"session_token",
	"user_id",
	"created_at",
	"expires_at",
	"last_accessed",
}

// SessionRepository implements port.SessionRepository backed by PostgreSQL.
type SessionRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewSessionRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewSessionRepository(exec pgExecutor) *SessionRepository {
	return &SessionRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository instance that executes statements within the supplied transaction.
func (r *SessionRepository) WithTx(tx pgx.Tx) *SessionRepository {
	if tx == nil {
		return r
	}
	return &SessionRepository{
		exec:    tx,
		builder: r.builder,
	}
}

// Create persists a freshly issued session.
func (r *SessionRepository) Create(ctx context.Context, session domain.Session) error {
	sqlStmt, args, err := r.builder.Insert(sessionsTable).
		Columns(sessionColumns...).
		Values(
			session.Token,
			session.AccountID,
			session.IssuedAt,
			session.ExpiresAt,
			session.LastAccessedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert session sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sqlStmt, args...); err != nil {
		return fmt.Errorf("insert session: %w", repository.TranslatePgError(err))
	}

	return nil
}

// GetByToken returns the durable session stored under the token.
func (r *SessionRepository) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	sqlStmt, args, err := r.builder.
		Select(sessionColumns...).
		From(sessionsTable).
		Where(squirrel.Eq{"session_token": token}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select session sql: %w", err)
	}

	session, err := scanSession(r.exec.QueryRow(ctx, sqlStmt, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}

	return &session, nil
}

// Touch stamps last_accessed on an unexpired session.
func (r *SessionRepository) Touch(ctx context.Context, token string, at time.Time) error {
	sqlStmt, args, err := r.builder.Update(sessionsTable).
		Set("last_accessed", at).
		Where(squirrel.Eq{"session_token": token}).
		Where(squirrel.Gt{"expires_at": at}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build touch session sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, sqlStmt, args...)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Delete hard-deletes the session. Deleting a missing token is not an error.
func (r *SessionRepository) Delete(ctx context.Context, token string) error {
	sqlStmt, args, err := r.builder.Delete(sessionsTable).
		Where(squirrel.Eq{"session_token": token}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete session sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sqlStmt, args...); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	return nil
}

// ListByAccount returns every durable session owned by the account, newest first.
func (r *SessionRepository) ListByAccount(ctx context.Context, accountID string) ([]domain.Session, error) {
	sqlStmt, args, err := r.builder.
		Select(sessionColumns...).
		From(sessionsTable).
		Where(squirrel.Eq{"user_id": accountID}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list sessions sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, sqlStmt, args...)
	if err != nil {
		return noSessionsIfMalformed(fmt.Errorf("list sessions: %w", repository.TranslatePgError(err)))
	}
	defer rows.Close()

	sessions := make([]domain.Session, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return noSessionsIfMalformed(fmt.Errorf("iterate sessions: %w", repository.TranslatePgError(err)))
	}

	return sessions, nil
}

// DeleteExpired removes sessions that expired strictly before the cutoff.
func (r *SessionRepository) DeleteExpired(ctx context.Context, cutoff time.Time) ([]string, error) {
	sqlStmt, args, err := r.builder.Delete(sessionsTable).
		Where(squirrel.Lt{"expires_at": cutoff}).
		Suffix("RETURNING session_token").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build delete expired sessions sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, sqlStmt, args...)
	if err != nil {
		return nil, fmt.Errorf("delete expired sessions: %w", err)
	}

	tokens, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collect expired session tokens: %w", err)
	}

	return tokens, nil
}

// noSessionsIfMalformed reports an account id that cannot exist as owning no sessions.
func noSessionsIfMalformed(err error) ([]domain.Session, error) {
	if errors.Is(err, repository.ErrNotFound) {
		return []domain.Session{}, nil
	}
	return nil, err
}

func scanSession(row pgx.Row) (domain.Session, error) {
	var session domain.Session
	err := row.Scan(
		&session.Token,
		&session.AccountID,
		&session.IssuedAt,
		&session.ExpiresAt,
		&session.LastAccessedAt,
	)
	return session, err
}

var _ port.SessionRepository = (*SessionRepository)(nil)
