package port

import (
	"context"
	"time"

	"github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/core/domain"
)

// SessionRepository deals with durable session storage.
type SessionRepository interface {
	Create(ctx context.Context, session domain.Session) error
	GetByToken(ctx context.Context, token string) (*domain.Session, error)
	// Touch stamps last_accessed for an unexpired session, returning repository.ErrNotFound when none matches.
	Touch(ctx context.Context, token string, at time.Time) error
	Delete(ctx context.Context, token string) error
	ListByAccount(ctx context.Context, accountID string) ([]domain.Session, error)
	// DeleteExpired removes sessions whose expiry is strictly before the cutoff and returns their tokens.
	DeleteExpired(ctx context.Context, cutoff time.Time) ([]string, error)
}
