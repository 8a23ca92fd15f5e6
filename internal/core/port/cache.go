package port

import (
	"context"
	"time"

	"github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/core/domain"
)

// SessionCache is the fast-path projection of active sessions keyed by token.
type SessionCache interface {
	// Get returns repository.ErrNotFound on a cache miss.
	Get(ctx context.Context, token string) (*domain.CachedSession, error)
	Set(ctx context.Context, token string, session domain.CachedSession, ttl time.Duration) error
	Delete(ctx context.Context, tokens ...string) error
}
