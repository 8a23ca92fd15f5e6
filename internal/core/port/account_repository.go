package port

import (
	"context"
	"time"

	"github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/core/domain"
)

// AccountRepository exposes persistence behavior for accounts and their lockout bookkeeping.
type AccountRepository interface {
	Create(ctx context.Context, account domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	// GetByUsername matches the username exactly and skips deleted accounts.
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)
	GetUserType(ctx context.Context, name string) (*domain.UserType, error)
	ListUserTypes(ctx context.Context) ([]domain.UserType, error)
	// RegisterFailedLogin increments the failure counter and applies the lock in a single atomic statement.
	RegisterFailedLogin(ctx context.Context, id string, policy domain.LockoutPolicy, at time.Time) (domain.LockoutState, error)
	// RecordSuccessfulLogin clears lockout bookkeeping and stamps last_login.
	RecordSuccessfulLogin(ctx context.Context, id string, at time.Time) error
	SetActive(ctx context.Context, id string, active bool) error
	SoftDelete(ctx context.Context, id string) error
}
