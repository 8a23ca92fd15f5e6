package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/core/domain"
	"github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/core/port"
	"github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/infra/security"
	"github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/repository"
)

// CreateAccountInput carries the fields accepted when an administrator creates an account.
type CreateAccountInput struct {
	Username  string
	Password  string
	FirstName string
	LastName  string
	Phone     *string
	UserType  string
}

// AccountService manages account lifecycle on behalf of administrators.
type AccountService struct {
	accounts port.AccountRepository
	sessions *SessionManager
	hasher   port.PasswordHasher
	policy   port.PasswordPolicyValidator
	logger   *zap.Logger
	now      func() time.Time
}

// NewAccountService constructs an AccountService. sessions may be nil for offline tooling that only creates accounts.
func NewAccountService(accounts port.AccountRepository, sessions *SessionManager, hasher port.PasswordHasher, policy port.PasswordPolicyValidator, logger *zap.Logger) *AccountService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountService{
		accounts: accounts,
		sessions: sessions,
		hasher:   hasher,
		policy:   policy,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the internal clock for deterministic tests.
func (s *AccountService) WithClock(clock func() time.Time) *AccountService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// CreateAccount validates the input, hashes the password and persists a new active account.
func (s *AccountService) CreateAccount(ctx context.Context, input CreateAccountInput, createdBy *string) (*domain.Account, error) {
	username := strings.TrimSpace(input.Username)
	firstName := strings.TrimSpace(input.FirstName)
	lastName := strings.TrimSpace(input.LastName)
	userTypeName := strings.ToLower(strings.TrimSpace(input.UserType))

	switch {
	case username == "":
		return nil, fmt.Errorf("%w: username is required", ErrValidation)
	case firstName == "" || lastName == "":
		return nil, fmt.Errorf("%w: first and last name are required", ErrValidation)
	case userTypeName == "":
		return nil, fmt.Errorf("%w: user type is required", ErrValidation)
	}

	if s.policy != nil {
		if err := s.policy.Validate(input.Password, username, firstName, lastName); err != nil {
			var policyErr *security.PasswordValidationError
			if errors.As(err, &policyErr) {
				return nil, fmt.Errorf("%w: %s", ErrValidation, policyErr.Message)
			}
			return nil, fmt.Errorf("validate password: %w", err)
		}
	} else if input.Password == "" {
		return nil, fmt.Errorf("%w: password is required", ErrValidation)
	}

	userType, err := s.accounts.GetUserType(ctx, userTypeName)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid user type %q", ErrValidation, userTypeName)
		}
		return nil, fmt.Errorf("load user type: %w", err)
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	account := domain.Account{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		FirstName:    firstName,
		LastName:     lastName,
		Phone:        input.Phone,
		UserTypeID:   userType.ID,
		UserType:     userType.Name,
		Permissions:  userType.Permissions,
		Active:       true,
		CreatedBy:    createdBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict):
			return nil, fmt.Errorf("%w: username already exists", ErrConflict)
		case errors.Is(err, repository.ErrInvalidReference):
			return nil, fmt.Errorf("%w: invalid user type %q", ErrValidation, userTypeName)
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	s.logger.Info("account created",
		zap.String("account_id", account.ID),
		zap.String("user_type", account.UserType),
	)

	return &account, nil
}

// GetAccount loads a non-deleted account by id.
func (s *AccountService) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: account id is required", ErrValidation)
	}

	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load account: %w", err)
	}
	if account.Deleted {
		return nil, ErrNotFound
	}
	return account, nil
}

// SetActive toggles the active flag. Deactivation revokes every session of the account.
func (s *AccountService) SetActive(ctx context.Context, id string, active bool) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: account id is required", ErrValidation)
	}

	if err := s.accounts.SetActive(ctx, id, active); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("set account active: %w", err)
	}

	if active {
		s.logger.Info("account activated", zap.String("account_id", id))
		return nil
	}

	revoked, err := s.revokeSessions(ctx, id, ReasonDeactivated)
	if err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	s.logger.Info("account deactivated", zap.String("account_id", id), zap.Int("sessions_revoked", revoked))
	return nil
}

// DeleteAccount soft deletes the account and revokes its sessions.
func (s *AccountService) DeleteAccount(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: account id is required", ErrValidation)
	}

	if err := s.accounts.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete account: %w", err)
	}

	revoked, err := s.revokeSessions(ctx, id, ReasonDeleted)
	if err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	s.logger.Info("account deleted", zap.String("account_id", id), zap.Int("sessions_revoked", revoked))
	return nil
}

// ListUserTypes returns the roles an account can be created with.
func (s *AccountService) ListUserTypes(ctx context.Context) ([]domain.UserType, error) {
	userTypes, err := s.accounts.ListUserTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list user types: %w", err)
	}
	return userTypes, nil
}

func (s *AccountService) revokeSessions(ctx context.Context, id, reason string) (int, error) {
	if s.sessions == nil {
		return 0, nil
	}
	return s.sessions.RevokeAllWithReason(ctx, id, reason)
}
