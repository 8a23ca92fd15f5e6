package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/core/domain"
	"github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/core/port"
	"github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/infra/logger"
	"github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/repository"
)

// Login outcomes reported in metrics.
const (
	loginSuccess            = "success"
	loginInvalidCredentials = "invalid_credentials"
	loginLocked             = "locked"
	loginError              = "error"
)

// dummyPassword is hashed once so unknown usernames pay the same verification cost as real ones.
const dummyPassword = "carbon-lms-timing-equaliser"

// LoginResult is returned after a successful login.
type LoginResult struct {
	Principal domain.Principal
	Token     string
	ExpiresAt time.Time
}

// AuthService orchestrates credential checks, lockout bookkeeping and session issuance.
type AuthService struct {
	accounts port.AccountRepository
	sessions *SessionManager
	hasher   port.PasswordHasher
	events   port.EventPublisher
	metrics  port.AuthMetrics
	logger   *zap.Logger
	tracer   trace.Tracer
	policy   domain.LockoutPolicy
	now      func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService wires the login flow.
func NewAuthService(accounts port.AccountRepository, sessions *SessionManager, hasher port.PasswordHasher, policy domain.LockoutPolicy, log *zap.Logger) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{
		accounts: accounts,
		sessions: sessions,
		hasher:   hasher,
		metrics:  noopMetrics{},
		logger:   log,
		tracer:   otel.Tracer(tracerName),
		policy:   policy,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the internal clock for deterministic tests.
func (s *AuthService) WithClock(clock func() time.Time) *AuthService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// WithEvents injects the publisher for login and lockout events.
func (s *AuthService) WithEvents(events port.EventPublisher) *AuthService {
	s.events = events
	return s
}

// WithMetrics injects the metrics recorder.
func (s *AuthService) WithMetrics(metrics port.AuthMetrics) *AuthService {
	if metrics != nil {
		s.metrics = metrics
	}
	return s
}

// Login verifies the credentials and issues a session. Unknown usernames, wrong passwords and
// locked accounts all fail with ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.Login")
	defer span.End()

	result, outcome, err := s.login(ctx, username, password)
	s.metrics.ObserveLogin(outcome)
	if err != nil && !errors.Is(err, ErrInvalidCredentials) {
		recordSpanError(span, err)
	}
	span.SetAttributes(attribute.String("login.outcome", outcome))
	return result, err
}

func (s *AuthService) login(ctx context.Context, username, password string) (*LoginResult, string, error) {
	log := s.requestLogger(ctx).With(zap.String("username", logger.MaskUsername(username)))

	if username == "" || password == "" {
		s.burnVerification(password)
		return nil, loginInvalidCredentials, ErrInvalidCredentials
	}

	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.burnVerification(password)
			log.Info("login rejected", zap.String("reason", "unknown_user"))
			return nil, loginInvalidCredentials, ErrInvalidCredentials
		}
		return nil, loginError, fmt.Errorf("load account: %w", err)
	}

	if !account.CanAuthenticate() {
		s.burnVerification(password)
		log.Info("login rejected", zap.String("reason", "inactive_account"), zap.String("account_id", account.ID))
		return nil, loginInvalidCredentials, ErrInvalidCredentials
	}

	now := s.now()
	if s.policy.IsLocked(account.Lockout, now) {
		log.Info("login rejected", zap.String("reason", "locked"), zap.String("account_id", account.ID))
		return nil, loginLocked, ErrInvalidCredentials
	}

	if !s.hasher.Verify(account.PasswordHash, password) {
		if err := s.registerFailure(ctx, account, now); err != nil {
			return nil, loginError, err
		}
		log.Info("login rejected", zap.String("reason", "bad_password"), zap.String("account_id", account.ID))
		return nil, loginInvalidCredentials, ErrInvalidCredentials
	}

	if err := s.accounts.RecordSuccessfulLogin(ctx, account.ID, now); err != nil {
		return nil, loginError, fmt.Errorf("record successful login: %w", err)
	}

	session, err := s.sessions.Issue(ctx, account.ID)
	if err != nil {
		return nil, loginError, fmt.Errorf("issue session: %w", err)
	}

	account.Lockout = s.policy.Reset()
	account.LastLogin = &now
	principal := account.Principal()

	s.publishLoginSucceeded(ctx, account, session)
	log.Info("login succeeded", zap.String("account_id", account.ID))

	return &LoginResult{Principal: principal, Token: session.Token, ExpiresAt: session.ExpiresAt}, loginSuccess, nil
}

func (s *AuthService) registerFailure(ctx context.Context, account *domain.Account, now time.Time) error {
	state, err := s.accounts.RegisterFailedLogin(ctx, account.ID, s.policy, now)
	if err != nil {
		return fmt.Errorf("register failed login: %w", err)
	}

	// The account was open when this attempt started, so reaching the threshold means this attempt locked it.
	if s.policy.Threshold <= 0 || s.policy.Duration <= 0 || state.FailedLoginAttempts < s.policy.Threshold || state.LockedUntil == nil {
		return nil
	}

	s.requestLogger(ctx).Warn("account locked",
		zap.String("account_id", account.ID),
		zap.Int("failed_attempts", state.FailedLoginAttempts),
		zap.Time("locked_until", *state.LockedUntil),
	)

	if s.events == nil {
		return nil
	}
	event := domain.AccountLockedEvent{
		EventID:        uuid.NewString(),
		AccountID:      account.ID,
		Username:       account.Username,
		FailedAttempts: state.FailedLoginAttempts,
		LockedAt:       now,
		LockedUntil:    *state.LockedUntil,
	}
	if err := s.events.PublishAccountLocked(ctx, event); err != nil {
		s.logger.Warn("publish account locked event failed", zap.String("account_id", account.ID), zap.Error(err))
	}
	return nil
}

func (s *AuthService) publishLoginSucceeded(ctx context.Context, account *domain.Account, session domain.Session) {
	if s.events == nil {
		return
	}
	event := domain.LoginSucceededEvent{
		EventID:   uuid.NewString(),
		AccountID: account.ID,
		Username:  account.Username,
		LoggedAt:  session.IssuedAt,
		ExpiresAt: session.ExpiresAt,
	}
	if err := s.events.PublishLoginSucceeded(ctx, event); err != nil {
		s.logger.Warn("publish login succeeded event failed", zap.String("account_id", account.ID), zap.Error(err))
	}
}

func (s *AuthService) requestLogger(ctx context.Context) *zap.Logger {
	if id := logger.RequestIDFromContext(ctx); id != "" {
		return s.logger.With(zap.String("request_id", id))
	}
	return s.logger
}

// burnVerification spends one password verification against a fixed hash.
func (s *AuthService) burnVerification(password string) {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash(dummyPassword)
		if err != nil {
			s.logger.Warn("prepare dummy password hash failed", zap.Error(err))
			return
		}
		s.dummyHash = hash
	})
	if s.dummyHash == "" {
		return
	}
	_ = s.hasher.Verify(s.dummyHash, password)
}

// Logout revokes the session behind token. Invalid or unknown tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if err := s.sessions.Revoke(ctx, token); err != nil {
		s.requestLogger(ctx).Warn("logout revoke failed", zap.Error(err))
	}
	return nil
}

// AuthenticateRequest resolves the principal for a request token.
func (s *AuthService) AuthenticateRequest(ctx context.Context, token string) (*domain.Principal, error) {
	return s.sessions.Validate(ctx, token)
}

// HasPermission reports whether the principal holds the capability.
func (s *AuthService) HasPermission(principal *domain.Principal, capability string) bool {
	if principal == nil {
		return false
	}
	return principal.HasPermission(capability)
}

// IsAdmin reports whether the principal is an administrator.
func (s *AuthService) IsAdmin(principal *domain.Principal) bool {
	if principal == nil {
		return false
	}
	return principal.IsAdmin()
}
