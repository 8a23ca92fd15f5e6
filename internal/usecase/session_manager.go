package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/core/domain"
	"github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/core/port"
	"github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/infra/security"
	"github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/repository"
)

// DefaultSessionLifetime is how long an issued session stays valid.
const DefaultSessionLifetime = 24 * time.Hour

// CacheMissPolicy decides what Validate does when the cache has no entry for a token.
type CacheMissPolicy string

const (
	// CacheMissStrict treats a cache miss as "no session".
	CacheMissStrict CacheMissPolicy = "strict"
	// CacheMissFallback consults the durable store on a miss and repopulates the cache.
	CacheMissFallback CacheMissPolicy = "fallback"
)

// Revocation reasons reported in metrics and events.
const (
	ReasonLogout      = "logout"
	ReasonExpired     = "expired"
	ReasonAccountGone = "account_unavailable"
	ReasonRevokeAll   = "revoke_all"
	ReasonDeactivated = "account_deactivated"
	ReasonDeleted     = "account_deleted"
)

// Validation results reported in metrics.
const (
	validationValid   = "valid"
	validationInvalid = "invalid"
	validationError   = "error"
)

// SessionManager issues, validates and revokes opaque session tokens across the cache and durable tiers.
type SessionManager struct {
	sessions   port.SessionRepository
	cache      port.SessionCache
	accounts   port.AccountRepository
	events     port.EventPublisher
	metrics    port.AuthMetrics
	logger     *zap.Logger
	tracer     trace.Tracer
	lifetime   time.Duration
	missPolicy CacheMissPolicy
	newToken   func() (string, error)
	now        func() time.Time
}

// NewSessionManager constructs a SessionManager using the strict cache-miss policy and a 24h lifetime.
func NewSessionManager(sessions port.SessionRepository, cache port.SessionCache, accounts port.AccountRepository, logger *zap.Logger) *SessionManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionManager{
		sessions:   sessions,
		cache:      cache,
		accounts:   accounts,
		metrics:    noopMetrics{},
		logger:     logger,
		tracer:     otel.Tracer(tracerName),
		lifetime:   DefaultSessionLifetime,
		missPolicy: CacheMissStrict,
		newToken:   security.GenerateSessionToken,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the internal clock for deterministic tests.
func (m *SessionManager) WithClock(clock func() time.Time) *SessionManager {
	if clock != nil {
		m.now = clock
	}
	return m
}

// WithLifetime overrides the session lifetime. Non-positive values are ignored.
func (m *SessionManager) WithLifetime(lifetime time.Duration) *SessionManager {
	if lifetime > 0 {
		m.lifetime = lifetime
	}
	return m
}

// WithCacheMissPolicy selects how cache misses are handled. Unknown values keep the strict policy.
func (m *SessionManager) WithCacheMissPolicy(policy CacheMissPolicy) *SessionManager {
	if policy == CacheMissFallback {
		m.missPolicy = CacheMissFallback
	} else {
		m.missPolicy = CacheMissStrict
	}
	return m
}

// WithEvents injects the publisher used for bulk revocation events.
func (m *SessionManager) WithEvents(events port.EventPublisher) *SessionManager {
	m.events = events
	return m
}

// WithMetrics injects the metrics recorder.
func (m *SessionManager) WithMetrics(metrics port.AuthMetrics) *SessionManager {
	if metrics != nil {
		m.metrics = metrics
	}
	return m
}

// Lifetime reports the configured session lifetime.
func (m *SessionManager) Lifetime() time.Duration {
	return m.lifetime
}

// Issue creates a session for the account, writing the durable row first and then the cache entry.
// When the cache write fails the durable row is removed again so the tiers never disagree.
func (m *SessionManager) Issue(ctx context.Context, accountID string) (domain.Session, error) {
	ctx, span := m.tracer.Start(ctx, "SessionManager.Issue", trace.WithAttributes(attribute.String("account.id", accountID)))
	defer span.End()

	if strings.TrimSpace(accountID) == "" {
		return domain.Session{}, fmt.Errorf("%w: account id is required", ErrValidation)
	}

	token, err := m.newToken()
	if err != nil {
		return domain.Session{}, recordSpanError(span, err)
	}

	now := m.now()
	session := domain.Session{
		Token:          token,
		AccountID:      accountID,
		IssuedAt:       now,
		ExpiresAt:      now.Add(m.lifetime),
		LastAccessedAt: &now,
	}

	if err := m.sessions.Create(ctx, session); err != nil {
		return domain.Session{}, recordSpanError(span, fmt.Errorf("persist session: %w", err))
	}

	if err := m.cache.Set(ctx, token, session.Cached(), session.ExpiresAt.Sub(now)); err != nil {
		m.metrics.ObserveCacheError("set")
		if delErr := m.sessions.Delete(ctx, token); delErr != nil {
			m.logger.Error("rollback session after cache failure",
				zap.String("account_id", accountID),
				zap.String("token_fp", security.Fingerprint(token)),
				zap.Error(delErr),
			)
		}
		return domain.Session{}, recordSpanError(span, fmt.Errorf("cache session: %w", err))
	}

	m.metrics.ObserveSessionIssued()
	m.logger.Debug("session issued",
		zap.String("account_id", accountID),
		zap.String("token_fp", security.Fingerprint(token)),
		zap.Time("expires_at", session.ExpiresAt),
	)

	return session, nil
}

// Validate resolves the principal owning token. Any token that cannot be proven valid yields ErrUnauthorized;
// other errors mean the durable store could not be consulted and the request must fail.
func (m *SessionManager) Validate(ctx context.Context, token string) (*domain.Principal, error) {
	ctx, span := m.tracer.Start(ctx, "SessionManager.Validate")
	defer span.End()

	principal, err := m.validate(ctx, strings.TrimSpace(token))
	switch {
	case err == nil:
		m.metrics.ObserveSessionValidation(validationValid)
		span.SetAttributes(attribute.String("account.id", principal.AccountID))
	case errors.Is(err, ErrUnauthorized):
		m.metrics.ObserveSessionValidation(validationInvalid)
	default:
		m.metrics.ObserveSessionValidation(validationError)
		recordSpanError(span, err)
	}
	return principal, err
}

func (m *SessionManager) validate(ctx context.Context, token string) (*domain.Principal, error) {
	if token == "" || !security.IsWellFormedSessionToken(token) {
		return nil, ErrUnauthorized
	}

	now := m.now()

	cached, err := m.lookupCache(ctx, token)
	if err != nil {
		return nil, err
	}
	if cached == nil {
		return nil, ErrUnauthorized
	}

	if cached.IsExpired(now) {
		m.purge(ctx, token, ReasonExpired)
		return nil, ErrUnauthorized
	}

	account, err := m.accounts.GetByID(ctx, cached.AccountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			m.purge(ctx, token, ReasonAccountGone)
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("load session account: %w", err)
	}
	if !account.CanAuthenticate() {
		m.purge(ctx, token, ReasonAccountGone)
		return nil, ErrUnauthorized
	}

	if err := m.sessions.Touch(ctx, token, now); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// The durable row is gone or expired; the cache entry is stale.
			m.dropCache(ctx, token)
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("touch session: %w", err)
	}

	principal := account.Principal()
	return &principal, nil
}

// lookupCache returns nil without error when the token has no usable cache entry under the active policy.
func (m *SessionManager) lookupCache(ctx context.Context, token string) (*domain.CachedSession, error) {
	cached, err := m.cache.Get(ctx, token)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		m.metrics.ObserveCacheError("get")
		m.logger.Warn("session cache lookup failed; treating as miss",
			zap.String("token_fp", security.Fingerprint(token)),
			zap.Error(err),
		)
	}

	if m.missPolicy != CacheMissFallback {
		return nil, nil
	}

	session, err := m.sessions.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load session: %w", err)
	}

	projection := session.Cached()
	if remaining := session.ExpiresAt.Sub(m.now()); remaining > 0 {
		if err := m.cache.Set(ctx, token, projection, remaining); err != nil {
			m.metrics.ObserveCacheError("set")
			m.logger.Warn("repopulate session cache failed",
				zap.String("token_fp", security.Fingerprint(token)),
				zap.Error(err),
			)
		}
	}

	return &projection, nil
}

// Revoke deletes the session from both tiers. Revoking an unknown token is not an error.
func (m *SessionManager) Revoke(ctx context.Context, token string) error {
	ctx, span := m.tracer.Start(ctx, "SessionManager.Revoke")
	defer span.End()

	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}

	if err := m.revoke(ctx, token); err != nil {
		return recordSpanError(span, err)
	}
	m.metrics.ObserveSessionsRevoked(ReasonLogout, 1)
	return nil
}

func (m *SessionManager) revoke(ctx context.Context, token string) error {
	m.dropCache(ctx, token)
	if err := m.sessions.Delete(ctx, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// purge is the best-effort revoke used while validating; failures are logged and the token stays invalid.
func (m *SessionManager) purge(ctx context.Context, token, reason string) {
	if err := m.revoke(ctx, token); err != nil {
		m.logger.Warn("purge invalid session failed",
			zap.String("token_fp", security.Fingerprint(token)),
			zap.String("reason", reason),
			zap.Error(err),
		)
		return
	}
	m.metrics.ObserveSessionsRevoked(reason, 1)
}

func (m *SessionManager) dropCache(ctx context.Context, tokens ...string) {
	if len(tokens) == 0 {
		return
	}
	if err := m.cache.Delete(ctx, tokens...); err != nil {
		m.metrics.ObserveCacheError("delete")
		m.logger.Warn("session cache delete failed", zap.Int("tokens", len(tokens)), zap.Error(err))
	}
}

// RevokeAll deletes every session owned by the account and reports how many were removed.
func (m *SessionManager) RevokeAll(ctx context.Context, accountID string) (int, error) {
	return m.RevokeAllWithReason(ctx, accountID, ReasonRevokeAll)
}

// RevokeAllWithReason is RevokeAll with an explicit reason recorded in metrics and events.
func (m *SessionManager) RevokeAllWithReason(ctx context.Context, accountID, reason string) (int, error) {
	ctx, span := m.tracer.Start(ctx, "SessionManager.RevokeAll", trace.WithAttributes(
		attribute.String("account.id", accountID),
		attribute.String("revoke.reason", reason),
	))
	defer span.End()

	if strings.TrimSpace(accountID) == "" {
		return 0, fmt.Errorf("%w: account id is required", ErrValidation)
	}

	sessions, err := m.sessions.ListByAccount(ctx, accountID)
	if err != nil {
		return 0, recordSpanError(span, fmt.Errorf("list sessions: %w", err))
	}
	if len(sessions) == 0 {
		return 0, nil
	}

	tokens := make([]string, 0, len(sessions))
	for _, session := range sessions {
		tokens = append(tokens, session.Token)
	}
	m.dropCache(ctx, tokens...)

	revoked := 0
	for _, token := range tokens {
		if err := m.sessions.Delete(ctx, token); err != nil {
			m.metrics.ObserveSessionsRevoked(reason, revoked)
			return revoked, recordSpanError(span, fmt.Errorf("delete session: %w", err))
		}
		revoked++
	}

	m.metrics.ObserveSessionsRevoked(reason, revoked)
	m.publishRevoked(ctx, accountID, reason, revoked)

	return revoked, nil
}

func (m *SessionManager) publishRevoked(ctx context.Context, accountID, reason string, count int) {
	if m.events == nil || count == 0 {
		return
	}
	event := domain.SessionsRevokedEvent{
		EventID:   uuid.NewString(),
		AccountID: accountID,
		Count:     count,
		Reason:    reason,
		RevokedAt: m.now(),
	}
	if err := m.events.PublishSessionsRevoked(ctx, event); err != nil {
		m.logger.Warn("publish sessions revoked event failed", zap.String("account_id", accountID), zap.Error(err))
	}
}

// SweepExpired removes sessions whose expiry has passed from both tiers.
func (m *SessionManager) SweepExpired(ctx context.Context) (int, error) {
	ctx, span := m.tracer.Start(ctx, "SessionManager.SweepExpired")
	defer span.End()

	tokens, err := m.sessions.DeleteExpired(ctx, m.now())
	if err != nil {
		return 0, recordSpanError(span, fmt.Errorf("delete expired sessions: %w", err))
	}

	m.dropCache(ctx, tokens...)
	m.metrics.ObserveSessionsRevoked(ReasonExpired, len(tokens))
	span.SetAttributes(attribute.Int("sessions.swept", len(tokens)))

	return len(tokens), nil
}

// ListSessions returns the durable sessions owned by the account, newest first.
func (m *SessionManager) ListSessions(ctx context.Context, accountID string) ([]domain.Session, error) {
	if strings.TrimSpace(accountID) == "" {
		return nil, fmt.Errorf("%w: account id is required", ErrValidation)
	}

	sessions, err := m.sessions.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

func recordSpanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
