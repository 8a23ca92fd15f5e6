package app

import (
	"math"

	"go.uber.org/zap"

	"github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/core/domain"
	"github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/core/port"
	"github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/infra/config"
	kafkainfra "github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/infra/kafka"
	"github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/infra/security"
	"github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/usecase"
)

// Services groups the usecases shared by the API and the operational tooling.
type Services struct {
	Auth     *usecase.AuthService
	Accounts *usecase.AccountService
	Sessions *usecase.SessionManager
}

// ServiceDeps holds the infrastructure the usecases are built from.
type ServiceDeps struct {
	Accounts port.AccountRepository
	Sessions port.SessionRepository
	Cache    port.SessionCache
	Events   port.EventPublisher
	Metrics  port.AuthMetrics
	Logger   *zap.Logger
}

// NewServices wires the usecases from configuration and infrastructure.
func NewServices(cfg *config.AppConfig, deps ServiceDeps) (*Services, error) {
	hasher, err := security.NewPasswordHasher(Argon2Config(cfg.Argon2))
	if err != nil {
		return nil, err
	}
	policy := security.NewPasswordPolicy(cfg.Password.MinLength, cfg.Password.MinScore)

	sessions := usecase.NewSessionManager(deps.Sessions, deps.Cache, deps.Accounts, deps.Logger.Named("sessions")).
		WithLifetime(cfg.Session.Lifetime).
		WithCacheMissPolicy(usecase.CacheMissPolicy(cfg.Session.CacheMissPolicy)).
		WithEvents(deps.Events).
		WithMetrics(deps.Metrics)

	auth := usecase.NewAuthService(deps.Accounts, sessions, hasher, LockoutPolicy(cfg.Lockout), deps.Logger.Named("auth")).
		WithEvents(deps.Events).
		WithMetrics(deps.Metrics)

	accounts := usecase.NewAccountService(deps.Accounts, sessions, hasher, policy, deps.Logger.Named("accounts"))

	return &Services{Auth: auth, Accounts: accounts, Sessions: sessions}, nil
}

// LockoutPolicy converts the configured lockout settings, clamping thresholds beyond the int range.
func LockoutPolicy(cfg config.LockoutSettings) domain.LockoutPolicy {
	threshold := cfg.MaxAttempts
	if threshold > math.MaxInt {
		threshold = math.MaxInt
	}
	return domain.LockoutPolicy{Threshold: int(threshold), Duration: cfg.Duration}
}

// Argon2Config fills unset hashing parameters with the defaults.
func Argon2Config(cfg config.Argon2Settings) security.Argon2Config {
	out := security.DefaultArgon2Config()
	if cfg.Memory > 0 {
		out.Memory = cfg.Memory
	}
	if cfg.Iterations > 0 {
		out.Iterations = cfg.Iterations
	}
	if cfg.Parallelism > 0 {
		out.Parallelism = cfg.Parallelism
	}
	if cfg.SaltLength > 0 {
		out.SaltLength = cfg.SaltLength
	}
	if cfg.KeyLength > 0 {
		out.KeyLength = cfg.KeyLength
	}
	return out
}

// NewEventPublisher returns a Kafka publisher when brokers are configured and a logging stub otherwise.
// The returned producer is nil for the stub and must be closed by the caller otherwise.
func NewEventPublisher(cfg *config.AppConfig, log *zap.Logger) (port.EventPublisher, *kafkainfra.Producer) {
	if len(cfg.Kafka.Brokers) == 0 {
		log.Info("kafka brokers not configured, using stub publisher")
		return kafkainfra.NewStubPublisher(log), nil
	}

	producer, err := kafkainfra.NewProducer(cfg.Kafka, log)
	if err != nil {
		log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
		return kafkainfra.NewStubPublisher(log), nil
	}
	return kafkainfra.NewEventPublisher(producer, cfg.App), producer
}
