package telemetry

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Carbon-startUP/Carbon-Learning-System-BackEnd/internal/core/port"
)

// AuthMetricsOptions configures the auth metrics collectors.
type AuthMetricsOptions struct {
	Registerer prometheus.Registerer
	Namespace  string
}

// AuthMetrics exposes Prometheus collectors for login and session outcomes.
type AuthMetrics struct {
	Logins      *prometheus.CounterVec
	Validations *prometheus.CounterVec
	Issued      prometheus.Counter
	Revoked     *prometheus.CounterVec
	CacheErrors *prometheus.CounterVec
}

// NewAuthMetrics constructs and registers the collectors. Collectors already registered are reused.
func NewAuthMetrics(opts AuthMetricsOptions) (*AuthMetrics, error) {
	namespace := opts.Namespace
	if namespace == "" {
		namespace = "lms"
	}

	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	logins, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auth",
		Name:      "login_attempts_total",
		Help:      "Login attempts partitioned by outcome.",
	}, []string{"outcome"}))
	if err != nil {
		return nil, err
	}

	validations, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auth",
		Name:      "session_validations_total",
		Help:      "Session token validations partitioned by result.",
	}, []string{"result"}))
	if err != nil {
		return nil, err
	}

	issued, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auth",
		Name:      "sessions_issued_total",
		Help:      "Sessions issued after successful login.",
	}))
	if err != nil {
		return nil, err
	}

	revoked, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auth",
		Name:      "sessions_revoked_total",
		Help:      "Sessions removed partitioned by reason.",
	}, []string{"reason"}))
	if err != nil {
		return nil, err
	}

	cacheErrors, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auth",
		Name:      "session_cache_errors_total",
		Help:      "Session cache failures partitioned by operation.",
	}, []string{"operation"}))
	if err != nil {
		return nil, err
	}

	return &AuthMetrics{
		Logins:      logins,
		Validations: validations,
		Issued:      issued,
		Revoked:     revoked,
		CacheErrors: cacheErrors,
	}, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, collector T) (T, error) {
	if err := reg.Register(collector); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return collector, fmt.Errorf("register collector: %w", err)
		}
		existing, ok := already.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("existing collector has unexpected type %T", already.ExistingCollector)
		}
		return existing, nil
	}
	return collector, nil
}

func (m *AuthMetrics) ObserveLogin(outcome string) {
	if m == nil {
		return
	}
	m.Logins.WithLabelValues(outcome).Inc()
}

func (m *AuthMetrics) ObserveSessionValidation(result string) {
	if m == nil {
		return
	}
	m.Validations.WithLabelValues(result).Inc()
}

func (m *AuthMetrics) ObserveSessionIssued() {
	if m == nil {
		return
	}
	m.Issued.Inc()
}

func (m *AuthMetrics) ObserveSessionsRevoked(reason string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.Revoked.WithLabelValues(reason).Add(float64(count))
}

func (m *AuthMetrics) ObserveCacheError(operation string) {
	if m == nil {
		return
	}
	m.CacheErrors.WithLabelValues(operation).Inc()
}

var _ port.AuthMetrics = (*AuthMetrics)(nil)
