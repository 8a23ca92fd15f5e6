package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "LMS"

const (
	defaultLockoutMaxAttempts       = 5
	defaultLockoutDuration          = 30 * time.Minute
	nonProductionLockoutMaxAttempts = 100000000000
	nonProductionLockoutDuration    = time.Duration(0)
	productionEnv                   = "production"
)

type AppConfig struct {
	App            AppSettings            `mapstructure:"app"`
	Postgres       PostgresSettings       `mapstructure:"postgres"`
	Redis          RedisSettings          `mapstructure:"redis"`
	Kafka          KafkaSettings          `mapstructure:"kafka"`
	Telemetry      TelemetrySettings      `mapstructure:"telemetry"`
	Sentry         SentrySettings         `mapstructure:"sentry"`
	Argon2         Argon2Settings         `mapstructure:"argon2"`
	Password       PasswordSettings       `mapstructure:"password"`
	Session        SessionSettings        `mapstructure:"session"`
	Lockout        LockoutSettings        `mapstructure:"lockout"`
	BootstrapAdmin BootstrapAdminSettings `mapstructure:"bootstrap_admin"`
}

// IsProduction reports whether the service runs with production defaults.
func (c *AppConfig) IsProduction() bool {
	return strings.EqualFold(c.App.Env, productionEnv)
}

type AppSettings struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type PostgresSettings struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Database          string        `mapstructure:"database"`
	SSLMode           string        `mapstructure:"ssl_mode"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
}

// URL renders the connection string shared by pgxpool and the migrator.
func (p PostgresSettings) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User,
		p.Password,
		p.Host,
		p.Port,
		p.Database,
		p.SSLMode,
	)
}

// RedisSettings configures the session cache connection.
type RedisSettings struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	DB           int           `mapstructure:"db"`
	Password     string        `mapstructure:"password"`
	TLSEnabled   bool          `mapstructure:"tls_enabled"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// KafkaSettings configures the security event producer. No brokers means events are only logged.
type KafkaSettings struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
}

type TelemetrySettings struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
}

type SentrySettings struct {
	DSN string `mapstructure:"dsn"`
}

// Argon2Settings configures Argon2id password hashing parameters
type Argon2Settings struct {
	Memory      uint32 `mapstructure:"memory"`
	Iterations  uint32 `mapstructure:"iterations"`
	Parallelism uint8  `mapstructure:"parallelism"`
	SaltLength  uint32 `mapstructure:"salt_length"`
	KeyLength   uint32 `mapstructure:"key_length"`
}

type PasswordSettings struct {
	MinLength int `mapstructure:"min_length"`
	MinScore  int `mapstructure:"min_score"`
}

// SessionSettings controls token lifetime and the cache tier.
type SessionSettings struct {
	Lifetime        time.Duration `mapstructure:"lifetime"`
	CachePrefix     string        `mapstructure:"cache_prefix"`
	CacheMissPolicy string        `mapstructure:"cache_miss_policy"`
	SweepInterval   time.Duration `mapstructure:"sweep_interval"`
}

type LockoutSettings struct {
	MaxAttempts int64         `mapstructure:"max_attempts"`
	Duration    time.Duration `mapstructure:"duration"`
}

// BootstrapAdminSettings seeds the first administrator when the users table has none.
type BootstrapAdminSettings struct {
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	FirstName string `mapstructure:"first_name"`
	LastName  string `mapstructure:"last_name"`
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix(envPrefix)

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"app.host",
		"app.port",
		"postgres.host",
		"postgres.port",
		"postgres.user",
		"postgres.password",
		"postgres.database",
		"postgres.ssl_mode",
		"postgres.max_conns",
		"postgres.min_conns",
		"postgres.max_conn_lifetime",
		"postgres.max_conn_idle_time",
		"postgres.health_check_period",
		"redis.host",
		"redis.port",
		"redis.db",
		"redis.password",
		"redis.tls_enabled",
		"redis.dial_timeout",
		"redis.read_timeout",
		"redis.write_timeout",
		"kafka.brokers",
		"kafka.topic_prefix",
		"telemetry.otlp_endpoint",
		"telemetry.service_name",
		"telemetry.sampling_rate",
		"sentry.dsn",
		"argon2.memory",
		"argon2.iterations",
		"argon2.parallelism",
		"argon2.salt_length",
		"argon2.key_length",
		"password.min_length",
		"password.min_score",
		"session.lifetime",
		"session.cache_prefix",
		"session.cache_miss_policy",
		"session.sweep_interval",
		"lockout.max_attempts",
		"lockout.duration",
		"bootstrap_admin.username",
		"bootstrap_admin.password",
		"bootstrap_admin.first_name",
		"bootstrap_admin.last_name",
	}); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	applyLockoutDefaults(v, &cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "carbon-lms")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 3000)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "lms")
	v.SetDefault("postgres.password", "lms_password")
	v.SetDefault("postgres.database", "lms")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.max_conn_lifetime", "60m")
	v.SetDefault("postgres.max_conn_idle_time", "15m")
	v.SetDefault("postgres.health_check_period", "30s")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.tls_enabled", false)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "500ms")
	v.SetDefault("redis.write_timeout", "500ms")

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic_prefix", "lms")

	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.service_name", "carbon-lms")
	v.SetDefault("telemetry.sampling_rate", 1.0)

	v.SetDefault("sentry.dsn", "")

	v.SetDefault("argon2.memory", 65536) // 64 MB
	v.SetDefault("argon2.iterations", 3)
	v.SetDefault("argon2.parallelism", 4)
	v.SetDefault("argon2.salt_length", 16)
	v.SetDefault("argon2.key_length", 32)

	v.SetDefault("password.min_length", 8)
	v.SetDefault("password.min_score", 2)

	v.SetDefault("session.lifetime", "24h")
	v.SetDefault("session.cache_prefix", "session")
	v.SetDefault("session.cache_miss_policy", "strict")
	v.SetDefault("session.sweep_interval", "1h")

	v.SetDefault("bootstrap_admin.first_name", "System")
	v.SetDefault("bootstrap_admin.last_name", "Administrator")
}

// applyLockoutDefaults picks environment-dependent values for lockout keys left unset.
func applyLockoutDefaults(v *viper.Viper, cfg *AppConfig) {
	production := cfg.IsProduction()

	if !v.IsSet("lockout.max_attempts") {
		cfg.Lockout.MaxAttempts = nonProductionLockoutMaxAttempts
		if production {
			cfg.Lockout.MaxAttempts = defaultLockoutMaxAttempts
		}
	}
	if !v.IsSet("lockout.duration") {
		cfg.Lockout.Duration = nonProductionLockoutDuration
		if production {
			cfg.Lockout.Duration = defaultLockoutDuration
		}
	}
}

func (c *AppConfig) validate() error {
	if c.Session.Lifetime <= 0 {
		return fmt.Errorf("session.lifetime must be positive")
	}
	switch c.Session.CacheMissPolicy {
	case "strict", "fallback":
	default:
		return fmt.Errorf("session.cache_miss_policy must be strict or fallback, got %q", c.Session.CacheMissPolicy)
	}
	if c.Lockout.MaxAttempts < 0 {
		return fmt.Errorf("lockout.max_attempts must not be negative")
	}
	if c.Lockout.Duration < 0 {
		return fmt.Errorf("lockout.duration must not be negative")
	}
	return nil
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envPrefix+"_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
