// Package config loads scheduler settings from an optional YAML file and
// INTERVIEW_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/example/interview-scheduler/internal/interview"
)

const envPrefix = "INTERVIEW"

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config captures every setting the scheduler binary consumes.
type Config struct {
	HTTP      HTTPConfig
	Log       LogConfig
	Storage   StorageConfig
	Auth      AuthConfig
	Redis     RedisConfig
	NATS      NATSConfig
	Oracle    OracleConfig
	Policy    PolicyConfig
	Service   ServiceConfig
	RateLimit RateLimitConfig
	Notifier  NotifierConfig
	Meeting   MeetingConfig
	Sweep     SweepConfig
}

type HTTPConfig struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

type StorageConfig struct {
	Driver               string
	SQLitePath           string
	SQLiteBusyTimeout    time.Duration
	PostgresDSN          string
	PostgresMaxOpenConns int
	PostgresMaxIdleConns int
}

type AuthConfig struct {
	JWTSecret string
}

// RedisConfig enables the shared rate limiter and suggestion cache when Addr is set.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NATSConfig enables the NATS notifier when URL is set.
type NATSConfig struct {
	URL           string
	SubjectPrefix string
}

type OracleConfig struct {
	GeminiAPIKey string
	GeminiModel  string
	Timeout      time.Duration
	CacheTTL     time.Duration
	CacheEntries int
}

type PolicyConfig struct {
	RankWeight         float64
	AvailabilityWeight float64
	AIWeight           float64
	MaybeFactor        float64
	Threshold          float64
	ExpectedVoters     int
	CancellationNotice time.Duration
}

// WeightedPolicy converts the settings into the engine's policy.
func (p PolicyConfig) WeightedPolicy() interview.WeightedPolicy {
	return interview.WeightedPolicy{
		RankWeight:         p.RankWeight,
		AvailabilityWeight: p.AvailabilityWeight,
		AIWeight:           p.AIWeight,
		MaybeFactor:        p.MaybeFactor,
		Threshold:          p.Threshold,
		ExpectedVoters:     p.ExpectedVoters,
	}
}

type ServiceConfig struct {
	MaxAttempts int
}

type RateLimitConfig struct {
	Limit  int
	Window time.Duration
}

type NotifierConfig struct {
	QueueSize int
	Workers   int
}

type MeetingConfig struct {
	LinkHost string
}

// SweepConfig controls the background expiry sweep of serve. Zero disables it.
type SweepConfig struct {
	Interval time.Duration
}

func setDefaults(v *viper.Viper) {
	policy := interview.DefaultPolicy()
	defaults := map[string]any{
		"http.port":                       8080,
		"http.read_timeout":               "10s",
		"http.write_timeout":              "15s",
		"http.shutdown_timeout":           "10s",
		"log.level":                       "info",
		"log.format":                      "json",
		"storage.driver":                  DriverSQLite,
		"storage.sqlite_path":             "interview.db",
		"storage.sqlite_busy_timeout":     "5s",
		"storage.postgres_dsn":            "",
		"storage.postgres_max_open_conns": 20,
		"storage.postgres_max_idle_conns": 10,
		"auth.jwt_secret":                 "",
		"redis.addr":                      "",
		"redis.password":                  "",
		"redis.db":                        0,
		"nats.url":                        "",
		"nats.subject_prefix":             "interview.events",
		"oracle.gemini_api_key":           "",
		"oracle.gemini_model":             "gemini-2.5-flash",
		"oracle.timeout":                  "3s",
		"oracle.cache_ttl":                "5m",
		"oracle.cache_entries":            256,
		"policy.rank_weight":              policy.RankWeight,
		"policy.availability_weight":      policy.AvailabilityWeight,
		"policy.ai_weight":                policy.AIWeight,
		"policy.maybe_factor":             policy.MaybeFactor,
		"policy.threshold":                policy.Threshold,
		"policy.expected_voters":          policy.ExpectedVoters,
		"policy.cancellation_notice":      "4h",
		"service.max_attempts":            3,
		"ratelimit.limit":                 60,
		"ratelimit.window":                "1m",
		"notifier.queue_size":             256,
		"notifier.workers":                2,
		"meeting.link_host":               "meet.example.com",
		"sweep.interval":                  "1m",
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

// Load reads configFile when non-empty, then overlays INTERVIEW_* environment
// variables (INTERVIEW_HTTP_PORT for http.port and so on). Missing and
// invalid keys are reported together.
func Load(configFile string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile = strings.TrimSpace(configFile); configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", configFile, err)
		}
	}

	l := &loader{v: v}
	cfg := Config{
		HTTP: HTTPConfig{
			Port:            l.getInt("http.port", 1),
			ReadTimeout:     l.getDuration("http.read_timeout"),
			WriteTimeout:    l.getDuration("http.write_timeout"),
			ShutdownTimeout: l.getDuration("http.shutdown_timeout"),
		},
		Log: LogConfig{
			Level:  l.oneOf("log.level", "debug", "info", "warn", "error"),
			Format: l.oneOf("log.format", "json", "text"),
		},
		Storage: StorageConfig{
			Driver:               l.oneOf("storage.driver", DriverSQLite, DriverPostgres, DriverMemory),
			SQLitePath:           l.getString("storage.sqlite_path"),
			SQLiteBusyTimeout:    l.getDuration("storage.sqlite_busy_timeout"),
			PostgresDSN:          l.getString("storage.postgres_dsn"),
			PostgresMaxOpenConns: l.getInt("storage.postgres_max_open_conns", 1),
			PostgresMaxIdleConns: l.getInt("storage.postgres_max_idle_conns", 0),
		},
		Auth: AuthConfig{
			JWTSecret: l.required("auth.jwt_secret"),
		},
		Redis: RedisConfig{
			Addr:     l.getString("redis.addr"),
			Password: l.getString("redis.password"),
			DB:       l.getInt("redis.db", 0),
		},
		NATS: NATSConfig{
			URL:           l.getString("nats.url"),
			SubjectPrefix: l.getString("nats.subject_prefix"),
		},
		Oracle: OracleConfig{
			GeminiAPIKey: l.getString("oracle.gemini_api_key"),
			GeminiModel:  l.getString("oracle.gemini_model"),
			Timeout:      l.getDuration("oracle.timeout"),
			CacheTTL:     l.getDuration("oracle.cache_ttl"),
			CacheEntries: l.getInt("oracle.cache_entries", 1),
		},
		Policy: PolicyConfig{
			RankWeight:         l.getFloat("policy.rank_weight"),
			AvailabilityWeight: l.getFloat("policy.availability_weight"),
			AIWeight:           l.getFloat("policy.ai_weight"),
			MaybeFactor:        l.getFloat("policy.maybe_factor"),
			Threshold:          l.getFloat("policy.threshold"),
			ExpectedVoters:     l.getInt("policy.expected_voters", 1),
			CancellationNotice: l.getDuration("policy.cancellation_notice"),
		},
		Service: ServiceConfig{
			MaxAttempts: l.getInt("service.max_attempts", 1),
		},
		RateLimit: RateLimitConfig{
			Limit:  l.getInt("ratelimit.limit", 0),
			Window: l.getDuration("ratelimit.window"),
		},
		Notifier: NotifierConfig{
			QueueSize: l.getInt("notifier.queue_size", 1),
			Workers:   l.getInt("notifier.workers", 1),
		},
		Meeting: MeetingConfig{
			LinkHost: l.getString("meeting.link_host"),
		},
		Sweep: SweepConfig{
			Interval: l.getOptionalDuration("sweep.interval"),
		},
	}

	if cfg.Storage.Driver == DriverPostgres && cfg.Storage.PostgresDSN == "" {
		l.missing = append(l.missing, envName("storage.postgres_dsn"))
	}
	if cfg.Storage.Driver == DriverSQLite && cfg.Storage.SQLitePath == "" {
		l.missing = append(l.missing, envName("storage.sqlite_path"))
	}
	if len(l.invalid) == 0 {
		if err := cfg.Policy.WeightedPolicy().Validate(); err != nil {
			l.invalid = append(l.invalid, "policy ("+err.Error()+")")
		}
	}

	var errs []error
	if len(l.missing) > 0 {
		errs = append(errs, fmt.Errorf("missing required settings: %s", strings.Join(l.missing, ", ")))
	}
	if len(l.invalid) > 0 {
		errs = append(errs, fmt.Errorf("invalid settings: %s", strings.Join(l.invalid, ", ")))
	}
	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	return cfg, nil
}

type loader struct {
	v       *viper.Viper
	missing []string
	invalid []string
}

func envName(key string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func (l *loader) getString(key string) string {
	return strings.TrimSpace(l.v.GetString(key))
}

func (l *loader) required(key string) string {
	value := l.getString(key)
	if value == "" {
		l.missing = append(l.missing, envName(key))
	}
	return value
}

func (l *loader) oneOf(key string, allowed ...string) string {
	value := strings.ToLower(l.getString(key))
	for _, candidate := range allowed {
		if value == candidate {
			return value
		}
	}
	l.invalid = append(l.invalid, envName(key))
	return ""
}

func (l *loader) getInt(key string, minimum int) int {
	value, err := strconv.Atoi(l.getString(key))
	if err != nil || value < minimum {
		l.invalid = append(l.invalid, envName(key))
		return 0
	}
	return value
}

func (l *loader) getFloat(key string) float64 {
	value, err := strconv.ParseFloat(l.getString(key), 64)
	if err != nil {
		l.invalid = append(l.invalid, envName(key))
		return 0
	}
	return value
}

func (l *loader) getDuration(key string) time.Duration {
	value, err := time.ParseDuration(l.getString(key))
	if err != nil || value <= 0 {
		l.invalid = append(l.invalid, envName(key))
		return 0
	}
	return value
}

func (l *loader) getOptionalDuration(key string) time.Duration {
	raw := l.getString(key)
	if raw == "0" {
		return 0
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value < 0 {
		l.invalid = append(l.invalid, envName(key))
		return 0
	}
	return value
}
