// Package config reads process configuration from the environment. Every
// value has a development default; Validate rejects combinations the server
// cannot start with.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"lucy/internal/domains"
)

// Mode selects which role the binary serves.
type Mode string

const (
	ModeOrchestrator Mode = "orchestrator"
	ModeAssistant    Mode = "assistant"
	ModeEvaluator    Mode = "evaluator"
)

// Server captures the process-level settings.
type Server struct {
	Mode            Mode
	Addr            string
	Assistant       domains.Domain
	DefaultDomain   domains.Domain
	ShutdownTimeout time.Duration

	Log       LogConfig
	Responder ResponderConfig
	Replay    ReplayConfig
	Redis     RedisConfig
	Postgres  PostgresConfig
	Kafka     KafkaConfig
}

type LogConfig struct {
	Level  string
	Format string
}

// ResponderConfig holds the remote responder endpoints and call budgets.
type ResponderConfig struct {
	URLs             map[domains.Domain]string
	EvaluatorURL     string
	CallTimeout      time.Duration
	EvaluatorTimeout time.Duration
	HealthTimeout    time.Duration
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

type ReplayConfig struct {
	Capacity int
	Interval time.Duration
}

// RedisConfig is optional: an empty URL keeps memories in process only.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// PostgresConfig is optional: an empty DSN keeps error records in process.
type PostgresConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// KafkaConfig is optional: no brokers disables repeated-error alerts.
type KafkaConfig struct {
	Brokers           []string
	ClientID          string
	AlertTopic        string
	Partitions        int32
	ReplicationFactor int16
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	return load(os.LookupEnv)
}

func load(lookup func(string) (string, bool)) (Server, error) {
	e := env{lookup: lookup}
	cfg := Server{
		Mode:            Mode(strings.ToLower(e.str("LUCY_MODE", string(ModeOrchestrator)))),
		Addr:            e.str("LUCY_ADDR", ":8080"),
		ShutdownTimeout: e.duration("LUCY_SHUTDOWN_TIMEOUT", 10*time.Second),
		Log: LogConfig{
			Level:  e.str("LUCY_LOG_LEVEL", "info"),
			Format: e.str("LUCY_LOG_FORMAT", "json"),
		},
		Responder: ResponderConfig{
			URLs:             make(map[domains.Domain]string, len(domains.Routable)),
			EvaluatorURL:     e.str("LUCY_EVALUATOR_URL", ""),
			CallTimeout:      e.duration("LUCY_CALL_TIMEOUT", 60*time.Second),
			EvaluatorTimeout: e.duration("LUCY_EVALUATOR_TIMEOUT", 30*time.Second),
			HealthTimeout:    e.duration("LUCY_HEALTH_TIMEOUT", 5*time.Second),
			BreakerThreshold: e.integer("LUCY_BREAKER_THRESHOLD", 5),
			BreakerCooldown:  e.duration("LUCY_BREAKER_COOLDOWN", 30*time.Second),
		},
		Replay: ReplayConfig{
			Capacity: e.integer("LUCY_REPLAY_CAPACITY", 1024),
			Interval: e.duration("LUCY_REPLAY_INTERVAL", 5*time.Second),
		},
		Redis: RedisConfig{
			URL:          e.str("LUCY_REDIS_URL", ""),
			PoolSize:     e.integer("LUCY_REDIS_POOL_SIZE", 10),
			MinIdleConns: e.integer("LUCY_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  e.duration("LUCY_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  e.duration("LUCY_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: e.duration("LUCY_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Postgres: PostgresConfig{
			DSN:             e.str("LUCY_POSTGRES_DSN", ""),
			MaxOpenConns:    e.integer("LUCY_POSTGRES_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    e.integer("LUCY_POSTGRES_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: e.duration("LUCY_POSTGRES_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers:           e.list("LUCY_KAFKA_BROKERS"),
			ClientID:          e.str("LUCY_KAFKA_CLIENT_ID", "lucy"),
			AlertTopic:        e.str("LUCY_KAFKA_ALERT_TOPIC", "lucy.errors.repeated"),
			Partitions:        int32(e.integer("LUCY_KAFKA_PARTITIONS", 3)),
			ReplicationFactor: int16(e.integer("LUCY_KAFKA_REPLICATION_FACTOR", 1)),
		},
	}
	for _, d := range domains.Routable {
		if url := e.str("LUCY_"+strings.ToUpper(string(d))+"_URL", ""); url != "" {
			cfg.Responder.URLs[d] = url
		}
	}
	cfg.DefaultDomain = e.domain("LUCY_DEFAULT_DOMAIN", domains.Knowledge)
	cfg.Assistant = e.domain("LUCY_ASSISTANT", "")

	if err := errors.Join(append(e.errs, cfg.Validate())...); err != nil {
		return Server{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Server) Validate() error {
	var errs []error
	switch c.Mode {
	case ModeOrchestrator, ModeEvaluator:
	case ModeAssistant:
		if !c.Assistant.IsRoutable() {
			errs = append(errs, errors.New("LUCY_ASSISTANT must name a routable domain in assistant mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown LUCY_MODE %q", c.Mode))
	}
	if !c.DefaultDomain.IsRoutable() {
		errs = append(errs, fmt.Errorf("default domain %q is not routable", c.DefaultDomain))
	}
	if c.Responder.CallTimeout <= 0 || c.Responder.EvaluatorTimeout <= 0 || c.Responder.HealthTimeout <= 0 {
		errs = append(errs, errors.New("responder timeouts must be positive"))
	}
	if c.Replay.Capacity <= 0 {
		errs = append(errs, errors.New("replay capacity must be positive"))
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.AlertTopic == "" {
		errs = append(errs, errors.New("kafka alert topic is required when brokers are set"))
	}
	return errors.Join(errs...)
}

// env collects parse failures so every bad variable is reported at once.
type env struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (e *env) str(key, def string) string {
	if v, ok := e.lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (e *env) integer(key string, def int) int {
	v, ok := e.lookup(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func (e *env) duration(key string, def time.Duration) time.Duration {
	v, ok := e.lookup(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}

func (e *env) list(key string) []string {
	var out []string
	for _, part := range strings.Split(e.str(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (e *env) domain(key string, def domains.Domain) domains.Domain {
	v := e.str(key, "")
	if v == "" {
		return def
	}
	d, err := domains.Parse(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}
