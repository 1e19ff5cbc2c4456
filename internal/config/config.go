package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database" validate:"required"`
	Broker    BrokerConfig    `mapstructure:"broker" validate:"required"`
	Queue     QueueConfig     `mapstructure:"queue" validate:"required"`
	Generator GeneratorConfig `mapstructure:"generator" validate:"required"`
	Chaos     ChaosConfig     `mapstructure:"chaos"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
	// EmbedConsumer runs a consumer loop inside the serve process.
	EmbedConsumer bool `mapstructure:"embed_consumer"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url" validate:"required,url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"gte=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// BrokerConfig describes how to reach RabbitMQ.
type BrokerConfig struct {
	URL             string        `mapstructure:"url" validate:"required,url"`
	Heartbeat       time.Duration `mapstructure:"heartbeat" validate:"gt=0"`
	BlockedTimeout  time.Duration `mapstructure:"blocked_timeout" validate:"gt=0"`
	ConnectAttempts int           `mapstructure:"connect_attempts" validate:"gte=1"`
	ConnectDelay    time.Duration `mapstructure:"connect_delay" validate:"gte=0"`
}

// QueueConfig holds the work queue topology and the redelivery ceiling.
type QueueConfig struct {
	Name               string `mapstructure:"name" validate:"required"`
	MessageTTLMillis   int    `mapstructure:"ttl_ms" validate:"gt=0"`
	MaxLength          int    `mapstructure:"max_length" validate:"gt=0"`
	MaxAttempts        int    `mapstructure:"max_attempts" validate:"gte=1"`
	DeadLetterExchange string `mapstructure:"dead_letter_exchange" validate:"required"`
}

// MessageTTL returns the per-message time-to-live.
func (q QueueConfig) MessageTTL() time.Duration {
	return time.Duration(q.MessageTTLMillis) * time.Millisecond
}

// GeneratorConfig controls workout selection.
type GeneratorConfig struct {
	ExclusionPolicy string        `mapstructure:"exclusion_policy" validate:"required,oneof=last_workout yesterday"`
	WorkoutSize     int           `mapstructure:"workout_size" validate:"gte=1"`
	MinDelay        time.Duration `mapstructure:"min_delay" validate:"gte=0"`
	MaxDelay        time.Duration `mapstructure:"max_delay" validate:"gtefield=MinDelay"`
}

// ChaosConfig enables random failure injection in the consumer.
type ChaosConfig struct {
	FailureRate float64 `mapstructure:"failure_rate" validate:"gte=0,lte=1"`
}

// AuthConfig contains token validation settings. An empty secret disables auth.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"omitempty,min=32"`
}

// SchedulerConfig holds the cron expression for the daily fan-out.
type SchedulerConfig struct {
	Spec string `mapstructure:"spec" validate:"required"`
}

// ArchiveConfig points at the S3-compatible bucket receiving drained DLQ messages.
type ArchiveConfig struct {
	Endpoint        string `mapstructure:"endpoint" validate:"omitempty,url"`
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}
