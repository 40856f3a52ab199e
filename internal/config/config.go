package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth"`
	SRS      SRSConfig      `mapstructure:"srs" validate:"required"`
	Review   ReviewConfig   `mapstructure:"review" validate:"required"`
	Stats    StatsConfig    `mapstructure:"stats" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	LogFormat       string        `mapstructure:"log_format" validate:"omitempty,oneof=json text"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	// Driver selects the SQL dialect: "postgres" or "sqlite".
	Driver string `mapstructure:"driver" validate:"required,oneof=postgres sqlite"`
	// URL is a postgres connection URL or a sqlite DSN such as "file:scry.db".
	URL          string `mapstructure:"url" validate:"required"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gte=0"`
}

// AuthConfig contains the bearer token settings used by the HTTP API.
// The secret is only required by commands that issue or verify tokens.
type AuthConfig struct {
	JWTSecret     string        `mapstructure:"jwt_secret" validate:"omitempty,min=32"`
	TokenLifetime time.Duration `mapstructure:"token_lifetime" validate:"gt=0"`
}

// SRSConfig contains the scheduling parameters.
type SRSConfig struct {
	Strategy string `mapstructure:"strategy" validate:"required,oneof=sm2 sm2_adjusted"`
	// EaseCeiling caps the ease factor unless EaseCeilingUnbounded is set.
	EaseCeiling          float64       `mapstructure:"ease_ceiling" validate:"gte=1.3"`
	EaseCeilingUnbounded bool          `mapstructure:"ease_ceiling_unbounded"`
	MasteryIntervalDays  int           `mapstructure:"mastery_interval_days" validate:"gte=0"`
	TargetResponseTime   time.Duration `mapstructure:"target_response_time" validate:"gt=0"`
}

// ReviewConfig contains review session settings.
type ReviewConfig struct {
	SessionSize       int           `mapstructure:"session_size" validate:"gt=0,lte=1000"`
	StoreTimeout      time.Duration `mapstructure:"store_timeout" validate:"gt=0"`
	MaxAttempts       int           `mapstructure:"max_attempts" validate:"gte=1,lte=10"`
	RetryBaseDelay    time.Duration `mapstructure:"retry_base_delay" validate:"gt=0"`
	ArchiveOnComplete bool          `mapstructure:"archive_on_complete"`
}

// StatsConfig contains statistics settings.
type StatsConfig struct {
	// Timezone is the IANA zone that defines calendar days for streaks and
	// due-today counts.
	Timezone           string `mapstructure:"timezone" validate:"required,timezone"`
	StreakLookbackDays int    `mapstructure:"streak_lookback_days" validate:"gt=0"`
}

// Location loads the configured timezone.
func (c StatsConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}
