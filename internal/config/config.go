package config

import (
	"time"

	"github.com/google/uuid"
)

// Config is the root application configuration.
type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Log        LogConfig        `yaml:"log"`
	Publishing PublishingConfig `yaml:"publishing"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"                env:"DATABASE_DSN"                env-required:"true"`
	MaxConns        int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"25"`
	MinConns        int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"5"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// DefaultMarkerFieldID is the id of the classic "__Revision" field. Every
// item variant carries it, so its rows identify the variants of a batch.
const DefaultMarkerFieldID = "8cdc337e-a112-42fb-bbb4-4143751e123f"

// PublishingConfig holds batch merge settings.
type PublishingConfig struct {
	MarkerFieldIDRaw string        `yaml:"marker_field_id" env:"PUBLISHING_MARKER_FIELD_ID" env-default:"8cdc337e-a112-42fb-bbb4-4143751e123f"`
	CommandTimeout   time.Duration `yaml:"command_timeout" env:"PUBLISHING_COMMAND_TIMEOUT" env-default:"2m"`
	FlushMarker      bool          `yaml:"flush_marker"    env:"PUBLISHING_FLUSH_MARKER"    env-default:"true"`
	// Isolation is the transaction isolation of a batch: read_committed,
	// repeatable_read or serializable.
	Isolation string `yaml:"isolation" env:"PUBLISHING_ISOLATION" env-default:"read_committed"`

	// MarkerFieldID is parsed from MarkerFieldIDRaw during validation.
	MarkerFieldID uuid.UUID `yaml:"-" env:"-"`
}
