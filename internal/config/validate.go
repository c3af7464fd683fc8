package config

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database.DSN) == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("database.min_conns (%d) must not exceed max_conns (%d)", c.Database.MinConns, c.Database.MaxConns)
	}

	if err := c.Publishing.validate(); err != nil {
		return fmt.Errorf("publishing: %w", err)
	}

	return nil
}

// Supported transaction isolation levels.
const (
	IsolationReadCommitted  = "read_committed"
	IsolationRepeatableRead = "repeatable_read"
	IsolationSerializable   = "serializable"
)

func (p *PublishingConfig) validate() error {
	id, err := ParseMarkerFieldID(p.MarkerFieldIDRaw)
	if err != nil {
		return fmt.Errorf("marker_field_id: %w", err)
	}
	p.MarkerFieldID = id

	if p.CommandTimeout <= 0 {
		return fmt.Errorf("command_timeout must be > 0 (got %v)", p.CommandTimeout)
	}

	switch p.Isolation {
	case IsolationReadCommitted, IsolationRepeatableRead, IsolationSerializable:
	default:
		return fmt.Errorf("isolation: unsupported level %q", p.Isolation)
	}

	return nil
}

// ParseMarkerFieldID parses the marker field id. Braced and upper-case forms
// ("{8CDC337E-...}") are accepted. The nil UUID is rejected.
func ParseMarkerFieldID(raw string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, fmt.Errorf("must not be empty")
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid id %q: %w", raw, err)
	}
	if id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("must not be the nil id")
	}

	return id, nil
}
