package connector

import (
	"fmt"
	"time"
)

// Config represents database connection configuration.
type Config struct {
	URL            string            `koanf:"url"`
	Host           string            `koanf:"host"`
	Port           int               `koanf:"port" validate:"omitempty,min=1,max=65535"`
	Database       string            `koanf:"name"`
	Username       string            `koanf:"user"`
	Password       string            `koanf:"password"`
	SSLMode        string            `koanf:"ssl_mode"`
	Params         map[string]string `koanf:"params"`
	Driver         string            `koanf:"driver"`
	ConnectTimeout time.Duration     `koanf:"connect_timeout"`
	Retry          *RetryConfig      `koanf:"retry"`
}

// RetryConfig defines connection retry behavior.
type RetryConfig struct {
	MaxRetries int           `koanf:"max_retries"`
	BaseDelay  time.Duration `koanf:"base_delay"`
	MaxDelay   time.Duration `koanf:"max_delay"`
}

// Validate checks that the configuration can produce a DSN.
func (c *Config) Validate() error {
	if c.URL == "" && c.Host == "" {
		return fmt.Errorf("either url or host is required")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.Driver != "" {
		if _, ok := lookup(c.Driver); !ok {
			return fmt.Errorf("unknown driver: %s", c.Driver)
		}
	}
	return nil
}

// DSN returns the connection string: URL when set, otherwise one built from
// the discrete fields.
func (c *Config) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return NewDSNBuilder("postgres").
		Auth(c.Username, c.Password).
		Host(c.Host, c.Port).
		Database(c.Database).
		Param("sslmode", c.SSLMode).
		Params(c.Params).
		Build()
}
