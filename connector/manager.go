// Package connector opens the single database connection a quest runs on.
//
// Drivers are registered providers; "pgx" (the default) talks to PostgreSQL
// through a native pgx connection and "stdlib" goes through database/sql.
package connector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Konsultn-Engineering/quest/database"
	"github.com/jackc/pgx/v5"
)

// DefaultDriver is used when Config.Driver is empty.
const DefaultDriver = "pgx"

// Provider opens a connection for one driver.
type Provider interface {
	Connect(ctx context.Context, cfg Config, opts Options) (database.Conn, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, cfg Config, opts Options) (database.Conn, error)

// Connect implements Provider.
func (f ProviderFunc) Connect(ctx context.Context, cfg Config, opts Options) (database.Conn, error) {
	return f(ctx, cfg, opts)
}

// Options carries connection-time hooks.
type Options struct {
	Tracer  pgx.QueryTracer
	OnRetry func(attempt int, delay time.Duration, err error)
}

// Option configures Connect.
type Option func(*Options)

// WithTracer installs a pgx query tracer on the connection.
func WithTracer(t pgx.QueryTracer) Option {
	return func(o *Options) {
		o.Tracer = t
	}
}

// WithRetryHook is called before each connection retry.
func WithRetryHook(fn func(attempt int, delay time.Duration, err error)) Option {
	return func(o *Options) {
		o.OnRetry = fn
	}
}

type manager struct {
	providers map[string]Provider
	mu        sync.RWMutex
}

var globalManager = &manager{
	providers: map[string]Provider{
		"pgx":    ProviderFunc(connectPgx),
		"stdlib": ProviderFunc(connectStdlib),
	},
}

// Register makes a provider available under name, replacing any previous one.
func Register(name string, provider Provider) {
	globalManager.mu.Lock()
	defer globalManager.mu.Unlock()
	globalManager.providers[name] = provider
}

func lookup(name string) (Provider, bool) {
	globalManager.mu.RLock()
	defer globalManager.mu.RUnlock()
	p, ok := globalManager.providers[name]
	return p, ok
}

// Connect validates cfg and opens a connection with the configured driver,
// retrying when cfg.Retry is set.
func Connect(ctx context.Context, cfg Config, opts ...Option) (database.Conn, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid connection config: %w", err)
	}

	name := cfg.Driver
	if name == "" {
		name = DefaultDriver
	}
	provider, ok := lookup(name)
	if !ok {
		return nil, fmt.Errorf("provider %s not registered", name)
	}

	var o Options
	for _, opt := range opts {
		opt(&o)
	}

	connect := func(ctx context.Context) (database.Conn, error) {
		if cfg.ConnectTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
			defer cancel()
		}
		return provider.Connect(ctx, cfg, o)
	}

	if cfg.Retry == nil {
		return connect(ctx)
	}
	conn, err := retryConnect(ctx, *cfg.Retry, o.OnRetry, connect)
	if err != nil {
		return nil, fmt.Errorf("failed to connect after %d retries: %w", cfg.Retry.MaxRetries, err)
	}
	return conn, nil
}
