// Package splitter turns rendered SQL text into an ordered batch of
// individually executable statements.
//
// Naive splits on every ';' and is the default. It is unsafe for text that
// carries terminators inside string literals, comments or function bodies.
// Lexical understands those constructs and backs the splitting service;
// Remote delegates to that service and falls back to Naive when it cannot.
package splitter

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Splitter decomposes SQL text into trimmed, non-empty statements in source
// order.
type Splitter interface {
	Split(ctx context.Context, text string) ([]string, error)
}

// Config selects and tunes the splitter a quest uses.
type Config struct {
	URL       string        `koanf:"url" validate:"omitempty,url"`
	Timeout   time.Duration `koanf:"timeout"`
	CacheSize int           `koanf:"cache_size"`
	Listen    string        `koanf:"listen"`
}

// New returns a Remote splitter when a service URL is configured and Naive
// otherwise.
func New(cfg Config, log zerolog.Logger) Splitter {
	if cfg.URL == "" {
		return Naive{}
	}
	return NewRemote(cfg.URL,
		WithTimeout(cfg.Timeout),
		WithCacheSize(cfg.CacheSize),
		WithLogger(log),
	)
}

// Naive splits on every statement terminator.
type Naive struct{}

// Split implements Splitter.
func (Naive) Split(_ context.Context, text string) ([]string, error) {
	return SplitNaive(text), nil
}

// SplitNaive splits text on ';', trims each fragment and drops empty ones.
func SplitNaive(text string) []string {
	var out []string
	for _, part := range strings.Split(text, ";") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Lexical splits on terminators that are outside literals and comments.
type Lexical struct{}

// Split implements Splitter.
func (Lexical) Split(_ context.Context, text string) ([]string, error) {
	return Slice(text, Spans(text)), nil
}

// Slice cuts text at spans.
func Slice(text string, spans []Span) []string {
	out := make([]string, 0, len(spans))
	for _, sp := range spans {
		if s := strings.TrimSpace(text[sp.Start:sp.End]); s != "" {
			out = append(out, s)
		}
	}
	return out
}
