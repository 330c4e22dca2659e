// Package embedding holds the shared options for embedding backends and a
// lazily constructed embedder wrapper.
package embedding

import (
	"context"
	"sync"
	"time"

	"reimburse/internal/domain"
)

type Option func(*Options)

// Options configures a remote embedding backend.
type Options struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

func WithAPIKey(apiKey string) Option {
	return func(o *Options) {
		o.APIKey = apiKey
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

func WithBaseURL(url string) Option {
	return func(o *Options) {
		o.BaseURL = url
	}
}

func WithTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.Timeout = d
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		Timeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

// Lazy defers construction of an embedder until its first Embed call, so a
// misconfigured backend fails the indexing action instead of startup.
// A failed construction is retried on the next call.
type Lazy struct {
	name  string
	build func() (domain.Embedder, error)

	mu       sync.Mutex
	embedder domain.Embedder
}

// NewLazy wraps build. name is reported before the embedder exists.
func NewLazy(name string, build func() (domain.Embedder, error)) *Lazy {
	return &Lazy{name: name, build: build}
}

func (l *Lazy) Name() string { return l.name }

// Embed builds the underlying embedder if needed and delegates to it.
func (l *Lazy) Embed(ctx context.Context, text string) ([]float32, error) {
	e, err := l.get()
	if err != nil {
		return nil, err
	}
	return e.Embed(ctx, text)
}

func (l *Lazy) get() (domain.Embedder, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.embedder != nil {
		return l.embedder, nil
	}
	e, err := l.build()
	if err != nil {
		return nil, domain.NewError(domain.KindEmbeddingUnavailable, "initialize "+l.name+" embedder", err)
	}
	l.embedder = e
	return e, nil
}
