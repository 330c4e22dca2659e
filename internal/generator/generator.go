// Package generator holds the shared options for answer generation backends
// and a lazily constructed generator wrapper.
package generator

import (
	"context"
	"sync"
	"time"

	"reimburse/internal/domain"
)

const (
	DefaultTemperature = 0.3
	DefaultMaxLength   = 512
	DefaultTimeout     = 60 * time.Second
)

type Option func(*Options)

// Options configures a hosted LLM backend. MaxLength bounds the generated
// output in tokens.
type Options struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	MaxLength   int
	Timeout     time.Duration
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

func WithTemperature(t float64) Option {
	return func(o *Options) {
		o.Temperature = t
	}
}

func WithMaxLength(n int) Option {
	return func(o *Options) {
		o.MaxLength = n
	}
}

func WithTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.Timeout = d
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		Temperature: DefaultTemperature,
		MaxLength:   DefaultMaxLength,
		Timeout:     DefaultTimeout,
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

// Lazy defers construction of a generator until the first Generate call.
// Construction errors surface as generation failures and are retried on the
// next call.
type Lazy struct {
	name  string
	build func() (domain.Generator, error)

	mu        sync.Mutex
	generator domain.Generator
}

func NewLazy(name string, build func() (domain.Generator, error)) *Lazy {
	return &Lazy{name: name, build: build}
}

func (l *Lazy) Name() string { return l.name }

func (l *Lazy) Generate(ctx context.Context, prompt string) (string, error) {
	g, err := l.get()
	if err != nil {
		return "", err
	}
	return g.Generate(ctx, prompt)
}

func (l *Lazy) get() (domain.Generator, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.generator != nil {
		return l.generator, nil
	}
	g, err := l.build()
	if err != nil {
		return nil, domain.NewError(domain.KindGenerationFailed, "initialize "+l.name+" generator", err)
	}
	l.generator = g
	return g, nil
}
