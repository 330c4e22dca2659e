// Package app wires configured components into a question-answering session.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"reimburse/internal/config"
	"reimburse/internal/domain"
	"reimburse/internal/embedding"
	"reimburse/internal/embedding/google"
	"reimburse/internal/embedding/hashing"
	"reimburse/internal/embedding/huggingface"
	"reimburse/internal/embedding/openai"
	"reimburse/internal/generator"
	anthropicgen "reimburse/internal/generator/anthropic"
	googlegen "reimburse/internal/generator/google"
	hfgen "reimburse/internal/generator/huggingface"
	openaigen "reimburse/internal/generator/openai"
	"reimburse/internal/loader"
	"reimburse/internal/service"
	"reimburse/internal/vectorstore"
	"reimburse/internal/vectorstore/memory"
	"reimburse/internal/vectorstore/pgvector"
	"reimburse/internal/vectorstore/qdrant"
)

// App holds the wired session and the resources it owns.
type App struct {
	Session *service.Session
	Logger  *zap.Logger

	closers []func() error
}

// New builds every component named in cfg. Remote backends are constructed
// lazily, so a missing key or unreachable service is reported when a
// document is processed or a question asked rather than here.
func New(cfg *config.AppConfig, logger *zap.Logger) (*App, error) {
	embedder, err := NewEmbedder(cfg.Embedder)
	if err != nil {
		return nil, err
	}
	factory, closeIndex, err := NewIndexFactory(cfg.VectorStore)
	if err != nil {
		return nil, err
	}
	gen, err := NewGenerator(cfg.Generator)
	if err != nil {
		return nil, err
	}

	session := service.NewSession(
		loader.New(),
		service.NewIndexer(embedder, factory, logger),
		service.NewRetriever(embedder, cfg.Retrieval.TopK, logger),
		gen,
		logger,
	)

	logger.Info("components initialized",
		zap.String("embedder", embedder.Name()),
		zap.String("vector_store", cfg.VectorStore.Type),
		zap.String("generator", gen.Name()),
	)

	return &App{
		Session: session,
		Logger:  logger,
		closers: []func() error{closeIndex},
	}, nil
}

// Close releases the session index and any shared connections.
func (a *App) Close(ctx context.Context) error {
	err := a.Session.Close(ctx)
	for _, c := range a.closers {
		if cerr := c(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

func remoteOr(r *config.RemoteConfig) config.RemoteConfig {
	if r == nil {
		return config.RemoteConfig{}
	}
	return *r
}

// NewEmbedder returns the configured embedder.
func NewEmbedder(cfg config.EmbedderConfig) (domain.Embedder, error) {
	embedOpts := func(r config.RemoteConfig) []embedding.Option {
		return []embedding.Option{
			embedding.WithAPIKey(r.APIKey()),
			embedding.WithModel(r.Model),
			embedding.WithBaseURL(r.BaseURL),
			embedding.WithTimeout(seconds(r.TimeoutSecs)),
		}
	}

	switch cfg.Type {
	case "", "hashing":
		return hashing.NewEmbedder(cfg.Dimension), nil
	case "huggingface":
		r := remoteOr(cfg.HuggingFace)
		return huggingface.NewEmbedder(embedOpts(r)...), nil
	case "openai":
		r := remoteOr(cfg.OpenAI)
		return embedding.NewLazy("openai", func() (domain.Embedder, error) {
			return openai.NewClient(embedOpts(r)...)
		}), nil
	case "google":
		r := remoteOr(cfg.Google)
		return embedding.NewLazy("google", func() (domain.Embedder, error) {
			return google.NewEmbedder(context.Background(), embedOpts(r)...)
		}), nil
	default:
		return nil, fmt.Errorf("unknown embedder type %q", cfg.Type)
	}
}

// NewGenerator returns the configured answer generator.
func NewGenerator(cfg config.GeneratorConfig) (domain.Generator, error) {
	genOpts := func(r config.RemoteConfig) []generator.Option {
		opts := []generator.Option{
			generator.WithAPIKey(r.APIKey()),
			generator.WithModel(r.Model),
			generator.WithBaseURL(r.BaseURL),
			generator.WithTimeout(seconds(r.TimeoutSecs)),
		}
		if cfg.Temperature != nil {
			opts = append(opts, generator.WithTemperature(*cfg.Temperature))
		}
		if cfg.MaxLength > 0 {
			opts = append(opts, generator.WithMaxLength(cfg.MaxLength))
		}
		return opts
	}

	switch cfg.Type {
	case "", "huggingface":
		return hfgen.NewGenerator(genOpts(remoteOr(cfg.HuggingFace))...), nil
	case "openai":
		r := remoteOr(cfg.OpenAI)
		return generator.NewLazy("openai", func() (domain.Generator, error) {
			return openaigen.NewGenerator(genOpts(r)...)
		}), nil
	case "anthropic":
		r := remoteOr(cfg.Anthropic)
		return generator.NewLazy("anthropic", func() (domain.Generator, error) {
			return anthropicgen.NewGenerator(genOpts(r)...)
		}), nil
	case "google":
		r := remoteOr(cfg.Google)
		return generator.NewLazy("google", func() (domain.Generator, error) {
			return googlegen.NewGenerator(context.Background(), genOpts(r)...)
		}), nil
	default:
		return nil, fmt.Errorf("unknown generator type %q", cfg.Type)
	}
}

// NewIndexFactory returns a factory for the configured vector store and a
// func releasing resources shared by its indexes.
func NewIndexFactory(cfg config.VectorStoreConfig) (vectorstore.Factory, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Type {
	case "", "memory":
		return memory.Factory(), noop, nil
	case "qdrant":
		q := cfg.Qdrant
		if q == nil {
			q = &config.QdrantConfig{}
		}
		apiKey := config.RemoteConfig{APIKeyEnv: q.APIKeyEnv}.APIKey()
		return qdrant.Factory(qdrant.Config{
			URL:              q.URL,
			APIKey:           apiKey,
			CollectionPrefix: q.CollectionPrefix,
			Timeout:          seconds(q.TimeoutSecs),
		}), noop, nil
	case "pgvector":
		p := cfg.PGVector
		if p == nil {
			p = &config.PGVectorConfig{}
		}
		pool := &pgPool{dsn: p.ResolveDSN()}
		return pool.factory, pool.close, nil
	default:
		return nil, nil, fmt.Errorf("unknown vector store type %q", cfg.Type)
	}
}

// pgPool opens the database on first use and shares it across indexes.
type pgPool struct {
	dsn string

	mu sync.Mutex
	db *sql.DB
}

func (p *pgPool) factory(ctx context.Context) (vectorstore.Index, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.db == nil {
		if p.dsn == "" {
			return nil, fmt.Errorf("pgvector dsn is not configured")
		}
		db, err := pgvector.Open(ctx, p.dsn)
		if err != nil {
			return nil, err
		}
		p.db = db
	}
	return pgvector.Factory(p.db)(ctx)
}

func (p *pgPool) close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.db == nil {
		return nil
	}
	err := p.db.Close()
	p.db = nil
	return err
}
