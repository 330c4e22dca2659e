package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// RemoteConfig holds connection details shared by hosted embedding and
// generation backends. Secrets are referenced by environment variable name.
type RemoteConfig struct {
	BaseURL     string `yaml:"base_url,omitempty"`
	APIKeyEnv   string `yaml:"api_key_env,omitempty"`
	Model       string `yaml:"model,omitempty"`
	TimeoutSecs int    `yaml:"timeout_secs,omitempty"`
}

// APIKey resolves the configured key from the environment.
func (r RemoteConfig) APIKey() string {
	if r.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(r.APIKeyEnv)
}

// EmbedderConfig selects and configures the text embedder implementation.
// Type is one of hashing, huggingface, openai, google.
type EmbedderConfig struct {
	Type        string        `yaml:"type"`
	Dimension   int           `yaml:"dimension,omitempty"`
	HuggingFace *RemoteConfig `yaml:"huggingface,omitempty"`
	OpenAI      *RemoteConfig `yaml:"openai,omitempty"`
	Google      *RemoteConfig `yaml:"google,omitempty"`
}

// VectorStoreConfig selects and configures the vector index implementation.
// Type is one of memory, qdrant, pgvector.
type VectorStoreConfig struct {
	Type     string          `yaml:"type"`
	Qdrant   *QdrantConfig   `yaml:"qdrant,omitempty"`
	PGVector *PGVectorConfig `yaml:"pgvector,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL              string `yaml:"url"`
	APIKeyEnv        string `yaml:"api_key_env,omitempty"`
	CollectionPrefix string `yaml:"collection_prefix"`
	TimeoutSecs      int    `yaml:"timeout_secs"`
}

// PGVectorConfig contains connection details for PostgreSQL with pgvector.
// The DSN is read from DSNEnv when set, otherwise from DSN.
type PGVectorConfig struct {
	DSN    string `yaml:"dsn,omitempty"`
	DSNEnv string `yaml:"dsn_env,omitempty"`
}

// ResolveDSN returns the connection string, preferring the environment.
func (p PGVectorConfig) ResolveDSN() string {
	if p.DSNEnv != "" {
		if v := os.Getenv(p.DSNEnv); v != "" {
			return v
		}
	}
	return p.DSN
}

// GeneratorConfig selects and configures the answer generator.
// Type is one of huggingface, openai, anthropic, google. An explicit
// temperature of 0 is honored by every provider.
type GeneratorConfig struct {
	Type        string        `yaml:"type"`
	Temperature *float64      `yaml:"temperature,omitempty"`
	MaxLength   int           `yaml:"max_length"`
	HuggingFace *RemoteConfig `yaml:"huggingface,omitempty"`
	OpenAI      *RemoteConfig `yaml:"openai,omitempty"`
	Anthropic   *RemoteConfig `yaml:"anthropic,omitempty"`
	Google      *RemoteConfig `yaml:"google,omitempty"`
}

// RetrievalConfig configures the retriever.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

// LoggingConfig configures the zap logger. File is where the interactive
// shell writes logs; empty disables logging there.
type LoggingConfig struct {
	Level    string `yaml:"level"`
	Encoding string `yaml:"encoding"`
	File     string `yaml:"file,omitempty"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Embedder    EmbedderConfig    `yaml:"embedder"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Generator   GeneratorConfig   `yaml:"generator"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Logging     LoggingConfig     `yaml:"logging"`
	Watch       bool              `yaml:"watch"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			return cfg, nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/reimburse/config.yaml.
// If neither exists, it writes defaults to ~/.config/reimburse/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// LoadEnv loads variables from .env files into the process environment
// without overriding variables that are already set. Missing files are
// ignored.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return err
		}
	}
	return nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "reimburse", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Embedder:    EmbedderConfig{Type: "hashing"},
		VectorStore: VectorStoreConfig{Type: "memory"},
		Generator:   GeneratorConfig{Type: "huggingface"},
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "hashing"
	}
	if cfg.Embedder.Type == "hashing" && cfg.Embedder.Dimension == 0 {
		cfg.Embedder.Dimension = 384
	}
	switch cfg.Embedder.Type {
	case "huggingface":
		cfg.Embedder.HuggingFace = remoteDefaults(cfg.Embedder.HuggingFace, RemoteConfig{
			BaseURL:     "https://api-inference.huggingface.co",
			APIKeyEnv:   "HUGGINGFACEHUB_API_TOKEN",
			Model:       "sentence-transformers/all-MiniLM-L6-v2",
			TimeoutSecs: 30,
		})
	case "openai":
		cfg.Embedder.OpenAI = remoteDefaults(cfg.Embedder.OpenAI, RemoteConfig{
			BaseURL:     "https://api.openai.com/v1",
			APIKeyEnv:   "OPENAI_API_KEY",
			Model:       "text-embedding-3-small",
			TimeoutSecs: 30,
		})
	case "google":
		cfg.Embedder.Google = remoteDefaults(cfg.Embedder.Google, RemoteConfig{
			APIKeyEnv:   "GOOGLE_API_KEY",
			Model:       "text-embedding-004",
			TimeoutSecs: 30,
		})
	}

	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "memory"
	}
	if cfg.VectorStore.Type == "qdrant" {
		if cfg.VectorStore.Qdrant == nil {
			cfg.VectorStore.Qdrant = &QdrantConfig{}
		}
		if cfg.VectorStore.Qdrant.URL == "" {
			cfg.VectorStore.Qdrant.URL = "http://localhost:6333"
		}
		if cfg.VectorStore.Qdrant.CollectionPrefix == "" {
			cfg.VectorStore.Qdrant.CollectionPrefix = "reimburse"
		}
		if cfg.VectorStore.Qdrant.TimeoutSecs == 0 {
			cfg.VectorStore.Qdrant.TimeoutSecs = 15
		}
	}
	if cfg.VectorStore.Type == "pgvector" {
		if cfg.VectorStore.PGVector == nil {
			cfg.VectorStore.PGVector = &PGVectorConfig{}
		}
		if cfg.VectorStore.PGVector.DSN == "" && cfg.VectorStore.PGVector.DSNEnv == "" {
			cfg.VectorStore.PGVector.DSNEnv = "DATABASE_URL"
		}
	}

	if cfg.Generator.Type == "" {
		cfg.Generator.Type = "huggingface"
	}
	if cfg.Generator.Temperature == nil {
		t := 0.3
		cfg.Generator.Temperature = &t
	}
	if cfg.Generator.MaxLength == 0 {
		cfg.Generator.MaxLength = 512
	}
	switch cfg.Generator.Type {
	case "huggingface":
		cfg.Generator.HuggingFace = remoteDefaults(cfg.Generator.HuggingFace, RemoteConfig{
			BaseURL:     "https://api-inference.huggingface.co",
			APIKeyEnv:   "HUGGINGFACEHUB_API_TOKEN",
			Model:       "google/flan-t5-large",
			TimeoutSecs: 60,
		})
	case "openai":
		cfg.Generator.OpenAI = remoteDefaults(cfg.Generator.OpenAI, RemoteConfig{
			BaseURL:     "https://api.openai.com/v1",
			APIKeyEnv:   "OPENAI_API_KEY",
			Model:       "gpt-4o-mini",
			TimeoutSecs: 60,
		})
	case "anthropic":
		cfg.Generator.Anthropic = remoteDefaults(cfg.Generator.Anthropic, RemoteConfig{
			APIKeyEnv:   "ANTHROPIC_API_KEY",
			Model:       "claude-3-5-haiku-latest",
			TimeoutSecs: 60,
		})
	case "google":
		cfg.Generator.Google = remoteDefaults(cfg.Generator.Google, RemoteConfig{
			APIKeyEnv:   "GOOGLE_API_KEY",
			Model:       "gemini-1.5-flash",
			TimeoutSecs: 60,
		})
	}

	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 4
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Encoding == "" {
		cfg.Logging.Encoding = "json"
	}
}

// remoteDefaults fills unset fields of r from def, allocating r if needed.
func remoteDefaults(r *RemoteConfig, def RemoteConfig) *RemoteConfig {
	if r == nil {
		r = &RemoteConfig{}
	}
	if r.BaseURL == "" {
		r.BaseURL = def.BaseURL
	}
	if r.APIKeyEnv == "" {
		r.APIKeyEnv = def.APIKeyEnv
	}
	if r.Model == "" {
		r.Model = def.Model
	}
	if r.TimeoutSecs == 0 {
		r.TimeoutSecs = def.TimeoutSecs
	}
	return r
}
