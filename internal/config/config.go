package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// StoreConfig selects and configures the document store backend.
// Location is the directory for "local", the collection alias for "qdrant"
// and the table name for "postgres".
type StoreConfig struct {
	Type     string          `yaml:"type"`
	Location string          `yaml:"location"`
	Qdrant   *QdrantConfig   `yaml:"qdrant,omitempty"`
	Postgres *PostgresConfig `yaml:"postgres,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// PostgresConfig contains connection details for a pgvector store.
type PostgresConfig struct {
	DSNEnv string `yaml:"dsn_env"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type        string `yaml:"type"`
	Model       string `yaml:"model,omitempty"`
	Dimension   int    `yaml:"dimension,omitempty"`
	BaseURL     string `yaml:"base_url,omitempty"`
	APIKeyEnv   string `yaml:"api_key_env,omitempty"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	Concurrency int    `yaml:"concurrency"`
	MaxRetries  uint64 `yaml:"max_retries"`
}

// RetrieverConfig configures the selection policy.
type RetrieverConfig struct {
	Policy     string   `yaml:"policy"`
	K          int      `yaml:"k"`
	FetchK     int      `yaml:"fetch_k"`
	LambdaMult *float64 `yaml:"lambda_mult"`
}

// ContextConfig bounds the assembled context. Zero MaxChars means unbounded.
type ContextConfig struct {
	MaxChars *int `yaml:"max_chars"`
}

// GeneratorConfig selects and configures the text-generation backend.
type GeneratorConfig struct {
	Type        string  `yaml:"type"`
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url,omitempty"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Temperature float64 `yaml:"temperature"`
	TimeoutSecs int     `yaml:"timeout_secs"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// AnswerConfig holds the fixed user-facing messages. Empty values keep the
// built-in Korean defaults.
type AnswerConfig struct {
	DeclineMessage    string `yaml:"decline_message,omitempty"`
	ErrorMessage      string `yaml:"error_message,omitempty"`
	EmptyQueryMessage string `yaml:"empty_query_message,omitempty"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output,omitempty"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Store     StoreConfig     `yaml:"store"`
	Embedder  EmbedderConfig  `yaml:"embedder"`
	Retriever RetrieverConfig `yaml:"retriever"`
	Context   ContextConfig   `yaml:"context"`
	Generator GeneratorConfig `yaml:"generator"`
	Answer    AnswerConfig    `yaml:"answer"`
	Log       LogConfig       `yaml:"log"`
	Server    ServerConfig    `yaml:"server"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/jobis/config.yaml.
// If neither exists, it writes defaults to ~/.config/jobis/config.yaml and returns them.
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
	return filepath.Join(home, ".config", "jobis", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Store:     StoreConfig{Type: "local"},
		Embedder:  EmbedderConfig{Type: "hashing"},
		Retriever: RetrieverConfig{Policy: "similarity"},
		Generator: GeneratorConfig{Type: "google"},
		Log:       LogConfig{Level: "info", Format: "json"},
		Server:    ServerConfig{Addr: ":8080"},
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	switch cfg.Store.Type {
	case "":
		cfg.Store.Type = "local"
		fallthrough
	case "local":
		if cfg.Store.Location == "" {
			cfg.Store.Location = filepath.Join("data", "store")
		}
	case "qdrant":
		if cfg.Store.Location == "" {
			cfg.Store.Location = "jobis"
		}
		if cfg.Store.Qdrant == nil {
			cfg.Store.Qdrant = &QdrantConfig{}
		}
		if cfg.Store.Qdrant.URL == "" {
			cfg.Store.Qdrant.URL = "http://localhost:6333"
		}
		if cfg.Store.Qdrant.APIKeyEnv == "" {
			cfg.Store.Qdrant.APIKeyEnv = "QDRANT_API_KEY"
		}
		if cfg.Store.Qdrant.TimeoutSecs == 0 {
			cfg.Store.Qdrant.TimeoutSecs = 15
		}
	case "postgres":
		if cfg.Store.Location == "" {
			cfg.Store.Location = "jobis_records"
		}
		if cfg.Store.Postgres == nil {
			cfg.Store.Postgres = &PostgresConfig{}
		}
		if cfg.Store.Postgres.DSNEnv == "" {
			cfg.Store.Postgres.DSNEnv = "DATABASE_URL"
		}
	}

	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "hashing"
	}
	switch cfg.Embedder.Type {
	case "hashing":
		if cfg.Embedder.Dimension == 0 {
			cfg.Embedder.Dimension = 512
		}
	case "openai":
		if cfg.Embedder.BaseURL == "" {
			cfg.Embedder.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Embedder.APIKeyEnv == "" {
			cfg.Embedder.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.Model == "" {
			cfg.Embedder.Model = "text-embedding-3-small"
		}
	case "google":
		if cfg.Embedder.APIKeyEnv == "" {
			cfg.Embedder.APIKeyEnv = "GOOGLE_API_KEY"
		}
		if cfg.Embedder.Model == "" {
			cfg.Embedder.Model = "text-embedding-004"
		}
	}
	if cfg.Embedder.TimeoutSecs == 0 {
		cfg.Embedder.TimeoutSecs = 30
	}
	if cfg.Embedder.Concurrency == 0 {
		cfg.Embedder.Concurrency = 8
	}
	if cfg.Embedder.MaxRetries == 0 {
		cfg.Embedder.MaxRetries = 5
	}

	if cfg.Retriever.Policy == "" {
		cfg.Retriever.Policy = "similarity"
	}
	if cfg.Retriever.K == 0 {
		cfg.Retriever.K = 5
	}
	if cfg.Retriever.FetchK == 0 {
		cfg.Retriever.FetchK = 20
	}
	if cfg.Retriever.LambdaMult == nil {
		l := 0.5
		cfg.Retriever.LambdaMult = &l
	}
	if cfg.Context.MaxChars == nil {
		n := 6000
		cfg.Context.MaxChars = &n
	}

	if cfg.Generator.Type == "" {
		cfg.Generator.Type = "google"
	}
	switch cfg.Generator.Type {
	case "google":
		if cfg.Generator.Model == "" {
			cfg.Generator.Model = "gemini-1.5-flash"
		}
		if cfg.Generator.APIKeyEnv == "" {
			cfg.Generator.APIKeyEnv = "GOOGLE_API_KEY"
		}
	case "openai":
		if cfg.Generator.Model == "" {
			cfg.Generator.Model = "gpt-4o-mini"
		}
		if cfg.Generator.APIKeyEnv == "" {
			cfg.Generator.APIKeyEnv = "OPENAI_API_KEY"
		}
	case "anthropic":
		if cfg.Generator.Model == "" {
			cfg.Generator.Model = "claude-3-5-haiku-latest"
		}
		if cfg.Generator.APIKeyEnv == "" {
			cfg.Generator.APIKeyEnv = "ANTHROPIC_API_KEY"
		}
	}
	if cfg.Generator.TimeoutSecs == 0 {
		cfg.Generator.TimeoutSecs = 60
	}
	if cfg.Generator.MaxTokens == 0 {
		cfg.Generator.MaxTokens = 1024
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
}

// Validate reports every invalid setting at once.
func (c *AppConfig) Validate() error {
	var errs []error
	oneOf := func(field, v string, allowed ...string) {
		for _, a := range allowed {
			if v == a {
				return
			}
		}
		errs = append(errs, fmt.Errorf("%s: unknown value %q (want one of %v)", field, v, allowed))
	}
	if c.Store.Type == "memory" {
		// index and chat run as separate processes; nothing would survive between them.
		errs = append(errs, errors.New(`store.type: "memory" does not persist across runs, use "local"`))
	} else {
		oneOf("store.type", c.Store.Type, "local", "qdrant", "postgres")
	}
	oneOf("embedder.type", c.Embedder.Type, "hashing", "openai", "google")
	oneOf("retriever.policy", c.Retriever.Policy, "similarity", "mmr")
	oneOf("generator.type", c.Generator.Type, "google", "openai", "anthropic")
	oneOf("log.format", c.Log.Format, "json", "console")

	if c.Retriever.K <= 0 {
		errs = append(errs, fmt.Errorf("retriever.k must be positive, got %d", c.Retriever.K))
	}
	if c.Retriever.FetchK < 0 {
		errs = append(errs, fmt.Errorf("retriever.fetch_k must not be negative, got %d", c.Retriever.FetchK))
	}
	if l := c.Retriever.LambdaMult; l != nil && (*l < 0 || *l > 1) {
		errs = append(errs, fmt.Errorf("retriever.lambda_mult must be within [0,1], got %v", *l))
	}
	if m := c.Context.MaxChars; m != nil && *m < 0 {
		errs = append(errs, fmt.Errorf("context.max_chars must not be negative, got %d", *m))
	}
	if c.Generator.Temperature < 0 {
		errs = append(errs, fmt.Errorf("generator.temperature must not be negative, got %v", c.Generator.Temperature))
	}
	if c.Embedder.Type == "hashing" && c.Embedder.Dimension <= 0 {
		errs = append(errs, fmt.Errorf("embedder.dimension must be positive, got %d", c.Embedder.Dimension))
	}
	return errors.Join(errs...)
}

// Overrides are individually optional settings layered over the file, for
// example from flags or environment variables.
type Overrides struct {
	StoreLocation   *string
	EmbeddingModel  *string
	K               *int
	FetchK          *int
	LambdaMult      *float64
	Temperature     *float64
	GenerationModel *string
}

// Apply copies every set override into the config.
func (c *AppConfig) Apply(o Overrides) {
	if o.StoreLocation != nil {
		c.Store.Location = *o.StoreLocation
	}
	if o.EmbeddingModel != nil {
		// the hashing embedder has no model; it is identified by its dimension
		c.Embedder.Model = *o.EmbeddingModel
	}
	if o.K != nil {
		c.Retriever.K = *o.K
	}
	if o.FetchK != nil {
		c.Retriever.FetchK = *o.FetchK
	}
	if o.LambdaMult != nil {
		l := *o.LambdaMult
		c.Retriever.LambdaMult = &l
	}
	if o.Temperature != nil {
		c.Generator.Temperature = *o.Temperature
	}
	if o.GenerationModel != nil {
		c.Generator.Model = *o.GenerationModel
	}
}
