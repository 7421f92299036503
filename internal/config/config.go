package config

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/spf13/viper"
)

// Config holds every tunable the orchestrator reads. Loaded from
// research.yaml with environment overrides for credentials and hosts.
type Config struct {
	Research  ResearchConfig  `mapstructure:"research"`
	Models    ModelsConfig    `mapstructure:"models"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Postgres  PostgresConfig  `mapstructure:"postgres"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Artifacts ArtifactsConfig `mapstructure:"artifacts"`
}

type ResearchConfig struct {
	MaxSearchDepth     int  `mapstructure:"max_search_depth"`
	AllowRepeatQueries bool `mapstructure:"allow_repeat_queries"`
	InitialSearch      bool `mapstructure:"initial_search"`
}

type ModelsConfig struct {
	Planning string `mapstructure:"planning"`
	Analysis string `mapstructure:"analysis"`
	Writing  string `mapstructure:"writing"`
	Search   string `mapstructure:"search"`
}

type ProvidersConfig struct {
	OpenRouter ProviderConfig `mapstructure:"openrouter"`
	Perplexity ProviderConfig `mapstructure:"perplexity"`
}

type ProviderConfig struct {
	BaseURL           string  `mapstructure:"base_url"`
	TimeoutSeconds    int     `mapstructure:"timeout_seconds"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
}

type RedisConfig struct {
	URL             string `mapstructure:"url"`
	CacheTTLMinutes int    `mapstructure:"cache_ttl_minutes"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"sslmode"`
}

type MetricsConfig struct {
	Port int `mapstructure:"port"`
}

type ArtifactsConfig struct {
	Dir string `mapstructure:"dir"`
}

// Path returns the config file location, honoring CONFIG_PATH.
func Path() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "config/research.yaml"
}

// Load reads the config file if present and applies defaults and env
// overrides. A missing file is not an error; defaults apply.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(Path())

	v.SetDefault("research.max_search_depth", 2)
	v.SetDefault("research.allow_repeat_queries", true)
	v.SetDefault("research.initial_search", false)
	v.SetDefault("models.planning", "deepseek/deepseek-r1")
	v.SetDefault("models.analysis", "deepseek/deepseek-r1")
	v.SetDefault("models.writing", "google/gemini-2.0-flash-001")
	v.SetDefault("models.search", "sonar")
	v.SetDefault("providers.openrouter.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("providers.openrouter.timeout_seconds", 120)
	v.SetDefault("providers.openrouter.requests_per_second", 2)
	v.SetDefault("providers.perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("providers.perplexity.timeout_seconds", 120)
	v.SetDefault("providers.perplexity.requests_per_second", 2)
	v.SetDefault("redis.cache_ttl_minutes", 30)
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("artifacts.dir", "artifacts")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if _, statErr := os.Stat(Path()); statErr == nil {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Env overrides for deployment knobs.
	if u := os.Getenv("REDIS_URL"); u != "" {
		c.Redis.URL = u
	}
	if h := os.Getenv("POSTGRES_HOST"); h != "" {
		c.Postgres.Host = h
	}
	if u := os.Getenv("POSTGRES_USER"); u != "" {
		c.Postgres.User = u
	}
	if p := os.Getenv("POSTGRES_PASSWORD"); p != "" {
		c.Postgres.Password = p
	}
	if d := os.Getenv("POSTGRES_DB"); d != "" {
		c.Postgres.Database = d
	}
	return &c, nil
}

// OpenRouterTimeout returns the configured OpenRouter client timeout.
func (c *Config) OpenRouterTimeout() time.Duration {
	return time.Duration(c.Providers.OpenRouter.TimeoutSeconds) * time.Second
}

// PerplexityTimeout returns the configured Perplexity client timeout.
func (c *Config) PerplexityTimeout() time.Duration {
	return time.Duration(c.Providers.Perplexity.TimeoutSeconds) * time.Second
}

// CacheTTL returns the search cache entry lifetime.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Redis.CacheTTLMinutes) * time.Minute
}

// Store is a hot-swappable config handle. The watcher replaces the
// snapshot on file change; readers always see a consistent Config.
type Store struct {
	current atomic.Pointer[Config]
}

func NewStore(initial *Config) *Store {
	s := &Store{}
	s.current.Store(initial)
	return s
}

// Get returns the current snapshot. Never nil once constructed.
func (s *Store) Get() *Config {
	return s.current.Load()
}

// Replace swaps in a new snapshot.
func (s *Store) Replace(c *Config) {
	s.current.Store(c)
}
