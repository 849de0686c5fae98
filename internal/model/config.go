package model

import "time"

// Config holds the full runtime configuration.
type Config struct {
	Oracle    OracleConfig    `yaml:"oracle" mapstructure:"oracle"`
	Workflow  WorkflowConfig  `yaml:"workflow" mapstructure:"workflow"`
	Retrieval RetrievalConfig `yaml:"retrieval" mapstructure:"retrieval"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Output    OutputConfig    `yaml:"output" mapstructure:"output"`
}

// OracleConfig configures the reasoning oracle backend.
type OracleConfig struct {
	Provider   string        `yaml:"provider" mapstructure:"provider"` // openai, ollama
	Model      string        `yaml:"model" mapstructure:"model"`
	APIKey     string        `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL    string        `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`
	Retries    int           `yaml:"retries" mapstructure:"retries"`
	RetryDelay time.Duration `yaml:"retry_delay" mapstructure:"retry_delay"`
	MaxTokens  int           `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// WorkflowConfig tunes the forecasting workflow itself.
type WorkflowConfig struct {
	MaxIterations int    `yaml:"max_iterations" mapstructure:"max_iterations"` // decompose/contract cycles
	Workers       int    `yaml:"workers" mapstructure:"workers"`               // fan-out for independent oracle calls
	Decompose     bool   `yaml:"decompose" mapstructure:"decompose"`
	StrictGraph   bool   `yaml:"strict_graph" mapstructure:"strict_graph"` // reject cycles and dangling ids
	LogPath       string `yaml:"log_path" mapstructure:"log_path"`
}

// RetrievalConfig configures the optional evidence-document retrieval.
type RetrievalConfig struct {
	Enabled      bool          `yaml:"enabled" mapstructure:"enabled"`
	BraveAPIKey  string        `yaml:"brave_api_key,omitempty" mapstructure:"brave_api_key"`
	JinaAPIKey   string        `yaml:"jina_api_key,omitempty" mapstructure:"jina_api_key"`
	TopK         int           `yaml:"top_k" mapstructure:"top_k"`
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent"`
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	RatePerSec   float64       `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	RateBurst    int           `yaml:"rate_burst" mapstructure:"rate_burst"`
}

// CacheConfig configures the search/document cache.
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Path      string        `yaml:"path" mapstructure:"path"` // sqlite file, empty for memory only
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	TTL       time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// OutputConfig controls reporting.
type OutputConfig struct {
	Verbose bool `yaml:"verbose" mapstructure:"verbose"`
	JSON    bool `yaml:"json" mapstructure:"json"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Oracle: OracleConfig{
			Provider:   "ollama",
			Model:      "",
			Timeout:    120 * time.Second,
			Retries:    3,
			RetryDelay: 500 * time.Millisecond,
			MaxTokens:  2048,
		},
		Workflow: WorkflowConfig{
			MaxIterations: 2,
			Workers:       1,
			Decompose:     true,
			StrictGraph:   true,
			LogPath:       "forecasts.jsonl",
		},
		Retrieval: RetrievalConfig{
			Enabled:      false,
			TopK:         3,
			UserAgent:    "foresight/0.1 (+https://github.com/eppie/foresight)",
			Timeout:      20 * time.Second,
			MaxBodyBytes: 2_000_000,
			RatePerSec:   1,
			RateBurst:    3,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Path:      "",
			MemoryTTL: 15 * time.Minute,
			TTL:       7 * 24 * time.Hour,
		},
		Output: OutputConfig{},
	}
}
