// Package config holds all mnemo configuration. One Config struct with
// per-concern sub-structs, yaml on disk at <root>/.mnemo/config.yaml.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all mnemo configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	Store      StoreConfig      `yaml:"store"`
	Importance ImportanceConfig `yaml:"importance"`
	Predictor  PredictorConfig  `yaml:"predictor"`
	Tier       TierConfig       `yaml:"tier"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Affect     AffectConfig     `yaml:"affect"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// StoreConfig configures the durable unit store.
type StoreConfig struct {
	// Root directory holding units/, graph.json, meta.json, session files.
	Root string `yaml:"root"`

	// Vector dimension d. Every semantic vector and HRR shape must match.
	Dimension int `yaml:"dimension"`

	// DefaultDecayRate for new units. Must be positive.
	DefaultDecayRate float64 `yaml:"default_decay_rate"`

	// OptimizeEveryN triggers a cooperative maintenance pass after this
	// many ingests. 0 disables the trigger.
	OptimizeEveryN int `yaml:"optimize_every_n"`

	// GraphLinkThreshold: pairwise similarity at or above this records a
	// relationship edge.
	GraphLinkThreshold float64 `yaml:"graph_link_threshold"`
}

// ImportanceConfig carries every factor weight and half-life of the
// importance model. Weights are configuration, not hidden constants.
type ImportanceConfig struct {
	RecencyWeight       float64 `yaml:"recency_weight"`
	AccessRecencyWeight float64 `yaml:"access_recency_weight"`
	IntrinsicWeight     float64 `yaml:"intrinsic_weight"`
	ComplexityWeight    float64 `yaml:"complexity_weight"`
	UniquenessWeight    float64 `yaml:"uniqueness_weight"`
	CognitiveTagWeight  float64 `yaml:"cognitive_tag_weight"`
	CrossRefWeight      float64 `yaml:"cross_ref_weight"`
	EngagementWeight    float64 `yaml:"engagement_weight"`
	CentralityWeight    float64 `yaml:"centrality_weight"`
	PredictedWeight     float64 `yaml:"predicted_weight"`

	// RecencyHalfLife is the exponential-decay half-life for unit age.
	RecencyHalfLife time.Duration `yaml:"recency_half_life"`
	// AccessHalfLife is the half-life for time since last access.
	AccessHalfLife time.Duration `yaml:"access_half_life"`

	// UniquenessWindow bounds the recent-unit window scanned for the
	// semantic-uniqueness factor.
	UniquenessWindow int `yaml:"uniqueness_window"`
}

// PredictorConfig configures the online access predictor.
type PredictorConfig struct {
	// BufferCapacity bounds the access-history ring buffer.
	BufferCapacity int `yaml:"buffer_capacity"`
	// TemporalHalfLife for the recency boost.
	TemporalHalfLife time.Duration `yaml:"temporal_half_life"`
}

// TierConfig configures tier assignment and consolidation.
type TierConfig struct {
	// Combined-score thresholds. combined = ImportanceShare*importance +
	// FrequencyShare*frequency.
	ImportanceShare float64 `yaml:"importance_share"`
	FrequencyShare  float64 `yaml:"frequency_share"`
	HotThreshold    float64 `yaml:"hot_threshold"`
	WarmThreshold   float64 `yaml:"warm_threshold"`
	ColdThreshold   float64 `yaml:"cold_threshold"`

	// MinBatch is the smallest group of low-value units worth merging
	// into one consolidated batch.
	MinBatch int `yaml:"min_batch"`
	// ConsolidateBelow: only units with combined score under this are
	// consolidation candidates.
	ConsolidateBelow float64 `yaml:"consolidate_below"`
}

// RetrievalConfig configures similarity search.
type RetrievalConfig struct {
	// ImportanceBoost scales the importance contribution to the score.
	ImportanceBoost float64 `yaml:"importance_boost"`
	// MaxEmotionBoost caps the emotion-similarity multiplier.
	MaxEmotionBoost float64 `yaml:"max_emotion_boost"`
}

// EmbeddingConfig configures the embedding provider.
// Supports hash (deterministic, offline), ollama, openai, and genai.
type EmbeddingConfig struct {
	// Provider: "hash", "ollama", "openai" or "genai"
	Provider string `yaml:"provider"`

	// Ollama configuration (local embedding server)
	OllamaEndpoint string `yaml:"ollama_endpoint"` // Default: "http://localhost:11434"
	OllamaModel    string `yaml:"ollama_model"`    // Default: "nomic-embed-text"

	// OpenAI configuration
	OpenAIAPIKey string `yaml:"openai_api_key"`
	OpenAIModel  string `yaml:"openai_model"` // Default: "text-embedding-3-small"

	// GenAI configuration (Google cloud embedding)
	GenAIAPIKey string `yaml:"genai_api_key"`
	GenAIModel  string `yaml:"genai_model"` // Default: "gemini-embedding-001"
}

// AffectConfig configures the emotion extractor.
type AffectConfig struct {
	// Provider: only "lexicon" is built in.
	Provider string `yaml:"provider"`
}

// LoggingConfig configures the categorized file logger.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"` // debug, info, warn, error
	Categories map[string]bool `yaml:"categories"`
}

// DefaultConfig returns the default configuration. Factor weights sum to
// 1.0 so the importance score needs no renormalization.
func DefaultConfig() *Config {
	return &Config{
		Name:    "mnemo",
		Version: "0.3.0",
		Store: StoreConfig{
			Root:               ".mnemo-store",
			Dimension:          256,
			DefaultDecayRate:   1.0,
			OptimizeEveryN:     100,
			GraphLinkThreshold: 0.75,
		},
		Importance: ImportanceConfig{
			RecencyWeight:       0.18,
			AccessRecencyWeight: 0.14,
			IntrinsicWeight:     0.16,
			ComplexityWeight:    0.10,
			UniquenessWeight:    0.12,
			CognitiveTagWeight:  0.06,
			CrossRefWeight:      0.06,
			EngagementWeight:    0.06,
			CentralityWeight:    0.06,
			PredictedWeight:     0.06,
			RecencyHalfLife:     30 * 24 * time.Hour,
			AccessHalfLife:      7 * 24 * time.Hour,
			UniquenessWindow:    50,
		},
		Predictor: PredictorConfig{
			BufferCapacity:   1000,
			TemporalHalfLife: 12 * time.Hour,
		},
		Tier: TierConfig{
			ImportanceShare:  0.7,
			FrequencyShare:   0.3,
			HotThreshold:     0.8,
			WarmThreshold:    0.5,
			ColdThreshold:    0.2,
			MinBatch:         10,
			ConsolidateBelow: 0.2,
		},
		Retrieval: RetrievalConfig{
			ImportanceBoost: 0.3,
			MaxEmotionBoost: 1.5,
		},
		Embedding: EmbeddingConfig{
			Provider:       "hash",
			OllamaEndpoint: "http://localhost:11434",
			OllamaModel:    "nomic-embed-text",
			OpenAIModel:    "text-embedding-3-small",
			GenAIModel:     "gemini-embedding-001",
		},
		Affect: AffectConfig{
			Provider: "lexicon",
		},
		Logging: LoggingConfig{
			DebugMode: false,
			Level:     "info",
		},
	}
}

// Path returns the config file location under the store root.
func Path(root string) string {
	return filepath.Join(root, ".mnemo", "config.yaml")
}

// Load reads config from <root>/.mnemo/config.yaml, filling unset fields
// from defaults. A missing file is not an error: defaults are returned.
func Load(root string) (*Config, error) {
	cfg := DefaultConfig()
	if root != "" {
		cfg.Store.Root = root
	}

	data, err := os.ReadFile(Path(cfg.Store.Root))
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if root != "" {
		cfg.Store.Root = root
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config under the store root.
func (c *Config) Save() error {
	path := Path(c.Store.Root)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Store.Dimension <= 0 {
		return fmt.Errorf("store.dimension must be positive, got %d", c.Store.Dimension)
	}
	if c.Store.DefaultDecayRate <= 0 {
		return fmt.Errorf("store.default_decay_rate must be positive, got %.4f", c.Store.DefaultDecayRate)
	}
	if c.Predictor.BufferCapacity <= 0 {
		return fmt.Errorf("predictor.buffer_capacity must be positive, got %d", c.Predictor.BufferCapacity)
	}
	if c.Tier.MinBatch < 2 {
		return fmt.Errorf("tier.min_batch must be at least 2, got %d", c.Tier.MinBatch)
	}
	if !(c.Tier.HotThreshold > c.Tier.WarmThreshold && c.Tier.WarmThreshold > c.Tier.ColdThreshold) {
		return fmt.Errorf("tier thresholds must be strictly ordered hot > warm > cold")
	}
	if c.Retrieval.MaxEmotionBoost < 1 {
		return fmt.Errorf("retrieval.max_emotion_boost must be >= 1, got %.4f", c.Retrieval.MaxEmotionBoost)
	}
	total := c.Importance.RecencyWeight + c.Importance.AccessRecencyWeight +
		c.Importance.IntrinsicWeight + c.Importance.ComplexityWeight +
		c.Importance.UniquenessWeight + c.Importance.CognitiveTagWeight +
		c.Importance.CrossRefWeight + c.Importance.EngagementWeight +
		c.Importance.CentralityWeight + c.Importance.PredictedWeight
	if math.Abs(total-1) > 0.01 {
		return fmt.Errorf("importance weights must sum to 1.0, got %.4f", total)
	}
	return nil
}
