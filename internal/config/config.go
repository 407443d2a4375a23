// Package config handles configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/searchforge/rank_fusion/fuse"
	"github.com/searchforge/rank_fusion/policy"
)

// Config holds all service configuration.
type Config struct {
	Port int `envconfig:"FUSION_PORT" yaml:"port"`

	Log     LogConfig     `yaml:"log"`
	Fusion  FusionConfig  `yaml:"fusion"`
	Guard   GuardConfig   `yaml:"guard"`
	Tracing TracingConfig `yaml:"tracing"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `envconfig:"FUSION_LOG_LEVEL" yaml:"level"`
	Format string `envconfig:"FUSION_LOG_FORMAT" yaml:"format"`
}

// FusionConfig holds the default fusion options applied to every request.
type FusionConfig struct {
	Normalization string             `envconfig:"FUSION_NORMALIZATION" yaml:"normalization"`
	Conflation    string             `envconfig:"FUSION_CONFLATION" yaml:"conflation"`
	SourceWeights map[string]float64 `envconfig:"FUSION_SOURCE_WEIGHTS" yaml:"source_weights"`
	Degenerate    string             `envconfig:"FUSION_DEGENERATE_POLICY" yaml:"degenerate_policy"`
	TieBreak      string             `envconfig:"FUSION_TIE_BREAK" yaml:"tie_break"`
	Duplicates    string             `envconfig:"FUSION_DUPLICATES" yaml:"duplicates"`
	SkipEmpty     bool               `envconfig:"FUSION_SKIP_EMPTY" yaml:"skip_empty"`
	Limit         int                `envconfig:"FUSION_LIMIT" yaml:"limit"`
	Workers       int                `envconfig:"FUSION_WORKERS" yaml:"workers"`
	CanonicalKeys bool               `envconfig:"FUSION_CANONICAL_KEYS" yaml:"canonical_keys"`
	MetricSources []string           `envconfig:"FUSION_METRIC_SOURCES" yaml:"metric_sources"`
}

// GuardConfig holds request limits, rate limiting and budgets.
type GuardConfig struct {
	MaxLists        int           `envconfig:"FUSION_MAX_LISTS" yaml:"max_lists"`
	MaxItemsPerList int           `envconfig:"FUSION_MAX_ITEMS_PER_LIST" yaml:"max_items_per_list"`
	MaxTotalItems   int           `envconfig:"FUSION_MAX_TOTAL_ITEMS" yaml:"max_total_items"`
	MaxBodyBytes    int64         `envconfig:"FUSION_MAX_BODY_BYTES" yaml:"max_body_bytes"`
	RateCapacity    int           `envconfig:"FUSION_RATE_CAPACITY" yaml:"rate_capacity"`
	RateRefill      int           `envconfig:"FUSION_RATE_REFILL" yaml:"rate_refill"`
	RateInterval    time.Duration `envconfig:"FUSION_RATE_INTERVAL" yaml:"rate_interval"`
	DefaultBudgetMS int           `envconfig:"FUSION_BUDGET_MS" yaml:"budget_ms"`
	MaxBudgetMS     int           `envconfig:"FUSION_MAX_BUDGET_MS" yaml:"max_budget_ms"`
	// TrustClientID keys rate limiting on the X-Client-Id header instead of
	// the remote host. Enable only behind a proxy that sets the header.
	TrustClientID bool `envconfig:"FUSION_TRUST_CLIENT_ID" yaml:"trust_client_id"`
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	ServiceName string  `envconfig:"FUSION_SERVICE_NAME" yaml:"service_name"`
	SampleRatio float64 `envconfig:"FUSION_TRACE_SAMPLE_RATIO" yaml:"sample_ratio"`
}

// Load loads configuration from defaults, an optional YAML file and the
// environment, in increasing priority.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}
	setDefaults(cfg)

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("processing env config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func setDefaults(cfg *Config) {
	cfg.Port = 7070
	cfg.Log = LogConfig{Level: "info", Format: "json"}

	def := fuse.DefaultOptions()
	cfg.Fusion = FusionConfig{
		Normalization: string(def.Normalization),
		Conflation:    string(def.Conflation),
		Degenerate:    string(def.Degenerate),
		TieBreak:      string(def.TieBreak),
		Duplicates:    string(def.Duplicates),
		CanonicalKeys: true,
	}

	cfg.Guard = GuardConfig{
		MaxLists:        16,
		MaxItemsPerList: 1000,
		MaxTotalItems:   10000,
		MaxBodyBytes:    4 << 20,
		RateCapacity:    50,
		RateRefill:      10,
		RateInterval:    time.Second,
		DefaultBudgetMS: 200,
		MaxBudgetMS:     2000,
	}

	cfg.Tracing = TracingConfig{
		ServiceName: "rank-fusion",
		SampleRatio: 0.3,
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.Guard.MaxBodyBytes <= 0 {
		return fmt.Errorf("max_body_bytes must be positive")
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("sample_ratio must be within [0, 1]")
	}
	if _, err := fuse.New(c.FuseOptions()); err != nil {
		return err
	}
	if _, err := policy.NewGuard(c.GuardPolicy(), nil); err != nil {
		return fmt.Errorf("guard: %w", err)
	}
	return nil
}

// FuseOptions converts the fusion section into pipeline options.
func (c *Config) FuseOptions() fuse.Options {
	f := c.Fusion
	return fuse.Options{
		Normalization: fuse.NormalizationKind(f.Normalization),
		Conflation:    fuse.ConflationKind(f.Conflation),
		SourceWeights: f.SourceWeights,
		Degenerate:    fuse.DegeneratePolicy(f.Degenerate),
		TieBreak:      fuse.TieBreak(f.TieBreak),
		Duplicates:    fuse.DuplicatePolicy(f.Duplicates),
		SkipEmpty:     f.SkipEmpty,
		Limit:         f.Limit,
		Workers:       f.Workers,
	}
}

// GuardPolicy converts the guard section into policy configuration.
func (c *Config) GuardPolicy() policy.GuardConfig {
	g := c.Guard
	return policy.GuardConfig{
		Limits: policy.Limits{
			MaxLists:        g.MaxLists,
			MaxItemsPerList: g.MaxItemsPerList,
			MaxTotalItems:   g.MaxTotalItems,
		},
		Rate: policy.RateLimitConfig{
			Capacity:     g.RateCapacity,
			RefillTokens: g.RateRefill,
			RefillEvery:  g.RateInterval,
		},
		DefaultBudgetMS: g.DefaultBudgetMS,
		MaxBudgetMS:     g.MaxBudgetMS,
	}
}
