package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-config/cfgx"
	opts "github.com/goliatone/go-options"
)

const (
	DefaultMaxRetries        = 5
	DefaultBaseDelayMs       = 1000
	DefaultMaxDelayMs        = 16000
	DefaultBackoffMultiplier = 2.0
	DefaultRetentionDays     = 180
	DefaultListLimit         = 50
)

type RetryConfig struct {
	MaxRetries        int     `koanf:"max_retries" mapstructure:"max_retries"`
	BaseDelayMs       int     `koanf:"base_delay_ms" mapstructure:"base_delay_ms"`
	MaxDelayMs        int     `koanf:"max_delay_ms" mapstructure:"max_delay_ms"`
	BackoffMultiplier float64 `koanf:"backoff_multiplier" mapstructure:"backoff_multiplier"`
}

func (c RetryConfig) BaseDelay() time.Duration {
	return time.Duration(c.BaseDelayMs) * time.Millisecond
}

func (c RetryConfig) MaxDelay() time.Duration {
	return time.Duration(c.MaxDelayMs) * time.Millisecond
}

type DLQConfig struct {
	RetentionDays int `koanf:"retention_days" mapstructure:"retention_days"`
	ListLimit     int `koanf:"list_limit" mapstructure:"list_limit"`
}

func (c DLQConfig) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

type Config struct {
	ServiceName string      `koanf:"service_name" mapstructure:"service_name"`
	Retry       RetryConfig `koanf:"retry" mapstructure:"retry"`
	DLQ         DLQConfig   `koanf:"dlq" mapstructure:"dlq"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "webhooks",
		Retry: RetryConfig{
			MaxRetries:        DefaultMaxRetries,
			BaseDelayMs:       DefaultBaseDelayMs,
			MaxDelayMs:        DefaultMaxDelayMs,
			BackoffMultiplier: DefaultBackoffMultiplier,
		},
		DLQ: DLQConfig{
			RetentionDays: DefaultRetentionDays,
			ListLimit:     DefaultListLimit,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("core: retry.max_retries must not be negative")
	}
	if c.Retry.BaseDelayMs <= 0 {
		return fmt.Errorf("core: retry.base_delay_ms must be positive")
	}
	if c.Retry.MaxDelayMs < c.Retry.BaseDelayMs {
		return fmt.Errorf("core: retry.max_delay_ms must not be below retry.base_delay_ms")
	}
	if c.Retry.BackoffMultiplier < 1 {
		return fmt.Errorf("core: retry.backoff_multiplier must be at least 1")
	}
	if c.DLQ.RetentionDays <= 0 {
		return fmt.Errorf("core: dlq.retention_days must be positive")
	}
	if c.DLQ.ListLimit <= 0 {
		return fmt.Errorf("core: dlq.list_limit must be positive")
	}
	return nil
}

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type staticRawConfigLoader struct {
	Values map[string]any
}

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = staticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// GoOptionsResolver merges defaults, loaded config, and runtime overrides as
// layered scopes: runtime beats config beats defaults.
type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	defaultLayer := configToLayerMap(defaults, true)
	loadedLayer := configToLayerMap(loaded, false)
	runtimeLayer := configToLayerMap(runtime, false)

	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			defaultLayer,
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			loadedLayer,
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			runtimeLayer,
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.ServiceName) != "" {
		layer["service_name"] = cfg.ServiceName
	}

	retry := map[string]any{}
	if includeZero || cfg.Retry.MaxRetries > 0 {
		retry["max_retries"] = cfg.Retry.MaxRetries
	}
	if includeZero || cfg.Retry.BaseDelayMs > 0 {
		retry["base_delay_ms"] = cfg.Retry.BaseDelayMs
	}
	if includeZero || cfg.Retry.MaxDelayMs > 0 {
		retry["max_delay_ms"] = cfg.Retry.MaxDelayMs
	}
	if includeZero || cfg.Retry.BackoffMultiplier > 0 {
		retry["backoff_multiplier"] = cfg.Retry.BackoffMultiplier
	}
	if len(retry) > 0 {
		layer["retry"] = retry
	}

	dlq := map[string]any{}
	if includeZero || cfg.DLQ.RetentionDays > 0 {
		dlq["retention_days"] = cfg.DLQ.RetentionDays
	}
	if includeZero || cfg.DLQ.ListLimit > 0 {
		dlq["list_limit"] = cfg.DLQ.ListLimit
	}
	if len(dlq) > 0 {
		layer["dlq"] = dlq
	}

	return layer
}
