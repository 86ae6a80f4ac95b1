// Package config provides configuration management for the structure engine.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/plife507/TRADE-sub002/internal/models"
	"github.com/plife507/TRADE-sub002/internal/state"
	"github.com/plife507/TRADE-sub002/internal/structure"
)

// Config holds all application configuration.
type Config struct {
	Engine    EngineConfig     `mapstructure:"engine"`
	Store     StoreConfig      `mapstructure:"store"`
	Replay    ReplayConfig     `mapstructure:"replay"`
	UI        UIConfig         `mapstructure:"ui"`
	Detectors []DetectorConfig `mapstructure:"detectors"`
	HighTFs   []HighTFSection  `mapstructure:"high_tfs"`
}

// EngineConfig holds execution-timeframe settings.
type EngineConfig struct {
	ExecTimeframe string `mapstructure:"exec_timeframe"`
	ATRPeriod     int    `mapstructure:"atr_period"`
	EMAPeriod     int    `mapstructure:"ema_period"`
}

// StoreConfig holds bar-store settings.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// ReplayConfig holds replay defaults.
type ReplayConfig struct {
	Symbol  string `mapstructure:"symbol"`
	CSVPath string `mapstructure:"csv_path"`
}

// UIConfig holds output settings.
type UIConfig struct {
	ColorEnabled bool `mapstructure:"color_enabled"`
}

// DetectorConfig is one detector spec as written in the profile.
type DetectorConfig struct {
	Type      string                 `mapstructure:"type"`
	Key       string                 `mapstructure:"key"`
	Params    map[string]interface{} `mapstructure:"params"`
	DependsOn map[string]string      `mapstructure:"depends_on"`
}

// HighTFSection configures one higher timeframe and its detectors.
type HighTFSection struct {
	Name      string           `mapstructure:"name"`
	Timeframe string           `mapstructure:"timeframe"`
	Detectors []DetectorConfig `mapstructure:"detectors"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/structure"
	}
	return filepath.Join(home, ".config", "structure")
}

// Load loads the profile from the specified directory. If configDir is
// empty, uses the default config directory. A missing profile writes the
// template and loads it.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	v := viper.New()
	v.SetConfigName("structure")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			if err := writeTemplate(configDir); err != nil {
				return nil, fmt.Errorf("writing template profile: %w", err)
			}
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("loading structure.toml: %w", err)
			}
		} else {
			return nil, fmt.Errorf("loading structure.toml: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding structure.toml: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("engine.exec_timeframe", string(models.Timeframe5Min))
	v.SetDefault("engine.atr_period", 14)
	v.SetDefault("engine.ema_period", 20)
	v.SetDefault("store.path", filepath.Join(DefaultConfigDir(), "structure.db"))
	v.SetDefault("ui.color_enabled", true)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("STRUCTURE_DB_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("STRUCTURE_EXEC_TF"); v != "" {
		cfg.Engine.ExecTimeframe = v
	}
	if v := os.Getenv("STRUCTURE_SYMBOL"); v != "" {
		cfg.Replay.Symbol = v
	}
}

// validTimeframes are the intervals the engine accepts in profiles.
var validTimeframes = []models.Timeframe{
	models.Timeframe1Min, models.Timeframe5Min, models.Timeframe15Min,
	models.Timeframe1Hour, models.Timeframe1Day,
}

func timeframeValid(tf string) bool {
	for _, v := range validTimeframes {
		if tf == string(v) {
			return true
		}
	}
	return false
}

// Validate checks the profile for mistakes a detector build would report
// too late or too opaquely.
func (c *Config) Validate() error {
	if !timeframeValid(c.Engine.ExecTimeframe) {
		return fmt.Errorf("invalid exec_timeframe %q (valid: %v)", c.Engine.ExecTimeframe, validTimeframes)
	}
	if c.Engine.ATRPeriod < 1 {
		return fmt.Errorf("atr_period must be at least 1")
	}
	if c.Engine.EMAPeriod < 1 {
		return fmt.Errorf("ema_period must be at least 1")
	}
	if len(c.Detectors) == 0 {
		return fmt.Errorf("no detectors configured: add at least one [[detectors]] block")
	}
	for i, d := range c.Detectors {
		if d.Type == "" || d.Key == "" {
			return fmt.Errorf("detectors[%d]: type and key are required", i)
		}
	}
	for _, h := range c.HighTFs {
		if h.Name == "" {
			return fmt.Errorf("every [[high_tfs]] block needs a name")
		}
		if !timeframeValid(h.Timeframe) {
			return fmt.Errorf("high timeframe %q: invalid timeframe %q", h.Name, h.Timeframe)
		}
		for i, d := range h.Detectors {
			if d.Type == "" || d.Key == "" {
				return fmt.Errorf("high timeframe %q: detectors[%d]: type and key are required", h.Name, i)
			}
		}
	}
	return nil
}

// ExecSpecs converts the execution-timeframe detector blocks into build
// specs, preserving profile order.
func (c *Config) ExecSpecs() []structure.Spec {
	return toSpecs(c.Detectors)
}

// HighTFConfigs converts the higher-timeframe sections into state configs.
func (c *Config) HighTFConfigs() []state.HighTFConfig {
	out := make([]state.HighTFConfig, 0, len(c.HighTFs))
	for _, h := range c.HighTFs {
		out = append(out, state.HighTFConfig{
			Name:      h.Name,
			Timeframe: models.Timeframe(h.Timeframe),
			Specs:     toSpecs(h.Detectors),
		})
	}
	return out
}

func toSpecs(detectors []DetectorConfig) []structure.Spec {
	specs := make([]structure.Spec, 0, len(detectors))
	for _, d := range detectors {
		params := structure.Params{}
		for k, v := range d.Params {
			params[k] = v
		}
		specs = append(specs, structure.Spec{
			Type:      d.Type,
			Key:       d.Key,
			Params:    params,
			DependsOn: d.DependsOn,
		})
	}
	return specs
}

// ExecTimeframe returns the execution timeframe as a typed value.
func (c *Config) ExecTimeframe() models.Timeframe {
	return models.Timeframe(c.Engine.ExecTimeframe)
}
