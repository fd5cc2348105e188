package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Paintersrp/listingnotes/internal/constants"
)

type StoreConfig struct {
	DSN          string        `yaml:"dsn"           json:"dsn"           env:"DSN"`
	PollInterval time.Duration `yaml:"poll_interval" json:"poll_interval" env:"POLL_INTERVAL"`
	Region       string        `yaml:"region"        json:"region"        env:"REGION"`
	Endpoint     string        `yaml:"endpoint"      json:"endpoint"      env:"ENDPOINT"`
}

type EngineConfig struct {
	BaseOrigin       string        `yaml:"base_origin"       json:"base_origin"       env:"BASE_ORIGIN"`
	AnchorSelector   string        `yaml:"anchor_selector"   json:"anchor_selector"   env:"ANCHOR_SELECTOR"`
	FrameInterval    time.Duration `yaml:"frame_interval"    json:"frame_interval"    env:"FRAME_INTERVAL"`
	MinCardWidth     float64       `yaml:"min_card_width"    json:"min_card_width"    env:"MIN_CARD_WIDTH"`
	MinCardHeight    float64       `yaml:"min_card_height"   json:"min_card_height"   env:"MIN_CARD_HEIGHT"`
	ExcludedSurfaces []string      `yaml:"excluded_surfaces" json:"excluded_surfaces" env:"EXCLUDED_SURFACES" envSeparator:";"`
	ExtraRule        string        `yaml:"extra_rule"        json:"extra_rule"        env:"EXTRA_RULE"`
}

type LogConfig struct {
	Level  string `yaml:"level"  json:"level"  env:"LEVEL"`
	Format string `yaml:"format" json:"format" env:"FORMAT"`
}

type Config struct {
	Store  StoreConfig  `yaml:"store"  json:"store"  envPrefix:"STORE_"`
	Engine EngineConfig `yaml:"engine" json:"engine" envPrefix:"ENGINE_"`
	Log    LogConfig    `yaml:"log"    json:"log"    envPrefix:"LOG_"`

	homeDir string `yaml:"-"`
}

const (
	defaultOrigin         = "https://www.facebook.com"
	defaultAnchorSelector = `a[href*="/marketplace/item/"]`
	defaultPollInterval   = 500 * time.Millisecond
	defaultFrameInterval  = 16 * time.Millisecond
	defaultMinCard        = 140
	defaultLogLevel       = "info"
	defaultLogFormat      = "text"
)

var validLogLevels = []string{"debug", "info", "warn", "error"}

var ValidLogFormats = map[string]bool{
	"text": true,
	"json": true,
}

func ValidateLogLevel(level string) error {
	if slices.Contains(validLogLevels, strings.ToLower(level)) {
		return nil
	}

	return fmt.Errorf(
		"invalid log level: %q. Please choose from %s.",
		level,
		validLevelList(),
	)
}

func validLevelList() string {
	quoted := make([]string, len(validLogLevels))
	for i, name := range validLogLevels {
		quoted[i] = fmt.Sprintf("'%s'", name)
	}
	return strings.Join(quoted[:len(quoted)-1], ", ") + ", or " + quoted[len(quoted)-1]
}

// DefaultStoreDSN is the JSON file store kept next to the config file.
func DefaultStoreDSN(home string) string {
	return "file://" + filepath.ToSlash(filepath.Join(home, constants.ConfigDir, constants.StoreFile))
}

func (cfg *Config) ensureDefaults() {
	if cfg.Store.PollInterval <= 0 {
		cfg.Store.PollInterval = defaultPollInterval
	}
	cfg.Engine.BaseOrigin = strings.TrimRight(strings.TrimSpace(cfg.Engine.BaseOrigin), "/")
	if cfg.Engine.BaseOrigin == "" {
		cfg.Engine.BaseOrigin = defaultOrigin
	}
	if strings.TrimSpace(cfg.Engine.AnchorSelector) == "" {
		cfg.Engine.AnchorSelector = defaultAnchorSelector
	}
	if cfg.Engine.FrameInterval <= 0 {
		cfg.Engine.FrameInterval = defaultFrameInterval
	}
	if cfg.Engine.MinCardWidth <= 0 {
		cfg.Engine.MinCardWidth = defaultMinCard
	}
	if cfg.Engine.MinCardHeight <= 0 {
		cfg.Engine.MinCardHeight = defaultMinCard
	}
	if cfg.Engine.ExcludedSurfaces == nil {
		cfg.Engine.ExcludedSurfaces = []string{}
	}
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaultLogLevel
	}
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))
	if cfg.Log.Format == "" {
		cfg.Log.Format = defaultLogFormat
	}
}

func (cfg *Config) validate() error {
	if err := ValidateLogLevel(cfg.Log.Level); err != nil {
		return err
	}
	if !ValidLogFormats[cfg.Log.Format] {
		return fmt.Errorf("invalid log format: %q. Please choose from 'text' or 'json'.", cfg.Log.Format)
	}
	return nil
}

// Load reads the config file under home, applies defaults and environment
// overrides, and mirrors the result into viper.
func Load(home string) (*Config, error) {
	data, err := os.ReadFile(GetConfigPath(home))
	if err != nil {
		return nil, err
	}

	cfg := &Config{homeDir: home}
	if len(strings.TrimSpace(string(data))) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.ApplyEnv(nil); err != nil {
		return nil, err
	}
	cfg.ensureDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	cfg.syncViper()
	return cfg, nil
}

// ApplyEnv overrides fields from LISTINGNOTES_* variables. A nil environment
// reads the process environment.
func (cfg *Config) ApplyEnv(environment map[string]string) error {
	opts := env.Options{Prefix: constants.EnvPrefix, Environment: environment}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}
	return nil
}

func (cfg *Config) syncViper() {
	viper.Set("store.dsn", cfg.Store.DSN)
	viper.Set("store.poll_interval", cfg.Store.PollInterval)
	viper.Set("store.region", cfg.Store.Region)
	viper.Set("store.endpoint", cfg.Store.Endpoint)
	viper.Set("engine.base_origin", cfg.Engine.BaseOrigin)
	viper.Set("engine.anchor_selector", cfg.Engine.AnchorSelector)
	viper.Set("engine.frame_interval", cfg.Engine.FrameInterval)
	viper.Set("engine.min_card_width", cfg.Engine.MinCardWidth)
	viper.Set("engine.min_card_height", cfg.Engine.MinCardHeight)
	viper.Set("engine.excluded_surfaces", append([]string{}, cfg.Engine.ExcludedSurfaces...))
	viper.Set("engine.extra_rule", cfg.Engine.ExtraRule)
	viper.Set("log.level", cfg.Log.Level)
	viper.Set("log.format", cfg.Log.Format)
}

func (cfg *Config) Home() string {
	return cfg.homeDir
}

func (cfg *Config) GetConfigPath() string {
	return GetConfigPath(cfg.homeDir)
}

// ChangeStore points the config at dsn and saves it.
func (cfg *Config) ChangeStore(dsn string) error {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return fmt.Errorf("store dsn cannot be empty")
	}
	cfg.Store.DSN = dsn
	return cfg.Save()
}

func (cfg *Config) ChangeLogLevel(level string) error {
	if err := ValidateLogLevel(level); err != nil {
		return err
	}
	cfg.Log.Level = strings.ToLower(level)
	return cfg.Save()
}

func (cfg *Config) Save() error {
	cfg.ensureDefaults()
	if err := cfg.validate(); err != nil {
		return err
	}

	cfg.syncViper()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	configPath := cfg.GetConfigPath()
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0o644)
}
