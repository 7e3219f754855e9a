package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// configVersion is stamped into the header comment of a generated default
// config file so an old saved file can be told apart from the one the
// current binary would produce.
const configVersion = "1.0"

// Config holds everything a run needs. Flags override a config file, which
// overrides built-in defaults.
type Config struct {
	InputPath     string `yaml:"input"`
	Workers       int    `yaml:"workers"`
	MinChunkBytes int64  `yaml:"min_chunk_bytes"`
	MaxChunkBytes int64  `yaml:"max_chunk_bytes"`
	LogLevel      string `yaml:"log_level"`
	NoProgress    bool   `yaml:"no_progress"`
	JSON          bool   `yaml:"json"`
}

func defaultConfig() *Config {
	return &Config{
		InputPath:     "input.txt",
		Workers:       runtime.NumCPU(),
		MinChunkBytes: 1 << 20,
		MaxChunkBytes: 10 << 20,
		LogLevel:      "info",
	}
}

// loadConfig builds a Config from an optional YAML file (v) plus whatever
// flags the caller has already bound into v, following viper's own
// file-then-flag-override precedence.
func loadConfig(v *viper.Viper, configPath string, args []string) (*Config, error) {
	cfg := defaultConfig()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("primehunter: reading config %s: %w", configPath, err)
			}
			fmt.Printf("config file not found, writing defaults: %s\n", configPath)
			if err := saveDefaultConfig(configPath, cfg); err != nil {
				fmt.Printf("warning: could not save default config: %v\n", err)
			}
		}
	}

	// BindPFlag makes viper report these keys as always "set" (pflag has no
	// notion of an absent value), so 0 — the flags' documented "use the
	// default" sentinel — is what a truly-unset flag looks like here.
	if w := v.GetInt("workers"); w != 0 {
		cfg.Workers = w
	}
	if m := v.GetInt64("min_chunk_bytes"); m != 0 {
		cfg.MinChunkBytes = m
	}
	if m := v.GetInt64("max_chunk_bytes"); m != 0 {
		cfg.MaxChunkBytes = m
	}
	if v.IsSet("log_level") {
		cfg.LogLevel = v.GetString("log_level")
	}
	if v.IsSet("no_progress") {
		cfg.NoProgress = v.GetBool("no_progress")
	}
	if v.IsSet("json") {
		cfg.JSON = v.GetBool("json")
	}

	if len(args) > 0 {
		cfg.InputPath = args[0]
	} else if v.IsSet("input") {
		cfg.InputPath = v.GetString("input")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// saveDefaultConfig writes cfg to path as commented YAML, creating any
// missing parent directory first. Used the first time primehunter is pointed
// at a --config path that doesn't exist yet, so the generated file doubles
// as a documented starting point for hand-editing.
func saveDefaultConfig(path string, cfg *Config) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	header := "# primehunter configuration v" + configVersion + "\n" +
		"# generated automatically on " + time.Now().Format("2006-01-02 15:04:05") + "\n\n"

	return os.WriteFile(path, []byte(header+string(data)), 0o644)
}

func (c *Config) validate() error {
	if c.InputPath == "" {
		return errors.New("primehunter: input path cannot be empty")
	}
	if c.Workers < 1 {
		return errors.New("primehunter: workers must be at least 1")
	}
	if c.MinChunkBytes <= 0 {
		return errors.New("primehunter: min-chunk must be greater than 0")
	}
	if c.MaxChunkBytes < c.MinChunkBytes {
		return errors.New("primehunter: max-chunk must be >= min-chunk")
	}
	return nil
}
