package config

import (
	"time"
)

const DefaultPath = "./pycount.toml"

type Config struct {
	Version          int           `toml:"version" yaml:"version"`
	Include          []string      `toml:"include" yaml:"include"`
	RespectGitignore bool          `toml:"respect_gitignore" yaml:"respect_gitignore"`
	MaxFileSize      int64         `toml:"max_file_size" yaml:"max_file_size"`
	Workers          int           `toml:"workers" yaml:"workers"`
	Exclude          Exclude       `toml:"exclude" yaml:"exclude"`
	Output           Output        `toml:"output" yaml:"output"`
	Store            Store         `toml:"store" yaml:"store"`
	Watch            Watch         `toml:"watch" yaml:"watch"`
	Log              Log           `toml:"log" yaml:"log"`
	Observability    Observability `toml:"observability" yaml:"observability"`
}

type Exclude struct {
	Dirs  []string `toml:"dirs" yaml:"dirs"`
	Files []string `toml:"files" yaml:"files"`
}

type Output struct {
	Format string `toml:"format" yaml:"format"`
	Path   string `toml:"path" yaml:"path"`
}

type Store struct {
	Enabled bool   `toml:"enabled" yaml:"enabled"`
	Path    string `toml:"path" yaml:"path"`
}

type Watch struct {
	Debounce time.Duration `toml:"debounce" yaml:"debounce"`
}

type Log struct {
	Level        string  `toml:"level" yaml:"level"`
	ProgressRate float64 `toml:"progress_rate" yaml:"progress_rate"`
}

type Observability struct {
	MetricsAddr  string `toml:"metrics_addr" yaml:"metrics_addr"`
	OTLPEndpoint string `toml:"otlp_endpoint" yaml:"otlp_endpoint"`
	ServiceName  string `toml:"service_name" yaml:"service_name"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	cfg := &Config{RespectGitignore: true}
	applyDefaults(cfg, nil)
	return cfg
}
