package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	defaultMaxFileSize = 10 * 1024 * 1024
	defaultDebounce    = 500 * time.Millisecond
	defaultStorePath   = "pycount.db"
)

var defaultExcludeDirs = []string{".git", "__pycache__", ".venv", "venv", ".tox", "node_modules"}

// Load reads a TOML or YAML config file (chosen by extension), applies
// defaults and environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Config{RespectGitignore: true}
	var set map[string]bool
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode yaml config %q: %w", path, err)
		}
	default:
		meta, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return nil, fmt.Errorf("decode toml config %q: %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("unknown config key %q in %s", undecoded[0].String(), path)
		}
		set = make(map[string]bool)
		for _, key := range meta.Keys() {
			set[key.String()] = true
		}
	}

	applyDefaults(&cfg, set)
	ApplyEnvOverrides(&cfg)

	if errs := Validate(&cfg); len(errs) > 0 {
		return nil, fmt.Errorf("invalid config %s: %w", path, errors.Join(errs...))
	}
	return &cfg, nil
}

// LoadOrDefault loads path, falling back to DefaultConfig when path is the
// default location and does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}
	if path == DefaultPath && errors.Is(err, fs.ErrNotExist) {
		cfg = DefaultConfig()
		ApplyEnvOverrides(cfg)
		if errs := Validate(cfg); len(errs) > 0 {
			return nil, errors.Join(errs...)
		}
		return cfg, nil
	}
	return nil, err
}

// applyDefaults fills zero values. set lists keys present in the source
// file when the decoder can report them, so explicit empty lists survive.
func applyDefaults(cfg *Config, set map[string]bool) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}
	if len(cfg.Include) == 0 && !set["include"] {
		cfg.Include = []string{"**/*.py"}
	}
	if cfg.MaxFileSize == 0 {
		cfg.MaxFileSize = defaultMaxFileSize
	}
	if cfg.Exclude.Dirs == nil && !set["exclude.dirs"] {
		cfg.Exclude.Dirs = append([]string(nil), defaultExcludeDirs...)
	}
	if strings.TrimSpace(cfg.Output.Format) == "" {
		cfg.Output.Format = "csv"
	}
	cfg.Output.Format = strings.ToLower(strings.TrimSpace(cfg.Output.Format))
	if strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = defaultStorePath
	}
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = defaultDebounce
	}
	if strings.TrimSpace(cfg.Log.Level) == "" {
		cfg.Log.Level = "info"
	}
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	if strings.TrimSpace(cfg.Observability.ServiceName) == "" {
		cfg.Observability.ServiceName = "pycount"
	}
}
