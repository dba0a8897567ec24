package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gobwas/glob"
)

var (
	supportedFormats = map[string]bool{"csv": true, "tsv": true}
	supportedLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
)

func validateVersion(cfg *Config) error {
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validatePatterns(cfg *Config) []error {
	var errs []error
	for i, pattern := range cfg.Include {
		if strings.TrimSpace(pattern) == "" {
			errs = append(errs, fmt.Errorf("include[%d] must not be empty", i))
			continue
		}
		if !doublestar.ValidatePattern(pattern) {
			errs = append(errs, fmt.Errorf("include[%d] %q is not a valid pattern", i, pattern))
		}
	}
	for i, pattern := range cfg.Exclude.Dirs {
		if _, err := glob.Compile(pattern); err != nil {
			errs = append(errs, fmt.Errorf("exclude.dirs[%d] %q: %w", i, pattern, err))
		}
	}
	for i, pattern := range cfg.Exclude.Files {
		if _, err := glob.Compile(pattern); err != nil {
			errs = append(errs, fmt.Errorf("exclude.files[%d] %q: %w", i, pattern, err))
		}
	}
	return errs
}

func validateLimits(cfg *Config) error {
	if cfg.MaxFileSize < 0 {
		return fmt.Errorf("max_file_size must be >= 0, got %d", cfg.MaxFileSize)
	}
	if cfg.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", cfg.Workers)
	}
	return nil
}

func validateOutput(cfg *Config) error {
	if !supportedFormats[cfg.Output.Format] {
		return fmt.Errorf("output.format must be one of: csv, tsv; got %q", cfg.Output.Format)
	}
	return nil
}

func validateStore(cfg *Config) error {
	if cfg.Store.Enabled && strings.TrimSpace(cfg.Store.Path) == "" {
		return fmt.Errorf("store.path must not be empty when store.enabled is true")
	}
	return nil
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must be >= 0, got %s", cfg.Watch.Debounce)
	}
	return nil
}

func validateLog(cfg *Config) error {
	if !supportedLevels[cfg.Log.Level] {
		return fmt.Errorf("log.level must be one of: debug, info, warn, error; got %q", cfg.Log.Level)
	}
	if cfg.Log.ProgressRate < 0 {
		return fmt.Errorf("log.progress_rate must be >= 0, got %v", cfg.Log.ProgressRate)
	}
	return nil
}

func validateObservability(cfg *Config) error {
	if addr := strings.TrimSpace(cfg.Observability.MetricsAddr); addr != "" {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			return fmt.Errorf("observability.metrics_addr %q: %w", addr, err)
		}
	}
	return nil
}

// Validate reports every problem found in cfg.
func Validate(cfg *Config) []error {
	var errs []error

	if err := validateVersion(cfg); err != nil {
		errs = append(errs, err)
	}
	errs = append(errs, validatePatterns(cfg)...)
	if err := validateLimits(cfg); err != nil {
		errs = append(errs, err)
	}
	if err := validateOutput(cfg); err != nil {
		errs = append(errs, err)
	}
	if err := validateStore(cfg); err != nil {
		errs = append(errs, err)
	}
	if err := validateWatch(cfg); err != nil {
		errs = append(errs, err)
	}
	if err := validateLog(cfg); err != nil {
		errs = append(errs, err)
	}
	if err := validateObservability(cfg); err != nil {
		errs = append(errs, err)
	}

	return errs
}
