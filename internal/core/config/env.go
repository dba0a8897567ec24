package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: PYCOUNT_[SECTION]_[KEY] (e.g., PYCOUNT_STORE_PATH).
func ApplyEnvOverrides(cfg *Config) {
	setEnvBool(&cfg.RespectGitignore, "PYCOUNT_RESPECT_GITIGNORE")
	setEnvInt64(&cfg.MaxFileSize, "PYCOUNT_MAX_FILE_SIZE")
	setEnvInt(&cfg.Workers, "PYCOUNT_WORKERS")

	// Output
	setEnvString(&cfg.Output.Format, "PYCOUNT_OUTPUT_FORMAT")
	setEnvString(&cfg.Output.Path, "PYCOUNT_OUTPUT_PATH")

	// Store
	setEnvBool(&cfg.Store.Enabled, "PYCOUNT_STORE_ENABLED")
	setEnvString(&cfg.Store.Path, "PYCOUNT_STORE_PATH")

	setEnvDuration(&cfg.Watch.Debounce, "PYCOUNT_WATCH_DEBOUNCE")

	// Log
	setEnvString(&cfg.Log.Level, "PYCOUNT_LOG_LEVEL")
	setEnvFloat64(&cfg.Log.ProgressRate, "PYCOUNT_LOG_PROGRESS_RATE")

	// Observability
	setEnvString(&cfg.Observability.MetricsAddr, "PYCOUNT_OBSERVABILITY_METRICS_ADDR")
	setEnvString(&cfg.Observability.OTLPEndpoint, "PYCOUNT_OBSERVABILITY_OTLP_ENDPOINT")
	setEnvString(&cfg.Observability.ServiceName, "PYCOUNT_OBSERVABILITY_SERVICE_NAME")

	cfg.Output.Format = strings.ToLower(strings.TrimSpace(cfg.Output.Format))
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
}

func logOverride(key, val string) {
	slog.Debug("applying env override", "key", key, "value", val)
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		logOverride(key, val)
		*target = val
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			logOverride(key, val)
			*target = i
		}
	}
}

func setEnvInt64(target *int64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			logOverride(key, val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			logOverride(key, val)
			*target = b
		}
	}
}

func setEnvFloat64(target *float64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			logOverride(key, val)
			*target = f
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			logOverride(key, val)
			*target = d
		}
	}
}
