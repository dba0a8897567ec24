// Package app drives identifier extraction over a source tree: discovery,
// parallel per-file extraction, ordered output, optional persistence and
// watch mode.
package app

import (
	"runtime"

	"pycount/internal/core/config"
	"pycount/internal/core/ports"
	"pycount/internal/engine/parser"
	"pycount/internal/shared/util"
)

type App struct {
	Config *config.Config

	parser   ports.SourceParser
	scanner  *Scanner
	store    ports.OccurrenceStore
	cache    *ContentCache
	progress *util.Limiter
	runID    string
}

func New(cfg *config.Config) (*App, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	p, err := parser.NewParser()
	if err != nil {
		return nil, err
	}
	scanner, err := NewScanner(cfg)
	if err != nil {
		return nil, err
	}

	return &App{
		Config:   cfg,
		parser:   p,
		scanner:  scanner,
		cache:    NewContentCache(),
		progress: util.NewLimiter(cfg.Log.ProgressRate, 1),
	}, nil
}

// AttachStore makes every run persist occurrences to s. The caller keeps
// ownership and closes it.
func (a *App) AttachStore(s ports.OccurrenceStore) {
	a.store = s
}

func (a *App) workers() int {
	if a.Config.Workers > 0 {
		return a.Config.Workers
	}
	return runtime.NumCPU()
}
