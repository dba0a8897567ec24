package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"pycount/internal/core/app"
	"pycount/internal/core/config"
	"pycount/internal/data/output"
	"pycount/internal/data/store"
	"pycount/internal/shared/observability"
	"pycount/internal/shared/util"

	"github.com/spf13/cobra"
)

var (
	configPath  string
	verbose     bool
	quiet       bool
	format      string
	workers     int
	dbPath      string
	metricsAddr string
)

var rootCmd = &cobra.Command{
	Use:   "pycount <path> [out.csv]",
	Short: "List every identifier occurrence in Python source",
	Long: `pycount walks a Python file or directory tree and writes one row per
identifier occurrence (name, line, column, file) as CSV or TSV.

Files that fail to parse are reported and skipped.`,
	Args:          cobra.RangeArgs(1, 2),
	SilenceUsage:  true,
	SilenceErrors: false,
	RunE:          runExtract,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Path to config file (TOML or YAML)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Quiet mode (errors only)")
	rootCmd.PersistentFlags().StringVar(&format, "format", "", "Output format: csv, tsv")
	rootCmd.PersistentFlags().IntVar(&workers, "workers", 0, "Number of parallel workers (0 = number of CPUs)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Also persist occurrences to this SQLite database")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "Serve /metrics and /health on this address")

	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(topCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// loadConfig reads the config file and applies command-line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, err
	}

	if format != "" {
		cfg.Output.Format = strings.ToLower(format)
	}
	if workers > 0 {
		cfg.Workers = workers
	}
	if dbPath != "" {
		cfg.Store.Enabled = true
		cfg.Store.Path = dbPath
	}
	if metricsAddr != "" {
		cfg.Observability.MetricsAddr = metricsAddr
	}
	if errs := config.Validate(cfg); len(errs) > 0 {
		return nil, errs[0]
	}
	return cfg, nil
}

func setupLogging(w io.Writer, cfg *config.Config) {
	level := slog.LevelInfo
	switch cfg.Log.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}
	if quiet {
		level = slog.LevelError
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// session bundles what every extracting command sets up and tears down.
type session struct {
	cfg      *config.Config
	app      *app.App
	store    *store.Store
	server   *observability.Server
	shutdown func(context.Context) error
}

func openSession(cmd *cobra.Command) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	setupLogging(cmd.ErrOrStderr(), cfg)

	a, err := app.New(cfg)
	if err != nil {
		return nil, err
	}
	s := &session{cfg: cfg, app: a}

	if cfg.Store.Enabled {
		st, err := store.Open(cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		s.store = st
		a.AttachStore(st)
	}

	ctx := commandContext(cmd)
	s.shutdown, err = observability.InitTracing(ctx, cfg.Observability.OTLPEndpoint, cfg.Observability.ServiceName)
	if err != nil {
		_ = s.close()
		return nil, err
	}

	if cfg.Observability.MetricsAddr != "" {
		s.server = observability.NewServer(cfg.Observability.MetricsAddr, a.Health)
		if err := s.server.Start(ctx); err != nil {
			_ = s.close()
			return nil, fmt.Errorf("start observability server: %w", err)
		}
	}
	return s, nil
}

func (s *session) close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var firstErr error
	if s.server != nil {
		if err := s.server.Stop(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.shutdown != nil {
		if err := s.shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// openOutput returns the writer for path, or stdout when path is empty.
func openOutput(cmd *cobra.Command, cfg *config.Config, path string) (output.Writer, func() error, error) {
	var dst io.Writer = cmd.OutOrStdout()
	closeFn := func() error { return nil }
	if path != "" {
		f, err := util.CreateFileWithDirs(path)
		if err != nil {
			return nil, nil, fmt.Errorf("create output %q: %w", path, err)
		}
		dst = f
		closeFn = f.Close
	}

	w, err := output.New(cfg.Output.Format, dst)
	if err != nil {
		_ = closeFn()
		return nil, nil, err
	}
	return w, closeFn, nil
}

func runExtract(cmd *cobra.Command, args []string) (err error) {
	root := args[0]
	if _, err := os.Stat(root); err != nil {
		return fmt.Errorf("target %q: %w", root, err)
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	outPath := s.cfg.Output.Path
	if len(args) == 2 {
		outPath = args[1]
	}
	w, closeOut, err := openOutput(cmd, s.cfg, outPath)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeOut(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	summary, err := s.app.Run(commandContext(cmd), root, w)
	if err != nil {
		return err
	}
	if !quiet {
		fmt.Fprintln(cmd.ErrOrStderr(), renderSummary(summary, s.cfg.Store.Enabled, s.cfg.Store.Path))
	}
	return nil
}
