package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"pycount/internal/core/errors"
	"pycount/internal/data/output"
	"pycount/internal/engine/ident"
	"pycount/internal/shared/observability"
	"pycount/internal/shared/util"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Summary counts what a run did with each discovered file.
type Summary struct {
	Files     int
	Processed int
	// Skipped counts unread or oversized files and unreadable directories.
	Skipped      int
	SyntaxErrors int
	Occurrences  int
	Duration     time.Duration
}

func (s *Summary) add(o Summary) {
	s.Files += o.Files
	s.Processed += o.Processed
	s.Skipped += o.Skipped
	s.SyntaxErrors += o.SyntaxErrors
	s.Occurrences += o.Occurrences
}

// unitResult is the outcome of extracting one file.
type unitResult struct {
	path   string
	status string
	hash   uint64
	occs   []ident.Occurrence
	err    error
}

// Run extracts every file under root and writes the occurrences to w in
// discovery order. Files that fail to read or parse are logged and counted;
// only a write failure, a store failure or ctx cancellation aborts the run.
func (a *App) Run(ctx context.Context, root string, w output.Writer) (Summary, error) {
	start := time.Now()
	ctx, span := observability.Tracer.Start(ctx, "app.Run", trace.WithAttributes(attribute.String("root", root)))
	defer span.End()

	found, err := a.scanner.Scan(root)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Summary{}, errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "discover source files"), errors.CtxPath, root)
	}
	files := found.Files
	slog.Debug("discovered files", "root", root, "count", len(files), "unreadable_dirs", len(found.Unreadable))

	if err := a.beginRun(ctx, root); err != nil {
		return Summary{}, err
	}

	summary := Summary{Files: len(files), Skipped: len(found.Unreadable)}
	err = a.process(ctx, files, w, &summary)
	if err != nil {
		_ = w.Flush()
	} else if err = w.Flush(); err != nil {
		err = fmt.Errorf("flush output: %w", err)
	}
	if err == nil && a.store != nil {
		err = a.pruneStore(ctx, root, found)
	}

	summary.Duration = time.Since(start)
	span.SetAttributes(
		attribute.Int("files", summary.Files),
		attribute.Int("occurrences", summary.Occurrences),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return summary, err
	}

	slog.Debug("run complete",
		"files", summary.Files,
		"processed", summary.Processed,
		"duration", summary.Duration,
		"heap_mb", util.HeapAllocMB(),
	)
	return summary, nil
}

func (a *App) beginRun(ctx context.Context, root string) error {
	if a.store == nil {
		return nil
	}
	runID, err := a.store.BeginRun(ctx, root)
	if err != nil {
		return err
	}
	a.runID = runID
	return nil
}

// process fans files out to the worker pool and emits results strictly in
// the order of files. Each file has a one-slot channel so workers never
// block on a slow consumer, and at most 2*workers files are in flight
// between dispatch and emit.
func (a *App) process(ctx context.Context, files []string, w output.Writer, summary *Summary) error {
	if err := ctx.Err(); err != nil || len(files) == 0 {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	slots := make([]chan unitResult, len(files))
	for i := range slots {
		slots[i] = make(chan unitResult, 1)
	}
	jobs := make(chan int)
	workers := min(a.workers(), len(files))
	inflight := semaphore.NewWeighted(int64(2 * workers))

	g.Go(func() error {
		defer close(jobs)
		for i := range files {
			if err := inflight.Acquire(gctx, 1); err != nil {
				return err
			}
			select {
			case jobs <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	for n := 0; n < workers; n++ {
		g.Go(func() error {
			for i := range jobs {
				slots[i] <- a.extract(gctx, files[i])
			}
			return nil
		})
	}

	g.Go(func() error {
		for i := range files {
			if err := gctx.Err(); err != nil {
				return err
			}
			var res unitResult
			select {
			case res = <-slots[i]:
			case <-gctx.Done():
				return gctx.Err()
			}
			err := a.emit(gctx, res, w, summary)
			inflight.Release(1)
			if err != nil {
				return err
			}
		}
		return nil
	})

	return g.Wait()
}

// extract reads path, enforcing the size limit, and extracts it.
func (a *App) extract(ctx context.Context, path string) unitResult {
	if limit := a.Config.MaxFileSize; limit > 0 {
		if info, err := os.Stat(path); err == nil && info.Size() > limit {
			err := errors.New(errors.CodeTooLarge, fmt.Sprintf("file is %d bytes, limit is %d", info.Size(), limit))
			return unitResult{path: path, status: observability.StatusSkipped, err: errors.AddContext(err, errors.CtxPath, path)}
		}
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return unitResult{path: path, status: observability.StatusFailed, err: err}
	}
	return a.extractContent(ctx, path, content)
}

func (a *App) extractContent(ctx context.Context, path string, content []byte) unitResult {
	_, span := observability.Tracer.Start(ctx, "app.extract", trace.WithAttributes(attribute.String("path", path)))
	defer span.End()

	start := time.Now()
	defer func() { observability.ParseDuration.Observe(time.Since(start).Seconds()) }()

	res := unitResult{path: path, hash: HashContent(content)}

	mod, err := a.parser.Parse(path, content)
	if err != nil {
		res.err = err
		res.status = observability.StatusFailed
		if errors.IsCode(err, errors.CodeSyntaxError) {
			res.status = observability.StatusSyntaxError
		}
		span.SetStatus(codes.Error, err.Error())
		return res
	}

	err = ident.Walk(mod, func(o ident.Occurrence) error {
		res.occs = append(res.occs, o)
		return nil
	})
	if err != nil {
		res.err = err
		res.status = observability.StatusFailed
		span.RecordError(err)
		return res
	}

	res.status = observability.StatusProcessed
	span.SetAttributes(attribute.Int("occurrences", len(res.occs)))
	return res
}

// emit writes one result and updates counters. It runs on a single
// goroutine, so summary needs no locking.
func (a *App) emit(ctx context.Context, res unitResult, w output.Writer, summary *Summary) error {
	observability.FilesTotal.WithLabelValues(res.status).Inc()

	switch res.status {
	case observability.StatusSyntaxError:
		summary.SyntaxErrors++
		slog.Warn("syntax error, ignoring", "path", res.path, "error", res.err)
		return nil
	case observability.StatusSkipped, observability.StatusFailed:
		summary.Skipped++
		slog.Warn("skipping file", "path", res.path, "error", res.err)
		return nil
	}

	for _, o := range res.occs {
		if err := w.Write(output.Record{Occurrence: o, File: res.path}); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	}
	if err := a.persist(ctx, res); err != nil {
		return err
	}
	a.cache.Put(res.path, res.hash)

	summary.Processed++
	summary.Occurrences += len(res.occs)
	observability.OccurrencesTotal.Add(float64(len(res.occs)))

	if a.progress.Allow(1) {
		slog.Info("processed file", "path", res.path, "occurrences", len(res.occs))
	} else {
		slog.Debug("processed file", "path", res.path, "occurrences", len(res.occs))
	}
	return nil
}

// persist replaces res's rows in the store unless the stored content hash
// already matches.
func (a *App) persist(ctx context.Context, res unitResult) error {
	if a.store == nil {
		return nil
	}
	stored, ok, err := a.store.FileHash(ctx, res.path)
	if err != nil {
		return err
	}
	if ok && stored == res.hash {
		slog.Debug("stored rows up to date", "path", res.path)
		return nil
	}
	return a.store.ReplaceFile(ctx, a.runID, res.path, res.hash, res.occs)
}

// pruneStore deletes stored files under root that were not discovered.
// Files below an unreadable directory are kept.
func (a *App) pruneStore(ctx context.Context, root string, found Discovery) error {
	stored, err := a.store.Files(ctx)
	if err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(found.Files))
	for _, f := range found.Files {
		seen[f] = struct{}{}
	}
	for _, path := range stored {
		if _, ok := seen[path]; ok || !within(root, path) || withinAny(found.Unreadable, path) {
			continue
		}
		if err := a.store.DeleteFile(ctx, path); err != nil {
			return err
		}
		a.cache.Drop(path)
		slog.Debug("pruned stale file", "path", path)
	}
	return nil
}

func withinAny(dirs []string, path string) bool {
	for _, dir := range dirs {
		if within(dir, path) {
			return true
		}
	}
	return false
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !filepath.IsAbs(rel) && (len(rel) < 3 || rel[:3] != ".."+string(filepath.Separator))
}
