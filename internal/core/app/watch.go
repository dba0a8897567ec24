package app

import (
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"pycount/internal/core/watcher"
	"pycount/internal/data/output"
	"pycount/internal/shared/util"
)

// Watch runs a full extraction over root, then re-extracts changed files
// until ctx is cancelled. root must be a directory.
func (a *App) Watch(ctx context.Context, root string, w output.Writer) error {
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("watch root %q is not a directory", root)
	}

	summary, err := a.Run(ctx, root, w)
	if err != nil {
		return err
	}
	slog.Info("initial scan complete", "files", summary.Files, "occurrences", summary.Occurrences)

	changes := make(chan []string, 1)
	fw, err := watcher.NewWatcher(a.Config.Watch.Debounce, a.Config.Exclude.Dirs, a.Config.Exclude.Files, func(paths []string) {
		select {
		case changes <- paths:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := fw.Watch([]string{root}); err != nil {
		return err
	}
	slog.Info("watching for changes", "root", root)

	for {
		select {
		case <-ctx.Done():
			return nil
		case paths := <-changes:
			if _, err := a.HandleChanges(ctx, root, paths, w); err != nil {
				return err
			}
		}
	}
}

// HandleChanges re-extracts the given paths. Files whose content hash is
// unchanged are left alone; files that no longer exist have their rows
// removed from the store.
func (a *App) HandleChanges(ctx context.Context, root string, paths []string, w output.Writer) (Summary, error) {
	unique := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		unique[p] = struct{}{}
	}

	var summary Summary
	for _, path := range util.SortedStringKeys(unique) {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		content, err := os.ReadFile(path)
		if stderrors.Is(err, fs.ErrNotExist) {
			if err := a.forget(ctx, path); err != nil {
				return summary, err
			}
			continue
		}
		if err != nil {
			slog.Warn("skipping file", "path", path, "error", err)
			summary.Files++
			summary.Skipped++
			continue
		}
		if !a.scanner.Accept(root, path) {
			continue
		}

		summary.Files++
		if limit := a.Config.MaxFileSize; limit > 0 && int64(len(content)) > limit {
			slog.Warn("skipping file", "path", path, "size", len(content), "limit", limit)
			summary.Skipped++
			continue
		}
		if _, changed := a.cache.Changed(path, content); !changed {
			slog.Debug("content unchanged", "path", path)
			continue
		}

		var one Summary
		if err := a.emit(ctx, a.extractContent(ctx, path, content), w, &one); err != nil {
			return summary, err
		}
		summary.add(one)
	}

	if err := w.Flush(); err != nil {
		return summary, fmt.Errorf("flush output: %w", err)
	}
	return summary, nil
}

func (a *App) forget(ctx context.Context, path string) error {
	a.cache.Drop(path)
	if a.store == nil {
		return nil
	}
	if err := a.store.DeleteFile(ctx, path); err != nil {
		return err
	}
	slog.Info("removed file", "path", path)
	return nil
}
