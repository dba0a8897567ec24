// Package ports declares the interfaces the app layer depends on, so drivers
// and tests can swap implementations.
package ports

import (
	"context"

	"pycount/internal/engine/ident"
	"pycount/internal/engine/syntax"
)

// SourceParser turns one file's bytes into a syntax tree.
type SourceParser interface {
	Parse(path string, src []byte) (*syntax.Module, error)
}

// OccurrenceStore persists extracted occurrences per file.
type OccurrenceStore interface {
	BeginRun(ctx context.Context, root string) (string, error)
	ReplaceFile(ctx context.Context, runID, file string, hash uint64, occs []ident.Occurrence) error
	DeleteFile(ctx context.Context, file string) error
	FileHash(ctx context.Context, file string) (uint64, bool, error)
	Files(ctx context.Context) ([]string, error)
	Ping(ctx context.Context) error
}
