// Package output serializes identifier occurrences as delimited rows.
package output

import (
	"fmt"
	"io"
	"strings"

	"pycount/internal/core/errors"
	"pycount/internal/engine/ident"
)

// Record is one occurrence tagged with the file it came from.
type Record struct {
	ident.Occurrence
	File string
}

// Writer receives records in emission order. Flush must be called once the
// last record is written.
type Writer interface {
	Write(Record) error
	Flush() error
}

// Formats lists the names accepted by New.
var Formats = []string{"csv", "tsv"}

// New returns the writer registered for format.
func New(format string, w io.Writer) (Writer, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "csv", "":
		return NewCSVWriter(w), nil
	case "tsv":
		return NewTSVWriter(w), nil
	default:
		return nil, errors.New(errors.CodeNotSupported, fmt.Sprintf("unsupported output format %q", format))
	}
}

// Discard accepts and drops every record.
var Discard Writer = discard{}

type discard struct{}

func (discard) Write(Record) error { return nil }
func (discard) Flush() error       { return nil }
