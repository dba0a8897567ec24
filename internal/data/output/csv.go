package output

import (
	"encoding/csv"
	"io"
	"strconv"
)

var header = []string{"name", "line", "column", "file"}

type CSVWriter struct {
	w           *csv.Writer
	wroteHeader bool
	row         []string
}

func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(w), row: make([]string, 4)}
}

func (c *CSVWriter) Write(r Record) error {
	if !c.wroteHeader {
		if err := c.w.Write(header); err != nil {
			return err
		}
		c.wroteHeader = true
	}
	c.row[0] = r.Name
	c.row[1] = strconv.Itoa(r.Line)
	c.row[2] = strconv.Itoa(r.Column)
	c.row[3] = r.File
	return c.w.Write(c.row)
}

// Flush writes the header even when no records were written.
func (c *CSVWriter) Flush() error {
	if !c.wroteHeader {
		if err := c.w.Write(header); err != nil {
			return err
		}
		c.wroteHeader = true
	}
	c.w.Flush()
	return c.w.Error()
}
