package output

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

var tsvEscaper = strings.NewReplacer("\\", "\\\\", "\t", "\\t", "\n", "\\n", "\r", "\\r")

type TSVWriter struct {
	w           *bufio.Writer
	wroteHeader bool
}

func NewTSVWriter(w io.Writer) *TSVWriter {
	return &TSVWriter{w: bufio.NewWriter(w)}
}

func (t *TSVWriter) writeHeader() error {
	if t.wroteHeader {
		return nil
	}
	t.wroteHeader = true
	_, err := t.w.WriteString(strings.Join(header, "\t") + "\n")
	return err
}

func (t *TSVWriter) Write(r Record) error {
	if err := t.writeHeader(); err != nil {
		return err
	}
	var buf strings.Builder
	buf.WriteString(tsvEscaper.Replace(r.Name))
	buf.WriteByte('\t')
	buf.WriteString(strconv.Itoa(r.Line))
	buf.WriteByte('\t')
	buf.WriteString(strconv.Itoa(r.Column))
	buf.WriteByte('\t')
	buf.WriteString(tsvEscaper.Replace(r.File))
	buf.WriteByte('\n')
	_, err := t.w.WriteString(buf.String())
	return err
}

func (t *TSVWriter) Flush() error {
	if err := t.writeHeader(); err != nil {
		return err
	}
	return t.w.Flush()
}
