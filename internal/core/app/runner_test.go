package app

import (
	"bytes"
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"pycount/internal/core/config"
	"pycount/internal/data/output"
	"pycount/internal/data/store"
	"pycount/internal/engine/ident"
	"pycount/internal/engine/syntax"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func newTestApp(t *testing.T, mutate func(*config.Config)) *App {
	t.Helper()
	cfg := config.DefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	a, err := New(cfg)
	require.NoError(t, err)
	return a
}

func csvLines(buf *bytes.Buffer) []string {
	return strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
}

func TestRun_WritesOccurrencesInDiscoveryOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"b.py":     "def f(x, y=1):\n    return obj.attr\n",
		"a.py":     "import os\n",
		"pkg/c.py": "print(z)\n",
	})

	a := newTestApp(t, func(c *config.Config) { c.Workers = 4 })
	var buf bytes.Buffer
	summary, err := a.Run(context.Background(), root, output.NewCSVWriter(&buf))
	require.NoError(t, err)

	pa := filepath.Join(root, "a.py")
	pb := filepath.Join(root, "b.py")
	pc := filepath.Join(root, "pkg", "c.py")
	assert.Equal(t, []string{
		"name,line,column,file",
		"os,1,1," + pa,
		"f,1,1," + pb,
		"x,1,7," + pb,
		"y,1,10," + pb,
		"obj,2,12," + pb,
		"attr,2,12," + pb,
		"print,1,1," + pc,
		"z,1,7," + pc,
	}, csvLines(&buf))

	assert.Equal(t, 3, summary.Files)
	assert.Equal(t, 3, summary.Processed)
	assert.Equal(t, 8, summary.Occurrences)
	assert.Zero(t, summary.SyntaxErrors)
}

func TestRun_DeterministicAcrossWorkerCounts(t *testing.T) {
	root := t.TempDir()
	files := map[string]string{}
	for _, name := range []string{"m1", "m2", "m3", "m4", "m5", "m6", "m7", "m8"} {
		files[name+".py"] = "import json\ndef " + name + "(a, *b, **c):\n    return json.dumps(a)\n"
	}
	writeTree(t, root, files)

	var outputs []string
	for _, workers := range []int{1, 3, 8} {
		a := newTestApp(t, func(c *config.Config) { c.Workers = workers })
		var buf bytes.Buffer
		_, err := a.Run(context.Background(), root, output.NewCSVWriter(&buf))
		require.NoError(t, err)
		outputs = append(outputs, buf.String())
	}
	assert.Equal(t, outputs[0], outputs[1])
	assert.Equal(t, outputs[0], outputs[2])
}

func TestRun_SyntaxErrorIsIsolated(t *testing.T) {
	defer goleak.VerifyNone(t)

	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"bad.py":  "def broken(:\n    pass\n",
		"good.py": "value = 1\n",
	})

	a := newTestApp(t, nil)
	var buf bytes.Buffer
	summary, err := a.Run(context.Background(), root, output.NewCSVWriter(&buf))
	require.NoError(t, err)

	assert.Equal(t, []string{"name,line,column,file", "value,1,1," + filepath.Join(root, "good.py")}, csvLines(&buf))
	assert.Equal(t, 1, summary.SyntaxErrors)
	assert.Equal(t, 1, summary.Processed)
}

func TestRun_SkipsOversizedFiles(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"big.py":   strings.Repeat("x = 1\n", 100),
		"small.py": "y\n",
	})

	a := newTestApp(t, func(c *config.Config) { c.MaxFileSize = 64 })
	var buf bytes.Buffer
	summary, err := a.Run(context.Background(), root, output.NewTSVWriter(&buf))
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, []string{"name\tline\tcolumn\tfile", "y\t1\t1\t" + filepath.Join(root, "small.py")}, csvLines(&buf))
}

func TestRun_EmptyTreeWritesHeader(t *testing.T) {
	a := newTestApp(t, nil)
	var buf bytes.Buffer
	summary, err := a.Run(context.Background(), t.TempDir(), output.NewCSVWriter(&buf))
	require.NoError(t, err)
	assert.Zero(t, summary.Files)
	assert.Equal(t, "name,line,column,file\n", buf.String())
}

type failingWriter struct{ after int }

var errWrite = stderrors.New("disk full")

func (f *failingWriter) Write(output.Record) error {
	if f.after == 0 {
		return errWrite
	}
	f.after--
	return nil
}

func (f *failingWriter) Flush() error { return nil }

func TestRun_WriteErrorStopsRun(t *testing.T) {
	defer goleak.VerifyNone(t)

	root := t.TempDir()
	files := map[string]string{}
	for i := 0; i < 20; i++ {
		files[filepath.Join("pkg", string(rune('a'+i))+".py")] = "a = b\n"
	}
	writeTree(t, root, files)

	a := newTestApp(t, func(c *config.Config) { c.Workers = 2 })
	_, err := a.Run(context.Background(), root, &failingWriter{after: 3})
	require.Error(t, err)
	assert.ErrorIs(t, err, errWrite)
}

func TestRun_CancelledContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.py": "a\n", "b.py": "b\n"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := newTestApp(t, nil)
	_, err := a.Run(ctx, root, output.Discard)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_PersistsToStore(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.py": "self.x = self.y\n",
		"b.py": "x = 1\n",
	})

	s, err := store.Open(filepath.Join(t.TempDir(), "pycount.db"))
	require.NoError(t, err)
	defer s.Close()

	a := newTestApp(t, nil)
	a.AttachStore(s)

	_, err = a.Run(context.Background(), root, output.Discard)
	require.NoError(t, err)

	counts, err := s.CountByName(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, []store.NameCount{{Name: "self", Count: 2}, {Name: "x", Count: 2}}, counts)

	require.NoError(t, os.Remove(filepath.Join(root, "b.py")))
	_, err = a.Run(context.Background(), root, output.Discard)
	require.NoError(t, err)

	files, err := s.Files(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "a.py")}, files)

	health := a.Health(context.Background())
	assert.Equal(t, "ok", health["store"])
	assert.Equal(t, "ok", health["parser"])
}

type brokenStore struct{ files []string }

func (b *brokenStore) BeginRun(context.Context, string) (string, error) { return "run-1", nil }
func (b *brokenStore) ReplaceFile(_ context.Context, _ string, file string, _ uint64, _ []ident.Occurrence) error {
	b.files = append(b.files, file)
	return stderrors.New("database is read-only")
}
func (b *brokenStore) DeleteFile(context.Context, string) error { return nil }
func (b *brokenStore) FileHash(context.Context, string) (uint64, bool, error) {
	return 0, false, nil
}
func (b *brokenStore) Files(context.Context) ([]string, error) { return nil, nil }
func (b *brokenStore) Ping(context.Context) error              { return stderrors.New("closed") }

func TestRun_StoreFailureAborts(t *testing.T) {
	defer goleak.VerifyNone(t)

	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.py": "a\n", "b.py": "b\n"})

	bs := &brokenStore{}
	a := newTestApp(t, nil)
	a.AttachStore(bs)

	_, err := a.Run(context.Background(), root, output.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read-only")
	assert.Equal(t, []string{filepath.Join(root, "a.py")}, bs.files)
	assert.Contains(t, a.Health(context.Background())["store"], "unreachable")
}

// gatedParser blocks on the file named slow until release is closed and
// counts every Parse call.
type gatedParser struct {
	slow    string
	release chan struct{}
	started atomic.Int32
}

func (p *gatedParser) Parse(path string, _ []byte) (*syntax.Module, error) {
	p.started.Add(1)
	if filepath.Base(path) == p.slow {
		<-p.release
	}
	return &syntax.Module{}, nil
}

func TestRun_BoundsFilesInFlight(t *testing.T) {
	defer goleak.VerifyNone(t)

	root := t.TempDir()
	files := map[string]string{}
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		files[name+".py"] = "x\n"
	}
	writeTree(t, root, files)

	gp := &gatedParser{slow: "a.py", release: make(chan struct{})}
	a := newTestApp(t, func(c *config.Config) { c.Workers = 2 })
	a.parser = gp

	done := make(chan error, 1)
	var summary Summary
	go func() {
		var err error
		summary, err = a.Run(context.Background(), root, output.Discard)
		done <- err
	}()

	// a.py holds the head of the queue; only 2*workers files may be taken.
	require.Eventually(t, func() bool { return gp.started.Load() == 4 }, 5*time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(4), gp.started.Load())

	close(gp.release)
	require.NoError(t, <-done)
	assert.Equal(t, 8, summary.Processed)
	assert.Equal(t, int32(8), gp.started.Load())
}

// countingStore records which files were rewritten.
type countingStore struct {
	*store.Store
	replaced []string
}

func (c *countingStore) ReplaceFile(ctx context.Context, runID, file string, hash uint64, occs []ident.Occurrence) error {
	c.replaced = append(c.replaced, filepath.Base(file))
	return c.Store.ReplaceFile(ctx, runID, file, hash, occs)
}

func TestRun_SkipsStoreWriteForUnchangedContent(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.py": "a = 1\n", "b.py": "b = 2\n"})

	s, err := store.Open(filepath.Join(t.TempDir(), "pycount.db"))
	require.NoError(t, err)
	defer s.Close()
	cs := &countingStore{Store: s}

	first := newTestApp(t, nil)
	first.AttachStore(cs)
	_, err = first.Run(context.Background(), root, output.Discard)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.py", "b.py"}, cs.replaced)

	// A fresh app has an empty cache, so only the stored hashes can tell
	// that a.py is unchanged.
	writeTree(t, root, map[string]string{"b.py": "b = c\n"})
	second := newTestApp(t, nil)
	second.AttachStore(cs)
	var buf bytes.Buffer
	summary, err := second.Run(context.Background(), root, output.NewCSVWriter(&buf))
	require.NoError(t, err)

	assert.Equal(t, []string{"a.py", "b.py", "b.py"}, cs.replaced)
	assert.Equal(t, 2, summary.Processed)
	assert.Len(t, csvLines(&buf), 4, "unchanged files still produce output rows")

	occs, err := s.Occurrences(context.Background(), filepath.Join(root, "b.py"))
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, []string{occs[0].Name, occs[1].Name})
}
