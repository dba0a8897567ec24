package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func waitFor(t *testing.T, changes <-chan []string, want string) []string {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case paths := <-changes:
			for _, p := range paths {
				if p == want {
					return paths
				}
			}
		case <-timeout:
			t.Fatalf("timed out waiting for change to %s", want)
			return nil
		}
	}
}

func TestWatcher_ReportsPythonFiles(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	changes := make(chan []string, 16)
	w, err := NewWatcher(50*time.Millisecond, nil, nil, func(paths []string) {
		changes <- paths
	})
	require.NoError(t, err)
	require.NoError(t, w.Watch([]string{dir}))

	target := filepath.Join(dir, "mod.py")
	require.NoError(t, os.WriteFile(target, []byte("x = 1\n"), 0o644))
	paths := waitFor(t, changes, target)
	assert.Equal(t, []string{target}, paths)

	require.NoError(t, w.Close())
}

func TestWatcher_NewDirectory(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	changes := make(chan []string, 16)
	w, err := NewWatcher(50*time.Millisecond, nil, nil, func(paths []string) {
		changes <- paths
	})
	require.NoError(t, err)
	require.NoError(t, w.Watch([]string{dir}))
	defer w.Close()

	subdir := filepath.Join(dir, "pkg")
	require.NoError(t, os.MkdirAll(subdir, 0o755))
	time.Sleep(100 * time.Millisecond)

	nested := filepath.Join(subdir, "nested.py")
	require.NoError(t, os.WriteFile(nested, []byte("import os\n"), 0o644))
	waitFor(t, changes, nested)
}

func TestWatcher_RenameTriggersChange(t *testing.T) {
	dir := t.TempDir()
	changes := make(chan []string, 16)
	w, err := NewWatcher(100*time.Millisecond, nil, nil, func(paths []string) {
		changes <- paths
	})
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Watch([]string{dir}))

	oldPath := filepath.Join(dir, "old.py")
	newPath := filepath.Join(dir, "new.py")
	require.NoError(t, os.WriteFile(oldPath, []byte("a = 1\n"), 0o644))
	require.NoError(t, os.Rename(oldPath, newPath))

	timeout := time.After(2 * time.Second)
	for {
		select {
		case paths := <-changes:
			for _, p := range paths {
				if p == oldPath || p == newPath {
					return
				}
			}
		case <-timeout:
			t.Fatalf("timed out waiting for rename event, old=%s new=%s", oldPath, newPath)
		}
	}
}

func TestWatcher_Filters(t *testing.T) {
	w, err := NewWatcher(10*time.Millisecond, []string{".venv", "build*"}, []string{"*_pb2.py"}, func([]string) {})
	require.NoError(t, err)
	defer w.Close()

	assert.False(t, w.shouldExcludeFile("pkg/main.py"))
	assert.False(t, w.shouldExcludeFile("pkg/MAIN.PY"))
	assert.True(t, w.shouldExcludeFile("pkg/main.go"))
	assert.True(t, w.shouldExcludeFile("proto/msg_pb2.py"))
	assert.True(t, w.shouldExcludeDir("/src/.venv"))
	assert.True(t, w.shouldExcludeDir("/src/build-out"))
	assert.False(t, w.shouldExcludeDir("/src/pkg"))
}

func TestNewWatcher_Errors(t *testing.T) {
	_, err := NewWatcher(time.Millisecond, nil, nil, nil)
	assert.ErrorIs(t, err, os.ErrInvalid)

	_, err = NewWatcher(time.Millisecond, []string{"["}, nil, func([]string) {})
	assert.Error(t, err)
}
