package clean_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/lambda-feedback/pipetask/internal/clean"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func writeFile(t *testing.T, path string, size int) {
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

func TestRemove_Directory(t *testing.T) {
	root := t.TempDir()
	dist := filepath.Join(root, "dist")

	writeFile(t, filepath.Join(dist, "app.js"), 100)
	writeFile(t, filepath.Join(dist, "assets", "logo.png"), 50)

	stats, err := clean.Remove(context.Background(), dist, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, clean.Stats{Paths: 1, Bytes: 150}, stats)
	assert.False(t, exists(dist))
	assert.True(t, exists(root))
}

func TestRemove_Glob(t *testing.T) {
	root := t.TempDir()

	writeFile(t, filepath.Join(root, "a.map"), 10)
	writeFile(t, filepath.Join(root, "a.js"), 10)
	writeFile(t, filepath.Join(root, "nested", "deep", "b.map"), 10)
	writeFile(t, filepath.Join(root, "nested", "b.js"), 10)

	stats, err := clean.Remove(context.Background(), filepath.Join(root, "**", "*.map"), nil)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Paths)
	assert.False(t, exists(filepath.Join(root, "a.map")))
	assert.False(t, exists(filepath.Join(root, "nested", "deep", "b.map")))
	assert.True(t, exists(filepath.Join(root, "a.js")))
	assert.True(t, exists(filepath.Join(root, "nested", "b.js")))
}

func TestRemove_NestedMatches_CountedOnce(t *testing.T) {
	root := t.TempDir()

	writeFile(t, filepath.Join(root, "build", "x", "file"), 5)
	writeFile(t, filepath.Join(root, "build", "y"), 5)

	stats, err := clean.Remove(context.Background(), filepath.Join(root, "build*", "**"), nil)
	require.NoError(t, err)

	assert.Equal(t, uint64(10), stats.Bytes)
	assert.False(t, exists(filepath.Join(root, "build", "x")))
	assert.False(t, exists(filepath.Join(root, "build", "y")))
}

func TestRemove_NoMatch_Succeeds(t *testing.T) {
	root := t.TempDir()

	stats, err := clean.Remove(context.Background(), filepath.Join(root, "missing"), nil)
	require.NoError(t, err)
	assert.Equal(t, clean.Stats{}, stats)

	stats, err = clean.Remove(context.Background(), filepath.Join(root, "*.tmp"), nil)
	require.NoError(t, err)
	assert.Equal(t, clean.Stats{}, stats)
}

func TestRemove_EmptyPattern_Fails(t *testing.T) {
	_, err := clean.Remove(context.Background(), "", nil)
	assert.ErrorIs(t, err, clean.ErrEmptyPattern)
}

func TestRemove_InvalidPattern_Fails(t *testing.T) {
	_, err := clean.Remove(context.Background(), filepath.Join(t.TempDir(), "[a"), nil)
	assert.Error(t, err)
}

func TestRemove_CancelledContext_RemovesNothing(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "dist", "app.js"), 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := clean.Remove(ctx, filepath.Join(root, "dist"), nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, exists(filepath.Join(root, "dist", "app.js")))
}

func TestRemove_LogsHumanizedSize(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "dist", "bundle.js"), 2000)

	core, logs := observer.New(zapcore.InfoLevel)

	_, err := clean.Remove(context.Background(), filepath.Join(root, "dist"), zap.New(core))
	require.NoError(t, err)

	entries := logs.FilterMessage("removed paths").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "2.0 kB", entries[0].ContextMap()["size"])
	assert.Equal(t, int64(1), entries[0].ContextMap()["paths"])
}
