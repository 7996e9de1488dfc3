package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestSourceWatcher(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "Page.js")
	other := filepath.Join(dir, "Other.js")
	writeFile(t, target, "// v1\n")

	var reloads atomic.Int32
	w, err := New(target, func(ctx context.Context, path string) {
		assert.Equal(t, target, path)
		reloads.Add(1)
	})
	require.NoError(t, err)
	w.SetDebounce(50 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	assert.True(t, w.IsWatching())

	t.Run("rapid saves coalesce into one reload", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			writeFile(t, target, "// edit\n")
			time.Sleep(5 * time.Millisecond)
		}
		require.Eventually(t, func() bool {
			return reloads.Load() == 1
		}, 2*time.Second, 20*time.Millisecond)

		// Hold past another debounce window: still exactly one.
		time.Sleep(200 * time.Millisecond)
		assert.Equal(t, int32(1), reloads.Load())
	})

	t.Run("sibling files are ignored", func(t *testing.T) {
		before := reloads.Load()
		writeFile(t, other, "// noise\n")
		time.Sleep(300 * time.Millisecond)
		assert.Equal(t, before, reloads.Load())
	})

	t.Run("a later save triggers again", func(t *testing.T) {
		before := reloads.Load()
		writeFile(t, target, "// v2\n")
		require.Eventually(t, func() bool {
			return reloads.Load() == before+1
		}, 2*time.Second, 20*time.Millisecond)
	})
}

func TestStopIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "Page.js")
	writeFile(t, target, "// v1\n")

	w, err := New(target, func(context.Context, string) {})
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))

	w.Stop()
	w.Stop()
	assert.False(t, w.IsWatching())
}

func TestStartOnMissingDirectoryFails(t *testing.T) {
	w, err := New(filepath.Join(t.TempDir(), "missing", "Page.js"), func(context.Context, string) {})
	require.NoError(t, err)
	defer w.watcher.Close()

	assert.Error(t, w.Start(context.Background()))
	assert.False(t, w.IsWatching())
}
