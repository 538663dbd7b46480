package sound

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherReportsDefinitionWrites(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))
	target := filepath.Join(dir, "sounds.json")
	require.NoError(t, os.WriteFile(target, []byte(`{}`), 0o644))

	select {
	case name := <-w.Events:
		assert.Equal(t, target, name)
	case <-time.After(2 * time.Second):
		t.Fatal("no event for sounds.json")
	}
}

func TestWatcherCloseIsIdempotent(t *testing.T) {
	w, err := NewWatcher(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	_, ok := <-w.Events
	assert.False(t, ok)
}

func TestNewWatcherMissingDir(t *testing.T) {
	_, err := NewWatcher(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}
