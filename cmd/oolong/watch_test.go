package main

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWatchDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "entities"), 0o755))

	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- watchDir(ctx, afero.NewOsFs(), dir, zap.NewNop(), func() error {
			calls.Add(1)
			return nil
		})
	}()

	src := filepath.Join(dir, "entities", "user.ool")
	require.Eventually(t, func() bool {
		_ = os.WriteFile(src, []byte("entity: {}\n"), 0o644)
		return calls.Load() > 0
	}, 10*time.Second, 2*debounce)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
