package imgfit

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherProcessesNewFile(t *testing.T) {
	inDir := t.TempDir()
	outDir := t.TempDir()

	runner, err := NewRunner(RunnerOptions{
		Options: Options{
			Mode:       DimensionMode,
			Dimensions: DimensionEnvelope{Min: 10, Max: 50},
		},
		OutDir: outDir,
	})
	require.NoError(t, err)

	watcher, err := NewWatcher(runner, inDir)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		watcher.Start(ctx)
	}()

	// Drop a new image into the watched directory after the watcher is up.
	time.Sleep(100 * time.Millisecond)
	writeTestPNG(t, inDir, "dropped.png", 200, 100)

	// The debounced pipeline should produce the fitted output shortly.
	want := filepath.Join(outDir, "dropped_fitted.png")
	deadline := time.After(10 * time.Second)
	for {
		if _, err := os.Stat(want); err == nil {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("fitted output %s never appeared", want)
		case <-time.After(50 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop on cancellation")
	}

	img, err := Open(want)
	require.NoError(t, err)
	assert.Equal(t, 50, img.Bounds().Dx())
	assert.Equal(t, 25, img.Bounds().Dy())
}

// With no separate output directory, fitted files land in the watched
// directory itself. The watcher must not feed them back through the runner,
// or one dropped image grows a _fitted_fitted... chain without bound.
func TestWatcherIgnoresOwnOutputs(t *testing.T) {
	dir := t.TempDir()

	runner, err := NewRunner(RunnerOptions{
		Options: Options{
			Mode:       DimensionMode,
			Dimensions: DimensionEnvelope{Min: 10, Max: 50},
		},
		// OutDir deliberately unset: outputs land in the watched dir.
	})
	require.NoError(t, err)

	watcher, err := NewWatcher(runner, dir)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		watcher.Start(ctx)
	}()

	time.Sleep(100 * time.Millisecond)
	writeTestPNG(t, dir, "dropped.png", 200, 100)

	firstGen := filepath.Join(dir, "dropped_fitted.png")
	deadline := time.After(10 * time.Second)
	for {
		if _, err := os.Stat(firstGen); err == nil {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("fitted output %s never appeared", firstGen)
		case <-time.After(50 * time.Millisecond):
		}
	}

	// Give a second generation ample time to appear if the output were
	// (wrongly) picked up again, then assert the chain stopped.
	time.Sleep(4 * debounceDelay)

	_, err = os.Stat(filepath.Join(dir, "dropped_fitted_fitted.png"))
	assert.True(t, os.IsNotExist(err), "watcher reprocessed its own output")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2, "exactly the input and one fitted output")

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop on cancellation")
	}
}

func TestWatcherRejectsMissingDir(t *testing.T) {
	runner, err := NewRunner(RunnerOptions{Options: DefaultOptions()})
	require.NoError(t, err)

	_, err = NewWatcher(runner, filepath.Join(t.TempDir(), "does-not-exist"))
	assert.Error(t, err)
}
