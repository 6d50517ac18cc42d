package config

import (
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWatcher_ReloadsOnFileChange(t *testing.T) {
	// Arrange
	path := writeConfigFile(t, "logLevel: info\n")
	initial, err := Load(path)
	require.NoError(t, err)

	watcher, err := NewWatcher(path, initial, zap.NewNop())
	require.NoError(t, err)
	defer watcher.Stop()

	var reloads atomic.Int32
	watcher.OnChange(func(*Config) { reloads.Add(1) })
	watcher.Start()

	// Act
	require.NoError(t, os.WriteFile(path, []byte("logLevel: debug\n"), 0o644))

	// Assert
	require.Eventually(t, func() bool {
		return watcher.Current().LogLevel == "debug"
	}, 3*time.Second, 20*time.Millisecond)
	assert.GreaterOrEqual(t, reloads.Load(), int32(1))
}

func TestWatcher_KeepsPreviousOnBadFile(t *testing.T) {
	// Arrange
	path := writeConfigFile(t, "logLevel: info\n")
	initial, err := Load(path)
	require.NoError(t, err)

	watcher, err := NewWatcher(path, initial, zap.NewNop())
	require.NoError(t, err)
	defer watcher.Stop()
	watcher.Start()

	// Act: an unparseable rewrite must not clobber the running config
	require.NoError(t, os.WriteFile(path, []byte(":::: not yaml"), 0o644))

	// Assert
	time.Sleep(500 * time.Millisecond)
	assert.Equal(t, "info", watcher.Current().LogLevel)
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	// Arrange
	path := writeConfigFile(t, "logLevel: info\n")
	initial, err := Load(path)
	require.NoError(t, err)

	watcher, err := NewWatcher(path, initial, zap.NewNop())
	require.NoError(t, err)
	watcher.Start()

	// Act / Assert: calling Stop twice is safe
	watcher.Stop()
	watcher.Stop()
}
