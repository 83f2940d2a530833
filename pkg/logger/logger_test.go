package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sniper.log")

	l, err := New(Options{Service: "sniper-test", Level: "debug", Format: "json", FilePath: path})
	require.NoError(t, err)
	zap.S().Infof("scan took %dms", 42)
	l.Debug("debug line")
	_ = l.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "scan took 42ms")
	assert.Contains(t, string(data), "debug line")
	assert.Contains(t, string(data), `"service":"sniper-test"`)
}

func TestNew_LevelFilters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sniper.log")

	l, err := New(Options{Level: "WARN", Format: "json", FilePath: path})
	require.NoError(t, err)
	l.Info("hidden")
	l.Warn("shown")
	_ = l.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "shown")
}

func TestNew_RejectsUnknownLevel(t *testing.T) {
	_, err := New(Options{Level: "loud"})
	require.Error(t, err)
}
