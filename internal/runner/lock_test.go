package runner

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sniper.lock")

	lock, err := AcquireLock(path)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid())+"\n", string(data))

	_, err = AcquireLock(path)
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	require.NoError(t, lock.Release())
	assert.NoFileExists(t, path)
	assert.NoError(t, lock.Release(), "release is idempotent")

	again, err := AcquireLock(path)
	require.NoError(t, err)
	require.NoError(t, again.Release())
}

func TestAcquireLock_TakesOverStaleLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sniper.lock")
	// pid numbers this high are never handed out
	require.NoError(t, os.WriteFile(path, []byte("999999999\n"), 0o644))

	lock, err := AcquireLock(path)
	require.NoError(t, err)
	defer lock.Release()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid())+"\n", string(data))
}

func TestAcquireLock_GarbageContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sniper.lock")
	require.NoError(t, os.WriteFile(path, []byte("not a pid"), 0o644))

	lock, err := AcquireLock(path)
	require.NoError(t, err)
	assert.NoError(t, lock.Release())
}
