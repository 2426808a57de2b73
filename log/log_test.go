package log

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestLDefaultsToNop(t *testing.T) {
	global.Store(nil)
	require.NotNil(t, L())
	L().Info("discarded")
}

func TestLogMessageAndPrintIfErr(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	Set(zap.New(core))
	t.Cleanup(func() { global.Store(nil) })

	LogMessage(WARN, "low paper")
	err := errors.New("boom")
	PrintIfErr("close transport", &err)
	var nilErr error
	PrintIfErr("ignored", &nilErr)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "low paper", entries[0].Message)
	assert.Equal(t, zap.WarnLevel, entries[0].Level)
	assert.Equal(t, "close transport", entries[1].Message)
	assert.Equal(t, zap.ErrorLevel, entries[1].Level)
}

func TestRotatingWriter(t *testing.T) {
	dir := t.TempDir()
	w := NewRotatingWriter(dir, "app")
	day := 5
	w.now = func() time.Time { return time.Date(2024, 3, day, 12, 0, 0, 0, time.UTC) }

	// Leftover from a previous month in the slot after slot 0.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app-1.log"), []byte("old\n"), 0o644))

	_, err := w.Write([]byte("first\n"))
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "app-1.log"))

	day = 12
	_, err = w.Write([]byte("second\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	b, err := os.ReadFile(filepath.Join(dir, "app-0.log"))
	require.NoError(t, err)
	assert.Equal(t, "first\n", string(b))
	b, err = os.ReadFile(filepath.Join(dir, "app-1.log"))
	require.NoError(t, err)
	assert.Equal(t, "second\n", string(b))
}

func TestNewRotateOutput(t *testing.T) {
	dir := t.TempDir()
	l, err := New(Config{Level: "debug", Format: "json", Output: "rotate", Dir: dir, Name: "svc"})
	require.NoError(t, err)
	l.Info("hello")
	require.NoError(t, l.Sync())

	matches, err := filepath.Glob(filepath.Join(dir, "svc-*.log"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}
