package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewWritesJSON(t *testing.T) {
	out := filepath.Join(t.TempDir(), "vfs.log")
	log, err := New(Config{Level: "warn", Format: "json", OutputPath: out})
	require.Nil(t, err)
	require.Equal(t, zapcore.WarnLevel, log.Level())

	log.Info("hidden")
	log.Warn("drive failed")
	require.Nil(t, log.Sync())

	data, err := os.ReadFile(out)
	require.Nil(t, err)
	require.Contains(t, string(data), `"msg":"drive failed"`)
	require.NotContains(t, string(data), "hidden")
}

func TestLevelFallbackAndChange(t *testing.T) {
	out := filepath.Join(t.TempDir(), "vfs.log")
	log, err := New(Config{Level: "loud", Format: "console", OutputPath: out})
	require.Nil(t, err)
	require.Equal(t, zapcore.InfoLevel, log.Level())

	log.SetLevel("nonsense")
	require.Equal(t, zapcore.InfoLevel, log.Level())
	log.SetLevel("debug")
	require.Equal(t, zapcore.DebugLevel, log.Level())
}

func TestNop(t *testing.T) {
	log := Nop()
	log.Error("dropped")
	require.Nil(t, log.Sync())
}
