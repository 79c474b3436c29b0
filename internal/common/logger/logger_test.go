package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/localcontactforms/contactform/internal/common/configtypes"
)

func fileConfig(path, level string) configtypes.LogConfig {
	return configtypes.LogConfig{
		Level: level,
		File: configtypes.FileLogConfig{
			Enabled: true,
			Path:    path,
			Format:  configtypes.LogFormatJSON,
			Rotation: configtypes.RotationConfig{
				MaxSize:    10,
				MaxAge:     7,
				MaxBackups: 3,
			},
		},
	}
}

func readLines(t *testing.T, path string) []map[string]interface{} {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		out = append(out, entry)
	}
	return out
}

func TestNewLogger_ConsoleOnly(t *testing.T) {
	logger, err := NewLogger(configtypes.LogConfig{
		Level:   configtypes.LogLevelInfo,
		Console: configtypes.ConsoleLogConfig{Enabled: true, Format: configtypes.LogFormatConsole},
	}, "form-service")
	require.NoError(t, err)
	require.NotNil(t, logger)

	logger.Info("test console logging")
}

func TestNewLogger_FileOnlyAddsServiceField(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "service.log")

	logger, err := NewLogger(fileConfig(logPath, configtypes.LogLevelDebug), "edge-gateway")
	require.NoError(t, err)

	logger.Debug("debug line", zap.String("tenant_id", "acme"))
	require.NoError(t, logger.Sync())

	lines := readLines(t, logPath)
	require.Len(t, lines, 1)
	assert.Equal(t, "edge-gateway", lines[0]["service"])
	assert.Equal(t, "acme", lines[0]["tenant_id"])
}

func TestNewLogger_Errors(t *testing.T) {
	_, err := NewLogger(configtypes.LogConfig{Level: configtypes.LogLevelInfo}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one log output")

	_, err = NewLogger(configtypes.LogConfig{
		File: configtypes.FileLogConfig{Enabled: true},
	}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file.path")
}

func TestNewLogger_LevelFiltering(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "warn.log")

	logger, err := NewLogger(fileConfig(logPath, configtypes.LogLevelWarn), "")
	require.NoError(t, err)

	logger.Info("dropped")
	logger.Warn("kept")
	require.NoError(t, logger.Sync())

	lines := readLines(t, logPath)
	require.Len(t, lines, 1)
	assert.Equal(t, "kept", lines[0]["msg"])
}

func TestNewLoggerWithStartupOverride(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "startup.log")

	logger, err := NewLoggerWithStartupOverride(fileConfig(logPath, configtypes.LogLevelError), "")
	require.NoError(t, err)

	logger.Info("startup visible")
	logger.SwitchToConfiguredLevel()
	logger.Info("after switch hidden")
	logger.EnsureInfoLevelForShutdown()
	logger.Info("shutdown visible")
	require.NoError(t, logger.Sync())

	var msgs []string
	for _, l := range readLines(t, logPath) {
		msgs = append(msgs, l["msg"].(string))
	}
	assert.Contains(t, msgs, "startup visible")
	assert.NotContains(t, msgs, "after switch hidden")
	assert.Contains(t, msgs, "shutdown visible")
}

func TestResolveLogLevel(t *testing.T) {
	assert.Equal(t, zapcore.WarnLevel, resolveLogLevel("", zapcore.WarnLevel))
	assert.Equal(t, zapcore.DebugLevel, resolveLogLevel(configtypes.LogLevelDebug, zapcore.WarnLevel))
	assert.Equal(t, zapcore.InfoLevel, parseLogLevel("unknown"))
}

func TestNewDefaultLogger(t *testing.T) {
	logger, err := NewDefaultLogger("test")
	require.NoError(t, err)
	assert.NotNil(t, logger.Logger)
}
