package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fileLogger writes to a file under dir so tests can inspect output.
func fileLogger(t *testing.T, cfg Config) (*Logger, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.log")
	cfg.Output = path

	logger, err := New(cfg)
	require.NoError(t, err)
	return logger, path
}

func readLog(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestNew(t *testing.T) {
	t.Run("writes text format", func(t *testing.T) {
		logger, path := fileLogger(t, Config{Level: LevelInfo, Format: FormatText})
		logger.Info("collection started", "cycle", 1)

		output := readLog(t, path)
		assert.Contains(t, output, "collection started")
		assert.Contains(t, output, "cycle=1")
	})

	t.Run("writes json format", func(t *testing.T) {
		logger, path := fileLogger(t, Config{Level: LevelInfo, Format: FormatJSON})
		logger.Info("collection started")

		output := readLog(t, path)
		assert.Contains(t, output, `"msg":"collection started"`)
	})

	t.Run("level filters lower severity", func(t *testing.T) {
		logger, path := fileLogger(t, Config{Level: LevelWarn, Format: FormatText})
		logger.Info("hidden")
		logger.Warn("visible")

		output := readLog(t, path)
		assert.NotContains(t, output, "hidden")
		assert.Contains(t, output, "visible")
	})

	t.Run("unknown level defaults to info", func(t *testing.T) {
		logger, path := fileLogger(t, Config{Level: "chatty", Format: FormatText})
		logger.Debug("hidden")
		logger.Info("visible")

		output := readLog(t, path)
		assert.NotContains(t, output, "hidden")
		assert.Contains(t, output, "visible")
	})
}

func TestDomainHelpers(t *testing.T) {
	logger, path := fileLogger(t, Config{Level: LevelDebug, Format: FormatText})

	logger.InfoScan("Scan complete", "wlan0", "networks", 4)
	logger.InfoSensor("Sensor ready", "light")
	logger.InfoStorage("Header widened", "file", "wifi_data.csv")
	logger.InfoCollector("Cycle complete", "cycle", 3)

	output := readLog(t, path)
	assert.Contains(t, output, "interface=wlan0")
	assert.Contains(t, output, "networks=4")
	assert.Contains(t, output, "sensor=light")
	assert.Contains(t, output, "component=storage")
	assert.Contains(t, output, "component=collector")
}

func TestWithComponent(t *testing.T) {
	logger, path := fileLogger(t, Config{Level: LevelInfo, Format: FormatText})

	logger.WithComponent("api").Info("server started")

	output := readLog(t, path)
	assert.Contains(t, output, "component=api")
}

func TestSetDefault(t *testing.T) {
	original := Default()
	defer SetDefault(original)

	logger, path := fileLogger(t, Config{Level: LevelInfo, Format: FormatText})
	SetDefault(logger)

	Info("via package helper")
	WarnScan("Wi-Fi scan returned no results", "wlan0")

	output := readLog(t, path)
	assert.Contains(t, output, "via package helper")
	assert.True(t, strings.Contains(output, "interface=wlan0"))
}
