package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	yaml "gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfiguration_NoFile(t *testing.T) {
	cfg, err := LoadConfiguration("")
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, Default(), *cfg)
}

func TestLoadConfiguration_WithFile(t *testing.T) {
	path := writeConfig(t, `version: 1
css:
  tokenizer: true
logging:
  console:
    level: debug
`)

	cfg, err := LoadConfiguration(path)
	require.NoError(t, err)

	assert.True(t, cfg.CSS.Tokenizer)
	assert.True(t, cfg.CSS.StripComments, "defaults must survive partial files")
	assert.Equal(t, "debug", cfg.Logging.ConsoleLogger.Level)
	assert.Equal(t, "console", cfg.Logging.ConsoleLogger.Format)
	assert.Equal(t, "none", cfg.Logging.FileLogger.Level)
}

func TestLoadConfiguration_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errText string
	}{
		{"unknown field", "version: 1\ncss:\n  minify: true\n", "failed to decode configuration data"},
		{"wrong version", "version: 2\n", "invalid configuration"},
		{"bad console level", "version: 1\nlogging:\n  console:\n    level: loud\n", "invalid configuration"},
		{"file log without destination", "version: 1\nlogging:\n  file:\n    level: debug\n", "invalid configuration"},
		{"not yaml", "version: [1\n", "failed to decode configuration data"},
		{"cascade section", "version: 1\ncascade:\n  per_property_specificity: true\n", "failed to decode configuration data"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfiguration(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errText)
		})
	}
}

func TestLoadConfiguration_MissingFile(t *testing.T) {
	_, err := LoadConfiguration(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestDump_RoundTrip(t *testing.T) {
	cfg := Default()
	cfg.CSS.StripComments = false

	data, err := Dump(&cfg)
	require.NoError(t, err)

	cfg2, err := LoadConfiguration(writeConfig(t, string(data)))
	require.NoError(t, err)
	assert.Equal(t, cfg, *cfg2)
}

func TestPrepare_MatchesDefault(t *testing.T) {
	data, err := Prepare()
	require.NoError(t, err)

	var cfg Config
	require.NoError(t, yaml.Unmarshal(data, &cfg))
	assert.Equal(t, Default(), cfg)
}

func TestLogging_Build(t *testing.T) {
	var console bytes.Buffer

	conf := Default().Logging
	log := conf.build(&console, false)
	log.Debug("hidden")
	log.Info("shown", zap.String("k", "v"))
	require.NoError(t, log.Sync())

	assert.NotContains(t, console.String(), "hidden")
	assert.Contains(t, console.String(), "INFO")
	assert.Contains(t, console.String(), "cssinline")
	assert.Contains(t, console.String(), "shown")

	console.Reset()
	log = conf.build(&console, true)
	log.Debug("visible")
	assert.Contains(t, console.String(), "visible")
}

func TestLogging_FileDestination(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "logs", "nested", "run.log")

	conf := Default().Logging
	conf.ConsoleLogger.Level = "none"
	conf.FileLogger.Level = "normal"
	conf.FileLogger.Destination = dest

	log, err := conf.Prepare(false)
	require.NoError(t, err)
	log.Info("to file")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"to file"`)
}
