package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultConfig(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "./datas", cfg.Input.Path)
	assert.Equal(t, "utf-8", cfg.Input.Charset)
	assert.Equal(t, "training_data.csv", cfg.Output.Path)
	assert.Equal(t, FormatCSV, cfg.Output.Format)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "othello-dataset", cfg.Server.Name)
	assert.Empty(t, cfg.Metrics.Textfile)
	assert.Empty(t, cfg.Metrics.Addr)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 64, cfg.Cache.MaxItems)
	assert.Equal(t, int64(16*1024*1024), cfg.Cache.MaxSizeBytes)
}

func TestLoadConfigFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.json")

	data := []byte(`{
  "input": {"path": "/data/games.txt.bz2", "charset": "windows-1252"},
  "output": {"path": "/data/out.bin", "format": "MSGPACK"},
  "logging": {"level": "debug", "format": "json"},
  "metrics": {"textfile": "/tmp/othello.prom"}
}`)
	require.NoError(t, os.WriteFile(configPath, data, 0o644))

	cfg, err := Load(configPath, nil)
	require.NoError(t, err)

	assert.Equal(t, "/data/games.txt.bz2", cfg.Input.Path)
	assert.Equal(t, "windows-1252", cfg.Input.Charset)
	assert.Equal(t, "/data/out.bin", cfg.Output.Path)
	assert.Equal(t, FormatMsgpack, cfg.Output.Format)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "/tmp/othello.prom", cfg.Metrics.Textfile)
	// not in the file, so the default survives
	assert.Equal(t, "othello-dataset", cfg.Server.Name)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"), nil)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("OTHELLO_DATASET_OUTPUT_PATH", "env.csv")
	t.Setenv("OTHELLO_DATASET_LOGGING_LEVEL", "warn")

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "env.csv", cfg.Output.Path)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestFlagsOverrideEnv(t *testing.T) {
	t.Setenv("OTHELLO_DATASET_OUTPUT_PATH", "env.csv")
	t.Setenv("OTHELLO_DATASET_INPUT_PATH", "env-input.txt")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--output", "flag.csv", "--format", "msgpack"}))

	cfg, err := Load("", fs)
	require.NoError(t, err)

	assert.Equal(t, "flag.csv", cfg.Output.Path)
	assert.Equal(t, FormatMsgpack, cfg.Output.Format)
	// unset flags do not mask lower layers
	assert.Equal(t, "env-input.txt", cfg.Input.Path)
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr bool
	}{
		{name: "unknown format", env: map[string]string{"OTHELLO_DATASET_OUTPUT_FORMAT": "parquet"}, wantErr: true},
		{name: "blank input", env: map[string]string{"OTHELLO_DATASET_INPUT_PATH": "  "}, wantErr: true},
		{name: "bad log format falls back", env: map[string]string{"OTHELLO_DATASET_LOGGING_FORMAT": "xml"}},
		{name: "bad cache size", env: map[string]string{"OTHELLO_DATASET_CACHE_MAX_SIZE": "lots"}, wantErr: true},
		{name: "negative cache items", env: map[string]string{"OTHELLO_DATASET_CACHE_MAX_ITEMS": "-1"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := Load("", nil)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "text", cfg.Logging.Format)
		})
	}
}

func TestCacheSizeFromFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, os.WriteFile(configPath, []byte(`{"cache": {"enabled": false, "max_items": 8, "max_size": "512KB"}}`), 0o644))

	cfg, err := Load(configPath, nil)
	require.NoError(t, err)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, 8, cfg.Cache.MaxItems)
	assert.Equal(t, int64(512*1024), cfg.Cache.MaxSizeBytes)
}

func TestGetConfigPathFromEnv(t *testing.T) {
	t.Setenv("OTHELLO_DATASET_CONFIG", "/etc/othello.json")
	assert.Equal(t, "/etc/othello.json", GetConfigPath())
}
