package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "gscconsolidate/internal/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "xlsx", cfg.Consolidation.OutputFormat)
	assert.Equal(t, 0, cfg.Consolidation.MinClicks)
	assert.Equal(t, 5, cfg.Consolidation.PreviewLimit)
	assert.Equal(t, int64(25000), cfg.SearchConsole.RowLimit)
	assert.Equal(t, ":8080", cfg.Addr())
}

func TestLoadFile(t *testing.T) {
	tests := []struct {
		name        string
		file        string
		env         map[string]string
		wantErr     bool
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "no file and no env gives defaults",
			validateCfg: func(t *testing.T, cfg *Config) {
				want := Default()
				want.Logging.FilePath = filepath.Join(DefaultLogsDir, LogFileName)
				assert.Equal(t, want, cfg)
			},
		},
		{
			name: "file overrides defaults and keeps unset keys",
			file: `
server:
  port: 9090
  read_timeout: 45s
consolidation:
  min_clicks: 3
  output_format: csv
`,
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, 45*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, Default().Server.WriteTimeout, cfg.Server.WriteTimeout)
				assert.Equal(t, 3, cfg.Consolidation.MinClicks)
				assert.Equal(t, "csv", cfg.Consolidation.OutputFormat)
				assert.Equal(t, DefaultPreviewLimit, cfg.Consolidation.PreviewLimit)
			},
		},
		{
			name: "env takes precedence over file",
			file: `
server:
  port: 9090
logging:
  level: warn
`,
			env: map[string]string{
				"GSC_SERVER_PORT":                     "7070",
				"GSC_CONSOLIDATION_WORKERS":           "8",
				"GSC_SEARCH_CONSOLE_CREDENTIALS_FILE": "/tmp/key.json",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 7070, cfg.Server.Port)
				assert.Equal(t, "warn", cfg.Logging.Level)
				assert.Equal(t, 8, cfg.Consolidation.Workers)
				assert.Equal(t, "/tmp/key.json", cfg.SearchConsole.CredentialsFile)
			},
		},
		{
			name:    "negative min clicks",
			env:     map[string]string{"GSC_CONSOLIDATION_MIN_CLICKS": "-1"},
			wantErr: true,
		},
		{
			name:    "unknown output format",
			file:    "consolidation:\n  output_format: ods\n",
			wantErr: true,
		},
		{
			name:    "port out of range",
			env:     map[string]string{"GSC_SERVER_PORT": "70000"},
			wantErr: true,
		},
		{
			name:    "bad log level",
			env:     map[string]string{"GSC_LOGGING_LEVEL": "verbose"},
			wantErr: true,
		},
		{
			name:    "malformed yaml",
			file:    "server: [port",
			wantErr: true,
		},
		{
			name:    "unparseable env value",
			env:     map[string]string{"GSC_SERVER_READ_TIMEOUT": "soon"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.file != "" {
				path = writeConfig(t, tt.file)
			}

			cfg, err := LoadFile(path)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
				return
			}
			require.NoError(t, err)
			tt.validateCfg(t, cfg)
		})
	}
}

func TestLoadFile_MissingFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
}

func TestGetConfigFilePath_Env(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 8181\n")
	t.Setenv("GSC_CONFIG_FILE", path)

	assert.Equal(t, path, getConfigFilePath())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8181, cfg.Server.Port)
}

func TestPathsConfig(t *testing.T) {
	base := t.TempDir()
	p := PathsConfig{
		OutputDir: filepath.Join(base, "out"),
		LogsDir:   filepath.Join(base, "logs"),
	}

	resolved, err := p.Resolved()
	require.NoError(t, err)
	assert.Equal(t, p, resolved)

	require.NoError(t, p.EnsureDirectories())
	for _, dir := range []string{p.OutputDir, p.LogsDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}

	assert.Equal(t, filepath.Join(base, "logs", "app.log"), p.LogFile())

	rel, err := PathsConfig{OutputDir: "out", LogsDir: "logs"}.Resolved()
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(rel.OutputDir))
}
