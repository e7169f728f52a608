package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgoulah/pvrelay/internal/config"
)

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("inverter:\n  host: file-host\npvoutput:\n  api_key: file-key\n  system_id: \"7\"\n"), 0600))

	cfgFile = path
	t.Cleanup(func() { cfgFile = "" })
	t.Setenv("PVRELAY_HOST", "env-host")
	t.Setenv("PVRELAY_DRY_RUN", "true")

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "env-host", cfg.Inverter.Host)
	assert.Equal(t, "file-key", cfg.PVOutput.APIKey)
	assert.Equal(t, "7", cfg.PVOutput.SystemID)
	assert.True(t, cfg.DryRun)
}

func TestRunRequiresCredentials(t *testing.T) {
	cfgFile = filepath.Join(t.TempDir(), "missing.yaml")
	t.Cleanup(func() { cfgFile = "" })
	t.Setenv("PVRELAY_HOST", "192.0.2.1")

	err := runRun(runCmd, nil)
	require.Error(t, err)

	var cfgErr *config.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "pvoutput", cfgErr.Field)
}
