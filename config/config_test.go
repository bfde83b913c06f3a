package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().AE.AETitle, cfg.AE.AETitle)
}

func TestLoadParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
ae:
  ae_title: TESTSCP
  port: 4242
  timeout_seconds: 5
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "TESTSCP", cfg.AE.AETitle)
	assert.Equal(t, 4242, cfg.AE.Port)
	assert.Equal(t, 5*time.Second, cfg.AE.Timeout())
}

func TestEnvOverridesTakePrecedence(t *testing.T) {
	t.Setenv("GONETDICOM_AE_TITLE", "OVERRIDDEN")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "OVERRIDDEN", cfg.AE.AETitle)
}
