package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg, err := NewConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultAPIConfig(), cfg.API)
	assert.NoError(t, cfg.Validate())
}

func TestNewConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "all-smi.yaml")
	content := []byte("api:\n  port: 8080\nview:\n  hosts:\n    - node1:9090\n    - node2:9090\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := NewConfig(path)
	require.NoError(t, err)
	assert.Equal(t, uint16(8080), cfg.API.Port)
	assert.Equal(t, []string{"node1:9090", "node2:9090"}, cfg.View.Hosts)
	// Sections absent from the file keep their defaults.
	assert.Equal(t, DefaultFleetConfig().RetryCount, cfg.Fleet.RetryCount)
}

func TestNewConfigMissingFileIsFatal(t *testing.T) {
	_, err := NewConfig("/nonexistent/all-smi.yaml")
	assert.Error(t, err)
}

func TestNewConfigMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api: ["), 0o600))

	_, err := NewConfig(path)
	assert.Error(t, err)
}
