package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arionyau/obelisk/internal/config"
)

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "balancer.cfg")
	require.NoError(t, os.WriteFile(path, []byte("frontend = tcp://*:9091\nbackend = tcp://*:9092\n"), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "tcp://*:9091", cfg.Frontend)
	assert.Equal(t, "tcp://*:9092", cfg.Backend)
}

func TestLoadDefaultPathConstant(t *testing.T) {
	assert.Equal(t, "balancer.cfg", config.DefaultPath)
}
