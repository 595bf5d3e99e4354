package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srg/vitalink/internal/config"
)

func TestDefault(t *testing.T) {
	cfg := config.Default()

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 30, cfg.DiscardAfterSeconds)
	assert.NotEmpty(t, cfg.StorePath)
	require.Len(t, cfg.DeviceTypes, 2)
	assert.Equal(t, "weight-scale", cfg.DeviceTypes[0].Type)
	assert.Equal(t, "blood-pressure-cuff", cfg.DeviceTypes[1].Type)
	require.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	t.Run("missing file falls back to defaults", func(t *testing.T) {
		cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
		require.NoError(t, err)
		assert.Equal(t, config.Default(), cfg)
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
log_level: debug
store_path: /var/lib/vitalink/devices.json
device_types:
  - type: weight-scale
    services: ["181d"]
`), 0o600))

		cfg, err := config.Load(path)
		require.NoError(t, err)
		assert.Equal(t, "debug", cfg.LogLevel)
		assert.Equal(t, "/var/lib/vitalink/devices.json", cfg.StorePath)
		assert.Equal(t, 30, cfg.DiscardAfterSeconds, "untouched fields keep their defaults")
		require.Len(t, cfg.DeviceTypes, 1)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("log_level: [unterminated"), 0o600))

		_, err := config.Load(path)
		assert.ErrorContains(t, err, "failed to parse config")
	})

	t.Run("invalid values are rejected on load", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("log_level: loud"), 0o600))

		_, err := config.Load(path)
		assert.ErrorContains(t, err, "invalid log_level")
	})
}

func TestValidate(t *testing.T) {
	valid := func() *config.Config { return config.Default() }

	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{
			name:    "bad log level",
			mutate:  func(c *config.Config) { c.LogLevel = "verbose" },
			wantErr: "invalid log_level",
		},
		{
			name:    "empty store path",
			mutate:  func(c *config.Config) { c.StorePath = "" },
			wantErr: "store_path",
		},
		{
			name:    "non-positive discard window",
			mutate:  func(c *config.Config) { c.DiscardAfterSeconds = 0 },
			wantErr: "discard_after_seconds",
		},
		{
			name: "empty device type tag",
			mutate: func(c *config.Config) {
				c.DeviceTypes = append(c.DeviceTypes, config.DeviceTypeConfig{Services: []string{"180d"}})
			},
			wantErr: "empty type tag",
		},
		{
			name: "duplicate device type",
			mutate: func(c *config.Config) {
				c.DeviceTypes = append(c.DeviceTypes, c.DeviceTypes[0])
			},
			wantErr: "duplicate device type",
		},
		{
			name: "device type without services",
			mutate: func(c *config.Config) {
				c.DeviceTypes = append(c.DeviceTypes, config.DeviceTypeConfig{Type: "thermometer"})
			},
			wantErr: "lists no services",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.wantErr)
		})
	}
}
