package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.DataPort)
	assert.Equal(t, 8081, cfg.Server.UIPort)
	assert.Equal(t, 1000, cfg.Store.HistoryLimit)
	assert.Equal(t, 2, cfg.Store.SchemaRevision)
	assert.False(t, cfg.Store.CapResync)
	assert.Equal(t, 256, cfg.Ingest.Buffer)
	assert.Equal(t, 2*time.Second, cfg.Ingest.WebSocket.ReconnectWait)
	assert.Equal(t, "telemetry", cfg.Ingest.Redis.Channel)
	assert.Equal(t, 2*time.Second, cfg.Ingest.Redis.ReconnectWait)
	assert.Empty(t, cfg.Ingest.WebSocket.URL)
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	yaml := `
server:
  data_port: 9000
  ui_port: 9001
store:
  history_limit: 500
  schema_revision: 1
  cap_resync: true
ingest:
  websocket:
    url: ws://car.local:8000/ws/updates
    reconnect_wait: 5s
anomaly:
  rules:
    Motor_Temp:
      min: 0
      max: 90
auth:
  api_keys: ["k1", "k2"]
  users:
    - username: pit
      password_hash: "$2a$04$abc"
      role: admin
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.DataPort)
	assert.Equal(t, 500, cfg.Store.HistoryLimit)
	assert.Equal(t, 1, cfg.Store.SchemaRevision)
	assert.True(t, cfg.Store.CapResync)
	assert.Equal(t, "ws://car.local:8000/ws/updates", cfg.Ingest.WebSocket.URL)
	assert.Equal(t, 5*time.Second, cfg.Ingest.WebSocket.ReconnectWait)
	assert.Equal(t, []string{"k1", "k2"}, cfg.Auth.APIKeys)
	require.Len(t, cfg.Auth.Users, 1)
	assert.Equal(t, "admin", cfg.Auth.Users[0].Role)

	// viper folds keys to lower case
	rule, ok := cfg.Anomaly.Rules["motor_temp"]
	require.True(t, ok)
	assert.Equal(t, 90.0, rule.Max)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("TELEMETRY_STORE_HISTORY_LIMIT", "250")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 250, cfg.Store.HistoryLimit)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Server: ServerConfig{DataPort: 1, UIPort: 2},
			Store:  StoreConfig{HistoryLimit: 10, SchemaRevision: 2},
			Ingest: IngestConfig{Buffer: 1},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero history", func(c *Config) { c.Store.HistoryLimit = 0 }},
		{"bad revision", func(c *Config) { c.Store.SchemaRevision = 7 }},
		{"same ports", func(c *Config) { c.Server.UIPort = c.Server.DataPort }},
		{"zero buffer", func(c *Config) { c.Ingest.Buffer = 0 }},
		{"inverted rule", func(c *Config) { c.Anomaly.Rules = map[string]Rule{"x": {Min: 5, Max: 1}} }},
	}

	base := valid()
	require.NoError(t, base.Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
