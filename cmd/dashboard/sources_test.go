package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telemetry-dashboard/internal/config"
	"telemetry-dashboard/internal/ingest"
)

func TestBuildSources(t *testing.T) {
	sources, closeAll, err := buildSources(config.IngestConfig{})
	require.NoError(t, err)
	assert.Empty(t, sources)
	closeAll()

	sources, closeAll, err = buildSources(config.IngestConfig{
		WebSocket: config.WebSocketSourceConfig{URL: "ws://car.local:4000/telemetry"},
		Redis:     config.RedisSourceConfig{Addr: "127.0.0.1:6379", Channel: "telemetry"},
	})
	require.NoError(t, err)
	defer closeAll()

	require.Len(t, sources, 2)
	assert.IsType(t, &ingest.WebSocketSource{}, sources[0])
	assert.Equal(t, "redis telemetry", sources[1].Name())
}

func TestBuildSourcesNATSUnreachable(t *testing.T) {
	_, closeAll, err := buildSources(config.IngestConfig{
		NATS: config.NATSSourceConfig{URL: "nats://127.0.0.1:1", Subject: "telemetry.packets"},
	})
	require.Error(t, err)
	closeAll()
}
