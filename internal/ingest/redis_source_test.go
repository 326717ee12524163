package ingest

import (
	"bytes"
	"context"
	"log"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telemetry-dashboard/internal/storage"
)

// lockedBuffer collects log output written from source goroutines.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRedisSourceFeedsDispatcher(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := storage.NewStore(storage.Options{Logger: quiet})
	src := &RedisSource{Client: client, Channel: "telemetry", ReconnectWait: 20 * time.Millisecond, Logger: quiet}
	d := NewDispatcher(store, 8, quiet, src)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	require.Eventually(t, func() bool {
		return mr.PubSubNumSub("telemetry")["telemetry"] == 1
	}, 2*time.Second, 10*time.Millisecond)

	mr.Publish("telemetry", `{"type":"update","metric":{"Speed":33},"historic":{"Speed":33}}`)
	require.Eventually(t, func() bool {
		return store.Snapshot().Metric.Speed == 33
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []float64{33}, store.Snapshot().Historic.Speed)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not stop")
	}
}

func TestRedisSourceRetriesUntilReachable(t *testing.T) {
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	mr.Close()
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	logs := &lockedBuffer{}
	src := &RedisSource{
		Client:        client,
		Channel:       "telemetry",
		ReconnectWait: 20 * time.Millisecond,
		Logger:        log.New(logs, "", 0),
	}

	out := make(chan []byte, 1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- src.Run(ctx, out) }()

	require.Eventually(t, func() bool {
		return strings.Contains(logs.String(), "retrying")
	}, 3*time.Second, 10*time.Millisecond)

	require.NoError(t, mr.Restart())
	require.Eventually(t, func() bool {
		return mr.PubSubNumSub("telemetry")["telemetry"] == 1
	}, 5*time.Second, 10*time.Millisecond)

	mr.Publish("telemetry", `{"type":"data"}`)
	select {
	case msg := <-out:
		assert.Equal(t, `{"type":"data"}`, string(msg))
	case <-time.After(2 * time.Second):
		t.Fatal("no message after redis came back")
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("source did not stop")
	}
}
