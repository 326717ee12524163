package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telemetry-dashboard/internal/data"
	"telemetry-dashboard/internal/storage"
)

var quiet = log.New(io.Discard, "", 0)

type sliceSource struct {
	name     string
	payloads []string
}

func (s *sliceSource) Name() string { return s.name }

func (s *sliceSource) Run(ctx context.Context, out chan<- []byte) error {
	for _, p := range s.payloads {
		select {
		case out <- []byte(p):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	<-ctx.Done()
	return ctx.Err()
}

type failingSource struct{}

func (failingSource) Name() string { return "broken" }
func (failingSource) Run(context.Context, chan<- []byte) error {
	return errors.New("bad credentials")
}

type recordingApplier struct {
	mu      sync.Mutex
	packets []*data.Packet
	resets  int
}

func (r *recordingApplier) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resets++
}

func (r *recordingApplier) Apply(p *data.Packet) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.packets = append(r.packets, p)
}

func (r *recordingApplier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.packets)
}

func TestDispatcherAppliesInOrder(t *testing.T) {
	store := storage.NewStore(storage.Options{Logger: quiet})
	var payloads []string
	for i := 1; i <= 20; i++ {
		payloads = append(payloads, fmt.Sprintf(`{"type":"update","historic":{"Speed":%d}}`, i))
	}
	src := &sliceSource{name: "seq", payloads: payloads}

	d := NewDispatcher(store, 4, quiet, src)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	require.Eventually(t, func() bool {
		return len(store.Snapshot().Historic.Speed) == 20
	}, 2*time.Second, 10*time.Millisecond)

	speed := store.Snapshot().Historic.Speed
	for i, v := range speed {
		assert.Equal(t, float64(i+1), v)
	}

	cancel()
	assert.NoError(t, <-done)
}

func TestDispatcherDropsUnparseable(t *testing.T) {
	applier := &recordingApplier{}
	src := &sliceSource{name: "mixed", payloads: []string{
		`not json`,
		`{"type":"history"}`,
		`{"type":"data","historic":{}}`,
	}}

	d := NewDispatcher(applier, 8, quiet, src)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	require.Eventually(t, func() bool { return applier.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, data.PacketData, applier.packets[0].Type)
}

func TestDispatcherSubmit(t *testing.T) {
	applier := &recordingApplier{}
	d := NewDispatcher(applier, 1, quiet)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	require.NoError(t, d.Submit(ctx, []byte(`{"type":"update","metric":{"Speed":1}}`)))
	require.Eventually(t, func() bool { return applier.count() == 1 }, 2*time.Second, 10*time.Millisecond)

	// not running: the second payload cannot be queued
	full := NewDispatcher(applier, 1, quiet)
	require.NoError(t, full.Submit(context.Background(), []byte(`{}`)))
	stopped, stop := context.WithCancel(context.Background())
	stop()
	assert.ErrorIs(t, full.Submit(stopped, []byte(`{}`)), context.Canceled)
}

func TestDispatcherReset(t *testing.T) {
	store := storage.NewStore(storage.Options{Logger: quiet})
	d := NewDispatcher(store, 4, quiet)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	require.NoError(t, d.Submit(ctx, []byte(`{"type":"update","historic":{"Speed":7}}`)))
	require.Eventually(t, func() bool {
		return len(store.Snapshot().Historic.Speed) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, d.Reset(ctx))
	assert.Equal(t, data.InitialTelemetry(), store.Snapshot())

	idle := NewDispatcher(&recordingApplier{}, 1, quiet)
	short, stop := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer stop()
	assert.ErrorIs(t, idle.Reset(short), context.DeadlineExceeded)
}

func TestDispatcherSourceFailureStopsRun(t *testing.T) {
	d := NewDispatcher(&recordingApplier{}, 1, quiet, failingSource{})
	err := d.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad credentials")
}

func TestWebSocketSourceResyncsOnReconnect(t *testing.T) {
	var (
		mu    sync.Mutex
		conns int
	)
	upgrader := websocket.Upgrader{}
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		mu.Lock()
		conns++
		n := conns
		mu.Unlock()

		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"data","historic":{"Speed":[1,2]}}`))
		conn.WriteMessage(websocket.TextMessage, []byte(fmt.Sprintf(`{"type":"update","historic":{"Speed":%d}}`, 10*n)))
		if n == 1 {
			return // drop the first session
		}
		conn.ReadMessage()
	}))
	defer upstream.Close()

	store := storage.NewStore(storage.Options{Logger: quiet})
	src := &WebSocketSource{
		URL:           "ws" + strings.TrimPrefix(upstream.URL, "http"),
		ReconnectWait: 20 * time.Millisecond,
		Logger:        quiet,
	}
	d := NewDispatcher(store, 8, quiet, src)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	require.Eventually(t, func() bool {
		speed := store.Snapshot().Historic.Speed
		return len(speed) == 3 && speed[2] == 20
	}, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, []float64{1, 2, 20}, store.Snapshot().Historic.Speed)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not stop")
	}
}
