package websocket

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telemetry-dashboard/internal/data"
	"telemetry-dashboard/internal/storage"
)

func startHub(t *testing.T, initial data.Telemetry) (*Hub, string) {
	t.Helper()
	hub := NewHub(initial, log.New(io.Discard, "", 0))
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewClient(hub, conn)
		if !hub.RegisterClient(client) {
			conn.Close()
			return
		}
		go client.WritePump()
		go client.ReadPump()
	}))

	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readPacket(t *testing.T, conn *websocket.Conn) (string, []byte) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var env struct {
		Type string `json:"type"`
	}
	require.NoError(t, json.Unmarshal(msg, &env))
	return env.Type, msg
}

func TestHubSendsInitialSnapshot(t *testing.T) {
	initial := data.InitialTelemetry()
	data.MetricPackVoltage.Set(&initial.Metric, 96.5)
	_, url := startHub(t, initial)

	conn := dial(t, url)
	typ, msg := readPacket(t, conn)
	assert.Equal(t, "data", typ)

	p, err := data.Parse(msg)
	require.NoError(t, err)
	assert.Contains(t, string(p.Metric), `"Pack_Voltage":96.5`)
}

func TestHubForwardsChanges(t *testing.T) {
	hub, url := startHub(t, data.InitialTelemetry())
	conn := dial(t, url)
	typ, _ := readPacket(t, conn)
	require.Equal(t, "data", typ)

	raw := `{"type":"update","metric":{"Speed":40},"historic":{"Speed":40}}`
	pkt, err := data.Parse([]byte(raw))
	require.NoError(t, err)

	state := data.InitialTelemetry()
	data.HistoricSpeed.Append(&state.Historic, 0, 40)
	hub.OnChange(storage.Change{Op: storage.OpUpdate, Packet: pkt, Applied: pkt, Telemetry: state})

	typ, msg := readPacket(t, conn)
	assert.Equal(t, "update", typ)
	assert.JSONEq(t, raw, string(msg))

	hub.OnChange(storage.Change{Op: storage.OpReset, Telemetry: data.InitialTelemetry()})
	typ, _ = readPacket(t, conn)
	assert.Equal(t, "data", typ)

	hub.BroadcastAlert(data.Alert{Severity: data.SeverityCritical, Metric: "bmsFlags.cell_over_temp"})
	typ, msg = readPacket(t, conn)
	assert.Equal(t, "alert", typ)
	assert.Contains(t, string(msg), "cell_over_temp")
}

func TestHubForwardsOnlyAppliedFields(t *testing.T) {
	store := storage.NewStore(storage.Options{
		Revision: data.RevisionBase,
		Logger:   log.New(io.Discard, "", 0),
	})
	hub, url := startHub(t, store.Snapshot())
	store.Subscribe(hub.OnChange)

	conn := dial(t, url)
	typ, _ := readPacket(t, conn)
	require.Equal(t, "data", typ)

	pkt, err := data.Parse([]byte(`{"type":"update",` +
		`"metric":{"Speed":null,"bogus":1,"Speed2":4},` +
		`"historic":{"Latitudes":13.0,"Speed":4}}`))
	require.NoError(t, err)
	store.Apply(pkt)

	snap := store.Snapshot()
	assert.Empty(t, snap.Historic.Latitudes)
	assert.Equal(t, 0.0, snap.Metric.Speed)

	typ, msg := readPacket(t, conn)
	assert.Equal(t, "update", typ)
	assert.JSONEq(t, `{"type":"update","metric":{"Speed2":4},"historic":{"Speed":4}}`, string(msg))
}

func TestHubSnapshotFollowsBroadcasts(t *testing.T) {
	hub, url := startHub(t, data.InitialTelemetry())
	first := dial(t, url)
	_, _ = readPacket(t, first)

	state := data.InitialTelemetry()
	data.HistoricSpeed.Append(&state.Historic, 0, 1, 2, 3)
	hub.OnChange(storage.Change{Op: storage.OpData, Telemetry: state})
	_, _ = readPacket(t, first)

	late := dial(t, url)
	typ, msg := readPacket(t, late)
	require.Equal(t, "data", typ)

	var got data.Telemetry
	require.NoError(t, json.Unmarshal(msg, &got))
	assert.Equal(t, []float64{1, 2, 3}, got.Historic.Speed)
}
