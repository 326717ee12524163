// internal/ingest/websocket_source.go
package ingest

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const defaultReconnectWait = 2 * time.Second

// WebSocketSource reads packets from the upstream telemetry producer. The
// producer sends a data packet on connect and update packets afterwards,
// so every reconnect resyncs the store.
type WebSocketSource struct {
	URL           string
	ReconnectWait time.Duration
	Dialer        *websocket.Dialer
	Logger        *log.Logger
}

func (s *WebSocketSource) Name() string { return "websocket " + s.URL }

func (s *WebSocketSource) Run(ctx context.Context, out chan<- []byte) error {
	wait := s.ReconnectWait
	if wait <= 0 {
		wait = defaultReconnectWait
	}
	logger := s.Logger
	if logger == nil {
		logger = log.Default()
	}

	for {
		err := s.session(ctx, out)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Printf("Upstream %s disconnected: %v; retrying in %s", s.URL, err, wait)

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *WebSocketSource) session(ctx context.Context, out chan<- []byte) error {
	dialer := s.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	conn, _, err := dialer.DialContext(ctx, s.URL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	// Unblock ReadMessage on shutdown.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		select {
		case out <- msg:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
