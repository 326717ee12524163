// internal/ingest/nats_source.go
package ingest

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
)

const natsPending = 64

// NATSSource subscribes to a subject carrying telemetry packets.
type NATSSource struct {
	Conn    *nats.Conn
	Subject string
}

func (s *NATSSource) Name() string { return "nats " + s.Subject }

func (s *NATSSource) Run(ctx context.Context, out chan<- []byte) error {
	msgs := make(chan *nats.Msg, natsPending)
	sub, err := s.Conn.ChanSubscribe(s.Subject, msgs)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", s.Subject, err)
	}
	defer sub.Unsubscribe()
	if err := s.Conn.Flush(); err != nil {
		return fmt.Errorf("flush subscription %s: %w", s.Subject, err)
	}

	for {
		select {
		case msg := <-msgs:
			select {
			case out <- msg.Data:
			case <-ctx.Done():
				return ctx.Err()
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
