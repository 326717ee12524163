package main

import (
	"fmt"
	"log"

	"github.com/go-redis/redis/v8"
	"github.com/nats-io/nats.go"

	"telemetry-dashboard/internal/config"
	"telemetry-dashboard/internal/ingest"
	"telemetry-dashboard/internal/logging"
)

// buildSources creates the configured upstream feeds. A source with an
// empty address is disabled. The returned func closes broker connections.
func buildSources(cfg config.IngestConfig) ([]ingest.Source, func(), error) {
	var (
		sources []ingest.Source
		closers []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
		closers = nil
	}

	if cfg.WebSocket.URL != "" {
		sources = append(sources, &ingest.WebSocketSource{
			URL:           cfg.WebSocket.URL,
			ReconnectWait: cfg.WebSocket.ReconnectWait,
			Logger:        logging.New("ingest/ws"),
		})
	}

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		closers = append(closers, func() { client.Close() })
		sources = append(sources, &ingest.RedisSource{
			Client:        client,
			Channel:       cfg.Redis.Channel,
			ReconnectWait: cfg.Redis.ReconnectWait,
			Logger:        logging.New("ingest/redis"),
		})
	}

	if cfg.NATS.URL != "" {
		nc, err := nats.Connect(cfg.NATS.URL,
			nats.Name("telemetry-dashboard"),
			nats.MaxReconnects(-1),
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				if err != nil {
					log.Printf("NATS disconnected: %v", err)
				}
			}),
			nats.ReconnectHandler(func(nc *nats.Conn) {
				log.Printf("NATS reconnected to %s", nc.ConnectedUrl())
			}),
		)
		if err != nil {
			closeAll()
			return nil, func() {}, fmt.Errorf("connect nats %s: %w", cfg.NATS.URL, err)
		}
		closers = append(closers, nc.Close)
		sources = append(sources, &ingest.NATSSource{Conn: nc, Subject: cfg.NATS.Subject})
	}

	if len(sources) == 0 {
		log.Println("No upstream sources configured; accepting packets on POST /data only")
	}
	return sources, closeAll, nil
}
