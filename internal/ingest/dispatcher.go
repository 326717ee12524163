// internal/ingest/dispatcher.go
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"

	"telemetry-dashboard/internal/data"
	"telemetry-dashboard/internal/metrics"
)

// Source delivers raw telemetry payloads, one JSON packet per message.
// Run blocks until ctx is cancelled or the source fails for good.
type Source interface {
	Name() string
	Run(ctx context.Context, out chan<- []byte) error
}

// Applier is the store side of the dispatcher.
type Applier interface {
	Apply(p *data.Packet)
	Reset()
}

// Dispatcher fans in every source onto a single goroutine that parses and
// applies packets in arrival order, so the store has exactly one mutator.
type Dispatcher struct {
	store   Applier
	sources []Source
	queue   chan []byte
	resets  chan chan struct{}
	logger  *log.Logger
}

func NewDispatcher(store Applier, buffer int, logger *log.Logger, sources ...Source) *Dispatcher {
	if buffer <= 0 {
		buffer = 1
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Dispatcher{
		store:   store,
		sources: sources,
		queue:   make(chan []byte, buffer),
		resets:  make(chan chan struct{}),
		logger:  logger,
	}
}

// Submit queues a payload received outside the configured sources, e.g.
// over HTTP.
func (d *Dispatcher) Submit(ctx context.Context, raw []byte) error {
	select {
	case d.queue <- raw:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Reset clears the store from the apply goroutine and waits until it is
// done. It fails if Run is not consuming before ctx expires.
func (d *Dispatcher) Reset(ctx context.Context) error {
	done := make(chan struct{})
	select {
	case d.resets <- done:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run starts every source and the apply loop. It returns when ctx is
// cancelled or a source fails; the first failure cancels the rest.
func (d *Dispatcher) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, src := range d.sources {
		src := src
		g.Go(func() error {
			d.logger.Printf("Starting ingest source %s", src.Name())
			err := src.Run(ctx, d.queue)
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("ingest source %s: %w", src.Name(), err)
			}
			d.logger.Printf("Ingest source %s stopped", src.Name())
			return nil
		})
	}

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case raw := <-d.queue:
				d.dispatch(raw)
			case done := <-d.resets:
				d.store.Reset()
				close(done)
			}
		}
	})

	return g.Wait()
}

func (d *Dispatcher) dispatch(raw []byte) {
	packet, err := data.Parse(raw)
	if err != nil {
		d.logger.Printf("Dropping unparseable telemetry payload: %v", err)
		metrics.ParseFailed()
		return
	}
	d.store.Apply(packet)
}
