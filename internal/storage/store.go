// internal/storage/store.go
package storage

import (
	"encoding/json"
	"fmt"
	"log"
	"slices"
	"sync"

	"telemetry-dashboard/internal/data"
)

// Op names the kind of mutation that produced a Change.
type Op string

const (
	OpSet    Op = "set"
	OpAppend Op = "append"
	OpReset  Op = "reset"
	OpUpdate Op = "update"
	OpData   Op = "data"
)

// Change is delivered to subscribers after every successful mutation.
type Change struct {
	Op Op
	// Packet is the message that caused the change for OpUpdate and OpData.
	Packet *data.Packet
	// Applied holds only the fields of Packet the store merged: unknown keys,
	// null values and keys of later schema revisions are left out.
	Applied *data.Packet
	// Telemetry is the state after the change. Subscribers share it and
	// must treat it as read-only.
	Telemetry data.Telemetry
}

// Observer receives store bookkeeping, e.g. for metrics.
type Observer interface {
	PacketApplied(t data.PacketType)
	PacketDropped(t data.PacketType, err error)
	HistoryLength(channel string, n int)
}

type Options struct {
	// HistoryLimit bounds every historic series. Defaults to data.DefaultHistoryLimit.
	HistoryLimit int
	// Revision pins the schema; keys from later revisions are ignored.
	Revision data.Revision
	// CapResync applies HistoryLimit to series replaced by data packets too.
	CapResync bool
	Logger    *log.Logger
	Observer  Observer
}

// Store is the telemetry state container. Every mutation clones the current
// state, applies the change to the clone and swaps it in only on success,
// so a failed merge never leaves a half-applied message behind.
type Store struct {
	mu        sync.RWMutex
	state     data.Telemetry
	schema    data.Schema
	limit     int
	capResync bool

	// notifyMu keeps subscriber callbacks in mutation order.
	notifyMu sync.Mutex
	subsMu   sync.Mutex
	subs     map[uint64]func(Change)
	nextSub  uint64

	logger   *log.Logger
	observer Observer
}

func NewStore(opts Options) *Store {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = data.DefaultHistoryLimit
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Observer == nil {
		opts.Observer = noopObserver{}
	}

	return &Store{
		state:     data.InitialTelemetry(),
		schema:    data.NewSchema(opts.Revision),
		limit:     opts.HistoryLimit,
		capResync: opts.CapResync,
		subs:      make(map[uint64]func(Change)),
		logger:    opts.Logger,
		observer:  opts.Observer,
	}
}

// Schema returns the schema the store merges against.
func (s *Store) Schema() data.Schema { return s.schema }

// HistoryLimit returns the per-series sample bound.
func (s *Store) HistoryLimit() int { return s.limit }

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() data.Telemetry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Subscribe registers fn for every subsequent change and returns a func
// that removes it. Subscribers are called in registration order,
// synchronously on the mutating goroutine, and must not mutate the store
// themselves.
func (s *Store) Subscribe(fn func(Change)) (cancel func()) {
	s.subsMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subsMu.Lock()
			delete(s.subs, id)
			s.subsMu.Unlock()
		})
	}
}

// UpdateValue sets a single metric channel.
func UpdateValue[T any](s *Store, key data.MetricKey[T], value T) {
	_ = s.commit(OpSet, nil, nil, func(t *data.Telemetry) error {
		key.Set(&t.Metric, value)
		// value may alias caller-owned slices
		t.Metric = t.Metric.Clone()
		return nil
	})
}

// AppendToArray appends samples to a history channel, keeping the most
// recent HistoryLimit entries.
func AppendToArray[T any](s *Store, key data.HistoricKey[T], items ...T) {
	_ = s.commit(OpAppend, nil, nil, func(t *data.Telemetry) error {
		key.Append(&t.Historic, s.limit, items...)
		return nil
	})
}

// Reset restores the power-on defaults.
func (s *Store) Reset() {
	_ = s.commit(OpReset, nil, nil, func(t *data.Telemetry) error {
		*t = data.InitialTelemetry()
		return nil
	})
	s.logger.Printf("Telemetry store reset to defaults")
}

// Apply routes p to HandleUpdate or HandleData by its type.
func (s *Store) Apply(p *data.Packet) {
	if p == nil {
		return
	}
	switch p.Type {
	case data.PacketUpdate:
		s.HandleUpdate(p)
	case data.PacketData:
		s.HandleData(p)
	default:
		err := fmt.Errorf("%w: %q", data.ErrUnknownPacketType, p.Type)
		s.logger.Printf("Error processing telemetry packet: %v", err)
		s.observer.PacketDropped(p.Type, err)
	}
}

// HandleUpdate merges an incremental packet: known metric keys are
// overwritten and each known history channel gets one new sample. On any
// error the packet is logged and dropped and the state is left unchanged.
func (s *Store) HandleUpdate(p *data.Packet) {
	s.handle(OpUpdate, p, s.mergeUpdate)
}

// HandleData merges a full snapshot: known metric keys are overwritten and
// known history channels are replaced wholesale. Null values are skipped.
func (s *Store) HandleData(p *data.Packet) {
	s.handle(OpData, p, s.mergeData)
}

// accepted collects the raw values a merge actually applied.
type accepted struct {
	metric   map[string]json.RawMessage
	historic map[string]json.RawMessage
}

func (s *Store) handle(op Op, p *data.Packet, merge func(*data.Telemetry, *data.Packet, *accepted) error) {
	if p == nil {
		return
	}
	acc := &accepted{
		metric:   map[string]json.RawMessage{},
		historic: map[string]json.RawMessage{},
	}
	err := s.commit(op, p, acc, func(t *data.Telemetry) error { return merge(t, p, acc) })
	if err != nil {
		s.logger.Printf("Error processing %s packet, dropped: %v", op, err)
		s.observer.PacketDropped(p.Type, err)
		return
	}
	s.observer.PacketApplied(p.Type)
}

func (s *Store) mergeUpdate(t *data.Telemetry, p *data.Packet, acc *accepted) error {
	if err := s.mergeMetric(&t.Metric, p.Metric, acc); err != nil {
		return err
	}

	historic, err := decodeObject(p.Historic)
	if err != nil {
		return fmt.Errorf("historic: %w", err)
	}
	for key, raw := range historic {
		if data.IsNull(raw) {
			continue
		}
		known, err := s.schema.PushSample(&t.Historic, key, raw, s.limit)
		if err != nil {
			return err
		}
		if known {
			acc.historic[key] = raw
		}
	}
	return nil
}

func (s *Store) mergeData(t *data.Telemetry, p *data.Packet, acc *accepted) error {
	if err := s.mergeMetric(&t.Metric, p.Metric, acc); err != nil {
		return err
	}

	historic, err := decodeObject(p.Historic)
	if err != nil {
		return fmt.Errorf("historic: %w", err)
	}
	limit := 0
	if s.capResync {
		limit = s.limit
	}
	for key, raw := range historic {
		if data.IsNull(raw) {
			continue
		}
		known, err := s.schema.ReplaceSeries(&t.Historic, key, raw, limit)
		if err != nil {
			return err
		}
		if known {
			acc.historic[key] = raw
		}
	}
	return nil
}

func (s *Store) mergeMetric(m *data.Metric, raw json.RawMessage, acc *accepted) error {
	metric, err := decodeObject(raw)
	if err != nil {
		return fmt.Errorf("metric: %w", err)
	}
	for key, v := range metric {
		if data.IsNull(v) {
			continue
		}
		known, err := s.schema.SetMetric(m, key, v)
		if err != nil {
			return err
		}
		if known {
			acc.metric[key] = v
		}
	}
	return nil
}

func decodeObject(raw json.RawMessage) (map[string]json.RawMessage, error) {
	if data.IsNull(raw) {
		return nil, nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, err
	}
	return obj, nil
}

func (s *Store) commit(op Op, p *data.Packet, acc *accepted, fn func(*data.Telemetry) error) error {
	s.mu.Lock()
	next := s.state.Clone()
	if err := safely(fn, &next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.state = next
	s.reportHistory(&next)
	change := Change{Op: op, Packet: p, Telemetry: next.Clone()}
	if acc != nil && p != nil {
		applied, err := data.NewPacket(p.Type, acc.metric, acc.historic)
		if err != nil {
			s.logger.Printf("Error encoding applied %s packet: %v", op, err)
		} else {
			change.Applied = applied
		}
	}

	// Take notifyMu before releasing mu so callbacks observe mutation order.
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	s.notify(change)
	return nil
}

func safely(fn func(*data.Telemetry) error, t *data.Telemetry) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during merge: %v", r)
		}
	}()
	return fn(t)
}

func (s *Store) notify(change Change) {
	s.subsMu.Lock()
	ids := make([]uint64, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	subs := make([]func(Change), 0, len(ids))
	for _, id := range ids {
		subs = append(subs, s.subs[id])
	}
	s.subsMu.Unlock()

	for _, fn := range subs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.logger.Printf("Telemetry subscriber panicked: %v", r)
				}
			}()
			fn(change)
		}()
	}
}

func (s *Store) reportHistory(t *data.Telemetry) {
	for _, key := range s.schema.HistoricKeys() {
		if n, ok := s.schema.SeriesLen(&t.Historic, key); ok {
			s.observer.HistoryLength(key, n)
		}
	}
}

type noopObserver struct{}

func (noopObserver) PacketApplied(data.PacketType)        {}
func (noopObserver) PacketDropped(data.PacketType, error) {}
func (noopObserver) HistoryLength(string, int)            {}
