// internal/data/schema.go
package data

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
)

// Revision identifies a version of the telemetry schema. Revisions are
// additive: every field of revision N exists in N+1.
type Revision int

const (
	// RevisionBase is the first dashboard schema.
	RevisionBase Revision = 1
	// RevisionGPS adds the Latitudes and Longitudes history channels.
	RevisionGPS Revision = 2

	LatestRevision = RevisionGPS
)

func (r Revision) Valid() bool {
	return r >= RevisionBase && r <= LatestRevision
}

type metricField struct {
	since  Revision
	decode func(*Metric, json.RawMessage) error
	scalar func(*Metric) (float64, bool)
}

type historicField struct {
	since   Revision
	push    func(*Historic, json.RawMessage, int) error
	replace func(*Historic, json.RawMessage, int) error
	length  func(*Historic) int
}

// Field registries, keyed by wire name. Populated by the key declarations
// in keys.go during package initialization.
var (
	metricFields   = map[string]metricField{}
	historicFields = map[string]historicField{}
)

// MetricKey is a typed handle on one metric channel.
type MetricKey[T any] struct {
	name string
	ref  func(*Metric) *T
}

func (k MetricKey[T]) Name() string { return k.name }
func (k MetricKey[T]) Get(m *Metric) T { return *k.ref(m) }
func (k MetricKey[T]) Set(m *Metric, v T) { *k.ref(m) = v }

// HistoricKey is a typed handle on one history channel whose samples are T.
type HistoricKey[T any] struct {
	name string
	ref  func(*Historic) *[]T
}

func (k HistoricKey[T]) Name() string { return k.name }
func (k HistoricKey[T]) Get(h *Historic) []T { return *k.ref(h) }
func (k HistoricKey[T]) Set(h *Historic, v []T) { *k.ref(h) = v }

// Append adds items to the series and keeps at most limit entries.
// A limit of zero or less disables truncation.
func (k HistoricKey[T]) Append(h *Historic, limit int, items ...T) {
	p := k.ref(h)
	*p = Bounded(append(*p, items...), limit)
}

// Bounded returns the most recent limit entries of s.
func Bounded[T any](s []T, limit int) []T {
	if limit > 0 && len(s) > limit {
		return s[len(s)-limit:]
	}
	return s
}

func newMetricKey[T any](name string, since Revision, ref func(*Metric) *T) MetricKey[T] {
	metricFields[name] = metricField{
		since: since,
		decode: func(m *Metric, raw json.RawMessage) error {
			var v T
			if err := json.Unmarshal(exactKeys(raw, reflect.TypeOf(v)), &v); err != nil {
				return fmt.Errorf("metric %q: %w", name, err)
			}
			*ref(m) = v
			return nil
		},
		scalar: func(m *Metric) (float64, bool) {
			v, ok := any(*ref(m)).(float64)
			return v, ok
		},
	}
	return MetricKey[T]{name: name, ref: ref}
}

func newHistoricKey[T any](name string, since Revision, ref func(*Historic) *[]T) HistoricKey[T] {
	key := HistoricKey[T]{name: name, ref: ref}
	historicFields[name] = historicField{
		since: since,
		push: func(h *Historic, raw json.RawMessage, limit int) error {
			var v T
			if err := json.Unmarshal(raw, &v); err != nil {
				return fmt.Errorf("historic %q sample: %w", name, err)
			}
			key.Append(h, limit, v)
			return nil
		},
		replace: func(h *Historic, raw json.RawMessage, limit int) error {
			var v []T
			if err := json.Unmarshal(raw, &v); err != nil {
				return fmt.Errorf("historic %q series: %w", name, err)
			}
			if v == nil {
				v = []T{}
			}
			*ref(h) = Bounded(v, limit)
			return nil
		},
		length: func(h *Historic) int { return len(*ref(h)) },
	}
	return key
}

// Schema resolves wire keys against the field registry for one revision.
// Keys introduced after the revision are treated as unknown.
type Schema struct {
	Revision Revision
}

// NewSchema returns a schema pinned to rev, falling back to the latest
// revision when rev is not valid.
func NewSchema(rev Revision) Schema {
	if !rev.Valid() {
		rev = LatestRevision
	}
	return Schema{Revision: rev}
}

func (s Schema) metric(key string) (metricField, bool) {
	f, ok := metricFields[key]
	if !ok || f.since > s.Revision {
		return metricField{}, false
	}
	return f, true
}

func (s Schema) historic(key string) (historicField, bool) {
	f, ok := historicFields[key]
	if !ok || f.since > s.Revision {
		return historicField{}, false
	}
	return f, true
}

// SetMetric decodes raw into the metric field named key. The bool result
// reports whether the key belongs to the schema; unknown keys are not errors.
func (s Schema) SetMetric(m *Metric, key string, raw json.RawMessage) (bool, error) {
	f, ok := s.metric(key)
	if !ok {
		return false, nil
	}
	return true, f.decode(m, raw)
}

// PushSample decodes a single sample and appends it to the series named key.
func (s Schema) PushSample(h *Historic, key string, raw json.RawMessage, limit int) (bool, error) {
	f, ok := s.historic(key)
	if !ok {
		return false, nil
	}
	return true, f.push(h, raw, limit)
}

// ReplaceSeries decodes a full series and substitutes it for the one named key.
func (s Schema) ReplaceSeries(h *Historic, key string, raw json.RawMessage, limit int) (bool, error) {
	f, ok := s.historic(key)
	if !ok {
		return false, nil
	}
	return true, f.replace(h, raw, limit)
}

// Scalar returns the value of a numeric metric channel.
func (s Schema) Scalar(m *Metric, key string) (float64, bool) {
	f, ok := s.metric(key)
	if !ok {
		return 0, false
	}
	return f.scalar(m)
}

// SeriesLen returns the number of samples held by the series named key.
func (s Schema) SeriesLen(h *Historic, key string) (int, bool) {
	f, ok := s.historic(key)
	if !ok {
		return 0, false
	}
	return f.length(h), true
}

func (s Schema) MetricKeys() []string {
	keys := make([]string, 0, len(metricFields))
	for k, f := range metricFields {
		if f.since <= s.Revision {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func (s Schema) HistoricKeys() []string {
	keys := make([]string, 0, len(historicFields))
	for k, f := range historicFields {
		if f.since <= s.Revision {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
