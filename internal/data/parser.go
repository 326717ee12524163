// internal/data/parser.go
package data

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// PacketType distinguishes incremental pushes from full resyncs.
type PacketType string

const (
	// PacketUpdate carries at most one new sample per channel.
	PacketUpdate PacketType = "update"
	// PacketData carries a full snapshot, e.g. on reconnect.
	PacketData PacketType = "data"
)

var (
	ErrEmptyPayload      = errors.New("empty payload")
	ErrUnknownPacketType = errors.New("unknown packet type")
)

// Packet is an inbound telemetry message. Metric and Historic stay raw
// until the store merges them against its schema.
type Packet struct {
	Type     PacketType      `json:"type"`
	Metric   json.RawMessage `json:"metric,omitempty"`
	Historic json.RawMessage `json:"historic,omitempty"`

	// Raw is the payload as received, kept for forwarding.
	Raw []byte `json:"-"`
}

// Parse decodes the envelope of a telemetry message.
func Parse(rawData []byte) (*Packet, error) {
	if len(bytes.TrimSpace(rawData)) == 0 {
		return nil, ErrEmptyPayload
	}

	var p Packet
	if err := json.Unmarshal(rawData, &p); err != nil {
		return nil, fmt.Errorf("decode packet: %w", err)
	}

	switch p.Type {
	case PacketUpdate, PacketData:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPacketType, p.Type)
	}

	p.Raw = rawData
	return &p, nil
}

// NewPacket builds a packet from decoded fields and fills Raw with its
// wire encoding. Nil maps encode as empty objects.
func NewPacket(t PacketType, metric, historic map[string]json.RawMessage) (*Packet, error) {
	if metric == nil {
		metric = map[string]json.RawMessage{}
	}
	if historic == nil {
		historic = map[string]json.RawMessage{}
	}
	m, err := json.Marshal(metric)
	if err != nil {
		return nil, fmt.Errorf("encode metric: %w", err)
	}
	h, err := json.Marshal(historic)
	if err != nil {
		return nil, fmt.Errorf("encode historic: %w", err)
	}

	p := &Packet{Type: t, Metric: m, Historic: h}
	if p.Raw, err = json.Marshal(p); err != nil {
		return nil, fmt.Errorf("encode packet: %w", err)
	}
	return p, nil
}

// IsNull reports whether raw is absent or the JSON literal null.
func IsNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// EncodeData renders t as a full-resync packet.
func EncodeData(t Telemetry) ([]byte, error) {
	return json.Marshal(struct {
		Type     PacketType `json:"type"`
		Metric   Metric     `json:"metric"`
		Historic Historic   `json:"historic"`
	}{PacketData, t.Metric, t.Historic})
}

// EncodeAlert wraps an alert in the envelope the dashboard listens for.
func EncodeAlert(alert Alert) ([]byte, error) {
	return json.Marshal(map[string]interface{}{"type": "alert", "payload": alert})
}
