// internal/anomaly/detector.go
package anomaly

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"telemetry-dashboard/internal/config"
	"telemetry-dashboard/internal/data"
)

// condition is one alertable state found in a metric snapshot.
type condition struct {
	severity string
	message  string
	value    float64
}

// Detector checks metric snapshots against range rules and the vehicle's
// fault flags. Alerts are edge-triggered: a condition alerts once when it
// appears and re-arms after it clears.
type Detector struct {
	mu     sync.Mutex
	schema data.Schema
	rules  map[string]config.Rule // keyed by wire channel name
	active map[string]bool
	now    func() time.Time
}

// NewDetector resolves rule names against the schema. Config keys arrive
// lower-cased from viper, so they are matched case-insensitively.
func NewDetector(cfg config.AnomalyConfig, schema data.Schema) *Detector {
	byLower := make(map[string]config.Rule, len(cfg.Rules))
	for name, rule := range cfg.Rules {
		byLower[strings.ToLower(name)] = rule
	}

	rules := make(map[string]config.Rule)
	for _, key := range schema.MetricKeys() {
		if rule, ok := byLower[strings.ToLower(key)]; ok {
			rules[key] = rule
			delete(byLower, strings.ToLower(key))
		}
	}
	for name := range byLower {
		log.Printf("Warning: anomaly rule for unknown channel %q ignored", name)
	}

	return &Detector{
		schema: schema,
		rules:  rules,
		active: make(map[string]bool),
		now:    time.Now,
	}
}

// Check returns alerts for conditions that became true since the last call.
func (d *Detector) Check(m data.Metric) []data.Alert {
	current := d.conditions(&m)

	d.mu.Lock()
	defer d.mu.Unlock()

	ids := make([]string, 0, len(current))
	for id := range current {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var alerts []data.Alert
	ts := d.now()
	for _, id := range ids {
		if d.active[id] {
			continue
		}
		c := current[id]
		alerts = append(alerts, data.Alert{
			Timestamp: ts,
			Severity:  c.severity,
			Message:   c.message,
			Metric:    id,
			Value:     c.value,
		})
	}

	d.active = make(map[string]bool, len(current))
	for id := range current {
		d.active[id] = true
	}
	return alerts
}

func (d *Detector) conditions(m *data.Metric) map[string]condition {
	out := make(map[string]condition)

	for key, rule := range d.rules {
		v, ok := d.schema.Scalar(m, key)
		if !ok {
			continue
		}
		if v < rule.Min || v > rule.Max {
			out[key] = condition{
				severity: data.SeverityWarn,
				message:  fmt.Sprintf("Anomaly detected for %s: Value %.2f is outside range [%.2f, %.2f]", key, v, rule.Min, rule.Max),
				value:    v,
			}
		}
	}

	addFlags(out, data.MetricBMSFlags.Name(), m.BMSFlags, data.SeverityCritical, nil)
	addFlags(out, data.MetricMotorErrors.Name(), m.MotorErrors, data.SeverityCritical, nil)
	addFlags(out, data.MetricContactorFlags.Name(), m.ContactorFlags, data.SeverityCritical, func(name string) bool {
		return strings.HasSuffix(name, "_error")
	})
	addFlags(out, data.MetricMotorLimits.Name(), m.MotorLimits, data.SeverityWarn, nil)
	for i, mppt := range m.MPPTs {
		addFlags(out, fmt.Sprintf("%s[%d].flags", data.MetricMPPTs.Name(), i), mppt.Flags, data.SeverityWarn, func(name string) bool {
			// battery_full is a normal charging state
			return name != "battery_full"
		})
	}
	return out
}

func addFlags(out map[string]condition, group string, flags any, severity string, keep func(string) bool) {
	for _, name := range data.ActiveFlags(flags) {
		if keep != nil && !keep(name) {
			continue
		}
		id := group + "." + name
		out[id] = condition{
			severity: severity,
			message:  fmt.Sprintf("%s raised %s", group, name),
		}
	}
}
