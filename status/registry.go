// Package status is the diagnostics registry: named atomic metrics written
// by the loop, the world and the bridge, read by the HUD overlay
package status

import (
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
)

// Well-known metric names
const (
	MetricFPS        = "engine.fps"
	MetricUpdates    = "engine.updates"
	MetricSubSteps   = "physics.substeps"
	MetricBodies     = "physics.bodies"
	MetricState      = "session.state"
	MetricLevel      = "session.level"
	MetricElapsed    = "session.elapsed"
	MetricInputMode  = "input.mode"
	MetricPeers      = "bridge.peers"
	MetricRejected   = "bridge.rejected"
	MetricCues       = "audio.cues"
	MetricAudioMuted = "audio.muted"
)

// Collector copies a subsystem's counters into the registry
type Collector func(r *Registry)

// Registry is the central metrics facade
type Registry struct {
	Bools   *MetricMap[atomic.Bool]
	Ints    *MetricMap[atomic.Int64]
	Floats  *MetricMap[Float]
	Strings *MetricMap[Text]

	mu         sync.Mutex
	collectors []Collector
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		Bools:   NewMetricMap[atomic.Bool](),
		Ints:    NewMetricMap[atomic.Int64](),
		Floats:  NewMetricMap[Float](),
		Strings: NewMetricMap[Text](),
	}
}

// TotalCount returns the number of metrics across all kinds
func (r *Registry) TotalCount() int {
	return r.Bools.Count() + r.Ints.Count() + r.Floats.Count() + r.Strings.Count()
}

// Register adds a collector run by Collect
func (r *Registry) Register(c Collector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.collectors = append(r.collectors, c)
}

// Collect runs every collector in registration order
func (r *Registry) Collect() {
	r.mu.Lock()
	cs := slices.Clone(r.collectors)
	r.mu.Unlock()
	for _, c := range cs {
		c(r)
	}
}

// Metric is one formatted entry of a snapshot
type Metric struct {
	Name  string
	Value string
}

// Snapshot formats every metric, sorted by name
func (r *Registry) Snapshot() []Metric {
	out := make([]Metric, 0, r.TotalCount())
	r.Bools.Range(func(k string, v *atomic.Bool) {
		out = append(out, Metric{k, strconv.FormatBool(v.Load())})
	})
	r.Ints.Range(func(k string, v *atomic.Int64) {
		out = append(out, Metric{k, strconv.FormatInt(v.Load(), 10)})
	})
	r.Floats.Range(func(k string, v *Float) {
		out = append(out, Metric{k, strconv.FormatFloat(v.Get(), 'f', 1, 64)})
	})
	r.Strings.Range(func(k string, v *Text) {
		out = append(out, Metric{k, v.Load()})
	})
	slices.SortFunc(out, func(a, b Metric) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		}
		return 0
	})
	return out
}

// Lines formats the snapshot as "name=value" pairs packed into rows of at
// most width bytes
func (r *Registry) Lines(width int) []string {
	var lines []string
	line := ""
	for _, m := range r.Snapshot() {
		entry := m.Name + "=" + m.Value
		switch {
		case line == "":
			line = entry
		case len(line)+1+len(entry) <= width:
			line += " " + entry
		default:
			lines = append(lines, line)
			line = entry
		}
	}
	if line != "" {
		lines = append(lines, line)
	}
	return lines
}
