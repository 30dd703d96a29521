// Prometheus text-format metrics
//
// Provides counters, gauges and histograms keyed by label sets, collected
// in a Registry and rendered in the Prometheus text exposition format.
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package metrics

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MetricType represents the type of metric
type MetricType int

const (
	TypeCounter MetricType = iota
	TypeGauge
	TypeHistogram
)

func (t MetricType) String() string {
	switch t {
	case TypeCounter:
		return "counter"
	case TypeGauge:
		return "gauge"
	case TypeHistogram:
		return "histogram"
	default:
		return "untyped"
	}
}

// Labels represents metric labels as key-value pairs
type Labels map[string]string

func (l Labels) sortedKeys() []string {
	keys := make([]string, 0, len(l))
	for k := range l {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Key returns a canonical identifier for the label set.
func (l Labels) Key() string {
	var sb strings.Builder
	for i, k := range l.sortedKeys() {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(l[k])
	}
	return sb.String()
}

// String returns labels in Prometheus format, "" when empty.
func (l Labels) String() string {
	if len(l) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteByte('{')
	for i, k := range l.sortedKeys() {
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, "%s=\"%s\"", k, escapeLabel(l[k]))
	}
	sb.WriteByte('}')
	return sb.String()
}

// Clone returns a copy of the labels. It never returns nil.
func (l Labels) Clone() Labels {
	out := make(Labels, len(l)+1)
	for k, v := range l {
		out[k] = v
	}
	return out
}

// with returns a copy of l with key set to value.
func (l Labels) with(key, value string) Labels {
	out := l.Clone()
	out[key] = value
	return out
}

func escapeLabel(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Metric is the interface for all metric types
type Metric interface {
	Name() string
	Help() string
	Type() MetricType
	Write(sb *strings.Builder)
}

// family holds one value of type V per label set.
type family[V any] struct {
	name string
	help string

	mu     sync.Mutex
	series map[string]*series[V]
}

type series[V any] struct {
	labels Labels
	value  V
}

func (f *family[V]) Name() string { return f.name }
func (f *family[V]) Help() string { return f.help }

// update runs fn on the value for labels, creating it from init first if
// the label set is new.
func (f *family[V]) update(labels Labels, init func() V, fn func(v *V)) {
	key := labels.Key()
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.series == nil {
		f.series = make(map[string]*series[V])
	}
	s, ok := f.series[key]
	if !ok {
		s = &series[V]{labels: labels.Clone(), value: init()}
		f.series[key] = s
	}
	fn(&s.value)
}

// load returns a copy of the value for labels.
func (f *family[V]) load(labels Labels) (V, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.series[labels.Key()]
	if !ok {
		var zero V
		return zero, false
	}
	return s.value, true
}

// each visits every series in label-key order so output is stable.
func (f *family[V]) each(fn func(labels Labels, v V)) {
	f.mu.Lock()
	keys := make([]string, 0, len(f.series))
	for k := range f.series {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	snapshot := make([]series[V], len(keys))
	for i, k := range keys {
		snapshot[i] = *f.series[k]
	}
	f.mu.Unlock()

	for _, s := range snapshot {
		fn(s.labels, s.value)
	}
}

func writeHeader(sb *strings.Builder, name, help string, t MetricType) {
	fmt.Fprintf(sb, "# HELP %s %s\n# TYPE %s %s\n", name, help, name, t)
}

// Counter is a monotonically increasing metric
type Counter struct {
	family[uint64]
}

// NewCounter creates a new counter metric
func NewCounter(name, help string) *Counter {
	return &Counter{family[uint64]{name: name, help: help}}
}

func (c *Counter) Type() MetricType { return TypeCounter }

// Inc increments the counter by 1
func (c *Counter) Inc(labels Labels) {
	c.Add(labels, 1)
}

// Add increments the counter by delta
func (c *Counter) Add(labels Labels, delta uint64) {
	c.update(labels, func() uint64 { return 0 }, func(v *uint64) { *v += delta })
}

// Get returns the current counter value for labels
func (c *Counter) Get(labels Labels) uint64 {
	v, _ := c.load(labels)
	return v
}

func (c *Counter) Write(sb *strings.Builder) {
	writeHeader(sb, c.name, c.help, TypeCounter)
	c.each(func(labels Labels, v uint64) {
		fmt.Fprintf(sb, "%s%s %d\n", c.name, labels, v)
	})
}

// Gauge is a metric that can go up and down
type Gauge struct {
	family[float64]
}

// NewGauge creates a new gauge metric
func NewGauge(name, help string) *Gauge {
	return &Gauge{family[float64]{name: name, help: help}}
}

func (g *Gauge) Type() MetricType { return TypeGauge }

// Set sets the gauge to value
func (g *Gauge) Set(labels Labels, value float64) {
	g.update(labels, func() float64 { return 0 }, func(v *float64) { *v = value })
}

// Add adds delta to the gauge
func (g *Gauge) Add(labels Labels, delta float64) {
	g.update(labels, func() float64 { return 0 }, func(v *float64) { *v += delta })
}

func (g *Gauge) Inc(labels Labels) { g.Add(labels, 1) }
func (g *Gauge) Dec(labels Labels) { g.Add(labels, -1) }

// Get returns the current gauge value for labels
func (g *Gauge) Get(labels Labels) float64 {
	v, _ := g.load(labels)
	return v
}

func (g *Gauge) Write(sb *strings.Builder) {
	writeHeader(sb, g.name, g.help, TypeGauge)
	g.each(func(labels Labels, v float64) {
		fmt.Fprintf(sb, "%s%s %s\n", g.name, labels, formatFloat(v))
	})
}

// histogramValue keeps per-bucket (non-cumulative) counts.
type histogramValue struct {
	count   uint64
	sum     float64
	buckets []uint64
}

// Histogram tracks the distribution of observations
type Histogram struct {
	family[histogramValue]
	bounds []float64
}

// NewHistogram creates a new histogram metric with the given bucket upper
// bounds.
func NewHistogram(name, help string, buckets []float64) *Histogram {
	sorted := make([]float64, len(buckets))
	copy(sorted, buckets)
	sort.Float64s(sorted)
	return &Histogram{family: family[histogramValue]{name: name, help: help}, bounds: sorted}
}

// DefaultBuckets returns default histogram buckets for latency metrics
func DefaultBuckets() []float64 {
	return []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
}

// ExponentialBuckets creates count buckets starting at start with factor multiplier
func ExponentialBuckets(start, factor float64, count int) []float64 {
	buckets := make([]float64, count)
	for i := range buckets {
		buckets[i] = start
		start *= factor
	}
	return buckets
}

func (h *Histogram) Type() MetricType { return TypeHistogram }

// Observe records a value in the histogram
func (h *Histogram) Observe(labels Labels, value float64) {
	init := func() histogramValue {
		return histogramValue{buckets: make([]uint64, len(h.bounds))}
	}
	h.update(labels, init, func(v *histogramValue) {
		v.count++
		v.sum += value
		if i := sort.SearchFloat64s(h.bounds, value); i < len(h.bounds) {
			v.buckets[i]++
		}
	})
}

// Timer returns a function that records the elapsed time when called
func (h *Histogram) Timer(labels Labels) func() {
	start := time.Now()
	return func() {
		h.Observe(labels, time.Since(start).Seconds())
	}
}

// HistogramSnapshot is a point-in-time copy of one histogram series.
// Buckets are cumulative, keyed by upper bound.
type HistogramSnapshot struct {
	Count   uint64
	Sum     float64
	Buckets map[float64]uint64
}

// GetSnapshot returns a snapshot of histogram values for labels
func (h *Histogram) GetSnapshot(labels Labels) HistogramSnapshot {
	snap := HistogramSnapshot{Buckets: make(map[float64]uint64, len(h.bounds))}
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.series[labels.Key()]
	if !ok {
		return snap
	}
	snap.Count = s.value.count
	snap.Sum = s.value.sum
	var cumulative uint64
	for i, bound := range h.bounds {
		cumulative += s.value.buckets[i]
		snap.Buckets[bound] = cumulative
	}
	return snap
}

func (h *Histogram) Write(sb *strings.Builder) {
	writeHeader(sb, h.name, h.help, TypeHistogram)

	h.mu.Lock()
	keys := make([]string, 0, len(h.series))
	for k := range h.series {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	type row struct {
		labels  Labels
		count   uint64
		sum     float64
		buckets []uint64
	}
	rows := make([]row, len(keys))
	for i, k := range keys {
		s := h.series[k]
		rows[i] = row{s.labels, s.value.count, s.value.sum, append([]uint64(nil), s.value.buckets...)}
	}
	h.mu.Unlock()

	for _, r := range rows {
		var cumulative uint64
		for i, bound := range h.bounds {
			cumulative += r.buckets[i]
			fmt.Fprintf(sb, "%s_bucket%s %d\n", h.name, r.labels.with("le", formatFloat(bound)), cumulative)
		}
		fmt.Fprintf(sb, "%s_bucket%s %d\n", h.name, r.labels.with("le", "+Inf"), r.count)
		fmt.Fprintf(sb, "%s_sum%s %s\n", h.name, r.labels, formatFloat(r.sum))
		fmt.Fprintf(sb, "%s_count%s %d\n", h.name, r.labels, r.count)
	}
}

// Registry holds registered metrics in registration order
type Registry struct {
	mu      sync.RWMutex
	metrics map[string]Metric
	order   []string
}

// NewRegistry creates a new metrics registry
func NewRegistry() *Registry {
	return &Registry{
		metrics: make(map[string]Metric),
	}
}

// Register adds a metric to the registry
func (r *Registry) Register(metric Metric) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := metric.Name()
	if _, exists := r.metrics[name]; exists {
		return fmt.Errorf("metric %q already registered", name)
	}
	r.metrics[name] = metric
	r.order = append(r.order, name)
	return nil
}

// MustRegister adds a metric and panics on error
func (r *Registry) MustRegister(metric Metric) {
	if err := r.Register(metric); err != nil {
		panic(err)
	}
}

// Get returns a metric by name
func (r *Registry) Get(name string) Metric {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.metrics[name]
}

// Gather collects all metrics in Prometheus text format
func (r *Registry) Gather() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sb strings.Builder
	for _, name := range r.order {
		r.metrics[name].Write(&sb)
	}
	return sb.String()
}
