// Toolpath parser metrics
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package metrics

import (
	"gcode-toolpath/pkg/toolpath"
)

// Parse outcomes used as the "result" label.
const (
	ResultCompleted = "completed"
	ResultCanceled  = "canceled"
)

// ParserMetrics counts what the toolpath builder produces. It implements
// toolpath.Recorder.
type ParserMetrics struct {
	Lines       *Counter
	Vertices    *Counter
	Layers      *Counter
	ToolChanges *Counter
	Parses      *Counter
	Duration    *Histogram
	Bytes       *Gauge

	registry *Registry
}

var _ toolpath.Recorder = (*ParserMetrics)(nil)

// NewParserMetrics creates the parser metrics in a fresh registry.
func NewParserMetrics() *ParserMetrics {
	m := &ParserMetrics{
		Lines:       NewCounter("gcode_lines_total", "G-code lines processed"),
		Vertices:    NewCounter("gcode_vertices_total", "Deposition segments produced"),
		Layers:      NewCounter("gcode_layers_total", "Layers opened"),
		ToolChanges: NewCounter("gcode_tool_changes_total", "Tool select commands processed"),
		Parses:      NewCounter("gcode_parses_total", "Parse runs by result"),
		Duration: NewHistogram("gcode_parse_duration_seconds", "Time spent parsing a program",
			ExponentialBuckets(0.001, 4, 8)),
		Bytes:    NewGauge("gcode_parse_bytes", "Size of the most recently parsed program"),
		registry: NewRegistry(),
	}
	for _, metric := range []Metric{m.Lines, m.Vertices, m.Layers, m.ToolChanges, m.Parses, m.Duration, m.Bytes} {
		m.registry.MustRegister(metric)
	}
	return m
}

// Registry returns the registry holding the parser metrics.
func (m *ParserMetrics) Registry() *Registry { return m.registry }

// RecordParse adds one parse run.
func (m *ParserMetrics) RecordParse(s toolpath.Stats) {
	m.Lines.Add(nil, uint64(s.Lines))
	m.Vertices.Add(nil, uint64(s.Vertices))
	m.Layers.Add(nil, uint64(s.Layers))
	m.ToolChanges.Add(nil, uint64(s.ToolChanges))

	result := ResultCompleted
	if s.Canceled {
		result = ResultCanceled
	}
	m.Parses.Inc(Labels{"result": result})
	m.Duration.Observe(nil, s.Duration.Seconds())
	m.Bytes.Set(nil, float64(s.Bytes))
}

// Gather renders the parser metrics in Prometheus text format.
func (m *ParserMetrics) Gather() string {
	return m.registry.Gather()
}
