// Toolpath builder tests
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package toolpath

import (
	"bytes"
	"context"
	"io"
	"reflect"
	"strings"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"gcode-toolpath/pkg/log"
)

func quietOptions() Options {
	opts := DefaultOptions()
	logger := log.New("test")
	logger.SetWriter(io.Discard)
	opts.Logger = logger
	return opts
}

func parse(t *testing.T, program string) *Toolpath {
	t.Helper()
	b := NewBuilderWithOptions([]byte(program), quietOptions())
	return b.Parse(context.Background(), nil)
}

func checkInvariants(t *testing.T, tp *Toolpath) {
	t.Helper()

	sum := 0
	next := 0
	for i, l := range tp.Layers() {
		if l.Vertex < next {
			t.Errorf("layer %d starts at %d, overlapping previous layer ending at %d", i, l.Vertex, next)
		}
		next = l.End()
		sum += l.Count
	}
	if sum != tp.VertexCount() {
		t.Errorf("layer counts sum to %d, have %d vertices", sum, tp.VertexCount())
	}

	for i, l := range tp.Lines() {
		if l.Index != i {
			t.Errorf("line %d has index %d", i, l.Index)
		}
		if l.Vertex >= tp.VertexCount() {
			t.Errorf("line %d references vertex %d of %d", i, l.Vertex, tp.VertexCount())
		}
		if l.Layer >= tp.LayerCount() {
			t.Errorf("line %d references layer %d of %d", i, l.Layer, tp.LayerCount())
		}
	}

	tools := tp.Tools()
	for i := 1; i < len(tools); i++ {
		if tools[i] <= tools[i-1] {
			t.Errorf("tool registry not strictly sorted: %v", tools)
		}
	}
}

func TestBuilderLayers(t *testing.T) {
	tp := parse(t, "G90\nG1 X10 Y0 Z0 E1\nG1 X10 Y10 Z0 E1\nG1 X0 Y0 Z1 E1")
	checkInvariants(t, tp)

	if tp.LineCount() != 4 || tp.VertexCount() != 3 {
		t.Fatalf("expected 4 lines and 3 vertices, got %d and %d", tp.LineCount(), tp.VertexCount())
	}
	wantLayers := []Layer{{Vertex: 0, Count: 2}, {Vertex: 2, Count: 1}}
	if !reflect.DeepEqual(tp.Layers(), wantLayers) {
		t.Errorf("Layers() = %v, want %v", tp.Layers(), wantLayers)
	}
	if tp.ToolCount() != 0 {
		t.Errorf("expected no tools, got %v", tp.Tools())
	}

	wantLines := []Line{
		{Index: 0, Vertex: -1, Layer: -1, Tool: NoTool, Text: "G90"},
		{Index: 1, Vertex: 0, Layer: 0, Tool: NoTool, Text: "G1 X10 Y0 Z0 E1"},
		{Index: 2, Vertex: 1, Layer: 0, Tool: NoTool, Text: "G1 X10 Y10 Z0 E1"},
		{Index: 3, Vertex: 2, Layer: 1, Tool: NoTool, Text: "G1 X0 Y0 Z1 E1"},
	}
	if !reflect.DeepEqual(tp.Lines(), wantLines) {
		t.Errorf("Lines() = %+v, want %+v", tp.Lines(), wantLines)
	}

	v, _ := tp.VertexAt(2)
	if v.From != (r3.Vec{X: 10, Y: 10}) || v.To != (r3.Vec{Z: 1}) {
		t.Errorf("unexpected third vertex %+v", v)
	}
}

func TestBuilderLayerBackfill(t *testing.T) {
	tp := parse(t, "G1 Z0.2\nG1 X10 E1\nG1 Z0.4\nM106 S255\nG1 X0 E1\n")
	checkInvariants(t, tp)

	want := []int{0, 0, 1, 1, 1}
	for i, l := range tp.Lines() {
		if l.Layer != want[i] {
			t.Errorf("line %d (%q) layer = %d, want %d", i, l.Text, l.Layer, want[i])
		}
	}
	if z, _ := tp.LayerZ(1); z != 0.4 {
		t.Errorf("LayerZ(1) = %v, want 0.4", z)
	}
}

func TestBuilderToolSelect(t *testing.T) {
	tp := parse(t, "T2\nG1 X1 Y1 Z0 E1")
	checkInvariants(t, tp)

	if !reflect.DeepEqual(tp.Tools(), []int{2}) {
		t.Errorf("Tools() = %v, want [2]", tp.Tools())
	}
	for i, l := range tp.Lines() {
		if l.Tool != 2 {
			t.Errorf("line %d tool = %d, want 2", i, l.Tool)
		}
	}
}

func TestBuilderToolRegistry(t *testing.T) {
	tp := parse(t, "G1 X1 E1\nT3\nT1\nT2\nT1\nT3\n")
	checkInvariants(t, tp)

	if !reflect.DeepEqual(tp.Tools(), []int{1, 2, 3}) {
		t.Errorf("Tools() = %v, want [1 2 3]", tp.Tools())
	}
	if l, _ := tp.LineAt(0); l.Tool != NoTool {
		t.Errorf("line before first tool select has tool %d", l.Tool)
	}
	if l, _ := tp.LineAt(5); l.Tool != 3 {
		t.Errorf("last line tool = %d, want 3", l.Tool)
	}
}

func TestBuilderSetPosition(t *testing.T) {
	tests := []struct {
		name    string
		program string
		legacy  bool
		from    r3.Vec
		to      r3.Vec
	}{
		{
			name:    "offset X",
			program: "G92 X5\nG1 X10 E1",
			from:    r3.Vec{},
			to:      r3.Vec{X: 5},
		},
		{
			name:    "re-zero",
			program: "G1 X10 Y5\nG92\nG1 X1 E1",
			from:    r3.Vec{X: 10, Y: 5},
			to:      r3.Vec{X: 11, Y: 5},
		},
		{
			name:    "offset Z",
			program: "G1 X0 Y3 Z1\nG92 Z0\nG1 X1 E1",
			from:    r3.Vec{Y: 3, Z: 1},
			to:      r3.Vec{X: 1, Y: 3, Z: 1},
		},
		{
			name:    "offset Z legacy",
			program: "G1 X0 Y3 Z1\nG92 Z0\nG1 X1 E1",
			legacy:  true,
			from:    r3.Vec{Y: 3, Z: -2},
			to:      r3.Vec{X: 1, Y: 3, Z: -2},
		},
		{
			name:    "offset then relative",
			program: "G1 X2\nG92 X0\nG91\nG1 X3 E1",
			from:    r3.Vec{X: 2},
			to:      r3.Vec{X: 5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := quietOptions()
			opts.LegacyG92Z = tt.legacy
			tp := NewBuilderWithOptions([]byte(tt.program), opts).Parse(context.Background(), nil)

			if tp.VertexCount() != 1 {
				t.Fatalf("expected 1 vertex, got %d", tp.VertexCount())
			}
			v, _ := tp.VertexAt(0)
			if v.From != tt.from || v.To != tt.to {
				t.Errorf("vertex = %+v -> %+v, want %+v -> %+v", v.From, v.To, tt.from, tt.to)
			}
		})
	}
}

func TestBuilderRelativeMoves(t *testing.T) {
	tp := parse(t, "G91\nG1 X1 E1\nG1 X1 Y2 E1\nG90\nG1 X0 E1\n")
	checkInvariants(t, tp)

	want := []Vertex{
		{From: r3.Vec{}, To: r3.Vec{X: 1}},
		{From: r3.Vec{X: 1}, To: r3.Vec{X: 2, Y: 2}},
		{From: r3.Vec{X: 2, Y: 2}, To: r3.Vec{Y: 2}},
	}
	if !reflect.DeepEqual(tp.Vertices(), want) {
		t.Errorf("Vertices() = %+v, want %+v", tp.Vertices(), want)
	}
	if tp.LayerCount() != 1 {
		t.Errorf("expected 1 layer, got %d", tp.LayerCount())
	}
}

func TestBuilderG7AlwaysRelative(t *testing.T) {
	tp := parse(t, "G1 X5\nG7 X1 E1\n")
	v, err := tp.VertexAt(0)
	if err != nil {
		t.Fatalf("VertexAt(0) failed: %v", err)
	}
	if v.From.X != 5 || v.To.X != 6 {
		t.Errorf("unexpected G7 vertex %+v", v)
	}
}

func TestBuilderModeTogglesHaveNoGeometry(t *testing.T) {
	tp := parse(t, "G1 X3 Y4\nG91\nG90\nG91\nG90\nG1 X3 E1\n")
	checkInvariants(t, tp)

	for i := 1; i <= 4; i++ {
		l, _ := tp.LineAt(i)
		if l.HasVertex() {
			t.Errorf("mode toggle line %d produced a vertex", i)
		}
	}
	v, _ := tp.VertexAt(0)
	if v.From != (r3.Vec{X: 3, Y: 4}) || v.To != (r3.Vec{X: 3, Y: 4}) {
		t.Errorf("mode toggles moved the position: %+v", v)
	}
}

func TestBuilderNonDepositingMoves(t *testing.T) {
	tp := parse(t, "G1 X1 E0\nG1 X2 E-1\nG1 X3 Eabc\nG0 X4\nG28\nG1 X5 E0.01\n")
	checkInvariants(t, tp)

	if tp.VertexCount() != 1 {
		t.Fatalf("expected only the last move to deposit, got %d vertices", tp.VertexCount())
	}
	v, _ := tp.VertexAt(0)
	if v.From.X != 4 || v.To.X != 5 {
		t.Errorf("position not tracked across non-depositing moves: %+v", v)
	}
}

func TestBuilderCountsEveryLine(t *testing.T) {
	program := "\n; comment\nfoo\nM104 S200\nG28\n\n"
	tp := parse(t, program)
	if tp.LineCount() != 6 {
		t.Errorf("expected 6 lines, got %d", tp.LineCount())
	}
	if tp.HasVertices() || tp.HasLayers() {
		t.Error("expected no geometry")
	}
}

func TestBuilderZTolerance(t *testing.T) {
	tp := parse(t, "G1 X1 Z0.2 E1\nG1 X2 Z0.2000000001 E1\nG1 X3 Z0.3 E1\n")
	if tp.LayerCount() != 2 {
		t.Errorf("expected 2 layers, got %d", tp.LayerCount())
	}

	opts := quietOptions()
	opts.ZTolerance = 0.5
	tp = NewBuilderWithOptions([]byte("G1 X1 Z0.2 E1\nG1 X3 Z0.3 E1\n"), opts).Parse(context.Background(), nil)
	if tp.LayerCount() != 1 {
		t.Errorf("expected 1 layer with a loose tolerance, got %d", tp.LayerCount())
	}
}

func TestBuilderCustomComment(t *testing.T) {
	opts := quietOptions()
	opts.Comment = '('
	tp := NewBuilderWithOptions([]byte("G1 X1 E1 (outer wall\n"), opts).Parse(context.Background(), nil)
	l, _ := tp.LineAt(0)
	if l.Text != "G1 X1 E1" {
		t.Errorf("Text = %q", l.Text)
	}
}

func TestBuilderIdempotent(t *testing.T) {
	program := []byte("T0\nG1 Z0.2\nG1 X10 E1\nG1 Y10 E1\nT1\nG92 X0\nG1 Z0.4 X5 E1\nG91\nG1 X1 E1\n")

	a := NewBuilderWithOptions(program, quietOptions()).Parse(context.Background(), nil)
	b := NewBuilderWithOptions(program, quietOptions()).Parse(context.Background(), nil)

	if !reflect.DeepEqual(a.Lines(), b.Lines()) {
		t.Error("lines differ between runs")
	}
	if !reflect.DeepEqual(a.Vertices(), b.Vertices()) {
		t.Error("vertices differ between runs")
	}
	if !reflect.DeepEqual(a.Layers(), b.Layers()) {
		t.Error("layers differ between runs")
	}
	if !reflect.DeepEqual(a.Tools(), b.Tools()) {
		t.Error("tools differ between runs")
	}
}

func TestBuilderProgress(t *testing.T) {
	program := "G1 X1\nG1 X2\nG1 X3\nG1 X4\n"
	var got []int
	opts := quietOptions()
	opts.Progress = func(percent int) { got = append(got, percent) }
	NewBuilderWithOptions([]byte(program), opts).Parse(context.Background(), nil)

	want := []int{25, 50, 75, 100}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("progress = %v, want %v", got, want)
	}
}

func TestBuilderCancel(t *testing.T) {
	program := []byte("G1 X1 Z0 E1\nG1 X2 Z1 E1\nG1 X3 Z2 E1\n")

	opts := quietOptions()
	b := NewBuilderWithOptions(program, opts)
	calls := 0
	b.SetProgress(func(int) {
		calls++
		if calls == 2 {
			b.Cancel()
		}
	})

	tp := b.Parse(context.Background(), nil)
	if !b.Canceled() {
		t.Error("expected Canceled() after Cancel")
	}
	if tp.LayerCount() != 2 || tp.VertexCount() != 2 || tp.LineCount() != 2 {
		t.Errorf("expected 2 layers, vertices and lines, got %d, %d, %d",
			tp.LayerCount(), tp.VertexCount(), tp.LineCount())
	}

	full := NewBuilderWithOptions(program, quietOptions()).Parse(context.Background(), nil)
	fullLines := full.Lines()
	for i, l := range tp.Lines() {
		if l != fullLines[i] {
			t.Errorf("line %d differs from uninterrupted parse: %+v vs %+v", i, l, fullLines[i])
		}
	}
}

func TestBuilderContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := NewBuilderWithOptions([]byte("G1 X1 E1\n"), quietOptions())
	tp := b.Parse(ctx, nil)
	if !tp.IsEmpty() {
		t.Error("expected nothing parsed with a canceled context")
	}
	if !b.Canceled() {
		t.Error("expected Canceled() to report the context cancellation")
	}
}

func TestBuilderParseResetsCancel(t *testing.T) {
	b := NewBuilderWithOptions([]byte("G1 X1 E1\n"), quietOptions())
	b.Cancel()
	tp := b.Parse(context.Background(), nil)
	if b.Canceled() || tp.LineCount() != 1 {
		t.Errorf("expected Parse to clear a stale cancel, canceled=%v lines=%d", b.Canceled(), tp.LineCount())
	}
}

func TestBuilderParseNewData(t *testing.T) {
	b := NewBuilderWithOptions([]byte("G1 X1 E1\n"), quietOptions())
	b.Parse(context.Background(), nil)
	tp := b.Parse(context.Background(), []byte("G1 X2 E1\n"))

	if tp.LineCount() != 2 || tp.VertexCount() != 2 {
		t.Fatalf("expected model to accumulate, got %d lines %d vertices", tp.LineCount(), tp.VertexCount())
	}
	if l, _ := tp.LineAt(1); l.Index != 1 || l.Vertex != 1 {
		t.Errorf("unexpected second line %+v", l)
	}
}

type fakeRecorder struct {
	stats []Stats
}

func (f *fakeRecorder) RecordParse(s Stats) { f.stats = append(f.stats, s) }

func TestBuilderRecordsMetrics(t *testing.T) {
	rec := &fakeRecorder{}
	opts := quietOptions()
	opts.Metrics = rec
	program := "T0\nG1 Z0.2 X1 E1\nT1\nG1 Z0.4 X2 E1\n"
	NewBuilderWithOptions([]byte(program), opts).Parse(context.Background(), nil)

	if len(rec.stats) != 1 {
		t.Fatalf("expected 1 record, got %d", len(rec.stats))
	}
	s := rec.stats[0]
	if s.Lines != 4 || s.Vertices != 2 || s.Layers != 2 || s.ToolChanges != 2 || s.Canceled {
		t.Errorf("unexpected stats %+v", s)
	}
	if s.Bytes != int64(len(program)) {
		t.Errorf("Bytes = %d, want %d", s.Bytes, len(program))
	}
}

func TestBuilderLogsCancel(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New("toolpath")
	logger.SetWriter(&buf)
	logger.SetColorize(false)

	opts := DefaultOptions()
	opts.Logger = logger
	b := NewBuilderWithOptions([]byte("G1 X1 E1\nG1 X2 E1\n"), opts)
	b.SetProgress(func(int) { b.Cancel() })
	b.Parse(context.Background(), nil)

	if !strings.Contains(buf.String(), "parse canceled") {
		t.Errorf("expected cancel warning, got %q", buf.String())
	}
}

func BenchmarkBuilder(b *testing.B) {
	var program bytes.Buffer
	for layer := 0; layer < 50; layer++ {
		program.WriteString("G1 Z0.")
		program.WriteString(strings.Repeat("2", 1+layer%3))
		program.WriteString("\n")
		for i := 0; i < 200; i++ {
			program.WriteString("G1 X10.5 Y20.25 E0.1 F1800 ; perimeter\n")
		}
	}
	data := program.Bytes()
	opts := quietOptions()

	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		NewBuilderWithOptions(data, opts).Parse(context.Background(), nil)
	}
}
