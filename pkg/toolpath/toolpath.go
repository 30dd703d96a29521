// Toolpath model
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

// Package toolpath builds a geometric model of a G-code program: one record
// per source line, the deposition segments the program extrudes, and the
// layers those segments group into.
package toolpath

import (
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"gcode-toolpath/pkg/errors"
)

// NoTool marks lines processed before any tool was selected.
const NoTool = -1

// Line records one source line of the program.
type Line struct {
	Index  int    `json:"index"`
	Vertex int    `json:"vertex"` // -1 unless the line deposited material
	Layer  int    `json:"layer"`  // -1 before the first layer opens
	Tool   int    `json:"tool"`
	Text   string `json:"text"`
}

// HasVertex reports whether the line produced a deposition segment.
func (l Line) HasVertex() bool { return l.Vertex >= 0 }

// Vertex is a deposition segment in machine-absolute coordinates.
type Vertex struct {
	From r3.Vec `json:"from"`
	To   r3.Vec `json:"to"`
}

// Length returns the segment length.
func (v Vertex) Length() float64 { return r3.Norm(r3.Sub(v.To, v.From)) }

// Layer is a half-open range [Vertex, Vertex+Count) of segments at one Z height.
type Layer struct {
	Vertex int `json:"vertex"`
	Count  int `json:"count"`
}

// End returns the index one past the layer's last vertex.
func (l Layer) End() int { return l.Vertex + l.Count }

// Toolpath is a passive indexed container. It performs no validation beyond
// index bounds; the Builder maintains its invariants.
type Toolpath struct {
	lines    []Line
	vertices []Vertex
	layers   []Layer
	tools    []int

	postProcessed bool
}

// New returns an empty toolpath.
func New() *Toolpath {
	return &Toolpath{}
}

// IsEmpty reports whether the toolpath holds no lines, vertices or layers.
func (tp *Toolpath) IsEmpty() bool {
	return len(tp.lines) == 0 && len(tp.vertices) == 0 && len(tp.layers) == 0
}

func (tp *Toolpath) IsPostProcessed() bool     { return tp.postProcessed }
func (tp *Toolpath) SetPostProcessed(set bool) { tp.postProcessed = set }

func at[T any](s []T, i int, collection string) (T, error) {
	if i < 0 || i >= len(s) {
		var zero T
		return zero, errors.IndexOutOfRange(collection, i, len(s))
	}
	return s[i], nil
}

func mutable[T any](s []T, i int, collection string) (*T, error) {
	if i < 0 || i >= len(s) {
		return nil, errors.IndexOutOfRange(collection, i, len(s))
	}
	return &s[i], nil
}

func clone[T any](s []T) []T {
	out := make([]T, len(s))
	copy(out, s)
	return out
}

// Lines

func (tp *Toolpath) HasLines() bool { return len(tp.lines) > 0 }
func (tp *Toolpath) LineCount() int { return len(tp.lines) }
func (tp *Toolpath) Lines() []Line  { return clone(tp.lines) }
func (tp *Toolpath) AddLine(l Line) { tp.lines = append(tp.lines, l) }

func (tp *Toolpath) LineAt(i int) (Line, error) { return at(tp.lines, i, "line") }

// MutableLine returns a pointer into the line collection. It is invalidated
// by the next AddLine.
func (tp *Toolpath) MutableLine(i int) (*Line, error) { return mutable(tp.lines, i, "line") }

func (tp *Toolpath) LastLine() (*Line, error) { return mutable(tp.lines, len(tp.lines)-1, "line") }

// Vertices

func (tp *Toolpath) HasVertices() bool  { return len(tp.vertices) > 0 }
func (tp *Toolpath) VertexCount() int   { return len(tp.vertices) }
func (tp *Toolpath) Vertices() []Vertex { return clone(tp.vertices) }
func (tp *Toolpath) AddVertex(v Vertex) { tp.vertices = append(tp.vertices, v) }

func (tp *Toolpath) VertexAt(i int) (Vertex, error) { return at(tp.vertices, i, "vertex") }

func (tp *Toolpath) MutableVertex(i int) (*Vertex, error) {
	return mutable(tp.vertices, i, "vertex")
}

func (tp *Toolpath) LastVertex() (*Vertex, error) {
	return mutable(tp.vertices, len(tp.vertices)-1, "vertex")
}

// Layers

func (tp *Toolpath) HasLayers() bool  { return len(tp.layers) > 0 }
func (tp *Toolpath) LayerCount() int  { return len(tp.layers) }
func (tp *Toolpath) Layers() []Layer  { return clone(tp.layers) }
func (tp *Toolpath) AddLayer(l Layer) { tp.layers = append(tp.layers, l) }

func (tp *Toolpath) LayerAt(i int) (Layer, error) { return at(tp.layers, i, "layer") }

func (tp *Toolpath) MutableLayer(i int) (*Layer, error) { return mutable(tp.layers, i, "layer") }

func (tp *Toolpath) LastLayer() (*Layer, error) {
	return mutable(tp.layers, len(tp.layers)-1, "layer")
}

// Tools

func (tp *Toolpath) ToolCount() int { return len(tp.tools) }
func (tp *Toolpath) Tools() []int   { return clone(tp.tools) }

func (tp *Toolpath) ToolAt(i int) (int, error) { return at(tp.tools, i, "tool") }

// HasTool reports whether tool has been registered.
func (tp *Toolpath) HasTool(tool int) bool {
	i := sort.SearchInts(tp.tools, tool)
	return i < len(tp.tools) && tp.tools[i] == tool
}

// AddTool inserts tool keeping the registry sorted. Registering a tool twice
// is a no-op.
func (tp *Toolpath) AddTool(tool int) {
	i := sort.SearchInts(tp.tools, tool)
	if i < len(tp.tools) && tp.tools[i] == tool {
		return
	}
	tp.tools = append(tp.tools, 0)
	copy(tp.tools[i+1:], tp.tools[i:])
	tp.tools[i] = tool
}

// backfillLayer assigns layer to every line from index from onwards.
func (tp *Toolpath) backfillLayer(from, layer int) {
	if from < 0 {
		from = 0
	}
	for i := from; i < len(tp.lines); i++ {
		tp.lines[i].Layer = layer
	}
}
