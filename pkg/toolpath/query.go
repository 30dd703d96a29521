// Toolpath queries
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package toolpath

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"gcode-toolpath/pkg/errors"
)

// LayerRange returns the vertices of layers first through last inclusive. A
// negative last selects up to the top layer.
func (tp *Toolpath) LayerRange(first, last int) ([]Vertex, error) {
	if last < 0 {
		last = len(tp.layers) - 1
	}
	lo, err := tp.LayerAt(first)
	if err != nil {
		return nil, err
	}
	hi, err := tp.LayerAt(last)
	if err != nil {
		return nil, err
	}
	if hi.End() <= lo.Vertex {
		return nil, nil
	}
	return clone(tp.vertices[lo.Vertex:hi.End()]), nil
}

// LayerZ returns the height of layer i, taken from the end point of its
// first segment.
func (tp *Toolpath) LayerZ(i int) (float64, error) {
	layer, err := tp.LayerAt(i)
	if err != nil {
		return 0, err
	}
	v, err := tp.VertexAt(layer.Vertex)
	if err != nil {
		return 0, err
	}
	return v.To.Z, nil
}

// LayerSpan is a layer with its index and height.
type LayerSpan struct {
	Index  int     `json:"index"`
	Vertex int     `json:"vertex"`
	Count  int     `json:"count"`
	Z      float64 `json:"z"`
}

// LayerSpans lists every layer in order.
func (tp *Toolpath) LayerSpans() []LayerSpan {
	spans := make([]LayerSpan, 0, len(tp.layers))
	for i, l := range tp.layers {
		z, _ := tp.LayerZ(i)
		spans = append(spans, LayerSpan{Index: i, Vertex: l.Vertex, Count: l.Count, Z: z})
	}
	return spans
}

// LayerOfLine returns the layer line i was assigned to.
func (tp *Toolpath) LayerOfLine(i int) (Layer, error) {
	line, err := tp.LineAt(i)
	if err != nil {
		return Layer{}, err
	}
	if line.Layer < 0 {
		return Layer{}, errors.IndexOutOfRange("layer", line.Layer, len(tp.layers))
	}
	return tp.LayerAt(line.Layer)
}

// Bounds returns the axis-aligned box around every segment end point. The
// second result is false when there are no segments.
func (tp *Toolpath) Bounds() (r3.Box, bool) {
	if len(tp.vertices) == 0 {
		return r3.Box{}, false
	}
	inf := math.Inf(1)
	box := r3.Box{
		Min: r3.Vec{X: inf, Y: inf, Z: inf},
		Max: r3.Vec{X: -inf, Y: -inf, Z: -inf},
	}
	for _, v := range tp.vertices {
		box = extend(box, v.From)
		box = extend(box, v.To)
	}
	return box, true
}

func extend(b r3.Box, p r3.Vec) r3.Box {
	b.Min = r3.Vec{X: math.Min(b.Min.X, p.X), Y: math.Min(b.Min.Y, p.Y), Z: math.Min(b.Min.Z, p.Z)}
	b.Max = r3.Vec{X: math.Max(b.Max.X, p.X), Y: math.Max(b.Max.Y, p.Y), Z: math.Max(b.Max.Z, p.Z)}
	return b
}

// DepositionLength returns the summed length of all segments.
func (tp *Toolpath) DepositionLength() float64 {
	var total float64
	for _, v := range tp.vertices {
		total += v.Length()
	}
	return total
}

// ToolIndex returns the registry index used to pick a display color for
// tool, or -1 if the tool was never selected. Post-processed programs number
// their tools from one, so the tool number is shifted down first.
func (tp *Toolpath) ToolIndex(tool int) int {
	if tp.postProcessed {
		tool--
	}
	i := sort.SearchInts(tp.tools, tool)
	if i < len(tp.tools) && tp.tools[i] == tool {
		return i
	}
	return -1
}

// Summary is a JSON friendly overview of a toolpath.
type Summary struct {
	Lines         int     `json:"lines"`
	Vertices      int     `json:"vertices"`
	Layers        int     `json:"layers"`
	Tools         []int   `json:"tools"`
	PostProcessed bool    `json:"post_processed"`
	Bounds        *r3.Box `json:"bounds,omitempty"`
	Length        float64 `json:"length"`
}

// Summary returns counts, extents and total deposition length.
func (tp *Toolpath) Summary() Summary {
	s := Summary{
		Lines:         len(tp.lines),
		Vertices:      len(tp.vertices),
		Layers:        len(tp.layers),
		Tools:         clone(tp.tools),
		PostProcessed: tp.postProcessed,
		Length:        tp.DepositionLength(),
	}
	if box, ok := tp.Bounds(); ok {
		s.Bounds = &box
	}
	return s
}
