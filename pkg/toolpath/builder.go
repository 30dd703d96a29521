// Toolpath builder
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package toolpath

import (
	"context"
	"math"
	"sync"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"gcode-toolpath/pkg/gcode"
	"gcode-toolpath/pkg/log"
)

// DefaultZTolerance is the relative tolerance used to decide whether a
// deposition move stays on the open layer.
const DefaultZTolerance = 1e-5

// ProgressFunc receives the parse progress as a percentage of bytes consumed.
// It is called synchronously from the parse loop after every line.
type ProgressFunc func(percent int)

// Recorder receives the outcome of each parse run.
type Recorder interface {
	RecordParse(stats Stats)
}

// Stats summarizes one parse run.
type Stats struct {
	Lines       int
	Vertices    int
	Layers      int
	ToolChanges int
	Bytes       int64
	Duration    time.Duration
	Canceled    bool
}

// Options configures a Builder.
type Options struct {
	// Comment starts a comment running to the end of the line.
	Comment byte
	// ZTolerance is the relative tolerance for layer Z comparison.
	ZTolerance float64
	// LegacyG92Z offsets Z by the local Y value on G92, matching older
	// toolpath viewers.
	LegacyG92Z bool

	Progress ProgressFunc
	Logger   *log.Logger
	Metrics  Recorder
}

// DefaultOptions returns the options used by NewBuilder when none are given.
func DefaultOptions() Options {
	return Options{
		Comment:    gcode.DefaultComment,
		ZTolerance: DefaultZTolerance,
	}
}

// Builder turns a G-code program into a Toolpath. It tracks the motion state
// of the program: the position in the active frame, the offset of that frame
// from machine coordinates, and the positioning mode.
type Builder struct {
	reader *gcode.Reader
	model  *Toolpath
	opts   Options
	logger *log.Logger

	pos      r3.Vec // in the active frame
	offset   r3.Vec // machine = pos + offset
	absolute bool
	tool     int
	zLine    int
	zValue   float64

	toolChanges int

	mu       sync.Mutex
	canceled bool
}

// NewBuilder returns a builder reading data with default options.
func NewBuilder(data []byte) *Builder {
	return NewBuilderWithOptions(data, DefaultOptions())
}

// NewBuilderWithOptions returns a builder reading data.
func NewBuilderWithOptions(data []byte, opts Options) *Builder {
	if opts.Comment == 0 {
		opts.Comment = gcode.DefaultComment
	}
	if opts.ZTolerance <= 0 {
		opts.ZTolerance = DefaultZTolerance
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.GetLogger("toolpath")
	}

	r := gcode.NewReader(data)
	r.SetComment(opts.Comment)

	return &Builder{
		reader:   r,
		model:    New(),
		opts:     opts,
		logger:   logger,
		absolute: true,
		tool:     NoTool,
		zLine:    -1,
	}
}

// Toolpath returns the model built so far.
func (b *Builder) Toolpath() *Toolpath { return b.model }

// SetProgress replaces the progress observer.
func (b *Builder) SetProgress(fn ProgressFunc) { b.opts.Progress = fn }

// Cancel asks a running Parse to stop before the next line. It is safe to
// call from any goroutine.
func (b *Builder) Cancel() {
	b.mu.Lock()
	b.canceled = true
	b.mu.Unlock()
}

// Canceled reports whether the last Parse was stopped early.
func (b *Builder) Canceled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.canceled
}

func (b *Builder) stop(ctx context.Context) bool {
	if ctx.Err() != nil {
		b.Cancel()
	}
	return b.Canceled()
}

// Parse reads lines until the buffer is exhausted, Cancel is called or ctx is
// done. A non-empty data replaces the buffer; the model keeps accumulating
// across calls. Stopping early is not an error: the lines, vertices and
// layers produced so far are returned as they are.
func (b *Builder) Parse(ctx context.Context, data []byte) *Toolpath {
	b.mu.Lock()
	b.canceled = false
	b.mu.Unlock()

	if len(data) > 0 {
		b.reader.SetData(data)
	}

	start := time.Now()
	startLines := b.model.LineCount()
	startVertices := b.model.VertexCount()
	startLayers := b.model.LayerCount()
	startTools := b.toolChanges

	b.logger.Debug("parsing %d bytes", b.reader.Size())

	for !b.stop(ctx) && b.reader.Next() {
		line := Line{
			Index:  b.model.LineCount(),
			Vertex: -1,
			Layer:  b.model.LayerCount() - 1,
			Tool:   b.tool,
			Text:   b.reader.Line(),
		}

		switch b.reader.Type() {
		case gcode.G:
			b.handleMove(&line)
		case gcode.T:
			b.handleTool(&line)
		}

		b.model.AddLine(line)
		b.reportProgress()
	}

	stats := Stats{
		Lines:       b.model.LineCount() - startLines,
		Vertices:    b.model.VertexCount() - startVertices,
		Layers:      b.model.LayerCount() - startLayers,
		ToolChanges: b.toolChanges - startTools,
		Bytes:       b.reader.Size(),
		Duration:    time.Since(start),
		Canceled:    b.Canceled(),
	}

	entry := b.logger.WithFields(log.Fields{
		"lines":    stats.Lines,
		"vertices": stats.Vertices,
		"layers":   stats.Layers,
		"tools":    b.model.ToolCount(),
		"duration": stats.Duration.Round(time.Microsecond).String(),
	})
	if stats.Canceled {
		entry.Warn("parse canceled")
	} else {
		entry.Debug("parse complete")
	}

	if b.opts.Metrics != nil {
		b.opts.Metrics.RecordParse(stats)
	}
	return b.model
}

func (b *Builder) reportProgress() {
	if b.opts.Progress == nil {
		return
	}
	size := b.reader.Size()
	if size == 0 {
		return
	}
	b.opts.Progress(int(math.Round(100 * float64(b.reader.Pos()) / float64(size))))
}

// handleMove applies a G command to the motion state. Only G0, G1 and G7
// move; G90, G91 and G92 change the frame; other codes are ignored.
func (b *Builder) handleMove(line *Line) {
	r := b.reader
	var target r3.Vec

	switch r.Code() {
	case 0, 1:
		if b.absolute {
			target = r3.Vec{
				X: r.ValueOr('X', gcode.FloatValue(b.pos.X)).Float(),
				Y: r.ValueOr('Y', gcode.FloatValue(b.pos.Y)).Float(),
				Z: r.ValueOr('Z', gcode.FloatValue(b.pos.Z)).Float(),
			}
			break
		}
		target = b.relativeTarget()
	case 7:
		target = b.relativeTarget()
	case 90:
		b.absolute = true
		return
	case 91:
		b.absolute = false
		return
	case 92:
		b.setPosition()
		return
	default:
		return
	}

	if r.HasValue('Z') {
		b.zLine = line.Index
	}

	if e, ok := r.Value('E'); ok && e.Float() > 0 {
		b.deposit(line, target)
	}

	b.pos = target
}

func (b *Builder) relativeTarget() r3.Vec {
	r := b.reader
	delta := r3.Vec{
		X: r.ValueOr('X', gcode.FloatValue(0)).Float(),
		Y: r.ValueOr('Y', gcode.FloatValue(0)).Float(),
		Z: r.ValueOr('Z', gcode.FloatValue(0)).Float(),
	}
	return r3.Add(b.pos, delta)
}

// setPosition handles G92. Without axes the current machine position becomes
// the new origin. With axes, each named axis takes the given local value and
// its offset absorbs the difference so the machine position is unchanged.
func (b *Builder) setPosition() {
	r := b.reader
	if !r.HasValue('X') && !r.HasValue('Y') && !r.HasValue('Z') {
		b.offset = b.machine(b.pos)
		b.pos = r3.Vec{}
		return
	}

	abs := b.machine(b.pos)
	if v, ok := r.Value('X'); ok {
		b.pos.X = v.Float()
		b.offset.X = abs.X - b.pos.X
	}
	if v, ok := r.Value('Y'); ok {
		b.pos.Y = v.Float()
		b.offset.Y = abs.Y - b.pos.Y
	}
	if v, ok := r.Value('Z'); ok {
		b.pos.Z = v.Float()
		if b.opts.LegacyG92Z {
			b.offset.Z = abs.Z - b.pos.Y
		} else {
			b.offset.Z = abs.Z - b.pos.Z
		}
	}
}

// deposit appends the segment from the current position to target, opening
// a new layer when there is none yet or the Z height changed. Lines since the
// move that introduced the new Z are moved onto the new layer.
func (b *Builder) deposit(line *Line, target r3.Vec) {
	m := b.model
	m.AddVertex(Vertex{From: b.machine(b.pos), To: b.machine(target)})

	if !m.HasLayers() || !b.sameZ(b.zValue, target.Z) {
		m.AddLayer(Layer{Vertex: m.VertexCount() - 1})
		b.zValue = target.Z
		m.backfillLayer(b.zLine, m.LayerCount()-1)
	}

	layer, _ := m.LastLayer()
	layer.Count++

	line.Layer = m.LayerCount() - 1
	line.Vertex = m.VertexCount() - 1
}

func (b *Builder) handleTool(line *Line) {
	b.tool = b.reader.Code()
	if !b.model.HasTool(b.tool) {
		b.model.AddTool(b.tool)
	}
	b.toolChanges++
	line.Tool = b.tool
}

func (b *Builder) machine(local r3.Vec) r3.Vec {
	return r3.Add(local, b.offset)
}

// sameZ compares two heights with a tolerance relative to their magnitude,
// falling back to an absolute tolerance near zero.
func (b *Builder) sameZ(a, c float64) bool {
	scale := math.Max(1, math.Max(math.Abs(a), math.Abs(c)))
	return math.Abs(a-c) <= b.opts.ZTolerance*scale
}
