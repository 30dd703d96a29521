// Terminal UI tests
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package tui

import (
	"context"
	"io"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"gcode-toolpath/pkg/gcodefile"
	"gcode-toolpath/pkg/log"
	"gcode-toolpath/pkg/toolpath"
)

const program = `G1 Z0.2
G1 X10 E1
G1 Y10 E2
T0
G1 Z0.4
G1 X0 E3
`

func newBuilder() *toolpath.Builder {
	quiet := log.New("test")
	quiet.SetWriter(io.Discard)
	opts := toolpath.DefaultOptions()
	opts.Logger = quiet
	return toolpath.NewBuilderWithOptions([]byte(program), opts)
}

func TestProgressModelCancel(t *testing.T) {
	b := newBuilder()
	m := NewProgressModel(context.Background(), "part.gcode", b)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd != nil {
		t.Error("cancel should wait for the parse to return before quitting")
	}
	if !b.Canceled() {
		t.Error("ctrl+c did not cancel the builder")
	}
	if next.(ProgressModel).Done {
		t.Error("model done before parse returned")
	}
}

func TestProgressModelProgress(t *testing.T) {
	m := NewProgressModel(context.Background(), "part.gcode", newBuilder())

	next, _ := m.Update(MsgProgress(42))
	pm := next.(ProgressModel)
	if pm.Percent != 42 {
		t.Errorf("Percent = %d, want 42", pm.Percent)
	}
	view := pm.View()
	if !strings.Contains(view, "42%") || !strings.Contains(view, "part.gcode") {
		t.Errorf("unexpected view %q", view)
	}
}

func TestProgressModelDone(t *testing.T) {
	b := newBuilder()
	m := NewProgressModel(context.Background(), "part.gcode", b)

	msg := m.Init()()
	done, ok := msg.(MsgParseDone)
	if !ok {
		t.Fatalf("Init command returned %T, want MsgParseDone", msg)
	}
	if done.Toolpath.LayerCount() != 2 {
		t.Errorf("layers = %d, want 2", done.Toolpath.LayerCount())
	}

	next, cmd := m.Update(done)
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
	pm := next.(ProgressModel)
	if !pm.Done || pm.Canceled || pm.Toolpath != done.Toolpath {
		t.Errorf("unexpected final model %+v", pm)
	}
	if !strings.Contains(pm.View(), "done") {
		t.Errorf("unexpected view %q", pm.View())
	}
}

func TestReportRender(t *testing.T) {
	b := newBuilder()
	tp := b.Parse(context.Background(), nil)
	height := 0.2
	out := Report{
		Name:     "part.gcode",
		Toolpath: tp,
		Metadata: gcodefile.Metadata{Slicer: "PrusaSlicer", SlicerVersion: "2.6.0", LayerHeight: &height},
	}.Render()

	for _, want := range []string{"part.gcode", "Lines", "Layers", "T0", "30.000 mm", "PrusaSlicer 2.6.0", "0.200 mm"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "canceled") {
		t.Error("report marks a complete parse as canceled")
	}

	canceled := Report{Name: "x", Toolpath: toolpath.New(), Canceled: true}.Render()
	if !strings.Contains(canceled, "canceled") || !strings.Contains(canceled, "none") {
		t.Errorf("unexpected canceled report:\n%s", canceled)
	}
}

func TestRenderLayers(t *testing.T) {
	if out := RenderLayers(toolpath.New()); !strings.Contains(out, "no layers") {
		t.Errorf("unexpected empty output %q", out)
	}

	tp := newBuilder().Parse(context.Background(), nil)
	out := RenderLayers(tp)
	for _, want := range []string{"0.200", "0.400", "0-1", "2-2"} {
		if !strings.Contains(out, want) {
			t.Errorf("layers missing %q:\n%s", want, out)
		}
	}
}
