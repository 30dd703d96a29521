// Toolpath reports
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"gonum.org/v1/gonum/spatial/r3"

	"gcode-toolpath/pkg/gcodefile"
	"gcode-toolpath/pkg/toolpath"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Width(14).
			Foreground(lipgloss.Color("240"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("81")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("238"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("208"))

	boxStyle = lipgloss.NewStyle().
			Padding(0, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63"))
)

// Report describes one parsed program.
type Report struct {
	Name     string
	Toolpath *toolpath.Toolpath
	Metadata gcodefile.Metadata
	Canceled bool
}

func row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), valueStyle.Render(value))
}

func formatMM(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

// Render draws the report as a bordered summary.
func (r Report) Render() string {
	s := r.Toolpath.Summary()

	rows := []string{
		row("Lines", strconv.Itoa(s.Lines)),
		row("Vertices", strconv.Itoa(s.Vertices)),
		row("Layers", strconv.Itoa(s.Layers)),
	}

	tools := "none"
	if len(s.Tools) > 0 {
		names := make([]string, len(s.Tools))
		for i, t := range s.Tools {
			names[i] = "T" + strconv.Itoa(t)
		}
		tools = strings.Join(names, " ")
	}
	rows = append(rows, row("Tools", tools))
	rows = append(rows, row("Extruded path", formatMM(s.Length)+" mm"))

	if s.Bounds != nil {
		size := r3.Sub(s.Bounds.Max, s.Bounds.Min)
		rows = append(rows, row("Extents",
			fmt.Sprintf("%s x %s x %s mm", formatMM(size.X), formatMM(size.Y), formatMM(size.Z))))
	}

	if m := r.Metadata; m.Slicer != "" {
		rows = append(rows, row("Slicer", strings.TrimSpace(m.Slicer+" "+m.SlicerVersion)))
		if m.LayerHeight != nil {
			rows = append(rows, row("Layer height", formatMM(*m.LayerHeight)+" mm"))
		}
	}

	body := lipgloss.JoinVertical(lipgloss.Left, rows...)
	out := titleStyle.Render(r.Name) + "\n" + boxStyle.Render(body)
	if r.Canceled {
		out += "\n" + warnStyle.Render("parse canceled, toolpath is partial")
	}
	return out
}

// RenderLayers lists every layer with its Z height and vertex span.
func RenderLayers(tp *toolpath.Toolpath) string {
	if !tp.HasLayers() {
		return dimStyle.Render("no layers")
	}

	var b strings.Builder
	b.WriteString(labelStyle.Render("layer") + labelStyle.Render("z") + labelStyle.Render("vertices") + "\n")
	for _, l := range tp.LayerSpans() {
		b.WriteString(labelStyle.Render(strconv.Itoa(l.Index)))
		b.WriteString(valueStyle.Width(14).Render(formatMM(l.Z)))
		b.WriteString(fmt.Sprintf("%d-%d\n", l.Vertex, l.Vertex+l.Count-1))
	}
	return b.String()
}
