// Terminal parse progress
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

// Package tui renders parse progress and toolpath reports in the terminal.
package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"gcode-toolpath/pkg/toolpath"
)

// MsgProgress carries a parse percentage from the builder.
type MsgProgress int

// MsgParseDone indicates that the parse has returned.
type MsgParseDone struct {
	Toolpath *toolpath.Toolpath
}

const maxBarWidth = 72

// ProgressModel shows a progress bar while a Builder parses. ctrl+c, q and
// esc cancel the parse; the model quits once the builder has returned.
type ProgressModel struct {
	Name     string
	Percent  int
	Done     bool
	Canceled bool
	Toolpath *toolpath.Toolpath

	ctx     context.Context
	builder *toolpath.Builder
	bar     progress.Model
}

// NewProgressModel returns a model that runs builder.Parse when started.
func NewProgressModel(ctx context.Context, name string, builder *toolpath.Builder) ProgressModel {
	return ProgressModel{
		Name:    name,
		ctx:     ctx,
		builder: builder,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
	}
}

func (m ProgressModel) parse() tea.Msg {
	return MsgParseDone{Toolpath: m.builder.Parse(m.ctx, nil)}
}

// Init starts the parse.
func (m ProgressModel) Init() tea.Cmd {
	return m.parse
}

// Update handles events.
func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.bar.Width = max(min(msg.Width-12, maxBarWidth), 10)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.builder.Cancel()
		}
		return m, nil

	case MsgProgress:
		m.Percent = int(msg)
		return m, nil

	case MsgParseDone:
		m.Done = true
		m.Toolpath = msg.Toolpath
		m.Canceled = m.builder.Canceled()
		return m, tea.Quit
	}
	return m, nil
}

// View renders the bar.
func (m ProgressModel) View() string {
	if m.Done {
		state := "done"
		if m.Canceled {
			state = "canceled"
		}
		return fmt.Sprintf("\n  %s %s\n\n", titleStyle.Render(m.Name), dimStyle.Render(state))
	}
	return fmt.Sprintf("\n  %s\n\n  %s %3d%%\n\n  %s\n",
		titleStyle.Render(m.Name),
		m.bar.ViewAs(float64(m.Percent)/100),
		m.Percent,
		dimStyle.Render("ctrl+c to cancel"))
}

// RunProgress parses with a progress bar on the terminal and returns the
// model built, which is partial when the user canceled.
func RunProgress(ctx context.Context, name string, builder *toolpath.Builder, opts ...tea.ProgramOption) (*toolpath.Toolpath, error) {
	m := NewProgressModel(ctx, name, builder)
	p := tea.NewProgram(m, opts...)

	last := -1
	builder.SetProgress(func(percent int) {
		if percent != last {
			last = percent
			p.Send(MsgProgress(percent))
		}
	})

	final, err := p.Run()
	if err != nil {
		builder.Cancel()
		return nil, err
	}
	builder.SetProgress(nil)
	return final.(ProgressModel).Toolpath, nil
}
