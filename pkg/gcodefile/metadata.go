// Slicer header metadata
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package gcodefile

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// headerScanSize bounds how much of a program is searched for slicer comments.
const headerScanSize = 64 * 1024

// Metadata is what a slicer leaves in the header comments of a program.
// Fields the header does not mention stay nil or empty.
type Metadata struct {
	Slicer           string   `json:"slicer,omitempty"`
	SlicerVersion    string   `json:"slicer_version,omitempty"`
	LayerHeight      *float64 `json:"layer_height,omitempty"`
	FirstLayerHeight *float64 `json:"first_layer_height,omitempty"`
	LayerCount       *int     `json:"layer_count,omitempty"`
}

// ParseMetadata scans the leading ';' comments of data for slicer settings.
func ParseMetadata(data []byte) Metadata {
	var meta Metadata
	if len(data) > headerScanSize {
		data = data[:headerScanSize]
	}

	for len(data) > 0 {
		var raw []byte
		if i := bytes.IndexByte(data, '\n'); i >= 0 {
			raw, data = data[:i], data[i+1:]
		} else {
			raw, data = data, nil
		}

		line := strings.TrimSpace(string(raw))
		if !strings.HasPrefix(line, ";") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, ";"))
		meta.apply(line)
	}
	return meta
}

func (m *Metadata) apply(line string) {
	switch {
	case strings.HasPrefix(line, "generated by "):
		// PrusaSlicer / SuperSlicer: "generated by PrusaSlicer 2.6.0 on ..."
		fields := strings.Fields(strings.TrimPrefix(line, "generated by "))
		if len(fields) > 0 {
			m.Slicer = fields[0]
		}
		if len(fields) > 1 {
			m.SlicerVersion = fields[1]
		}
	case strings.HasPrefix(line, "Generated with "):
		// Cura: "Generated with Cura_SteamEngine 5.4.0"
		fields := strings.Fields(strings.TrimPrefix(line, "Generated with "))
		if len(fields) > 0 {
			m.Slicer = fields[0]
		}
		if len(fields) > 1 {
			m.SlicerVersion = fields[1]
		}
	case strings.HasPrefix(line, "FLAVOR:"):
		if m.Slicer == "" {
			m.Slicer = "Cura"
		}
	case strings.HasPrefix(line, "LAYER_COUNT:"):
		if n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "LAYER_COUNT:"))); err == nil {
			m.LayerCount = &n
		}
	case strings.HasPrefix(line, "first_layer_height"):
		var height float64
		if _, err := fmt.Sscanf(line, "first_layer_height = %f", &height); err == nil {
			m.FirstLayerHeight = &height
		}
	case strings.HasPrefix(line, "layer_height"):
		var height float64
		if _, err := fmt.Sscanf(line, "layer_height = %f", &height); err == nil {
			m.LayerHeight = &height
		}
	case strings.HasPrefix(line, "Layer height:"):
		var height float64
		if _, err := fmt.Sscanf(line, "Layer height: %f", &height); err == nil {
			m.LayerHeight = &height
		}
	}
}
