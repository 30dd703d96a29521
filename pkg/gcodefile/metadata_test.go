// Slicer header metadata tests
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package gcodefile

import (
	"strings"
	"testing"
)

func TestParseMetadataPrusa(t *testing.T) {
	header := "; generated by PrusaSlicer 2.6.0+linux-x64 on 2023-07-04 at 10:00:00 UTC\n" +
		"G28\n" +
		"; layer_height = 0.2\n" +
		"; first_layer_height = 0.3\n"

	meta := ParseMetadata([]byte(header))
	if meta.Slicer != "PrusaSlicer" {
		t.Errorf("Slicer = %q", meta.Slicer)
	}
	if meta.SlicerVersion != "2.6.0+linux-x64" {
		t.Errorf("SlicerVersion = %q", meta.SlicerVersion)
	}
	if meta.LayerHeight == nil || *meta.LayerHeight != 0.2 {
		t.Errorf("LayerHeight = %v", meta.LayerHeight)
	}
	if meta.FirstLayerHeight == nil || *meta.FirstLayerHeight != 0.3 {
		t.Errorf("FirstLayerHeight = %v", meta.FirstLayerHeight)
	}
	if meta.LayerCount != nil {
		t.Errorf("LayerCount = %v, want nil", *meta.LayerCount)
	}
}

func TestParseMetadataCura(t *testing.T) {
	header := ";FLAVOR:Marlin\r\n" +
		";Layer height: 0.12\r\n" +
		";Generated with Cura_SteamEngine 5.4.0\r\n" +
		";LAYER_COUNT:57\r\n"

	meta := ParseMetadata([]byte(header))
	if meta.Slicer != "Cura_SteamEngine" || meta.SlicerVersion != "5.4.0" {
		t.Errorf("slicer = %q %q", meta.Slicer, meta.SlicerVersion)
	}
	if meta.LayerCount == nil || *meta.LayerCount != 57 {
		t.Errorf("LayerCount = %v", meta.LayerCount)
	}
	if meta.LayerHeight == nil || *meta.LayerHeight != 0.12 {
		t.Errorf("LayerHeight = %v", meta.LayerHeight)
	}
}

func TestParseMetadataFlavorOnly(t *testing.T) {
	meta := ParseMetadata([]byte(";FLAVOR:Marlin\nG1 X1\n"))
	if meta.Slicer != "Cura" {
		t.Errorf("Slicer = %q, want Cura", meta.Slicer)
	}
}

func TestParseMetadataHeaderLimit(t *testing.T) {
	data := strings.Repeat("G1 X1 Y1\n", headerScanSize/9+1) + "; layer_height = 0.2\n"
	meta := ParseMetadata([]byte(data))
	if meta.LayerHeight != nil {
		t.Error("expected comments past the header window to be ignored")
	}
}

func TestParseMetadataEmpty(t *testing.T) {
	if meta := ParseMetadata(nil); meta != (Metadata{}) {
		t.Errorf("expected zero metadata, got %+v", meta)
	}
}
