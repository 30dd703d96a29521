// Application settings
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package config

import (
	"strings"

	"gcode-toolpath/pkg/errors"
	"gcode-toolpath/pkg/log"
)

// GCodeSettings configures the toolpath builder.
type GCodeSettings struct {
	CommentChar byte
	ZTolerance  float64
	LegacyG92Z  bool
}

// LogSettings configures logging output.
type LogSettings struct {
	Level      log.LogLevel
	Format     log.OutputFormat
	File       string
	MaxSizeMB  int
	MaxBackups int
	Compress   bool
}

// ServerSettings configures the toolpath service.
type ServerSettings struct {
	Addr        string
	MaxUploadMB int
}

// Settings is the typed view of a configuration file.
type Settings struct {
	GCode  GCodeSettings
	Log    LogSettings
	Server ServerSettings
}

// DefaultSettings returns the settings used when no file is given.
func DefaultSettings() Settings {
	return Settings{
		GCode: GCodeSettings{
			CommentChar: ';',
			ZTolerance:  1e-5,
		},
		Log: LogSettings{
			Level:      log.INFO,
			Format:     log.FormatText,
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Server: ServerSettings{
			Addr:        ":7130",
			MaxUploadMB: 64,
		},
	}
}

// LoadSettingsFile reads settings from path.
func LoadSettingsFile(path string) (Settings, error) {
	cfg, err := Load(path)
	if err != nil {
		return Settings{}, errors.ConfigError(path, err)
	}
	s, err := LoadSettings(cfg)
	if err != nil {
		return Settings{}, errors.ConfigError(path, err)
	}
	return s, nil
}

// LoadSettings extracts Settings from cfg. Missing sections and options
// keep their defaults; unknown ones are an error.
func LoadSettings(cfg *Config) (Settings, error) {
	s := DefaultSettings()

	if err := loadGCode(cfg.GetSectionOptional("gcode"), &s.GCode); err != nil {
		return s, err
	}
	if err := loadLog(cfg.GetSectionOptional("log"), &s.Log); err != nil {
		return s, err
	}
	if err := loadServer(cfg.GetSectionOptional("server"), &s.Server); err != nil {
		return s, err
	}
	if err := cfg.CheckUnusedOptions(); err != nil {
		return s, err
	}
	return s, nil
}

func loadGCode(sec *Section, s *GCodeSettings) error {
	comment, err := sec.Get("comment_char", string(s.CommentChar))
	if err != nil {
		return err
	}
	comment = strings.Trim(comment, `"'`)
	if len(comment) != 1 {
		return ErrInvalidValue(sec.GetName(), "comment_char", comment, "a single character")
	}
	s.CommentChar = comment[0]

	zero := 0.0
	if s.ZTolerance, err = sec.GetFloatWithBounds("z_tolerance", FloatBounds{Above: &zero}, s.ZTolerance); err != nil {
		return err
	}
	if s.LegacyG92Z, err = sec.GetBool("legacy_g92_z", s.LegacyG92Z); err != nil {
		return err
	}
	return nil
}

func loadLog(sec *Section, s *LogSettings) error {
	level, err := sec.GetChoice("level", []string{"debug", "info", "warn", "error"}, strings.ToLower(s.Level.String()))
	if err != nil {
		return err
	}
	s.Level = log.ParseLevel(level)

	format, err := sec.GetChoice("format", []string{"text", "json"}, "text")
	if err != nil {
		return err
	}
	s.Format = log.ParseFormat(format)

	if s.File, err = sec.Get("file", s.File); err != nil {
		return err
	}
	if s.MaxSizeMB, err = sec.GetIntWithBounds("max_size_mb", 1, s.MaxSizeMB); err != nil {
		return err
	}
	if s.MaxBackups, err = sec.GetIntWithBounds("max_backups", 0, s.MaxBackups); err != nil {
		return err
	}
	if s.Compress, err = sec.GetBool("compress", s.Compress); err != nil {
		return err
	}
	return nil
}

func loadServer(sec *Section, s *ServerSettings) error {
	var err error
	if s.Addr, err = sec.Get("addr", s.Addr); err != nil {
		return err
	}
	if s.MaxUploadMB, err = sec.GetIntWithBounds("max_upload_mb", 1, s.MaxUploadMB); err != nil {
		return err
	}
	return nil
}

// RotationConfig returns the log file rotation settings.
func (s LogSettings) RotationConfig() log.RotationConfig {
	return log.RotationConfig{
		Filename:   s.File,
		MaxSize:    s.MaxSizeMB,
		MaxBackups: s.MaxBackups,
		Compress:   s.Compress,
	}
}
