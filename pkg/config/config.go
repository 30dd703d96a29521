// Configuration file parsing
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Config is a parsed INI-style configuration file. Sections and options are
// tracked as they are read so leftovers can be reported as mistakes.
type Config struct {
	mu       sync.RWMutex
	sections map[string]*Section
	order    []string

	accessedSections map[string]struct{}
}

// New creates an empty Config.
func New() *Config {
	return &Config{
		sections:         make(map[string]*Section),
		accessedSections: make(map[string]struct{}),
	}
}

// Load reads a configuration file. A "[include glob]" header pulls in other
// files relative to the including file.
func Load(path string) (*Config, error) {
	c := New()
	if err := c.parseFile(path, make(map[string]bool)); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadString parses a configuration held in memory. Include headers are
// not allowed.
func LoadString(data string) (*Config, error) {
	c := New()
	p := &parser{config: c, name: "<string>"}
	if err := p.parse(strings.NewReader(data)); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) parseFile(path string, visited map[string]bool) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("config: invalid path %s: %w", path, err)
	}
	if visited[abs] {
		return fmt.Errorf("config: recursive include: %s", path)
	}
	visited[abs] = true
	defer func() { visited[abs] = false }()

	f, err := os.Open(abs)
	if err != nil {
		return fmt.Errorf("config: unable to open %s: %w", path, err)
	}
	defer f.Close()

	p := &parser{
		config: c,
		name:   path,
		include: func(pattern string) error {
			glob := filepath.Join(filepath.Dir(abs), pattern)
			matches, err := filepath.Glob(glob)
			if err != nil {
				return fmt.Errorf("config: invalid include pattern %q: %w", pattern, err)
			}
			if len(matches) == 0 && !strings.ContainsAny(glob, "*?[") {
				return fmt.Errorf("config: include file does not exist: %s", glob)
			}
			sort.Strings(matches)
			for _, m := range matches {
				if err := c.parseFile(m, visited); err != nil {
					return err
				}
			}
			return nil
		},
	}
	return p.parse(f)
}

type parser struct {
	config  *Config
	name    string
	include func(pattern string) error

	section string
	options map[string]string
}

func (p *parser) flush() {
	if p.section != "" {
		p.config.addSection(p.section, p.options)
	}
	p.section = ""
	p.options = nil
}

func (p *parser) parse(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(stripComment(scanner.Text()))
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			p.flush()
			header := strings.TrimSpace(line[1 : len(line)-1])
			if header == "" {
				return fmt.Errorf("config: empty section header at line %d in %s", lineNum, p.name)
			}
			if pattern, ok := strings.CutPrefix(header, "include "); ok {
				if p.include == nil {
					return fmt.Errorf("config: include not supported at line %d in %s", lineNum, p.name)
				}
				if err := p.include(strings.TrimSpace(pattern)); err != nil {
					return err
				}
				continue
			}
			p.section = header
			p.options = make(map[string]string)
			continue
		}

		// Options before the first section are ignored
		if p.section == "" {
			continue
		}

		key, value, ok := cutOption(line)
		if !ok {
			return fmt.Errorf("config: malformed option at line %d in %s: %q", lineNum, p.name, line)
		}
		p.options[key] = value
	}
	p.flush()

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("config: error reading %s: %w", p.name, err)
	}
	return nil
}

// stripComment removes a '#' comment. Inside a line the '#' must follow
// whitespace, so quoted values such as "#" survive.
func stripComment(line string) string {
	for i := 0; i < len(line); i++ {
		if line[i] == '#' && (i == 0 || line[i-1] == ' ' || line[i-1] == '\t') {
			return line[:i]
		}
	}
	return line
}

// cutOption splits "key: value" or "key = value", whichever separator
// comes first.
func cutOption(line string) (string, string, bool) {
	idx := strings.IndexAny(line, ":=")
	if idx <= 0 {
		return "", "", false
	}
	key := strings.TrimSpace(line[:idx])
	if key == "" {
		return "", "", false
	}
	return key, strings.TrimSpace(line[idx+1:]), true
}

// addSection adds a section, merging options into an existing one of the
// same name.
func (c *Config) addSection(name string, options map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.sections[name]; ok {
		for k, v := range options {
			existing.options[strings.ToLower(k)] = v
		}
		return
	}
	c.sections[name] = newSection(name, options)
	c.order = append(c.order, name)
}

// GetSection returns a Section by name, or an error if it does not exist.
func (c *Config) GetSection(name string) (*Section, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sec, ok := c.sections[name]
	if !ok {
		return nil, ErrMissingSection(name)
	}
	c.accessedSections[name] = struct{}{}
	return sec, nil
}

// GetSectionOptional returns a Section if it exists. A missing section is
// returned as an empty one so getters fall back to their defaults.
func (c *Config) GetSectionOptional(name string) *Section {
	c.mu.Lock()
	defer c.mu.Unlock()

	if sec, ok := c.sections[name]; ok {
		c.accessedSections[name] = struct{}{}
		return sec
	}
	return newSection(name, nil)
}

func (c *Config) HasSection(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.sections[name]
	return ok
}

// GetSectionNames returns all section names in file order.
func (c *Config) GetSectionNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]string, len(c.order))
	copy(result, c.order)
	return result
}

// GetUnusedSections returns the sections nobody asked for.
func (c *Config) GetUnusedSections() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var result []string
	for name := range c.sections {
		if _, ok := c.accessedSections[name]; !ok {
			result = append(result, name)
		}
	}
	sort.Strings(result)
	return result
}

// CheckUnusedOptions returns an error naming every section or option that
// was never read.
func (c *Config) CheckUnusedOptions() error {
	var problems []string
	for _, name := range c.GetUnusedSections() {
		problems = append(problems, fmt.Sprintf("[%s]: unknown section", name))
	}

	c.mu.RLock()
	for name, sec := range c.sections {
		if _, ok := c.accessedSections[name]; !ok {
			continue
		}
		if unused := sec.GetUnusedOptions(); len(unused) > 0 {
			problems = append(problems, fmt.Sprintf("[%s]: unknown options %v", name, unused))
		}
	}
	c.mu.RUnlock()

	if len(problems) > 0 {
		sort.Strings(problems)
		return NewConfigError("", "", strings.Join(problems, "; "))
	}
	return nil
}
