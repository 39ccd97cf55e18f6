package script

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads a script file. The format follows the extension: .yaml or
// .yml for YAML, .cue for CUE. The script is validated before it is
// returned.
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}

	var s *Script
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		s, err = ParseYAML(data)
	case ".cue":
		s, err = ParseCUE(filepath.Base(path), data)
	default:
		return nil, fmt.Errorf("script %s: unsupported extension %q", path, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("script %s: %w", path, err)
	}
	s.Path = path

	if err := Validate(s); err != nil {
		return nil, fmt.Errorf("script %s: %w", path, err)
	}
	return s, nil
}

// ParseYAML decodes a YAML script. Unknown fields are rejected so typos
// like "sendlin:" fail loudly.
func ParseYAML(data []byte) (*Script, error) {
	var s Script
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}
	return &s, nil
}

// IsScript reports whether path has a script extension.
func IsScript(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".cue":
		return true
	}
	return false
}

// Find returns the script files directly inside dir, sorted by name.
func Find(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("find scripts: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !IsScript(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	return paths, nil
}

// Validate checks the fields the runner relies on. All problems are
// reported together.
func Validate(s *Script) error {
	var errs []error
	if s.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if s.Command == "" {
		errs = append(errs, errors.New("command is required"))
	}
	if s.MaxBuffer < 0 {
		errs = append(errs, fmt.Errorf("max_buffer must not be negative, got %d", s.MaxBuffer))
	}
	if len(s.Steps) == 0 {
		errs = append(errs, errors.New("steps list is required and must be non-empty"))
	}

	for i, step := range s.Steps {
		if err := validateStep(step); err != nil {
			errs = append(errs, fmt.Errorf("steps[%d]: %w", i, err))
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			errs = append(errs, fmt.Errorf("assertions[%d]: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

func validateStep(step Step) error {
	kinds := step.kinds()
	switch len(kinds) {
	case 0:
		return errors.New("step has no action (expect, expect_any, send, sendline, wait_eof)")
	case 1:
	default:
		return fmt.Errorf("step has more than one action: %v", kinds)
	}

	switch kinds[0] {
	case StepExpect:
		if _, err := step.Expect.Compile(); err != nil {
			return fmt.Errorf("expect: %w", err)
		}
	case StepExpectAny:
		if len(step.ExpectAny) == 0 {
			return errors.New("expect_any needs at least one pattern")
		}
		for j, p := range step.ExpectAny {
			if _, err := p.Compile(); err != nil {
				return fmt.Errorf("expect_any[%d]: %w", j, err)
			}
		}
	}
	return nil
}
