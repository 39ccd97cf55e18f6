package script

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/expecto/pattern"
)

// Duration is a time.Duration written as a Go duration string ("500ms").
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func parseDuration(s string) (Duration, error) {
	v, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	if v < 0 {
		return 0, fmt.Errorf("negative duration %q", s)
	}
	return Duration(v), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	var s string
	if err := n.Decode(&s); err != nil {
		return err
	}
	v, err := parseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", n.Line, err)
	}
	*d = v
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	v, err := parseDuration(s)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// PatternSpec selects a pattern. Written as a plain string it is a regular
// expression; as a mapping, exactly one of regexp, literal or fold.
type PatternSpec struct {
	Regexp  string `json:"regexp,omitempty"`
	Literal string `json:"literal,omitempty"`
	Fold    string `json:"fold,omitempty"`
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (p *PatternSpec) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		*p = PatternSpec{Regexp: n.Value}
		return nil
	}
	var m map[string]string
	if err := n.Decode(&m); err != nil {
		return fmt.Errorf("line %d: pattern must be a string or a mapping: %w", n.Line, err)
	}
	spec, err := patternFromMap(m)
	if err != nil {
		return fmt.Errorf("line %d: %w", n.Line, err)
	}
	*p = spec
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *PatternSpec) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*p = PatternSpec{Regexp: s}
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal(b, &m); err != nil {
		return fmt.Errorf("pattern must be a string or an object: %w", err)
	}
	spec, err := patternFromMap(m)
	if err != nil {
		return err
	}
	*p = spec
	return nil
}

func patternFromMap(m map[string]string) (PatternSpec, error) {
	if len(m) != 1 {
		return PatternSpec{}, fmt.Errorf("pattern needs exactly one of regexp, literal, fold")
	}
	var spec PatternSpec
	for k, v := range m {
		switch k {
		case "regexp":
			spec.Regexp = v
		case "literal":
			spec.Literal = v
		case "fold":
			spec.Fold = v
		default:
			return PatternSpec{}, fmt.Errorf("unknown pattern kind %q", k)
		}
	}
	return spec, nil
}

// Compile builds the pattern.
func (p PatternSpec) Compile() (pattern.Pattern, error) {
	switch {
	case p.Literal != "":
		return pattern.Literal(p.Literal), nil
	case p.Fold != "":
		return pattern.Fold(p.Fold), nil
	case p.Regexp != "":
		return pattern.Compile(p.Regexp)
	}
	return nil, fmt.Errorf("empty pattern")
}

func (p PatternSpec) String() string {
	switch {
	case p.Literal != "":
		return fmt.Sprintf("%q", p.Literal)
	case p.Fold != "":
		return fmt.Sprintf("%q/i", p.Fold)
	}
	return "/" + p.Regexp + "/"
}
