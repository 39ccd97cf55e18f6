// Package script loads declarative expecto session scripts and runs them
// against a spawned program.
//
// A script names a command and a list of steps. Each step does exactly one
// thing: wait for a pattern (expect), wait for the first of several
// (expect_any), write to the program (send, sendline), or wait for its
// output to end (wait_eof). Scripts are written in YAML or CUE; both forms
// decode into the same Script value.
package script

import (
	"fmt"
	"sort"
	"time"
)

// Script is one scripted conversation with a program.
type Script struct {
	// Name identifies the script and its golden transcript.
	Name string `yaml:"name" json:"name"`

	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Command is run with Args. A bare name is looked up in PATH.
	Command string   `yaml:"command" json:"command"`
	Args    []string `yaml:"args,omitempty" json:"args,omitempty"`

	// Encoding of the program's output. Empty means UTF-8.
	Encoding string `yaml:"encoding,omitempty" json:"encoding,omitempty"`

	// Timeout is the default per-step timeout. Zero means the engine default.
	Timeout Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`

	MaxBuffer   int               `yaml:"max_buffer,omitempty" json:"max_buffer,omitempty"`
	Env         map[string]string `yaml:"env,omitempty" json:"env,omitempty"`
	Dir         string            `yaml:"dir,omitempty" json:"dir,omitempty"`
	MergeStderr bool              `yaml:"merge_stderr,omitempty" json:"merge_stderr,omitempty"`

	// ExpectExit, when set, makes the runner wait for the program to exit
	// after the last step and compare its status.
	ExpectExit *int `yaml:"expect_exit,omitempty" json:"expect_exit,omitempty"`

	Steps      []Step      `yaml:"steps" json:"steps"`
	Assertions []Assertion `yaml:"assertions,omitempty" json:"assertions,omitempty"`

	// Path is the file the script was loaded from, if any. A relative Dir
	// is resolved against it.
	Path string `yaml:"-" json:"-"`
}

// StepKind names what a step does.
type StepKind string

const (
	StepExpect    StepKind = "expect"
	StepExpectAny StepKind = "expect_any"
	StepSend      StepKind = "send"
	StepSendLine  StepKind = "sendline"
	StepWaitEOF   StepKind = "wait_eof"
)

// Step is one action of a script. Exactly one of the action fields is set.
type Step struct {
	Name      string        `yaml:"name,omitempty" json:"name,omitempty"`
	Expect    *PatternSpec  `yaml:"expect,omitempty" json:"expect,omitempty"`
	ExpectAny []PatternSpec `yaml:"expect_any,omitempty" json:"expect_any,omitempty"`
	Send      *string       `yaml:"send,omitempty" json:"send,omitempty"`
	SendLine  *string       `yaml:"sendline,omitempty" json:"sendline,omitempty"`
	WaitEOF   bool          `yaml:"wait_eof,omitempty" json:"wait_eof,omitempty"`

	// Timeout overrides the script timeout for this step.
	Timeout Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// kinds lists the actions set on s.
func (s Step) kinds() []StepKind {
	var out []StepKind
	if s.Expect != nil {
		out = append(out, StepExpect)
	}
	if s.ExpectAny != nil {
		out = append(out, StepExpectAny)
	}
	if s.Send != nil {
		out = append(out, StepSend)
	}
	if s.SendLine != nil {
		out = append(out, StepSendLine)
	}
	if s.WaitEOF {
		out = append(out, StepWaitEOF)
	}
	return out
}

// Kind returns the step's action, or "" when the step is invalid.
func (s Step) Kind() StepKind {
	k := s.kinds()
	if len(k) != 1 {
		return ""
	}
	return k[0]
}

// Describe renders the step for failure messages.
func (s Step) Describe() string {
	if s.Name != "" {
		return s.Name
	}
	switch s.Kind() {
	case StepExpect:
		return "expect " + s.Expect.String()
	case StepExpectAny:
		descs := make([]string, len(s.ExpectAny))
		for i, p := range s.ExpectAny {
			descs[i] = p.String()
		}
		return fmt.Sprintf("expect_any %v", descs)
	case StepSend:
		return fmt.Sprintf("send %q", *s.Send)
	case StepSendLine:
		return fmt.Sprintf("sendline %q", *s.SendLine)
	case StepWaitEOF:
		return "wait_eof"
	}
	return "invalid step"
}

// environ renders Env as sorted KEY=value pairs.
func (s *Script) environ() []string {
	keys := make([]string, 0, len(s.Env))
	for k := range s.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+s.Env[k])
	}
	return out
}

// stepTimeout returns the timeout for step, falling back to the script's.
// Zero means the engine default.
func (s *Script) stepTimeout(step Step) time.Duration {
	if step.Timeout > 0 {
		return step.Timeout.Std()
	}
	return s.Timeout.Std()
}
