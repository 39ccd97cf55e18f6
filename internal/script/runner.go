package script

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/roach88/expecto/engine"
	"github.com/roach88/expecto/internal/transcript"
	"github.com/roach88/expecto/pattern"
	"github.com/roach88/expecto/spawn"
)

// exitWait bounds how long the runner waits for expect_exit when the
// script sets no timeout.
const exitWait = 5 * time.Second

// Result is the outcome of running a script.
type Result struct {
	// Pass is true when every step and assertion succeeded and the exit
	// status matched expect_exit.
	Pass bool `json:"pass"`

	Transcript transcript.Transcript `json:"-"`

	// Errors holds one message per failure. Empty when Pass is true.
	Errors []string `json:"errors"`

	// ExitCode is the program's exit status, or -1 if it was killed or
	// its status is unknown.
	ExitCode int `json:"exit_code"`

	// Steps is the number of steps that completed.
	Steps int `json:"steps"`
}

func newResult() *Result {
	return &Result{Pass: true, Errors: []string{}, ExitCode: -1}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Pass = false
}

// RunOptions adjusts a run without editing the script.
type RunOptions struct {
	Logger   *slog.Logger
	Recorder engine.Recorder

	// SessionID fixes the session id. Empty generates a UUIDv7.
	SessionID string

	// Timeout and Encoding override the script's values when set.
	Timeout  time.Duration
	Encoding string

	// MaxBuffer overrides the script's buffer cap when > 0.
	MaxBuffer int

	// Stderr receives the program's stderr unless the script merges it.
	Stderr io.Writer

	KillGrace time.Duration
}

// Run spawns the script's command and plays the steps against it. A step
// failure stops the run and is reported in Result.Errors; the returned
// error is reserved for scripts that cannot run at all (invalid script,
// command not found).
func Run(ctx context.Context, s *Script, opts RunOptions) (*Result, error) {
	if err := Validate(s); err != nil {
		return nil, fmt.Errorf("script %s: %w", s.Name, err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	logger = logger.With("script", s.Name)

	collector := transcript.NewCollector()
	p, err := spawn.Start(ctx, s.Command, s.Args, spawnOptions(s, opts, logger, collector)...)
	if err != nil {
		return nil, fmt.Errorf("script %s: %w", s.Name, err)
	}

	r := &runner{script: s, proc: p, logger: logger, result: newResult()}
	r.steps(ctx)
	r.finish(ctx)

	r.result.Transcript = transcript.Transcript{
		SessionID: p.SessionID(),
		Name:      s.Name,
		Command:   s.Command,
		Args:      s.Args,
		Events:    collector.Events(),
	}
	for _, msg := range EvaluateAssertions(r.result.Transcript.Events, s.Assertions) {
		r.result.AddError(msg)
	}

	logger.Info("script finished",
		"pass", r.result.Pass,
		"steps", r.result.Steps,
		"exit_code", r.result.ExitCode,
		"errors", len(r.result.Errors),
	)
	return r.result, nil
}

func spawnOptions(s *Script, opts RunOptions, logger *slog.Logger, collector *transcript.Collector) []spawn.Option {
	o := []spawn.Option{
		spawn.WithName(s.Name),
		spawn.WithLogger(logger),
		spawn.WithRecorder(engine.Recorders(collector, opts.Recorder)),
		spawn.WithEnv(s.environ()...),
	}

	timeout := s.Timeout.Std()
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}
	if timeout > 0 {
		o = append(o, spawn.WithTimeout(timeout))
	}

	encoding := s.Encoding
	if opts.Encoding != "" {
		encoding = opts.Encoding
	}
	if encoding != "" {
		o = append(o, spawn.WithEncoding(encoding))
	}

	maxBuffer := s.MaxBuffer
	if opts.MaxBuffer > 0 {
		maxBuffer = opts.MaxBuffer
	}
	if maxBuffer > 0 {
		o = append(o, spawn.WithMaxBuffer(maxBuffer))
	}

	if dir := s.Dir; dir != "" {
		if !filepath.IsAbs(dir) && s.Path != "" {
			dir = filepath.Join(filepath.Dir(s.Path), dir)
		}
		o = append(o, spawn.WithDir(dir))
	}
	if s.MergeStderr {
		o = append(o, spawn.WithMergedStderr())
	} else if opts.Stderr != nil {
		o = append(o, spawn.WithStderr(opts.Stderr))
	}
	if opts.SessionID != "" {
		o = append(o, spawn.WithSessionID(opts.SessionID))
	}
	if opts.KillGrace > 0 {
		o = append(o, spawn.WithKillGrace(opts.KillGrace))
	}
	return o
}

type runner struct {
	script *Script
	proc   *spawn.Process
	logger *slog.Logger
	result *Result
}

func (r *runner) steps(ctx context.Context) {
	for i, step := range r.script.Steps {
		if err := r.step(ctx, step); err != nil {
			r.result.AddError(fmt.Sprintf("steps[%d] %s: %v", i, step.Describe(), err))
			r.logger.Info("step failed", "step", i, "error", err)
			return
		}
		r.result.Steps++
		r.logger.Debug("step done", "step", i, "kind", step.Kind())
	}
}

func (r *runner) step(ctx context.Context, step Step) error {
	d := r.script.stepTimeout(step)

	switch step.Kind() {
	case StepExpect:
		p, err := step.Expect.Compile()
		if err != nil {
			return err
		}
		_, err = r.expect(ctx, d, p)
		return err

	case StepExpectAny:
		ps := make([]pattern.Pattern, len(step.ExpectAny))
		for i, spec := range step.ExpectAny {
			p, err := spec.Compile()
			if err != nil {
				return err
			}
			ps[i] = p
		}
		_, err := r.expect(ctx, d, ps...)
		return err

	case StepSend:
		return r.proc.Send(*step.Send)

	case StepSendLine:
		return r.proc.SendLine(*step.SendLine)

	case StepWaitEOF:
		if d <= 0 {
			d = engine.DefaultTimeout
		}
		wctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		if _, err := r.proc.EOF().Wait(wctx); err != nil {
			return fmt.Errorf("%w (buffer %q)", err, r.proc.Buffer())
		}
		return nil
	}
	return errors.New("invalid step")
}

// expect registers ps as one batch and returns the index of the winner.
// A step timeout is armed first so the batch attaches to it.
func (r *runner) expect(ctx context.Context, d time.Duration, ps ...pattern.Pattern) (int, error) {
	if d > 0 {
		r.proc.Timeout(d)
	}
	outs := r.proc.ExpectAll(ps...)

	var first error
	for i, out := range outs {
		_, err := out.Wait(ctx)
		if err == nil {
			return i, nil
		}
		if first == nil {
			first = err
		}
	}
	return -1, fmt.Errorf("%w (buffer %q)", first, r.proc.Buffer())
}

// finish waits for the exit status when the script asks for one, then
// closes the session.
func (r *runner) finish(ctx context.Context) {
	if want := r.script.ExpectExit; want != nil && r.result.Pass {
		d := r.script.Timeout.Std()
		if d <= 0 {
			d = exitWait
		}
		wctx, cancel := context.WithTimeout(ctx, d)
		code, err := r.proc.Wait(wctx)
		cancel()
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			r.result.AddError(fmt.Sprintf("expect_exit: process did not exit within %s", d))
		case err != nil:
			r.result.AddError(fmt.Sprintf("expect_exit: %v", err))
		case code != *want:
			r.result.AddError(fmt.Sprintf("expect_exit: status %d, expected %d", code, *want))
		}
	}

	if err := r.proc.Close(); err != nil {
		r.result.AddError(fmt.Sprintf("close: %v", err))
	}
	r.result.ExitCode = r.proc.ExitCode()
}
