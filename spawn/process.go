//go:build !windows

package spawn

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/roach88/expecto/engine"
)

// Process is a running child wired to an engine. The embedded Engine's
// Expect, Timeout and Send operate on the child's stdout and stdin.
type Process struct {
	*engine.Engine

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *os.File
	opts   options
	logger *slog.Logger

	engineDone chan struct{}
	runErr     error // set before engineDone closes

	exited   chan struct{}
	exitCode int   // set before exited closes
	waitErr  error // set before exited closes

	closeOnce sync.Once
	closeErr  error
}

// Start launches name with args. ctx bounds the whole session: when it is
// done the child is terminated and the engine stops.
//
// Errors starting the child (for example, executable not found) are
// returned here, never delivered through an outcome.
func Start(ctx context.Context, name string, args []string, opts ...Option) (*Process, error) {
	o := resolveOptions(opts...)

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = o.dir
	if len(o.env) > 0 {
		cmd.Env = append(os.Environ(), o.env...)
	}
	cmd.Cancel = func() error {
		return signalProcess(cmd.Process, syscall.SIGTERM)
	}
	cmd.WaitDelay = o.killGrace

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("spawn: stdin pipe: %w", err)
	}

	// An os.Pipe rather than StdoutPipe so stderr can share the write end.
	pr, pw, err := os.Pipe()
	if err != nil {
		_ = stdin.Close()
		return nil, fmt.Errorf("spawn: stdout pipe: %w", err)
	}
	cmd.Stdout = pw
	switch {
	case o.mergeStderr:
		cmd.Stderr = pw
	case o.stderr != nil:
		cmd.Stderr = o.stderr
	}

	cfg := o.engine
	cfg.Input = pr
	cfg.Output = stdin
	if cfg.Name == "" {
		cfg.Name = name
	}
	eng, err := engine.New(cfg)
	if err != nil {
		_ = stdin.Close()
		_ = pr.Close()
		_ = pw.Close()
		return nil, fmt.Errorf("spawn: %w", err)
	}

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		_ = pr.Close()
		_ = pw.Close()
		return nil, fmt.Errorf("spawn: start %s: %w", name, err)
	}
	// The child holds its own copy; ours would keep the pipe open after exit.
	_ = pw.Close()

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	p := &Process{
		Engine:     eng,
		cmd:        cmd,
		stdin:      stdin,
		stdout:     pr,
		opts:       o,
		logger:     logger.With("engine", cfg.Name, "session", eng.SessionID()),
		engineDone: make(chan struct{}),
		exited:     make(chan struct{}),
		exitCode:   -1,
	}
	p.logger.Info("process started", "command", name, "args", args, "pid", cmd.Process.Pid)

	go func() {
		defer close(p.engineDone)
		p.runErr = eng.Run(ctx)
	}()
	go p.waitLoop()

	return p, nil
}

// signalProcess sends sig to a process, returning nil if the process
// has already exited (os.ErrProcessDone).
func signalProcess(proc *os.Process, sig os.Signal) error {
	err := proc.Signal(sig)
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}

func (p *Process) waitLoop() {
	err := p.cmd.Wait()

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		p.exitCode = 0
	case errors.As(err, &exitErr):
		p.exitCode = exitErr.ExitCode()
		if p.exitCode < 0 {
			p.waitErr = fmt.Errorf("spawn: %w", err)
		}
	default:
		p.waitErr = fmt.Errorf("spawn: wait: %w", err)
	}

	p.logger.Info("process exited", "pid", p.cmd.Process.Pid, "code", p.exitCode)
	close(p.exited)
}

// Pid returns the child's process id.
func (p *Process) Pid() int {
	return p.cmd.Process.Pid
}

// Exited is closed when the child has exited.
func (p *Process) Exited() <-chan struct{} {
	return p.exited
}

// ExitCode returns the exit status, or -1 while the child is running or if
// it was killed by a signal.
func (p *Process) ExitCode() int {
	select {
	case <-p.exited:
		return p.exitCode
	default:
		return -1
	}
}

// Wait blocks until the child exits or ctx is done and returns its exit
// status. A non-zero status is not an error; termination by a signal is.
func (p *Process) Wait(ctx context.Context) (int, error) {
	select {
	case <-p.exited:
		return p.exitCode, p.waitErr
	case <-ctx.Done():
		return -1, ctx.Err()
	}
}

// Close ends the session: stdin is closed, the child gets SIGTERM and is
// killed if it has not exited within the grace period, then the engine is
// stopped, cancelling whatever is still pending with engine.ErrStopped.
// Safe to call multiple times. Returns the engine's input error, if any.
func (p *Process) Close() error {
	p.closeOnce.Do(func() {
		_ = p.stdin.Close()

		select {
		case <-p.exited:
		default:
			_ = signalProcess(p.cmd.Process, syscall.SIGTERM)
			select {
			case <-p.exited:
			case <-time.After(p.opts.killGrace):
				p.logger.Warn("process ignored SIGTERM, killing", "pid", p.cmd.Process.Pid)
				_ = signalProcess(p.cmd.Process, os.Kill)
				<-p.exited
			}
		}

		p.Stop()
		<-p.engineDone
		_ = p.stdout.Close()

		if p.runErr != nil && !errors.Is(p.runErr, context.Canceled) {
			p.closeErr = p.runErr
		}
	})
	return p.closeErr
}
