package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/expecto/engine"
	"github.com/roach88/expecto/internal/script"
	"github.com/roach88/expecto/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database   string
	Timeout    time.Duration
	Encoding   string
	MaxBuffer  int
	Transcript bool

	// IDs overrides the session id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDs engine.IDGenerator
}

// RunSummary is the result of one script run.
type RunSummary struct {
	Script    string         `json:"script"`
	SessionID string         `json:"session_id"`
	Pass      bool           `json:"pass"`
	Steps     int            `json:"steps"`
	ExitCode  int            `json:"exit_code"`
	Errors    []string       `json:"errors,omitempty"`
	Events    []engine.Event `json:"events,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <script>",
		Short: "Run one script",
		Long: `Run a script against the program it names.

The script is a YAML (.yaml, .yml) or CUE (.cue) file. With --db the
session and every engine event are recorded for expecto trace.

Exit codes:
  0 - Script passed
  1 - Script failed (step, assertion or exit status)
  2 - Command error (script not found or invalid, program not found)

Examples:
  expecto run ./scripts/bridge.yaml
  expecto run ./scripts/bridge.yaml --db ./expecto.db
  expecto run ./scripts/bridge.yaml --timeout 5s --transcript`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScript(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "record the session to this SQLite database")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "default step timeout (overrides script and config)")
	cmd.Flags().StringVar(&opts.Encoding, "encoding", "", "output encoding of the program (overrides script and config)")
	cmd.Flags().IntVar(&opts.MaxBuffer, "max-buffer", 0, "engine buffer cap in bytes")
	cmd.Flags().BoolVar(&opts.Transcript, "transcript", false, "print the recorded events")

	return cmd
}

// runOptions merges flags over the config file.
func (o *RunOptions) runOptions() script.RunOptions {
	ro := script.RunOptions{
		Logger:    o.logger(),
		Timeout:   o.Timeout,
		Encoding:  o.Encoding,
		MaxBuffer: o.MaxBuffer,
		Stderr:    io.Discard,
	}
	if ro.Timeout == 0 {
		ro.Timeout, _ = o.Config.timeout()
	}
	if ro.Encoding == "" {
		ro.Encoding = o.Config.Encoding
	}
	if ro.MaxBuffer == 0 {
		ro.MaxBuffer = o.Config.MaxBuffer
	}
	return ro
}

func runScript(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	s, err := script.Load(path)
	if err != nil {
		return loadFailure(formatter, path, err)
	}
	formatter.VerboseLog("Loaded script %s (%d steps)", s.Name, len(s.Steps))

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ids := opts.IDs
	if ids == nil {
		ids = engine.UUIDv7Generator{}
	}
	ro := opts.runOptions()
	ro.SessionID = ids.Generate()

	db := opts.Database
	if db == "" {
		db = opts.Config.DB
	}
	var st *store.Store
	if db != "" {
		st, err = store.Open(db)
		if err != nil {
			_ = formatter.Error(ErrCodeStore, "failed to open database", err.Error())
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer st.Close()

		err = st.WriteSession(ctx, store.Session{
			ID:        ro.SessionID,
			Name:      s.Name,
			Command:   s.Command,
			Args:      s.Args,
			StartedAt: time.Now(),
		})
		if err != nil {
			_ = formatter.Error(ErrCodeStore, "failed to record session", err.Error())
			return WrapExitError(ExitCommandError, "failed to record session", err)
		}
		ro.Recorder = st.Recorder(ctx, ro.SessionID)
		formatter.VerboseLog("Recording session %s to %s", ro.SessionID, db)
	}

	result, err := script.Run(ctx, s, ro)
	if err != nil {
		if st != nil {
			_ = st.FinishSession(context.WithoutCancel(ctx), ro.SessionID, -1, false)
		}
		_ = formatter.Error(ErrCodeStartFailed, "failed to start script", err.Error())
		return WrapExitError(ExitCommandError, "failed to start script", err)
	}
	if st != nil {
		if err := st.FinishSession(context.WithoutCancel(ctx), ro.SessionID, result.ExitCode, result.Pass); err != nil {
			opts.logger().Warn("failed to finish session", "session", ro.SessionID, "error", err)
		}
	}

	summary := RunSummary{
		Script:    s.Name,
		SessionID: ro.SessionID,
		Pass:      result.Pass,
		Steps:     result.Steps,
		ExitCode:  result.ExitCode,
		Errors:    result.Errors,
	}
	if opts.Transcript {
		summary.Events = result.Transcript.Events
	}
	return outputRun(formatter, summary)
}

func outputRun(formatter *OutputFormatter, summary RunSummary) error {
	if formatter.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: summary, SessionID: summary.SessionID}
		if !summary.Pass {
			resp.Status = "error"
			resp.Error = &CLIError{Code: ErrCodeFailed, Message: fmt.Sprintf("script %s failed", summary.Script)}
		}
		if err := formatter.encode(resp); err != nil {
			return err
		}
	} else {
		w := formatter.Writer
		if summary.Pass {
			fmt.Fprintf(w, "✓ %s (%d steps, exit %d)\n", summary.Script, summary.Steps, summary.ExitCode)
		} else {
			fmt.Fprintf(w, "✗ %s (%d steps, exit %d)\n", summary.Script, summary.Steps, summary.ExitCode)
			for _, e := range summary.Errors {
				fmt.Fprintf(w, "  %s\n", e)
			}
		}
		if len(summary.Events) > 0 {
			fmt.Fprintln(w)
			printEvents(w, summary.Events)
		}
		fmt.Fprintf(w, "Session: %s\n", summary.SessionID)
	}

	if !summary.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("script %s failed", summary.Script))
	}
	return nil
}

// loadFailure reports a script that could not be loaded. Both cases exit
// with ExitCommandError; the error code tells them apart.
func loadFailure(formatter *OutputFormatter, path string, err error) error {
	if errors.Is(err, os.ErrNotExist) {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("script not found: %s", path), nil)
		return WrapExitError(ExitCommandError, "script not found", err)
	}
	_ = formatter.Error(ErrCodeInvalid, "invalid script", err.Error())
	return WrapExitError(ExitCommandError, "invalid script", err)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
