package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/expecto/internal/script"
	"github.com/roach88/expecto/internal/transcript"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // script filter (glob pattern on the file name without extension)
}

// ScriptResult holds the result of a single script run.
type ScriptResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scripts []ScriptResult `json:"scripts"`
	Passed  int            `json:"passed"`
	Failed  int            `json:"failed"`
	Total   int            `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scripts-dir>",
		Short: "Run scripts and compare golden transcripts",
		Long: `Run every script in a directory and compare each transcript against
golden/<name>.golden next to the script. Scripts without a golden file
pass on their steps and assertions alone.

Exit codes:
  0 - All scripts passed
  1 - One or more scripts failed
  2 - Command error (invalid paths, etc.)

Examples:
  expecto test ./scripts
  expecto test ./scripts --filter "bridge*"
  expecto test ./scripts --update
  expecto test ./scripts --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scripts by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, dir string, cmd *cobra.Command) error {
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return NewExitError(ExitCommandError, fmt.Sprintf("scripts directory not found: %s", dir))
	}

	files, err := findScriptFiles(dir, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scripts", err)
	}

	result := TestResult{Scripts: make([]ScriptResult, 0, len(files)), Total: len(files)}
	if len(files) == 0 {
		if opts.Format == "json" {
			return outputTestJSON(opts.formatter(cmd), result)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No scripts found.")
		return nil
	}

	for _, file := range files {
		sr := runTestScript(opts, file, cmd)
		if opts.Format != "json" {
			reportScript(cmd.OutOrStdout(), sr)
		}
		result.Scripts = append(result.Scripts, sr)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if opts.Format == "json" {
		return outputTestJSON(opts.formatter(cmd), result)
	}
	return outputTestText(cmd.OutOrStdout(), result)
}

// findScriptFiles finds script files directly in dir, optionally filtered.
func findScriptFiles(dir, filter string) ([]string, error) {
	all, err := script.Find(dir)
	if err != nil {
		return nil, err
	}
	if filter == "" {
		return all, nil
	}

	var files []string
	for _, path := range all {
		matched, err := filepath.Match(filter, scriptBase(path))
		if err != nil {
			return nil, fmt.Errorf("invalid filter pattern: %w", err)
		}
		if matched {
			files = append(files, path)
		}
	}
	return files, nil
}

func runTestScript(opts *TestOptions, file string, cmd *cobra.Command) ScriptResult {
	name := scriptBase(file)

	s, err := script.Load(file)
	if err != nil {
		return ScriptResult{Name: name, Errors: []string{fmt.Sprintf("load: %v", err)}}
	}
	name = s.Name

	ro := (&RunOptions{RootOptions: opts.RootOptions}).runOptions()
	result, err := script.Run(commandContext(cmd), s, ro)
	if err != nil {
		return ScriptResult{Name: name, Errors: []string{fmt.Sprintf("run: %v", err)}}
	}

	snapshot, err := transcript.Snapshot(result.Transcript)
	if err != nil {
		return ScriptResult{Name: name, Errors: []string{fmt.Sprintf("snapshot: %v", err)}}
	}

	goldenPath := goldenFilePath(file)
	if opts.Update {
		if !result.Pass {
			return ScriptResult{Name: name, Errors: append([]string{"golden not updated for a failing script"}, result.Errors...)}
		}
		if err := writeGolden(goldenPath, snapshot); err != nil {
			return ScriptResult{Name: name, Errors: []string{err.Error()}}
		}
		return ScriptResult{Name: name, Pass: true}
	}

	errs := result.Errors
	golden, err := os.ReadFile(goldenPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// No golden file: steps and assertions decide.
	case err != nil:
		errs = append(errs, fmt.Sprintf("read golden file: %v", err))
	case !bytes.Equal(golden, snapshot):
		errs = append(errs, "transcript does not match golden file (run with --update to regenerate)")
		errs = append(errs, goldenDiff(golden, snapshot))
	}

	return ScriptResult{Name: name, Pass: len(errs) == 0, Errors: errs}
}

func reportScript(w io.Writer, sr ScriptResult) {
	if sr.Pass {
		fmt.Fprintf(w, "✓ %s\n", sr.Name)
		return
	}
	fmt.Fprintf(w, "✗ %s\n", sr.Name)
	for _, e := range sr.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
}

func scriptBase(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// goldenFilePath returns the path to the golden file for a script.
func goldenFilePath(scriptFile string) string {
	return filepath.Join(filepath.Dir(scriptFile), "golden", scriptBase(scriptFile)+".golden")
}

func writeGolden(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

// goldenDiff names the first line where got departs from want.
func goldenDiff(want, got []byte) string {
	wl := strings.Split(strings.TrimSuffix(string(want), "\n"), "\n")
	gl := strings.Split(strings.TrimSuffix(string(got), "\n"), "\n")
	for i := 0; i < max(len(wl), len(gl)); i++ {
		var w, g string
		if i < len(wl) {
			w = wl[i]
		}
		if i < len(gl) {
			g = gl[i]
		}
		if w != g {
			return fmt.Sprintf("line %d:\n    want %s\n    got  %s", i+1, w, g)
		}
	}
	return "files differ"
}

// outputTestJSON outputs the test result as JSON.
func outputTestJSON(formatter *OutputFormatter, result TestResult) error {
	resp := CLIResponse{Status: "ok", Data: result}
	if result.Failed > 0 {
		resp.Status = "error"
		resp.Error = &CLIError{
			Code:    ErrCodeFailed,
			Message: fmt.Sprintf("%d script(s) failed", result.Failed),
		}
	}
	if err := formatter.encode(resp); err != nil {
		return err
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d script(s) failed", result.Failed))
	}
	return nil
}

// outputTestText outputs the test summary as text.
func outputTestText(w io.Writer, result TestResult) error {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d script(s) failed", result.Failed))
	}

	fmt.Fprintln(w, "✓ All scripts passed")
	return nil
}
