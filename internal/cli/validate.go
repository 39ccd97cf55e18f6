package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/expecto/internal/script"
)

// ScriptValidation is the validation outcome for one file.
type ScriptValidation struct {
	Path  string `json:"path"`
	Name  string `json:"name,omitempty"`
	Steps int    `json:"steps,omitempty"`
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid   bool               `json:"valid"`
	Scripts []ScriptValidation `json:"scripts"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <script|dir>...",
		Short: "Load and validate scripts without running them",
		Long: `Load and validate scripts without running them.

Checks syntax, unknown fields, step shapes, patterns and assertions.
A directory argument validates every script directly inside it.

Exit codes:
  0 - All scripts valid
  1 - One or more scripts invalid
  2 - Command error (path not found)`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	paths, err := expandScriptPaths(args)
	if err != nil {
		_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
		return WrapExitError(ExitCommandError, "validate", err)
	}

	result := ValidationResult{Valid: true, Scripts: make([]ScriptValidation, 0, len(paths))}
	for _, path := range paths {
		formatter.VerboseLog("Validating %s", path)
		v := ScriptValidation{Path: path, Valid: true}
		s, err := script.Load(path)
		if err != nil {
			v.Valid = false
			v.Error = err.Error()
			result.Valid = false
		} else {
			v.Name = s.Name
			v.Steps = len(s.Steps)
		}
		result.Scripts = append(result.Scripts, v)
	}

	if formatter.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: result}
		if !result.Valid {
			resp.Status = "error"
			resp.Error = &CLIError{Code: ErrCodeInvalid, Message: "invalid scripts"}
		}
		if err := formatter.encode(resp); err != nil {
			return err
		}
	} else {
		w := formatter.Writer
		for _, v := range result.Scripts {
			if v.Valid {
				fmt.Fprintf(w, "✓ %s (%s, %d steps)\n", v.Path, v.Name, v.Steps)
			} else {
				fmt.Fprintf(w, "✗ %s\n  %s\n", v.Path, v.Error)
			}
		}
	}

	if !result.Valid {
		return NewExitError(ExitFailure, "invalid scripts")
	}
	return nil
}

// expandScriptPaths replaces directory arguments with the scripts they
// contain. A path that does not exist is an error.
func expandScriptPaths(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("path not found: %s", arg)
		}
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		found, err := script.Find(arg)
		if err != nil {
			return nil, err
		}
		paths = append(paths, found...)
	}
	return paths, nil
}
