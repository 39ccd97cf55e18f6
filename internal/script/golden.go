package script

import (
	"context"
	"testing"

	"github.com/roach88/expecto/internal/transcript"
)

// RunWithGolden runs s and compares its transcript against
// testdata/golden/<s.Name>.golden. The run must pass.
//
// To regenerate golden files, run:
//
//	go test ./internal/script -update
func RunWithGolden(t *testing.T, s *Script, opts RunOptions) *Result {
	t.Helper()

	result, err := Run(context.Background(), s, opts)
	if err != nil {
		t.Fatalf("run %s: %v", s.Name, err)
	}
	if !result.Pass {
		t.Fatalf("script %s failed:\n%v", s.Name, result.Errors)
	}

	transcript.AssertGolden(t, s.Name, result.Transcript)
	return result
}
