//go:build !windows

package cli

import (
	"fmt"
	"os"
	"testing"

	"github.com/roach88/expecto/internal/testutil"
)

// TestMain puts the keeper fixture first in PATH for the commands that run
// scripts.
func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "expecto-cli-*")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create temp dir: %v\n", err)
		os.Exit(1)
	}
	if _, err := testutil.BuildKeeper(dir); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.RemoveAll(dir)
		os.Exit(1)
	}
	os.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
	os.Unsetenv(ConfigEnv)

	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}
