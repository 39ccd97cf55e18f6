package testutil

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// KeeperPackage is the import path of the bridge keeper fixture program.
const KeeperPackage = "github.com/roach88/expecto/internal/testbin/keeper"

// BuildKeeper compiles the keeper fixture into dir and returns its path.
// Intended for TestMain, before any test runs.
func BuildKeeper(dir string) (string, error) {
	bin := filepath.Join(dir, "keeper")
	cmd := exec.Command("go", "build", "-o", bin, KeeperPackage)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("build keeper: %w", err)
	}
	return bin, nil
}
