// Command expecto runs scripted conversations with interactive programs.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/expecto/internal/cli"
)

func main() {
	os.Exit(run())
}

func run() int {
	err := cli.NewRootCommand().Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "expecto: %v\n", err)
	}
	return cli.GetExitCode(err)
}
