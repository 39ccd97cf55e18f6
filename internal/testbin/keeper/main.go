// Command keeper is the bridge keeper fixture: it asks three questions on
// stdout, reading one answer line per question from stdin, then lets the
// traveller pass.
//
// Behavior:
//   - Each question is printed as "What..." followed, after -delay, by
//     " is <question>?\n"
//   - After the last answer prints "Go on. Off you go.\n"
//   - An answer of "I don't know" prints "Auuuuuuuugh!\n" and exits with status 3
//   - -stderr writes a line to stderr before the first question
//   - -exit N exits with status N after the farewell
//   - -linger D keeps stdout open for D after the farewell
//   - -hang keeps running after the farewell until killed
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"
)

var questions = []string{"your name", "your quest", "your favourite colour"}

func main() {
	delay := flag.Duration("delay", 20*time.Millisecond, "pause between \"What...\" and the question")
	exitCode := flag.Int("exit", 0, "exit status after the farewell")
	stderr := flag.Bool("stderr", false, "write a line to stderr first")
	linger := flag.Duration("linger", 0, "pause after the farewell before exiting")
	hang := flag.Bool("hang", false, "do not exit after the farewell")
	flag.Parse()

	if *stderr {
		fmt.Fprintln(os.Stderr, "Stop!")
	}

	in := bufio.NewScanner(os.Stdin)
	for _, q := range questions {
		fmt.Print("What...")
		time.Sleep(*delay)
		fmt.Printf(" is %s?\n", q)

		if !in.Scan() {
			os.Exit(2)
		}
		if strings.TrimSpace(in.Text()) == "I don't know" {
			fmt.Println("Auuuuuuuugh!")
			os.Exit(3)
		}
	}
	fmt.Println("Go on. Off you go.")
	time.Sleep(*linger)

	for *hang {
		time.Sleep(time.Hour)
	}
	os.Exit(*exitCode)
}
