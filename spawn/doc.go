// Package spawn starts a child process and wires its output and input to an
// expecto engine: stdout (optionally merged with stderr) is the engine's
// input, and Send writes to the child's stdin.
//
//	p, err := spawn.Start(ctx, "node", []string{"keeper.js"})
//	if err != nil { ... }
//	defer p.Close()
//
//	if _, err := p.Expect(pattern.Regexp(`name.*`)).Wait(ctx); err != nil { ... }
//	p.SendLine("Lancelot")
package spawn
