package testutil

// FixedSessionGenerator returns the same session id every time.
//
// Every session recorded with it carries an identical id, so transcripts
// of the same script compare byte for byte against golden files.
type FixedSessionGenerator struct {
	id string
}

// NewFixedSessionGenerator creates a generator for id.
// If id is empty, Generate returns "test-session".
func NewFixedSessionGenerator(id string) *FixedSessionGenerator {
	if id == "" {
		id = "test-session"
	}
	return &FixedSessionGenerator{id: id}
}

// Generate returns the fixed id. Implements engine.IDGenerator.
func (g *FixedSessionGenerator) Generate() string {
	return g.id
}
