package transcript

import (
	"testing"

	"github.com/sebdah/goldie/v2"
)

// AssertGolden compares the snapshot of t against
// testdata/golden/<name>.golden. Regenerate with:
//
//	go test ./... -update
func AssertGolden(tb *testing.T, name string, t Transcript) {
	tb.Helper()

	data, err := Snapshot(t)
	if err != nil {
		tb.Fatalf("snapshot %s: %v", name, err)
	}

	g := goldie.New(tb,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(tb, name, data)
}
