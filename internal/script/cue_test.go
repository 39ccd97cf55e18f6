package script

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCUE_PatternForms(t *testing.T) {
	s, err := ParseCUE("forms.cue", []byte(`
name:    "forms"
command: "keeper"
steps: [
	{expect: "a+"},
	{expect: {literal: "b"}},
	{expect_any: ["c", {fold: "D"}]},
]
`))
	require.NoError(t, err)
	require.Len(t, s.Steps, 3)
	assert.Equal(t, PatternSpec{Regexp: "a+"}, *s.Steps[0].Expect)
	assert.Equal(t, PatternSpec{Literal: "b"}, *s.Steps[1].Expect)
	assert.Equal(t, []PatternSpec{{Regexp: "c"}, {Fold: "D"}}, s.Steps[2].ExpectAny)
}

func TestParseCUE_RejectsUnknownField(t *testing.T) {
	_, err := ParseCUE("typo.cue", []byte(`
name:    "typo"
command: "keeper"
steps: [{sendlin: "x"}]
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid CUE script")
}

func TestParseCUE_RejectsBadDuration(t *testing.T) {
	_, err := ParseCUE("dur.cue", []byte(`
name:    "dur"
command: "keeper"
timeout: "soon"
steps: [{wait_eof: true}]
`))
	assert.Error(t, err)
}

func TestParseCUE_RequiresSteps(t *testing.T) {
	_, err := ParseCUE("empty.cue", []byte(`
name:    "empty"
command: "keeper"
steps: []
`))
	assert.Error(t, err)
}

func TestParseCUE_SyntaxError(t *testing.T) {
	_, err := ParseCUE("broken.cue", []byte(`name: "x`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse CUE")
}

func TestParseCUE_Env(t *testing.T) {
	s, err := ParseCUE("env.cue", []byte(`
name:    "env"
command: "keeper"
env: {GREETING: "hello"}
steps: [{wait_eof: true}]
`))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"GREETING": "hello"}, s.Env)
}
