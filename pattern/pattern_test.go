package pattern

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegexp_FindAnywhere(t *testing.T) {
	p := Regexp(`b+`)

	m, ok := p.Find("aabbbc")
	require.True(t, ok)
	assert.Equal(t, "bbb", m.Text)
	assert.Equal(t, 2, m.Index)
	assert.Empty(t, m.Groups)
}

func TestRegexp_NoMatch(t *testing.T) {
	_, ok := Regexp(`z`).Find("abc")
	assert.False(t, ok)
}

func TestRegexp_EmptyBuffer(t *testing.T) {
	_, ok := Regexp(`x*`).Find("")
	assert.False(t, ok, "empty buffer never matches")
}

func TestRegexp_SkipsZeroLengthMatches(t *testing.T) {
	// a* matches the empty string at 0 before matching "a" at 1.
	m, ok := Regexp(`a*`).Find("bab")
	require.True(t, ok)
	assert.Equal(t, "a", m.Text)
	assert.Equal(t, 1, m.Index)
}

func TestRegexp_EmptyAlternativeDoesNotHideMatch(t *testing.T) {
	tests := []struct {
		expr  string
		buf   string
		text  string
		index int
	}{
		{`x*|ab`, "ab", "ab", 0},
		{`\d*|ok`, "ok", "ok", 0},
		{`x*|ab`, "zab", "ab", 1},
		{`(?:)|colou?r`, "colour?", "colour", 0},
	}

	for _, tt := range tests {
		t.Run(tt.expr+" on "+tt.buf, func(t *testing.T) {
			m, ok := Regexp(tt.expr).Find(tt.buf)
			require.True(t, ok)
			assert.Equal(t, tt.text, m.Text)
			assert.Equal(t, tt.index, m.Index)
		})
	}
}

func TestRegexp_EmptyAlternativeKeepsGroups(t *testing.T) {
	m, ok := Regexp(`(x*)|(?P<word>ok)`).Find("ok")
	require.True(t, ok)
	assert.Equal(t, "ok", m.Text)
	assert.Equal(t, []string{"", "ok"}, m.Groups)
	assert.Equal(t, map[string]string{"word": "ok"}, m.Named)
}

func TestRegexp_OnlyZeroLength(t *testing.T) {
	_, ok := Regexp(`^`).Find("abc")
	assert.False(t, ok)
}

func TestRegexp_Groups(t *testing.T) {
	p := Regexp(`(?P<key>\w+)=(\d+)?;`)

	m, ok := p.Find("x foo=; bar=42;")
	require.True(t, ok)
	assert.Equal(t, "foo=;", m.Text)
	assert.Equal(t, []string{"foo", ""}, m.Groups)
	assert.Equal(t, map[string]string{"key": "foo"}, m.Named)
}

func TestRegexp_String(t *testing.T) {
	assert.Equal(t, "/name.*/", Regexp(`name.*`).String())
}

func TestCompile_Invalid(t *testing.T) {
	_, err := Compile(`(`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pattern: compile")
}

func TestRegexp_PanicsOnInvalid(t *testing.T) {
	assert.Panics(t, func() { Regexp(`(`) })
}

func TestFromRegexp(t *testing.T) {
	p := FromRegexp(regexp.MustCompile(`c`))
	m, ok := p.Find("abc")
	require.True(t, ok)
	assert.Equal(t, 2, m.Index)
}

func TestLiteral(t *testing.T) {
	p := Literal("a.c")

	_, ok := p.Find("abc")
	assert.False(t, ok, "literal must not be treated as a regexp")

	m, ok := p.Find("xxa.c")
	require.True(t, ok)
	assert.Equal(t, "a.c", m.Text)
	assert.Equal(t, 2, m.Index)
	assert.Equal(t, `"a.c"`, p.String())
}

func TestLiteral_Empty(t *testing.T) {
	_, ok := Literal("").Find("abc")
	assert.False(t, ok)
}

func TestFold(t *testing.T) {
	p := Fold("C")

	m, ok := p.Find("abc")
	require.True(t, ok)
	assert.Equal(t, "c", m.Text, "matched text keeps buffer case")
	assert.Equal(t, 2, m.Index)

	_, ok = Fold("x.y").Find("xzy")
	assert.False(t, ok, "fold quotes metacharacters")
}

func TestFunc(t *testing.T) {
	p := Func("upper", func(buf string) (Match, bool) {
		i := strings.IndexFunc(buf, func(r rune) bool { return r >= 'A' && r <= 'Z' })
		if i < 0 {
			return Match{}, false
		}
		return Match{Text: buf[i : i+1], Index: i}, true
	})

	m, ok := p.Find("abCd")
	require.True(t, ok)
	assert.Equal(t, "C", m.Text)
	assert.Equal(t, "upper", p.String())
}

func TestFunc_EmptyTextIsNoMatch(t *testing.T) {
	p := Func("empty", func(string) (Match, bool) { return Match{}, true })
	_, ok := p.Find("abc")
	assert.False(t, ok)
}
