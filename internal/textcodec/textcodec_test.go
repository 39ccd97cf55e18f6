package textcodec

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{name: ""},
		{name: "utf-8"},
		{name: "UTF8"},
		{name: "latin1"},
		{name: "windows-1252"},
		{name: "shift_jis"},
		{name: "UTF-16LE"},
		{name: "no-such-encoding", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := Lookup(tt.name)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "textcodec:")
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, enc)
		})
	}
}

func TestDecoder_UTF8Passthrough(t *testing.T) {
	d, err := NewDecoder("utf-8")
	require.NoError(t, err)

	assert.Equal(t, "What... is your name?\n", d.Decode([]byte("What... is your name?\n")))
	assert.Equal(t, "", d.Flush())
}

func TestDecoder_SplitMultibyte(t *testing.T) {
	d, err := NewDecoder("utf-8")
	require.NoError(t, err)

	b := []byte("héllo") // é is 0xC3 0xA9
	assert.Equal(t, "h", d.Decode(b[:2]))
	assert.Equal(t, 1, d.Pending())
	assert.Equal(t, "éllo", d.Decode(b[2:]))
	assert.Equal(t, 0, d.Pending())
}

func TestDecoder_InvalidBytes(t *testing.T) {
	d, err := NewDecoder("utf-8")
	require.NoError(t, err)

	got := d.Decode([]byte{'a', 0xff, 'b'})
	assert.Equal(t, "a\uFFFDb", got)
}

func TestDecoder_FlushIncomplete(t *testing.T) {
	d, err := NewDecoder("utf-8")
	require.NoError(t, err)

	assert.Equal(t, "a", d.Decode([]byte{'a', 0xe2, 0x82}))
	got := d.Flush()
	assert.NotEmpty(t, got)
	assert.Empty(t, strings.Trim(got, "\uFFFD"), "incomplete tail decodes to replacement characters")
	assert.Equal(t, 0, d.Pending())
}

func TestDecoder_Latin1(t *testing.T) {
	d, err := NewDecoder("latin1")
	require.NoError(t, err)

	assert.Equal(t, "café", d.Decode([]byte{'c', 'a', 'f', 0xe9}))
}

func TestDecoder_UTF16Split(t *testing.T) {
	d, err := NewDecoder("UTF-16LE")
	require.NoError(t, err)

	b := []byte{'o', 0, 'k', 0}
	assert.Equal(t, "", d.Decode(b[:1]))
	assert.Equal(t, "ok", d.Decode(b[1:]))
}

func TestDecoder_LargeChunk(t *testing.T) {
	d, err := NewDecoder("utf-8")
	require.NoError(t, err)

	in := strings.Repeat("é", 3*minDst)
	assert.Equal(t, in, d.Decode([]byte(in)))
}
