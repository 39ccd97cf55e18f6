// Package textcodec turns a stream of byte chunks into text.
//
// Chunk boundaries are arbitrary: a multi-byte sequence split across two
// chunks is held back and completed by the next chunk. Bytes that are not
// valid in the source encoding decode to U+FFFD.
package textcodec

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"
)

// DefaultEncoding is used when no encoding name is given.
const DefaultEncoding = "utf-8"

const minDst = 4096

// Lookup resolves an encoding by name. WHATWG labels are tried first
// ("utf-8", "latin1", "shift_jis"), then IANA names ("UTF-16LE").
func Lookup(name string) (encoding.Encoding, error) {
	if name == "" {
		name = DefaultEncoding
	}
	if enc, err := htmlindex.Get(name); err == nil {
		return enc, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("textcodec: unknown encoding %q: %w", name, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("textcodec: unsupported encoding %q", name)
	}
	return enc, nil
}

// Decoder is a streaming decoder. It is not safe for concurrent use.
type Decoder struct {
	t       transform.Transformer
	pending []byte
	dst     []byte
}

// NewDecoder returns a Decoder for the named encoding.
func NewDecoder(name string) (*Decoder, error) {
	enc, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return New(enc), nil
}

// New returns a Decoder for enc.
func New(enc encoding.Encoding) *Decoder {
	return &Decoder{t: enc.NewDecoder()}
}

// Decode converts chunk to text. Trailing bytes of an incomplete sequence
// are kept for the next call.
func (d *Decoder) Decode(chunk []byte) string {
	return d.transform(chunk, false)
}

// Flush decodes whatever is still pending, as at end of input.
// An incomplete trailing sequence becomes U+FFFD.
func (d *Decoder) Flush() string {
	return d.transform(nil, true)
}

// Pending reports how many undecoded bytes are held back.
func (d *Decoder) Pending() int {
	return len(d.pending)
}

func (d *Decoder) transform(chunk []byte, atEOF bool) string {
	src := chunk
	if len(d.pending) > 0 {
		src = append(d.pending, chunk...)
		d.pending = nil
	}

	if cap(d.dst) < minDst {
		d.dst = make([]byte, minDst)
	}

	var out strings.Builder
	for {
		dst := d.dst[:cap(d.dst)]
		nDst, nSrc, err := d.t.Transform(dst, src, atEOF)
		out.Write(dst[:nDst])
		src = src[nSrc:]

		switch {
		case err == nil:
			if atEOF {
				d.t.Reset()
			}
			return out.String()

		case errors.Is(err, transform.ErrShortDst):
			if nDst == 0 && nSrc == 0 {
				d.dst = make([]byte, 2*len(dst))
			}

		case errors.Is(err, transform.ErrShortSrc):
			if atEOF || len(src) == 0 {
				if len(src) > 0 {
					out.WriteRune(utf8.RuneError)
				}
				d.t.Reset()
				return out.String()
			}
			d.pending = append([]byte(nil), src...)
			return out.String()

		default:
			if len(src) == 0 {
				return out.String()
			}
			out.WriteRune(utf8.RuneError)
			src = src[1:]
			d.t.Reset()
		}
	}
}
