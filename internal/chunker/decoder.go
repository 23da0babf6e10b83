package chunker

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"
)

// Encoding names the decoder understands besides the WHATWG labels known to
// htmlindex.
var aliases = map[string]encoding.Encoding{
	"cp949":   korean.EUCKR,
	"uhc":     korean.EUCKR,
	"ms949":   korean.EUCKR,
	"euc-kr":  korean.EUCKR,
	"euc_kr":  korean.EUCKR,
	"utf8":    encoding.Nop,
	"utf-8":   encoding.Nop,
	"default": encoding.Nop,
}

type namedEncoding struct {
	name string
	enc  encoding.Encoding
}

// Decoder turns raw file bytes into text by trying a chain of encodings.
type Decoder struct {
	chain []namedEncoding
}

// NewDecoder builds a decoder trying the named encodings in order.
func NewDecoder(names []string) (*Decoder, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("at least one encoding is required")
	}
	d := &Decoder{}
	for _, name := range names {
		key := strings.ToLower(strings.TrimSpace(name))
		enc, ok := aliases[key]
		if !ok {
			var err error
			enc, err = htmlindex.Get(key)
			if err != nil {
				return nil, fmt.Errorf("unknown encoding %q: %w", name, err)
			}
		}
		d.chain = append(d.chain, namedEncoding{name: key, enc: enc})
	}
	return d, nil
}

// Decode returns the text, the name of the encoding that produced it, and
// whether the text had to be decoded lossily.
func (d *Decoder) Decode(data []byte) (string, string, bool) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	for _, ne := range d.chain {
		if text, ok := decodeClean(ne.enc, data); ok {
			return text, ne.name, false
		}
	}
	return strings.ToValidUTF8(string(data), string(utf8.RuneError)), "utf-8", true
}

// decodeClean reports ok only when the whole input decoded without a single
// replacement character.
func decodeClean(enc encoding.Encoding, data []byte) (string, bool) {
	if enc == encoding.Nop || isUTF8(enc) {
		if !utf8.Valid(data) {
			return "", false
		}
		return string(data), true
	}
	out, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil {
		return "", false
	}
	if bytes.ContainsRune(out, utf8.RuneError) {
		return "", false
	}
	return string(out), true
}

func isUTF8(enc encoding.Encoding) bool {
	name, err := htmlindex.Name(enc)
	return err == nil && name == "utf-8"
}
