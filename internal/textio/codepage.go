package textio

// codepage.go recovers text written by tools that predate UTF-8.
//
// A line is tried as UTF-8 first. If it is not valid UTF-8 the configured
// legacy code page is applied. Markup escapes (&#228; &auml;) are left in
// place by DecodeLine and resolved per field by SplitFields, so an escaped
// separator (&#59;) stays inside its field.

import (
	"fmt"
	"html"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// DefaultLegacyCodePage is used when no code page is configured.
const DefaultLegacyCodePage = "windows-1252"

// UTF8 is the canonical name of the UTF-8 encoding.
const UTF8 = "utf-8"

// Decoder turns raw lines into UTF-8 strings.
type Decoder struct {
	name string
	enc  encoding.Encoding
}

// NewDecoder returns a Decoder falling back to the named code page. Names
// follow the WHATWG encoding labels ("windows-1252", "latin1", "cp1252").
func NewDecoder(codePage string) (*Decoder, error) {
	if codePage == "" {
		codePage = DefaultLegacyCodePage
	}
	enc, err := htmlindex.Get(codePage)
	if err != nil {
		return nil, fmt.Errorf("legacy code page %q: %w", codePage, err)
	}
	name, _ := htmlindex.Name(enc)
	return &Decoder{name: name, enc: enc}, nil
}

// CodePage returns the canonical name of the fallback code page.
func (d *Decoder) CodePage() string { return d.name }

// DecodeLine returns the UTF-8 text of line with markup escapes still in
// place. ok is false when the fallback could not produce clean text; the
// returned string then holds the raw bytes unchanged so that nothing is
// lost.
func (d *Decoder) DecodeLine(line []byte) (text string, ok bool) {
	if utf8.Valid(line) {
		return string(line), true
	}

	decoded, err := d.enc.NewDecoder().Bytes(line)
	if err != nil {
		return string(line), false
	}
	s := string(decoded)
	if strings.ContainsRune(html.UnescapeString(s), utf8.RuneError) {
		return string(line), false
	}
	return s, true
}

// SplitFields splits a decoded line on sep and resolves markup escapes in
// each field.
func SplitFields(text, sep string) []string {
	fields := strings.Split(text, sep)
	for i, f := range fields {
		if strings.IndexByte(f, '&') >= 0 {
			fields[i] = html.UnescapeString(f)
		}
	}
	return fields
}

var fieldEscaper = strings.NewReplacer(
	"&", "&amp;",
	";", "&#59;",
	"\n", "&#10;",
	"\r", "&#13;",
)

// EscapeField escapes the characters that would otherwise change the
// structure of a ';'-separated line, or be read back as markup: '&', ';'
// and line breaks. SplitFields reverses it.
func EscapeField(field string) string {
	if !strings.ContainsAny(field, "&;\r\n") {
		return field
	}
	return fieldEscaper.Replace(field)
}

// Encoder writes UTF-8 text in a target encoding.
type Encoder struct {
	name string
	enc  encoding.Encoding // nil for UTF-8
}

// NewEncoder returns an Encoder for the named encoding. Runes the target
// cannot represent are written as numeric markup escapes.
func NewEncoder(name string) (*Encoder, error) {
	if name == "" {
		name = UTF8
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("output encoding %q: %w", name, err)
	}
	canonical, _ := htmlindex.Name(enc)
	if canonical == UTF8 {
		return &Encoder{name: UTF8}, nil
	}
	return &Encoder{name: canonical, enc: enc}, nil
}

// Name returns the canonical encoding name.
func (e *Encoder) Name() string { return e.name }

// Writer wraps w. The caller must Close the result to flush it; closing
// does not close w.
func (e *Encoder) Writer(w io.Writer) io.WriteCloser {
	if e.enc == nil {
		return nopCloser{w}
	}
	return transform.NewWriter(w, encoding.HTMLEscapeUnsupported(e.enc.NewEncoder()))
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
