// Package mimeparse parses Gemini META MIME strings (spec.md §4.4) and
// guesses MIME types for Gopher binary items from a static type/extension
// table recovered from original_source/src/gopher_mcp/utils.py
// (guess_mime_type).
package mimeparse

import (
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// MIME is a parsed "type/subtype; param=value; ..." string.
type MIME struct {
	Type    string
	Subtype string
	Charset string
	Lang    string
	Params  map[string]string
}

// IsGemtext reports whether m identifies text/gemini.
func (m MIME) IsGemtext() bool {
	return strings.EqualFold(m.Type, "text") && strings.EqualFold(m.Subtype, "gemini")
}

// String renders the canonical "type/subtype; charset=..." form.
func (m MIME) String() string {
	var b strings.Builder
	b.WriteString(m.Type)
	b.WriteString("/")
	b.WriteString(m.Subtype)
	if m.Charset != "" {
		b.WriteString("; charset=")
		b.WriteString(m.Charset)
	}
	if m.Lang != "" {
		b.WriteString("; lang=")
		b.WriteString(m.Lang)
	}
	return b.String()
}

// DefaultGemtext is the MIME used when a 20 response's META is empty.
func DefaultGemtext() MIME {
	return MIME{Type: "text", Subtype: "gemini", Charset: "utf-8", Params: map[string]string{}}
}

// Parse parses a Gemini META string into its MIME components. An empty
// meta defaults to text/gemini; charset=utf-8 per spec.md §4.4.
func Parse(meta string) MIME {
	meta = strings.TrimSpace(meta)
	if meta == "" {
		return DefaultGemtext()
	}

	parts := strings.Split(meta, ";")
	typeSubtype := strings.TrimSpace(parts[0])
	mtype, subtype := "application", "octet-stream"
	if idx := strings.IndexByte(typeSubtype, '/'); idx >= 0 {
		mtype = strings.ToLower(typeSubtype[:idx])
		subtype = strings.ToLower(typeSubtype[idx+1:])
	}

	m := MIME{Type: mtype, Subtype: subtype, Params: map[string]string{}}
	for _, p := range parts[1:] {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		kv := strings.SplitN(p, "=", 2)
		key := strings.ToLower(strings.TrimSpace(kv[0]))
		val := ""
		if len(kv) == 2 {
			val = strings.Trim(strings.TrimSpace(kv[1]), `"`)
		}
		switch key {
		case "charset":
			m.Charset = strings.ToLower(val)
		case "lang":
			m.Lang = val
		default:
			m.Params[key] = val
		}
	}

	if m.Charset == "" && mtype == "text" {
		m.Charset = "utf-8"
	}

	return m
}

// charsetDecoders maps a declared charset name to the decoder
// internal/gopherclient's DecodeText already reaches for when a Gopher
// body isn't valid UTF-8. Gemini declares its charset up front in the
// META line instead of requiring a sniff, so the lookup is by name
// rather than by "is this valid UTF-8".
var charsetDecoders = map[string]*charmap.Charmap{
	"iso-8859-1":   charmap.ISO8859_1,
	"latin1":       charmap.ISO8859_1,
	"windows-1252": charmap.Windows1252,
	"cp1252":       charmap.Windows1252,
}

// DecodeBody decodes body per the declared charset (spec.md §1 Non-goals:
// "no content transcoding beyond charset decoding declared in the
// server's MIME parameters"). An empty, "utf-8", or unrecognised
// charset is returned unchanged; body is assumed to already be UTF-8 in
// that case.
func DecodeBody(charset string, body []byte) []byte {
	dec, ok := charsetDecoders[strings.ToLower(strings.TrimSpace(charset))]
	if !ok {
		return body
	}
	decoded, _, err := transform.Bytes(dec.NewDecoder(), body)
	if err != nil {
		return body
	}
	return decoded
}

// gopherTypeMIME is the static type table recovered from the Python
// original's guess_mime_type.
var gopherTypeMIME = map[string]string{
	"0": "text/plain",
	"1": "text/gopher-menu",
	"4": "application/mac-binhex40",
	"5": "application/zip",
	"6": "application/x-uuencoded",
	"7": "text/gopher-menu",
	"9": "application/octet-stream",
	"g": "image/gif",
	"I": "image/jpeg",
}

// extensionMIME overrides the type-table guess when the selector carries a
// recognisable file extension.
var extensionMIME = map[string]string{
	"txt":  "text/plain",
	"html": "text/html",
	"htm":  "text/html",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"pdf":  "application/pdf",
	"zip":  "application/zip",
	"tar":  "application/x-tar",
	"gz":   "application/gzip",
}

// GuessGopherMIME guesses a MIME type for a Gopher item from its type
// character and selector, per spec.md §4.8.
func GuessGopherMIME(itemType, selector string) string {
	guess, ok := gopherTypeMIME[itemType]
	if !ok {
		guess = "application/octet-stream"
	}
	if idx := strings.LastIndexByte(selector, '.'); idx >= 0 && idx < len(selector)-1 {
		ext := strings.ToLower(selector[idx+1:])
		if override, ok := extensionMIME[ext]; ok {
			guess = override
		}
	}
	return guess
}
