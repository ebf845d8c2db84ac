// Package gopherclient speaks the wire half of RFC 1436 (spec.md §4.2,
// §6 "Gopher"), grounded on gopherRequest in iroll-gofer/gofer.go: dial,
// write the selector plus CRLF, read until EOF. Generalized to enforce a
// response size cap, to send a tab-delimited search string for type-7
// requests, and to classify the body by item type rather than sniffing
// content.
package gopherclient

import (
	"context"
	"io"
	"net"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/cameronrye/gopher-mcp-go/internal/fetcherr"
	"github.com/cameronrye/gopher-mcp-go/internal/menu"
	"github.com/cameronrye/gopher-mcp-go/internal/mimeparse"
	"github.com/cameronrye/gopher-mcp-go/internal/urlcodec"
)

// textItemTypes are the item types whose body is decoded as text rather
// than returned as an opaque binary blob (spec.md §4.2).
var textItemTypes = map[string]bool{"0": true, "1": true, "7": true}

// IsText reports whether itemType's body should be treated as text.
func IsText(itemType string) bool {
	return textItemTypes[itemType]
}

// Fetch dials host:port, sends the selector (and search string, for
// type-7 requests), and reads the full response up to maxBytes. Exceeding
// maxBytes is a hard failure (spec.md §4.2 "ResponseTooLarge"), not a
// truncation, since a partial menu or text body cannot be trusted.
func Fetch(ctx context.Context, host string, port int, u *urlcodec.GopherURL, maxBytes int) ([]byte, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fetcherr.Wrap(fetcherr.NetworkError, "connecting to "+addr, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	request := u.Selector
	if u.HasSearch {
		request = request + "\t" + u.Search
	}
	if _, err := conn.Write([]byte(request + "\r\n")); err != nil {
		return nil, fetcherr.Wrap(fetcherr.NetworkError, "sending selector", err)
	}

	limited := io.LimitReader(conn, int64(maxBytes)+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return nil, fetcherr.Wrap(fetcherr.Timeout, "reading gopher response", err)
		}
		return nil, fetcherr.Wrap(fetcherr.NetworkError, "reading gopher response", err)
	}
	if len(body) > maxBytes {
		return nil, fetcherr.New(fetcherr.ResponseTooLarge, "gopher response exceeds configured maximum size")
	}

	return body, nil
}

// DecodeText decodes a Gopher text body as UTF-8, falling back to
// Latin-1 (the common legacy encoding for older Gopher holes) when the
// bytes are not valid UTF-8, per spec.md §4.2's decoding fallback. A
// trailing "\r\n.\r\n" terminator, if present, is stripped before
// decoding (spec.md §9 Open Question: the terminator is structural, not
// content, so it is removed rather than surfaced as trailing text).
func DecodeText(raw []byte) string {
	raw = stripTerminator(raw)
	if utf8.Valid(raw) {
		return string(raw)
	}
	decoded, _, err := transform.Bytes(charmap.ISO8859_1.NewDecoder(), raw)
	if err != nil {
		return string(raw)
	}
	return string(decoded)
}

func stripTerminator(raw []byte) []byte {
	for _, term := range []string{"\r\n.\r\n", "\n.\r\n", "\n.\n"} {
		if strings.HasSuffix(string(raw), term) {
			return raw[:len(raw)-len(term)]
		}
	}
	return raw
}

// ParseMenuBody is a thin convenience wrapper so callers fetching a type-1
// response don't need to import internal/menu separately.
func ParseMenuBody(body []byte) []menu.Item {
	return menu.Parse(body)
}

// GuessMIME exposes mimeparse.GuessGopherMIME for callers classifying a
// binary item.
func GuessMIME(itemType, selector string) string {
	return mimeparse.GuessGopherMIME(itemType, selector)
}
