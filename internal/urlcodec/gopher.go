// Package urlcodec parses and formats Gopher and Gemini URLs per spec.
package urlcodec

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/cameronrye/gopher-mcp-go/internal/fetcherr"
)

// GopherURL is the parsed form of a gopher:// URL (spec.md §3).
type GopherURL struct {
	Host     string
	Port     int
	Type     string // exactly one character
	Selector string
	Search   string // only meaningful when Type == "7"
	HasSearch bool
}

const defaultGopherPort = 70

// ParseGopherURL parses s per spec.md §4.1: scheme must be "gopher",
// hostname mandatory, first path byte is the item type (default "1"
// for empty/"/" paths), remainder is the selector. A literal "%09" in
// the raw path splits selector/search; otherwise a query string supplies
// search for type-7 URLs.
func ParseGopherURL(s string) (*GopherURL, error) {
	u, err := url.Parse(s)
	if err != nil {
		return nil, fetcherr.Wrap(fetcherr.InvalidURL, "malformed gopher URL", err)
	}
	if u.Scheme != "gopher" {
		return nil, fetcherr.New(fetcherr.InvalidURL, "scheme must be gopher")
	}
	if u.Hostname() == "" {
		return nil, fetcherr.New(fetcherr.InvalidURL, "host is required")
	}

	port := defaultGopherPort
	if p := u.Port(); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 || n > 65535 {
			return nil, fetcherr.New(fetcherr.InvalidURL, "port out of range")
		}
		port = n
	}

	// EscapedPath preserves %09 so we can split on it before decoding.
	rawPath := u.EscapedPath()
	itemType := "1"
	rawSelector := ""
	if rawPath != "" && rawPath != "/" {
		trimmed := strings.TrimPrefix(rawPath, "/")
		if trimmed != "" {
			itemType = trimmed[0:1]
			rawSelector = trimmed[1:]
		}
	}

	selector := rawSelector
	search := ""
	hasSearch := false
	if idx := strings.Index(rawSelector, "%09"); idx >= 0 {
		sel, err1 := url.PathUnescape(rawSelector[:idx])
		srch, err2 := url.PathUnescape(rawSelector[idx+3:])
		if err1 != nil || err2 != nil {
			return nil, fetcherr.New(fetcherr.InvalidURL, "invalid percent-encoding in selector")
		}
		selector, search, hasSearch = sel, srch, true
	} else {
		unescaped, err := url.PathUnescape(rawSelector)
		if err != nil {
			return nil, fetcherr.New(fetcherr.InvalidURL, "invalid percent-encoding in selector")
		}
		selector = unescaped
		if u.RawQuery != "" {
			search = u.RawQuery
			hasSearch = true
		}
	}

	if strings.ContainsAny(selector, "\t\r\n") {
		return nil, fetcherr.New(fetcherr.InvalidURL, "selector contains TAB/CR/LF")
	}
	if len(selector) > 255 {
		return nil, fetcherr.New(fetcherr.InvalidURL, "selector exceeds 255 bytes")
	}
	if len(itemType) != 1 {
		return nil, fetcherr.New(fetcherr.InvalidURL, "item type must be one character")
	}

	gu := &GopherURL{
		Host:      strings.ToLower(u.Hostname()),
		Port:      port,
		Type:      itemType,
		Selector:  selector,
		Search:    search,
		HasSearch: hasSearch && itemType == "7",
	}
	return gu, nil
}

// FormatGopherURL renders the canonical gopher:// URL for u, as used for
// menu item nextUrl fields and cache keys.
func FormatGopherURL(u *GopherURL) string {
	var b strings.Builder
	b.WriteString("gopher://")
	b.WriteString(u.Host)
	if u.Port != defaultGopherPort {
		b.WriteString(":")
		b.WriteString(strconv.Itoa(u.Port))
	}
	b.WriteString("/")
	b.WriteString(u.Type)
	b.WriteString(escapeSelector(u.Selector))
	if u.HasSearch && u.Type == "7" {
		b.WriteString("%09")
		b.WriteString(escapeSelector(u.Search))
	}
	return b.String()
}

// escapeSelector percent-encodes a selector/search component for use inside
// a URL, leaving '/' untouched (unlike url.PathEscape, which is meant for a
// single path segment and would mangle multi-segment selectors).
func escapeSelector(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			b.WriteByte(c)
		case strings.IndexByte("-_.~/", c) >= 0:
			b.WriteByte(c)
		default:
			b.WriteByte('%')
			b.WriteByte(hex[c>>4])
			b.WriteByte(hex[c&0xf])
		}
	}
	return b.String()
}

// NextMenuItemURL builds the canonical gopher:// URL for a menu item per
// spec.md §3: gopher://host:port/{type}{selector}.
func NextMenuItemURL(itemType, selector, host string, port int) string {
	return fmt.Sprintf("gopher://%s/%s%s", net.JoinHostPort(host, strconv.Itoa(port)), itemType, selector)
}
