package urlcodec

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/cameronrye/gopher-mcp-go/internal/fetcherr"
)

// GeminiURL is the parsed form of a gemini:// URL (spec.md §3).
type GeminiURL struct {
	Host  string
	Port  int
	Path  string
	Query string // kept percent-encoded, empty if absent
	HasQuery bool
}

const (
	defaultGeminiPort = 1965
	maxGeminiURLBytes = 1024
)

// ParseGeminiURL parses s per spec.md §4.1: scheme must be "gemini",
// userinfo and fragment are rejected, total length must be <= 1024 bytes.
func ParseGeminiURL(s string) (*GeminiURL, error) {
	if len(s) > maxGeminiURLBytes {
		return nil, fetcherr.New(fetcherr.InvalidURL, "URL exceeds 1024 bytes")
	}
	u, err := url.Parse(s)
	if err != nil {
		return nil, fetcherr.Wrap(fetcherr.InvalidURL, "malformed gemini URL", err)
	}
	if u.Scheme != "gemini" {
		return nil, fetcherr.New(fetcherr.InvalidURL, "scheme must be gemini")
	}
	if u.Hostname() == "" {
		return nil, fetcherr.New(fetcherr.InvalidURL, "host is required")
	}
	if u.User != nil {
		return nil, fetcherr.New(fetcherr.InvalidURL, "userinfo is not allowed")
	}
	if u.Fragment != "" {
		return nil, fetcherr.New(fetcherr.InvalidURL, "fragment is not allowed")
	}

	port := defaultGeminiPort
	if p := u.Port(); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 || n > 65535 {
			return nil, fetcherr.New(fetcherr.InvalidURL, "port out of range")
		}
		port = n
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	gu := &GeminiURL{
		Host:     strings.ToLower(u.Hostname()),
		Port:     port,
		Path:     path,
		Query:    u.RawQuery,
		HasQuery: u.ForceQuery || u.RawQuery != "",
	}
	if len(FormatGeminiURL(gu)) > maxGeminiURLBytes {
		return nil, fetcherr.New(fetcherr.InvalidURL, "serialised URL exceeds 1024 bytes")
	}
	return gu, nil
}

// FormatGeminiURL renders the canonical gemini:// URL for u: default port
// omitted, path normalised with a leading slash, query kept percent-encoded.
func FormatGeminiURL(u *GeminiURL) string {
	var b strings.Builder
	b.WriteString("gemini://")
	b.WriteString(u.Host)
	if u.Port != defaultGeminiPort {
		b.WriteString(":")
		b.WriteString(strconv.Itoa(u.Port))
	}
	path := u.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	b.WriteString(path)
	if u.HasQuery {
		b.WriteString("?")
		b.WriteString(u.Query)
	}
	return b.String()
}

// ResolveGeminiReference resolves a possibly-relative redirect target
// (a bare path, a "//host/path" reference, or a full gemini:// URL)
// against base, the URL that produced it, following the same
// base-plus-reference rule gemtext link resolution uses (spec.md §4.3).
func ResolveGeminiReference(base, ref string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fetcherr.Wrap(fetcherr.InvalidURL, "malformed base URL", err)
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return "", fetcherr.Wrap(fetcherr.InvalidURL, "malformed redirect target", err)
	}
	resolved := baseURL.ResolveReference(refURL)
	if resolved.Scheme == "" {
		resolved.Scheme = "gemini"
	}
	return resolved.String(), nil
}
