// Package security implements the host-allowlist and length perimeter in
// front of the fetch façade (spec.md §4.11), grounded on the length
// validation in original_source/src/gopher_mcp/utils.py
// (sanitize_selector, validate_gopher_response).
package security

import (
	"strings"

	"github.com/cameronrye/gopher-mcp-go/internal/fetcherr"
)

// Gate holds the configured limits and allowlist.
type Gate struct {
	AllowedHosts      map[string]struct{} // nil/empty means "allow all"
	MaxSelectorLength int
	MaxSearchLength   int
}

// NewGate builds a Gate from a comma-separated allowlist (empty string
// means all hosts are allowed) and the configured length limits.
func NewGate(allowedHostsCSV string, maxSelectorLength, maxSearchLength int) *Gate {
	g := &Gate{MaxSelectorLength: maxSelectorLength, MaxSearchLength: maxSearchLength}
	if strings.TrimSpace(allowedHostsCSV) == "" {
		return g
	}
	g.AllowedHosts = make(map[string]struct{})
	for _, h := range strings.Split(allowedHostsCSV, ",") {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			g.AllowedHosts[h] = struct{}{}
		}
	}
	return g
}

func (g *Gate) hostAllowed(host string) bool {
	if len(g.AllowedHosts) == 0 {
		return true
	}
	_, ok := g.AllowedHosts[strings.ToLower(host)]
	return ok
}

func portValid(port int) bool {
	return port >= 1 && port <= 65535
}

// CheckGopher runs the gate for a parsed Gopher request (spec.md §4.11
// a-d). Returns nil when the request may proceed.
func (g *Gate) CheckGopher(host string, port int, selector, search string, hasSearch bool) error {
	if !g.hostAllowed(host) {
		return fetcherr.New(fetcherr.SecurityViolation, "host not in allowlist: "+host)
	}
	if !portValid(port) {
		return fetcherr.New(fetcherr.SecurityViolation, "port out of range")
	}
	if len(selector) > g.MaxSelectorLength {
		return fetcherr.New(fetcherr.SecurityViolation, "selector exceeds configured maximum length")
	}
	if hasSearch && len(search) > g.MaxSearchLength {
		return fetcherr.New(fetcherr.SecurityViolation, "search exceeds configured maximum length")
	}
	return nil
}

const maxGeminiURLLength = 1024

// CheckGemini runs the gate for a parsed Gemini request (spec.md §4.11
// a-e).
func (g *Gate) CheckGemini(host string, port int, serializedURL string) error {
	if !g.hostAllowed(host) {
		return fetcherr.New(fetcherr.SecurityViolation, "host not in allowlist: "+host)
	}
	if !portValid(port) {
		return fetcherr.New(fetcherr.SecurityViolation, "port out of range")
	}
	if len(serializedURL) > maxGeminiURLLength {
		return fetcherr.New(fetcherr.SecurityViolation, "serialised URL exceeds 1024 bytes")
	}
	return nil
}
