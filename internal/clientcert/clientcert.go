// Package clientcert implements the scoped client-certificate store for
// Gemini (spec.md §4.6). Creation/import is an out-of-band admin
// operation; this package only reads and selects.
package clientcert

import (
	"crypto/tls"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Scope identifies where a client certificate is eligible.
type Scope struct {
	Host       string `json:"host"`
	Port       int    `json:"port"`
	PathPrefix string `json:"path_prefix"`
}

// Entry is one stored client-certificate scope and its material.
type Entry struct {
	Scope       Scope     `json:"scope"`
	KeyFile     string    `json:"key_file"`
	CertFile    string    `json:"cert_file"`
	Fingerprint string    `json:"fingerprint"`
	NotBefore   time.Time `json:"not_before"`
	NotAfter    time.Time `json:"not_after"`
}

// Store holds client-certificate scopes loaded from a directory. Each
// scope's key/cert material lives alongside an index.json naming the
// files, the same "index file plus named payloads" layout the pack uses
// for its other on-disk metadata stores.
type Store struct {
	dir     string
	entries []Entry
}

// Open loads dir/index.json, if present. A missing directory is treated
// as an empty store.
func Open(dir string) (*Store, error) {
	s := &Store{dir: dir}
	indexPath := filepath.Join(dir, "index.json")
	data, err := os.ReadFile(indexPath)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, &s.entries); err != nil {
		return nil, err
	}
	return s, nil
}

// Select picks the entry whose scope matches (host, port) exactly and
// whose PathPrefix is the longest prefix of path, skipping expired
// entries (spec.md §4.6). Returns ok=false when nothing matches.
func (s *Store) Select(host string, port int, path string) (*Entry, bool) {
	host = strings.ToLower(host)
	now := time.Now()

	var candidates []Entry
	for _, e := range s.entries {
		if !strings.EqualFold(e.Scope.Host, host) || e.Scope.Port != port {
			continue
		}
		if !strings.HasPrefix(path, e.Scope.PathPrefix) {
			continue
		}
		if now.After(e.NotAfter) {
			continue // expired match is treated as no cert
		}
		candidates = append(candidates, e)
	}
	if len(candidates) == 0 {
		return nil, false
	}
	sort.Slice(candidates, func(i, j int) bool {
		return len(candidates[i].Scope.PathPrefix) > len(candidates[j].Scope.PathPrefix)
	})
	best := candidates[0]
	return &best, true
}

// Load reads the key/cert material for e into a tls.Certificate.
func (s *Store) Load(e *Entry) (tls.Certificate, error) {
	return tls.LoadX509KeyPair(filepath.Join(s.dir, e.CertFile), filepath.Join(s.dir, e.KeyFile))
}
