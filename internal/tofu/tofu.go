// Package tofu implements the Trust-On-First-Use certificate store for the
// Gemini client (spec.md §4.5). Persistence follows the same
// write-to-tmp-then-rename idiom the teacher's crawler uses for its page
// metadata (internal/crawler/crawler.go savePage/writeErrorMeta).
package tofu

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Outcome is the result of checking a fingerprint against the store.
type Outcome string

const (
	TrustedNew   Outcome = "TrustedNew"
	TrustedMatch Outcome = "TrustedMatch"
	Mismatch     Outcome = "Mismatch"
	Expired      Outcome = "Expired"
)

// Entry is one pinned host/port/fingerprint binding.
type Entry struct {
	Host        string
	Port        int
	Fingerprint string // SHA-256 hex of the DER-encoded leaf certificate
	FirstSeen   time.Time
	LastSeen    time.Time
	Expires     *time.Time
}

func key(host string, port int) string {
	return fmt.Sprintf("%s:%d", strings.ToLower(host), port)
}

// Store is a process-wide, file-backed TOFU store. The in-memory map is a
// write-through cache of the file, which is the authoritative copy
// (spec.md §5 "Shared resources").
type Store struct {
	mu      sync.RWMutex
	path    string
	entries map[string]*Entry
	log     *logrus.Entry
}

// Open loads path (if present) into memory. A missing path is treated as
// an empty store; corrupt lines are skipped with a warning rather than
// refusing to start (spec.md §4.5).
func Open(path string, log *logrus.Entry) (*Store, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	s := &Store{path: path, entries: make(map[string]*Entry), log: log.WithField("component", "tofu")}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("opening tofu store: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		e, err := decodeLine(line)
		if err != nil {
			s.log.WithField("line", line).WithError(err).Warn("skipping corrupt tofu record")
			continue
		}
		s.entries[key(e.Host, e.Port)] = e
	}
	return s, scanner.Err()
}

func decodeLine(line string) (*Entry, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 5 {
		return nil, fmt.Errorf("expected at least 5 fields, got %d", len(fields))
	}
	port, err := strconv.Atoi(fields[1])
	if err != nil {
		return nil, fmt.Errorf("invalid port: %w", err)
	}
	firstSeen, err := time.Parse(time.RFC3339, fields[3])
	if err != nil {
		return nil, fmt.Errorf("invalid first_seen: %w", err)
	}
	lastSeen, err := time.Parse(time.RFC3339, fields[4])
	if err != nil {
		return nil, fmt.Errorf("invalid last_seen: %w", err)
	}
	e := &Entry{Host: fields[0], Port: port, Fingerprint: fields[2], FirstSeen: firstSeen, LastSeen: lastSeen}
	if len(fields) >= 6 && fields[5] != "" {
		exp, err := time.Parse(time.RFC3339, fields[5])
		if err != nil {
			return nil, fmt.Errorf("invalid expires: %w", err)
		}
		e.Expires = &exp
	}
	return e, nil
}

func encodeLine(e *Entry) string {
	expires := ""
	if e.Expires != nil {
		expires = e.Expires.UTC().Format(time.RFC3339)
	}
	return strings.Join([]string{
		e.Host,
		strconv.Itoa(e.Port),
		e.Fingerprint,
		e.FirstSeen.UTC().Format(time.RFC3339),
		e.LastSeen.UTC().Format(time.RFC3339),
		expires,
	}, "\t")
}

// Check evaluates fingerprint against any existing entry for (host, port)
// per the policy in spec.md §4.5. It does not mutate the store — callers
// follow a successful TrustedNew/TrustedMatch with Remember.
func (s *Store) Check(host string, port int, fingerprint string) Outcome {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key(host, port)]
	if !ok {
		return TrustedNew
	}
	if e.Expires != nil && e.Expires.Before(time.Now()) {
		return Expired
	}
	if e.Fingerprint != fingerprint {
		return Mismatch
	}
	return TrustedMatch
}

// Remember atomically upserts the (host, port) -> fingerprint binding. It
// must only be called after Check returned TrustedNew or TrustedMatch (or
// after an explicit caller-authorised re-pin): Remember itself does not
// compare fingerprints and overwrites whatever binding is stored.
func (s *Store) Remember(host string, port int, fingerprint string, notAfter *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(host, port)
	now := time.Now()
	e, existed := s.entries[k]
	if !existed {
		e = &Entry{Host: host, Port: port, Fingerprint: fingerprint, FirstSeen: now}
	}
	e.Fingerprint = fingerprint
	e.LastSeen = now
	e.Expires = notAfter
	s.entries[k] = e

	return s.flushLocked()
}

func (s *Store) flushLocked() error {
	if s.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("creating tofu directory: %w", err)
	}

	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating tofu temp file: %w", err)
	}
	w := bufio.NewWriter(f)
	for _, e := range s.entries {
		if _, err := w.WriteString(encodeLine(e) + "\n"); err != nil {
			f.Close()
			return fmt.Errorf("writing tofu record: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flushing tofu store: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing tofu temp file: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// Lookup returns the current entry for (host, port), if any.
func (s *Store) Lookup(host string, port int) (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key(host, port)]
	return e, ok
}
