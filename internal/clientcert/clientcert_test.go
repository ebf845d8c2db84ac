package clientcert

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeIndex(t *testing.T, dir string, entries []Entry) {
	t.Helper()
	data, err := json.Marshal(entries)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "index.json"), data, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestSelectLongestPrefixWins(t *testing.T) {
	dir := t.TempDir()
	writeIndex(t, dir, []Entry{
		{Scope: Scope{Host: "example.org", Port: 1965, PathPrefix: "/"}, NotAfter: time.Now().Add(time.Hour)},
		{Scope: Scope{Host: "example.org", Port: 1965, PathPrefix: "/private/"}, NotAfter: time.Now().Add(time.Hour)},
	})
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	e, ok := s.Select("example.org", 1965, "/private/area")
	if !ok {
		t.Fatal("expected a match")
	}
	if e.Scope.PathPrefix != "/private/" {
		t.Errorf("expected longest-prefix scope, got %+v", e.Scope)
	}
}

func TestSelectNoMatchReturnsFalse(t *testing.T) {
	dir := t.TempDir()
	writeIndex(t, dir, []Entry{
		{Scope: Scope{Host: "other.org", Port: 1965, PathPrefix: "/"}, NotAfter: time.Now().Add(time.Hour)},
	})
	s, _ := Open(dir)
	if _, ok := s.Select("example.org", 1965, "/"); ok {
		t.Fatal("expected no match for different host")
	}
}

func TestSelectSkipsExpiredEntries(t *testing.T) {
	dir := t.TempDir()
	writeIndex(t, dir, []Entry{
		{Scope: Scope{Host: "example.org", Port: 1965, PathPrefix: "/"}, NotAfter: time.Now().Add(-time.Hour)},
	})
	s, _ := Open(dir)
	if _, ok := s.Select("example.org", 1965, "/"); ok {
		t.Fatal("expected expired entry to be treated as no cert")
	}
}

func TestOpenMissingDirIsEmptyStore(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "missing"))
	if err != nil {
		t.Fatalf("expected missing dir to succeed with empty store: %v", err)
	}
	if _, ok := s.Select("example.org", 1965, "/"); ok {
		t.Fatal("expected no match on empty store")
	}
}
