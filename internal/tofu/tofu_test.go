package tofu

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCheckTrustedNewThenMatch(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "tofu"), nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if out := s.Check("example.org", 1965, "fp1"); out != TrustedNew {
		t.Fatalf("expected TrustedNew, got %s", out)
	}
	if err := s.Remember("example.org", 1965, "fp1", nil); err != nil {
		t.Fatalf("remember: %v", err)
	}
	if out := s.Check("example.org", 1965, "fp1"); out != TrustedMatch {
		t.Fatalf("expected TrustedMatch, got %s", out)
	}
}

func TestCheckMismatchNeverReplacesEntry(t *testing.T) {
	s, _ := Open(filepath.Join(t.TempDir(), "tofu"), nil)
	_ = s.Remember("example.org", 1965, "fp1", nil)

	if out := s.Check("example.org", 1965, "fp2"); out != Mismatch {
		t.Fatalf("expected Mismatch, got %s", out)
	}
	e, ok := s.Lookup("example.org", 1965)
	if !ok || e.Fingerprint != "fp1" {
		t.Fatalf("expected stored fingerprint unchanged, got %+v", e)
	}
}

func TestPersistenceSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tofu")
	s, _ := Open(path, nil)
	_ = s.Remember("example.org", 1965, "fp1", nil)

	reopened, err := Open(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if out := reopened.Check("example.org", 1965, "fp1"); out != TrustedMatch {
		t.Fatalf("expected persisted entry to match, got %s", out)
	}
}

func TestOpenMissingPathIsEmptyStore(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "nonexistent", "tofu"), nil)
	if err != nil {
		t.Fatalf("expected missing path to succeed with empty store: %v", err)
	}
	if out := s.Check("example.org", 1965, "fp1"); out != TrustedNew {
		t.Fatalf("expected TrustedNew on empty store, got %s", out)
	}
}

func TestOpenSkipsCorruptLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tofu")
	s, _ := Open(path, nil)
	_ = s.Remember("good.example", 1965, "fpgood", nil)

	// Corrupt the file by appending a malformed line.
	corrupt := path + ".corrupt"
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	data = append(data, []byte("not\ta\tvalid\tline\n")...)
	if err := os.WriteFile(corrupt, data, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	reopened, err := Open(corrupt, nil)
	if err != nil {
		t.Fatalf("expected corrupt line to be skipped, not fail open: %v", err)
	}
	if out := reopened.Check("good.example", 1965, "fpgood"); out != TrustedMatch {
		t.Fatalf("expected good entry preserved, got %s", out)
	}
}
