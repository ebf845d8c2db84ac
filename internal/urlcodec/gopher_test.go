package urlcodec

import (
	"strings"
	"testing"
)

func TestParseGopherURLDefaults(t *testing.T) {
	u, err := ParseGopherURL("gopher://gopher.floodgap.com/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Type != "1" || u.Selector != "" || u.Port != 70 {
		t.Fatalf("unexpected defaults: %+v", u)
	}
}

func TestParseGopherURLTypeAndSelector(t *testing.T) {
	u, err := ParseGopherURL("gopher://example.org/0/about.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Type != "0" || u.Selector != "/about.txt" {
		t.Fatalf("unexpected parse: %+v", u)
	}
}

func TestParseGopherURLSearchViaTab(t *testing.T) {
	u, err := ParseGopherURL("gopher://veronica.example.com/7/search%09python")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Type != "7" || u.Selector != "/search" || !u.HasSearch || u.Search != "python" {
		t.Fatalf("unexpected parse: %+v", u)
	}
}

func TestParseGopherURLSearchViaQuery(t *testing.T) {
	u, err := ParseGopherURL("gopher://veronica.example.com/7/search?python")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !u.HasSearch || u.Search != "python" {
		t.Fatalf("expected query-derived search, got %+v", u)
	}
}

func TestParseGopherURLRejectsBadSelector(t *testing.T) {
	_, err := ParseGopherURL("gopher://example.org/0/bad\tselector")
	if err == nil {
		t.Fatal("expected error for TAB in selector")
	}
}

func TestParseGopherURLRejectsWrongScheme(t *testing.T) {
	if _, err := ParseGopherURL("gemini://example.org/"); err == nil {
		t.Fatal("expected error for non-gopher scheme")
	}
}

func TestParseGopherURLRejectsMissingHost(t *testing.T) {
	if _, err := ParseGopherURL("gopher:///1/"); err == nil {
		t.Fatal("expected error for missing host")
	}
}

func TestFormatGopherURLRoundTrip(t *testing.T) {
	urls := []string{
		"gopher://gopher.floodgap.com/1/",
		"gopher://example.org:7070/0/about.txt",
		"gopher://veronica.example.com/7/search%09python",
	}
	for _, raw := range urls {
		first, err := ParseGopherURL(raw)
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		formatted := FormatGopherURL(first)
		second, err := ParseGopherURL(formatted)
		if err != nil {
			t.Fatalf("reparse %q: %v", formatted, err)
		}
		if *first != *second {
			t.Errorf("round trip mismatch for %q: %+v != %+v", raw, first, second)
		}
	}
}

func TestParseGopherURLSelectorTooLong(t *testing.T) {
	long := "gopher://example.org/0/" + strings.Repeat("a", 300)
	if _, err := ParseGopherURL(long); err == nil {
		t.Fatal("expected error for selector exceeding 255 bytes")
	}
}

func TestNextMenuItemURL(t *testing.T) {
	got := NextMenuItemURL("1", "/fun", "gopher.example.org", 70)
	want := "gopher://gopher.example.org:70/1/fun"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
