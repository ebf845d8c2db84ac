package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cameronrye/gopher-mcp-go/internal/crawler"
)

func TestProcessInputNavigationCommands(t *testing.T) {
	st := &state{links: []string{"gemini://example.org/a", "gemini://example.org/b"}}

	if _, handled := processInput("", st); !handled {
		t.Error("empty input should be a no-op")
	}
	if _, handled := processInput("h", st); !handled {
		t.Error("h should be a no-op")
	}
	if target, handled := processInput("g", st); handled || target != "gemini://geminiprotocol.net/" {
		t.Errorf("g should resolve to the Gemini homepage, got %q handled=%v", target, handled)
	}
}

func TestProcessInputLinkByNumber(t *testing.T) {
	st := &state{links: []string{"gemini://example.org/a", "gemini://example.org/b"}}

	target, handled := processInput("2", st)
	if handled {
		t.Fatal("numeric input should resolve to a target")
	}
	if target != "gemini://example.org/b" {
		t.Errorf("expected second link, got %q", target)
	}
}

func TestProcessInputOutOfRangeNumber(t *testing.T) {
	st := &state{links: []string{"gemini://example.org/a"}}
	if _, handled := processInput("99", st); !handled {
		t.Error("out-of-range link number should be a no-op")
	}
}

func TestProcessInputBack(t *testing.T) {
	st := &state{history: []string{"gemini://example.org/a"}}
	if _, handled := processInput("b", st); !handled {
		t.Error("back with insufficient history should be a no-op")
	}

	st.history = []string{"gemini://example.org/a", "gemini://example.org/b"}
	target, handled := processInput("b", st)
	if handled || target != "gemini://example.org/a" {
		t.Errorf("expected previous page, got %q handled=%v", target, handled)
	}
}

func TestResolveTargetDefaultsSchemeAndRejectsOthers(t *testing.T) {
	link, err := resolveTarget("example.org/path")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if link.Scheme != "gemini" || link.Path != "/path" {
		t.Errorf("unexpected resolved URL: %+v", link)
	}

	if _, err := resolveTarget("gopher://example.org/1/"); err == nil {
		t.Error("expected an error for a non-gemini scheme")
	}
}

func TestOpenLocalReadsMirroredGemtextAndCollectsLinks(t *testing.T) {
	dir := t.TempDir()
	CLI.DB = dir

	link, err := resolveTarget("gemini://example.org/index")
	if err != nil {
		t.Fatal(err)
	}
	host, id := crawler.PageID(link)
	pagesDir := filepath.Join(dir, host, "pages")
	if err := os.MkdirAll(pagesDir, 0o755); err != nil {
		t.Fatal(err)
	}

	meta := `{"url":"gemini://example.org/index","mime":"text/gemini","status":"ok"}`
	if err := os.WriteFile(filepath.Join(pagesDir, id+".meta.json"), []byte(meta), 0o644); err != nil {
		t.Fatal(err)
	}
	body := "# Home\n=> /next.gmi Next page\n"
	if err := os.WriteFile(filepath.Join(pagesDir, id+".gmi"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	st := &state{}
	if err := openLocal(st, link); err != nil {
		t.Fatalf("openLocal failed: %v", err)
	}
	if len(st.links) != 1 || st.links[0] != "gemini://example.org/next.gmi" {
		t.Errorf("expected one resolved link, got %v", st.links)
	}
}

func TestOpenLocalMissingPageReturnsError(t *testing.T) {
	dir := t.TempDir()
	CLI.DB = dir

	link, err := resolveTarget("gemini://example.org/missing")
	if err != nil {
		t.Fatal(err)
	}
	if err := openLocal(&state{}, link); err == nil {
		t.Error("expected an error for a page absent from the mirror")
	}
}
