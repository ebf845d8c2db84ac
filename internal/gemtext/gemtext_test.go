package gemtext

import "testing"

func TestParseHeadingsListQuoteText(t *testing.T) {
	body := []byte("# Title\n## Sub\n### Minor\n* item\n> quoted\nplain text\n")
	doc := Parse(body)
	kinds := []LineKind{KindHeading1, KindHeading2, KindHeading3, KindList, KindQuote, KindText}
	if len(doc.Lines) != len(kinds) {
		t.Fatalf("expected %d lines, got %d", len(kinds), len(doc.Lines))
	}
	for i, k := range kinds {
		if doc.Lines[i].Kind != k {
			t.Errorf("line %d: expected kind %s, got %s", i, k, doc.Lines[i].Kind)
		}
	}
}

func TestParseLinkAndProjection(t *testing.T) {
	body := []byte("=> gemini://example.org/page Example Page\n=> /relative\n")
	doc := Parse(body)
	if len(doc.Links) != 2 {
		t.Fatalf("expected 2 links, got %d: %+v", len(doc.Links), doc.Links)
	}
	if doc.Links[0].URL != "gemini://example.org/page" || doc.Links[0].Text != "Example Page" {
		t.Errorf("unexpected first link: %+v", doc.Links[0])
	}
	if doc.Links[1].URL != "/relative" || doc.Links[1].Text != "" {
		t.Errorf("unexpected second link: %+v", doc.Links[1])
	}
}

func TestParseLinkProjectionDeduplicates(t *testing.T) {
	body := []byte("=> gemini://example.org/a First\n=> gemini://example.org/a Second mention\n")
	doc := Parse(body)
	if len(doc.Links) != 1 {
		t.Fatalf("expected deduplicated single link, got %d", len(doc.Links))
	}
}

func TestParsePreformatToggleAndAltText(t *testing.T) {
	body := []byte("```diagram\nline one\nline two\n```\nafter\n")
	doc := Parse(body)
	if doc.Lines[0].Kind != KindPreformat || doc.Lines[0].AltText != "diagram" {
		t.Fatalf("expected opening fence with alt text, got %+v", doc.Lines[0])
	}
	if doc.Lines[1].Text != "line one" || doc.Lines[1].Kind != KindPreformat {
		t.Errorf("expected preformat content, got %+v", doc.Lines[1])
	}
	if doc.Lines[3].Kind != KindPreformat || doc.Lines[3].AltText != "" {
		t.Fatalf("expected closing fence, got %+v", doc.Lines[3])
	}
	if doc.Lines[4].Kind != KindText || doc.Lines[4].Text != "after" {
		t.Errorf("expected text after closing fence, got %+v", doc.Lines[4])
	}
}

func TestNestedFencesDoNotNest(t *testing.T) {
	// second ``` closes, a third reopens: three fences total plus one content line.
	body := []byte("```\n```\n```\ntext\n")
	doc := Parse(body)
	// Fence toggles: open, close, open -> 3 preformat markers, then "text" is
	// inside preformat because the third fence reopened it.
	if doc.Lines[3].Kind != KindPreformat {
		t.Fatalf("expected text still fenced in, got %+v", doc.Lines[3])
	}
}
