// Package gemtext parses the text/gemini line format (spec.md §4.3),
// generalized from the inline parser in the teacher's cmd/client REPL
// and the link extraction in its crawler.
package gemtext

import "strings"

// LineKind tags a single parsed gemtext line.
type LineKind string

const (
	KindText       LineKind = "text"
	KindLink       LineKind = "link"
	KindHeading1   LineKind = "heading1"
	KindHeading2   LineKind = "heading2"
	KindHeading3   LineKind = "heading3"
	KindList       LineKind = "list"
	KindQuote      LineKind = "quote"
	KindPreformat  LineKind = "preformat"
)

// Line is one classified line of a gemtext document.
type Line struct {
	Kind LineKind
	Text string
	// URL and LinkText are only populated for KindLink.
	URL      string
	LinkText string
	// AltText is only populated for the first KindPreformat line of a
	// fenced block (the text following the opening ``` fence).
	AltText string
}

// Link is one entry in the deduplicated link projection.
type Link struct {
	URL  string
	Text string
}

// Document is the ordered parse of a gemtext body, plus its link
// projection.
type Document struct {
	Lines []Line
	Links []Link
}

// Parse performs the single forward pass described in spec.md §4.3.
func Parse(body []byte) *Document {
	doc := &Document{
		Lines: make([]Line, 0),
		Links: make([]Link, 0),
	}
	seen := make(map[string]struct{})

	inPreformat := false
	text := strings.ReplaceAll(string(body), "\r\n", "\n")
	rawLines := strings.Split(text, "\n")
	// A trailing newline terminates the last line; it does not start a new one.
	if n := len(rawLines); n > 0 && rawLines[n-1] == "" {
		rawLines = rawLines[:n-1]
	}
	for _, raw := range rawLines {
		line := strings.TrimSuffix(raw, "\r")

		if strings.HasPrefix(line, "```") {
			inPreformat = !inPreformat
			alt := ""
			if inPreformat {
				alt = strings.TrimPrefix(line, "```")
			}
			doc.Lines = append(doc.Lines, Line{Kind: KindPreformat, Text: line, AltText: alt})
			continue
		}

		if inPreformat {
			doc.Lines = append(doc.Lines, Line{Kind: KindPreformat, Text: line})
			continue
		}

		switch {
		case strings.HasPrefix(line, "=>"):
			rest := strings.TrimSpace(strings.TrimPrefix(line, "=>"))
			url, text := splitLinkFields(rest)
			doc.Lines = append(doc.Lines, Line{Kind: KindLink, URL: url, LinkText: text})
			if url != "" {
				if _, ok := seen[url]; !ok {
					seen[url] = struct{}{}
					doc.Links = append(doc.Links, Link{URL: url, Text: text})
				}
			}
		case strings.HasPrefix(line, "### "):
			doc.Lines = append(doc.Lines, Line{Kind: KindHeading3, Text: strings.TrimPrefix(line, "### ")})
		case strings.HasPrefix(line, "## "):
			doc.Lines = append(doc.Lines, Line{Kind: KindHeading2, Text: strings.TrimPrefix(line, "## ")})
		case strings.HasPrefix(line, "# "):
			doc.Lines = append(doc.Lines, Line{Kind: KindHeading1, Text: strings.TrimPrefix(line, "# ")})
		case strings.HasPrefix(line, "* "):
			doc.Lines = append(doc.Lines, Line{Kind: KindList, Text: strings.TrimPrefix(line, "* ")})
		case strings.HasPrefix(line, "> "):
			doc.Lines = append(doc.Lines, Line{Kind: KindQuote, Text: strings.TrimPrefix(line, "> ")})
		default:
			doc.Lines = append(doc.Lines, Line{Kind: KindText, Text: line})
		}
	}

	return doc
}

// splitLinkFields splits a link line's remainder (after "=>" and leading
// whitespace are stripped) into its URL and optional, whitespace-joined
// display text.
func splitLinkFields(rest string) (url string, text string) {
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return "", ""
	}
	url = fields[0]
	if len(fields) > 1 {
		text = strings.Join(fields[1:], " ")
	}
	return url, text
}
