// Package menu parses a Gopher menu response body into typed items
// (spec.md §3 "Menu item", §4.2).
package menu

import (
	"bufio"
	"strconv"
	"strings"

	"github.com/cameronrye/gopher-mcp-go/internal/urlcodec"
)

// Item is one parsed line of a Gopher menu.
type Item struct {
	Type     string
	Title    string
	Selector string
	Host     string
	Port     int
	NextURL  string
}

const defaultPort = 70

// Parse splits body into menu items. Lines terminate on LF (CR tolerated).
// A line containing only "." ends the menu. Malformed lines (not exactly
// four TAB-separated fields) are skipped silently, matching RFC 1436
// servers' habit of emitting decorative "info" lines. An empty result is
// valid.
func Parse(body []byte) []Item {
	items := make([]Item, 0)
	scanner := bufio.NewScanner(strings.NewReader(string(body)))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		if line == "." {
			break
		}
		item, ok := parseLine(line)
		if !ok {
			continue
		}
		items = append(items, item)
	}
	return items
}

func parseLine(line string) (Item, bool) {
	fields := strings.Split(line, "\t")
	if len(fields) != 4 {
		return Item{}, false
	}
	typed := fields[0]
	if typed == "" {
		return Item{}, false
	}
	itemType := typed[0:1]
	title := typed[1:]
	selector := fields[1]
	host := fields[2]

	port := defaultPort
	if n, err := strconv.Atoi(fields[3]); err == nil {
		port = n
	}

	next := urlcodec.NextMenuItemURL(itemType, selector, host, port)

	return Item{
		Type:     itemType,
		Title:    title,
		Selector: selector,
		Host:     host,
		Port:     port,
		NextURL:  next,
	}, true
}
