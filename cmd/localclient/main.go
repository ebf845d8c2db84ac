// Command localclient browses a crawler mirror on disk without making
// any network request of its own (spec.md §5 "Supplemented Features"
// offline browsing), grounded on the teacher's cmd/localclient/main.go
// REPL. It shares its page-layout and ID logic with internal/crawler
// (the same package that wrote the mirror) rather than re-deriving it,
// and renders gemtext through internal/gemtext rather than an inline
// line-by-line parser.
package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/alecthomas/kong"

	"github.com/cameronrye/gopher-mcp-go/internal/crawler"
	"github.com/cameronrye/gopher-mcp-go/internal/gemtext"
)

// pageMeta mirrors the schema internal/crawler writes to each page's
// <id>.meta.json file.
type pageMeta struct {
	URL         string    `json:"url"`
	LastCrawled time.Time `json:"last_crawled"`
	Status      string    `json:"status"`
	MIME        string    `json:"mime"`
	SizeBytes   int       `json:"size_bytes"`
	Version     int       `json:"version"`
}

type state struct {
	links   []string
	history []string
}

func (s *state) clearLinks() { s.links = s.links[:0] }

var CLI struct {
	DB    string `help:"Database root directory written by the crawler." default:"data"`
	Queue string `help:"Queue file to append links missing from the local mirror." default:"queue.txt"`
}

func main() {
	kong.Parse(&CLI)

	reader := bufio.NewReader(os.Stdin)
	st := &state{links: make([]string, 0, 32), history: make([]string, 0, 32)}
	printHelp()

	for {
		input, err := getUserInput(reader)
		if err != nil {
			fmt.Println("reading input failed:", err)
			os.Exit(1)
		}

		target, handled := processInput(input, st)
		if handled {
			continue
		}

		link, err := resolveTarget(target)
		if err != nil {
			fmt.Printf("\033[31m%s\033[0m\n", err)
			continue
		}

		if err := openLocal(st, link); err != nil {
			fmt.Printf("\033[31m%s\033[0m\n", err)
			appendToQueue(crawler.CanonicalString(link))
			continue
		}
		st.history = append(st.history, link.String())
	}
}

func printHelp() {
	fmt.Println("gemini://url\topen a URL from the local mirror (queued if missing)")
	fmt.Println("number\t\topen a link from the current page by number")
	fmt.Println("b\t\tgo back")
	fmt.Println("q\t\tquit")
	fmt.Println("h\t\tprint this summary")
	fmt.Println("g\t\topen the Project Gemini homepage")
	fmt.Println("t\t\tshow the top 20 hosts in the local mirror by page count")
	fmt.Println()
}

func getUserInput(reader *bufio.Reader) (string, error) {
	fmt.Print("\U0001F534➡ ")
	input, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

// processInput handles the REPL's non-navigation commands and resolves
// navigation commands (link numbers, "b", "g", bare URLs) to a target
// string. handled is true when no navigation should occur.
func processInput(input string, st *state) (target string, handled bool) {
	switch input {
	case "":
		return "", true
	case "q":
		os.Exit(0)
		return "", true
	case "h":
		printHelp()
		return "", true
	case "g":
		return "gemini://geminiprotocol.net/", false
	case "t":
		if err := showTop(st); err != nil {
			fmt.Printf("\033[31m%s\033[0m\n", err)
		}
		return "", true
	case "b":
		if len(st.history) < 2 {
			fmt.Println("\033[31mno history yet\033[0m")
			return "", true
		}
		target = st.history[len(st.history)-2]
		st.history = st.history[:len(st.history)-2]
		fmt.Println(">", target)
		return target, false
	}

	if idx, err := strconv.Atoi(input); err == nil {
		if idx <= 0 || idx > len(st.links) {
			fmt.Println("\033[31mno link with this number\033[0m")
			return "", true
		}
		target = st.links[idx-1]
		fmt.Println(">", target)
		return target, false
	}

	target = input
	if !strings.HasPrefix(strings.ToLower(target), "gemini://") {
		target = "gemini://" + target
	}
	return target, false
}

func resolveTarget(raw string) (*url.URL, error) {
	if !strings.Contains(raw, "://") {
		raw = "gemini://" + raw
	}
	link, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing URL: %w", err)
	}
	if link.Scheme == "" {
		link.Scheme = "gemini"
	}
	if link.Scheme != "gemini" {
		return nil, fmt.Errorf("unsupported scheme for offline browsing: %s", link.Scheme)
	}
	if link.Path == "" {
		link.Path = "/"
	}
	link.Fragment = ""
	link.Host = strings.ToLower(link.Host)
	return link, nil
}

func openLocal(st *state, link *url.URL) error {
	host, id := crawler.PageID(link)
	metaPath := filepath.Join(CLI.DB, host, "pages", id+".meta.json")
	mb, err := os.ReadFile(metaPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("not found in local mirror: %s", crawler.CanonicalString(link))
		}
		return fmt.Errorf("reading page metadata: %w", err)
	}
	var m pageMeta
	if err := json.Unmarshal(mb, &m); err != nil {
		return fmt.Errorf("invalid page metadata: %w", err)
	}

	ext := crawler.ContentExtension(m.MIME)
	contentPath := filepath.Join(CLI.DB, host, "pages", id+ext)
	body, err := os.ReadFile(contentPath)
	if err != nil {
		return fmt.Errorf("page content missing: %w", err)
	}

	mime := strings.ToLower(m.MIME)
	switch {
	case strings.HasPrefix(mime, "text/gemini"):
		st.clearLinks()
		doc := gemtext.Parse(body)
		for _, line := range doc.Lines {
			renderLine(st, link, line)
		}
	case strings.HasPrefix(mime, "text/"):
		os.Stdout.Write(body)
	default:
		fmt.Printf("\033[31munsupported content type: %s\033[0m\n", m.MIME)
	}
	return nil
}

func renderLine(st *state, base *url.URL, line gemtext.Line) {
	switch line.Kind {
	case gemtext.KindLink:
		absolute := line.URL
		if resolved, err := url.Parse(line.URL); err == nil {
			absolute = base.ResolveReference(resolved).String()
		}
		st.links = append(st.links, absolute)
		text := line.LinkText
		if text == "" {
			text = line.URL
		}
		fmt.Printf("[%d] \033[34m%s\033[0m\n", len(st.links), text)
	case gemtext.KindHeading1:
		fmt.Printf("\033[31m# %s\033[0m\n", line.Text)
	case gemtext.KindHeading2:
		fmt.Printf("\033[32m## %s\033[0m\n", line.Text)
	case gemtext.KindHeading3:
		fmt.Printf("\033[33m### %s\033[0m\n", line.Text)
	default:
		fmt.Println(line.Text)
	}
}

func appendToQueue(canon string) {
	f, err := os.OpenFile(CLI.Queue, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = f.WriteString(canon + "\n")
}

// showTop lists the hosts with the most mirrored pages, matching the
// teacher's local-DB-inspection command.
func showTop(st *state) error {
	entries, err := os.ReadDir(CLI.DB)
	if err != nil {
		return fmt.Errorf("reading database directory: %w", err)
	}

	type hostCount struct {
		host  string
		count int
	}
	var counts []hostCount
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		pagesDir := filepath.Join(CLI.DB, e.Name(), "pages")
		pages, err := os.ReadDir(pagesDir)
		if err != nil {
			continue
		}
		n := 0
		for _, p := range pages {
			if p.IsDir() || strings.HasSuffix(p.Name(), ".tmp") || strings.HasSuffix(p.Name(), ".meta.json") {
				continue
			}
			n++
		}
		if n > 0 {
			counts = append(counts, hostCount{host: e.Name(), count: n})
		}
	}
	if len(counts) == 0 {
		fmt.Println("no pages found in the local mirror")
		st.clearLinks()
		return nil
	}

	sort.Slice(counts, func(i, j int) bool {
		if counts[i].count == counts[j].count {
			return counts[i].host < counts[j].host
		}
		return counts[i].count > counts[j].count
	})

	st.clearLinks()
	fmt.Println("top hosts by mirrored page count:")
	limit := 20
	if len(counts) < limit {
		limit = len(counts)
	}
	for i := 0; i < limit; i++ {
		c := counts[i]
		st.links = append(st.links, "gemini://"+c.host+"/")
		fmt.Printf("[%d] \033[34m%s\033[0m (%d pages)\n", i+1, c.host, c.count)
	}
	return nil
}
