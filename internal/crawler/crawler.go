// Package crawler walks a queue of Gemini URLs to a local mirror,
// grounded on the teacher's own internal/crawler/crawler.go: a
// sha256-hashed page-id-per-URL layout, a recrawl window, a per-host
// throttle, and atomic tmp-then-rename writes for both content and
// metadata. Generalized to fetch through internal/fetch.Facade (so
// redirects, TOFU, and the response cache are handled once, in one
// place) instead of dialing gemini.DoRequest directly, and to discover
// links from the façade's already-parsed gemtext Result rather than
// re-scanning the raw body.
package crawler

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/cameronrye/gopher-mcp-go/internal/fetch"
	"github.com/cameronrye/gopher-mcp-go/internal/result"
)

// Options controls crawl behavior. Zero values are replaced with the
// teacher's original defaults by New.
type Options struct {
	DBDir         string
	QueuePath     string
	ErrorLogPath  string
	Throttle      time.Duration
	RecrawlWindow time.Duration
}

// Crawler performs a single pass over a queue file, fetching each
// not-yet-recently-seen URL through a fetch.Facade and mirroring its
// content to DBDir.
type Crawler struct {
	opts    Options
	facade  *fetch.Facade
	seen    map[string]struct{}
	lastReq map[string]time.Time
	mu      sync.Mutex
}

// New builds a Crawler that fetches through facade.
func New(facade *fetch.Facade, opts Options) *Crawler {
	if opts.DBDir == "" {
		opts.DBDir = "data"
	}
	if opts.QueuePath == "" {
		opts.QueuePath = "queue.txt"
	}
	if opts.ErrorLogPath == "" {
		opts.ErrorLogPath = "error_queue.log"
	}
	if opts.Throttle == 0 {
		opts.Throttle = 2 * time.Second
	}
	if opts.RecrawlWindow == 0 {
		opts.RecrawlWindow = 72 * time.Hour
	}
	return &Crawler{
		facade:  facade,
		opts:    opts,
		seen:    make(map[string]struct{}, 1024),
		lastReq: make(map[string]time.Time),
	}
}

type pageMeta struct {
	URL         string    `json:"url"`
	LastCrawled time.Time `json:"last_crawled"`
	Status      string    `json:"status"`
	MIME        string    `json:"mime"`
	SizeBytes   int       `json:"size_bytes"`
	Version     int       `json:"version"`
}

// Run processes the queue file once.
func (c *Crawler) Run(ctx context.Context) error {
	qf, err := os.Open(c.opts.QueuePath)
	if err != nil {
		return fmt.Errorf("open queue: %w", err)
	}
	defer qf.Close()

	if err := os.MkdirAll(c.opts.DBDir, 0o755); err != nil {
		return fmt.Errorf("mkdir db: %w", err)
	}

	scanner := bufio.NewScanner(qf)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		u, canon, err := normalizeURL(line)
		if err != nil {
			continue
		}
		if _, ok := c.seen[canon]; ok {
			continue
		}
		c.seen[canon] = struct{}{}

		host, id := pageID(u)
		should, err := c.shouldFetch(host, id)
		if err != nil {
			c.logError(canon, err)
			continue
		}
		if !should {
			continue
		}

		c.throttle(host)

		r := c.facade.FetchGemini(ctx, canon)

		if r.Kind == result.KindError {
			c.logError(canon, errors.New(r.Error.Message))
			_ = c.writeErrorMeta(host, id, canon, r.Error.Code, 0)
			continue
		}
		if r.Kind != result.KindGemtext && r.Kind != result.KindGeminiSuccess {
			c.logError(canon, fmt.Errorf("unexpected result kind %q", r.Kind))
			_ = c.writeErrorMeta(host, id, canon, string(r.Kind), 0)
			continue
		}

		mime, body := extractMIMEAndBody(r)
		if err := c.savePage(host, id, canon, mime, body); err != nil {
			c.logError(canon, err)
			_ = c.writeErrorMeta(host, id, canon, "save-error", len(body))
			continue
		}

		if r.Kind == result.KindGemtext {
			links := make([]string, 0, len(r.Links))
			for _, l := range r.Links {
				if _, _, err := normalizeURL(l.URL); err == nil {
					links = append(links, l.URL)
				}
			}
			if len(links) > 0 {
				c.appendToQueueDedup(links)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan queue: %w", err)
	}
	return nil
}

func extractMIMEAndBody(r result.Result) (mime string, body []byte) {
	if r.Kind == result.KindGemtext {
		return "text/gemini", []byte(renderGemtext(r.Lines))
	}
	return r.MIMEType, []byte(r.RawContent)
}

func renderGemtext(lines []result.GemtextLine) string {
	var b strings.Builder
	for _, l := range lines {
		switch l.Kind {
		case "link":
			b.WriteString("=> ")
			b.WriteString(l.URL)
			if l.LinkText != "" {
				b.WriteString(" ")
				b.WriteString(l.LinkText)
			}
		default:
			b.WriteString(l.Text)
		}
		b.WriteString("\n")
	}
	return b.String()
}

const geminiPort = "1965"

func normalizeURL(raw string) (*url.URL, string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, "", err
	}
	if u.Scheme == "" {
		u.Scheme = "gemini"
	}
	if u.Scheme != "gemini" {
		return nil, "", fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	u.Fragment = ""
	u.Host = strings.ToLower(u.Host)
	if u.Path == "" {
		u.Path = "/"
	}
	return u, canonicalString(u), nil
}

func canonicalString(u *url.URL) string {
	host := u.Host
	if h, p, ok := strings.Cut(host, ":"); ok && p == geminiPort {
		host = h
	}
	var b strings.Builder
	b.WriteString("gemini://")
	b.WriteString(host)
	if u.Path == "" {
		b.WriteString("/")
	} else {
		b.WriteString(u.Path)
	}
	if u.RawQuery != "" {
		b.WriteString("?")
		b.WriteString(u.RawQuery)
	}
	return b.String()
}

// CanonicalString exposes canonicalString for callers outside this
// package that need to derive the same mirror layout (cmd/localclient).
func CanonicalString(u *url.URL) string { return canonicalString(u) }

// PageID exposes pageID for callers outside this package.
func PageID(u *url.URL) (host, id string) { return pageID(u) }

// NormalizeURL exposes normalizeURL for callers outside this package.
func NormalizeURL(raw string) (*url.URL, string, error) { return normalizeURL(raw) }

// ContentExtension returns the file extension Run uses to mirror a page
// of the given MIME type, so a reader of the mirror can find the file
// without re-deriving the rule.
func ContentExtension(mime string) string {
	lm := strings.ToLower(mime)
	switch {
	case strings.HasPrefix(lm, "text/gemini"):
		return ".gmi"
	case strings.HasPrefix(lm, "image/jpeg"):
		return ".jpg"
	case strings.HasPrefix(lm, "image/png"):
		return ".png"
	case strings.HasPrefix(lm, "text/"):
		return ".txt"
	default:
		return ".bin"
	}
}

func pageID(u *url.URL) (host, id string) {
	host = strings.ToLower(u.Host)
	if h, p, ok := strings.Cut(host, ":"); ok && p == geminiPort {
		host = h
	}
	canon := canonicalString(u)
	h := sha256.Sum256([]byte(canon))
	hash := hex.EncodeToString(h[:])
	slug := slugFromPath(u.Path)
	id = fmt.Sprintf("%s__%s", slug, hash)
	return host, id
}

var slugRe = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

func slugFromPath(p string) string {
	if p == "" || p == "/" {
		return "root"
	}
	parts := strings.Split(strings.TrimSuffix(p, "/"), "/")
	last := parts[len(parts)-1]
	last = slugRe.ReplaceAllString(last, "-")
	if len(last) > 80 {
		last = last[:80]
	}
	if last == "" || last == "-" {
		return "page"
	}
	return last
}

func (c *Crawler) hostDir(host string) string     { return filepath.Join(c.opts.DBDir, host) }
func (c *Crawler) pagesDir(host string) string     { return filepath.Join(c.hostDir(host), "pages") }
func (c *Crawler) metaPath(host, id string) string { return filepath.Join(c.pagesDir(host), id+".meta.json") }

func (c *Crawler) contentPath(host, id, mime string) string {
	return filepath.Join(c.pagesDir(host), id+ContentExtension(mime))
}

func (c *Crawler) shouldFetch(host, id string) (bool, error) {
	b, err := os.ReadFile(c.metaPath(host, id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return true, nil
		}
		return false, err
	}
	var m pageMeta
	if err := json.Unmarshal(b, &m); err != nil {
		return true, nil
	}
	if time.Since(m.LastCrawled) < c.opts.RecrawlWindow {
		return false, nil
	}
	return true, nil
}

func (c *Crawler) throttle(host string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	if t, ok := c.lastReq[host]; ok {
		if wait := c.opts.Throttle - now.Sub(t); wait > 0 {
			c.mu.Unlock()
			time.Sleep(wait)
			c.mu.Lock()
		}
	}
	c.lastReq[host] = time.Now()
}

func (c *Crawler) savePage(host, id, canon, mime string, body []byte) error {
	if err := os.MkdirAll(c.pagesDir(host), 0o755); err != nil {
		return err
	}
	cp := c.contentPath(host, id, mime)
	if err := writeAtomic(cp, body, 0o644); err != nil {
		return err
	}
	m := pageMeta{URL: canon, LastCrawled: time.Now().UTC(), Status: "success", MIME: mime, SizeBytes: len(body), Version: 1}
	mb, _ := json.MarshalIndent(&m, "", "  ")
	return writeAtomic(c.metaPath(host, id), mb, 0o644)
}

func (c *Crawler) writeErrorMeta(host, id, canon, status string, size int) error {
	if err := os.MkdirAll(c.pagesDir(host), 0o755); err != nil {
		return err
	}
	m := pageMeta{URL: canon, LastCrawled: time.Now().UTC(), Status: status, SizeBytes: size, Version: 1}
	mb, _ := json.MarshalIndent(&m, "", "  ")
	return writeAtomic(c.metaPath(host, id), mb, 0o644)
}

func writeAtomic(path string, data []byte, perm os.FileMode) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (c *Crawler) appendToQueueDedup(urls []string) {
	f, err := os.OpenFile(c.opts.QueuePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	for _, u := range urls {
		if _, ok := c.seen[u]; ok {
			continue
		}
		c.seen[u] = struct{}{}
		_, _ = f.WriteString(u + "\n")
	}
}

func (c *Crawler) logError(urlStr string, err error) {
	_ = os.MkdirAll(filepath.Dir(c.opts.ErrorLogPath), 0o755)
	f, ferr := os.OpenFile(c.opts.ErrorLogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if ferr != nil {
		return
	}
	defer f.Close()
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	line := fmt.Sprintf("%s\t%s\t%s\n", time.Now().UTC().Format(time.RFC3339), urlStr, msg)
	_, _ = f.WriteString(line)
}
