// Package fetch is the façade the MCP tools and CLI front-ends call into
// (spec.md §4.1, §5). It owns every shared resource — the TOFU store,
// the client-certificate store, the response cache, the security gate,
// and the concurrency bound — and drives the full pipeline for a single
// request: parse, gate, cache lookup, dial, read, classify, cache
// insert. Grounded on the composition style of
// Howard-nolan-llmrouter/internal/server/server.go, which wires its
// dependencies into one struct and exposes narrow public methods.
package fetch

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/cameronrye/gopher-mcp-go/internal/cache"
	"github.com/cameronrye/gopher-mcp-go/internal/clientcert"
	"github.com/cameronrye/gopher-mcp-go/internal/fetcherr"
	"github.com/cameronrye/gopher-mcp-go/internal/gemtext"
	"github.com/cameronrye/gopher-mcp-go/internal/geminiclient"
	"github.com/cameronrye/gopher-mcp-go/internal/gopherclient"
	"github.com/cameronrye/gopher-mcp-go/internal/menu"
	"github.com/cameronrye/gopher-mcp-go/internal/mimeparse"
	"github.com/cameronrye/gopher-mcp-go/internal/result"
	"github.com/cameronrye/gopher-mcp-go/internal/security"
	"github.com/cameronrye/gopher-mcp-go/internal/tlsdial"
	"github.com/cameronrye/gopher-mcp-go/internal/tofu"
	"github.com/cameronrye/gopher-mcp-go/internal/urlcodec"
)

// Options configures a Facade. Zero values fall back to spec.md §6's
// documented defaults.
type Options struct {
	GopherCache      *cache.Cache
	GeminiCache      *cache.Cache
	GopherGate       *security.Gate
	GeminiGate       *security.Gate
	TOFU             *tofu.Store
	ClientCerts      *clientcert.Store
	TLSMinVersion    uint16
	MaxConcurrent    int64
	MaxRedirects     int
	GopherTimeout    time.Duration
	GeminiTimeout    time.Duration
	GopherMaxBytes   int
	GeminiMaxBytes   int
	Log              *logrus.Entry
}

// Facade is the single entry point every protocol-specific MCP tool and
// CLI command calls through.
type Facade struct {
	opts Options
	sem  *semaphore.Weighted
	dial *tlsdial.Dialer
	log  *logrus.Entry
}

// New builds a Facade from opts, applying spec.md §6 defaults for any
// zero-valued field.
func New(opts Options) *Facade {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 10
	}
	if opts.MaxRedirects <= 0 {
		opts.MaxRedirects = 5
	}
	if opts.GopherTimeout <= 0 {
		opts.GopherTimeout = 30 * time.Second
	}
	if opts.GeminiTimeout <= 0 {
		opts.GeminiTimeout = 30 * time.Second
	}
	if opts.GopherMaxBytes <= 0 {
		opts.GopherMaxBytes = 1 << 20
	}
	if opts.GeminiMaxBytes <= 0 {
		opts.GeminiMaxBytes = 1 << 20
	}
	if opts.Log == nil {
		opts.Log = logrus.NewEntry(logrus.StandardLogger())
	}

	return &Facade{
		opts: opts,
		sem:  semaphore.NewWeighted(opts.MaxConcurrent),
		dial: tlsdial.New(opts.TOFU, opts.ClientCerts, opts.TLSMinVersion),
		log:  opts.Log.WithField("component", "fetch"),
	}
}

// FetchGopher runs the full Gopher pipeline for rawURL and never returns
// an error to the caller: every failure mode is recovered into a
// result.KindError Result (spec.md §4.1 "never throws").
func (f *Facade) FetchGopher(ctx context.Context, rawURL string) result.Result {
	u, err := urlcodec.ParseGopherURL(rawURL)
	if err != nil {
		return errorResult(rawURL, err)
	}
	canonical := urlcodec.FormatGopherURL(u)

	if f.opts.GopherGate != nil {
		if err := f.opts.GopherGate.CheckGopher(u.Host, u.Port, u.Selector, u.Search, u.HasSearch); err != nil {
			return errorResult(canonical, err)
		}
	}

	if f.opts.GopherCache != nil {
		if cached, ok := f.opts.GopherCache.Get(canonical); ok {
			return cached
		}
	}

	if err := f.sem.Acquire(ctx, 1); err != nil {
		return errorResult(canonical, fetcherr.Wrap(fetcherr.FetchError, "waiting for a connection slot", err))
	}
	defer f.sem.Release(1)

	reqCtx, cancel := context.WithTimeout(ctx, f.opts.GopherTimeout)
	defer cancel()

	body, err := gopherclient.Fetch(reqCtx, u.Host, u.Port, u, f.opts.GopherMaxBytes)
	if err != nil {
		return errorResult(canonical, err)
	}

	r := classifyGopher(canonical, u, body)
	if f.opts.GopherCache != nil && r.Cacheable() {
		f.opts.GopherCache.Put(canonical, r)
	}
	return r
}

func classifyGopher(canonical string, u *urlcodec.GopherURL, body []byte) result.Result {
	switch u.Type {
	case "1":
		items := menu.Parse(body)
		out := make([]result.MenuItem, 0, len(items))
		for _, it := range items {
			out = append(out, result.MenuItem{
				Type:     it.Type,
				Title:    it.Title,
				Selector: it.Selector,
				Host:     it.Host,
				Port:     it.Port,
				NextURL:  it.NextURL,
			})
		}
		return result.Menu(canonical, out)
	case "0", "7":
		text := gopherclient.DecodeText(body)
		return result.Text(canonical, "utf-8", body, text)
	default:
		mime := gopherclient.GuessMIME(u.Type, u.Selector)
		return result.Binary(canonical, len(body), mime)
	}
}

// FetchGemini runs the full Gemini pipeline for rawURL, following
// redirects up to the configured limit (spec.md §4.9). Each hop is a
// fresh call into geminiclient.Fetch; this loop is the only place
// redirects are chased.
func (f *Facade) FetchGemini(ctx context.Context, rawURL string) result.Result {
	return f.fetchGeminiHop(ctx, rawURL, f.opts.MaxRedirects)
}

func (f *Facade) fetchGeminiHop(ctx context.Context, rawURL string, redirectsLeft int) result.Result {
	u, err := urlcodec.ParseGeminiURL(rawURL)
	if err != nil {
		return errorResult(rawURL, err)
	}
	canonical := urlcodec.FormatGeminiURL(u)

	if u.Host == "" {
		return errorResult(canonical, fetcherr.New(fetcherr.InvalidURL, "host is required"))
	}

	if f.opts.GeminiGate != nil {
		if err := f.opts.GeminiGate.CheckGemini(u.Host, u.Port, canonical); err != nil {
			return errorResult(canonical, err)
		}
	}

	if f.opts.GeminiCache != nil {
		if cached, ok := f.opts.GeminiCache.Get(canonical); ok {
			return cached
		}
	}

	if err := f.sem.Acquire(ctx, 1); err != nil {
		return errorResult(canonical, fetcherr.Wrap(fetcherr.FetchError, "waiting for a connection slot", err))
	}
	reqCtx, cancel := context.WithTimeout(ctx, f.opts.GeminiTimeout)
	resp, err := geminiclient.Fetch(reqCtx, f.dial, u, f.opts.GeminiMaxBytes)
	cancel()
	f.sem.Release(1)

	if err != nil {
		return errorResult(canonical, err)
	}

	switch resp.Class() {
	case geminiclient.ClassInput:
		return result.Input(canonical, resp.Meta, resp.Status == 11)

	case geminiclient.ClassRedirect:
		if redirectsLeft <= 0 {
			return errorResult(canonical, fetcherr.New(fetcherr.TooManyRedirects, "exceeded configured redirect limit"))
		}
		target := resolveRedirect(canonical, resp.Meta)
		if _, err := urlcodec.ParseGeminiURL(target); err != nil {
			return result.Redirect(canonical, resp.Meta, resp.Status == 31)
		}
		return f.fetchGeminiHop(ctx, target, redirectsLeft-1)

	case geminiclient.ClassTemporaryFailure, geminiclient.ClassPermanentFailure:
		return errorResult(canonical, fetcherr.New(fetcherr.ProtocolError, resp.Meta))

	case geminiclient.ClassCertificateNeeded:
		return result.Certificate(canonical, true, resp.Meta)

	case geminiclient.ClassSuccess:
		r := classifyGemini(canonical, resp)
		if f.opts.GeminiCache != nil && r.Cacheable() {
			f.opts.GeminiCache.Put(canonical, r)
		}
		return r

	default:
		return errorResult(canonical, fetcherr.New(fetcherr.ProtocolError, "unrecognised status"))
	}
}

func classifyGemini(canonical string, resp *geminiclient.Response) result.Result {
	mime := mimeparse.Parse(resp.Meta)
	body := mimeparse.DecodeBody(mime.Charset, resp.Body)
	if mime.IsGemtext() {
		doc := gemtext.Parse(body)
		lines := make([]result.GemtextLine, 0, len(doc.Lines))
		for _, l := range doc.Lines {
			url := l.URL
			if url != "" {
				url = resolveRedirect(canonical, url)
			}
			lines = append(lines, result.GemtextLine{
				Kind: string(l.Kind), Text: l.Text, URL: url, LinkText: l.LinkText, AltText: l.AltText,
			})
		}
		links := make([]result.GemtextLink, 0, len(doc.Links))
		for _, l := range doc.Links {
			links = append(links, result.GemtextLink{URL: resolveRedirect(canonical, l.URL), Text: l.Text})
		}
		return result.Gemtext(canonical, lines, links)
	}
	return result.GeminiSuccess(canonical, mime.String(), string(body))
}

// resolveRedirect resolves a possibly-relative redirect target against
// the URL that produced it, the way a gemini:// link in a gemtext
// document is resolved (spec.md §4.3 relative link resolution).
func resolveRedirect(base, target string) string {
	resolved, err := urlcodec.ResolveGeminiReference(base, target)
	if err != nil {
		return target
	}
	return resolved
}

func errorResult(url string, err error) result.Result {
	if fe, ok := err.(*fetcherr.Error); ok {
		return result.ErrorOf(url, string(fe.Code), fe.Error())
	}
	return result.ErrorOf(url, string(fetcherr.FetchError), err.Error())
}
