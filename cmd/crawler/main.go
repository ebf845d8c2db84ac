// Command crawler walks a queue of Gemini URLs to a local mirror
// (spec.md §5 "Supplemented Features" crawling), grounded on the
// teacher's cmd/crawler/main.go flag set, generalized from
// flag.String/flag.Int to github.com/alecthomas/kong and wired to fetch
// through a shared internal/fetch.Facade rather than dialing directly.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"

	"github.com/cameronrye/gopher-mcp-go/internal/cache"
	"github.com/cameronrye/gopher-mcp-go/internal/clientcert"
	"github.com/cameronrye/gopher-mcp-go/internal/config"
	"github.com/cameronrye/gopher-mcp-go/internal/crawler"
	"github.com/cameronrye/gopher-mcp-go/internal/fetch"
	"github.com/cameronrye/gopher-mcp-go/internal/security"
	"github.com/cameronrye/gopher-mcp-go/internal/telemetry"
	"github.com/cameronrye/gopher-mcp-go/internal/tofu"
)

var CLI struct {
	Queue        string `help:"Path to queue file (one URL per line)." default:"queue.txt"`
	DB           string `help:"Database root directory." default:"data"`
	ErrorLog     string `help:"Path to error log file." default:"error_queue.log"`
	ThrottleMS   int    `help:"Per-host minimum interval between requests, in milliseconds." default:"1500"`
	RecrawlHours int    `help:"Do not recrawl a page within this many hours." default:"768"`
}

func main() {
	kong.Parse(&CLI)

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "crawler error:", err)
		os.Exit(1)
	}
}

func run() error {
	homeDir, _ := os.UserHomeDir()
	cfg, err := config.Load(homeDir)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	log := telemetry.NewLogger("info")
	entry := telemetry.Component(log, "crawler")

	tofuStore, err := tofu.Open(cfg.Gemini.TOFUStoragePath, entry)
	if err != nil {
		return fmt.Errorf("opening TOFU store: %w", err)
	}
	certStore, err := clientcert.Open(cfg.Gemini.ClientCertStoragePath)
	if err != nil {
		return fmt.Errorf("opening client certificate store: %w", err)
	}

	facade := fetch.New(fetch.Options{
		GeminiCache:    cache.New(cfg.Gemini.MaxCacheEntries, cfg.Gemini.CacheTTL()),
		GeminiGate:     security.NewGate(cfg.Gemini.AllowedHosts, cfg.Gemini.MaxSelectorLength, cfg.Gemini.MaxSearchLength),
		TOFU:           tofuStore,
		ClientCerts:    certStore,
		MaxRedirects:   cfg.MaxRedirects,
		GeminiTimeout:  cfg.Gemini.Timeout(),
		GeminiMaxBytes: cfg.Gemini.MaxResponseSize,
		Log:            entry,
	})

	c := crawler.New(facade, crawler.Options{
		DBDir:         CLI.DB,
		QueuePath:     CLI.Queue,
		ErrorLogPath:  CLI.ErrorLog,
		Throttle:      time.Duration(CLI.ThrottleMS) * time.Millisecond,
		RecrawlWindow: time.Duration(CLI.RecrawlHours) * time.Hour,
	})

	return c.Run(context.Background())
}
