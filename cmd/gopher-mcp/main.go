// Command gopher-mcp exposes the gopher_fetch and gemini_fetch tools
// over the Model Context Protocol's stdio transport (spec.md §6 "MCP
// tools"), grounded on the teacher's cmd/client REPL for the "wire up
// dependencies, loop until told to stop" shape, generalized from a
// terminal REPL into an MCP stdio server using
// github.com/mark3labs/mcp-go.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/cameronrye/gopher-mcp-go/internal/cache"
	"github.com/cameronrye/gopher-mcp-go/internal/clientcert"
	"github.com/cameronrye/gopher-mcp-go/internal/config"
	"github.com/cameronrye/gopher-mcp-go/internal/fetch"
	"github.com/cameronrye/gopher-mcp-go/internal/security"
	"github.com/cameronrye/gopher-mcp-go/internal/telemetry"
	"github.com/cameronrye/gopher-mcp-go/internal/tofu"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "gopher-mcp:", err)
		os.Exit(1)
	}
}

func run() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	cfg, err := config.Load(homeDir)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	log := telemetry.NewLogger("info")
	entry := telemetry.Component(log, "gopher-mcp")

	tofuStore, err := tofu.Open(cfg.Gemini.TOFUStoragePath, entry)
	if err != nil {
		return fmt.Errorf("opening TOFU store: %w", err)
	}
	certStore, err := clientcert.Open(cfg.Gemini.ClientCertStoragePath)
	if err != nil {
		return fmt.Errorf("opening client certificate store: %w", err)
	}

	facade := fetch.New(fetch.Options{
		GopherCache:    maybeCache(cfg.Gopher.CacheEnabled, cfg.Gopher.MaxCacheEntries, cfg.Gopher.CacheTTL()),
		GeminiCache:    maybeCache(cfg.Gemini.CacheEnabled, cfg.Gemini.MaxCacheEntries, cfg.Gemini.CacheTTL()),
		GopherGate:     security.NewGate(cfg.Gopher.AllowedHosts, cfg.Gopher.MaxSelectorLength, cfg.Gopher.MaxSearchLength),
		GeminiGate:     security.NewGate(cfg.Gemini.AllowedHosts, cfg.Gemini.MaxSelectorLength, cfg.Gemini.MaxSearchLength),
		TOFU:           tofuStore,
		ClientCerts:    certStore,
		MaxConcurrent:  int64(cfg.MaxConcurrentConnections),
		MaxRedirects:   cfg.MaxRedirects,
		GopherTimeout:  cfg.Gopher.Timeout(),
		GeminiTimeout:  cfg.Gemini.Timeout(),
		GopherMaxBytes: cfg.Gopher.MaxResponseSize,
		GeminiMaxBytes: cfg.Gemini.MaxResponseSize,
		Log:            entry,
	})

	mcpServer := server.NewMCPServer("gopher-mcp-go", "0.1.0")
	registerGopherFetch(mcpServer, facade)
	registerGeminiFetch(mcpServer, facade)

	entry.Info("starting MCP stdio server")
	return server.ServeStdio(mcpServer)
}

func maybeCache(enabled bool, maxEntries int, ttl time.Duration) *cache.Cache {
	if !enabled {
		return nil
	}
	return cache.New(maxEntries, ttl)
}

func registerGopherFetch(s *server.MCPServer, facade *fetch.Facade) {
	tool := mcp.NewTool("gopher_fetch",
		mcp.WithDescription("Fetch a resource from a Gopher server by URL (gopher://host[:port]/[type]selector)."),
		mcp.WithString("url", mcp.Required(), mcp.Description("The gopher:// URL to fetch.")),
	)
	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := req.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		r := facade.FetchGopher(ctx, url)
		return toolResultFor(r)
	})
}

func registerGeminiFetch(s *server.MCPServer, facade *fetch.Facade) {
	tool := mcp.NewTool("gemini_fetch",
		mcp.WithDescription("Fetch a resource from a Gemini server by URL (gemini://host[:port]/path)."),
		mcp.WithString("url", mcp.Required(), mcp.Description("The gemini:// URL to fetch.")),
	)
	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := req.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		r := facade.FetchGemini(ctx, url)
		return toolResultFor(r)
	})
}
