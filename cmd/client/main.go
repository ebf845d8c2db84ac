// Command client is an interactive REPL for browsing both Gopher and
// Gemini space through the fetch façade (spec.md §4.1), grounded on the
// teacher's cmd/client REPL: numbered link navigation, a small history
// stack, ANSI-colored headings. Generalized from a Gemini-only,
// os.Stdin-driven loop into a dual-protocol REPL whose starting URL and
// allowed hosts are parsed with github.com/alecthomas/kong instead of
// the teacher's bare os.Args handling.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/cameronrye/gopher-mcp-go/internal/cache"
	"github.com/cameronrye/gopher-mcp-go/internal/clientcert"
	"github.com/cameronrye/gopher-mcp-go/internal/config"
	"github.com/cameronrye/gopher-mcp-go/internal/fetch"
	"github.com/cameronrye/gopher-mcp-go/internal/result"
	"github.com/cameronrye/gopher-mcp-go/internal/security"
	"github.com/cameronrye/gopher-mcp-go/internal/telemetry"
	"github.com/cameronrye/gopher-mcp-go/internal/tofu"
)

// CLI is the kong argument model for the REPL's startup flags.
var CLI struct {
	URL           string `arg:"" optional:"" help:"Starting gemini:// or gopher:// URL." default:"gemini://geminiprotocol.net/"`
	AllowedHosts  string `help:"Comma-separated host allowlist (empty allows all)." default:""`
	LogLevel      string `help:"Log level: debug, info, warn, error." default:"warn"`
}

// state tracks link navigation history the way the teacher's State did,
// generalized to hold links discovered from either protocol's menu/
// gemtext rendering.
type state struct {
	links   []string
	history []string
}

func (s *state) clearLinks() { s.links = s.links[:0] }

func main() {
	kong.Parse(&CLI)

	homeDir, _ := os.UserHomeDir()
	cfg, err := config.Load(homeDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "loading configuration:", err)
		os.Exit(1)
	}
	if CLI.AllowedHosts != "" {
		cfg.Gopher.AllowedHosts = CLI.AllowedHosts
		cfg.Gemini.AllowedHosts = CLI.AllowedHosts
	}

	log := telemetry.NewLogger(CLI.LogLevel)
	entry := telemetry.Component(log, "client")

	tofuStore, err := tofu.Open(cfg.Gemini.TOFUStoragePath, entry)
	if err != nil {
		fmt.Fprintln(os.Stderr, "opening TOFU store:", err)
		os.Exit(1)
	}
	certStore, err := clientcert.Open(cfg.Gemini.ClientCertStoragePath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "opening client certificate store:", err)
		os.Exit(1)
	}

	facade := fetch.New(fetch.Options{
		GopherCache: cache.New(cfg.Gopher.MaxCacheEntries, cfg.Gopher.CacheTTL()),
		GeminiCache: cache.New(cfg.Gemini.MaxCacheEntries, cfg.Gemini.CacheTTL()),
		GopherGate:  security.NewGate(cfg.Gopher.AllowedHosts, cfg.Gopher.MaxSelectorLength, cfg.Gopher.MaxSearchLength),
		GeminiGate:  security.NewGate(cfg.Gemini.AllowedHosts, cfg.Gemini.MaxSelectorLength, cfg.Gemini.MaxSearchLength),
		TOFU:        tofuStore,
		ClientCerts: certStore,
		Log:         entry,
	})

	st := &state{links: make([]string, 0, 32), history: make([]string, 0, 32)}
	printHelp()
	visit(facade, st, CLI.URL)

	reader := bufio.NewReader(os.Stdin)
	for {
		input, err := getUserInput(reader)
		if err != nil {
			fmt.Println("input error:", err)
			os.Exit(1)
		}

		target, handled := processInput(input, st)
		if handled {
			continue
		}
		visit(facade, st, target)
	}
}

func printHelp() {
	fmt.Println("gemini://url or gopher://url\topen url")
	fmt.Println("number\t\t\t\topen link by number")
	fmt.Println("b\t\t\t\tgo back")
	fmt.Println("q\t\t\t\tquit")
	fmt.Println("h\t\t\t\tprint this summary")
	fmt.Println()
}

func getUserInput(reader *bufio.Reader) (string, error) {
	fmt.Print("> ")
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// processInput resolves raw input into a target URL. handled is true
// when nothing should be fetched: empty input, help, or a back or link
// number that cannot be followed (no history, no such link).
func processInput(input string, st *state) (target string, handled bool) {
	switch input {
	case "":
		return "", true
	case "q":
		os.Exit(0)
	case "h":
		printHelp()
		return "", true
	case "b":
		if len(st.history) < 2 {
			fmt.Println("\033[31mno history yet\033[0m")
			return "", true
		}
		target = st.history[len(st.history)-2]
		st.history = st.history[:len(st.history)-2]
		return target, false
	}

	if n, err := strconv.Atoi(input); err == nil {
		if n < 1 || n > len(st.links) {
			fmt.Println("\033[31mno such link\033[0m")
			return "", true
		}
		return st.links[n-1], false
	}

	if strings.HasPrefix(input, "gopher://") || strings.HasPrefix(input, "gemini://") {
		return input, false
	}
	return "gemini://" + input, false
}

func visit(facade *fetch.Facade, st *state, target string) {
	var r result.Result
	switch {
	case strings.HasPrefix(target, "gopher://"):
		r = facade.FetchGopher(context.Background(), target)
	default:
		r = facade.FetchGemini(context.Background(), target)
	}
	render(st, r)
}

func render(st *state, r result.Result) {
	switch r.Kind {
	case result.KindError:
		fmt.Printf("\033[31mERROR: %s\033[0m\n", r.Error.Message)
		return

	case result.KindInput:
		fmt.Printf("\033[33m%s\033[0m (input not supplied; re-run with a query appended)\n", r.Prompt)
		return

	case result.KindCertificate:
		fmt.Printf("\033[33mclient certificate required: %s\033[0m\n", r.Message)
		return

	case result.KindRedirect:
		fmt.Println("redirected to", r.NewURL)
		return

	case result.KindMenu:
		st.clearLinks()
		for _, item := range r.Items {
			st.links = append(st.links, item.NextURL)
			fmt.Printf("[%d] %s\n", len(st.links), item.Title)
		}

	case result.KindGemtext:
		st.clearLinks()
		for _, line := range r.Lines {
			renderGemtextLine(st, line)
		}

	case result.KindText:
		fmt.Println(r.Text)

	case result.KindBinary:
		fmt.Printf("binary content (%s, %d bytes) not displayed\n", r.MIMEType, r.Bytes)

	case result.KindGeminiSuccess:
		fmt.Println(r.RawContent)
	}

	st.history = append(st.history, r.RequestInfo.URL)
}

func renderGemtextLine(st *state, line result.GemtextLine) {
	switch line.Kind {
	case "link":
		st.links = append(st.links, line.URL)
		text := line.LinkText
		if text == "" {
			text = line.URL
		}
		fmt.Printf("[%d] \033[34m%s\033[0m\n", len(st.links), text)
	case "heading1":
		fmt.Printf("\033[31m# %s\033[0m\n", line.Text)
	case "heading2":
		fmt.Printf("\033[32m## %s\033[0m\n", line.Text)
	case "heading3":
		fmt.Printf("\033[33m### %s\033[0m\n", line.Text)
	default:
		fmt.Println(line.Text)
	}
}
