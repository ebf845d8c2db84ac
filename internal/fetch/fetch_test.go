package fetch

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cameronrye/gopher-mcp-go/internal/cache"
	"github.com/cameronrye/gopher-mcp-go/internal/result"
	"github.com/cameronrye/gopher-mcp-go/internal/security"
	"github.com/cameronrye/gopher-mcp-go/internal/tofu"
)

func gopherServer(t *testing.T, body string) (string, int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 256)
		conn.Read(buf)
		conn.Write([]byte(body))
	}()

	host, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)
	return host, port
}

func geminiTLSServer(t *testing.T, statusLine string) (string, int) {
	t.Helper()
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "localhost"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		DNSNames:     []string{"localhost"},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &priv.PublicKey, priv)
	require.NoError(t, err)
	cert := tls.Certificate{Certificate: [][]byte{der}, PrivateKey: priv}

	ln, err := tls.Listen("tcp", "127.0.0.1:0", &tls.Config{Certificates: []tls.Certificate{cert}})
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 1024)
		conn.Read(buf)
		conn.Write([]byte(statusLine))
	}()

	host, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)
	return host, port
}

func newFacade(t *testing.T) *Facade {
	store, err := tofu.Open(t.TempDir()+"/tofu.tsv", nil)
	require.NoError(t, err)
	return New(Options{
		GopherCache: cache.New(100, time.Minute),
		GeminiCache: cache.New(100, time.Minute),
		GopherGate:  security.NewGate("", 1024, 256),
		GeminiGate:  security.NewGate("", 1024, 256),
		TOFU:        store,
	})
}

func TestFetchGopherMenuClassification(t *testing.T) {
	host, port := gopherServer(t, "1About\t/about.txt\texample.org\t70\r\n.\r\n")
	f := newFacade(t)

	url := "gopher://" + net.JoinHostPort(host, strconv.Itoa(port)) + "/1/"
	r := f.FetchGopher(context.Background(), url)

	require.Equal(t, result.KindMenu, r.Kind)
	require.Len(t, r.Items, 1)
	assert.Equal(t, "About", r.Items[0].Title)
}

func TestFetchGopherInvalidURLReturnsErrorResult(t *testing.T) {
	f := newFacade(t)
	r := f.FetchGopher(context.Background(), "not-a-url")
	assert.Equal(t, result.KindError, r.Kind)
	require.NotNil(t, r.Error)
}

func TestFetchGopherHonoursCacheOnSecondCall(t *testing.T) {
	host, port := gopherServer(t, "hello world")
	f := newFacade(t)

	url := "gopher://" + net.JoinHostPort(host, strconv.Itoa(port)) + "/0/file.txt"
	first := f.FetchGopher(context.Background(), url)
	require.Equal(t, result.KindText, first.Kind)

	second := f.FetchGopher(context.Background(), url)
	assert.Equal(t, first.Text, second.Text)
}

func TestFetchGeminiSuccessGemtext(t *testing.T) {
	host, port := geminiTLSServer(t, "20 text/gemini\r\n# Title\n=> /link.gmi About\n")
	f := newFacade(t)

	url := "gemini://" + net.JoinHostPort(host, strconv.Itoa(port)) + "/"
	r := f.FetchGemini(context.Background(), url)

	require.Equal(t, result.KindGemtext, r.Kind)
	require.Len(t, r.Links, 1)
}

func TestFetchGeminiInputStatus(t *testing.T) {
	host, port := geminiTLSServer(t, "10 enter a query\r\n")
	f := newFacade(t)

	url := "gemini://" + net.JoinHostPort(host, strconv.Itoa(port)) + "/search"
	r := f.FetchGemini(context.Background(), url)
	assert.Equal(t, result.KindInput, r.Kind)
	assert.Equal(t, "enter a query", r.Prompt)
}

func TestFetchGeminiTemporaryFailureIsErrorResult(t *testing.T) {
	host, port := geminiTLSServer(t, "42 server busy\r\n")
	f := newFacade(t)

	url := "gemini://" + net.JoinHostPort(host, strconv.Itoa(port)) + "/"
	r := f.FetchGemini(context.Background(), url)
	assert.Equal(t, result.KindError, r.Kind)
}

func TestFetchGeminiTranscodesDeclaredLatin1Charset(t *testing.T) {
	// "café" with é as the raw ISO-8859-1 byte 0xE9, invalid UTF-8 on its own.
	host, port := geminiTLSServer(t, "20 text/plain; charset=iso-8859-1\r\ncaf\xe9")
	f := newFacade(t)

	url := "gemini://" + net.JoinHostPort(host, strconv.Itoa(port)) + "/"
	r := f.FetchGemini(context.Background(), url)

	require.Equal(t, result.KindGeminiSuccess, r.Kind)
	assert.Equal(t, "café", r.RawContent)
}

func TestFetchGeminiTranscodesDeclaredCharsetInGemtext(t *testing.T) {
	host, port := geminiTLSServer(t, "20 text/gemini; charset=iso-8859-1\r\n# Caf\xe9\n")
	f := newFacade(t)

	url := "gemini://" + net.JoinHostPort(host, strconv.Itoa(port)) + "/"
	r := f.FetchGemini(context.Background(), url)

	require.Equal(t, result.KindGemtext, r.Kind)
	require.Len(t, r.Lines, 1)
	assert.Equal(t, "Café", r.Lines[0].Text)
}

func TestFetchGeminiHostNotInAllowlistIsRejected(t *testing.T) {
	store, err := tofu.Open(t.TempDir()+"/tofu.tsv", nil)
	require.NoError(t, err)
	f := New(Options{
		GeminiGate: security.NewGate("good.example", 1024, 256),
		TOFU:       store,
	})

	r := f.FetchGemini(context.Background(), "gemini://bad.example/")
	assert.Equal(t, result.KindError, r.Kind)
}
