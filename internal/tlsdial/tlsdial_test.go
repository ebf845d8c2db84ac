package tlsdial

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

	"github.com/stretchr/testify/require"

	"github.com/cameronrye/gopher-mcp-go/internal/clientcert"
	"github.com/cameronrye/gopher-mcp-go/internal/tofu"
)

// selfSignedServer starts a TLS listener on loopback presenting a fresh
// self-signed certificate, and returns its host, port, and a stop func.
func selfSignedServer(t *testing.T) (string, int, func()) {
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

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			_ = conn.(*tls.Conn).Handshake()
			conn.Close()
		}
	}()

	host, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	return host, port, func() { ln.Close() }
}

func TestDialTrustsNewCertificateAndRemembersIt(t *testing.T) {
	host, port, stop := selfSignedServer(t)
	defer stop()

	store, err := tofu.Open(t.TempDir()+"/tofu.tsv", nil)
	require.NoError(t, err)

	d := New(store, nil, 0)
	conn, err := d.Dial(context.Background(), host, port, "/")
	require.NoError(t, err)
	conn.Close()

	_, ok := store.Lookup(host, port)
	require.True(t, ok, "first connection should pin the certificate")
}

func TestDialRejectsMismatchedCertificate(t *testing.T) {
	host, port, stop := selfSignedServer(t)
	defer stop()

	store, err := tofu.Open(t.TempDir()+"/tofu.tsv", nil)
	require.NoError(t, err)
	require.NoError(t, store.Remember(host, port, "0000000000000000000000000000000000000000000000000000000000000000", nil))

	d := New(store, nil, 0)
	_, err = d.Dial(context.Background(), host, port, "/")
	require.Error(t, err)
}

func TestDialWithNoClientCertStoreSucceeds(t *testing.T) {
	host, port, stop := selfSignedServer(t)
	defer stop()

	store, err := tofu.Open(t.TempDir()+"/tofu.tsv", nil)
	require.NoError(t, err)

	certs, err := clientcert.Open(t.TempDir())
	require.NoError(t, err)

	d := New(store, certs, 0)
	conn, err := d.Dial(context.Background(), host, port, "/private")
	require.NoError(t, err)
	conn.Close()
}
