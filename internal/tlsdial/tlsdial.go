// Package tlsdial dials the TLS connections Gemini requests travel over
// (spec.md §4.7), grounded on the teacher's internal/gemini/gemini.go
// GetConn, generalized from its InsecureSkipVerify placeholder into a
// real Trust-On-First-Use check plus scoped client-certificate
// selection.
package tlsdial

import (
	"context"
	"crypto/sha256"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/cameronrye/gopher-mcp-go/internal/clientcert"
	"github.com/cameronrye/gopher-mcp-go/internal/fetcherr"
	"github.com/cameronrye/gopher-mcp-go/internal/tofu"
)

// Dialer opens TOFU-pinned, optionally client-certificate-authenticated
// TLS connections to Gemini servers.
type Dialer struct {
	TOFU        *tofu.Store
	ClientCerts *clientcert.Store
	MinVersion  uint16
	DialTimeout time.Duration
}

// New builds a Dialer. minVersion should be tls.VersionTLS12 or
// tls.VersionTLS13; a zero value defaults to TLS 1.2.
func New(tofuStore *tofu.Store, certStore *clientcert.Store, minVersion uint16) *Dialer {
	if minVersion == 0 {
		minVersion = tls.VersionTLS12
	}
	return &Dialer{TOFU: tofuStore, ClientCerts: certStore, MinVersion: minVersion, DialTimeout: 10 * time.Second}
}

// Fingerprint returns the hex-encoded SHA-256 digest of a DER-encoded
// certificate, the binding spec.md §4.5 pins against.
func Fingerprint(der []byte) string {
	sum := sha256.Sum256(der)
	return fmt.Sprintf("%x", sum)
}

// Dial opens a TLS connection to host:port, with SNI set to host. path
// is used only to select an eligible client certificate by scope; it is
// never sent as part of the handshake. The leaf certificate is checked
// against the TOFU store from tls.Config.VerifyConnection, that is inside
// the handshake rather than after it completes; a Mismatch or Expired
// outcome aborts the handshake, so no application data is exchanged.
func (d *Dialer) Dial(ctx context.Context, host string, port int, path string) (*tls.Conn, error) {
	addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))

	var verifyErr error
	cfg := &tls.Config{
		ServerName:         host,
		MinVersion:         d.MinVersion,
		InsecureSkipVerify: true, // we verify via TOFU below, not a CA chain
		VerifyConnection: func(cs tls.ConnectionState) error {
			if len(cs.PeerCertificates) == 0 {
				verifyErr = fetcherr.New(fetcherr.TLSError, "server presented no certificate")
				return verifyErr
			}
			leaf := cs.PeerCertificates[0]
			if time.Now().After(leaf.NotAfter) {
				verifyErr = fetcherr.New(fetcherr.CertificateExpired, "server certificate has expired")
				return verifyErr
			}

			fp := Fingerprint(leaf.Raw)
			switch d.TOFU.Check(host, port, fp) {
			case tofu.Mismatch:
				verifyErr = fetcherr.New(fetcherr.CertificateMismatch,
					"certificate fingerprint does not match the pinned value for "+host)
				return verifyErr
			case tofu.Expired:
				verifyErr = fetcherr.New(fetcherr.CertificateExpired, "pinned certificate entry has expired")
				return verifyErr
			case tofu.TrustedNew, tofu.TrustedMatch:
				var notAfter *time.Time
				na := leaf.NotAfter
				notAfter = &na
				if err := d.TOFU.Remember(host, port, fp, notAfter); err != nil {
					verifyErr = fetcherr.Wrap(fetcherr.TLSError, "recording trusted certificate", err)
					return verifyErr
				}
				return nil
			default:
				verifyErr = fetcherr.New(fetcherr.TLSError, "unrecognised trust outcome")
				return verifyErr
			}
		},
	}

	if d.ClientCerts != nil {
		if entry, ok := d.ClientCerts.Select(host, port, path); ok {
			cert, err := d.ClientCerts.Load(entry)
			if err != nil {
				return nil, fetcherr.Wrap(fetcherr.TLSError, "loading client certificate", err)
			}
			cfg.Certificates = []tls.Certificate{cert}
		}
	}

	dialer := &net.Dialer{Timeout: d.DialTimeout}
	rawConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fetcherr.Wrap(fetcherr.NetworkError, "connecting to "+addr, err)
	}

	conn := tls.Client(rawConn, cfg)
	if err := conn.HandshakeContext(ctx); err != nil {
		conn.Close()
		if verifyErr != nil {
			return nil, verifyErr
		}
		return nil, fetcherr.Wrap(fetcherr.TLSError, "TLS handshake with "+addr, err)
	}

	return conn, nil
}
