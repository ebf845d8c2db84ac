// Package geminiclient speaks the wire half of the Gemini protocol
// (spec.md §4.9), grounded on DoRequest/GetResponse in the teacher's
// internal/gemini/gemini.go, generalized so a single call performs one
// hop only — the fetch façade, not this package, re-runs the pipeline on
// a redirect (spec.md §4.9 "Redirect handling (in fetch façade)").
package geminiclient

import (
	"bufio"
	"context"
	"io"
	"net"
	"strconv"
	"strings"

	"github.com/cameronrye/gopher-mcp-go/internal/fetcherr"
	"github.com/cameronrye/gopher-mcp-go/internal/tlsdial"
	"github.com/cameronrye/gopher-mcp-go/internal/urlcodec"
)

// StatusClass buckets a two-digit Gemini status code by its leading digit.
type StatusClass int

const (
	ClassInput             StatusClass = 1
	ClassSuccess           StatusClass = 2
	ClassRedirect          StatusClass = 3
	ClassTemporaryFailure  StatusClass = 4
	ClassPermanentFailure  StatusClass = 5
	ClassCertificateNeeded StatusClass = 6
)

// Response is one raw Gemini response: status code, META line, and body
// (only populated for a class-2 response).
type Response struct {
	Status int
	Meta   string
	Body   []byte
}

// Class returns the status class this response belongs to, or 0 if the
// leading digit is not one of the defined classes.
func (r Response) Class() StatusClass {
	switch r.Status / 10 {
	case 1:
		return ClassInput
	case 2:
		return ClassSuccess
	case 3:
		return ClassRedirect
	case 4:
		return ClassTemporaryFailure
	case 5:
		return ClassPermanentFailure
	case 6:
		return ClassCertificateNeeded
	default:
		return 0
	}
}

// Fetch performs exactly one Gemini request/response round trip against
// u: dial, TOFU-verify, send the request line, read the status line, and
// read the body only when the status class is 2x. maxBytes caps the body
// read; exceeding it is a hard failure, matching gopherclient's policy.
func Fetch(ctx context.Context, dialer *tlsdial.Dialer, u *urlcodec.GeminiURL, maxBytes int) (*Response, error) {
	conn, err := dialer.Dial(ctx, u.Host, u.Port, u.Path)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	requestURL := urlcodec.FormatGeminiURL(u)
	if _, err := conn.Write([]byte(requestURL + "\r\n")); err != nil {
		return nil, fetcherr.Wrap(fetcherr.NetworkError, "sending gemini request", err)
	}

	reader := bufio.NewReader(conn)
	headerLine, err := reader.ReadString('\n')
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return nil, fetcherr.Wrap(fetcherr.Timeout, "reading gemini status line", err)
		}
		return nil, fetcherr.Wrap(fetcherr.ProtocolError, "reading gemini status line", err)
	}
	headerLine = strings.TrimRight(headerLine, "\r\n")

	if len(headerLine) < 2 {
		return nil, fetcherr.New(fetcherr.ProtocolError, "status line too short: "+headerLine)
	}
	status, err := strconv.Atoi(headerLine[:2])
	if err != nil {
		return nil, fetcherr.New(fetcherr.ProtocolError, "non-numeric status code: "+headerLine)
	}

	meta := ""
	if len(headerLine) > 2 {
		meta = strings.TrimPrefix(headerLine[2:], " ")
	}

	resp := &Response{Status: status, Meta: meta}

	if resp.Class() == 0 {
		return nil, fetcherr.New(fetcherr.ProtocolError, "unrecognised status class: "+headerLine)
	}

	if resp.Class() != ClassSuccess {
		return resp, nil
	}

	limited := io.LimitReader(reader, int64(maxBytes)+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, fetcherr.Wrap(fetcherr.NetworkError, "reading gemini body", err)
	}
	if len(body) > maxBytes {
		return nil, fetcherr.New(fetcherr.ResponseTooLarge, "gemini response exceeds configured maximum size")
	}
	resp.Body = body

	return resp, nil
}
