// Package result defines the tagged Result sum returned by the fetch
// façade (spec.md §3, §9 "Tagged results over inheritance"), translated
// from the Pydantic model family in
// original_source/src/gopher_mcp/models.py into a Go discriminated union:
// one Kind tag plus the fields of every variant in a single struct, of
// which only those belonging to Kind are set.
package result

import (
	"time"

	"github.com/google/uuid"
)

// Kind discriminates which variant of Result is populated.
type Kind string

const (
	KindMenu          Kind = "menu"
	KindText          Kind = "text"
	KindBinary        Kind = "binary"
	KindGemtext       Kind = "gemtext"
	KindGeminiSuccess Kind = "success"
	KindInput         Kind = "input"
	KindRedirect      Kind = "redirect"
	KindCertificate   Kind = "certificate"
	KindError         Kind = "error"
)

// RequestInfo is the envelope every Result variant carries.
type RequestInfo struct {
	URL       string    `json:"url"`
	Timestamp time.Time `json:"timestamp"`
	// CorrelationID is log-only; it is never required by callers and its
	// json:"-" tag keeps it out of the MCP JSON payload.
	CorrelationID string `json:"-"`
}

func newRequestInfo(url string) RequestInfo {
	return RequestInfo{URL: url, Timestamp: time.Now().UTC(), CorrelationID: uuid.NewString()}
}

// MenuItem mirrors internal/menu.Item for JSON purposes.
type MenuItem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Selector string `json:"selector"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	NextURL  string `json:"nextUrl"`
}

// GemtextLine mirrors internal/gemtext.Line for JSON purposes.
type GemtextLine struct {
	Kind     string `json:"kind"`
	Text     string `json:"text,omitempty"`
	URL      string `json:"url,omitempty"`
	LinkText string `json:"linkText,omitempty"`
	AltText  string `json:"altText,omitempty"`
}

// GemtextLink mirrors the deduplicated link projection.
type GemtextLink struct {
	URL  string `json:"url"`
	Text string `json:"text,omitempty"`
}

// ErrorInfo is the error payload of an ErrorResult.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Result is the tagged sum of every possible fetch outcome.
type Result struct {
	Kind        Kind        `json:"kind"`
	RequestInfo RequestInfo `json:"requestInfo"`

	// KindMenu
	Items []MenuItem `json:"items,omitempty"`

	// KindText
	Charset string `json:"charset,omitempty"`
	Bytes   int    `json:"bytes,omitempty"`
	Text    string `json:"text,omitempty"`

	// KindBinary
	MIMEType string `json:"mimeType,omitempty"`
	Note     string `json:"note,omitempty"`

	// KindGemtext
	Lines []GemtextLine `json:"lines,omitempty"`
	Links []GemtextLink `json:"links,omitempty"`

	// KindGeminiSuccess (non-gemtext 20 response)
	RawContent string `json:"rawContent,omitempty"`

	// KindInput
	Prompt    string `json:"prompt,omitempty"`
	Sensitive bool   `json:"sensitive,omitempty"`

	// KindRedirect
	NewURL    string `json:"newUrl,omitempty"`
	Permanent bool   `json:"permanent,omitempty"`

	// KindCertificate
	Required bool   `json:"required,omitempty"`
	Message  string `json:"message,omitempty"`

	// KindError
	Error *ErrorInfo `json:"error,omitempty"`
}

// Cacheable reports whether this Result may be inserted into the
// response cache (spec.md §4.10: success only, never errors, inputs,
// redirects, or certificate prompts).
func (r Result) Cacheable() bool {
	switch r.Kind {
	case KindMenu, KindText, KindBinary, KindGemtext, KindGeminiSuccess:
		return true
	default:
		return false
	}
}

func Menu(url string, items []MenuItem) Result {
	return Result{Kind: KindMenu, RequestInfo: newRequestInfo(url), Items: items}
}

func Text(url, charset string, raw []byte, text string) Result {
	return Result{Kind: KindText, RequestInfo: newRequestInfo(url), Charset: charset, Bytes: len(raw), Text: text}
}

func Binary(url string, size int, mimeType string) Result {
	return Result{
		Kind:     KindBinary,
		RequestInfo: newRequestInfo(url),
		Bytes:    size,
		MIMEType: mimeType,
		Note:     "Binary content not returned to preserve context",
	}
}

func Gemtext(url string, lines []GemtextLine, links []GemtextLink) Result {
	return Result{Kind: KindGemtext, RequestInfo: newRequestInfo(url), Lines: lines, Links: links}
}

func GeminiSuccess(url, mimeType, content string) Result {
	return Result{Kind: KindGeminiSuccess, RequestInfo: newRequestInfo(url), MIMEType: mimeType, RawContent: content}
}

func Input(url, prompt string, sensitive bool) Result {
	return Result{Kind: KindInput, RequestInfo: newRequestInfo(url), Prompt: prompt, Sensitive: sensitive}
}

func Redirect(url, newURL string, permanent bool) Result {
	return Result{Kind: KindRedirect, RequestInfo: newRequestInfo(url), NewURL: newURL, Permanent: permanent}
}

func Certificate(url string, required bool, message string) Result {
	return Result{Kind: KindCertificate, RequestInfo: newRequestInfo(url), Required: required, Message: message}
}

func ErrorOf(url, code, message string) Result {
	return Result{Kind: KindError, RequestInfo: newRequestInfo(url), Error: &ErrorInfo{Code: code, Message: message}}
}
