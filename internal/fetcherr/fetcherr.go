// Package fetcherr defines the error taxonomy surfaced by the fetch façade.
package fetcherr

import "fmt"

// Code identifies the category of a fetch failure. Every ErrorResult in
// internal/result carries one of these via the error it wraps.
type Code string

const (
	InvalidURL         Code = "InvalidURL"
	SecurityViolation  Code = "SecurityViolation"
	Timeout            Code = "Timeout"
	NetworkError       Code = "NetworkError"
	TLSError           Code = "TLSError"
	CertificateMismatch Code = "CertificateMismatch"
	CertificateExpired  Code = "CertificateExpired"
	ProtocolError      Code = "ProtocolError"
	ResponseTooLarge   Code = "ResponseTooLarge"
	TooManyRedirects   Code = "TooManyRedirects"
	FetchError         Code = "FetchError"
)

// Error is the error type every core operation wraps its failures in.
// It is never thrown to a caller of the façade — the façade recovers it
// into an ErrorResult — but it is used internally and by tests via
// errors.As/errors.Is.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same Code, so that
// errors.Is(err, fetcherr.New(fetcherr.InvalidURL, "")) matches on the
// code alone, whatever the message.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == other.Code
}
