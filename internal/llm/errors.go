package llm

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrorKind classifies a failed generation call.
type ErrorKind int

const (
	// Transient failures (transport error, timeout, non-2xx, malformed body) are retried.
	Transient ErrorKind = iota + 1
	// Exhausted means every attempt failed transiently.
	Exhausted
	// EmptyResponse is a successful call that produced no text. It is not retried.
	EmptyResponse
)

func (k ErrorKind) String() string {
	switch k {
	case Transient:
		return "transient"
	case Exhausted:
		return "exhausted"
	case EmptyResponse:
		return "empty_response"
	default:
		return "unknown"
	}
}

// ClientError is returned by Client.Generate.
type ClientError struct {
	Kind     ErrorKind
	Attempts int
	Err      error
}

func (e *ClientError) Error() string {
	switch e.Kind {
	case Exhausted:
		return fmt.Sprintf("generate: failed after %d attempts: %v", e.Attempts, e.Err)
	case EmptyResponse:
		return "generate: empty response"
	default:
		return fmt.Sprintf("generate: %s: %v", e.Kind, e.Err)
	}
}

func (e *ClientError) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a ClientError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var clientErr *ClientError
	return errors.As(err, &clientErr) && clientErr.Kind == kind
}

type httpStatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

func transient(err error) error {
	return &ClientError{Kind: Transient, Err: err}
}
