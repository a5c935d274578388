package apiclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	errs "github.com/jrsteele09/merchant-console/internal/errors"
)

var (
	// ErrUnauthenticated matches failures caused by a missing, invalid or expired token
	ErrUnauthenticated = errs.ErrUnauthenticated
	// ErrUnreachable matches requests that never completed
	ErrUnreachable = errs.ErrUnreachable
)

// maxErrorBody bounds how much of an error response is read
const maxErrorBody = 64 << 10

type ErrorKind int

const (
	// KindUnexpected is any failure without a structured detail
	KindUnexpected ErrorKind = iota
	// KindUnauthenticated is a 401 from the backend
	KindUnauthenticated
	// KindValidation is a non-2xx response carrying a detail message
	KindValidation
	// KindNetwork is a request that never completed
	KindNetwork
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindValidation:
		return "validation"
	case KindNetwork:
		return "network"
	default:
		return "unexpected"
	}
}

// Error is the uniform failure value of the pipeline.
type Error struct {
	Kind       ErrorKind
	StatusCode int    // 0 when no response was received
	Detail     string // backend "detail" message, empty when absent
	Err        error  // underlying transport or decode error
}

func (e *Error) Error() string {
	switch {
	case e.Detail != "" && e.StatusCode != 0:
		return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Detail)
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("api error %d", e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("api %s error: %s", e.Kind, e.Err)
	default:
		return fmt.Sprintf("api %s error", e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match ErrUnauthenticated and ErrUnreachable by kind
func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnauthenticated:
		return e.Kind == KindUnauthenticated
	case ErrUnreachable:
		return e.Kind == KindNetwork
	}
	return false
}

// Message returns the backend detail carried by err, or fallback when there is none.
func Message(err error, fallback string) string {
	var apiErr *Error
	if errs.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return fallback
}

// StatusCode returns the HTTP status carried by err, 0 when there is none.
func StatusCode(err error) int {
	var apiErr *Error
	if errs.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

func newStatusError(resp *http.Response) *Error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	e := &Error{
		StatusCode: resp.StatusCode,
		Detail:     parseDetail(data),
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		e.Kind = KindUnauthenticated
	case e.Detail != "":
		e.Kind = KindValidation
	default:
		e.Kind = KindUnexpected
	}
	return e
}

// parseDetail extracts "detail" from a JSON error body. FastAPI sends either
// a string or, for request validation, a list of objects with a "msg" field.
func parseDetail(data []byte) string {
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(data, &body); err != nil || len(body.Detail) == 0 {
		return ""
	}

	var detail string
	if err := json.Unmarshal(body.Detail, &detail); err == nil {
		return strings.TrimSpace(detail)
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(body.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, item := range items {
			if item.Msg != "" {
				msgs = append(msgs, item.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}
