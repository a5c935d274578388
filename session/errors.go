package session

import (
	"errors"
	"fmt"

	errs "github.com/jrsteele09/merchant-console/internal/errors"
)

// Operation names carried by Failure
const (
	OpCheck         = "check"
	OpLogin         = "login"
	OpRegister      = "register"
	OpRefreshAPIKey = "refresh-api-key"
	OpDeactivate    = "deactivate"
)

// Messages used when the backend gives no detail
const (
	fallbackCheck      = "Failed to get profile"
	fallbackLogin      = "Login failed"
	fallbackRegister   = "Registration failed"
	fallbackRefreshKey = "Failed to refresh API key"
	fallbackDeactivate = "Failed to deactivate account"
)

var (
	// ErrNotAuthenticated is the precondition failure of operations that need an identity
	ErrNotAuthenticated = errs.ErrNotAuthenticated

	// ErrSuperseded means a logout or invalidation landed while the operation was in flight
	ErrSuperseded = errors.New("session superseded")
)

// Failure is the outcome of a session operation that did not succeed.
// Message is fit for display; Err keeps the cause for errors.Is/As.
type Failure struct {
	Op      string
	Message string
	Err     error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Op, f.Message)
}

func (f *Failure) Unwrap() error {
	return f.Err
}
