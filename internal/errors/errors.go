package errors

import (
	"errors"
	"fmt"
)

// Common error types shared by the console packages
var (
	// Credential errors
	ErrCredentialNotFound = errors.New("credential not found")

	// Session errors
	ErrNotAuthenticated = errors.New("not authenticated")

	// Transport errors
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrUnreachable     = errors.New("backend unreachable")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
