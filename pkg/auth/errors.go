package auth

import (
	"errors"
	"fmt"
)

// ErrMissingAssertion is returned when a backend that needs a caller-supplied
// token is invoked without one.
var ErrMissingAssertion = errors.New("no user token supplied")

// ErrNoToken is returned when a flow completes without a usable access token.
var ErrNoToken = errors.New("flow completed without an access token")

// AuthError reports a failure to obtain a bearer token. It is always surfaced
// to the caller of Acquire.
type AuthError struct {
	Mode Mode
	Op   string
	Err  error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s authentication: %s: %v", e.Mode, e.Op, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// ConfigurationError reports startup configuration that cannot produce a
// working backend. It is fatal: the process exits before serving traffic.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration for %s: %s", e.Field, e.Reason)
}

// IsAuthError reports whether err is, or wraps, an *AuthError.
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// IsConfigurationError reports whether err is, or wraps, a *ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

func authErr(mode Mode, op string, err error) *AuthError {
	return &AuthError{Mode: mode, Op: op, Err: err}
}
