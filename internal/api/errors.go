package api

import (
	"errors"
	"fmt"
	"net/http"
)

// NetworkError means no response was received (connection refused, DNS,
// timeout, cancelled context).
type NetworkError struct {
	Method string
	Path   string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error on %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ServerError is a non-2xx response. Message is the backend's "message"
// field when present, otherwise the raw body.
type ServerError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server error (%d) on %s %s", e.Status, e.Method, e.Path)
	}
	return fmt.Sprintf("server error (%d) on %s %s: %s", e.Status, e.Method, e.Path, e.Message)
}

// DecodeError is a 2xx response whose body does not match the expected shape.
type DecodeError struct {
	Method string
	Path   string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding response from %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsNetworkError reports whether err (or any error in its chain) is a NetworkError.
func IsNetworkError(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}

// IsServerError reports whether err (or any error in its chain) is a ServerError.
func IsServerError(err error) bool {
	var srvErr *ServerError
	return errors.As(err, &srvErr)
}

// IsDecodeError reports whether err (or any error in its chain) is a DecodeError.
func IsDecodeError(err error) bool {
	var decErr *DecodeError
	return errors.As(err, &decErr)
}

// IsUnauthorized reports whether err is a 401 or 403 from the backend.
func IsUnauthorized(err error) bool {
	var srvErr *ServerError
	if !errors.As(err, &srvErr) {
		return false
	}
	return srvErr.Status == http.StatusUnauthorized || srvErr.Status == http.StatusForbidden
}

// Message returns the text to show a user for err.
func Message(err error) string {
	var srvErr *ServerError
	if errors.As(err, &srvErr) && srvErr.Message != "" {
		return srvErr.Message
	}
	if IsNetworkError(err) {
		return "backend unreachable"
	}
	return err.Error()
}
