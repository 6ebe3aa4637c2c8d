package client

import (
	"errors"
	"fmt"
)

var (
	ErrNoJobID     = errors.New("no job id")
	ErrEmptyStream = errors.New("stream ended without transcript lines or job id")
)

// NetworkError marks a failure to reach the service or to keep reading from it.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	if e == nil || e.Err == nil {
		return "network error"
	}
	if e.Op == "" {
		return e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *NetworkError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// StatusError is returned when the service answers with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("service returned status %d", e.Code)
	}
	return fmt.Sprintf("service returned status %d: %s", e.Code, e.Body)
}

func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

func IsStatusError(err error) bool {
	var se *StatusError
	return errors.As(err, &se)
}
