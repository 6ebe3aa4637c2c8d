package client

import "errors"

// Status classifies how a transcription stream ended.
type Status string

const (
	StatusSuccess      Status = "success"
	StatusNetworkError Status = "network-error"
	StatusHTTPError    Status = "status-error"
	StatusParseError   Status = "parse-error"
	StatusInputError   Status = "input-error"
)

// Result describes one finished stream. Lines already handed to the Handler
// stay valid whatever the status.
type Result struct {
	Status  Status
	JobID   string
	Lines   int
	Dropped int
	Chunks  int
	Err     error
}

func (r Result) OK() bool {
	return r.Status == StatusSuccess
}

func classify(err error) Status {
	switch {
	case err == nil:
		return StatusSuccess
	case IsStatusError(err):
		return StatusHTTPError
	case IsNetworkError(err):
		return StatusNetworkError
	case errors.Is(err, ErrEmptyStream):
		return StatusParseError
	default:
		return StatusInputError
	}
}
