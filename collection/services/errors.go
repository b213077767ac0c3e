package services

// services should wrap any error that can come from their process
//    e.i. http errors should be wrapped as a TransportError
//    row level problems become RowRejection values, never errors

import (
	"errors"
	"fmt"
)

var (
	// the expected result table is missing entirely which means the source
	// layout changed or returned nothing recognizable, retrying later
	// probably wouldn't work so the run must stop for manual review
	ErrNoResultTable = errors.New("no result table found")
)

// TransportError is any network level failure or non-success status from
// the source endpoint. It is fatal to the run; retry policy lives with the
// caller.
type TransportError struct {
	StatusCode int
	Reason     string
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transport failure: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("transport failure: %d %s", e.StatusCode, e.Reason)
}

func (e *TransportError) Unwrap() error { return e.Err }
