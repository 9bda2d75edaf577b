package services

import (
	"errors"
	"fmt"
)

var (
	ErrFormNotOpen = errors.New("form is not open")
	// ErrFormClosed is returned to a submission whose dialog was closed or reopened while the write ran.
	ErrFormClosed = errors.New("form was closed during submission")

	errSubmissionAborted = errors.New("submission aborted before its result was saved")
)

// TransportError wraps any failure of the single store write of a submission.
type TransportError struct {
	Variant string
	Table   string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("submit %s form into %q: %v", e.Variant, e.Table, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
