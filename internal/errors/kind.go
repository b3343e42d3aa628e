package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies an operation failure so callers can distinguish a benign
// skip from something that needs attention without parsing log messages.
type Kind string

const (
	// KindRemote marks a non-2xx response from the remote graph API.
	KindRemote Kind = "remote"
	// KindMalformed marks unparsable data: resource locators, timestamps,
	// or rule documents.
	KindMalformed Kind = "malformed"
	// KindNotFound marks a lookup miss, e.g. a target list name that does
	// not resolve to an identifier.
	KindNotFound Kind = "not_found"
	// KindConfig marks missing identity or service configuration.
	KindConfig Kind = "config"
)

// OpError couples an operation name and failure kind with the underlying error.
type OpError struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *OpError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// E builds an OpError.
func E(op string, kind Kind, err error) error {
	return &OpError{Op: op, Kind: kind, Err: err}
}

// KindOf extracts the failure kind from an error chain.
// Returns the empty Kind for errors that carry no classification.
func KindOf(err error) Kind {
	var opErr *OpError
	if stderrors.As(err, &opErr) {
		return opErr.Kind
	}
	return ""
}
