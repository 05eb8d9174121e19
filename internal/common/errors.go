// Package common defines the sentinel errors shared across the store,
// pipeline and handler layers. Callers match them with errors.Is.
package common

import "errors"

var (
	// ErrNotFound is returned by store reads when no record has the given id.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned when a submitted question is empty.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDecode is returned when uploaded bytes are not a recognizable image.
	ErrDecode = errors.New("image decode failed")

	// ErrInference is returned when the remote inference call cannot complete.
	ErrInference = errors.New("inference failed")
)
