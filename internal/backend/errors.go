package backend

import (
	"errors"
	"fmt"
)

// ErrNotSet is returned by every Backend-shaped operation invoked without a
// backend attached (see result.AsyncResult).
var ErrNotSet = errors.New("backend: not set")

// ErrDocumentNotFound is returned by GetTaskMeta (and its derived
// projections) when no record exists for a task id.
var ErrDocumentNotFound = errors.New("backend: document not found")

// SerializationError wraps a failure to encode or decode a ResultMetadata
// payload.
type SerializationError struct{ Err error }

func (e *SerializationError) Error() string { return fmt.Sprintf("backend: serialization: %v", e.Err) }
func (e *SerializationError) Unwrap() error { return e.Err }

// TransportError wraps a network or protocol failure talking to the
// underlying store.
type TransportError struct{ Err error }

func (e *TransportError) Error() string { return fmt.Sprintf("backend: transport: %v", e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }
