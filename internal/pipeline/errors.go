package pipeline

import (
	"errors"
	"fmt"
)

// Step failure kinds. Every *UploadError and *DeleteError matches exactly one
// of these through errors.Is.
var (
	ErrCredential = errors.New("upload credential not issued")
	ErrTransfer   = errors.New("transfer failed")
	ErrResolution = errors.New("public url resolution failed")
	ErrPersist    = errors.New("metadata persist failed")
	ErrScan       = errors.New("file rejected by scanner")
)

var (
	ErrBatchInFlight  = errors.New("an upload batch is already in flight")
	ErrEmptyBatch     = errors.New("no files of the expected media type")
	ErrInvalidRequest = errors.New("invalid upload request")
	ErrNotFound       = errors.New("not found")
	ErrAlreadyExists  = errors.New("already exists")
)

// UploadError reports the file that terminated a batch and the step it failed in.
type UploadError struct {
	Kind  error
	Index int
	File  string
	Path  string
	Err   error
}

func (e *UploadError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v: file %d %q", e.Kind, e.Index+1, e.File)
	}
	return fmt.Sprintf("%v: file %d %q: %v", e.Kind, e.Index+1, e.File, e.Err)
}

func (e *UploadError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

type DeleteError struct {
	Kind    error
	AssetID string
	Err     error
}

func (e *DeleteError) Error() string {
	return fmt.Sprintf("%v: asset %s: %v", e.Kind, e.AssetID, e.Err)
}

func (e *DeleteError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}
