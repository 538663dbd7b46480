package assets

import (
	"errors"
	"fmt"
)

var (
	ErrManifestLoaded    = errors.New("assets: manifest already loaded")
	ErrManifestNotLoaded = errors.New("assets: manifest not loaded")
	ErrResourceNotFound  = errors.New("assets: resource not found")
	ErrIntegrity         = errors.New("assets: content does not match manifest")
)

// ManifestLoadError reports why the manifest document could not be loaded.
// Status is the transport status code, or 0 when no response was received.
type ManifestLoadError struct {
	Status int
	Reason string
	Err    error
}

func (e *ManifestLoadError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("assets: load manifest: %d %s", e.Status, e.Reason)
	}
	return fmt.Sprintf("assets: load manifest: %s", e.Reason)
}

func (e *ManifestLoadError) Unwrap() error { return e.Err }

// ResourceNotFoundError is returned when a fetch finds nothing at the resolved
// location.
type ResourceNotFoundError struct {
	Location Location
}

func (e *ResourceNotFoundError) Error() string {
	if e.Location.Hashed {
		return fmt.Sprintf("assets: %s (object %s) not found", e.Location.Logical, e.Location.Entry.Hash)
	}
	return fmt.Sprintf("assets: %s not found", e.Location.Logical)
}

func (e *ResourceNotFoundError) Is(target error) bool { return target == ErrResourceNotFound }

// TransportError wraps any other failure to fetch a resolved location.
type TransportError struct {
	Location Location
	Status   int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("assets: fetch %s (%s): %v", e.Location.Logical, e.Location.URL(), e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusError is a non-success response from a Transport.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %s", e.Status)
}
