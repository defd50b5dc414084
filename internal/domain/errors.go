package domain

import "errors"

var (
	// ErrNotFound is returned when a referenced App, Connect or Field does not exist
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned for duplicate pairings and fields already mapped
	ErrConflict = errors.New("conflict")
	// ErrBadRequest is returned when a request is valid but not allowed in the current state
	ErrBadRequest = errors.New("bad request")
	// ErrUnauthorized is returned when third-party credentials are invalid after a refresh attempt
	ErrUnauthorized = errors.New("unauthorized")
	// ErrUpstreamRejected is returned when a third-party API answers with 4xx/5xx
	ErrUpstreamRejected = errors.New("upstream rejected")
	// ErrNetwork is returned when a third-party API cannot be reached
	ErrNetwork = errors.New("network error")
)
