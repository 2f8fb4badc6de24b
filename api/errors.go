package api

import "errors"

var (
	// ErrNotReady means the registry binding for the current provider is not
	// loaded. Data is unavailable, not broken; callers should treat this as
	// an empty state and retry after the next account change.
	ErrNotReady = errors.New("registry binding not loaded")

	// ErrNoAccount means no chain account is currently active.
	ErrNoAccount = errors.New("no active account")

	// ErrNotFound means an entity id was never assigned or its record was
	// removed. During enumeration this is an expected skip, not a failure.
	ErrNotFound = errors.New("entity not found")
)
