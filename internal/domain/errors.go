package domain

import "errors"

// Sentinel errors for domain operations
var (
	// ErrNotBound indicates a reload was requested before a surface factory was bound
	ErrNotBound = errors.New("no content surface bound")

	// ErrEndpointRejected indicates the endpoint is not https or not on the allow-list
	ErrEndpointRejected = errors.New("endpoint is not an allowed secure host")

	// ErrInvalidPayload indicates a game data payload could not be parsed
	ErrInvalidPayload = errors.New("invalid game data payload")

	// ErrStoreClosed indicates the preference store was used after Close
	ErrStoreClosed = errors.New("preference store is closed")
)
