package service

import "errors"

var (
	// ErrInvalidSignature rejects a creation request whose signature does not match.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrMalformedRequest rejects a creation request with missing or unusable fields.
	ErrMalformedRequest = errors.New("malformed request")

	// ErrLinkNotFound covers unknown, expired and unreadable links alike.
	ErrLinkNotFound = errors.New("link expired or not found")

	// ErrStoreUnavailable means the link store could not be reached; callers may retry.
	ErrStoreUnavailable = errors.New("link store unavailable")
)
