package types

import "errors"

// Sentinel errors shared across services and handlers. Services wrap these
// with %w and handlers map them onto HTTP status codes with errors.Is.
var (
	ErrValidation   = errors.New("invalid input")
	ErrUnauthorized = errors.New("authentication required")
	ErrForbidden    = errors.New("insufficient privileges")
	ErrNotFound     = errors.New("resource not found")
	ErrConflict     = errors.New("duplicate resource")

	// ErrInvalidCredentials deliberately maps to 400 (not 401) so login
	// failures are indistinguishable from any other bad login payload.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
