package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")

	// ErrInvalidVerification is the single signal for any failed code or
	// token check: absent, expired, or mismatched. Flows must not tell the
	// caller which of those it was.
	ErrInvalidVerification = errors.New("invalid or expired verification")
)
