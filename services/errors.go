package services

import "errors"

// Error taxonomy shared by all services. Handlers map these to HTTP
// status codes; services wrap them with context via fmt.Errorf("%w: ...").
var (
	// ErrNotFound: the referenced profile/match/proof/mission does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden: the caller is not a participant, or not an admin for
	// admin-only operations.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidState: the operation is not legal for the entity's current
	// status (e.g. verifying a proof that is not sent).
	ErrInvalidState = errors.New("invalid state")

	// ErrInvariant: the request itself breaks a domain rule (step out of
	// sequence, duplicate recruiting profile, missing reason).
	ErrInvariant = errors.New("invariant violation")
)
