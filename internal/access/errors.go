package access

import "errors"

// Sentinel error kinds surfaced by the engine and the lifecycle services.
// Callers classify failures with errors.Is; the HTTP layer maps each kind to
// a response code.
var (
	// ErrForbidden means the caller lacks the specific right the operation
	// requires. Lookups of missing memberships/permissions on mutation
	// paths also surface as ErrForbidden so existence is not revealed.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidRequest means the input is structurally disallowed
	// (e.g. OWNER in a member grant, zero or two owners on update).
	ErrInvalidRequest = errors.New("invalid request")

	// ErrNotFound means a referenced group does not exist on a path where
	// revealing existence is acceptable.
	ErrNotFound = errors.New("not found")

	// ErrConflict means the group was modified concurrently; the caller
	// should re-read and retry.
	ErrConflict = errors.New("version conflict")
)
