package service

import "errors"

// Error taxonomy surfaced to handlers. Workflow-specific kinds
// (invalid transition, forbidden role, missing comment) come from the
// workflow package; everything is matched with errors.Is.
var (
	// ErrPermissionDenied: the policy matrix refused the operation.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrNotFound: no case with that id (or it was hard-deleted).
	ErrNotFound = errors.New("business case not found")
	// ErrConflict: optimistic concurrency collision; the caller must
	// re-read and retry with fresh state.
	ErrConflict = errors.New("business case was modified concurrently")
	// ErrUnknownField: the requested field is not an editable stage field.
	ErrUnknownField = errors.New("unknown stage field")
	// ErrInvalidPayload: a stage payload failed structural validation.
	ErrInvalidPayload = errors.New("invalid stage payload")
)
