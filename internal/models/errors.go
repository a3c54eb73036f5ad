package models

import "errors"

// Domain error taxonomy. Handlers map these to HTTP status codes with
// errors.Is; everything else is surfaced as an opaque internal failure.
var (
	ErrValidation           = errors.New("validation failed")
	ErrDuplicateApplication = errors.New("already applied to this position")
	ErrJobClosed            = errors.New("job is no longer accepting applications")
	ErrNotFound             = errors.New("not found")
	ErrNotAuthorized        = errors.New("not authorized")
	ErrNotReadyForScoring   = errors.New("applicant is not ready for scoring")
	ErrConflict             = errors.New("conflicting concurrent update")
)
