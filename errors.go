package sessiongate

import "errors"

var (
	// ErrGateNotReady is returned when a Gate method is called on a nil or
	// unbuilt gate.
	ErrGateNotReady = errors.New("gate not initialized")
	// ErrSubjectNotFound must be returned by [SubjectProvider.GetSubjectByID]
	// when no account exists for the requested id.
	ErrSubjectNotFound = errors.New("subject not found")
	// ErrInvalidReason is returned when a revocation is requested with a
	// reason outside the closed set.
	ErrInvalidReason = errors.New("invalid revocation reason")
)
