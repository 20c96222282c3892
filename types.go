package sessiongate

import (
	"context"
	"time"
)

// Subject is the profile record resolved for an admitted request. It
// deliberately excludes credential secrets and password hashes; providers
// must never populate sensitive data into it.
type Subject struct {
	SubjectID    string
	Identifier   string
	DisplayName  string
	Organization string
}

// SubjectProvider is the interface callers implement to connect the gate to
// their account database. GetSubjectByID must return [ErrSubjectNotFound]
// when no account exists for the id; any other error is treated as a
// backend fault and the request is rejected fail-closed.
type SubjectProvider interface {
	GetSubjectByID(ctx context.Context, subjectID string) (Subject, error)
}

// Admission is the successful outcome of [Gate.Authenticate]. It carries
// the resolved subject plus the verified credential claims so downstream
// handlers never re-parse the bearer string.
type Admission struct {
	SubjectID    string
	Subject      Subject
	CredentialID string
	IssuedAt     time.Time
	ExpiresAt    time.Time
}
