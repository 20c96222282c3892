package ledger

import (
	"crypto/sha256"
	"time"
)

// Reason is the closed set of causes for voiding a credential. The zero
// value is invalid so a missing reason can never decode as a real one.
type Reason uint8

const (
	// ReasonLogout voids the single credential presented at logout.
	ReasonLogout Reason = iota + 1
	// ReasonPasswordChange voids every credential issued before the change.
	ReasonPasswordChange
	// ReasonAdminRevoke voids a credential by administrative action.
	ReasonAdminRevoke
)

// Valid reports whether r is a member of the closed reason set.
func (r Reason) Valid() bool {
	switch r {
	case ReasonLogout, ReasonPasswordChange, ReasonAdminRevoke:
		return true
	}
	return false
}

// String returns the stable wire name of the reason.
func (r Reason) String() string {
	switch r {
	case ReasonLogout:
		return "logout"
	case ReasonPasswordChange:
		return "password_change"
	case ReasonAdminRevoke:
		return "admin_revoke"
	default:
		return "unknown"
	}
}

// Entry is a single revocation record. ExpiresAt is always copied from the
// revoked credential's own expiry, never chosen independently: the entry
// becomes safely prunable exactly when the credential would have expired
// anyway.
type Entry struct {
	EntryID        string
	CredentialHash [32]byte
	SubjectID      string
	Reason         Reason
	CreatedAt      int64
	ExpiresAt      int64
}

// LookupResult carries the two ledger answers the per-request gate needs,
// fetched in a single round-trip: the exact-match revocation entry (nil if
// the credential is not listed) and the subject's password-change cutoff.
type LookupResult struct {
	Entry     *Entry
	Cutoff    time.Time
	HasCutoff bool
}

// CredentialHash derives the ledger key material for a credential string.
// Hashing keeps keys fixed-size and avoids storing bearer credentials
// verbatim in Redis.
func CredentialHash(credential string) [32]byte {
	return sha256.Sum256([]byte(credential))
}
