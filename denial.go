package sessiongate

import (
	"errors"
	"net/http"

	"github.com/hexlago/sessiongate/ledger"
)

// RejectionKind is the closed set of terminal rejection states of the
// per-request authentication state machine. The zero value is invalid.
type RejectionKind uint8

const (
	// RejectNoCredential: the request carried no bearer credential.
	RejectNoCredential RejectionKind = iota + 1
	// RejectMalformedCredential: the credential is structurally invalid or
	// its signature does not verify.
	RejectMalformedCredential
	// RejectExpiredCredential: the credential is correctly signed but past
	// its expiry.
	RejectExpiredCredential
	// RejectRevoked: the exact credential is listed in the revocation
	// ledger; [Denial.Reason] carries the cause.
	RejectRevoked
	// RejectSupersededByPasswordChange: the credential was issued before the
	// subject's password-change cutoff.
	RejectSupersededByPasswordChange
	// RejectUnknownSubject: the credential names a subject with no account.
	RejectUnknownSubject
	// RejectNotAuthorized: the subject authenticated but failed the
	// membership predicate. The only kind mapped to 403 rather than 401.
	RejectNotAuthorized
	// RejectStoreUnavailable: the ledger could not be queried. Mapped to
	// 401, not 500: an unverifiable credential is treated as invalid.
	RejectStoreUnavailable
)

// String returns the stable wire name of the rejection kind.
func (k RejectionKind) String() string {
	switch k {
	case RejectNoCredential:
		return "no_credential"
	case RejectMalformedCredential:
		return "malformed_credential"
	case RejectExpiredCredential:
		return "expired_credential"
	case RejectRevoked:
		return "revoked"
	case RejectSupersededByPasswordChange:
		return "superseded_by_password_change"
	case RejectUnknownSubject:
		return "unknown_subject"
	case RejectNotAuthorized:
		return "not_authorized"
	case RejectStoreUnavailable:
		return "store_unavailable"
	default:
		return "unknown"
	}
}

// Denial is the typed rejection outcome of [Gate.Authenticate]. Every
// expected authentication failure surfaces as a *Denial; the gate never
// leaks raw codec or store errors to the HTTP boundary.
type Denial struct {
	Kind RejectionKind
	// Reason is set only when Kind is [RejectRevoked].
	Reason ledger.Reason
}

// Error implements the error interface.
func (d *Denial) Error() string {
	if d.Kind == RejectRevoked {
		return "authentication denied: " + d.Kind.String() + " (" + d.Reason.String() + ")"
	}
	return "authentication denied: " + d.Kind.String()
}

// Message returns the user-facing text for the denial, differentiated by
// revocation reason. Every kind and reason is mapped explicitly so an
// unmapped value can never fall through to a generic message silently.
func (d *Denial) Message() string {
	switch d.Kind {
	case RejectNoCredential:
		return "authentication required"
	case RejectMalformedCredential:
		return "invalid session, please log in again"
	case RejectExpiredCredential:
		return "session expired, please log in again"
	case RejectRevoked:
		switch d.Reason {
		case ledger.ReasonLogout:
			return "session ended by logout, please log in again"
		case ledger.ReasonPasswordChange:
			return "password changed, please log in again"
		case ledger.ReasonAdminRevoke:
			return "session revoked by an administrator, please log in again"
		default:
			return "session revoked, please log in again"
		}
	case RejectSupersededByPasswordChange:
		return "password changed, please log in again"
	case RejectUnknownSubject:
		return "account not found, please log in again"
	case RejectNotAuthorized:
		return "account is not a member of a recognized organization"
	case RejectStoreUnavailable:
		return "session could not be verified, please log in again"
	default:
		return "authentication denied"
	}
}

// HTTPStatus returns the status code for the denial: 403 for the
// membership predicate failure, 401 for everything else including store
// faults (fail-closed).
func (d *Denial) HTTPStatus() int {
	if d.Kind == RejectNotAuthorized {
		return http.StatusForbidden
	}
	return http.StatusUnauthorized
}

// AsDenial unwraps err into a *Denial when the error chain contains one.
func AsDenial(err error) (*Denial, bool) {
	var d *Denial
	if errors.As(err, &d) {
		return d, true
	}
	return nil, false
}
