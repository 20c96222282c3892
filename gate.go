package sessiongate

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/hexlago/sessiongate/ledger"
	"github.com/hexlago/sessiongate/token"
)

// Gate is the per-request orchestrator: it issues credentials, runs the
// authenticate state machine, and records revocations. A Gate is immutable
// after construction and safe for concurrent use.
type Gate struct {
	config   Config
	codec    *token.Codec
	store    *ledger.Store
	provider SubjectProvider
	audit    *auditDispatcher
	metrics  *Metrics
	sweeper  *sweeper
}

// Close stops the background sweeper and flushes the audit dispatcher.
func (g *Gate) Close() {
	if g == nil {
		return
	}
	if g.sweeper != nil {
		g.sweeper.Close()
	}
	if g.audit != nil {
		g.audit.Close()
	}
}

// AuditDropped returns the number of audit events dropped because the
// dispatcher buffer was full.
func (g *Gate) AuditDropped() uint64 {
	if g == nil || g.audit == nil {
		return 0
	}
	return g.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of all gate metrics.
func (g *Gate) MetricsSnapshot() MetricsSnapshot {
	if g == nil || g.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return g.metrics.Snapshot()
}

func (g *Gate) metricInc(id MetricID) {
	if g == nil || g.metrics == nil {
		return
	}
	g.metrics.Inc(id)
}

// Issue signs a fresh credential for subjectID with the configured TTL.
// Issuance is CPU-bound signing only; it never touches the ledger.
func (g *Gate) Issue(ctx context.Context, subjectID string) (string, error) {
	if g == nil || g.codec == nil {
		return "", ErrGateNotReady
	}

	credential, claims, err := g.codec.Issue(subjectID)
	if err != nil {
		return "", err
	}

	g.metricInc(MetricIssued)
	g.emitAudit(ctx, auditEventCredentialIssued, true, subjectID, claims.CredentialID(), nil, nil)

	return credential, nil
}

// Authenticate runs the per-request state machine over the bearer
// credential: signature and expiry verification, exact-match revocation
// lookup, password-change cutoff check, profile resolution, and the
// membership predicate. Every expected failure returns a *Denial; a store
// fault rejects fail-closed rather than admitting an unverifiable
// credential.
//
// A revocation acknowledged before this call starts is always observed; a
// revocation in flight while the request is already past the ledger check
// is not. Revocation stops the next request, it is not a kill switch for
// requests already admitted.
func (g *Gate) Authenticate(ctx context.Context, credential string) (*Admission, error) {
	if g == nil || g.codec == nil || g.store == nil {
		return nil, ErrGateNotReady
	}

	start := time.Now()
	defer func() {
		if g.metrics.LatencyEnabled() {
			g.metrics.Observe(MetricAuthenticateLatency, time.Since(start))
		}
	}()

	if credential == "" {
		return nil, g.deny(ctx, &Denial{Kind: RejectNoCredential}, "", "")
	}

	claims, err := g.codec.Verify(credential)
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			return nil, g.deny(ctx, &Denial{Kind: RejectExpiredCredential}, "", "")
		}
		return nil, g.deny(ctx, &Denial{Kind: RejectMalformedCredential}, "", "")
	}

	subjectID := claims.SubjectID()
	credentialID := claims.CredentialID()

	result, err := g.store.Lookup(ctx, credential, subjectID)
	if err != nil {
		return nil, g.deny(ctx, &Denial{Kind: RejectStoreUnavailable}, subjectID, credentialID)
	}

	if result.Entry != nil {
		return nil, g.deny(ctx, &Denial{Kind: RejectRevoked, Reason: result.Entry.Reason}, subjectID, credentialID)
	}

	if result.HasCutoff && claims.IssuedAt.Time.Before(result.Cutoff) {
		return nil, g.deny(ctx, &Denial{Kind: RejectSupersededByPasswordChange}, subjectID, credentialID)
	}

	subject, err := g.provider.GetSubjectByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, ErrSubjectNotFound) {
			return nil, g.deny(ctx, &Denial{Kind: RejectUnknownSubject}, subjectID, credentialID)
		}
		return nil, g.deny(ctx, &Denial{Kind: RejectStoreUnavailable}, subjectID, credentialID)
	}

	if !g.authorized(subject) {
		return nil, g.deny(ctx, &Denial{Kind: RejectNotAuthorized}, subjectID, credentialID)
	}

	g.metricInc(MetricAdmitted)
	g.emitAudit(ctx, auditEventAdmitted, true, subjectID, credentialID, nil, nil)

	return &Admission{
		SubjectID:    subjectID,
		Subject:      subject,
		CredentialID: credentialID,
		IssuedAt:     claims.IssuedAt.Time,
		ExpiresAt:    claims.ExpiresAt.Time,
	}, nil
}

func (g *Gate) authorized(subject Subject) bool {
	if !g.config.Membership.RequireMembership {
		return true
	}
	if len(g.config.Membership.Organizations) == 0 {
		return subject.Organization != ""
	}
	for _, org := range g.config.Membership.Organizations {
		if subject.Organization == org {
			return true
		}
	}
	return false
}

func (g *Gate) deny(ctx context.Context, d *Denial, subjectID, credentialID string) *Denial {
	g.metricInc(rejectionMetric(d.Kind))
	g.emitAudit(ctx, auditEventRejected, false, subjectID, credentialID, d, func() map[string]string {
		metadata := map[string]string{
			"kind": d.Kind.String(),
		}
		if d.Kind == RejectRevoked {
			metadata["reason"] = d.Reason.String()
		}
		return metadata
	})
	return d
}

func rejectionMetric(kind RejectionKind) MetricID {
	switch kind {
	case RejectNoCredential:
		return MetricRejectedNoCredential
	case RejectMalformedCredential:
		return MetricRejectedMalformed
	case RejectExpiredCredential:
		return MetricRejectedExpired
	case RejectRevoked:
		return MetricRejectedRevoked
	case RejectSupersededByPasswordChange:
		return MetricRejectedSuperseded
	case RejectUnknownSubject:
		return MetricRejectedUnknownSubject
	case RejectNotAuthorized:
		return MetricRejectedNotAuthorized
	default:
		return MetricRejectedStoreUnavailable
	}
}

// Logout revokes the exact presented credential. Sibling credentials for
// the same subject stay valid.
func (g *Gate) Logout(ctx context.Context, credential string) error {
	return g.RevokeCredential(ctx, credential, ledger.ReasonLogout)
}

// AdminRevoke revokes the exact credential by administrative action.
func (g *Gate) AdminRevoke(ctx context.Context, credential string) error {
	return g.RevokeCredential(ctx, credential, ledger.ReasonAdminRevoke)
}

// RevokeCredential writes an idempotent revocation entry for the exact
// credential string. The entry expiry is derived from the credential's own
// signed claims, never supplied by the caller, so the entry self-prunes the
// moment the credential would have expired anyway. Revoking an
// already-expired credential succeeds as a no-op; a credential that does
// not verify returns a malformed *Denial.
func (g *Gate) RevokeCredential(ctx context.Context, credential string, reason ledger.Reason) error {
	if g == nil || g.codec == nil || g.store == nil {
		return ErrGateNotReady
	}
	if !reason.Valid() {
		return ErrInvalidReason
	}

	claims, err := g.codec.Verify(credential)
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			// Already dead on its own; nothing to record.
			return nil
		}
		return &Denial{Kind: RejectMalformedCredential}
	}

	subjectID := claims.SubjectID()
	credentialID := claims.CredentialID()

	if err := g.store.Revoke(ctx, credential, subjectID, reason, claims.ExpiresAt.Time); err != nil {
		g.emitAudit(ctx, auditEventRevoked, false, subjectID, credentialID, err, func() map[string]string {
			return map[string]string{"reason": reason.String()}
		})
		return err
	}

	g.metricInc(revocationMetric(reason))
	g.emitAudit(ctx, auditEventRevoked, true, subjectID, credentialID, nil, func() map[string]string {
		return map[string]string{"reason": reason.String()}
	})

	return nil
}

func revocationMetric(reason ledger.Reason) MetricID {
	switch reason {
	case ledger.ReasonLogout:
		return MetricRevokedLogout
	case ledger.ReasonPasswordChange:
		return MetricRevokedPasswordChange
	default:
		return MetricRevokedAdmin
	}
}

// MarkPasswordChanged stamps now as the subject's password-change cutoff:
// every credential issued before this instant is void from the next request
// on, without an individual revocation per credential. The cutoff only ever
// rises; a delayed duplicate write cannot resurrect older credentials.
func (g *Gate) MarkPasswordChanged(ctx context.Context, subjectID string) error {
	if g == nil || g.store == nil {
		return ErrGateNotReady
	}

	if err := g.store.MarkPasswordChanged(ctx, subjectID, time.Now(), g.config.Token.TTL); err != nil {
		g.emitAudit(ctx, auditEventPasswordCutoff, false, subjectID, "", err, nil)
		return err
	}

	g.metricInc(MetricPasswordCutoffStamped)
	g.emitAudit(ctx, auditEventPasswordCutoff, true, subjectID, "", nil, nil)

	return nil
}

// SweepExpired removes every ledger entry whose recorded expiry has passed
// and returns the number removed. It is idempotent and never runs in the
// request path; see [SweepConfig] for the built-in ticker.
func (g *Gate) SweepExpired(ctx context.Context) (int, error) {
	if g == nil || g.store == nil {
		return 0, ErrGateNotReady
	}

	removed, err := g.store.SweepExpired(ctx, time.Now())
	if err != nil {
		return removed, err
	}

	if g.metrics.Enabled() {
		g.metrics.Add(MetricSweepRemoved, uint64(removed))
	}
	if removed > 0 {
		g.emitAudit(ctx, auditEventSweepCompleted, true, "", "", nil, func() map[string]string {
			return map[string]string{"removed": strconv.Itoa(removed)}
		})
	}

	return removed, nil
}

// RevocationsForSubject returns the live revocation entries recorded for a
// subject, oldest first. Entries are pruned once the underlying credential
// expires, so this is a bounded operational view, not a durable audit
// trail.
func (g *Gate) RevocationsForSubject(ctx context.Context, subjectID string) ([]*ledger.Entry, error) {
	if g == nil || g.store == nil {
		return nil, ErrGateNotReady
	}
	return g.store.EntriesForSubject(ctx, subjectID)
}

// Ping checks ledger reachability and returns the round-trip latency.
func (g *Gate) Ping(ctx context.Context) (time.Duration, error) {
	if g == nil || g.store == nil {
		return 0, ErrGateNotReady
	}
	return g.store.Ping(ctx)
}
