package internaldefs

import (
	sessiongate "github.com/hexlago/sessiongate"
)

// CounterDef pairs a gate metric id with its stable exported name.
type CounterDef struct {
	ID   sessiongate.MetricID
	Name string
	Help string
}

// HistogramDef pairs a gate histogram id with its stable exported name.
type HistogramDef struct {
	ID   sessiongate.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in fixed order.
var CounterDefs = []CounterDef{
	{ID: sessiongate.MetricIssued, Name: "sessiongate_issued_total", Help: "Credentials issued."},
	{ID: sessiongate.MetricAdmitted, Name: "sessiongate_admitted_total", Help: "Requests admitted by the gate."},
	{ID: sessiongate.MetricRejectedNoCredential, Name: "sessiongate_rejected_no_credential_total", Help: "Requests rejected for carrying no credential."},
	{ID: sessiongate.MetricRejectedMalformed, Name: "sessiongate_rejected_malformed_total", Help: "Requests rejected for a malformed or tampered credential."},
	{ID: sessiongate.MetricRejectedExpired, Name: "sessiongate_rejected_expired_total", Help: "Requests rejected for an expired credential."},
	{ID: sessiongate.MetricRejectedRevoked, Name: "sessiongate_rejected_revoked_total", Help: "Requests rejected for a revoked credential."},
	{ID: sessiongate.MetricRejectedSuperseded, Name: "sessiongate_rejected_superseded_total", Help: "Requests rejected for a credential issued before the password-change cutoff."},
	{ID: sessiongate.MetricRejectedUnknownSubject, Name: "sessiongate_rejected_unknown_subject_total", Help: "Requests rejected for naming an unknown subject."},
	{ID: sessiongate.MetricRejectedNotAuthorized, Name: "sessiongate_rejected_not_authorized_total", Help: "Requests rejected by the membership predicate."},
	{ID: sessiongate.MetricRejectedStoreUnavailable, Name: "sessiongate_rejected_store_unavailable_total", Help: "Requests rejected fail-closed on ledger faults."},
	{ID: sessiongate.MetricRevokedLogout, Name: "sessiongate_revoked_logout_total", Help: "Logout revocations written."},
	{ID: sessiongate.MetricRevokedPasswordChange, Name: "sessiongate_revoked_password_change_total", Help: "Individual password-change revocations written."},
	{ID: sessiongate.MetricRevokedAdmin, Name: "sessiongate_revoked_admin_total", Help: "Administrative revocations written."},
	{ID: sessiongate.MetricPasswordCutoffStamped, Name: "sessiongate_password_cutoff_stamped_total", Help: "Password-change cutoffs stamped."},
	{ID: sessiongate.MetricSweepRemoved, Name: "sessiongate_sweep_removed_total", Help: "Ledger entries removed by maintenance sweeps."},
}

// HistogramDefs lists every exported histogram in fixed order.
var HistogramDefs = []HistogramDef{
	{ID: sessiongate.MetricAuthenticateLatency, Name: "sessiongate_authenticate_latency_seconds", Help: "Authenticate latency histogram."},
}

// HistogramBounds are the upper bucket bounds in seconds, Prometheus form.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix carries the bound spellings usable in OTel
// instrument names.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets fixes a raw snapshot slice into the 8-bucket shape,
// tolerating short or missing slices.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into the cumulative form
// Prometheus histograms expose.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
