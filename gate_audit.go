package sessiongate

import (
	"context"
	"time"
)

const (
	auditEventCredentialIssued = "credential_issued"
	auditEventAdmitted         = "authenticate_admitted"
	auditEventRejected         = "authenticate_rejected"
	auditEventRevoked          = "credential_revoked"
	auditEventPasswordCutoff   = "password_cutoff_stamped"
	auditEventSweepCompleted   = "sweep_completed"
)

func (g *Gate) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	subjectID string,
	credentialID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if g == nil || g.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp:    time.Now().UTC(),
		EventType:    eventType,
		SubjectID:    subjectID,
		CredentialID: credentialID,
		IP:           clientIPFromContext(ctx),
		RequestID:    requestIDFromContext(ctx),
		Success:      success,
		Metadata:     metadata,
	}
	if err != nil {
		event.Error = err.Error()
	}

	g.audit.Emit(ctx, event)
}
