package console

import (
	"context"

	"github.com/sirupsen/logrus"
)

// AuditEntry records one console mutation.
type AuditEntry struct {
	Action      string
	Section     string
	Details     string
	PerformedBy string
}

// AuditSink appends audit entries to durable storage.
type AuditSink interface {
	AppendAudit(ctx context.Context, entry AuditEntry) error
}

// Auditor writes the append-only audit trail for console mutations.
// Audit failures are logged, never surfaced: a missing audit row must
// not fail the mutation it describes.
type Auditor struct {
	log  logrus.FieldLogger
	sink AuditSink
}

// NewAuditor creates an auditor over the given sink.
func NewAuditor(log logrus.FieldLogger, sink AuditSink) *Auditor {
	return &Auditor{
		log:  log.WithField("component", "auditor"),
		sink: sink,
	}
}

// Record appends one entry.
func (a *Auditor) Record(
	ctx context.Context, action, section, details, performedBy string,
) {
	err := a.sink.AppendAudit(ctx, AuditEntry{
		Action:      action,
		Section:     section,
		Details:     details,
		PerformedBy: performedBy,
	})
	if err != nil {
		a.log.WithError(err).
			WithField("section", section).
			WithField("action", action).
			Warn("Audit append failed")
	}
}
