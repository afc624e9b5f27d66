package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/gracechapel/outreach-backend/internal/clients/sendgrid"
	"github.com/gracechapel/outreach-backend/internal/pkg/logger"
	"github.com/gracechapel/outreach-backend/internal/types"
)

// AdminNotifier emails the admin about outcomes needing a human: permanent
// failures, conflicts flagged for review, and capacity exhaustion.
// Notification failures are logged and swallowed; alerting must never fail
// a reconciliation that already succeeded.
type AdminNotifier struct {
	mail sendgrid.Client
	to   string
	log  *logger.Logger
}

// NewAdminNotifier accepts a nil mail client or empty address, yielding a
// disabled notifier.
func NewAdminNotifier(mail sendgrid.Client, to string, baseLog *logger.Logger) *AdminNotifier {
	return &AdminNotifier{
		mail: mail,
		to:   strings.TrimSpace(to),
		log:  baseLog.With("service", "AdminNotifier"),
	}
}

func (n *AdminNotifier) enabled() bool {
	return n != nil && n.mail != nil && n.to != ""
}

func (n *AdminNotifier) Notify(ctx context.Context, ev *types.IntakeEvent, outcome Outcome) {
	if !n.enabled() {
		return
	}

	var subject, body string
	switch {
	case outcome.Kind == OutcomeFailed:
		subject = "[outreach] reconciliation failed"
		body = fmt.Sprintf(
			"Event from %s (source record %s) failed permanently.\n\nError: %s\n",
			ev.Channel, ev.SourceRecordID, outcome.Reason,
		)
	case outcome.Kind == OutcomeFlagged:
		subject = "[outreach] record flagged for review"
		body = fmt.Sprintf(
			"Event from %s (source record %s) needs manual review.\n\nReason: %s\nCandidates: %s\n",
			ev.Channel, ev.SourceRecordID, outcome.Reason, strings.Join(outcome.CandidateIDs, ", "),
		)
	case outcome.CapacityWarning:
		subject = "[outreach] follow-up capacity exhausted"
		body = fmt.Sprintf(
			"All follow-up volunteers are at capacity; member %s keeps their current owner.\n",
			outcome.PersonID,
		)
	default:
		return
	}

	if err := n.mail.Send(ctx, sendgrid.SendEmailRequest{
		ToEmail:  n.to,
		Subject:  subject,
		TextBody: body,
	}); err != nil {
		n.log.Warn("admin notification failed",
			"outcome", outcome.Kind,
			"source_record_id", ev.SourceRecordID,
			"error", err,
		)
	}
}
