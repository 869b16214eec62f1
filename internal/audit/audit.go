// Package audit appends immutable usage records and enforces the
// write-once-per-(user, fix) feedback rule (spec §3). Neither operation
// ever mutates or deletes a prior row; the core treats the ledger as
// append-only and leaves retention/export to its store backend.
package audit

import (
	"context"
	"time"

	"compliscan/internal/domain"
	"compliscan/internal/logging"
	"compliscan/internal/scanerr"
)

// Store is the persistence boundary audit writes through.
type Store interface {
	AppendAuditEntry(ctx context.Context, entry domain.AuditEntry) error
	FeedbackExists(ctx context.Context, userID, fixID string) (bool, error)
	SaveFeedback(ctx context.Context, fb domain.Feedback) error
}

// Log appends audit entries and records feedback, rejecting a second
// feedback submission for the same (user, fix) pair.
type Log struct {
	store Store
}

func New(store Store) *Log {
	return &Log{store: store}
}

// Append records one ledger row, stamping Timestamp if the caller left it
// zero.
func (l *Log) Append(ctx context.Context, entry domain.AuditEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if err := l.store.AppendAuditEntry(ctx, entry); err != nil {
		return scanerr.Dependencyf("audit_append_failed", err, "could not append audit entry")
	}
	logging.Get(logging.CategoryAudit).Debug("audit: %s %s by %s", entry.Action, entry.RefID, entry.UserID)
	return nil
}

// Scan is a convenience wrapper for the scan action.
func (l *Log) Scan(ctx context.Context, userID, scanID string, details map[string]interface{}) error {
	return l.Append(ctx, domain.AuditEntry{UserID: userID, Action: domain.AuditScan, RefID: scanID, Details: details})
}

// FixGenerated is a convenience wrapper for the fix_generated action.
func (l *Log) FixGenerated(ctx context.Context, userID, fixID string, details map[string]interface{}) error {
	return l.Append(ctx, domain.AuditEntry{UserID: userID, Action: domain.AuditFixGenerated, RefID: fixID, Details: details})
}

// FixExported is a convenience wrapper for the fix_exported action.
func (l *Log) FixExported(ctx context.Context, userID, fixID string) error {
	return l.Append(ctx, domain.AuditEntry{UserID: userID, Action: domain.AuditFixExported, RefID: fixID})
}

// FixApplied is a convenience wrapper for the fix_applied action.
func (l *Log) FixApplied(ctx context.Context, userID, fixID string) error {
	return l.Append(ctx, domain.AuditEntry{UserID: userID, Action: domain.AuditFixApplied, RefID: fixID})
}

// SubmitFeedback records fb, failing with PermissionDenied if userID has
// already submitted feedback for fixID (spec §3: write-once).
func (l *Log) SubmitFeedback(ctx context.Context, fb domain.Feedback) error {
	exists, err := l.store.FeedbackExists(ctx, fb.UserID, fb.FixID)
	if err != nil {
		return scanerr.Dependencyf("audit_feedback_lookup_failed", err, "could not check existing feedback")
	}
	if exists {
		return scanerr.PermissionDeniedf("feedback_already_submitted", "feedback for fix %s was already submitted by this user", fb.FixID)
	}
	if err := l.store.SaveFeedback(ctx, fb); err != nil {
		return scanerr.Dependencyf("audit_feedback_save_failed", err, "could not save feedback")
	}
	return l.Append(ctx, domain.AuditEntry{UserID: fb.UserID, Action: domain.AuditFeedback, RefID: fb.FixID, Details: map[string]interface{}{"rating": fb.Rating}})
}
