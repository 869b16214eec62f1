package audit_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"compliscan/internal/audit"
	"compliscan/internal/domain"
	"compliscan/internal/scanerr"
)

type fakeStore struct {
	mu        sync.Mutex
	entries   []domain.AuditEntry
	feedbacks map[string]domain.Feedback
}

func newFakeStore() *fakeStore {
	return &fakeStore{feedbacks: make(map[string]domain.Feedback)}
}

func feedbackKey(userID, fixID string) string { return userID + "|" + fixID }

func (s *fakeStore) AppendAuditEntry(ctx context.Context, entry domain.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *fakeStore) FeedbackExists(ctx context.Context, userID, fixID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.feedbacks[feedbackKey(userID, fixID)]
	return ok, nil
}

func (s *fakeStore) SaveFeedback(ctx context.Context, fb domain.Feedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feedbacks[feedbackKey(fb.UserID, fb.FixID)] = fb
	return nil
}

func TestAppend_StampsTimestampWhenZero(t *testing.T) {
	store := newFakeStore()
	log := audit.New(store)

	require.NoError(t, log.Scan(context.Background(), "u1", "scan-1", nil))
	require.Len(t, store.entries, 1)
	require.False(t, store.entries[0].Timestamp.IsZero())
	require.Equal(t, domain.AuditScan, store.entries[0].Action)
}

func TestSubmitFeedback_FirstSubmissionSucceeds(t *testing.T) {
	store := newFakeStore()
	log := audit.New(store)

	err := log.SubmitFeedback(context.Background(), domain.Feedback{UserID: "u1", FixID: "fix-1", Rating: 5})
	require.NoError(t, err)
	require.Len(t, store.entries, 1, "feedback submission also appends an audit entry")
	require.Equal(t, domain.AuditFeedback, store.entries[0].Action)
}

func TestSubmitFeedback_SecondSubmissionIsDenied(t *testing.T) {
	store := newFakeStore()
	log := audit.New(store)
	ctx := context.Background()

	require.NoError(t, log.SubmitFeedback(ctx, domain.Feedback{UserID: "u1", FixID: "fix-1", Rating: 5}))

	err := log.SubmitFeedback(ctx, domain.Feedback{UserID: "u1", FixID: "fix-1", Rating: 1})
	require.Error(t, err)
	require.True(t, scanerr.Is(err, scanerr.PermissionDenied))
	require.Len(t, store.entries, 1, "denied resubmission must not append a second entry")
}

func TestSubmitFeedback_DifferentUserSameFixIsAllowed(t *testing.T) {
	store := newFakeStore()
	log := audit.New(store)
	ctx := context.Background()

	require.NoError(t, log.SubmitFeedback(ctx, domain.Feedback{UserID: "u1", FixID: "fix-1", Rating: 5}))
	require.NoError(t, log.SubmitFeedback(ctx, domain.Feedback{UserID: "u2", FixID: "fix-1", Rating: 3}))
}

func TestFixGenerated_FixExported_FixApplied_UseDistinctActions(t *testing.T) {
	store := newFakeStore()
	log := audit.New(store)
	ctx := context.Background()

	require.NoError(t, log.FixGenerated(ctx, "u1", "fix-1", nil))
	require.NoError(t, log.FixExported(ctx, "u1", "fix-1"))
	require.NoError(t, log.FixApplied(ctx, "u1", "fix-1"))

	require.Len(t, store.entries, 3)
	require.Equal(t, domain.AuditFixGenerated, store.entries[0].Action)
	require.Equal(t, domain.AuditFixExported, store.entries[1].Action)
	require.Equal(t, domain.AuditFixApplied, store.entries[2].Action)
}
