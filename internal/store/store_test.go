package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"compliscan/internal/config"
	"compliscan/internal/domain"
	"compliscan/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "compliscan.db")
	st, err := store.New(config.StoreConfig{Path: path})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestSaveScan_LoadScan_RoundTrips(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	scan := domain.Scan{
		ID:            "scan-1",
		URL:           "https://example.com",
		UserID:        "u1",
		Timestamp:     time.Now().UTC().Truncate(time.Second),
		OverallScore:  87,
		TotalRiskEuro: 2500,
		PillarScores:  map[domain.Pillar]int{domain.PillarImprint: 100},
		Issues: []domain.Issue{
			{ID: "iss-1", Pillar: domain.PillarCookie, Severity: domain.SeverityWarning, RiskEuro: 1000},
		},
	}

	require.NoError(t, st.SaveScan(ctx, scan))

	loaded, found, err := st.LoadScan(ctx, "scan-1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, scan.URL, loaded.URL)
	require.Equal(t, scan.OverallScore, loaded.OverallScore)
	require.Len(t, loaded.Issues, 1)
	require.Equal(t, "iss-1", loaded.Issues[0].ID)
}

func TestLoadScan_NotFound(t *testing.T) {
	st := openTestStore(t)
	_, found, err := st.LoadScan(context.Background(), "does-not-exist")
	require.NoError(t, err)
	require.False(t, found)
}

func TestDeleteScan_RemovesRow(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.SaveScan(ctx, domain.Scan{ID: "scan-1", URL: "https://example.com", Timestamp: time.Now()}))
	require.NoError(t, st.DeleteScan(ctx, "scan-1"))

	_, found, err := st.LoadScan(ctx, "scan-1")
	require.NoError(t, err)
	require.False(t, found)
}

func TestSaveFix_FixesByIdempotencyKey(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.SaveScan(ctx, domain.Scan{ID: "scan-1", URL: "https://example.com", Timestamp: time.Now()}))

	fix := domain.GeneratedFix{
		ID:             "fix-1",
		ScanID:         "scan-1",
		UserID:         "u1",
		IssueID:        "iss-1",
		IdempotencyKey: "key-abc",
		GeneratedAt:    time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, st.SaveFix(ctx, fix))

	fixes, err := st.FixesByIdempotencyKey(ctx, "key-abc")
	require.NoError(t, err)
	require.Len(t, fixes, 1)
	require.Equal(t, "fix-1", fixes[0].ID)

	none, err := st.FixesByIdempotencyKey(ctx, "key-missing")
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestQuota_SaveLoadRoundTrips(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	rec := domain.QuotaRecord{UserID: "u1", ScansLimit: 10, ScansUsed: 3}
	require.NoError(t, st.SaveQuota(ctx, rec))

	loaded, found, err := st.LoadQuota(ctx, "u1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, 3, loaded.ScansUsed)

	_, found, err = st.LoadQuota(ctx, "unknown-user")
	require.NoError(t, err)
	require.False(t, found)
}

func TestAudit_AppendAndFeedbackWriteOnce(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.AppendAuditEntry(ctx, domain.AuditEntry{
		Timestamp: time.Now(), UserID: "u1", Action: domain.AuditScan, RefID: "scan-1",
	}))

	exists, err := st.FeedbackExists(ctx, "u1", "fix-1")
	require.NoError(t, err)
	require.False(t, exists)

	require.NoError(t, st.SaveFeedback(ctx, domain.Feedback{UserID: "u1", FixID: "fix-1", Rating: 4}))

	exists, err = st.FeedbackExists(ctx, "u1", "fix-1")
	require.NoError(t, err)
	require.True(t, exists)
}
