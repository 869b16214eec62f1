package orchestrator_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"compliscan/internal/audit"
	"compliscan/internal/catalog"
	"compliscan/internal/config"
	"compliscan/internal/domain"
	"compliscan/internal/fixgen"
	"compliscan/internal/orchestrator"
	"compliscan/internal/quota"
)

type fakeScanStore struct {
	mu    sync.Mutex
	scans map[string]domain.Scan
	fixes map[string][]domain.GeneratedFix
}

func newFakeScanStore() *fakeScanStore {
	return &fakeScanStore{scans: make(map[string]domain.Scan), fixes: make(map[string][]domain.GeneratedFix)}
}

func (s *fakeScanStore) SaveScan(ctx context.Context, scan domain.Scan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scans[scan.ID] = scan
	return nil
}

func (s *fakeScanStore) LoadScan(ctx context.Context, scanID string) (domain.Scan, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	scan, ok := s.scans[scanID]
	return scan, ok, nil
}

func (s *fakeScanStore) DeleteScan(ctx context.Context, scanID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.scans, scanID)
	return nil
}

func (s *fakeScanStore) FixesByIdempotencyKey(ctx context.Context, key string) ([]domain.GeneratedFix, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fixes[key], nil
}

func (s *fakeScanStore) SaveFix(ctx context.Context, fix domain.GeneratedFix) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fixes[fix.IdempotencyKey] = append(s.fixes[fix.IdempotencyKey], fix)
	return nil
}

type fakeQuotaStore struct {
	mu      sync.Mutex
	records map[string]domain.QuotaRecord
}

func newFakeQuotaStore() *fakeQuotaStore { return &fakeQuotaStore{records: map[string]domain.QuotaRecord{}} }

func (s *fakeQuotaStore) LoadQuota(ctx context.Context, userID string) (domain.QuotaRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[userID]
	return rec, ok, nil
}

func (s *fakeQuotaStore) SaveQuota(ctx context.Context, rec domain.QuotaRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.UserID] = rec
	return nil
}

type fakeAuditStore struct {
	mu        sync.Mutex
	entries   []domain.AuditEntry
	feedbacks map[string]bool
}

func newFakeAuditStore() *fakeAuditStore { return &fakeAuditStore{feedbacks: map[string]bool{}} }

func (s *fakeAuditStore) AppendAuditEntry(ctx context.Context, entry domain.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *fakeAuditStore) FeedbackExists(ctx context.Context, userID, fixID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.feedbacks[userID+"|"+fixID], nil
}

func (s *fakeAuditStore) SaveFeedback(ctx context.Context, fb domain.Feedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feedbacks[fb.UserID+"|"+fb.FixID] = true
	return nil
}

const testCatalogYAML = `
services:
  - key: google-analytics
    display_name: Google Analytics
    category: analytics
    provider: Google LLC
    script_patterns:
      - google-analytics.com/analytics.js
    cookie_patterns:
      - "_ga*"
    block_method: script_rewrite
`

func newTestOrchestrator(t *testing.T) (*orchestrator.Orchestrator, *fakeScanStore) {
	t.Helper()

	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(catalogPath, []byte(testCatalogYAML), 0o644))

	cat, err := catalog.Load(catalogPath)
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	cfg.Catalog.Path = catalogPath

	scanStore := newFakeScanStore()
	ledger := quota.New(newFakeQuotaStore(), cfg.Quota)
	auditLog := audit.New(newFakeAuditStore())
	fg := fixgen.New(nil, nil, cfg.Quota)

	orch := orchestrator.New(cfg, cat, nil, fg, ledger, auditLog, scanStore)
	t.Cleanup(func() { orch.Shutdown() })
	return orch, scanStore
}

// S1: a page with a complete imprint discoverable at the /impressum
// fallback path must not raise the "missing imprint" critical issue, and
// the scan itself must persist successfully.
func TestScan_CompleteImprintAvoidsMissingImprintIssue(t *testing.T) {
	imprintBody := `<html><body>
<p>Acme GmbH, Musterstraße 1, 12345 Berlin. Tel: 030-1234567. E-Mail: legal@acme.example.
USt-IdNr: DE123456789. Registergericht Berlin, HRB 12345. Verantwortlich: Jane Doe.</p>
</body></html>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(imprintBody))
	}))
	defer server.Close()

	orch, scanStore := newTestOrchestrator(t)

	result, err := orch.Scan(context.Background(), domain.ScanRequest{
		URL: server.URL, RenderMode: domain.RenderStatic, UserID: "u1",
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.ScanID)

	for _, issue := range result.Issues {
		if issue.Pillar == domain.PillarImprint {
			require.NotEqual(t, "Missing imprint page", issue.Title)
		}
	}

	_, found, loadErr := scanStore.LoadScan(context.Background(), result.ScanID)
	require.NoError(t, loadErr)
	require.True(t, found, "a successful scan must be persisted")
}

// S1 (unreachable variant): a target that cannot be fetched at all must
// not surface as a bare Scan error — it must come back as a successful,
// persisted Scan carrying exactly one synthetic critical issue, a zeroed
// overall score, and at least 3000 euro of total risk (spec §4.B, §7).
func TestScan_UnreachableTargetProducesSingleSyntheticIssue(t *testing.T) {
	orch, scanStore := newTestOrchestrator(t)

	result, err := orch.Scan(context.Background(), domain.ScanRequest{
		URL: "http://127.0.0.1:1", RenderMode: domain.RenderStatic, UserID: "u-unreachable",
	})
	require.NoError(t, err)
	require.Len(t, result.Issues, 1)
	require.Equal(t, "Site unreachable", result.Issues[0].Title)
	require.Equal(t, domain.SeverityCritical, result.Issues[0].Severity)
	require.Equal(t, 0, result.OverallScore)
	require.GreaterOrEqual(t, result.TotalRiskEuro, 3000)

	_, found, loadErr := scanStore.LoadScan(context.Background(), result.ScanID)
	require.NoError(t, loadErr)
	require.True(t, found, "an unreachable-target scan must still persist")
}

// A non-2xx response (target reachable, but erroring) must be treated the
// same way as a transport failure rather than letting the checks run
// against a document with no parsed DOM.
func TestScan_Non2xxResponseProducesSingleSyntheticIssue(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	orch, _ := newTestOrchestrator(t)

	result, err := orch.Scan(context.Background(), domain.ScanRequest{
		URL: server.URL, RenderMode: domain.RenderStatic, UserID: "u-5xx",
	})
	require.NoError(t, err)
	require.Len(t, result.Issues, 1)
	require.Equal(t, "Site unreachable", result.Issues[0].Title)
	require.Equal(t, 0, result.OverallScore)
	require.GreaterOrEqual(t, result.TotalRiskEuro, 3000)
}

// S2: a page embedding a known analytics script with no cookie banner
// should raise a cookie-pillar issue for that service.
func TestScan_UnconsentedAnalyticsScriptRaisesCookieIssue(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<html><head><script src="https://www.google-analytics.com/analytics.js"></script></head><body></body></html>`))
	}))
	defer server.Close()

	orch, _ := newTestOrchestrator(t)

	result, err := orch.Scan(context.Background(), domain.ScanRequest{
		URL: server.URL, RenderMode: domain.RenderStatic, UserID: "u2",
	})
	require.NoError(t, err)

	var criticalCookieTitles []string
	for _, issue := range result.Issues {
		if issue.Pillar == domain.PillarCookie && issue.Severity == domain.SeverityCritical {
			criticalCookieTitles = append(criticalCookieTitles, issue.Title)
		}
	}
	require.GreaterOrEqual(t, len(criticalCookieTitles), 2,
		"an unconsented analytics script with no banner must surface at least 2 critical cookie issues, got %v", criticalCookieTitles)
	require.Contains(t, criticalCookieTitles, "Tracking without consent")
	require.Contains(t, criticalCookieTitles, "No reject option in cookie banner")
}

// S3: an imprint with a complete address but no explicit "Verantwortlich"
// declaration — only a name incidental to the address/PO-box line — must
// still raise the missing-responsible-person warning.
func TestScan_ImprintWithoutExplicitResponsiblePersonRaisesWarning(t *testing.T) {
	imprintBody := `<html><body><p>Max Mustermann, Postfach 123, 12345 Musterstadt, E-Mail: info@example.com</p></body></html>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(imprintBody))
	}))
	defer server.Close()

	orch, _ := newTestOrchestrator(t)

	result, err := orch.Scan(context.Background(), domain.ScanRequest{
		URL: server.URL, RenderMode: domain.RenderStatic, UserID: "u-s3",
	})
	require.NoError(t, err)

	var found bool
	for _, issue := range result.Issues {
		if issue.Pillar == domain.PillarImprint && issue.Title == "Missing responsible person (Verantwortlicher)" {
			found = true
		}
	}
	require.True(t, found, "an imprint with no explicit responsible-person declaration must raise the warning")
}

// S3b: an empty URL is rejected before any quota or fetch work happens.
func TestScan_EmptyURLIsRejected(t *testing.T) {
	orch, _ := newTestOrchestrator(t)
	_, err := orch.Scan(context.Background(), domain.ScanRequest{UserID: "u3"})
	require.Error(t, err)
}

// S4: once a user's scan quota is exhausted, further scans are denied
// without ever reaching the fetch step.
func TestScan_DeniesOverQuota(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body></body></html>`))
	}))
	defer server.Close()

	orch, _ := newTestOrchestrator(t)
	ctx := context.Background()

	var lastErr error
	for i := 0; i < 11; i++ {
		_, lastErr = orch.Scan(ctx, domain.ScanRequest{URL: server.URL, RenderMode: domain.RenderStatic, UserID: "u4"})
	}
	require.Error(t, lastErr, "the 11th scan exceeds the default 10-scan plan limit")
}

// S5: GenerateFixes refuses a request from a user who does not own the
// scan.
func TestGenerateFixes_RejectsNonOwner(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><p>Impressum</p></body></html>`))
	}))
	defer server.Close()

	orch, _ := newTestOrchestrator(t)
	ctx := context.Background()

	scanResult, err := orch.Scan(ctx, domain.ScanRequest{URL: server.URL, RenderMode: domain.RenderStatic, UserID: "owner"})
	require.NoError(t, err)

	_, err = orch.GenerateFixes(ctx, domain.FixesRequest{
		ScanID: scanResult.ScanID,
		UserID: "someone-else",
	})
	require.Error(t, err)
}

// S6: GenerateFixes against an unknown scan id reports not-found.
func TestGenerateFixes_UnknownScanIsNotFound(t *testing.T) {
	orch, _ := newTestOrchestrator(t)
	_, err := orch.GenerateFixes(context.Background(), domain.FixesRequest{ScanID: "does-not-exist", UserID: "u1"})
	require.Error(t, err)
}

func TestGenerateFixes_ProducesFixesForOwnedScan(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body></body></html>`))
	}))
	defer server.Close()

	orch, _ := newTestOrchestrator(t)
	ctx := context.Background()

	scanResult, err := orch.Scan(ctx, domain.ScanRequest{URL: server.URL, RenderMode: domain.RenderStatic, UserID: "owner"})
	require.NoError(t, err)
	require.NotEmpty(t, scanResult.Issues, "a bare page with no imprint must raise at least one issue")

	issueIDs := make([]string, 0, len(scanResult.Issues))
	for _, issue := range scanResult.Issues {
		issueIDs = append(issueIDs, issue.ID)
	}

	fixesResult, err := orch.GenerateFixes(ctx, domain.FixesRequest{
		ScanID:   scanResult.ScanID,
		UserID:   "owner",
		IssueIDs: issueIDs,
	})
	require.NoError(t, err)
	require.NotEmpty(t, fixesResult.Fixes)
}
