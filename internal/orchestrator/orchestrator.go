// Package orchestrator wires the fetch/render, classify, four-pillar
// check, score, legal-overlay, persist, and audit steps into the two
// operations the rest of compliscan calls: Scan and GenerateFixes (spec
// §5, §6). It is the only package that knows about every other internal
// package at once.
package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"compliscan/internal/audit"
	"compliscan/internal/browser"
	"compliscan/internal/catalog"
	"compliscan/internal/checks/accessibility"
	"compliscan/internal/checks/cookie"
	"compliscan/internal/checks/imprint"
	"compliscan/internal/checks/privacy"
	"compliscan/internal/classifier"
	"compliscan/internal/config"
	"compliscan/internal/domain"
	"compliscan/internal/fetch"
	"compliscan/internal/fixgen"
	"compliscan/internal/legalupdate"
	"compliscan/internal/logging"
	"compliscan/internal/quota"
	"compliscan/internal/scanerr"
	"compliscan/internal/scoring"
	"compliscan/internal/store"
)

// ScanStore is the subset of *store.Store Orchestrator needs for the
// scan lifecycle, named so tests can supply an in-memory fake.
type ScanStore interface {
	SaveScan(ctx context.Context, scan domain.Scan) error
	LoadScan(ctx context.Context, scanID string) (domain.Scan, bool, error)
	DeleteScan(ctx context.Context, scanID string) error
	FixesByIdempotencyKey(ctx context.Context, key string) ([]domain.GeneratedFix, error)
	SaveFix(ctx context.Context, fix domain.GeneratedFix) error
}

// Orchestrator is the top-level entry point for compliscan's two public
// operations.
type Orchestrator struct {
	cfg        *config.Config
	staticF    *fetch.StaticFetcher
	renderer   *browser.Renderer
	catalog    *catalog.Catalog
	classifier *classifier.Classifier
	legal      legalupdate.Source
	fixgen     *fixgen.Generator
	quota      *quota.Ledger
	audit      *audit.Log
	store      ScanStore

	mu       sync.Mutex
	inFlight map[string]int
}

func New(cfg *config.Config, cat *catalog.Catalog, legalSrc legalupdate.Source, fg *fixgen.Generator, ledger *quota.Ledger, auditLog *audit.Log, st ScanStore) *Orchestrator {
	return &Orchestrator{
		cfg:        cfg,
		staticF:    fetch.NewStaticFetcher(cfg.Fetch),
		renderer:   browser.NewRenderer(cfg.Render),
		catalog:    cat,
		classifier: classifier.New(cat),
		legal:      legalSrc,
		fixgen:     fg,
		quota:      ledger,
		audit:      auditLog,
		store:      st,
		inFlight:   make(map[string]int),
	}
}

func (o *Orchestrator) Shutdown() error {
	return o.renderer.Shutdown()
}

// Scan fetches req.URL, runs the four-pillar check battery, scores the
// result, applies the legal-update overlay, and persists the scan (spec
// §6).
func (o *Orchestrator) Scan(ctx context.Context, req domain.ScanRequest) (domain.ScanResult, error) {
	if req.URL == "" {
		return domain.ScanResult{}, scanerr.InvalidInputf("missing_url", "url is required")
	}

	if !o.acquireSlot(req.UserID) {
		return domain.ScanResult{}, scanerr.BusyErr()
	}
	defer o.releaseSlot(req.UserID)

	ok, remaining, err := o.quota.TryConsume(ctx, req.UserID, domain.QuotaScan, 1)
	if err != nil {
		return domain.ScanResult{}, err
	}
	if !ok {
		return domain.ScanResult{}, scanerr.QuotaErr("scan", remaining)
	}

	ctx, cancel := context.WithTimeout(ctx, o.cfg.Concurrency.WholeScanTimeout())
	defer cancel()

	scan, err := o.runScan(ctx, req)
	if err != nil {
		refundErr := o.quota.Refund(context.Background(), req.UserID, domain.QuotaScan, 1)
		if refundErr != nil {
			logging.Get(logging.CategoryOrchestrator).Warn("orchestrator: quota refund failed after scan error: %v", refundErr)
		}
		return domain.ScanResult{}, err
	}

	if err := o.persistWithCancellationBudget(ctx, scan); err != nil {
		return domain.ScanResult{}, err
	}

	if err := o.audit.Scan(context.Background(), req.UserID, scan.ID, map[string]interface{}{"url": scan.URL, "overall_score": scan.OverallScore}); err != nil {
		logging.Get(logging.CategoryOrchestrator).Warn("orchestrator: audit append failed for scan %s: %v", scan.ID, err)
	}

	return scan.Result(), nil
}

func (o *Orchestrator) runScan(ctx context.Context, req domain.ScanRequest) (domain.Scan, error) {
	scanID := uuid.NewString()
	log := logging.Get(logging.CategoryOrchestrator)
	timer := logging.StartTimer(logging.CategoryOrchestrator, "scan")
	defer timer.Stop()

	doc, err := o.fetchDocument(ctx, req)
	if err != nil {
		if scanerr.Is(err, scanerr.Unreachable) {
			log.Warn("scan %s for %s: target unreachable: %v", scanID, req.URL, err)
			return unreachableScan(scanID, req, err), nil
		}
		return domain.Scan{}, err
	}
	if doc.Root == nil && (doc.StatusCode < 200 || doc.StatusCode >= 300) {
		log.Warn("scan %s for %s: non-2xx response (HTTP %d)", scanID, req.URL, doc.StatusCode)
		return unreachableScan(scanID, req, fmt.Errorf("HTTP %d", doc.StatusCode)), nil
	}

	css := o.fetchStylesheets(ctx, doc)

	services := o.classifier.Classify(doc)
	issues := o.runChecks(ctx, scanID, doc, css, services)

	sortIssues(issues)

	pillarScores := scoring.PillarScores(issues)
	overall := scoring.OverallScore(pillarScores)
	totalRisk := scoring.TotalRiskEuro(issues)

	legalResult := legalupdate.Result{}
	if o.legal != nil {
		updates := o.legal.Updates(time.Now())
		legalResult = legalupdate.Apply(issues, updates)
		if legalResult.Applied {
			totalRisk = scoring.TotalRiskEuro(issues)
			pillarScores = scoring.PillarScores(issues)
			overall = scoring.OverallScore(pillarScores)
		}
	}

	log.Info("scan %s for %s: overall=%d risk=%d issues=%d", scanID, req.URL, overall, totalRisk, len(issues))

	return domain.Scan{
		ID:     scanID,
		URL:    req.URL,
		UserID: req.UserID,
		Timestamp: time.Now(),
		RenderModeUsed: doc.RenderModeUsed,
		Metrics: domain.PageMetrics{
			SizeBytes:       doc.SizeBytes,
			HTTPStatus:      doc.StatusCode,
			ContentEncoding: doc.Headers.Get("Content-Encoding"),
		},
		Issues:              issues,
		MatchedServices:     services,
		PillarScores:        pillarScores,
		OverallScore:        overall,
		TotalRiskEuro:       totalRisk,
		LegalUpdatesApplied: legalResult.Applied,
		LegalUpdatesCount:   legalResult.Count,
	}, nil
}

// fetchDocument performs the static fetch and, per req.RenderMode (or the
// `auto` escalation heuristic), follows up with a headless render (spec
// §4.B).
func (o *Orchestrator) fetchDocument(ctx context.Context, req domain.ScanRequest) (*fetch.Document, error) {
	mode := req.RenderMode
	if mode == "" {
		mode = domain.RenderAuto
	}

	if mode == domain.RenderRendered {
		return o.renderer.Render(ctx, req.URL)
	}

	doc, err := o.staticF.Fetch(ctx, req.URL)
	if err != nil {
		return nil, err
	}
	if mode == domain.RenderAuto && fetch.NeedsRender(doc, o.cfg.Render) {
		rendered, err := o.renderer.Render(ctx, req.URL)
		if err != nil {
			logging.Get(logging.CategoryOrchestrator).Warn("orchestrator: auto-escalation render failed, falling back to static: %v", err)
			return doc, nil
		}
		return rendered, nil
	}
	return doc, nil
}

const maxStylesheetFetches = 5

// fetchStylesheets follows every <link rel="stylesheet"> href on doc and
// concatenates the fetched bodies so the accessibility check's focus
// visibility rule (spec §4.C.4) has real CSS to scan instead of a
// permanently empty string. A sheet that fails to fetch is skipped; the
// check degrades to whatever sheets did resolve.
func (o *Orchestrator) fetchStylesheets(ctx context.Context, doc *fetch.Document) string {
	if doc.Root == nil {
		return ""
	}
	var sb strings.Builder
	fetched := 0
	for _, n := range fetch.FindAll(doc.Root, "link") {
		if fetched >= maxStylesheetFetches {
			break
		}
		rel, ok := fetch.Attr(n, "rel")
		if !ok || !strings.EqualFold(strings.TrimSpace(rel), "stylesheet") {
			continue
		}
		href, ok := fetch.Attr(n, "href")
		if !ok || href == "" {
			continue
		}
		sheet, err := o.staticF.Fetch(ctx, resolveStylesheetURL(doc.FinalURL, href))
		if err != nil {
			continue
		}
		sb.WriteString(sheet.RawHTML)
		sb.WriteString("\n")
		fetched++
	}
	return sb.String()
}

// resolveStylesheetURL turns a (possibly relative) href from the document
// into an absolute URL against base, the same way imprint.locateImprintPage
// resolves footer links.
func resolveStylesheetURL(base, ref string) string {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	base = strings.TrimSuffix(base, "/")
	if !strings.HasPrefix(ref, "/") {
		ref = "/" + ref
	}
	schemeEnd := strings.Index(base, "://")
	if schemeEnd < 0 {
		return base + ref
	}
	hostStart := schemeEnd + 3
	hostEnd := strings.Index(base[hostStart:], "/")
	if hostEnd < 0 {
		return base + ref
	}
	return base[:hostStart+hostEnd] + ref
}

// unreachableScan builds the synthetic single-issue scan recorded when the
// target could not be analyzed at all: a transport failure from the
// fetcher, or a non-2xx response with no document to run checks against.
// This is a target fault, not a compliscan fault, so Scan reports it as an
// ordinary (if maximally scored) result rather than an error (spec §7).
func unreachableScan(scanID string, req domain.ScanRequest, cause error) domain.Scan {
	loc := domain.Locator{Kind: domain.LocatorSelector, Selector: "site"}
	issue := domain.Issue{
		ID:          domain.NewIssueID(scanID, domain.PillarImprint, loc.String()),
		ScanID:      scanID,
		Pillar:      domain.PillarImprint,
		Severity:    domain.SeverityCritical,
		Title:       "Site unreachable",
		Description: fmt.Sprintf("%s could not be fetched or returned a non-2xx response: %v", req.URL, cause),
		RiskEuro:    5000,
		Locator:     &loc,
	}
	return domain.Scan{
		ID:        scanID,
		URL:       req.URL,
		UserID:    req.UserID,
		Timestamp: time.Now(),
		Issues:    []domain.Issue{issue},
		PillarScores: map[domain.Pillar]int{
			domain.PillarImprint:       0,
			domain.PillarPrivacy:       0,
			domain.PillarCookie:        0,
			domain.PillarAccessibility: 0,
		},
		OverallScore:  0,
		TotalRiskEuro: issue.RiskEuro,
	}
}

// runChecks fans the four pillar checks and the classifier's findings out
// concurrently, giving each its own per-check deadline; a check that
// panics or overruns its deadline degrades to a single "partial
// analysis" warning issue for its pillar rather than failing the whole
// scan (spec §5).
func (o *Orchestrator) runChecks(ctx context.Context, scanID string, doc *fetch.Document, css string, services []domain.MatchedService) []domain.Issue {
	g, gctx := errgroup.WithContext(ctx)
	results := make([][]domain.Issue, 4)

	run := func(idx int, pillar domain.Pillar, fn func(context.Context) []domain.Issue) {
		g.Go(func() (err error) {
			checkCtx, cancel := context.WithTimeout(gctx, o.cfg.Concurrency.PerCheckTimeout())
			defer cancel()
			defer func() {
				if r := recover(); r != nil {
					logging.Get(logging.CategoryOrchestrator).Error("orchestrator: check %s panicked: %v", pillar, r)
					results[idx] = []domain.Issue{partialAnalysisIssue(scanID, pillar, fmt.Sprintf("%v", r))}
				}
			}()
			results[idx] = fn(checkCtx)
			if checkCtx.Err() == context.DeadlineExceeded {
				results[idx] = []domain.Issue{partialAnalysisIssue(scanID, pillar, "check exceeded its deadline")}
			}
			return nil
		})
	}

	run(0, domain.PillarImprint, func(ctx context.Context) []domain.Issue {
		return imprint.Check(ctx, scanID, doc, o.staticF)
	})
	run(1, domain.PillarPrivacy, func(ctx context.Context) []domain.Issue {
		return privacy.Check(ctx, scanID, doc, o.staticF, services)
	})
	run(2, domain.PillarCookie, func(context.Context) []domain.Issue {
		return cookie.Check(scanID, doc, services)
	})
	run(3, domain.PillarAccessibility, func(context.Context) []domain.Issue {
		return accessibility.Check(scanID, doc, css)
	})

	_ = g.Wait() // each run() swallows its own error via recover; nothing to propagate

	var issues []domain.Issue
	for _, r := range results {
		issues = append(issues, r...)
	}
	return issues
}

func partialAnalysisIssue(scanID string, pillar domain.Pillar, reason string) domain.Issue {
	loc := domain.Locator{Kind: domain.LocatorSelector, Selector: "partial-analysis:" + string(pillar)}
	return domain.Issue{
		ID:          domain.NewIssueID(scanID, pillar, loc.String()),
		ScanID:      scanID,
		Pillar:      pillar,
		Severity:    domain.SeverityWarning,
		Title:       fmt.Sprintf("Partial analysis: %s", pillar),
		Description: "This pillar's check could not complete: " + reason,
		Locator:     &loc,
	}
}

func sortIssues(issues []domain.Issue) {
	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].Pillar.Order() != issues[j].Pillar.Order() {
			return issues[i].Pillar.Order() < issues[j].Pillar.Order()
		}
		if issues[i].Severity.Order() != issues[j].Severity.Order() {
			return issues[i].Severity.Order() < issues[j].Severity.Order()
		}
		return issues[i].Title < issues[j].Title
	})
}

// persistWithCancellationBudget saves scan. If ctx is cancelled before the
// save finishes, it waits up to the configured cancellation budget for the
// save; if the save is still pending then, it deletes the scan row and
// returns Cancelled rather than leaving a half-committed scan visible
// (spec §5).
func (o *Orchestrator) persistWithCancellationBudget(ctx context.Context, scan domain.Scan) error {
	saveCtx, cancel := context.WithTimeout(context.Background(), o.cfg.Concurrency.WholeScanTimeout())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- o.store.SaveScan(saveCtx, scan) }()

	budget := time.Duration(o.cfg.Concurrency.CancellationBudgetMs) * time.Millisecond
	select {
	case err := <-done:
		if err != nil {
			return scanerr.Dependencyf("scan_persist_failed", err, "could not persist scan")
		}
		return nil
	case <-ctx.Done():
		select {
		case err := <-done:
			if err != nil {
				return scanerr.Dependencyf("scan_persist_failed", err, "could not persist scan")
			}
			return nil
		case <-time.After(budget):
			if delErr := o.store.DeleteScan(context.Background(), scan.ID); delErr != nil {
				logging.Get(logging.CategoryOrchestrator).Warn("orchestrator: rollback delete failed for scan %s: %v", scan.ID, delErr)
			}
			return scanerr.CancelledErr()
		}
	}
}

func (o *Orchestrator) acquireSlot(userID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.inFlight[userID] >= o.cfg.Concurrency.PerUserMaxInFlight {
		return false
	}
	o.inFlight[userID]++
	return true
}

func (o *Orchestrator) releaseSlot(userID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.inFlight[userID]--
	if o.inFlight[userID] <= 0 {
		delete(o.inFlight, userID)
	}
}

// GenerateFixes loads scan, verifies ownership, and dispatches every
// requested issue to the fix generator (spec §4.G, §6).
func (o *Orchestrator) GenerateFixes(ctx context.Context, req domain.FixesRequest) (domain.FixesResult, error) {
	scan, found, err := o.store.LoadScan(ctx, req.ScanID)
	if err != nil {
		return domain.FixesResult{}, scanerr.Dependencyf("scan_load_failed", err, "could not load scan %s", req.ScanID)
	}
	if !found {
		return domain.FixesResult{}, scanerr.NotFoundf("scan_not_found", "no scan %s", req.ScanID)
	}
	if scan.UserID != req.UserID {
		return domain.FixesResult{}, scanerr.PermissionDeniedf("not_scan_owner", "user %s does not own scan %s", req.UserID, req.ScanID)
	}

	byID := make(map[string]domain.Issue, len(scan.Issues))
	for _, issue := range scan.Issues {
		byID[issue.ID] = issue
	}
	var selected []domain.Issue
	for _, id := range req.IssueIDs {
		if issue, ok := byID[id]; ok {
			selected = append(selected, issue)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, o.cfg.Concurrency.FixGenTimeout())
	defer cancel()

	var info domain.CompanyInfo
	if req.CompanyInfo != nil {
		info = *req.CompanyInfo
	}

	result := o.fixgen.Generate(ctx, scan.ID, req.UserID, selected, scan.MatchedServices, info)

	for i, fix := range result.Fixes {
		ok, remaining, err := o.quota.TryConsume(ctx, req.UserID, domain.QuotaFix, 1)
		if err != nil {
			return domain.FixesResult{}, err
		}
		if !ok {
			result.Failed[fix.IssueID] = scanerr.QuotaErr("fix", remaining).Error()
			continue
		}
		if err := o.store.SaveFix(ctx, fix); err != nil {
			logging.Get(logging.CategoryOrchestrator).Warn("orchestrator: fix persist failed for %s: %v", fix.ID, err)
		}
		if err := o.audit.FixGenerated(context.Background(), req.UserID, fix.ID, map[string]interface{}{"issue_id": fix.IssueID, "pillar": fix.Pillar}); err != nil {
			logging.Get(logging.CategoryOrchestrator).Warn("orchestrator: audit append failed for fix %s: %v", fix.ID, err)
		}
		result.Fixes[i] = fix
	}

	remaining, err := o.quota.Remaining(ctx, req.UserID, domain.QuotaFix)
	if err != nil {
		logging.Get(logging.CategoryOrchestrator).Warn("orchestrator: could not read remaining fix quota for %s: %v", req.UserID, err)
	}
	result.QuotaRemaining = remaining
	return result, nil
}

// store satisfies both quota.Store and audit.Store via *store.Store; this
// blank var gives a compile-time assertion that the concrete type never
// drifts from the interfaces the orchestrator depends on.
var (
	_ quota.Store = (*store.Store)(nil)
	_ audit.Store = (*store.Store)(nil)
	_ ScanStore   = (*store.Store)(nil)
)
