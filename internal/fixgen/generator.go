// Package fixgen turns a compliance Issue into a deployable remediation
// Artifact: canonical legal text, a cookie-consent bundle, a CSS contrast
// override, a focus-visibility rule, a widget snippet, or an LLM-assisted
// alt-text/legal-paragraph draft (spec §4.G). Every artifact is validated
// before being handed back; one that fails validation is downgraded to a
// manual guide rather than shipped broken (spec §9).
package fixgen

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"compliscan/internal/config"
	"compliscan/internal/domain"
	"compliscan/internal/logging"
)

// LegalParagraphGenerator is the subset of *llm.Client PrivacyText needs to
// draft a per-service paragraph instead of falling back to the static
// template sentence.
type LegalParagraphGenerator interface {
	GenerateLegalParagraph(ctx context.Context, serviceName, purposeHint string) (string, error)
}

// Generator dispatches issues to their fix template, validates the result,
// and deduplicates repeat requests within the idempotency window.
type Generator struct {
	altText AltTextGenerator
	legal   LegalParagraphGenerator
	cache   *idempotencyCache
}

// New builds a Generator. Either collaborator may be nil; every fix
// template degrades to a deterministic or guide-type result without one.
func New(altText AltTextGenerator, legal LegalParagraphGenerator, cfg config.QuotaConfig) *Generator {
	return &Generator{
		altText: altText,
		legal:   legal,
		cache:   newIdempotencyCache(cfg.IdempotencyCacheSize, cfg.IdempotencyWindow()),
	}
}

// Generate produces one GeneratedFix per requested issue found in issues,
// in issue order. Issues outside the scan's issue set are silently
// skipped by the caller (the orchestrator filters before calling in).
func (g *Generator) Generate(ctx context.Context, scanID, userID string, issues []domain.Issue, services []domain.MatchedService, info domain.CompanyInfo) domain.FixesResult {
	log := logging.Get(logging.CategoryFixgen)
	key := idempotencyKey(scanID, issues, info)

	if cached, ok := g.cache.get(key); ok {
		log.Debug("fixgen: idempotency hit for scan %s (%d issues)", scanID, len(issues))
		return domain.FixesResult{Fixes: cached}
	}

	result := domain.FixesResult{Failed: map[string]string{}}
	for _, issue := range issues {
		fix, err := g.generateOne(ctx, scanID, userID, issue, services, info)
		if err != nil {
			result.Failed[issue.ID] = err.Error()
			continue
		}
		result.Fixes = append(result.Fixes, fix)
	}

	g.cache.put(key, result.Fixes)
	return result
}

func (g *Generator) generateOne(ctx context.Context, scanID, userID string, issue domain.Issue, services []domain.MatchedService, info domain.CompanyInfo) (domain.GeneratedFix, error) {
	timer := logging.StartTimer(logging.CategoryFixgen, "generate_one")
	defer timer.Stop()

	art, fixType, source := g.dispatch(ctx, issue, services, info)

	validation := validateArtifact(art)
	if validation.Status == domain.ValidationErrors {
		art = downgradeToGuide(art, validation)
		fixType = domain.FixTypeGuide
	}

	return domain.GeneratedFix{
		ID:             uuid.NewString(),
		ScanID:         scanID,
		UserID:         userID,
		IssueID:        issue.ID,
		Pillar:         issue.Pillar,
		Type:           fixType,
		GeneratedAt:    nowFromContext(ctx),
		Artifact:       art,
		Validation:     validation,
		Source:         source,
		IdempotencyKey: idempotencyKey(scanID, []domain.Issue{issue}, info),
	}, nil
}

// dispatch routes an issue to its template by pillar and, within
// accessibility, by the locator kind the check populated.
func (g *Generator) dispatch(ctx context.Context, issue domain.Issue, services []domain.MatchedService, info domain.CompanyInfo) (domain.Artifact, domain.FixType, domain.FixSource) {
	switch issue.Pillar {
	case domain.PillarImprint:
		return ImprintText(info), domain.FixTypeText, domain.FixSourceTemplate

	case domain.PillarPrivacy:
		narrowed := services
		if issue.Hints != nil && issue.Hints.Privacy != nil && issue.Hints.Privacy.ServiceKey != "" {
			narrowed = filterServices(services, issue.Hints.Privacy.ServiceKey)
		}
		if g.legal != nil {
			art := PrivacyText(info, narrowed, g.legalParagraphFunc(ctx))
			return art, domain.FixTypeText, domain.FixSourceHybrid
		}
		return PrivacyText(info, narrowed, nil), domain.FixTypeText, domain.FixSourceTemplate

	case domain.PillarCookie:
		return CookieBanner(services), domain.FixTypeCode, domain.FixSourceTemplate

	case domain.PillarAccessibility:
		return g.dispatchAccessibility(ctx, issue)
	}

	return domain.Artifact{Explanation: "No remediation template for this issue; manual review required."}, domain.FixTypeGuide, domain.FixSourceTemplate
}

func (g *Generator) dispatchAccessibility(ctx context.Context, issue domain.Issue) (domain.Artifact, domain.FixType, domain.FixSource) {
	loc := issue.Locator

	switch {
	case loc != nil && loc.Kind == domain.LocatorColorPair:
		required := 4.5
		if issue.Hints != nil && issue.Hints.Accessibility != nil && issue.Hints.Accessibility.RequiredRatio > 0 {
			required = issue.Hints.Accessibility.RequiredRatio
		}
		selector := fmt.Sprintf("[style*=%q]", "color: "+loc.Foreground)
		art, _, _ := ContrastFix(selector, loc.Foreground, loc.Background, required)
		return art, domain.FixTypeCode, domain.FixSourceTemplate

	case loc != nil && loc.Kind == domain.LocatorImageSrc:
		imageURL := strings.Split(loc.ImageSrc, ",")[0]
		art, confidence, autoFixable := AltTextFix(ctx, g.altText, imageURL, issue.Description, issue.Title)
		source := domain.FixSourceLLM
		if !autoFixable {
			source = domain.FixSourceTemplate
		}
		_ = confidence
		return art, domain.FixTypeText, source

	case strings.Contains(issue.Title, "Focus indicator"):
		return FocusVisibilityFix(""), domain.FixTypeCode, domain.FixSourceTemplate

	case strings.Contains(issue.Title, "accessibility widget"):
		return WidgetFix("default"), domain.FixTypeWidget, domain.FixSourceTemplate
	}

	return domain.Artifact{
		Explanation:             "This finding requires a manual code change; no automatic template applies.",
		IntegrationInstructions: issue.Description,
	}, domain.FixTypeGuide, domain.FixSourceTemplate
}

func (g *Generator) legalParagraphFunc(ctx context.Context) func(serviceName, purposeHint string) string {
	return func(serviceName, purposeHint string) string {
		text, err := g.legal.GenerateLegalParagraph(ctx, serviceName, purposeHint)
		if err != nil {
			return ""
		}
		return text
	}
}

func filterServices(services []domain.MatchedService, key string) []domain.MatchedService {
	for _, svc := range services {
		if svc.Entry.Key == key {
			return []domain.MatchedService{svc}
		}
	}
	return services
}

// idempotencyKey hashes the (scan, issue id set, company info) triple so a
// repeat GenerateFixes call within the window returns the cached result
// instead of burning quota or an LLM call again (spec §5).
func idempotencyKey(scanID string, issues []domain.Issue, info domain.CompanyInfo) string {
	ids := make([]string, len(issues))
	for i, issue := range issues {
		ids[i] = issue.ID
	}
	sort.Strings(ids)

	h := sha1.New()
	fmt.Fprintf(h, "%s|%s|%+v", scanID, strings.Join(ids, ","), info)
	return hex.EncodeToString(h.Sum(nil))
}

// nowFromContext lets tests inject a deterministic clock via context; in
// production callers never set the key and time.Now is used.
type clockKey struct{}

func nowFromContext(ctx context.Context) time.Time {
	if t, ok := ctx.Value(clockKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// idempotencyCache is a bounded LRU keyed on the request
// hash computed by idempotencyKey. Hand-rolled rather than pulling in a
// generic cache library: the eviction policy is two lines and the spec
// asks for exactly this one behavior (spec §5: 24h idempotency window).
// An entry older than the TTL reads as a miss; it stays in the cache
// until it is overwritten or evicted.
type idempotencyCache struct {
	mu       sync.Mutex
	cap      int
	ttl      time.Duration
	order    []string
	entries  map[string]cacheEntry
}

type cacheEntry struct {
	fixes     []domain.GeneratedFix
	expiresAt time.Time
}

func newIdempotencyCache(capacity int, ttl time.Duration) *idempotencyCache {
	return &idempotencyCache{
		cap:     capacity,
		ttl:     ttl,
		entries: make(map[string]cacheEntry, capacity),
	}
}

func (c *idempotencyCache) get(key string) ([]domain.GeneratedFix, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	for i, k := range c.order {
		if k == key {
			c.order = append(append(c.order[:i:i], c.order[i+1:]...), key)
			break
		}
	}
	return entry.fixes, true
}

func (c *idempotencyCache) put(key string, fixes []domain.GeneratedFix) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists {
		c.order = append(c.order, key)
		if len(c.order) > c.cap {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
	}
	c.entries[key] = cacheEntry{fixes: fixes, expiresAt: time.Now().Add(c.ttl)}
}
