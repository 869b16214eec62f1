// Package imprint implements the TMG §5 imprint/provider-disclosure check
// (spec §4.C.1).
package imprint

import (
	"context"
	"regexp"
	"strings"

	"compliscan/internal/domain"
	"compliscan/internal/fetch"
	"compliscan/internal/logging"
)

var (
	linkPattern   = regexp.MustCompile(`(?i)impressum|imprint|legal notice`)
	vatPattern    = regexp.MustCompile(`DE\d{9}`)
	legalForm     = regexp.MustCompile(`(?i)\bGmbH\b|\bAG\b|\bUG\b`)
	emailPattern  = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phonePattern  = regexp.MustCompile(`(\+49|0)[\s\-/]?\(?\d{2,5}\)?[\s\-/]?\d{3,}`)
	poBoxPattern  = regexp.MustCompile(`(?i)postfach|p\.?\s*o\.?\s*box`)
	streetPattern = regexp.MustCompile(`[A-ZÄÖÜa-zäöüß\.\s]+\d+[a-zA-Z]?\s*,?\s*\d{4,5}\s+[A-ZÄÖÜa-zäöüß\s]+`)
	fallbackPaths = []string{"/impressum", "/legal", "/imprint"}
)

// Fetcher is the subset of the fetch package the imprint check needs to
// chase a candidate imprint page; it is satisfied by *fetch.StaticFetcher.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*fetch.Document, error)
}

// Check runs the imprint battery against the scanned document, following
// a discovered imprint page with fetcher if one exists.
func Check(ctx context.Context, scanID string, doc *fetch.Document, fetcher Fetcher) []domain.Issue {
	log := logging.Get(logging.CategoryCheckImprint)

	page, warn := locateImprintPage(ctx, scanID, doc, fetcher)
	if page == nil {
		log.Debug("no imprint page found for scan %s", scanID)
		return []domain.Issue{missingImprintIssue(scanID)}
	}

	text := fetch.Text(page.Root)
	var issues []domain.Issue

	if poBoxPattern.MatchString(text) && !streetPattern.MatchString(removePOBoxLines(text)) {
		issues = append(issues, poBoxIssue(scanID))
	} else if !streetPattern.MatchString(text) {
		issues = append(issues, missingFieldIssue(scanID, "address", "Missing ladungsfähige Anschrift (street, postal code, city)", 2000))
	}

	if !emailPattern.MatchString(text) {
		issues = append(issues, missingFieldIssue(scanID, "email", "Missing contact e-mail address", 1500))
	}
	if !phonePattern.MatchString(text) {
		issues = append(issues, missingFieldIssue(scanID, "phone", "Missing contact phone number", 1500))
	}
	if legalForm.MatchString(text) && !vatPattern.MatchString(text) {
		issues = append(issues, missingFieldIssue(scanID, "vat_id", "Missing VAT identification number for a registered legal entity", 1000))
	}
	if legalForm.MatchString(text) && !strings.Contains(strings.ToLower(text), "registergericht") && !strings.Contains(strings.ToLower(text), "register court") {
		issues = append(issues, missingFieldIssue(scanID, "register", "Missing commercial register court and number for a registered legal entity", 1500))
	}
	lowerText := strings.ToLower(text)
	if !strings.Contains(lowerText, "vertretungsberechtigt") && !strings.Contains(lowerText, "verantwortlich") && !strings.Contains(lowerText, "responsible") && !hasPersonName(text) {
		issues = append(issues, missingFieldIssue(scanID, "responsible_person", "Missing responsible person (Verantwortlicher)", 500))
	}

	if warn != "" {
		log.Warn("imprint: %s", warn)
	}
	return issues
}

var nameLikePattern = regexp.MustCompile(`\b[A-ZÄÖÜ][a-zäöüß]+\s+[A-ZÄÖÜ][a-zäöüß]+\b`)

// hasPersonName looks for a plausible person name used as a stand-in for an
// explicit "Verantwortlich für den Inhalt" declaration. Address and contact
// lines are excluded first: a name incidentally present in a street or PO
// box line (e.g. "Max Mustermann, Postfach 123, 12345 Musterstadt") is not a
// declaration of who is responsible for the content.
func hasPersonName(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		if poBoxPattern.MatchString(line) || streetPattern.MatchString(line) || emailPattern.MatchString(line) {
			continue
		}
		if nameLikePattern.MatchString(line) {
			return true
		}
	}
	return false
}

func removePOBoxLines(text string) string {
	lines := strings.Split(text, "\n")
	var kept []string
	for _, l := range lines {
		if !poBoxPattern.MatchString(l) {
			kept = append(kept, l)
		}
	}
	return strings.Join(kept, "\n")
}

// locateImprintPage finds the imprint page by footer link text, falling
// back to well-known paths, and fetches it.
func locateImprintPage(ctx context.Context, scanID string, doc *fetch.Document, fetcher Fetcher) (*fetch.Document, string) {
	if doc.Root == nil {
		return nil, ""
	}
	for _, a := range fetch.FindAll(doc.Root, "a") {
		text := fetch.Text(a)
		href, ok := fetch.Attr(a, "href")
		if !ok || href == "" {
			continue
		}
		if linkPattern.MatchString(text) {
			resolved := resolveURL(doc.FinalURL, href)
			page, err := fetcher.Fetch(ctx, resolved)
			if err == nil && page.Root != nil {
				return page, ""
			}
		}
	}
	for _, path := range fallbackPaths {
		resolved := resolveURL(doc.FinalURL, path)
		page, err := fetcher.Fetch(ctx, resolved)
		if err == nil && page.Root != nil && page.StatusCode >= 200 && page.StatusCode < 300 {
			return page, ""
		}
	}
	return nil, "no imprint page discoverable via links or fallback paths"
}

func resolveURL(base, ref string) string {
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

func missingImprintIssue(scanID string) domain.Issue {
	loc := domain.Locator{Kind: domain.LocatorSelector, Selector: "footer"}
	return domain.Issue{
		ID:          domain.NewIssueID(scanID, domain.PillarImprint, loc.String()),
		ScanID:      scanID,
		Pillar:      domain.PillarImprint,
		Severity:    domain.SeverityCritical,
		Title:       "Missing imprint page",
		Description: "No imprint (Impressum) page could be found via footer links or common fallback paths.",
		RiskEuro:    3000,
		LegalBasis:  "TMG §5",
		Missing:     true,
		Locator:     &loc,
	}
}

func poBoxIssue(scanID string) domain.Issue {
	loc := domain.Locator{Kind: domain.LocatorSelector, Selector: "imprint address"}
	return domain.Issue{
		ID:          domain.NewIssueID(scanID, domain.PillarImprint, loc.String()),
		ScanID:      scanID,
		Pillar:      domain.PillarImprint,
		Severity:    domain.SeverityCritical,
		Title:       "PO box used as sole address",
		Description: "The imprint lists only a Postfach (PO box); TMG §5 requires a ladungsfähige Anschrift.",
		RiskEuro:    2000,
		LegalBasis:  "TMG §5 Nr. 1",
		AutoFixable: true,
		Hints:       &domain.Hints{Imprint: &domain.ImprintHints{MissingField: "address"}},
		Locator:     &loc,
	}
}

func missingFieldIssue(scanID, field, title string, risk int) domain.Issue {
	loc := domain.Locator{Kind: domain.LocatorSelector, Selector: "imprint " + field}
	return domain.Issue{
		ID:          domain.NewIssueID(scanID, domain.PillarImprint, loc.String()),
		ScanID:      scanID,
		Pillar:      domain.PillarImprint,
		Severity:    domain.SeverityWarning,
		Title:       title,
		Description: title,
		RiskEuro:    risk,
		LegalBasis:  "TMG §5",
		AutoFixable: true,
		Missing:     true,
		Hints:       &domain.Hints{Imprint: &domain.ImprintHints{MissingField: field}},
		Locator:     &loc,
	}
}
