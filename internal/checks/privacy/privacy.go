// Package privacy implements the GDPR privacy-policy check (spec §4.C.2).
package privacy

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"compliscan/internal/domain"
	"compliscan/internal/fetch"
	"compliscan/internal/logging"
)

var (
	linkPattern      = regexp.MustCompile(`(?i)datenschutz|privacy|datenschutzerkl(ä|ae)rung`)
	art6Pattern      = regexp.MustCompile(`Art\.?\s*6`)
	retentionPattern = regexp.MustCompile(`(?i)speicherdauer|retention period|how long we (keep|store|retain)`)
	purposesPattern  = regexp.MustCompile(`(?i)zweck|purpose`)
	controllerPattern = regexp.MustCompile(`(?i)verantwortlich|data controller|controller`)
	authorityPattern = regexp.MustCompile(`(?i)aufsichtsbeh(ö|oe)rde|supervisory authority|beschwerde.{0,20}recht`)
	fallbackPaths    = []string{"/datenschutz", "/privacy", "/privacy-policy"}

	rightsKeywords = map[string]*regexp.Regexp{
		"access":      regexp.MustCompile(`(?i)auskunft|right to access|right of access`),
		"rectification": regexp.MustCompile(`(?i)berichtigung|rectification`),
		"erasure":     regexp.MustCompile(`(?i)l(ö|oe)schung|erasure|right to be forgotten`),
		"restriction": regexp.MustCompile(`(?i)einschr(ä|ae)nkung|restriction of processing`),
		"portability": regexp.MustCompile(`(?i)daten(ü|ue)bertragbarkeit|portability`),
		"objection":   regexp.MustCompile(`(?i)widerspruch|right to object|objection`),
		"withdrawal":  regexp.MustCompile(`(?i)widerruf|withdraw(al)? (of )?consent`),
	}
)

// Fetcher mirrors imprint.Fetcher; kept as its own interface so this
// package has no dependency on the imprint package.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*fetch.Document, error)
}

// Check runs the privacy-policy battery, cross-checking each detected
// tracking service (spec §4.D) against the policy text.
func Check(ctx context.Context, scanID string, doc *fetch.Document, fetcher Fetcher, services []domain.MatchedService) []domain.Issue {
	log := logging.Get(logging.CategoryCheckPrivacy)

	page := locatePrivacyPage(ctx, doc, fetcher)
	if page == nil {
		log.Debug("no privacy policy page found for scan %s", scanID)
		return []domain.Issue{missingPolicyIssue(scanID)}
	}

	text := fetch.Text(page.Root)
	var issues []domain.Issue

	if !controllerPattern.MatchString(text) {
		issues = append(issues, missingSectionIssue(scanID, "controller_identity", "Missing controller identity and contact details", 2000))
	}
	if !purposesPattern.MatchString(text) {
		issues = append(issues, missingSectionIssue(scanID, "processing_purposes", "Missing enumerated processing purposes", 2000))
	}
	if !art6Pattern.MatchString(text) {
		issues = append(issues, missingSectionIssue(scanID, "legal_basis", "Missing legal basis citing GDPR Art. 6", 2500))
	}
	if !retentionPattern.MatchString(text) {
		issues = append(issues, missingSectionIssue(scanID, "retention", "Missing data retention statement", 1500))
	}
	if !authorityPattern.MatchString(text) {
		issues = append(issues, missingSectionIssue(scanID, "supervisory_authority", "Missing right to complain to a supervisory authority", 1500))
	}
	for right, pattern := range rightsKeywords {
		if !pattern.MatchString(text) {
			issues = append(issues, missingSectionIssue(scanID, "right_"+right, fmt.Sprintf("Missing data-subject right: %s", right), 1500))
		}
	}

	for _, svc := range services {
		if !svc.RequiresConsent {
			continue
		}
		if !strings.Contains(strings.ToLower(text), strings.ToLower(svc.Entry.DisplayName)) {
			issues = append(issues, missingServiceSectionIssue(scanID, svc))
		}
	}

	return issues
}

func locatePrivacyPage(ctx context.Context, doc *fetch.Document, fetcher Fetcher) *fetch.Document {
	if doc.Root == nil {
		return nil
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
				return page
			}
		}
	}
	for _, path := range fallbackPaths {
		resolved := resolveURL(doc.FinalURL, path)
		page, err := fetcher.Fetch(ctx, resolved)
		if err == nil && page.Root != nil && page.StatusCode >= 200 && page.StatusCode < 300 {
			return page
		}
	}
	return nil
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

func missingPolicyIssue(scanID string) domain.Issue {
	loc := domain.Locator{Kind: domain.LocatorSelector, Selector: "footer"}
	return domain.Issue{
		ID:          domain.NewIssueID(scanID, domain.PillarPrivacy, loc.String()),
		ScanID:      scanID,
		Pillar:      domain.PillarPrivacy,
		Severity:    domain.SeverityCritical,
		Title:       "Missing privacy policy",
		Description: "No privacy policy (Datenschutzerklärung) page could be found via footer links or common fallback paths.",
		RiskEuro:    5000,
		LegalBasis:  "GDPR Art. 13/14",
		Missing:     true,
		Locator:     &loc,
	}
}

func missingSectionIssue(scanID, section, title string, risk int) domain.Issue {
	loc := domain.Locator{Kind: domain.LocatorSelector, Selector: "privacy " + section}
	return domain.Issue{
		ID:          domain.NewIssueID(scanID, domain.PillarPrivacy, loc.String()),
		ScanID:      scanID,
		Pillar:      domain.PillarPrivacy,
		Severity:    domain.SeverityWarning,
		Title:       title,
		Description: title,
		RiskEuro:    risk,
		LegalBasis:  "GDPR Art. 13/14",
		AutoFixable: true,
		Missing:     true,
		Hints:       &domain.Hints{Privacy: &domain.PrivacyHints{MissingSection: section}},
		Locator:     &loc,
	}
}

func missingServiceSectionIssue(scanID string, svc domain.MatchedService) domain.Issue {
	loc := domain.Locator{Kind: domain.LocatorSelector, Selector: "privacy service:" + svc.Entry.Key}
	return domain.Issue{
		ID:          domain.NewIssueID(scanID, domain.PillarPrivacy, loc.String()),
		ScanID:      scanID,
		Pillar:      domain.PillarPrivacy,
		Severity:    domain.SeverityCritical,
		Title:       fmt.Sprintf("No %s section in privacy policy", svc.Entry.DisplayName),
		Description: fmt.Sprintf("%s is used on the site but the privacy policy has no corresponding section.", svc.Entry.DisplayName),
		RiskEuro:    2500,
		LegalBasis:  "GDPR Art. 13(1)(c)",
		AutoFixable: true,
		Missing:     true,
		Hints:       &domain.Hints{Privacy: &domain.PrivacyHints{ServiceKey: svc.Entry.Key}},
		Locator:     &loc,
	}
}
