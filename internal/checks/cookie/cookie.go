// Package cookie implements the TTDSG §25 cookie/tracking-consent check
// (spec §4.C.3).
package cookie

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"compliscan/internal/domain"
	"compliscan/internal/fetch"
)

var (
	bannerIDPattern   = regexp.MustCompile(`(?i)cookie|consent|banner`)
	rejectTextPattern = regexp.MustCompile(`(?i)ablehnen|reject|nur notwendige|necessary only`)
)

// Check evaluates consent-mechanism presence, pre-consent tracking, and
// reject-option presence against the fetched document and the services
// the classifier matched on it.
func Check(scanID string, doc *fetch.Document, services []domain.MatchedService) []domain.Issue {
	var issues []domain.Issue

	banner := findConsentBanner(doc)
	if banner == nil {
		issues = append(issues, noBannerIssue(scanID))
	}

	for _, svc := range services {
		if !svc.RequiresConsent {
			continue
		}
		if firedBeforeInteraction(doc, svc, banner) {
			issues = append(issues, trackingWithoutConsentIssue(scanID, svc))
		}
	}

	if banner == nil || !hasRejectButton(banner) {
		issues = append(issues, noRejectOptionIssue(scanID))
	}

	return issues
}

// findConsentBanner returns the first div/section/aside/dialog element
// whose id or class carries a cookie/consent/banner token. Consent-
// management-platform scripts are not recognised as a banner on their own.
func findConsentBanner(doc *fetch.Document) *html.Node {
	if doc.Root == nil {
		return nil
	}
	for _, n := range fetch.FindAll(doc.Root, "div", "section", "aside", "dialog") {
		id, _ := fetch.Attr(n, "id")
		class, _ := fetch.Attr(n, "class")
		if bannerIDPattern.MatchString(id) || bannerIDPattern.MatchString(class) {
			return n
		}
	}
	return nil
}

func hasRejectButton(banner *html.Node) bool {
	for _, btn := range fetch.FindAll(banner, "button", "a") {
		label := accessibleName(btn)
		if rejectTextPattern.MatchString(label) {
			return true
		}
	}
	return false
}

func accessibleName(n *html.Node) string {
	if label, ok := fetch.Attr(n, "aria-label"); ok && label != "" {
		return label
	}
	return fetch.Text(n)
}

// firedBeforeInteraction reports whether svc loaded before any consent
// interaction. Rendered documents carry a NetworkLog (spec §4.B) and are
// judged against it directly. Static documents never populate NetworkLog
// (fetch/document.go), so a service the classifier matched against the raw
// DOM is itself the evidence: its script tag is present unconditionally in
// the markup, and with no consent banner gating it there is nothing that
// could have deferred its load until after an interaction.
func firedBeforeInteraction(doc *fetch.Document, svc domain.MatchedService, banner *html.Node) bool {
	if len(doc.NetworkLog) > 0 {
		for _, ev := range doc.NetworkLog {
			if !ev.BeforeInteraction {
				continue
			}
			for _, pattern := range svc.Entry.ScriptPatterns {
				if pattern != "" && strings.Contains(ev.URL, pattern) {
					return true
				}
			}
		}
		return false
	}
	return banner == nil
}

func noBannerIssue(scanID string) domain.Issue {
	loc := domain.Locator{Kind: domain.LocatorSelector, Selector: "body"}
	return domain.Issue{
		ID:          domain.NewIssueID(scanID, domain.PillarCookie, loc.String()),
		ScanID:      scanID,
		Pillar:      domain.PillarCookie,
		Severity:    domain.SeverityCritical,
		Title:       "No cookie consent mechanism detected",
		Description: "No known consent-management script or cookie/consent/banner element was found on the page.",
		RiskEuro:    4000,
		LegalBasis:  "TTDSG §25",
		AutoFixable: true,
		Missing:     true,
		Locator:     &loc,
	}
}

func trackingWithoutConsentIssue(scanID string, svc domain.MatchedService) domain.Issue {
	loc := domain.Locator{Kind: domain.LocatorSelector, Selector: "network:" + svc.Entry.Key}
	return domain.Issue{
		ID:          domain.NewIssueID(scanID, domain.PillarCookie, loc.String()),
		ScanID:      scanID,
		Pillar:      domain.PillarCookie,
		Severity:    domain.SeverityCritical,
		Title:       "Tracking without consent",
		Description: svc.Entry.DisplayName + " was observed loading before any consent interaction.",
		RiskEuro:    5000,
		LegalBasis:  "TTDSG §25",
		AutoFixable: true,
		Hints: &domain.Hints{Cookie: &domain.CookieHints{
			ServiceKey:  svc.Entry.Key,
			BlockMethod: string(svc.BlockingRecipe),
		}},
		Locator: &loc,
	}
}

func noRejectOptionIssue(scanID string) domain.Issue {
	loc := domain.Locator{Kind: domain.LocatorSelector, Selector: "cookie-banner reject-button"}
	return domain.Issue{
		ID:          domain.NewIssueID(scanID, domain.PillarCookie, loc.String()),
		ScanID:      scanID,
		Pillar:      domain.PillarCookie,
		Severity:    domain.SeverityCritical,
		Title:       "No reject option in cookie banner",
		Description: "The consent banner has no button whose accessible name indicates a reject/necessary-only option.",
		RiskEuro:    2500,
		LegalBasis:  "TTDSG §25",
		AutoFixable: true,
		Missing:     true,
		Hints:       &domain.Hints{Cookie: &domain.CookieHints{RequireButton: true}},
		Locator:     &loc,
	}
}
