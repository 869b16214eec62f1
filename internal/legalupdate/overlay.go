// Package legalupdate applies the legal-update overlay (spec §4.F): a
// deterministic post-processing pass that raises the severity and
// monetary risk of issues affected by recently published legal changes.
package legalupdate

import (
	"fmt"
	"strings"
	"time"

	"compliscan/internal/domain"
)

// Source is a read-only snapshot of legal updates, loaded at scan time.
// The collaborator that populates it (legal-news ingestion) is out of
// scope (spec §1).
type Source interface {
	// Updates returns every update published within the lookback window.
	Updates(now time.Time) []domain.LegalUpdate
}

// pillarKeywords is the per-pillar keyword set used for the keyword-
// overlap match (spec §4.F).
var pillarKeywords = map[domain.Pillar][]string{
	domain.PillarImprint:       {"impressum", "tmg"},
	domain.PillarPrivacy:       {"dsgvo", "gdpr", "datenschutz"},
	domain.PillarCookie:        {"cookie", "ttdsg", "tracking", "consent", "einwilligung"},
	domain.PillarAccessibility: {"bfsg", "wcag", "barrierefreiheit", "accessibility"},
}

// Result summarizes the overlay's effect at the scan level.
type Result struct {
	Applied    bool
	Count      int
	RiskDelta  int
}

// Apply mutates issues in place, boosting severity and risk for every
// issue matched by at least one active legal update, and returns the
// scan-level summary.
func Apply(issues []domain.Issue, updates []domain.LegalUpdate) Result {
	var result Result
	for i := range issues {
		matches := matchingUpdates(issues[i], updates)
		if len(matches) == 0 {
			continue
		}
		before := issues[i].RiskEuro
		beforeSeverity := issues[i].Severity

		steps, multiplier, strongest := boostFor(matches)
		issues[i].Severity = issues[i].Severity.Step(steps)
		issues[i].RiskEuro = int(float64(issues[i].RiskEuro) * multiplier)

		for _, u := range matches {
			issues[i].LegalUpdateRefs = append(issues[i].LegalUpdateRefs, domain.LegalUpdateRef{ID: u.ID, Title: u.Title})
		}
		issues[i].RiskIncreaseReason = fmt.Sprintf(
			"boosted by %d legal update(s), strongest severity %q: %s -> %s, risk %d -> %d",
			len(matches), strongest, beforeSeverity, issues[i].Severity, before, issues[i].RiskEuro,
		)

		result.Applied = true
		result.Count++
		result.RiskDelta += issues[i].RiskEuro - before
	}
	return result
}

func matchingUpdates(issue domain.Issue, updates []domain.LegalUpdate) []domain.LegalUpdate {
	keywords := pillarKeywords[issue.Pillar]
	var out []domain.LegalUpdate
	for _, u := range updates {
		if !pillarMember(issue.Pillar, u.Pillars) {
			continue
		}
		haystack := strings.ToLower(u.Title + " " + u.Description)
		matched := false
		for _, kw := range keywords {
			if strings.Contains(haystack, kw) {
				matched = true
				break
			}
		}
		if matched {
			out = append(out, u)
		}
	}
	return out
}

func pillarMember(pillar domain.Pillar, pillars []domain.Pillar) bool {
	for _, p := range pillars {
		if p == pillar {
			return true
		}
	}
	return false
}

// boostFor picks the strongest boost among the matching updates: a
// critical update always wins over high or medium (spec §4.F).
func boostFor(updates []domain.LegalUpdate) (steps int, multiplier float64, strongest domain.LegalUpdateSeverity) {
	strongest = domain.LegalSeverityInfo
	rank := map[domain.LegalUpdateSeverity]int{
		domain.LegalSeverityCritical: 3,
		domain.LegalSeverityHigh:     2,
		domain.LegalSeverityMedium:   1,
		domain.LegalSeverityInfo:     0,
	}
	for _, u := range updates {
		if rank[u.Severity] > rank[strongest] {
			strongest = u.Severity
		}
	}
	switch strongest {
	case domain.LegalSeverityCritical:
		return 2, 1.5, strongest
	case domain.LegalSeverityHigh:
		return 1, 1.3, strongest
	case domain.LegalSeverityMedium:
		return 0, 1.2, strongest
	default:
		return 0, 1.0, strongest
	}
}
