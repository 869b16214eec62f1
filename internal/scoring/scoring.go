// Package scoring implements the per-pillar and overall compliance score
// plus total risk accounting (spec §4.E).
package scoring

import "compliscan/internal/domain"

// pillarWeights gives the weighted contribution of each pillar to the
// overall score — "main pillars" weighting from spec §4.E.
var pillarWeights = map[domain.Pillar]float64{
	domain.PillarImprint:       0.15,
	domain.PillarPrivacy:       0.35,
	domain.PillarCookie:        0.20,
	domain.PillarAccessibility: 0.30,
}

// PillarScores computes a 0-100 score per pillar from its issues: start
// at 100, subtract 20 per critical, 8 per warning, 2 per info, clamp at
// 0.
func PillarScores(issues []domain.Issue) map[domain.Pillar]int {
	scores := make(map[domain.Pillar]int, len(pillarWeights))
	for pillar := range pillarWeights {
		scores[pillar] = 100
	}
	for _, issue := range issues {
		switch issue.Severity {
		case domain.SeverityCritical:
			scores[issue.Pillar] -= 20
		case domain.SeverityWarning:
			scores[issue.Pillar] -= 8
		case domain.SeverityInfo:
			scores[issue.Pillar] -= 2
		}
	}
	for pillar, s := range scores {
		if s < 0 {
			scores[pillar] = 0
		}
	}
	return scores
}

// OverallScore computes the weighted average of pillar scores, rounded
// to the nearest integer.
func OverallScore(pillarScores map[domain.Pillar]int) int {
	var weighted float64
	for pillar, weight := range pillarWeights {
		weighted += float64(pillarScores[pillar]) * weight
	}
	return int(weighted + 0.5)
}

// TotalRiskEuro sums every issue's risk in euros.
func TotalRiskEuro(issues []domain.Issue) int {
	total := 0
	for _, issue := range issues {
		total += issue.RiskEuro
	}
	return total
}
