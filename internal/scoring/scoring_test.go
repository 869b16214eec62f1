package scoring_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"compliscan/internal/domain"
	"compliscan/internal/scoring"
)

func TestPillarScores_NoIssuesIsPerfect(t *testing.T) {
	scores := scoring.PillarScores(nil)
	for _, pillar := range []domain.Pillar{domain.PillarImprint, domain.PillarPrivacy, domain.PillarCookie, domain.PillarAccessibility} {
		require.Equal(t, 100, scores[pillar])
	}
}

func TestPillarScores_ClampedAtZero(t *testing.T) {
	issues := make([]domain.Issue, 10)
	for i := range issues {
		issues[i] = domain.Issue{Pillar: domain.PillarCookie, Severity: domain.SeverityCritical}
	}
	scores := scoring.PillarScores(issues)
	require.Equal(t, 0, scores[domain.PillarCookie])
	require.Equal(t, 100, scores[domain.PillarImprint], "other pillars unaffected")
}

func TestPillarScores_SeverityWeights(t *testing.T) {
	issues := []domain.Issue{
		{Pillar: domain.PillarImprint, Severity: domain.SeverityCritical},
		{Pillar: domain.PillarImprint, Severity: domain.SeverityWarning},
		{Pillar: domain.PillarImprint, Severity: domain.SeverityInfo},
	}
	scores := scoring.PillarScores(issues)
	require.Equal(t, 100-20-8-2, scores[domain.PillarImprint])
}

func TestOverallScore_WithinBounds(t *testing.T) {
	scores := map[domain.Pillar]int{
		domain.PillarImprint:       100,
		domain.PillarPrivacy:       0,
		domain.PillarCookie:        50,
		domain.PillarAccessibility: 80,
	}
	overall := scoring.OverallScore(scores)
	require.GreaterOrEqual(t, overall, 0)
	require.LessOrEqual(t, overall, 100)
	// 100*.15 + 0*.35 + 50*.20 + 80*.30 = 15 + 0 + 10 + 24 = 49
	require.Equal(t, 49, overall)
}

func TestOverallScore_AllPerfectIsHundred(t *testing.T) {
	scores := map[domain.Pillar]int{
		domain.PillarImprint:       100,
		domain.PillarPrivacy:       100,
		domain.PillarCookie:        100,
		domain.PillarAccessibility: 100,
	}
	require.Equal(t, 100, scoring.OverallScore(scores))
}

func TestTotalRiskEuro_SumsAllIssues(t *testing.T) {
	issues := []domain.Issue{
		{RiskEuro: 1000},
		{RiskEuro: 2500},
		{RiskEuro: 0},
	}
	require.Equal(t, 3500, scoring.TotalRiskEuro(issues))
}
