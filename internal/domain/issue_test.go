package domain_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"compliscan/internal/domain"
)

func TestNewIssueID_DeterministicForSameLocator(t *testing.T) {
	a := domain.NewIssueID("scan-1", domain.PillarCookie, "cookie:_ga")
	b := domain.NewIssueID("scan-1", domain.PillarCookie, "cookie:_ga")
	require.Equal(t, a, b)
	require.Len(t, a, len("scan-1")+1+len(string(domain.PillarCookie))+1+12)
}

func TestNewIssueID_DiffersOnLocatorOrPillarOrScan(t *testing.T) {
	base := domain.NewIssueID("scan-1", domain.PillarCookie, "cookie:_ga")

	require.NotEqual(t, base, domain.NewIssueID("scan-2", domain.PillarCookie, "cookie:_ga"))
	require.NotEqual(t, base, domain.NewIssueID("scan-1", domain.PillarPrivacy, "cookie:_ga"))
	require.NotEqual(t, base, domain.NewIssueID("scan-1", domain.PillarCookie, "cookie:_gid"))
}

func TestSeverity_Order_CriticalSortsFirst(t *testing.T) {
	require.Less(t, domain.SeverityCritical.Order(), domain.SeverityWarning.Order())
	require.Less(t, domain.SeverityWarning.Order(), domain.SeverityInfo.Order())
}

func TestSeverity_Step_CeilsAtCritical(t *testing.T) {
	require.Equal(t, domain.SeverityCritical, domain.SeverityInfo.Step(5))
	require.Equal(t, domain.SeverityWarning, domain.SeverityInfo.Step(1))
	require.Equal(t, domain.SeverityCritical, domain.SeverityWarning.Step(1))
}

func TestPillar_Order_MatchesSpecSequence(t *testing.T) {
	order := []domain.Pillar{domain.PillarImprint, domain.PillarPrivacy, domain.PillarCookie, domain.PillarAccessibility}
	for i := 1; i < len(order); i++ {
		require.Less(t, order[i-1].Order(), order[i].Order())
	}
}
