package domain_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"compliscan/internal/domain"
)

func TestQuotaRecord_TryConsume_DeniesOverLimit(t *testing.T) {
	rec := domain.QuotaRecord{ScansLimit: 3}

	ok, remaining := rec.TryConsume(domain.QuotaScan, 1)
	require.True(t, ok)
	require.Equal(t, 2, remaining)

	ok, remaining = rec.TryConsume(domain.QuotaScan, 2)
	require.True(t, ok)
	require.Equal(t, 0, remaining)

	ok, remaining = rec.TryConsume(domain.QuotaScan, 1)
	require.False(t, ok, "consuming past the limit must be denied")
	require.Equal(t, 0, remaining)
	require.Equal(t, 3, rec.ScansUsed, "a denied consume must not mutate used")
}

func TestQuotaRecord_TryConsume_Unlimited(t *testing.T) {
	rec := domain.QuotaRecord{FixesLimit: domain.Unlimited}

	ok, remaining := rec.TryConsume(domain.QuotaFix, 1000)
	require.True(t, ok)
	require.Equal(t, domain.Unlimited, remaining)
	require.Equal(t, 0, rec.FixesUsed, "unlimited kinds never track usage")
}

func TestQuotaRecord_Refund_FlooredAtZero(t *testing.T) {
	rec := domain.QuotaRecord{ExportsLimit: 5, ExportsUsed: 1}

	rec.Refund(domain.QuotaExport, 3)
	require.Equal(t, 0, rec.ExportsUsed)
}

func TestQuotaRecord_Remaining_MatchesTryConsume(t *testing.T) {
	rec := domain.QuotaRecord{ScansLimit: 10, ScansUsed: 7}
	require.Equal(t, 3, rec.Remaining(domain.QuotaScan))

	rec.TryConsume(domain.QuotaScan, 3)
	require.Equal(t, 0, rec.Remaining(domain.QuotaScan))
}
