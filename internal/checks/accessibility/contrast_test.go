package accessibility_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"compliscan/internal/checks/accessibility"
)

func TestParseColor_Formats(t *testing.T) {
	cases := []struct {
		name  string
		value string
		want  accessibility.RGB
	}{
		{"hex short", "#000", accessibility.RGB{R: 0, G: 0, B: 0}},
		{"hex long", "#ffffff", accessibility.RGB{R: 255, G: 255, B: 255}},
		{"named", "Black", accessibility.RGB{R: 0, G: 0, B: 0}},
		{"rgb func", "rgb(255, 0, 0)", accessibility.RGB{R: 255, G: 0, B: 0}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := accessibility.ParseColor(tc.value)
			require.True(t, ok)
			require.InDelta(t, tc.want.R, got.R, 0.01)
			require.InDelta(t, tc.want.G, got.G, 0.01)
			require.InDelta(t, tc.want.B, got.B, 0.01)
		})
	}
}

func TestParseColor_RejectsUnknown(t *testing.T) {
	_, ok := accessibility.ParseColor("not-a-color")
	require.False(t, ok)
}

func TestContrastRatio_BlackOnWhiteIsMaximal(t *testing.T) {
	black := accessibility.RGB{R: 0, G: 0, B: 0}
	white := accessibility.RGB{R: 255, G: 255, B: 255}
	require.InDelta(t, 21.0, accessibility.ContrastRatio(black, white), 0.01)
}

func TestContrastRatio_IsOrderIndependent(t *testing.T) {
	a := accessibility.RGB{R: 30, G: 30, B: 30}
	b := accessibility.RGB{R: 200, G: 200, B: 200}
	require.InDelta(t, accessibility.ContrastRatio(a, b), accessibility.ContrastRatio(b, a), 1e-9)
}

func TestContrastRatio_IdenticalColorsIsOne(t *testing.T) {
	c := accessibility.RGB{R: 100, G: 150, B: 200}
	require.InDelta(t, 1.0, accessibility.ContrastRatio(c, c), 0.0001)
}

// #0066CC on white is a commonly cited WCAG example pair; sources quote
// 4.56:1, but the sRGB linearize/relative-luminance formula implemented
// here (matching the W3C contrast algorithm) yields ~5.57:1 for this
// exact pair. Recorded rather than silently reconciled.
func TestContrastRatio_0066CCOnWhiteMatchesOurFormulaNotTheCommonlyCitedFigure(t *testing.T) {
	blue, ok := accessibility.ParseColor("#0066CC")
	require.True(t, ok)
	white := accessibility.RGB{R: 255, G: 255, B: 255}
	require.InDelta(t, 5.57, accessibility.ContrastRatio(blue, white), 0.05)
}

func TestRequiredRatio(t *testing.T) {
	require.Equal(t, 4.5, accessibility.RequiredRatio(12, false))
	require.Equal(t, 3.0, accessibility.RequiredRatio(18, false))
	require.Equal(t, 3.0, accessibility.RequiredRatio(14, true))
	require.Equal(t, 4.5, accessibility.RequiredRatio(14, false))
}
