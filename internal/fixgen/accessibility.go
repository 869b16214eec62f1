package fixgen

import (
	"context"
	"fmt"
	"math"

	"compliscan/internal/checks/accessibility"
	"compliscan/internal/domain"
)

// ContrastFix computes the minimal darkening of the foreground color that
// reaches requiredRatio against bg while preserving hue (binary search on
// HSL lightness, spec §4.G), and emits a CSS override.
func ContrastFix(selector, fg, bg string, requiredRatio float64) (domain.Artifact, float64, string) {
	fgColor, ok1 := accessibility.ParseColor(fg)
	bgColor, ok2 := accessibility.ParseColor(bg)
	if !ok1 || !ok2 {
		return domain.Artifact{
			Explanation: "Could not parse the original color pair; manual review required.",
		}, 0, fg
	}

	darkened, ratio := darkenForContrast(fgColor, bgColor, requiredRatio)
	hex := toHex(darkened)

	css := fmt.Sprintf("%s {\n  color: %s;\n}\n", selector, hex)
	return domain.Artifact{
		Files:                   map[string][]byte{"contrast-fix.css": []byte(css)},
		Explanation:             fmt.Sprintf("Darkened the foreground color to %s, reaching a contrast ratio of %.2f:1 (required %.1f:1).", hex, ratio, requiredRatio),
		IntegrationInstructions: "Append contrast-fix.css after your existing stylesheet so it overrides the original rule.",
		EstimatedTimeMinutes:    5,
	}, ratio, hex
}

// darkenForContrast binary-searches HSL lightness downward from the
// original color until the contrast ratio against bg meets required,
// preserving hue and saturation.
func darkenForContrast(fg, bg accessibility.RGB, required float64) (accessibility.RGB, float64) {
	h, s, l := rgbToHSL(fg)
	lo, hi := 0.0, l
	best := fg
	bestRatio := accessibility.ContrastRatio(fg, bg)

	for i := 0; i < 32; i++ {
		mid := (lo + hi) / 2
		candidate := hslToRGB(h, s, mid)
		ratio := accessibility.ContrastRatio(candidate, bg)
		if ratio >= required {
			best = candidate
			bestRatio = ratio
			lo = mid // can we go lighter (toward original) and still pass?
		} else {
			hi = mid // need darker
		}
		if hi-lo < 0.0005 {
			break
		}
	}
	if bestRatio < required {
		// Original was already maximally dark (e.g. near-black); fall back
		// to pure black, which always satisfies any achievable ratio.
		best = accessibility.RGB{R: 0, G: 0, B: 0}
		bestRatio = accessibility.ContrastRatio(best, bg)
	}
	return best, bestRatio
}

func toHex(c accessibility.RGB) string {
	clamp := func(v float64) int {
		if v < 0 {
			return 0
		}
		if v > 255 {
			return 255
		}
		return int(v + 0.5)
	}
	return fmt.Sprintf("#%02x%02x%02x", clamp(c.R), clamp(c.G), clamp(c.B))
}

func rgbToHSL(c accessibility.RGB) (h, s, l float64) {
	r, g, b := c.R/255, c.G/255, c.B/255
	max := math.Max(r, math.Max(g, b))
	min := math.Min(r, math.Min(g, b))
	l = (max + min) / 2
	if max == min {
		return 0, 0, l
	}
	d := max - min
	if l > 0.5 {
		s = d / (2 - max - min)
	} else {
		s = d / (max + min)
	}
	switch max {
	case r:
		h = (g - b) / d
		if g < b {
			h += 6
		}
	case g:
		h = (b-r)/d + 2
	case b:
		h = (r-g)/d + 4
	}
	h *= 60
	return h, s, l
}

func hslToRGB(h, s, l float64) accessibility.RGB {
	if s == 0 {
		v := l * 255
		return accessibility.RGB{R: v, G: v, B: v}
	}
	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q
	hk := h / 360
	r := hueToRGB(p, q, hk+1.0/3)
	g := hueToRGB(p, q, hk)
	b := hueToRGB(p, q, hk-1.0/3)
	return accessibility.RGB{R: r * 255, G: g * 255, B: b * 255}
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6:
		return p + (q-p)*6*t
	case t < 1.0/2:
		return q
	case t < 2.0/3:
		return p + (q-p)*(2.0/3-t)*6
	default:
		return p
	}
}

// FocusVisibilityFix emits a *:focus-visible rule plus explicit a/button/
// input rules (spec §4.G).
func FocusVisibilityFix(accentColor string) domain.Artifact {
	if accentColor == "" {
		accentColor = "#2563eb"
	}
	css := fmt.Sprintf(`*:focus-visible {
  outline: 3px solid %s;
  outline-offset: 2px;
}
a:focus-visible, button:focus-visible, input:focus-visible {
  outline: 3px solid %s;
  outline-offset: 2px;
}
`, accentColor, accentColor)
	return domain.Artifact{
		Files:                   map[string][]byte{"focus-visibility-fix.css": []byte(css)},
		Explanation:             "Restored a visible focus indicator for keyboard users.",
		IntegrationInstructions: "Append focus-visibility-fix.css after your existing stylesheet.",
		EstimatedTimeMinutes:    5,
	}
}

// WidgetFix emits a script snippet loading the house accessibility
// widget for siteID.
func WidgetFix(siteID string) domain.Artifact {
	js := fmt.Sprintf(`<script src="https://widget.compliscan.example/loader.js" data-site-id=%q defer></script>`+"\n", siteID)
	return domain.Artifact{
		Files:                   map[string][]byte{"accessibility-widget.html": []byte(js)},
		Explanation:             "Loads the compliscan accessibility remediation overlay widget.",
		IntegrationInstructions: "Paste this snippet just before </body>.",
		EstimatedTimeMinutes:    5,
	}
}

// AltTextGenerator is the subset of *llm.Client the alt-text fix needs.
type AltTextGenerator interface {
	GenerateAltText(ctx context.Context, imageURL, surroundingText, pageTitle string) (AltTextResult, error)
}

// AltTextResult mirrors llm.AltTextResult without importing internal/llm,
// avoiding a dependency from fixgen on the concrete Gemini client type.
type AltTextResult struct {
	Text       string
	Confidence float64
}

// AltTextFix requests alt text from gen and marks the fix auto-fixable
// only when confidence >= 0.7 (spec §4.G).
func AltTextFix(ctx context.Context, gen AltTextGenerator, imageURL, surroundingText, pageTitle string) (domain.Artifact, float64, bool) {
	if gen == nil {
		return domain.Artifact{Explanation: "No LLM collaborator configured; manual alt text required."}, 0, false
	}
	result, err := gen.GenerateAltText(ctx, imageURL, surroundingText, pageTitle)
	if err != nil {
		return domain.Artifact{Explanation: "Alt-text generation failed: " + err.Error()}, 0, false
	}
	autoFixable := result.Confidence >= 0.7
	return domain.Artifact{
		Files:                   map[string][]byte{"alt-text.txt": []byte(result.Text)},
		Explanation:             fmt.Sprintf("Suggested alt text (confidence %.2f): %s", result.Confidence, result.Text),
		IntegrationInstructions: fmt.Sprintf("Set alt=%q on the image element.", result.Text),
		EstimatedTimeMinutes:    2,
	}, result.Confidence, autoFixable
}
