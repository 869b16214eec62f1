// Package accessibility implements the BFSG/WCAG 2.1 AA check battery
// (spec §4.C.4).
package accessibility

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"compliscan/internal/domain"
	"compliscan/internal/fetch"
)

const maxAltExamples = 5

var (
	colorDeclPattern  = regexp.MustCompile(`(?i)color\s*:\s*([^;]+);?`)
	bgColorPattern    = regexp.MustCompile(`(?i)background(?:-color)?\s*:\s*([^;]+);?`)
	outlineNonePattern = regexp.MustCompile(`(?i):focus(?:-visible)?\s*\{[^}]*outline\s*:\s*(none|0)[^}]*\}`)
	fontSizePattern   = regexp.MustCompile(`(?i)font-size\s*:\s*([\d.]+)\s*(pt|px)`)
	fontWeightPattern = regexp.MustCompile(`(?i)font-weight\s*:\s*(bold|[6-9]00)`)

	widgetMarkers = []string{"cdn.userway.org", "acsbapp.com", "eye-able.com", "widget.compliscan.example"}

	interactiveTags = []string{"a", "button", "input", "select", "textarea"}
)

// Check runs the full accessibility battery against doc. css is the
// concatenated text of any linked stylesheets the caller has already
// fetched (the orchestrator follows <link rel="stylesheet"> hrefs before
// calling Check); an empty string degrades checkFocusVisibility to a
// no-op and relies on inline styles alone, since computed styles aren't
// modeled by this lightweight checker.
func Check(scanID string, doc *fetch.Document, css string) []domain.Issue {
	if doc.Root == nil {
		return nil
	}
	var issues []domain.Issue
	issues = append(issues, checkAltText(scanID, doc.Root)...)
	issues = append(issues, checkContrast(scanID, doc.Root)...)
	issues = append(issues, checkFocusVisibility(scanID, css)...)
	issues = append(issues, checkKeyboardReachability(scanID, doc.Root)...)
	issues = append(issues, checkWidgetPresence(scanID, doc)...)
	issues = append(issues, checkARIALabelling(scanID, doc.Root)...)
	return issues
}

func checkAltText(scanID string, root *html.Node) []domain.Issue {
	var missing []*html.Node
	for _, img := range fetch.FindAll(root, "img") {
		if isDecorative(img) {
			continue
		}
		if alt, ok := fetch.Attr(img, "alt"); !ok || strings.TrimSpace(alt) == "" {
			missing = append(missing, img)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	risk := 500 * len(missing)
	if risk > 2500 {
		risk = 2500
	}
	examples := missing
	if len(examples) > maxAltExamples {
		examples = examples[:maxAltExamples]
	}
	var srcs []string
	for _, img := range examples {
		src, _ := fetch.Attr(img, "src")
		srcs = append(srcs, src)
	}
	loc := domain.Locator{Kind: domain.LocatorImageSrc, ImageSrc: strings.Join(srcs, ",")}
	return []domain.Issue{{
		ID:          domain.NewIssueID(scanID, domain.PillarAccessibility, loc.String()),
		ScanID:      scanID,
		Pillar:      domain.PillarAccessibility,
		Severity:    domain.SeverityInfo,
		Title:       fmt.Sprintf("%d images missing alt text", len(missing)),
		Description: "Non-decorative images without a meaningful alt attribute are invisible to screen-reader users.",
		RiskEuro:    risk,
		LegalBasis:  "BFSG / WCAG 2.1 SC 1.1.1",
		AutoFixable: true,
		Missing:     true,
		Hints:       &domain.Hints{Accessibility: &domain.AccessibilityHints{ElementCount: len(missing)}},
		Locator:     &loc,
	}}
}

func isDecorative(n *html.Node) bool {
	if role, ok := fetch.Attr(n, "role"); ok && strings.EqualFold(role, "presentation") {
		return true
	}
	if hidden, ok := fetch.Attr(n, "aria-hidden"); ok && strings.EqualFold(hidden, "true") {
		return true
	}
	return false
}

// checkContrast walks text-bearing elements carrying an inline color
// declaration (and optionally a background) and measures the pair.
func checkContrast(scanID string, root *html.Node) []domain.Issue {
	var issues []domain.Issue
	seen := make(map[string]bool)
	var walk func(*html.Node, string)
	walk = func(n *html.Node, inheritedBg string) {
		bg := inheritedBg
		if n.Type == html.ElementNode {
			if style, ok := fetch.Attr(n, "style"); ok {
				if m := bgColorPattern.FindStringSubmatch(style); m != nil {
					bg = strings.TrimSpace(m[1])
				}
				if m := colorDeclPattern.FindStringSubmatch(style); m != nil && hasDirectText(n) {
					fg := strings.TrimSpace(m[1])
					key := fg + "/" + bg
					if !seen[key] {
						if issue, ok := evaluatePair(scanID, fg, bg, style); ok {
							issues = append(issues, issue)
						}
						seen[key] = true
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, bg)
		}
	}
	walk(root, "#ffffff")
	return issues
}

func hasDirectText(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode && strings.TrimSpace(c.Data) != "" {
			return true
		}
	}
	return false
}

func evaluatePair(scanID, fg, bg, style string) (domain.Issue, bool) {
	fgColor, ok1 := ParseColor(fg)
	bgColor, ok2 := ParseColor(bg)
	if !ok1 || !ok2 {
		return domain.Issue{}, false
	}
	fontSize := 12.0
	if m := fontSizePattern.FindStringSubmatch(style); m != nil {
		fontSize, _ = strconv.ParseFloat(m[1], 64)
		if strings.EqualFold(m[2], "px") {
			fontSize = fontSize * 72 / 96
		}
	}
	bold := fontWeightPattern.MatchString(style)
	required := RequiredRatio(fontSize, bold)
	ratio := ContrastRatio(fgColor, bgColor)
	if ratio >= required {
		return domain.Issue{}, false
	}

	risk := 1500 + int((required-ratio)*100)
	if risk > 2000 {
		risk = 2000
	}
	loc := domain.Locator{Kind: domain.LocatorColorPair, Foreground: fg, Background: bg}
	return domain.Issue{
		ID:          domain.NewIssueID(scanID, domain.PillarAccessibility, loc.String()),
		ScanID:      scanID,
		Pillar:      domain.PillarAccessibility,
		Severity:    domain.SeverityWarning,
		Title:       fmt.Sprintf("Insufficient color contrast (%.2f:1, needs %.1f:1)", ratio, required),
		Description: fmt.Sprintf("Text in %s on %s measures %.2f:1 contrast, below the WCAG 2.1 AA minimum of %.1f:1.", fg, bg, ratio, required),
		RiskEuro:    risk,
		LegalBasis:  "BFSG / WCAG 2.1 SC 1.4.3",
		AutoFixable: true,
		Hints: &domain.Hints{Accessibility: &domain.AccessibilityHints{
			MeasuredRatio: ratio,
			RequiredRatio: required,
		}},
		Locator: &loc,
	}, true
}

func checkFocusVisibility(scanID, css string) []domain.Issue {
	if css == "" {
		return nil
	}
	matches := outlineNonePattern.FindAllString(css, -1)
	replacement := regexp.MustCompile(`(?i)[{;]\s*(box-shadow|border[a-z-]*|background[a-z-]*|text-decoration[a-z-]*|color)\s*:`)
	var issues []domain.Issue
	for i, m := range matches {
		if replacement.MatchString(m) {
			continue
		}
		loc := domain.Locator{Kind: domain.LocatorElement, OuterHTML: fmt.Sprintf("focus-rule-%d", i)}
		issues = append(issues, domain.Issue{
			ID:          domain.NewIssueID(scanID, domain.PillarAccessibility, loc.String()),
			ScanID:      scanID,
			Pillar:      domain.PillarAccessibility,
			Severity:    domain.SeverityCritical,
			Title:       "Focus indicator removed without replacement",
			Description: "A :focus/:focus-visible rule sets outline:none/0 with no accompanying focus style: " + strings.TrimSpace(m),
			RiskEuro:    1500,
			LegalBasis:  "BFSG / WCAG 2.1 SC 2.4.7",
			AutoFixable: true,
			Locator:     &loc,
		})
	}
	return issues
}

func checkKeyboardReachability(scanID string, root *html.Node) []domain.Issue {
	tags := append(append([]string{}, interactiveTags...), "select", "textarea")
	count := 0
	for _, n := range fetch.FindAll(root, tags...) {
		if tabindex, ok := fetch.Attr(n, "tabindex"); ok && tabindex == "-1" {
			count++
		}
	}
	if count == 0 {
		return nil
	}
	loc := domain.Locator{Kind: domain.LocatorSelector, Selector: "[tabindex=\"-1\"]"}
	return []domain.Issue{{
		ID:          domain.NewIssueID(scanID, domain.PillarAccessibility, loc.String()),
		ScanID:      scanID,
		Pillar:      domain.PillarAccessibility,
		Severity:    domain.SeverityWarning,
		Title:       fmt.Sprintf("%d interactive elements removed from tab order", count),
		Description: "Interactive elements with tabindex=\"-1\" cannot be reached by keyboard users.",
		RiskEuro:    1000,
		LegalBasis:  "BFSG / WCAG 2.1 SC 2.1.1",
		Hints:       &domain.Hints{Accessibility: &domain.AccessibilityHints{ElementCount: count}},
		Locator:     &loc,
	}}
}

func checkWidgetPresence(scanID string, doc *fetch.Document) []domain.Issue {
	lower := strings.ToLower(doc.RawHTML)
	for _, marker := range widgetMarkers {
		if strings.Contains(lower, marker) {
			return nil
		}
	}
	loc := domain.Locator{Kind: domain.LocatorSelector, Selector: "body"}
	return []domain.Issue{{
		ID:          domain.NewIssueID(scanID, domain.PillarAccessibility, loc.String()),
		ScanID:      scanID,
		Pillar:      domain.PillarAccessibility,
		Severity:    domain.SeverityCritical,
		Title:       "No accessibility widget detected",
		Description: "No known accessibility overlay widget (or our own) was found on the page.",
		RiskEuro:    8000,
		LegalBasis:  "BFSG",
		AutoFixable: true,
		Missing:     true,
		Locator:     &loc,
	}}
}

func checkARIALabelling(scanID string, root *html.Node) []domain.Issue {
	count := 0
	for _, n := range fetch.FindAll(root, interactiveTags...) {
		if hasAccessibleName(root, n) {
			continue
		}
		count++
	}
	if count == 0 {
		return nil
	}
	loc := domain.Locator{Kind: domain.LocatorSelector, Selector: "interactive[no-accessible-name]"}
	risk := 1000 + count*100
	if risk > 1500 {
		risk = 1500
	}
	return []domain.Issue{{
		ID:          domain.NewIssueID(scanID, domain.PillarAccessibility, loc.String()),
		ScanID:      scanID,
		Pillar:      domain.PillarAccessibility,
		Severity:    domain.SeverityWarning,
		Title:       fmt.Sprintf("%d interactive elements lack an accessible name", count),
		Description: "No text content, aria-label, aria-labelledby, or associated <label for> was found.",
		RiskEuro:    risk,
		LegalBasis:  "BFSG / WCAG 2.1 SC 4.1.2",
		Hints:       &domain.Hints{Accessibility: &domain.AccessibilityHints{ElementCount: count}},
		Locator:     &loc,
	}}
}

func hasAccessibleName(root, n *html.Node) bool {
	if strings.TrimSpace(fetch.Text(n)) != "" {
		return true
	}
	if label, ok := fetch.Attr(n, "aria-label"); ok && strings.TrimSpace(label) != "" {
		return true
	}
	if ref, ok := fetch.Attr(n, "aria-labelledby"); ok && ref != "" {
		return true
	}
	if id, ok := fetch.Attr(n, "id"); ok && id != "" {
		for _, label := range fetch.FindAll(root, "label") {
			if forAttr, ok := fetch.Attr(label, "for"); ok && forAttr == id {
				return true
			}
		}
	}
	return false
}
