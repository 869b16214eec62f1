// Package domain holds the core compliance types shared across every
// component of the scan-and-remediate pipeline: issues, scans, the service
// catalog, generated fixes, quota records, and audit entries. Keeping them
// in one leaf package (no component-specific logic) avoids the import
// cycles that would otherwise appear between checks, the classifier, the
// scorer, and the fix generator.
package domain

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
)

// Pillar is one of the four regulatory domains. Closed enum — no fifth
// pillar is anticipated by the spec this models.
type Pillar string

const (
	PillarImprint       Pillar = "imprint"
	PillarPrivacy       Pillar = "privacy"
	PillarCookie        Pillar = "cookie"
	PillarAccessibility Pillar = "accessibility"
)

// pillarOrder fixes the deterministic sort order for issues within a scan.
var pillarOrder = map[Pillar]int{
	PillarImprint:       0,
	PillarPrivacy:       1,
	PillarCookie:        2,
	PillarAccessibility: 3,
}

// Order returns the pillar's position in the fixed sort order.
func (p Pillar) Order() int { return pillarOrder[p] }

// Severity is a closed three-level scale.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

var severityOrder = map[Severity]int{
	SeverityCritical: 0,
	SeverityWarning:  1,
	SeverityInfo:     2,
}

// Order returns the severity's rank for the descending sort (critical
// first).
func (s Severity) Order() int { return severityOrder[s] }

// Step advances severity by n notches toward critical, ceiling at
// critical. Used by the legal-update overlay (spec §4.F).
func (s Severity) Step(n int) Severity {
	rank := severityOrder[s] - n
	if rank < 0 {
		rank = 0
	}
	for sev, r := range severityOrder {
		if r == rank {
			return sev
		}
	}
	return SeverityCritical
}

// LocatorKind tags which variant of Locator is populated.
type LocatorKind string

const (
	LocatorSelector  LocatorKind = "selector"
	LocatorElement   LocatorKind = "element"
	LocatorImageSrc  LocatorKind = "image_src"
	LocatorColorPair LocatorKind = "color_pair"
)

// Locator pinpoints where in the page an issue was found. Only the fields
// matching Kind are meaningful; it is a tagged union rather than an opaque
// map so callers can switch on Kind exhaustively.
type Locator struct {
	Kind       LocatorKind `json:"kind"`
	Selector   string      `json:"selector,omitempty"`
	OuterHTML  string      `json:"outer_html,omitempty"`
	ImageSrc   string      `json:"image_src,omitempty"`
	Foreground string      `json:"foreground,omitempty"` // color_pair: text color
	Background string      `json:"background,omitempty"` // color_pair: background color
}

// String renders a stable representation used as the hash input for issue
// ids; it must be deterministic across runs given the same DOM.
func (l Locator) String() string {
	switch l.Kind {
	case LocatorSelector:
		return "selector:" + l.Selector
	case LocatorElement:
		return "element:" + l.OuterHTML
	case LocatorImageSrc:
		return "image_src:" + l.ImageSrc
	case LocatorColorPair:
		return "color_pair:" + l.Foreground + "/" + l.Background
	default:
		return "none"
	}
}

// Hints carries pillar-specific remediation suggestions. Exactly one field
// is non-nil, selected by the Issue's Pillar — a tagged union keyed by
// pillar rather than a free-form map (design note: no opaque JSON payloads
// leaking out of the core).
type Hints struct {
	Imprint       *ImprintHints       `json:"imprint,omitempty"`
	Privacy       *PrivacyHints       `json:"privacy,omitempty"`
	Cookie        *CookieHints        `json:"cookie,omitempty"`
	Accessibility *AccessibilityHints `json:"accessibility,omitempty"`
}

// ImprintHints suggests values for a missing imprint field.
type ImprintHints struct {
	MissingField string `json:"missing_field"` // e.g. "phone", "vat_id"
}

// PrivacyHints names the missing policy section or the service lacking one.
type PrivacyHints struct {
	MissingSection string `json:"missing_section,omitempty"`
	ServiceKey     string `json:"service_key,omitempty"`
}

// CookieHints carries the service and blocking recipe behind a cookie
// issue, when the issue concerns a specific detected service.
type CookieHints struct {
	ServiceKey    string     `json:"service_key,omitempty"`
	BlockMethod   string     `json:"block_method,omitempty"`
	RequireButton bool       `json:"require_reject_button,omitempty"`
}

// AccessibilityHints carries the suggested remediation for an a11y issue.
type AccessibilityHints struct {
	SuggestedAltText  string  `json:"suggested_alt_text,omitempty"`
	Confidence        float64 `json:"confidence,omitempty"`
	SuggestedForeground string `json:"suggested_foreground,omitempty"`
	MeasuredRatio     float64 `json:"measured_ratio,omitempty"`
	RequiredRatio     float64 `json:"required_ratio,omitempty"`
	ElementCount      int     `json:"element_count,omitempty"`
}

// Issue is a single, independently remediable compliance finding.
type Issue struct {
	ID               string   `json:"id"`
	ScanID           string   `json:"scan_id"`
	Pillar           Pillar   `json:"pillar"`
	Severity         Severity `json:"severity"`
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	RiskEuro         int      `json:"risk_euro"`
	LegalBasis       string   `json:"legal_basis"`
	AutoFixable      bool     `json:"auto_fixable"`
	Missing          bool     `json:"is_missing"`
	Locator          *Locator `json:"locator,omitempty"`
	Hints            *Hints   `json:"hints,omitempty"`
	LegalUpdateRefs  []LegalUpdateRef `json:"legal_update_refs,omitempty"`
	RiskIncreaseReason string          `json:"risk_increase_reason,omitempty"`
}

// LegalUpdateRef is the (id, title) pair attached to an issue boosted by
// the legal-update overlay.
type LegalUpdateRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// NewIssueID computes the spec's stable issue id:
// <scan_id>:<pillar>:<locator_sha1 prefix 12>. Stable across re-scans only
// as long as the locator is stable, per spec §6.
func NewIssueID(scanID string, pillar Pillar, locator string) string {
	sum := sha1.Sum([]byte(locator))
	prefix := hex.EncodeToString(sum[:])[:12]
	return fmt.Sprintf("%s:%s:%s", scanID, pillar, prefix)
}
