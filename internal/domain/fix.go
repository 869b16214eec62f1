package domain

import "time"

// FixType is a closed enum with one payload "variant" per tag, used
// instead of a polymorphic class hierarchy (spec §9).
type FixType string

const (
	FixTypeCode   FixType = "code"
	FixTypeText   FixType = "text"
	FixTypeWidget FixType = "widget"
	FixTypeGuide  FixType = "guide"
)

// FixSource records how the artifact was produced.
type FixSource string

const (
	FixSourceTemplate FixSource = "template"
	FixSourceLLM      FixSource = "llm"
	FixSourceHybrid   FixSource = "hybrid"
)

// ValidationStatus is the outcome of running an artifact through its
// type-specific validator (spec §4.G).
type ValidationStatus string

const (
	ValidationOK       ValidationStatus = "ok"
	ValidationWarnings ValidationStatus = "warnings"
	ValidationErrors   ValidationStatus = "errors"
)

// ValidationResult is attached to every GeneratedFix.
type ValidationResult struct {
	Status   ValidationStatus `json:"status"`
	Messages []string         `json:"messages,omitempty"`
}

// CompanyInfo is the optional caller-supplied data used to fill imprint
// and privacy text templates (spec §4.G).
type CompanyInfo struct {
	Name              string `json:"name,omitempty"`
	Street            string `json:"street,omitempty"`
	PostalCode        string `json:"postal_code,omitempty"`
	City              string `json:"city,omitempty"`
	Phone             string `json:"phone,omitempty"`
	Email             string `json:"email,omitempty"`
	VATID             string `json:"vat_id,omitempty"`
	ResponsiblePerson string `json:"responsible_person,omitempty"`
	RegisterCourt     string `json:"register_court,omitempty"`
	RegisterNumber    string `json:"register_number,omitempty"`
}

// Artifact is the deployable payload of a GeneratedFix.
type Artifact struct {
	Files                 map[string][]byte `json:"files"`
	Explanation           string            `json:"explanation"`
	IntegrationInstructions string          `json:"integration_instructions"`
	Placeholders          []string          `json:"placeholders,omitempty"`
	EstimatedTimeMinutes  int               `json:"estimated_time_minutes"`
	// Diagnostic carries the original (pre-downgrade) artifact when
	// validation forced a downgrade to FixTypeGuide.
	Diagnostic *Artifact `json:"diagnostic,omitempty"`
}

// GeneratedFix is one remediation artifact produced for one issue.
type GeneratedFix struct {
	ID          string           `json:"fix_id"`
	ScanID      string           `json:"scan_id"`
	UserID      string           `json:"user_id"`
	IssueID     string           `json:"issue_id"`
	Pillar      Pillar           `json:"pillar"`
	Type        FixType          `json:"fix_type"`
	GeneratedAt time.Time        `json:"generated_at"`
	Artifact    Artifact         `json:"artifact"`
	Validation  ValidationResult `json:"validation"`
	Source      FixSource        `json:"source"`
	// IdempotencyKey ties this fix back to the (scan, issue set,
	// company-info hash) request that produced it, so a repeat request
	// within the window returns the same fix without consuming quota.
	IdempotencyKey string `json:"idempotency_key"`
}

// FixesRequest is the inbound payload for Orchestrator.GenerateFixes.
type FixesRequest struct {
	ScanID      string       `json:"scan_id"`
	IssueIDs    []string     `json:"issue_ids"`
	CompanyInfo *CompanyInfo `json:"company_info,omitempty"`
	UserID      string       `json:"user_id"`
}

// FixesResult is the outbound payload for Orchestrator.GenerateFixes.
type FixesResult struct {
	Fixes          []GeneratedFix    `json:"fixes"`
	QuotaRemaining int               `json:"quota_remaining"`
	Failed         map[string]string `json:"failed,omitempty"` // issue id -> error message
}
