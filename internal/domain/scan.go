package domain

import "time"

// RenderMode controls whether JavaScript runs before analysis.
type RenderMode string

const (
	RenderStatic   RenderMode = "static"
	RenderRendered RenderMode = "rendered"
	RenderAuto     RenderMode = "auto"
)

// PageMetrics captures the raw facts the fetcher observed about the
// target response, independent of what the checks concluded from it.
type PageMetrics struct {
	SizeBytes       int64  `json:"size_bytes"`
	HTTPStatus      int    `json:"http_status"`
	ContentEncoding string `json:"content_encoding,omitempty"`
}

// ScanOptions is the caller-supplied configuration for a single scan.
type ScanOptions struct {
	RenderMode      RenderMode `json:"render_mode"`
	UserAgent       string     `json:"user_agent,omitempty"`
}

// Scan is the immutable result of running the four-pillar pipeline once
// against a URL. Once persisted it is never mutated in place — the legal
// overlay produces a derived view, not an edit (spec §3).
type Scan struct {
	ID                  string            `json:"scan_id"`
	URL                 string            `json:"url"`
	UserID              string            `json:"user_id"`
	Timestamp           time.Time         `json:"timestamp"`
	RenderModeUsed      RenderMode        `json:"render_mode_used"`
	Metrics             PageMetrics       `json:"metrics"`
	Issues              []Issue           `json:"issues"`
	MatchedServices     []MatchedService  `json:"matched_services,omitempty"`
	PillarScores        map[Pillar]int    `json:"pillar_scores"`
	OverallScore        int               `json:"overall_score"`
	TotalRiskEuro       int               `json:"total_risk_euro"`
	LegalUpdatesApplied bool              `json:"legal_updates_applied"`
	LegalUpdatesCount   int               `json:"legal_updates_count"`
}

// ScanRequest is the inbound payload for Orchestrator.Scan (spec §6).
type ScanRequest struct {
	URL        string     `json:"url"`
	RenderMode RenderMode `json:"render_mode"`
	UserID     string     `json:"user_id"`
}

// ScanResult is the outbound payload for Orchestrator.Scan (spec §6). It
// is a thin, wire-shaped projection of Scan.
type ScanResult struct {
	ScanID              string         `json:"scan_id"`
	URL                 string         `json:"url"`
	Timestamp           time.Time      `json:"timestamp"`
	OverallScore        int            `json:"overall_score"`
	PillarScores        map[Pillar]int `json:"pillar_scores"`
	TotalRiskEuro       int            `json:"total_risk_euro"`
	Issues              []Issue        `json:"issues"`
	LegalUpdatesApplied bool           `json:"legal_updates_applied"`
	LegalUpdatesCount   int            `json:"legal_updates_count"`
}

// Result projects a Scan into the wire-shaped ScanResult.
func (s *Scan) Result() ScanResult {
	return ScanResult{
		ScanID:              s.ID,
		URL:                 s.URL,
		Timestamp:            s.Timestamp,
		OverallScore:        s.OverallScore,
		PillarScores:        s.PillarScores,
		TotalRiskEuro:       s.TotalRiskEuro,
		Issues:              s.Issues,
		LegalUpdatesApplied: s.LegalUpdatesApplied,
		LegalUpdatesCount:   s.LegalUpdatesCount,
	}
}
