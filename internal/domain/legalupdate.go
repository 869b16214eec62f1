package domain

import "time"

// LegalUpdateSeverity is the closed severity scale used by legal updates,
// distinct from Issue Severity because it carries one extra rung ("high")
// used purely to size the overlay's boost (spec §4.F).
type LegalUpdateSeverity string

const (
	LegalSeverityCritical LegalUpdateSeverity = "critical"
	LegalSeverityHigh     LegalUpdateSeverity = "high"
	LegalSeverityMedium   LegalUpdateSeverity = "medium"
	LegalSeverityInfo     LegalUpdateSeverity = "info"
)

// LegalUpdate is one externally-authored row describing a recent legal
// change (spec §3, §6). The core only reads these; a separate
// news-ingestion collaborator populates them.
type LegalUpdate struct {
	ID            string              `yaml:"id" json:"id"`
	Title         string              `yaml:"title" json:"title"`
	Description   string              `yaml:"description" json:"description"`
	Severity      LegalUpdateSeverity `yaml:"severity" json:"severity"`
	Pillars       []Pillar            `yaml:"pillars" json:"pillars"`
	EffectiveDate time.Time           `yaml:"effective_date" json:"effective_date"`
	SourceURL     string              `yaml:"source_url,omitempty" json:"source_url,omitempty"`
	Requirements  []string            `yaml:"requirements,omitempty" json:"requirements,omitempty"`
	PublishedAt   time.Time           `yaml:"published_at" json:"published_at"`
}
