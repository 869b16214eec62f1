package legalupdate

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"compliscan/internal/domain"
)

type updatesFile struct {
	Updates []domain.LegalUpdate `yaml:"updates"`
}

// FileSource reads the legal-update snapshot from a YAML file, filtering
// to updates published within lookbackDays of the query time (spec §4.F,
// §6).
type FileSource struct {
	path         string
	lookbackDays int
}

func NewFileSource(path string, lookbackDays int) *FileSource {
	return &FileSource{path: path, lookbackDays: lookbackDays}
}

func (s *FileSource) Updates(now time.Time) []domain.LegalUpdate {
	data, err := os.ReadFile(s.path)
	if err != nil {
		// Absent legal-update source must never fail a scan (spec §9,
		// open question (b)): it degrades to "no overlay applied".
		return nil
	}
	var uf updatesFile
	if err := yaml.Unmarshal(data, &uf); err != nil {
		return nil
	}
	cutoff := now.AddDate(0, 0, -s.lookbackDays)
	var out []domain.LegalUpdate
	for _, u := range uf.Updates {
		if u.PublishedAt.After(cutoff) {
			out = append(out, u)
		}
	}
	return out
}
