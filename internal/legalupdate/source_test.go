package legalupdate_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"compliscan/internal/legalupdate"
)

func writeUpdatesFile(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "updates.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestFileSource_FiltersToLookbackWindow(t *testing.T) {
	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	recent := now.AddDate(0, 0, -5)
	stale := now.AddDate(0, 0, -40)

	path := writeUpdatesFile(t, `
updates:
  - id: recent-update
    title: Recent
    severity: high
    pillars: [cookie]
    published_at: `+recent.Format(time.RFC3339)+`
  - id: stale-update
    title: Stale
    severity: high
    pillars: [cookie]
    published_at: `+stale.Format(time.RFC3339)+`
`)

	src := legalupdate.NewFileSource(path, 30)
	updates := src.Updates(now)

	require.Len(t, updates, 1)
	require.Equal(t, "recent-update", updates[0].ID)
}

func TestFileSource_MissingFileDegradesToEmpty(t *testing.T) {
	src := legalupdate.NewFileSource(filepath.Join(t.TempDir(), "does-not-exist.yaml"), 30)
	require.Empty(t, src.Updates(time.Now()))
}

func TestFileSource_CorruptFileDegradesToEmpty(t *testing.T) {
	path := writeUpdatesFile(t, "not: [valid yaml")
	src := legalupdate.NewFileSource(path, 30)
	require.Empty(t, src.Updates(time.Now()))
}

func TestFileSource_BoundaryExactlyAtCutoffIsExcluded(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	cutoff := now.AddDate(0, 0, -30)

	path := writeUpdatesFile(t, `
updates:
  - id: at-cutoff
    title: At cutoff
    severity: medium
    pillars: [privacy]
    published_at: `+cutoff.Format(time.RFC3339)+`
`)

	src := legalupdate.NewFileSource(path, 30)
	require.Empty(t, src.Updates(now), "published_at equal to the cutoff is not strictly after it")
}
