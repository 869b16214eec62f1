package catalog_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"compliscan/internal/catalog"
)

const fixtureYAML = `
services:
  - key: google-analytics
    display_name: Google Analytics
    category: analytics
    provider: Google LLC
    script_patterns:
      - googletagmanager.com/gtag/js
      - google-analytics.com/analytics.js
    cookie_patterns:
      - "_ga*"
      - _gid
    block_method: script_rewrite
  - key: youtube
    display_name: YouTube embed
    category: marketing
    provider: Google LLC
    iframe_patterns:
      - youtube.com/embed
    block_method: iframe_placeholder
  - key: session-cookie
    display_name: Session cookie
    category: necessary
    provider: Self
    cookie_patterns:
      - session_id
    block_method: no_blocking
`

func writeFixture(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoad_ParsesServices(t *testing.T) {
	path := writeFixture(t, fixtureYAML)
	cat, err := catalog.Load(path)
	require.NoError(t, err)
	require.Len(t, cat.All(), 3)

	svc, ok := cat.Lookup("google-analytics")
	require.True(t, ok)
	require.Equal(t, "Google Analytics", svc.DisplayName)
}

func TestLoad_RejectsEmptyCatalog(t *testing.T) {
	path := writeFixture(t, "services: []\n")
	_, err := catalog.Load(path)
	require.Error(t, err)
}

func TestLoad_RejectsDuplicateKeys(t *testing.T) {
	path := writeFixture(t, `
services:
  - key: dup
    display_name: One
    category: necessary
    block_method: no_blocking
  - key: dup
    display_name: Two
    category: necessary
    block_method: no_blocking
`)
	_, err := catalog.Load(path)
	require.Error(t, err)
}

func TestReload_KeepsPreviousSnapshotOnBadEdit(t *testing.T) {
	path := writeFixture(t, fixtureYAML)
	cat, err := catalog.Load(path)
	require.NoError(t, err)
	require.Len(t, cat.All(), 3)

	require.NoError(t, os.WriteFile(path, []byte("not: [valid yaml"), 0o644))
	err = cat.Reload()
	require.Error(t, err)
	require.Len(t, cat.All(), 3, "a corrupt reload must not clobber the working snapshot")
}

func TestReload_PicksUpValidEdit(t *testing.T) {
	path := writeFixture(t, fixtureYAML)
	cat, err := catalog.Load(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`
services:
  - key: only-one
    display_name: Only One
    category: necessary
    block_method: no_blocking
`), 0o644))
	require.NoError(t, cat.Reload())
	require.Len(t, cat.All(), 1)
}

func TestMatch_ScriptPatternFires(t *testing.T) {
	path := writeFixture(t, fixtureYAML)
	cat, err := catalog.Load(path)
	require.NoError(t, err)

	matched := cat.Match(catalog.Observation{
		ScriptSrcs: []string{"https://www.googletagmanager.com/gtag/js?id=UA-1"},
	})
	require.Len(t, matched, 1)
	require.Equal(t, "google-analytics", matched[0].Entry.Key)
	require.True(t, matched[0].RequiresConsent)
	require.Len(t, matched[0].Evidence, 1)
	require.Equal(t, "script", matched[0].Evidence[0].MatchedOn)
}

func TestMatch_UnionsEvidenceAcrossSurfacesForSameService(t *testing.T) {
	path := writeFixture(t, fixtureYAML)
	cat, err := catalog.Load(path)
	require.NoError(t, err)

	matched := cat.Match(catalog.Observation{
		ScriptSrcs:  []string{"https://www.google-analytics.com/analytics.js"},
		CookieNames: []string{"_ga", "_gid"},
	})
	require.Len(t, matched, 1, "one service, evidence from multiple surfaces")
	require.Len(t, matched[0].Evidence, 3, "one script hit plus two cookie hits")
}

func TestMatch_CookieWildcardPrefix(t *testing.T) {
	path := writeFixture(t, fixtureYAML)
	cat, err := catalog.Load(path)
	require.NoError(t, err)

	matched := cat.Match(catalog.Observation{CookieNames: []string{"_ga_ABC123"}})
	require.Len(t, matched, 1)
	require.Equal(t, "google-analytics", matched[0].Entry.Key)
}

func TestMatch_IframePatternFires(t *testing.T) {
	path := writeFixture(t, fixtureYAML)
	cat, err := catalog.Load(path)
	require.NoError(t, err)

	matched := cat.Match(catalog.Observation{
		IframeSrcs: []string{"https://www.youtube.com/embed/abc123"},
	})
	require.Len(t, matched, 1)
	require.Equal(t, "youtube", matched[0].Entry.Key)
	require.Equal(t, "iframe", matched[0].Evidence[0].MatchedOn)
}

func TestMatch_NoEvidenceReturnsEmpty(t *testing.T) {
	path := writeFixture(t, fixtureYAML)
	cat, err := catalog.Load(path)
	require.NoError(t, err)

	matched := cat.Match(catalog.Observation{ScriptSrcs: []string{"https://example.com/app.js"}})
	require.Empty(t, matched)
}

func TestUnclassified_IsConservativeMarketingDefault(t *testing.T) {
	m := catalog.Unclassified("https://unknown-tracker.example/beacon.js")
	require.Equal(t, "unclassified", m.Entry.Key)
	require.True(t, m.RequiresConsent)
	require.Equal(t, "script", m.Evidence[0].MatchedOn)
}
