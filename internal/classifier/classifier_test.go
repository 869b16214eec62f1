package classifier_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"compliscan/internal/catalog"
	"compliscan/internal/classifier"
	"compliscan/internal/config"
	"compliscan/internal/domain"
	"compliscan/internal/fetch"
)

const fixtureYAML = `
services:
  - key: google-analytics
    display_name: Google Analytics
    category: analytics
    provider: Google LLC
    script_patterns:
      - google-analytics.com/analytics.js
    block_method: script_rewrite
`

func loadCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fixtureYAML), 0o644))
	cat, err := catalog.Load(path)
	require.NoError(t, err)
	return cat
}

func fetchDoc(t *testing.T, body string) *fetch.Document {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	f := fetch.NewStaticFetcher(config.DefaultFetchConfig())
	doc, err := f.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	return doc
}

func TestClassify_MatchesKnownService(t *testing.T) {
	doc := fetchDoc(t, `<html><head><script src="https://www.google-analytics.com/analytics.js"></script></head><body></body></html>`)
	c := classifier.New(loadCatalog(t))

	matched := c.Classify(doc)
	require.Len(t, matched, 1)
	require.Equal(t, "google-analytics", matched[0].Entry.Key)
}

func TestClassify_UnknownThirdPartyScriptBecomesUnclassified(t *testing.T) {
	doc := fetchDoc(t, `<html><head><script src="https://tracker.example.com/beacon.js"></script></head><body></body></html>`)
	c := classifier.New(loadCatalog(t))

	matched := c.Classify(doc)
	require.Len(t, matched, 1)
	require.Equal(t, domain.UnclassifiedServiceKey, matched[0].Entry.Key)
}

func TestClassify_RelativeScriptIsNotTreatedAsThirdParty(t *testing.T) {
	doc := fetchDoc(t, `<html><head><script src="/assets/app.js"></script></head><body></body></html>`)
	c := classifier.New(loadCatalog(t))

	matched := c.Classify(doc)
	require.Empty(t, matched)
}

func TestClassify_MemoizesPerDocument(t *testing.T) {
	doc := fetchDoc(t, `<html><head><script src="https://www.google-analytics.com/analytics.js"></script></head><body></body></html>`)
	c := classifier.New(loadCatalog(t))

	first := c.Classify(doc)
	second := c.Classify(doc)
	require.Same(t, &first[0], &second[0], "repeat calls for the same document must return the memoized slice")
}
