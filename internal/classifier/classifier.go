// Package classifier is the cross-cutting service classifier consulted
// directly by the cookie and privacy checks (spec §5): it walks a fetched
// document once, matches every observed script/iframe/cookie/storage key
// against the catalog, and memoizes the result so two checks running
// concurrently over the same document never redo the work.
package classifier

import (
	"strings"
	"sync"

	"compliscan/internal/catalog"
	"compliscan/internal/domain"
	"compliscan/internal/fetch"
)

// Classifier wraps a *catalog.Catalog with a per-document memoization
// cache.
type Classifier struct {
	cat *catalog.Catalog

	mu    sync.Mutex
	cache map[*fetch.Document][]domain.MatchedService
}

func New(cat *catalog.Catalog) *Classifier {
	return &Classifier{
		cat:   cat,
		cache: make(map[*fetch.Document][]domain.MatchedService),
	}
}

// Classify returns the set of matched services for doc, computing it
// once per document and reusing the result on subsequent calls (spec
// §5: "memoizing per-DOM results behind a once-computed guard").
func (c *Classifier) Classify(doc *fetch.Document) []domain.MatchedService {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cached, ok := c.cache[doc]; ok {
		return cached
	}

	obs := observe(doc)
	matched := c.cat.Match(obs)
	matched = append(matched, unclassifiedScripts(obs, matched)...)
	c.cache[doc] = matched
	return matched
}

// observe extracts the catalog-matchable surface of a document: script
// sources, inline script bodies, iframe sources, cookie names, and
// (rendered mode only) local storage keys.
func observe(doc *fetch.Document) catalog.Observation {
	var obs catalog.Observation
	if doc.Root != nil {
		for _, n := range fetch.FindAll(doc.Root, "script") {
			if src, ok := fetch.Attr(n, "src"); ok && src != "" {
				obs.ScriptSrcs = append(obs.ScriptSrcs, src)
				continue
			}
			if body := strings.TrimSpace(fetch.Text(n)); body != "" {
				obs.InlineScripts = append(obs.InlineScripts, body)
			}
		}
		for _, n := range fetch.FindAll(doc.Root, "iframe") {
			if src, ok := fetch.Attr(n, "src"); ok && src != "" {
				obs.IframeSrcs = append(obs.IframeSrcs, src)
			}
		}
	}
	for _, c := range doc.Cookies {
		obs.CookieNames = append(obs.CookieNames, c.Name)
	}
	for key := range doc.LocalStorage {
		obs.StorageKeys = append(obs.StorageKeys, key)
	}
	return obs
}

// unclassifiedScripts synthesizes a conservative MatchedService for every
// third-party script source that matched no catalog entry (spec §4.A).
func unclassifiedScripts(obs catalog.Observation, matched []domain.MatchedService) []domain.MatchedService {
	known := make(map[string]bool)
	for _, m := range matched {
		for _, ev := range m.Evidence {
			known[ev.Element] = true
		}
	}
	var out []domain.MatchedService
	seen := make(map[string]bool)
	for _, src := range obs.ScriptSrcs {
		if known[src] || seen[src] || !isThirdParty(src) {
			continue
		}
		seen[src] = true
		out = append(out, catalog.Unclassified(src))
	}
	return out
}

// isThirdParty is a conservative heuristic: any script loaded from an
// absolute http(s) URL is treated as a third party worth classifying,
// relative/inline scripts are assumed first-party.
func isThirdParty(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") || strings.HasPrefix(src, "//")
}
