package catalog

import "compliscan/internal/domain"

// Observation is the subset of a fetched/rendered page the catalog needs
// to match against — decoupled from internal/fetch's richer Document so
// this package never imports HTML-parsing machinery.
type Observation struct {
	ScriptSrcs    []string // <script src> attribute values
	InlineScripts []string // inline <script> text content
	IframeSrcs    []string // <iframe src> attribute values
	CookieNames   []string // observed cookie names
	StorageKeys   []string // local-storage keys, only set if renderer captured them
}

// Match runs every matching rule in spec §4.A, in order, unioning results
// across rules within a service and across services. A service that fires
// on more than one rule appears once with all its evidence.
func (c *Catalog) Match(obs Observation) []domain.MatchedService {
	results := make(map[string]*domain.MatchedService)

	addEvidence := func(svc domain.ServiceEntry, ev domain.MatchEvidence) {
		m, ok := results[svc.Key]
		if !ok {
			m = &domain.MatchedService{
				Entry:           svc,
				RequiresConsent: svc.Category.RequiresConsent(),
				BlockingRecipe:  svc.BlockMethod,
			}
			results[svc.Key] = m
		}
		m.Evidence = append(m.Evidence, ev)
	}

	for _, svc := range c.All() {
		for _, pattern := range svc.ScriptPatterns {
			for _, src := range obs.ScriptSrcs {
				if containsPattern(pattern, src) {
					addEvidence(svc, domain.MatchEvidence{ServiceKey: svc.Key, MatchedOn: "script", Pattern: pattern, Element: src})
				}
			}
			for _, inline := range obs.InlineScripts {
				if containsPattern(pattern, inline) {
					addEvidence(svc, domain.MatchEvidence{ServiceKey: svc.Key, MatchedOn: "script", Pattern: pattern, Element: "<inline>"})
				}
			}
		}
		for _, pattern := range svc.IframePatterns {
			for _, src := range obs.IframeSrcs {
				if containsPattern(pattern, src) {
					addEvidence(svc, domain.MatchEvidence{ServiceKey: svc.Key, MatchedOn: "iframe", Pattern: pattern, Element: src})
				}
			}
		}
		for _, pattern := range svc.CookiePatterns {
			for _, name := range obs.CookieNames {
				if matchPattern(pattern, name) {
					addEvidence(svc, domain.MatchEvidence{ServiceKey: svc.Key, MatchedOn: "cookie", Pattern: pattern, Element: name})
				}
			}
		}
		if len(obs.StorageKeys) > 0 {
			for _, pattern := range svc.StoragePatterns {
				for _, key := range obs.StorageKeys {
					if matchPattern(pattern, key) {
						addEvidence(svc, domain.MatchEvidence{ServiceKey: svc.Key, MatchedOn: "storage", Pattern: pattern, Element: key})
					}
				}
			}
		}
	}

	out := make([]domain.MatchedService, 0, len(results))
	for _, m := range results {
		out = append(out, *m)
	}
	return out
}

// Unclassified builds the conservative pseudo-service used when a script
// URL matches no catalog entry at all (spec §4.A).
func Unclassified(scriptSrc string) domain.MatchedService {
	entry := domain.ServiceEntry{
		Key:         domain.UnclassifiedServiceKey,
		DisplayName: "Unclassified third party",
		Category:    domain.CategoryMarketing,
		BlockMethod: domain.BlockScriptRewrite,
	}
	return domain.MatchedService{
		Entry:           entry,
		Evidence:        []domain.MatchEvidence{{ServiceKey: entry.Key, MatchedOn: "script", Element: scriptSrc}},
		RequiresConsent: true,
		BlockingRecipe:  domain.BlockScriptRewrite,
	}
}
