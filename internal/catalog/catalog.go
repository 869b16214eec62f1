// Package catalog loads and matches the service catalog described in
// spec.md §4.A: a registry of known third-party services, fingerprinted
// by script/iframe/cookie/storage patterns, each annotated with a
// blocking recipe.
package catalog

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"compliscan/internal/domain"
	"compliscan/internal/logging"
)

// catalogFile is the on-disk shape of the catalog YAML.
type catalogFile struct {
	Services []domain.ServiceEntry `yaml:"services"`
}

// Catalog is a copy-on-write, hot-reloadable registry. Readers always see
// a consistent snapshot — a reload swaps an atomic pointer rather than
// mutating shared state in place (spec §5).
type Catalog struct {
	path     string
	snapshot atomic.Pointer[snapshot]
}

type snapshot struct {
	byKey    map[string]domain.ServiceEntry
	services []domain.ServiceEntry
}

// Load reads the catalog file at path. An absent or corrupt catalog is a
// hard failure — the core refuses to start without one (spec §4.A).
func Load(path string) (*Catalog, error) {
	c := &Catalog{path: path}
	if err := c.reload(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) reload() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return fmt.Errorf("catalog: read %s: %w", c.path, err)
	}

	var cf catalogFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return fmt.Errorf("catalog: parse %s: %w", c.path, err)
	}
	if len(cf.Services) == 0 {
		return fmt.Errorf("catalog: %s defines no services", c.path)
	}

	byKey := make(map[string]domain.ServiceEntry, len(cf.Services))
	for _, svc := range cf.Services {
		if svc.Key == "" {
			return fmt.Errorf("catalog: service entry with empty key")
		}
		if _, dup := byKey[svc.Key]; dup {
			return fmt.Errorf("catalog: duplicate service key %q", svc.Key)
		}
		byKey[svc.Key] = svc
	}

	c.snapshot.Store(&snapshot{byKey: byKey, services: cf.Services})
	logging.Catalog("catalog: loaded %d services from %s", len(cf.Services), c.path)
	return nil
}

// Reload re-reads the catalog file, replacing the in-memory snapshot only
// on success — a bad edit on disk never takes down a running catalog.
func (c *Catalog) Reload() error {
	old := c.snapshot.Load()
	if err := c.reload(); err != nil {
		logging.Get(logging.CategoryCatalog).Warn("catalog: reload failed, keeping previous snapshot: %v", err)
		if old != nil {
			c.snapshot.Store(old)
		}
		return err
	}
	return nil
}

// Lookup returns the service entry for key, if known.
func (c *Catalog) Lookup(key string) (domain.ServiceEntry, bool) {
	snap := c.snapshot.Load()
	if snap == nil {
		return domain.ServiceEntry{}, false
	}
	svc, ok := snap.byKey[key]
	return svc, ok
}

// All returns every known service entry.
func (c *Catalog) All() []domain.ServiceEntry {
	snap := c.snapshot.Load()
	if snap == nil {
		return nil
	}
	out := make([]domain.ServiceEntry, len(snap.services))
	copy(out, snap.services)
	return out
}

// matchPattern implements the cookie/storage pattern grammar: a literal
// string, or a literal followed by `*` acting as a prefix wildcard — no
// other metacharacters (spec §6).
func matchPattern(pattern, value string) bool {
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(value, strings.TrimSuffix(pattern, "*"))
	}
	return pattern == value
}

// containsPattern implements the substring match used for script/iframe
// URL patterns (spec §4.A: "substrings/globs" — treated as substrings,
// the simplest glob that covers every example in spec §8's fixtures).
func containsPattern(pattern, value string) bool {
	return pattern != "" && strings.Contains(value, pattern)
}
