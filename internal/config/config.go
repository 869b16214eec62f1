// Package config loads compliscan's configuration tree. It mirrors the
// teacher's approach: one yaml-tagged struct per concern, a DefaultConfig
// constructor, and a thin file loader that overlays the on-disk file onto
// the defaults.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds every ambient and domain setting the core needs.
type Config struct {
	Fetch        FetchConfig       `yaml:"fetch"`
	Render       RenderConfig      `yaml:"render"`
	Catalog      CatalogConfig     `yaml:"catalog"`
	LegalUpdates LegalUpdatesConfig `yaml:"legal_updates"`
	LLM          LLMConfig         `yaml:"llm"`
	Quota        QuotaConfig       `yaml:"quota"`
	Store        StoreConfig       `yaml:"store"`
	Logging      LoggingConfig     `yaml:"logging"`
	Concurrency  ConcurrencyConfig `yaml:"concurrency"`
}

// DefaultConfig returns compliscan's built-in defaults, matching the
// timeouts and caps spec.md §5 names.
func DefaultConfig() *Config {
	return &Config{
		Fetch:        DefaultFetchConfig(),
		Render:       DefaultRenderConfig(),
		Catalog:      DefaultCatalogConfig(),
		LegalUpdates: DefaultLegalUpdatesConfig(),
		LLM:          DefaultLLMConfig(),
		Quota:        DefaultQuotaConfig(),
		Store:        DefaultStoreConfig(),
		Logging:      DefaultLoggingConfig(),
		Concurrency:  DefaultConcurrencyConfig(),
	}
}

// Load reads a yaml config file from path and overlays it onto
// DefaultConfig. A missing file is not an error — the caller gets
// defaults, matching the teacher's "absent config = defaults" convention.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if key := os.Getenv("COMPLISCAN_LLM_API_KEY"); key != "" {
		cfg.LLM.APIKey = key
	}

	return cfg, nil
}
