package config

// CatalogConfig locates the service catalog file (spec §4.A).
type CatalogConfig struct {
	Path       string `yaml:"path"`
	HotReload  bool   `yaml:"hot_reload"`
}

func DefaultCatalogConfig() CatalogConfig {
	return CatalogConfig{
		Path:      "catalog/services.yaml",
		HotReload: true,
	}
}

// LegalUpdatesConfig locates the legal-update snapshot and the lookback
// window the overlay honors (spec §3, §4.F).
type LegalUpdatesConfig struct {
	Path             string `yaml:"path"`
	LookbackDays     int    `yaml:"lookback_days"`
}

func DefaultLegalUpdatesConfig() LegalUpdatesConfig {
	return LegalUpdatesConfig{
		Path:         "catalog/legal_updates.yaml",
		LookbackDays: 90,
	}
}
