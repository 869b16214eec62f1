package config

import "time"

// QuotaConfig seeds default per-plan limits and the idempotency window
// (spec §3, §4.G). Actual per-user plan assignment comes from the auth
// collaborator; these are fallbacks for unknown/free-tier users.
type QuotaConfig struct {
	DefaultPlan           string `yaml:"default_plan"`
	DefaultScansLimit     int    `yaml:"default_scans_limit"`
	DefaultFixesLimit     int    `yaml:"default_fixes_limit"`
	DefaultExportsLimit   int    `yaml:"default_exports_limit"`
	IdempotencyWindowHours int   `yaml:"idempotency_window_hours"`
	IdempotencyCacheSize  int    `yaml:"idempotency_cache_size"`
}

func DefaultQuotaConfig() QuotaConfig {
	return QuotaConfig{
		DefaultPlan:            "free",
		DefaultScansLimit:      10,
		DefaultFixesLimit:      20,
		DefaultExportsLimit:    5,
		IdempotencyWindowHours: 24,
		IdempotencyCacheSize:   4096,
	}
}

func (c QuotaConfig) IdempotencyWindow() time.Duration {
	return time.Duration(c.IdempotencyWindowHours) * time.Hour
}

// StoreConfig locates the SQLite database file.
type StoreConfig struct {
	Path string `yaml:"path"`
}

func DefaultStoreConfig() StoreConfig {
	return StoreConfig{Path: ".compliscan/compliscan.db"}
}
