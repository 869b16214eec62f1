package config

import "time"

// ConcurrencyConfig sizes the fan-out, caps, and timeouts spec §5 names.
type ConcurrencyConfig struct {
	PerCheckTimeoutSec   int `yaml:"per_check_timeout_seconds"`
	WholeScanTimeoutSec  int `yaml:"whole_scan_timeout_seconds"`
	FixGenTimeoutSec     int `yaml:"fix_generation_timeout_seconds"`
	PerUserMaxInFlight   int `yaml:"per_user_max_in_flight_scans"`
	CancellationBudgetMs int `yaml:"cancellation_budget_millis"`
}

func DefaultConcurrencyConfig() ConcurrencyConfig {
	return ConcurrencyConfig{
		PerCheckTimeoutSec:   20,
		WholeScanTimeoutSec:  60,
		FixGenTimeoutSec:     45,
		PerUserMaxInFlight:   2,
		CancellationBudgetMs: 100,
	}
}

func (c ConcurrencyConfig) PerCheckTimeout() time.Duration {
	return time.Duration(c.PerCheckTimeoutSec) * time.Second
}

func (c ConcurrencyConfig) WholeScanTimeout() time.Duration {
	return time.Duration(c.WholeScanTimeoutSec) * time.Second
}

func (c ConcurrencyConfig) FixGenTimeout() time.Duration {
	return time.Duration(c.FixGenTimeoutSec) * time.Second
}
