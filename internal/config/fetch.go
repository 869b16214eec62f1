package config

import "time"

// FetchConfig governs the static HTTP fetch (spec §4.B).
type FetchConfig struct {
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
	MaxRedirects    int    `yaml:"max_redirects"`
	UserAgent       string `yaml:"user_agent"`
	RetryBaseMillis int    `yaml:"retry_base_millis"`
}

func DefaultFetchConfig() FetchConfig {
	return FetchConfig{
		TimeoutSeconds:  30,
		MaxRedirects:    10,
		UserAgent:       "Mozilla/5.0 (compatible; compliscan/1.0; +https://compliscan.example/bot)",
		RetryBaseMillis: 500,
	}
}

func (c FetchConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c FetchConfig) RetryBase() time.Duration {
	return time.Duration(c.RetryBaseMillis) * time.Millisecond
}

// RenderConfig governs headless rendering (spec §4.B, §5).
type RenderConfig struct {
	BinaryPath           string `yaml:"binary_path"`
	Headless             bool   `yaml:"headless"`
	ViewportWidth        int    `yaml:"viewport_width"`
	ViewportHeight       int    `yaml:"viewport_height"`
	NavigationTimeoutSec int    `yaml:"navigation_timeout_seconds"`
	NetworkIdleMillis    int    `yaml:"network_idle_millis"`
	HardCapSeconds       int    `yaml:"hard_cap_seconds"`
	MaxConcurrent        int    `yaml:"max_concurrent"`
	// StaticBodyThresholdBytes and SPARootAttributes drive the `auto` escalation
	// heuristic (spec §4.B).
	StaticBodyThresholdBytes int      `yaml:"static_body_threshold_bytes"`
	SPARootAttributes        []string `yaml:"spa_root_attributes"`
}

func DefaultRenderConfig() RenderConfig {
	return RenderConfig{
		Headless:                 true,
		ViewportWidth:            1280,
		ViewportHeight:           800,
		NavigationTimeoutSec:     15,
		NetworkIdleMillis:        500,
		HardCapSeconds:           15,
		MaxConcurrent:            4,
		StaticBodyThresholdBytes: 2048,
		SPARootAttributes:        []string{"data-reactroot", "ng-version", "data-v-app", "id=\"root\"", "id=\"app\""},
	}
}

func (c RenderConfig) NavigationTimeout() time.Duration {
	return time.Duration(c.NavigationTimeoutSec) * time.Second
}

func (c RenderConfig) NetworkIdle() time.Duration {
	return time.Duration(c.NetworkIdleMillis) * time.Millisecond
}

func (c RenderConfig) HardCap() time.Duration {
	return time.Duration(c.HardCapSeconds) * time.Second
}
