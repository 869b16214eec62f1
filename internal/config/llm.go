package config

import "time"

// LLMConfig configures the Gemini-backed alt-text / legal-paragraph
// collaborator (spec §6). APIKey is never read from the yaml file itself
// (see config.Load) — only from the environment, so it never lands in a
// committed config file.
type LLMConfig struct {
	Provider        string `yaml:"provider"`
	Model           string `yaml:"model"`
	APIKey          string `yaml:"-"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
	MaxConcurrent   int    `yaml:"max_concurrent"`
	RetryOn5xx      bool   `yaml:"retry_on_5xx"`
}

func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Provider:       "gemini",
		Model:          "gemini-2.0-flash",
		TimeoutSeconds: 15,
		MaxConcurrent:  8,
		RetryOn5xx:     true,
	}
}

func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
