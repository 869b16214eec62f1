package config

// LoggingConfig mirrors internal/logging's shape so the rest of the
// config tree stays yaml-declarative (the logging package itself takes
// plain values via logging.Configure to avoid importing config and
// creating a cycle).
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Categories map[string]bool `yaml:"categories,omitempty"`
	Level      string          `yaml:"level"`
	JSONFormat bool            `yaml:"json_format"`
}

func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		DebugMode:  false,
		Level:      "info",
		JSONFormat: true,
	}
}
