// Package logging provides config-driven, categorized file logging for
// compliscan. Logs are written to <workspace>/.compliscan/logs/ with one
// file per category. Logging is gated by debug_mode in the loaded config —
// when disabled, every call is a no-op so hot paths (a running scan) never
// pay for I/O they didn't ask for.
package logging

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Category identifies a logging subsystem.
type Category string

const (
	CategoryBoot          Category = "boot"
	CategoryOrchestrator  Category = "orchestrator"
	CategoryFetch         Category = "fetch"
	CategoryRender        Category = "render"
	CategoryCatalog       Category = "catalog"
	CategoryClassifier    Category = "classifier"
	CategoryCheckImprint  Category = "check_imprint"
	CategoryCheckPrivacy  Category = "check_privacy"
	CategoryCheckCookie   Category = "check_cookie"
	CategoryCheckA11y     Category = "check_accessibility"
	CategoryScoring       Category = "scoring"
	CategoryLegal         Category = "legal"
	CategoryFixgen        Category = "fixgen"
	CategoryQuota         Category = "quota"
	CategoryAudit         Category = "audit"
	CategoryLLM           Category = "llm"
	CategoryStore         Category = "store"
	CategoryCLI           Category = "cli"
)

// loggingConfig mirrors config.LoggingConfig to avoid an import cycle.
type loggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Categories map[string]bool `yaml:"categories"`
	Level      string          `yaml:"level"`
	JSONFormat bool            `yaml:"json_format"`
}

// StructuredLogEntry is one JSON log line.
type StructuredLogEntry struct {
	Timestamp int64                  `json:"ts"`
	Category  string                 `json:"cat"`
	Level     string                 `json:"lvl"`
	Message   string                 `json:"msg"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// Logger wraps a standard logger scoped to one category.
type Logger struct {
	category Category
	logger   *log.Logger
	file     *os.File
}

var (
	loggers      = make(map[Category]*Logger)
	loggersMu    sync.RWMutex
	logsDir      string
	workspace    string
	cfg          loggingConfig
	configLoaded bool
	configMu     sync.RWMutex
	logLevel     int
)

const (
	LevelDebug = 0
	LevelInfo  = 1
	LevelWarn  = 2
	LevelError = 3
)

// Configure wires an already-loaded config into the logging package.
// Call this once at startup instead of Initialize when the caller already
// parsed .compliscan/config.yaml (the common path for cmd/compliscan).
func Configure(ws string, debugMode bool, categories map[string]bool, level string, jsonFormat bool) {
	configMu.Lock()
	workspace = ws
	logsDir = filepath.Join(workspace, ".compliscan", "logs")
	cfg = loggingConfig{DebugMode: debugMode, Categories: categories, Level: level, JSONFormat: jsonFormat}
	configLoaded = true
	logLevel = parseLevel(level)
	configMu.Unlock()

	if !debugMode {
		return
	}
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "[logging] could not create logs directory: %v\n", err)
		return
	}
	boot := Get(CategoryBoot)
	boot.Info("=== compliscan logging initialized ===")
	boot.Info("workspace=%s logs_dir=%s level=%s json=%v", workspace, logsDir, level, jsonFormat)
}

func parseLevel(level string) int {
	switch level {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// IsDebugMode reports whether logging is enabled at all.
func IsDebugMode() bool {
	configMu.RLock()
	defer configMu.RUnlock()
	return cfg.DebugMode
}

// IsCategoryEnabled reports whether a category should log.
func IsCategoryEnabled(category Category) bool {
	configMu.RLock()
	defer configMu.RUnlock()
	if !cfg.DebugMode {
		return false
	}
	if cfg.Categories == nil {
		return true
	}
	enabled, exists := cfg.Categories[string(category)]
	if !exists {
		return true
	}
	return enabled
}

// Get returns (or lazily creates) the logger for a category. Returns a
// no-op logger when the category or debug mode is disabled.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) || logsDir == "" {
		return &Logger{category: category}
	}

	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	loggersMu.Lock()
	defer loggersMu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}

	date := time.Now().Format("2006-01-02")
	logPath := filepath.Join(logsDir, fmt.Sprintf("%s_%s.log", date, category))
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[logging] could not open log file %s: %v\n", logPath, err)
		return &Logger{category: category}
	}

	l := &Logger{
		category: category,
		file:     file,
		logger:   log.New(file, "", log.Ldate|log.Ltime|log.Lmicroseconds),
	}
	loggers[category] = l
	return l
}

func (l *Logger) logJSON(level, msg string) {
	entry := StructuredLogEntry{Timestamp: time.Now().UnixMilli(), Category: string(l.category), Level: level, Message: msg}
	data, err := json.Marshal(entry)
	if err != nil {
		l.logger.Printf("[%s] %s", level, msg)
		return
	}
	l.logger.Printf("%s", data)
}

func (l *Logger) emit(level string, minLevel int, format string, args ...interface{}) {
	if l.logger == nil || logLevel > minLevel {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if cfg.JSONFormat {
		l.logJSON(level, msg)
	} else {
		l.logger.Printf("[%s] %s", level, msg)
	}
}

func (l *Logger) Debug(format string, args ...interface{}) { l.emit("DEBUG", LevelDebug, format, args...) }
func (l *Logger) Info(format string, args ...interface{})  { l.emit("INFO", LevelInfo, format, args...) }
func (l *Logger) Warn(format string, args ...interface{})  { l.emit("WARN", LevelWarn, format, args...) }
func (l *Logger) Error(format string, args ...interface{}) {
	if l.logger == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if cfg.JSONFormat {
		l.logJSON("ERROR", msg)
	} else {
		l.logger.Printf("[ERROR] %s", msg)
	}
}

// StructuredLog writes a log entry with arbitrary structured fields, used
// where a plain format string loses information worth grepping for later
// (issue ids, scan ids, risk deltas).
func (l *Logger) StructuredLog(level, msg string, fields map[string]interface{}) {
	if l.logger == nil {
		return
	}
	entry := StructuredLogEntry{Timestamp: time.Now().UnixMilli(), Category: string(l.category), Level: level, Message: msg, Fields: fields}
	if cfg.JSONFormat {
		if data, err := json.Marshal(entry); err == nil {
			l.logger.Printf("%s", data)
			return
		}
	}
	l.logger.Printf("[%s] %s | fields=%v", level, msg, fields)
}

// CloseAll closes every open log file. Call at shutdown.
func CloseAll() {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	for _, l := range loggers {
		if l.file != nil {
			l.file.Close()
		}
	}
	loggers = make(map[Category]*Logger)
}

// Timer measures and logs an operation's duration.
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation in the given category.
func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, op: operation, start: time.Now()}
}

// Stop ends the timer and logs the duration at debug level.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithThreshold logs a warning if the operation exceeded threshold,
// otherwise logs at debug level. Used on the check/fetch/render hot paths
// where slow calls matter more than routine ones.
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("%s took %v (threshold: %v)", t.op, elapsed, threshold)
	} else {
		Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	}
	return elapsed
}

// =============================================================================
// CONVENIENCE FUNCTIONS — one Info/Debug pair per category
// =============================================================================

func Boot(format string, args ...interface{})      { Get(CategoryBoot).Info(format, args...) }
func BootDebug(format string, args ...interface{}) { Get(CategoryBoot).Debug(format, args...) }

func Orchestrator(format string, args ...interface{})      { Get(CategoryOrchestrator).Info(format, args...) }
func OrchestratorDebug(format string, args ...interface{}) { Get(CategoryOrchestrator).Debug(format, args...) }

func Fetch(format string, args ...interface{})      { Get(CategoryFetch).Info(format, args...) }
func FetchDebug(format string, args ...interface{}) { Get(CategoryFetch).Debug(format, args...) }

func Render(format string, args ...interface{})      { Get(CategoryRender).Info(format, args...) }
func RenderDebug(format string, args ...interface{}) { Get(CategoryRender).Debug(format, args...) }

func Catalog(format string, args ...interface{})      { Get(CategoryCatalog).Info(format, args...) }
func CatalogDebug(format string, args ...interface{}) { Get(CategoryCatalog).Debug(format, args...) }

func Classifier(format string, args ...interface{})      { Get(CategoryClassifier).Info(format, args...) }
func ClassifierDebug(format string, args ...interface{}) { Get(CategoryClassifier).Debug(format, args...) }

func Scoring(format string, args ...interface{})      { Get(CategoryScoring).Info(format, args...) }
func ScoringDebug(format string, args ...interface{}) { Get(CategoryScoring).Debug(format, args...) }

func Legal(format string, args ...interface{})      { Get(CategoryLegal).Info(format, args...) }
func LegalDebug(format string, args ...interface{}) { Get(CategoryLegal).Debug(format, args...) }

func Fixgen(format string, args ...interface{})      { Get(CategoryFixgen).Info(format, args...) }
func FixgenDebug(format string, args ...interface{}) { Get(CategoryFixgen).Debug(format, args...) }

func Quota(format string, args ...interface{})      { Get(CategoryQuota).Info(format, args...) }
func QuotaDebug(format string, args ...interface{}) { Get(CategoryQuota).Debug(format, args...) }

func LLM(format string, args ...interface{})      { Get(CategoryLLM).Info(format, args...) }
func LLMDebug(format string, args ...interface{}) { Get(CategoryLLM).Debug(format, args...) }

func Store(format string, args ...interface{})      { Get(CategoryStore).Info(format, args...) }
func StoreDebug(format string, args ...interface{}) { Get(CategoryStore).Debug(format, args...) }
