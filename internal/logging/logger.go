// Package logging provides config-driven categorized file logging for the
// memory engine. Logs are written to <root>/.mnemo/logs/ with one file per
// category. Logging is controlled by the logging section of
// .mnemo/config.yaml - when debug_mode is false nothing is written.
package logging

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Category names one subsystem's log stream.
type Category string

const (
	CategoryBoot       Category = "boot"       // Startup, load, health
	CategoryStore      Category = "store"      // Durable unit storage
	CategoryGraph      Category = "graph"      // Relationship graph updates
	CategoryImportance Category = "importance" // Importance factor scoring
	CategoryPredictor  Category = "predictor"  // Access prediction
	CategoryTier       Category = "tier"       // Tier assignment, consolidation
	CategoryRetrieval  Category = "retrieval"  // Similarity search and ranking
	CategoryBinder     Category = "binder"     // HRR binding operations
	CategoryEmbedding  Category = "embedding"  // Embedding providers
	CategoryAffect     Category = "affect"     // Emotion extraction
	CategorySession    Category = "session"    // Session continuity
	CategoryMemory     Category = "memory"     // Core facade operations
)

// loggingConfig mirrors config.LoggingConfig to avoid a circular import.
type loggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"`
	Categories map[string]bool `yaml:"categories"`
}

type configFile struct {
	Logging loggingConfig `yaml:"logging"`
}

// Logger wraps a standard logger bound to one category file.
type Logger struct {
	category Category
	logger   *log.Logger
	file     *os.File
}

var (
	loggers   = make(map[Category]*Logger)
	loggersMu sync.RWMutex
	logsDir   string
	root      string
	cfg       loggingConfig
	cfgMu     sync.RWMutex
	logLevel  int
)

// Log levels.
const (
	LevelDebug = 0
	LevelInfo  = 1
	LevelWarn  = 2
	LevelError = 3
)

// Initialize sets up the logging directory and loads config. Call once at
// startup with the store root path.
func Initialize(storeRoot string) error {
	if storeRoot == "" {
		return fmt.Errorf("store root required")
	}
	root = storeRoot
	logsDir = filepath.Join(root, ".mnemo", "logs")

	if err := loadConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "[logging] warning: could not load config: %v\n", err)
		cfg.DebugMode = false
	}
	if !cfg.DebugMode {
		return nil // Silent no-op in production mode.
	}
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	boot := Get(CategoryBoot)
	boot.Info("=== mnemo logging initialized ===")
	boot.Info("Store root: %s", root)
	boot.Info("Log level: %s", cfg.Level)
	return nil
}

func loadConfig() error {
	cfgMu.Lock()
	defer cfgMu.Unlock()

	data, err := os.ReadFile(filepath.Join(root, ".mnemo", "config.yaml"))
	if err != nil {
		if os.IsNotExist(err) {
			cfg.DebugMode = false
			return nil
		}
		return err
	}
	var cf configFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	cfg = cf.Logging

	switch cfg.Level {
	case "debug":
		logLevel = LevelDebug
	case "warn", "warning":
		logLevel = LevelWarn
	case "error":
		logLevel = LevelError
	default:
		logLevel = LevelInfo
	}
	return nil
}

// ReloadConfig rereads the config from disk. Call when the config file
// changes at runtime.
func ReloadConfig() error { return loadConfig() }

// IsCategoryEnabled reports whether a category currently logs.
func IsCategoryEnabled(category Category) bool {
	cfgMu.RLock()
	defer cfgMu.RUnlock()
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

// Get returns (or creates) the logger for a category. Disabled categories
// get a no-op logger.
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

	// Date prefix keeps rotation a matter of deleting old files.
	filename := fmt.Sprintf("%s_%s.log", time.Now().Format("2006-01-02"), category)
	file, err := os.OpenFile(filepath.Join(logsDir, filename), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[logging] warning: could not open log file: %v\n", err)
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

// Debug logs a debug message.
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelDebug {
		return
	}
	l.logger.Printf("[DEBUG] %s", fmt.Sprintf(format, args...))
}

// Info logs an informational message.
func (l *Logger) Info(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelInfo {
		return
	}
	l.logger.Printf("[INFO] %s", fmt.Sprintf(format, args...))
}

// Warn logs a warning.
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelWarn {
		return
	}
	l.logger.Printf("[WARN] %s", fmt.Sprintf(format, args...))
}

// Error logs an error. Always written when the logger exists.
func (l *Logger) Error(format string, args ...interface{}) {
	if l.logger == nil {
		return
	}
	l.logger.Printf("[ERROR] %s", fmt.Sprintf(format, args...))
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

// =============================================================================
// CONVENIENCE FUNCTIONS - quick logging without getting a logger first.
// No-ops when the category is disabled.
// =============================================================================

// Boot logs to the boot category.
func Boot(format string, args ...interface{}) { Get(CategoryBoot).Info(format, args...) }

// BootDebug logs debug to the boot category.
func BootDebug(format string, args ...interface{}) { Get(CategoryBoot).Debug(format, args...) }

// Store logs to the store category.
func Store(format string, args ...interface{}) { Get(CategoryStore).Info(format, args...) }

// StoreDebug logs debug to the store category.
func StoreDebug(format string, args ...interface{}) { Get(CategoryStore).Debug(format, args...) }

// Graph logs to the graph category.
func Graph(format string, args ...interface{}) { Get(CategoryGraph).Info(format, args...) }

// GraphDebug logs debug to the graph category.
func GraphDebug(format string, args ...interface{}) { Get(CategoryGraph).Debug(format, args...) }

// Importance logs to the importance category.
func Importance(format string, args ...interface{}) { Get(CategoryImportance).Info(format, args...) }

// ImportanceDebug logs debug to the importance category.
func ImportanceDebug(format string, args ...interface{}) {
	Get(CategoryImportance).Debug(format, args...)
}

// Predictor logs to the predictor category.
func Predictor(format string, args ...interface{}) { Get(CategoryPredictor).Info(format, args...) }

// PredictorDebug logs debug to the predictor category.
func PredictorDebug(format string, args ...interface{}) {
	Get(CategoryPredictor).Debug(format, args...)
}

// Tier logs to the tier category.
func Tier(format string, args ...interface{}) { Get(CategoryTier).Info(format, args...) }

// TierDebug logs debug to the tier category.
func TierDebug(format string, args ...interface{}) { Get(CategoryTier).Debug(format, args...) }

// Retrieval logs to the retrieval category.
func Retrieval(format string, args ...interface{}) { Get(CategoryRetrieval).Info(format, args...) }

// RetrievalDebug logs debug to the retrieval category.
func RetrievalDebug(format string, args ...interface{}) {
	Get(CategoryRetrieval).Debug(format, args...)
}

// Binder logs to the binder category.
func Binder(format string, args ...interface{}) { Get(CategoryBinder).Info(format, args...) }

// BinderDebug logs debug to the binder category.
func BinderDebug(format string, args ...interface{}) { Get(CategoryBinder).Debug(format, args...) }

// Embedding logs to the embedding category.
func Embedding(format string, args ...interface{}) { Get(CategoryEmbedding).Info(format, args...) }

// EmbeddingDebug logs debug to the embedding category.
func EmbeddingDebug(format string, args ...interface{}) {
	Get(CategoryEmbedding).Debug(format, args...)
}

// Affect logs to the affect category.
func Affect(format string, args ...interface{}) { Get(CategoryAffect).Info(format, args...) }

// AffectDebug logs debug to the affect category.
func AffectDebug(format string, args ...interface{}) { Get(CategoryAffect).Debug(format, args...) }

// Session logs to the session category.
func Session(format string, args ...interface{}) { Get(CategorySession).Info(format, args...) }

// SessionDebug logs debug to the session category.
func SessionDebug(format string, args ...interface{}) { Get(CategorySession).Debug(format, args...) }

// Memory logs to the memory category.
func Memory(format string, args ...interface{}) { Get(CategoryMemory).Info(format, args...) }

// MemoryDebug logs debug to the memory category.
func MemoryDebug(format string, args ...interface{}) { Get(CategoryMemory).Debug(format, args...) }

// =============================================================================
// PERFORMANCE TIMING
// =============================================================================

// Timer times one operation and logs its duration on Stop.
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation.
func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, op: operation, start: time.Now()}
}

// Stop ends the timer and logs the duration at debug level.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithThreshold logs a warning when the duration exceeds threshold.
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("%s took %v (threshold: %v)", t.op, elapsed, threshold)
	} else {
		Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	}
	return elapsed
}
