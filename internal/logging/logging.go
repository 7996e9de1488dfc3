// Package logging provides category-based file logging for livecanvas.
// Each subsystem writes to its own file under <workspace>/.canvas/logs/;
// nothing is written unless debug mode is switched on in the session config.
package logging

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Category names one logging subsystem.
type Category string

const (
	CategoryBoot      Category = "boot"      // Startup and shutdown
	CategorySession   Category = "session"   // Scheduler, edit sequencing
	CategorySnapshot  Category = "snapshot"  // Tree capture
	CategoryCodegen   Category = "codegen"   // Import/body generation
	CategoryPatcher   Category = "patcher"   // Source document rewriting
	CategoryDualview  Category = "dualview"  // Overlay/clean tree mutations
	CategoryRender    Category = "render"    // Render surface lifecycle
	CategoryRegistry  Category = "registry"  // Element registry lookups
	CategoryWatch     Category = "watch"     // Authored-file watcher
)

// Settings controls the logging subsystem. Mirrors config.LoggingConfig to
// avoid an import cycle with the config package.
type Settings struct {
	DebugMode  bool
	Level      string
	Categories map[string]bool
}

// Log levels.
const (
	LevelDebug = 0
	LevelInfo  = 1
	LevelWarn  = 2
	LevelError = 3
)

// Logger writes to one category's log file.
type Logger struct {
	category Category
	logger   *log.Logger
	file     *os.File
}

var (
	mu       sync.RWMutex
	loggers  = make(map[Category]*Logger)
	logsDir  string
	settings Settings
	logLevel = LevelInfo
)

// Initialize configures the logging directory and level. Call once at
// startup with the workspace path; a no-op when debug mode is off.
func Initialize(workspace string, s Settings) error {
	mu.Lock()
	settings = s
	switch s.Level {
	case "debug":
		logLevel = LevelDebug
	case "info", "":
		logLevel = LevelInfo
	case "warn", "warning":
		logLevel = LevelWarn
	case "error":
		logLevel = LevelError
	default:
		logLevel = LevelInfo
	}
	mu.Unlock()

	if !s.DebugMode {
		return nil
	}
	if workspace == "" {
		return fmt.Errorf("workspace path required")
	}

	dir := filepath.Join(workspace, ".canvas", "logs")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}
	mu.Lock()
	logsDir = dir
	mu.Unlock()

	boot := Get(CategoryBoot)
	boot.Info("=== livecanvas logging initialized ===")
	boot.Info("Logs directory: %s", dir)
	boot.Info("Log level: %s", s.Level)
	return nil
}

// enabled reports whether the category should produce output.
func enabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	if !settings.DebugMode || logsDir == "" {
		return false
	}
	if settings.Categories == nil {
		return true
	}
	on, ok := settings.Categories[string(category)]
	if !ok {
		return true
	}
	return on
}

// Get returns the logger for a category, creating its file on first use.
// Disabled categories get a no-op logger.
func Get(category Category) *Logger {
	if !enabled(category) {
		return &Logger{category: category}
	}

	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}

	date := time.Now().Format("2006-01-02")
	path := filepath.Join(logsDir, fmt.Sprintf("%s_%s.log", date, category))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[logging] could not open %s: %v\n", path, err)
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

// Close flushes and closes every open log file.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	for cat, l := range loggers {
		if l.file != nil {
			l.file.Close()
		}
		delete(loggers, cat)
	}
	logsDir = ""
}

// Debug logs at debug level.
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelDebug {
		return
	}
	l.logger.Printf("[DEBUG] %s", fmt.Sprintf(format, args...))
}

// Info logs at info level.
func (l *Logger) Info(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelInfo {
		return
	}
	l.logger.Printf("[INFO] %s", fmt.Sprintf(format, args...))
}

// Warn logs at warn level.
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelWarn {
		return
	}
	l.logger.Printf("[WARN] %s", fmt.Sprintf(format, args...))
}

// Error logs at error level; always written when the category is enabled.
func (l *Logger) Error(format string, args ...interface{}) {
	if l.logger == nil {
		return
	}
	l.logger.Printf("[ERROR] %s", fmt.Sprintf(format, args...))
}

// Convenience helpers for the chattiest categories.

// Session logs an info message to the session category.
func Session(format string, args ...interface{}) { Get(CategorySession).Info(format, args...) }

// SessionDebug logs a debug message to the session category.
func SessionDebug(format string, args ...interface{}) { Get(CategorySession).Debug(format, args...) }

// Codegen logs an info message to the codegen category.
func Codegen(format string, args ...interface{}) { Get(CategoryCodegen).Info(format, args...) }

// CodegenDebug logs a debug message to the codegen category.
func CodegenDebug(format string, args ...interface{}) { Get(CategoryCodegen).Debug(format, args...) }

// SnapshotDebug logs a debug message to the snapshot category.
func SnapshotDebug(format string, args ...interface{}) { Get(CategorySnapshot).Debug(format, args...) }

// Watch logs an info message to the watch category.
func Watch(format string, args ...interface{}) { Get(CategoryWatch).Info(format, args...) }

// WatchDebug logs a debug message to the watch category.
func WatchDebug(format string, args ...interface{}) { Get(CategoryWatch).Debug(format, args...) }
