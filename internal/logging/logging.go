// Package logging provides the global logger for voxsurf.
// Use dot import to call L_info, L_error, etc. directly.
package logging

import (
	"os"
	"sync"

	"github.com/charmbracelet/log"
)

var (
	logger *log.Logger
	once   sync.Once
)

// Config holds logging configuration.
type Config struct {
	Level      string `yaml:"level"`
	TimeFormat string `yaml:"time_format"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		TimeFormat: "15:04:05",
	}
}

// Init initializes the global logger. Safe to call multiple times;
// only the first call takes effect.
func Init(cfg Config) {
	once.Do(func() {
		if cfg.TimeFormat == "" {
			cfg.TimeFormat = "15:04:05"
		}
		logger = log.NewWithOptions(os.Stderr, log.Options{
			ReportTimestamp: true,
			TimeFormat:      cfg.TimeFormat,
		})
		logger.SetLevel(parseLevel(cfg.Level))
	})
}

func parseLevel(level string) log.Level {
	switch level {
	case "debug", "trace":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

func ensureInit() {
	if logger == nil {
		Init(DefaultConfig())
	}
}

// L_debug logs at debug level with key-value pairs.
func L_debug(msg string, keyvals ...interface{}) {
	ensureInit()
	logger.Debug(msg, keyvals...)
}

// L_info logs at info level with key-value pairs.
func L_info(msg string, keyvals ...interface{}) {
	ensureInit()
	logger.Info(msg, keyvals...)
}

// L_warn logs at warn level with key-value pairs.
func L_warn(msg string, keyvals ...interface{}) {
	ensureInit()
	logger.Warn(msg, keyvals...)
}

// L_error logs at error level with key-value pairs.
func L_error(msg string, keyvals ...interface{}) {
	ensureInit()
	logger.Error(msg, keyvals...)
}

// SetLevel changes the log level at runtime.
func SetLevel(level string) {
	ensureInit()
	logger.SetLevel(parseLevel(level))
}
