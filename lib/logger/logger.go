// Package logger provides named, leveled loggers for all hivecache components.
// Each component requests its logger once via GetLogger and the level of every
// logger can be changed at runtime (e.g. from the serve command's --log-level flag).
package logger

import (
	"fmt"
	"os"
	"strings"
	"sync"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// --------------------------------------------------------------------------
// Log Levels
// --------------------------------------------------------------------------

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel converts a string level to a Level.
// It returns an error for unknown level names.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warning", "warn":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("invalid log level: %s. must be one of debug, info, warn, error", s)
	}
}

// --------------------------------------------------------------------------
// Logger
// --------------------------------------------------------------------------

// Logger is a named, leveled logger backed by go-kit/log.
type Logger struct {
	name string
	kit  kitlog.Logger

	mu    sync.RWMutex
	level Level
}

// SetLevel changes the minimum level this logger emits.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (l *Logger) SetLevel(lvl Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = lvl
}

func (l *Logger) enabled(lvl Level) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return lvl >= l.level
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	if l.enabled(LevelDebug) {
		_ = level.Debug(l.kit).Log("msg", fmt.Sprintf(format, args...))
	}
}

func (l *Logger) Infof(format string, args ...interface{}) {
	if l.enabled(LevelInfo) {
		_ = level.Info(l.kit).Log("msg", fmt.Sprintf(format, args...))
	}
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	if l.enabled(LevelWarn) {
		_ = level.Warn(l.kit).Log("msg", fmt.Sprintf(format, args...))
	}
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	if l.enabled(LevelError) {
		_ = level.Error(l.kit).Log("msg", fmt.Sprintf(format, args...))
	}
}

// --------------------------------------------------------------------------
// Logger Registry
// --------------------------------------------------------------------------

var (
	registryMu sync.Mutex
	registry   = map[string]*Logger{}
	base       = kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stdout))
)

// GetLogger returns the logger for the given component name, creating it on
// first use. Repeated calls with the same name return the same logger.
//
// Thread-safety: This function is thread-safe and can be called concurrently.
func GetLogger(name string) *Logger {
	registryMu.Lock()
	defer registryMu.Unlock()

	if l, ok := registry[name]; ok {
		return l
	}

	l := &Logger{
		name:  name,
		kit:   kitlog.With(base, "ts", kitlog.DefaultTimestampUTC, "component", name),
		level: LevelInfo,
	}
	registry[name] = l
	return l
}

// SetAllLevels sets the level of every logger registered so far. Loggers
// created afterwards start at LevelInfo. Used by the CLI to apply --log-level.
func SetAllLevels(lvl Level) {
	registryMu.Lock()
	defer registryMu.Unlock()

	for _, l := range registry {
		l.SetLevel(lvl)
	}
}
