package logging

import (
	"fmt"
	"strings"

	"github.com/fadedpez/duelbot/internal/types"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level represents a logging level
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

var levelNames = map[Level]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
}

var zapLevels = map[Level]zapcore.Level{
	DEBUG: zapcore.DebugLevel,
	INFO:  zapcore.InfoLevel,
	WARN:  zapcore.WarnLevel,
	ERROR: zapcore.ErrorLevel,
}

// String returns the level name
func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("Level(%d)", int(l))
}

// ParseLevel converts a level name such as "debug" or "WARN" into a Level
func ParseLevel(name string) (Level, error) {
	for level, levelName := range levelNames {
		if strings.EqualFold(name, levelName) {
			return level, nil
		}
	}
	return INFO, fmt.Errorf("unknown log level %q", name)
}

// Logger is a leveled printf-style logger on top of zap
type Logger struct {
	sugar *zap.SugaredLogger
	level Level
}

// NewLogger creates a logger writing to stdout. Development loggers use the
// console encoder, everything else emits JSON.
func NewLogger(level Level, development bool) (*Logger, error) {
	var cfg zap.Config
	if development {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zapLevels[level])
	cfg.OutputPaths = []string{"stdout"}

	// Skip the Logger wrapper frames so callers show up in the output
	zl, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return FromZap(zl, level), nil
}

// FromZap wraps an existing zap logger
func FromZap(zl *zap.Logger, level Level) *Logger {
	return &Logger{
		sugar: zl.Sugar(),
		level: level,
	}
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	return FromZap(zap.NewNop(), ERROR)
}

// Level returns the minimum level this logger emits
func (l *Logger) Level() Level {
	return l.level
}

// With returns a child logger carrying the given key/value pairs
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{
		sugar: l.sugar.With(keysAndValues...),
		level: l.level,
	}
}

// Debug logs a debug message
func (l *Logger) Debug(format string, v ...interface{}) {
	if l.level <= DEBUG {
		l.sugar.Debugf(format, v...)
	}
}

// Info logs an info message
func (l *Logger) Info(format string, v ...interface{}) {
	if l.level <= INFO {
		l.sugar.Infof(format, v...)
	}
}

// Warn logs a warning message
func (l *Logger) Warn(format string, v ...interface{}) {
	if l.level <= WARN {
		l.sugar.Warnf(format, v...)
	}
}

// Error logs an error message
func (l *Logger) Error(format string, v ...interface{}) {
	if l.level <= ERROR {
		l.sugar.Errorf(format, v...)
	}
}

// LogError logs a DuelError with its code and cause as structured fields
func (l *Logger) LogError(err error) {
	var duelErr *types.DuelError
	if types.As(err, &duelErr) {
		fields := []interface{}{
			"code", string(duelErr.Code),
			"message", duelErr.Message,
		}
		if duelErr.Err != nil {
			fields = append(fields, "cause", duelErr.Err.Error())
		}
		l.sugar.Errorw("Duel error occurred", fields...)
		return
	}
	l.Error("Unexpected error: %v", err)
}

// Sync flushes buffered log entries
func (l *Logger) Sync() error {
	return l.sugar.Sync()
}
