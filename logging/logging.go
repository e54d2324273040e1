// Package logging builds the zap logger shared by the tool layers.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds logging configuration.
type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json, console
	OutputPath string // stdout, stderr, or file path
}

// Logger couples a zap logger with the level it was built on, so the level
// can be raised or lowered after construction.
type Logger struct {
	*zap.Logger
	level zap.AtomicLevel
}

func parseLevel(s string) zapcore.Level {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return zapcore.InfoLevel
	}
	return level
}

// New builds a logger. Unknown levels fall back to info; the console format
// selects the development encoder.
func New(cfg Config) (*Logger, error) {
	var config zap.Config
	if cfg.Format == "console" {
		config = zap.NewDevelopmentConfig()
	} else {
		config = zap.NewProductionConfig()
	}
	level := zap.NewAtomicLevelAt(parseLevel(cfg.Level))
	config.Level = level
	if cfg.OutputPath != "" {
		config.OutputPaths = []string{cfg.OutputPath}
	}
	logger, err := config.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, err
	}
	return &Logger{Logger: logger, level: level}, nil
}

// Nop is a logger that discards everything.
func Nop() *Logger {
	return &Logger{Logger: zap.NewNop(), level: zap.NewAtomicLevel()}
}

// SetLevel changes the level at runtime. Unparsable names are ignored.
func (l *Logger) SetLevel(level string) {
	var lv zapcore.Level
	if err := lv.UnmarshalText([]byte(level)); err != nil {
		return
	}
	l.level.SetLevel(lv)
}

func (l *Logger) Level() zapcore.Level {
	return l.level.Level()
}
