package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger interface {
	DebugEnabled() bool
	SetDebug(enabled bool)
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// Config selects the zap encoder and minimum level.
type Config struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

// ZapLogger adapts a sugared zap logger to Logger. The level is atomic so
// SetDebug can be flipped from any goroutine.
type ZapLogger struct {
	level  zap.AtomicLevel
	base   zapcore.Level
	sugar  *zap.SugaredLogger
	logger *zap.Logger
}

func New(cfg Config) (*ZapLogger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, err
	}
	return &ZapLogger{
		level:  zapCfg.Level,
		base:   level,
		sugar:  logger.Sugar(),
		logger: logger,
	}, nil
}

// NewDefaultLogger returns a console logger named after prefix.
func NewDefaultLogger(prefix string, debug bool) *ZapLogger {
	level := "info"
	if debug {
		level = "debug"
	}
	l, err := New(Config{Level: level, Format: "console"})
	if err != nil {
		return Wrap(zap.NewNop())
	}
	if prefix != "" {
		l.logger = l.logger.Named(prefix)
		l.sugar = l.logger.Sugar()
	}
	return l
}

// Wrap adapts an existing zap logger. Its core decides what is enabled, so
// SetDebug only affects loggers built by New.
func Wrap(logger *zap.Logger) *ZapLogger {
	return &ZapLogger{
		level:  zap.NewAtomicLevelAt(zapcore.InfoLevel),
		base:   zapcore.InfoLevel,
		sugar:  logger.Sugar(),
		logger: logger,
	}
}

func (l *ZapLogger) DebugEnabled() bool {
	return l.logger.Core().Enabled(zapcore.DebugLevel)
}

func (l *ZapLogger) SetDebug(enabled bool) {
	if enabled {
		l.level.SetLevel(zapcore.DebugLevel)
		return
	}
	if l.base == zapcore.DebugLevel {
		l.level.SetLevel(zapcore.InfoLevel)
		return
	}
	l.level.SetLevel(l.base)
}

func (l *ZapLogger) Debugf(format string, args ...any) { l.sugar.Debugf(format, args...) }
func (l *ZapLogger) Infof(format string, args ...any)  { l.sugar.Infof(format, args...) }
func (l *ZapLogger) Warnf(format string, args ...any)  { l.sugar.Warnf(format, args...) }
func (l *ZapLogger) Errorf(format string, args ...any) { l.sugar.Errorf(format, args...) }

// Sync flushes buffered entries.
func (l *ZapLogger) Sync() error { return l.logger.Sync() }

type nopLogger struct{}

func NewNopLogger() Logger { return &nopLogger{} }

func (n *nopLogger) DebugEnabled() bool                { return false }
func (n *nopLogger) SetDebug(enabled bool)             {}
func (n *nopLogger) Debugf(format string, args ...any) {}
func (n *nopLogger) Infof(format string, args ...any)  {}
func (n *nopLogger) Warnf(format string, args ...any)  {}
func (n *nopLogger) Errorf(format string, args ...any) {}

// OrNop returns l, or a no-op logger when l is nil. Never returns nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return NewNopLogger()
	}
	return l
}
