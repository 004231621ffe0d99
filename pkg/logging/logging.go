package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rexliu/wvrpc/pkg/config"
)

// Logger is a named zap logger whose level and sinks can be reconfigured at
// startup. stdout is reserved for the protocol, so logs go to stderr.
type Logger struct {
	*zap.SugaredLogger
	name   string
	level  zap.AtomicLevel
	stderr io.Writer
	file   *rollingFile
}

// New returns a console logger writing to stderr at info level.
func New(name string) *Logger {
	return newLogger(name, os.Stderr)
}

func newLogger(name string, stderr io.Writer) *Logger {
	l := &Logger{
		name:   name,
		level:  zap.NewAtomicLevelAt(zapcore.InfoLevel),
		stderr: stderr,
	}
	l.rebuild()
	return l
}

// Nop returns a logger that discards everything.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

// ParseLevel maps a level name onto a zap level. "trace" is treated as debug.
func ParseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "trace":
		return zapcore.DebugLevel, nil
	}
	return zapcore.ParseLevel(s)
}

// SetLevel changes the level of this logger and every logger derived from it.
func (l *Logger) SetLevel(s string) error {
	lvl, err := ParseLevel(s)
	if err != nil {
		return err
	}
	l.level.SetLevel(lvl)
	return nil
}

// Configure applies logging settings from config.
func (l *Logger) Configure(cfg config.LoggingConfig) error {
	if l == nil {
		return nil
	}
	if err := l.SetLevel(cfg.Level); err != nil {
		return err
	}
	if cfg.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o700); err != nil {
			return err
		}
		file, err := newRollingFile(cfg.FilePath, cfg.FileMaxSize, cfg.FileBackups)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		if l.file != nil {
			l.file.Close()
		}
		l.file = file
	}
	l.rebuild()
	return nil
}

func (l *Logger) rebuild() {
	console := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.Lock(zapcore.AddSync(l.stderr)),
		l.level,
	)
	core := console
	if l.file != nil {
		core = zapcore.NewTee(console, zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.Lock(l.file),
			l.level,
		))
	}
	l.SugaredLogger = zap.New(core).Named(l.name).Sugar()
}

// Close flushes and releases the log file, if any.
func (l *Logger) Close() error {
	_ = l.Sync()
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}
