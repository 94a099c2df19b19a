// Package logging wraps a process-wide zap SugaredLogger so packages can log
// with printf-style helpers without threading a logger through every call.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the global logger instance for the application
var Logger *zap.SugaredLogger

func init() {
	Logger = newLogger(zapcore.InfoLevel, "console", os.Stderr)
}

// Init replaces the global logger. Format is "console" or "json"; an unknown
// level is an error so a typo in config does not silently hide debug output.
func Init(level, format string, w io.Writer) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}
	if w == nil {
		w = os.Stderr
	}
	Logger = newLogger(lvl, format, w)
	return nil
}

func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
}

func newLogger(level zapcore.Level, format string, w io.Writer) *zap.SugaredLogger {
	encCfg := zapcore.EncoderConfig{
		TimeKey:      "ts",
		LevelKey:     "lvl",
		MessageKey:   "msg",
		CallerKey:    "caller",
		EncodeLevel:  zapcore.CapitalLevelEncoder,
		EncodeTime:   zapcore.RFC3339TimeEncoder,
		EncodeCaller: zapcore.ShortCallerEncoder,
	}
	var encoder zapcore.Encoder
	if strings.EqualFold(format, "json") {
		encoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}
	core := zapcore.NewCore(encoder, zapcore.AddSync(w), zap.NewAtomicLevelAt(level))
	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()
}

// Top-level helpers for package alias usage
func Infof(format string, args ...interface{})  { Logger.Infof(format, args...) }
func Warnf(format string, args ...interface{})  { Logger.Warnf(format, args...) }
func Errorf(format string, args ...interface{}) { Logger.Errorf(format, args...) }
func Debugf(format string, args ...interface{}) { Logger.Debugf(format, args...) }

// Sync flushes buffered entries; call it before the process exits.
func Sync() {
	_ = Logger.Sync()
}
