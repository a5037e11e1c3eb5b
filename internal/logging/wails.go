package logging

import (
	"github.com/wailsapp/wails/v2/pkg/logger"
	"go.uber.org/zap"
)

// WailsLogger routes wails runtime log lines into zap.
type WailsLogger struct {
	log *zap.Logger
}

var _ logger.Logger = (*WailsLogger)(nil)

func NewWailsLogger(log *zap.Logger) *WailsLogger {
	if log == nil {
		log = zap.NewNop()
	}
	return &WailsLogger{log: log.Named("wails").WithOptions(zap.AddCallerSkip(1))}
}

func (w *WailsLogger) Print(message string)   { w.log.Info(message) }
func (w *WailsLogger) Trace(message string)   { w.log.Debug(message) }
func (w *WailsLogger) Debug(message string)   { w.log.Debug(message) }
func (w *WailsLogger) Info(message string)    { w.log.Info(message) }
func (w *WailsLogger) Warning(message string) { w.log.Warn(message) }
func (w *WailsLogger) Error(message string)   { w.log.Error(message) }

// Fatal is logged at error level; wails exits on its own after calling it.
func (w *WailsLogger) Fatal(message string) { w.log.Error(message) }

// WailsLevel maps a zap level onto the wails log level.
func WailsLevel(level string) logger.LogLevel {
	parsed, err := ParseLevel(level)
	if err != nil {
		return logger.INFO
	}
	switch {
	case parsed <= zap.DebugLevel:
		return logger.DEBUG
	case parsed == zap.InfoLevel:
		return logger.INFO
	case parsed == zap.WarnLevel:
		return logger.WARNING
	default:
		return logger.ERROR
	}
}
