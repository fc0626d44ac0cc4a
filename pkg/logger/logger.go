package logger

import (
	sdklogging "github.com/Layr-Labs/eigensdk-go/logging"
)

type Logger = sdklogging.Logger

// NewLogger returns the zap backed eigensdk logger for env. Anything other
// than production logs at development level.
func NewLogger(env sdklogging.LogLevel) (Logger, error) {
	if env != sdklogging.Production {
		env = sdklogging.Development
	}
	return sdklogging.NewZapLogger(env)
}

// EnsureLogger returns l, or a logger that drops everything when l is nil.
func EnsureLogger(l Logger) Logger {
	if l == nil {
		return discard{}
	}
	return l
}

type discard struct{}

func (d discard) Debug(string, ...any)          {}
func (d discard) Info(string, ...any)           {}
func (d discard) Warn(string, ...any)           {}
func (d discard) Error(string, ...any)          {}
func (d discard) Fatal(string, ...any)          {}
func (d discard) Debugf(string, ...any)         {}
func (d discard) Infof(string, ...any)          {}
func (d discard) Warnf(string, ...any)          {}
func (d discard) Errorf(string, ...any)         {}
func (d discard) Fatalf(string, ...any)         {}
func (d discard) With(...any) Logger            { return d }
func (d discard) WithComponent(string) Logger   { return d }
func (d discard) WithName(string) Logger        { return d }
func (d discard) WithServiceName(string) Logger { return d }
func (d discard) WithHostName(string) Logger    { return d }
func (d discard) Sync() error                   { return nil }
