// Package logging provides a small structured logging facade, designed
// around uber-go/zap's sugared logger, with helpers for carrying a scoped
// logger on a context.
package logging

import "context"

// Logger is the abstract logging interface used throughout the module.
type Logger interface {
	Debug(args ...interface{})
	Debugw(msg string, keysAndValues ...interface{})
	Debugf(msg string, args ...interface{})
	Info(args ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Infof(msg string, args ...interface{})
	Warn(args ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Warnf(msg string, args ...interface{})
	Error(args ...interface{})
	Errorw(msg string, keysAndValues ...interface{})
	Errorf(msg string, args ...interface{})

	// Named creates a child logger with the given name.
	Named(name string) Logger

	// With creates a child logger and attaches structured context to it.
	With(field string, value interface{}) Logger
}

type ctxkey struct {
	logger Logger
}

// With attaches a logger to the context.
//
// This can be used to create logging scopes like so:
//
//	for _, o := range orders {
//	  ctx := With(ctx, logger.Named(o.ID))
//	  processOrder(ctx, o)
//	}
func With(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, ctxkey{}, &ctxkey{
		logger: logger,
	})
}

// FromContext returns the scoped logger, or a no-op logger if none has been
// attached.
func FromContext(ctx context.Context) Logger {
	c, ok := ctx.Value(ctxkey{}).(*ctxkey)
	if ok {
		return c.logger
	}
	return noop{}
}

// EnsureLogger returns a context that is guaranteed to have a logger
// attached, adding a dev logger when absent. Useful at process and test
// entry points.
func EnsureLogger(ctx context.Context) context.Context {
	if _, ok := ctx.Value(ctxkey{}).(*ctxkey); ok {
		return ctx
	}
	return With(ctx, NewDevLogger())
}

// Track a field across the lifetime of the context. Unlike attaching fields
// to a child logger, tracked values persist back up the call-chain to
// whoever attached the logger. As such, do not use this as a convenience in
// loops without creating a new scope using `logging.With`.
func Track(ctx context.Context, field string, value interface{}) {
	c, ok := ctx.Value(ctxkey{}).(*ctxkey)
	if ok {
		c.logger = c.logger.With(field, value)
	}
}

func Debug(ctx context.Context, msg string) {
	FromContext(ctx).Debug(msg)
}

func Debugw(ctx context.Context, msg string, fields ...interface{}) {
	FromContext(ctx).Debugw(msg, fields...)
}

func Debugf(ctx context.Context, msg string, args ...interface{}) {
	FromContext(ctx).Debugf(msg, args...)
}

func Info(ctx context.Context, msg string) {
	FromContext(ctx).Info(msg)
}

func Infow(ctx context.Context, msg string, fields ...interface{}) {
	FromContext(ctx).Infow(msg, fields...)
}

func Infof(ctx context.Context, msg string, args ...interface{}) {
	FromContext(ctx).Infof(msg, args...)
}

func Warn(ctx context.Context, msg string) {
	FromContext(ctx).Warn(msg)
}

func Warnw(ctx context.Context, msg string, fields ...interface{}) {
	FromContext(ctx).Warnw(msg, fields...)
}

func Warnf(ctx context.Context, msg string, args ...interface{}) {
	FromContext(ctx).Warnf(msg, args...)
}

func Error(ctx context.Context, msg string) {
	FromContext(ctx).Error(msg)
}

func Errorw(ctx context.Context, msg string, fields ...interface{}) {
	FromContext(ctx).Errorw(msg, fields...)
}

func Errorf(ctx context.Context, msg string, args ...interface{}) {
	FromContext(ctx).Errorf(msg, args...)
}

// noop discards all log output. Returned by FromContext when no logger has
// been attached, so library code can log unconditionally.
type noop struct{}

func (noop) Debug(args ...interface{})                       {}
func (noop) Debugw(msg string, keysAndValues ...interface{}) {}
func (noop) Debugf(msg string, args ...interface{})          {}
func (noop) Info(args ...interface{})                        {}
func (noop) Infow(msg string, keysAndValues ...interface{})  {}
func (noop) Infof(msg string, args ...interface{})           {}
func (noop) Warn(args ...interface{})                        {}
func (noop) Warnw(msg string, keysAndValues ...interface{})  {}
func (noop) Warnf(msg string, args ...interface{})           {}
func (noop) Error(args ...interface{})                       {}
func (noop) Errorw(msg string, keysAndValues ...interface{}) {}
func (noop) Errorf(msg string, args ...interface{})          {}
func (n noop) Named(name string) Logger                      { return n }
func (n noop) With(field string, value interface{}) Logger   { return n }
