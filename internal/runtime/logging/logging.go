// Package logging defines the structured logger used across the matcher
// service and adapters to slog, Watermill and entry-style loggers.
package logging

import (
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
)

// Field keys shared by every component that logs about an event.
const (
	FieldHandler       = "handler"
	FieldMessageUUID   = "message_uuid"
	FieldCorrelationID = "correlation_id"
	FieldEntityType    = "entity_type"
	FieldFilterIDs     = "filter_ids"
	FieldDeliveries    = "deliveries"
)

// LogFields are structured key/value pairs attached to a log line.
type LogFields map[string]any

// ServiceLogger is the logging contract of the service. It mirrors what
// Watermill needs so one logger serves both.
type ServiceLogger interface {
	With(fields LogFields) ServiceLogger
	Debug(msg string, fields LogFields)
	Info(msg string, fields LogFields)
	Error(msg string, err error, fields LogFields)
	Trace(msg string, fields LogFields)
}

// EntryLoggerAdapter is satisfied by entry-style loggers (logrus.Entry and
// lookalikes) whose With* methods return their own type T.
type EntryLoggerAdapter[T any] interface {
	Error(args ...any)
	Info(args ...any)
	Debug(args ...any)
	Trace(args ...any)
	WithError(err error) T
	WithField(key string, value any) T
}

// NewSlogServiceLogger logs through log. Watermill trace output is emitted at
// slog debug level.
func NewSlogServiceLogger(log *slog.Logger) ServiceLogger {
	if log == nil {
		panic("protomatch: slog logger cannot be nil")
	}
	adapter := watermill.NewSlogLoggerWithLevelMapping(log, map[slog.Level]slog.Level{
		watermill.LevelTrace: slog.LevelDebug,
	})
	return &watermillLogger{inner: adapter}
}

// NewWatermillServiceLogger logs through an existing Watermill adapter.
func NewWatermillServiceLogger(adapter watermill.LoggerAdapter) ServiceLogger {
	if adapter == nil {
		panic("protomatch: watermill logger cannot be nil")
	}
	return &watermillLogger{inner: adapter}
}

// NewEntryServiceLogger logs through an entry-style logger.
func NewEntryServiceLogger[T EntryLoggerAdapter[T]](entry T) ServiceLogger {
	if any(entry) == nil {
		panic("protomatch: entry logger cannot be nil")
	}
	return &entryLogger[T]{entry: entry}
}

// NewNopServiceLogger discards everything.
func NewNopServiceLogger() ServiceLogger {
	return &watermillLogger{inner: watermill.NopLogger{}}
}

// MessageFields returns the fields identifying msg in log lines.
func MessageFields(msg *message.Message) LogFields {
	fields := LogFields{FieldMessageUUID: msg.UUID}
	if id := middleware.MessageCorrelationID(msg); id != "" {
		fields[FieldCorrelationID] = id
	}
	return fields
}

type watermillLogger struct {
	inner watermill.LoggerAdapter
}

func (w *watermillLogger) With(fields LogFields) ServiceLogger {
	if len(fields) == 0 {
		return w
	}
	return &watermillLogger{inner: w.inner.With(watermill.LogFields(fields))}
}

func (w *watermillLogger) Debug(msg string, fields LogFields) {
	w.inner.Debug(msg, watermill.LogFields(fields))
}

func (w *watermillLogger) Info(msg string, fields LogFields) {
	w.inner.Info(msg, watermill.LogFields(fields))
}

func (w *watermillLogger) Error(msg string, err error, fields LogFields) {
	w.inner.Error(msg, err, watermill.LogFields(fields))
}

func (w *watermillLogger) Trace(msg string, fields LogFields) {
	w.inner.Trace(msg, watermill.LogFields(fields))
}

type entryLogger[T EntryLoggerAdapter[T]] struct {
	entry T
}

func (e *entryLogger[T]) with(fields LogFields) T {
	enriched := e.entry
	for key, value := range fields {
		enriched = enriched.WithField(key, value)
	}
	return enriched
}

func (e *entryLogger[T]) With(fields LogFields) ServiceLogger {
	if len(fields) == 0 {
		return e
	}
	return &entryLogger[T]{entry: e.with(fields)}
}

func (e *entryLogger[T]) Debug(msg string, fields LogFields) { e.with(fields).Debug(msg) }

func (e *entryLogger[T]) Info(msg string, fields LogFields) { e.with(fields).Info(msg) }

func (e *entryLogger[T]) Trace(msg string, fields LogFields) { e.with(fields).Trace(msg) }

func (e *entryLogger[T]) Error(msg string, err error, fields LogFields) {
	entry := e.with(fields)
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.Error(msg)
}

// NewWatermillAdapter exposes log as a Watermill LoggerAdapter for routers,
// publishers and subscribers.
func NewWatermillAdapter(log ServiceLogger) watermill.LoggerAdapter {
	if log == nil {
		panic("protomatch: service logger cannot be nil")
	}
	if w, ok := log.(*watermillLogger); ok {
		return w.inner
	}
	return &adapter{base: log}
}

type adapter struct {
	base ServiceLogger
}

func (a *adapter) Error(msg string, err error, fields watermill.LogFields) {
	a.base.Error(msg, err, LogFields(fields))
}

func (a *adapter) Info(msg string, fields watermill.LogFields) {
	a.base.Info(msg, LogFields(fields))
}

func (a *adapter) Debug(msg string, fields watermill.LogFields) {
	a.base.Debug(msg, LogFields(fields))
}

func (a *adapter) Trace(msg string, fields watermill.LogFields) {
	a.base.Trace(msg, LogFields(fields))
}

func (a *adapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &adapter{base: a.base.With(LogFields(fields))}
}
