// Package errors holds the sentinel errors returned while wiring the
// continuous-query service.
package errors

import (
	sterrors "errors"
)

var (
	ErrServiceRequired      = sterrors.New("protomatch: matcher service is required")
	ErrRegistryRequired     = sterrors.New("protomatch: schema registry is required")
	ErrFilterSetRequired    = sterrors.New("protomatch: filter set is required")
	ErrConsumeQueueRequired = sterrors.New("protomatch: consume queue is required")
	ErrPublishQueueRequired = sterrors.New("protomatch: publish queue is required")
	ErrHandlerNameRequired  = sterrors.New("protomatch: handler name is required")
	ErrConfigRequired       = sterrors.New("protomatch: configuration is required")
	ErrLoggerRequired       = sterrors.New("protomatch: logger is required")
	ErrPublisherRequired    = sterrors.New("protomatch: publisher is required")
	ErrTopicRequired        = sterrors.New("protomatch: topic is required")
	ErrEventRequired        = sterrors.New("protomatch: event is required")
)

// ConfigValidationError marks a configuration rejected by Validate.
type ConfigValidationError struct {
	Err error
}

func (e ConfigValidationError) Error() string {
	return "protomatch: invalid configuration: " + e.Err.Error()
}

func (e ConfigValidationError) Unwrap() error {
	return e.Err
}

// NewConfigValidationError wraps err, passing nil through.
func NewConfigValidationError(err error) error {
	if err == nil {
		return nil
	}
	return ConfigValidationError{Err: err}
}
