package core

import (
	"github.com/google/uuid"
	"github.com/hupe1980/modelmesh/logging"
)

// NewID returns a new random identifier used for calls and runs.
func NewID() string { return uuid.NewString() }

// loggerAdapter guarantees a non-nil logger by substituting a NoOpLogger
// when constructed with nil.
type loggerAdapter struct {
	logger logging.Logger
}

// newLoggerAdapter constructs a loggerAdapter with a non-nil logger.
func newLoggerAdapter(l logging.Logger) *loggerAdapter {
	if l == nil {
		l = logging.NoOpLogger{}
	}
	return &loggerAdapter{logger: l}
}

// Logger returns the underlying logger.
func (l *loggerAdapter) Logger() logging.Logger {
	return l.logger
}
