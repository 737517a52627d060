package core

import (
	"github.com/hupe1980/modelmesh/logging"
)

// RunContext carries identifying state for a logical tree of model calls.
// It is an explicit value passed through call options (never global state)
// and aggregates:
//   - Identifiers (RunID, SessionID, UserID) copied into every CallMetadata
//   - Observers that receive the events of every call made within the run
//   - A ModelLimiter capping the number of model calls per run
//   - A logger shared by the calls of the run
//
// Cancellation is not part of RunContext; pass a context.Context to each call.
type RunContext struct {
	RunID, SessionID, UserID string
	Observers                []Observer
	Limiter                  *ModelLimiter

	*loggerAdapter
}

// RunOptions configure NewRunContext.
type RunOptions struct {
	RunID         string
	SessionID     string
	UserID        string
	Observers     []Observer
	MaxModelCalls int // 0 means unlimited
	Logger        logging.Logger
}

// NewRunContext constructs a RunContext. A RunID is generated when none is
// supplied.
func NewRunContext(optFns ...func(o *RunOptions)) *RunContext {
	opts := RunOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.RunID == "" {
		opts.RunID = NewID()
	}

	return &RunContext{
		RunID:         opts.RunID,
		SessionID:     opts.SessionID,
		UserID:        opts.UserID,
		Observers:     append([]Observer(nil), opts.Observers...),
		Limiter:       NewModelLimiter(opts.MaxModelCalls),
		loggerAdapter: newLoggerAdapter(opts.Logger),
	}
}

// Logger returns the run logger; a nil RunContext yields a no-op logger.
func (rc *RunContext) Logger() logging.Logger {
	if rc == nil || rc.loggerAdapter == nil {
		return logging.NoOpLogger{}
	}
	return rc.loggerAdapter.Logger()
}

// Stamp copies the run identifiers into md.
func (rc *RunContext) Stamp(md *CallMetadata) {
	if rc == nil {
		return
	}
	md.RunID = rc.RunID
	md.SessionID = rc.SessionID
	md.UserID = rc.UserID
}

// AcquireCall records one model call against the run's limiter.
func (rc *RunContext) AcquireCall() error {
	if rc == nil || rc.Limiter == nil {
		return nil
	}
	return rc.Limiter.Increment()
}

// AllObservers returns the run observers. It is nil-safe.
func (rc *RunContext) AllObservers() []Observer {
	if rc == nil {
		return nil
	}
	return rc.Observers
}
