package observer

import (
	"github.com/hupe1980/modelmesh/core"
	"github.com/hupe1980/modelmesh/logging"
)

// LogObserver writes every call event to a logging.Logger.
type LogObserver struct {
	logger logging.Logger
}

// NewLogObserver creates a LogObserver. A nil logger discards events.
func NewLogObserver(logger logging.Logger) *LogObserver {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &LogObserver{logger: logger}
}

// OnEvent implements core.Observer.
func (o *LogObserver) OnEvent(ev core.Event) {
	md := ev.Metadata
	args := []any{
		"call_id", md.CallID,
		"function_type", md.FunctionType,
		"model", md.Model.String(),
	}
	if md.RunID != "" {
		args = append(args, "run_id", md.RunID)
	}
	if md.FunctionID != "" {
		args = append(args, "function_id", md.FunctionID)
	}

	switch ev.Type {
	case core.EventCallStarted:
		o.logger.Debug("model call started", args...)
	case core.EventCallFinished:
		args = append(args, "status", string(ev.Status), "tries", md.Tries, "duration", md.Duration)
		switch ev.Status {
		case core.FinishFailure:
			o.logger.Error("model call failed", append(args, "error", ev.Error)...)
		case core.FinishAbort:
			o.logger.Warn("model call aborted", args...)
		default:
			o.logger.Info("model call finished", args...)
		}
	}
}
