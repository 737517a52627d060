package core

import (
	"time"
)

// ModelInfo identifies the provider and model behind a call.
type ModelInfo struct {
	Provider string `json:"provider"` // "openai", "anthropic", "mock", etc.
	Name     string `json:"name"`
}

// String renders the model as provider/name.
func (m ModelInfo) String() string {
	if m.Provider == "" {
		return m.Name
	}
	return m.Provider + "/" + m.Name
}

// CallMetadata records identifying and timing information for one model
// call. A value is created when the call starts and finalized (finish
// timestamp, duration, tries) when it ends; it is copied, never shared, so a
// returned value never changes.
type CallMetadata struct {
	CallID       string    `json:"call_id"`
	FunctionType string    `json:"function_type"` // "stream-text", "stream-speech", ...
	FunctionID   string    `json:"function_id,omitempty"`
	RunID        string    `json:"run_id,omitempty"`
	SessionID    string    `json:"session_id,omitempty"`
	UserID       string    `json:"user_id,omitempty"`
	Model        ModelInfo `json:"model"`

	StartTimestamp  time.Time     `json:"start_timestamp"`
	FinishTimestamp time.Time     `json:"finish_timestamp,omitzero"`
	Duration        time.Duration `json:"duration,omitempty"`

	// Tries counts connection attempts made by the retry layer. It does not
	// count streamed deltas.
	Tries int `json:"tries,omitempty"`
}

// Finished reports whether the metadata has been finalized.
func (m CallMetadata) Finished() bool { return !m.FinishTimestamp.IsZero() }

// EventType discriminates call lifecycle events.
type EventType string

const (
	// EventCallStarted is emitted once before the provider is contacted.
	EventCallStarted EventType = "call-started"
	// EventCallFinished is emitted once after the call reached a terminal state.
	EventCallFinished EventType = "call-finished"
)

// FinishStatus is the terminal state reported with EventCallFinished.
type FinishStatus string

const (
	// FinishSuccess means the stream completed normally.
	FinishSuccess FinishStatus = "success"
	// FinishFailure means the connection or the stream failed.
	FinishFailure FinishStatus = "failure"
	// FinishAbort means the caller cancelled the call.
	FinishAbort FinishStatus = "abort"
)

// Event is a typed lifecycle message emitted by the streaming orchestrator.
// After emission it should be treated as immutable.
type Event struct {
	Type      EventType    `json:"type"`
	Timestamp time.Time    `json:"timestamp"`
	Metadata  CallMetadata `json:"metadata"`
	Input     any          `json:"input,omitempty"`

	// Set on EventCallFinished only.
	Status    FinishStatus `json:"status,omitempty"`
	RawOutput any          `json:"raw_output,omitempty"`
	Error     error        `json:"-"`
}

// NewCallStartedEvent builds the event announcing a call.
func NewCallStartedEvent(md CallMetadata, input any) Event {
	return Event{
		Type:      EventCallStarted,
		Timestamp: md.StartTimestamp,
		Metadata:  md,
		Input:     input,
	}
}

// NewCallFinishedEvent builds the terminal event for a call. md must already
// be finalized.
func NewCallFinishedEvent(md CallMetadata, input any, status FinishStatus, rawOutput any, err error) Event {
	return Event{
		Type:      EventCallFinished,
		Timestamp: md.FinishTimestamp,
		Metadata:  md,
		Input:     input,
		Status:    status,
		RawOutput: rawOutput,
		Error:     err,
	}
}

// FinishStatusOf classifies a terminal error.
func FinishStatusOf(err error) FinishStatus {
	switch {
	case err == nil:
		return FinishSuccess
	case IsAbort(err):
		return FinishAbort
	default:
		return FinishFailure
	}
}
