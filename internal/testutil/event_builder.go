package testutil

import (
	"time"

	"github.com/hupe1980/modelmesh/core"
)

// EventBuilder provides a fluent helper for constructing call events in tests.
// Example:
//
//	ev := NewEventBuilder().Model("openai", "gpt-4o-mini").Tries(2).Failed(err).Build()
//
// Chain only the parts you need; sensible defaults are applied.
type EventBuilder struct {
	md        core.CallMetadata
	typ       core.EventType
	status    core.FinishStatus
	input     any
	rawOutput any
	err       error
}

// NewEventBuilder creates a builder for a successful stream-text call that
// started a second ago and just finished.
func NewEventBuilder() *EventBuilder {
	start := time.Now().Add(-time.Second)
	return &EventBuilder{
		md: core.CallMetadata{
			CallID:         core.NewID(),
			FunctionType:   "stream-text",
			Model:          core.ModelInfo{Provider: "mock", Name: "mock-text"},
			StartTimestamp: start,
			Tries:          1,
		},
		typ:    core.EventCallFinished,
		status: core.FinishSuccess,
	}
}

// Started turns the event into a call-started event (chainable).
func (b *EventBuilder) Started() *EventBuilder { b.typ = core.EventCallStarted; return b }

// CallID overrides the generated call id (chainable).
func (b *EventBuilder) CallID(id string) *EventBuilder { b.md.CallID = id; return b }

// FunctionType sets the function type (chainable).
func (b *EventBuilder) FunctionType(ft string) *EventBuilder { b.md.FunctionType = ft; return b }

// Model sets provider and model name (chainable).
func (b *EventBuilder) Model(provider, name string) *EventBuilder {
	b.md.Model = core.ModelInfo{Provider: provider, Name: name}
	return b
}

// Run sets the run id (chainable).
func (b *EventBuilder) Run(id string) *EventBuilder { b.md.RunID = id; return b }

// Tries sets the connection attempt count (chainable).
func (b *EventBuilder) Tries(n int) *EventBuilder { b.md.Tries = n; return b }

// Duration moves the start timestamp so the finished call lasted d (chainable).
func (b *EventBuilder) Duration(d time.Duration) *EventBuilder {
	b.md.StartTimestamp = time.Now().Add(-d)
	return b
}

// Input sets the reported input (chainable).
func (b *EventBuilder) Input(in any) *EventBuilder { b.input = in; return b }

// Output sets the reported raw output (chainable).
func (b *EventBuilder) Output(out any) *EventBuilder { b.rawOutput = out; return b }

// Failed marks the call as failed with err (chainable).
func (b *EventBuilder) Failed(err error) *EventBuilder {
	b.status = core.FinishFailure
	b.err = err
	return b
}

// Aborted marks the call as aborted (chainable).
func (b *EventBuilder) Aborted() *EventBuilder {
	b.status = core.FinishAbort
	b.err = core.ErrAborted
	return b
}

// Build constructs the core.Event value.
func (b *EventBuilder) Build() core.Event {
	if b.typ == core.EventCallStarted {
		return core.NewCallStartedEvent(b.md, b.input)
	}
	md := b.md
	md.FinishTimestamp = time.Now()
	md.Duration = md.FinishTimestamp.Sub(md.StartTimestamp)
	return core.NewCallFinishedEvent(md, b.input, b.status, b.rawOutput, b.err)
}
