// Package modelmesh provides a small façade over the streaming model
// functions of the model package. A Mesh carries the defaults shared by all
// calls of an application:
//  1. a logger used for call logging
//  2. observers receiving the call events
//  3. a per-run model call limit
//
// Every call made through a Mesh without an explicit run context gets a
// fresh run built from these defaults. Calls that pass model.WithRunContext
// use that run unchanged.
package modelmesh

import (
	"context"
	"iter"

	"github.com/hupe1980/modelmesh/core"
	"github.com/hupe1980/modelmesh/logging"
	"github.com/hupe1980/modelmesh/model"
	"github.com/hupe1980/modelmesh/queue"
)

// Options configures the Mesh instance.
type Options struct {
	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger

	// Observers receive the events of every call made through the mesh.
	Observers []core.Observer

	// MaxModelCalls caps the model calls of each run created by NewRun. Calls
	// without an explicit run get a fresh run each, so the cap only bounds
	// calls that share a run via model.WithRunContext. Zero means unlimited.
	MaxModelCalls int
}

// Mesh is the high-level façade over the model call functions.
type Mesh struct {
	opts Options
}

// New creates a new Mesh instance with optional overrides.
func New(optFns ...func(o *Options)) *Mesh {
	opts := Options{
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	return &Mesh{opts: opts}
}

// NewRun creates a run context carrying the mesh defaults. The options may
// set ids and add run scoped observers.
func (m *Mesh) NewRun(optFns ...func(o *core.RunOptions)) *core.RunContext {
	return core.NewRunContext(func(o *core.RunOptions) {
		o.Logger = m.opts.Logger
		o.Observers = append([]core.Observer(nil), m.opts.Observers...)
		o.MaxModelCalls = m.opts.MaxModelCalls

		for _, fn := range optFns {
			fn(o)
		}
	})
}

// StreamText streams the text generated by tm for prompt.
func (m *Mesh) StreamText(ctx context.Context, tm model.TextStreamingModel, prompt model.Prompt, optFns ...func(o *model.CallOptions)) (iter.Seq2[string, error], error) {
	return model.StreamText(ctx, tm, prompt, m.callOptions(optFns)...)
}

// StreamTextFull is StreamText returning the full result (text and metadata).
func (m *Mesh) StreamTextFull(ctx context.Context, tm model.TextStreamingModel, prompt model.Prompt, optFns ...func(o *model.CallOptions)) (*model.TextStreamResult, error) {
	return model.StreamTextFull(ctx, tm, prompt, m.callOptions(optFns)...)
}

// GenerateText is a synchronous helper that drains the text stream and
// returns the complete text together with the call metadata.
func (m *Mesh) GenerateText(ctx context.Context, tm model.TextStreamingModel, prompt model.Prompt, optFns ...func(o *model.CallOptions)) (string, core.CallMetadata, error) {
	res, err := m.StreamTextFull(ctx, tm, prompt, optFns...)
	if err != nil {
		return "", core.CallMetadata{}, err
	}

	text, err := res.Text(ctx)
	if err != nil {
		md, _ := res.Metadata(ctx)
		return text, md, err
	}

	md, err := res.Metadata(ctx)
	return text, md, err
}

// StreamSpeech streams the audio synthesized by sm for the text segments of
// input.
func (m *Mesh) StreamSpeech(ctx context.Context, sm model.SpeechStreamingModel, input *queue.Queue[string], optFns ...func(o *model.CallOptions)) (iter.Seq2[[]byte, error], error) {
	return model.StreamSpeech(ctx, sm, input, m.callOptions(optFns)...)
}

// StreamSpeechFull is StreamSpeech returning the full result (audio and
// metadata).
func (m *Mesh) StreamSpeechFull(ctx context.Context, sm model.SpeechStreamingModel, input *queue.Queue[string], optFns ...func(o *model.CallOptions)) (*model.SpeechStreamResult, error) {
	return model.StreamSpeechFull(ctx, sm, input, m.callOptions(optFns)...)
}

// callOptions wraps the caller options: the mesh logger goes first so that
// callers may override it, the default run is attached last when the caller
// supplied none.
func (m *Mesh) callOptions(optFns []func(o *model.CallOptions)) []func(o *model.CallOptions) {
	fns := make([]func(o *model.CallOptions), 0, len(optFns)+2)
	fns = append(fns, model.WithLogger(m.opts.Logger))
	fns = append(fns, optFns...)
	fns = append(fns, func(o *model.CallOptions) {
		if o.Run == nil {
			o.Run = m.NewRun()
		}
	})
	return fns
}
