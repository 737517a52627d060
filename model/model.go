package model

import (
	"context"
	"strings"

	"github.com/hupe1980/modelmesh/api"
	"github.com/hupe1980/modelmesh/core"
	"github.com/hupe1980/modelmesh/logging"
	"github.com/hupe1980/modelmesh/queue"
)

// Role identifies the author of a prompt message.
type Role string

// Message roles understood by every adapter.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a chat prompt.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Prompt is the provider independent text generation input.
type Prompt struct {
	System   string    `json:"system,omitempty"`
	Messages []Message `json:"messages"`
}

// NewTextPrompt builds a prompt holding a single user message.
func NewTextPrompt(text string) Prompt {
	return Prompt{Messages: []Message{{Role: RoleUser, Content: text}}}
}

// Text concatenates the message contents, newline separated.
func (p Prompt) Text() string {
	parts := make([]string, 0, len(p.Messages))
	for _, m := range p.Messages {
		parts = append(parts, m.Content)
	}
	return strings.Join(parts, "\n")
}

// Settings are shared by every model kind.
type Settings struct {
	// API holds the retry and throttle policies applied when a stream is
	// opened.
	API api.Configuration
	// Observers receive the events of every call made with the model.
	Observers []core.Observer
}

// TextGenerationSettings extend Settings for text generation models.
type TextGenerationSettings struct {
	Settings

	// MaxGenerationTokens limits the response length. 0 leaves the provider
	// default.
	MaxGenerationTokens int
	StopSequences       []string

	// TrimWhitespace removes leading whitespace of the first fragment and
	// trailing whitespace of the last one.
	TrimWhitespace bool
}

// Model is implemented by every provider adapter.
type Model interface {
	Info() core.ModelInfo
	Settings() Settings
}

// TextStreamingModel streams generated text.
type TextStreamingModel interface {
	Model

	TextGenerationSettings() TextGenerationSettings

	// DoStreamText opens a stream. A returned error means the connection
	// could not be established and may be retried; once the queue is
	// returned, failures arrive as error deltas.
	DoStreamText(ctx context.Context, prompt Prompt) (*queue.Queue[Delta[any]], error)

	// ExtractTextDelta returns the text fragment carried by a raw delta.
	ExtractTextDelta(raw any) (string, bool)
}

// SpeechStreamingModel synthesizes speech from incrementally delivered text
// (duplex streaming).
type SpeechStreamingModel interface {
	Model

	// DoStreamSpeech opens a stream reading text from the given queue.
	// Implementations must consume text through a fresh iterator so that a
	// retried connection sees the complete input again.
	DoStreamSpeech(ctx context.Context, text *queue.Queue[string]) (*queue.Queue[Delta[any]], error)

	// ExtractSpeechDelta returns the audio bytes carried by a raw delta.
	ExtractSpeechDelta(raw any) ([]byte, bool)
}

// CallOptions configure a single streaming call.
type CallOptions struct {
	// FunctionID is a caller chosen label copied into the call metadata.
	FunctionID string
	// Run ties the call to a run: ids, observers and call limit.
	Run *core.RunContext
	// Observers receive the events of this call only.
	Observers []core.Observer
	// Logger overrides the run logger.
	Logger logging.Logger
}

// WithFunctionID labels the call.
func WithFunctionID(id string) func(o *CallOptions) {
	return func(o *CallOptions) { o.FunctionID = id }
}

// WithRunContext attaches the call to rc.
func WithRunContext(rc *core.RunContext) func(o *CallOptions) {
	return func(o *CallOptions) { o.Run = rc }
}

// WithObservers adds call scoped observers.
func WithObservers(observers ...core.Observer) func(o *CallOptions) {
	return func(o *CallOptions) { o.Observers = append(o.Observers, observers...) }
}

// WithLogger sets the call logger.
func WithLogger(l logging.Logger) func(o *CallOptions) {
	return func(o *CallOptions) { o.Logger = l }
}

func newCallOptions(optFns []func(o *CallOptions)) CallOptions {
	opts := CallOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	return opts
}
