package model

import (
	"context"
	"sync"
	"time"

	"github.com/hupe1980/modelmesh/core"
	"github.com/hupe1980/modelmesh/queue"
)

// MockTextOptions configure a MockTextModel.
type MockTextOptions struct {
	Name     string
	Settings TextGenerationSettings

	// StartErrors are returned by successive DoStreamText calls before a
	// stream is opened, one per call.
	StartErrors []error
	// StreamError, if set, is delivered as an error delta after the
	// fragments.
	StreamError error
	// Delay is waited before each fragment.
	Delay time.Duration
}

// MockTextModel is a lightweight in-memory TextStreamingModel useful for
// tests & examples. Raw delta values are strings.
type MockTextModel struct {
	fragments []string
	opts      MockTextOptions

	mu      sync.Mutex
	starts  int
	prompts []Prompt
}

// NewMockTextModel constructs a MockTextModel streaming fragments.
func NewMockTextModel(fragments []string, optFns ...func(o *MockTextOptions)) *MockTextModel {
	opts := MockTextOptions{Name: "mock-text"}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &MockTextModel{fragments: fragments, opts: opts}
}

// Info implements Model.
func (m *MockTextModel) Info() core.ModelInfo {
	return core.ModelInfo{Provider: "mock", Name: m.opts.Name}
}

// Settings implements Model.
func (m *MockTextModel) Settings() Settings { return m.opts.Settings.Settings }

// TextGenerationSettings implements TextStreamingModel.
func (m *MockTextModel) TextGenerationSettings() TextGenerationSettings { return m.opts.Settings }

// DoStreamText implements TextStreamingModel.
func (m *MockTextModel) DoStreamText(ctx context.Context, prompt Prompt) (*queue.Queue[Delta[any]], error) {
	m.mu.Lock()
	i := m.starts
	m.starts++
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if i < len(m.opts.StartErrors) && m.opts.StartErrors[i] != nil {
		return nil, m.opts.StartErrors[i]
	}

	q := queue.New[Delta[any]]()
	go func() {
		defer q.Close()
		for _, f := range m.fragments {
			if !sleep(ctx, m.opts.Delay) {
				_ = q.Push(ErrorDelta[any](ctx.Err()))
				return
			}
			_ = q.Push(ValueDelta[any](f))
		}
		if m.opts.StreamError != nil {
			_ = q.Push(ErrorDelta[any](m.opts.StreamError))
		}
	}()

	return q, nil
}

// ExtractTextDelta implements TextStreamingModel.
func (m *MockTextModel) ExtractTextDelta(raw any) (string, bool) {
	s, ok := raw.(string)
	return s, ok
}

// Starts returns how many times a stream was requested.
func (m *MockTextModel) Starts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.starts
}

// Prompts returns the prompts received so far.
func (m *MockTextModel) Prompts() []Prompt {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Prompt(nil), m.prompts...)
}

// MockSpeechModel is an in-memory SpeechStreamingModel that echoes every
// input text segment back as one audio chunk. Raw delta values are []byte.
type MockSpeechModel struct {
	name     string
	settings Settings
}

// NewMockSpeechModel constructs a MockSpeechModel.
func NewMockSpeechModel(settings Settings) *MockSpeechModel {
	return &MockSpeechModel{name: "mock-speech", settings: settings}
}

// Info implements Model.
func (m *MockSpeechModel) Info() core.ModelInfo {
	return core.ModelInfo{Provider: "mock", Name: m.name}
}

// Settings implements Model.
func (m *MockSpeechModel) Settings() Settings { return m.settings }

// DoStreamSpeech implements SpeechStreamingModel.
func (m *MockSpeechModel) DoStreamSpeech(ctx context.Context, text *queue.Queue[string]) (*queue.Queue[Delta[any]], error) {
	q := queue.New[Delta[any]]()
	go func() {
		defer q.Close()
		for segment, err := range text.All(ctx) {
			if err != nil {
				_ = q.Push(ErrorDelta[any](err))
				return
			}
			_ = q.Push(ValueDelta[any]([]byte(segment)))
		}
		if err := ctx.Err(); err != nil {
			_ = q.Push(ErrorDelta[any](err))
		}
	}()
	return q, nil
}

// ExtractSpeechDelta implements SpeechStreamingModel.
func (m *MockSpeechModel) ExtractSpeechDelta(raw any) ([]byte, bool) {
	b, ok := raw.([]byte)
	return b, ok
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
