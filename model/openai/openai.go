// Package openai provides model.TextStreamingModel and
// model.SpeechStreamingModel implementations backed by the OpenAI API
// (Chat Completions streaming and text-to-speech).
//
// The SDK's own retry layer is disabled: stream opening goes through the
// retry and throttle policies configured in the model settings.
package openai

import (
	"context"
	"errors"

	"github.com/hupe1980/modelmesh/api"
	"github.com/hupe1980/modelmesh/core"
	"github.com/hupe1980/modelmesh/model"
	"github.com/hupe1980/modelmesh/queue"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Provider is reported in core.ModelInfo.
const Provider = "openai"

// Options configure the OpenAI text model adapter.
// Fields mirror a subset of Chat Completion parameters; extend via
// functional options without breaking callers.
type Options struct {
	Model       string
	Temperature float64
	APIKey      string
	BaseURL     string

	model.TextGenerationSettings
}

// TextModel streams chat completions.
type TextModel struct {
	client *openai.Client
	opts   Options
}

// NewTextModel creates a new OpenAI text model using the official client.
// OPENAI_API_KEY is read from the environment unless APIKey is set.
func NewTextModel(optFns ...func(o *Options)) *TextModel {
	opts := defaultOptions(optFns)

	client := openai.NewClient(clientOptions(opts.APIKey, opts.BaseURL)...)

	return &TextModel{client: &client, opts: opts}
}

// NewTextModelFromClient creates a new OpenAI text model from an existing
// client.
func NewTextModelFromClient(client *openai.Client, optFns ...func(o *Options)) *TextModel {
	return &TextModel{client: client, opts: defaultOptions(optFns)}
}

func defaultOptions(optFns []func(o *Options)) Options {
	opts := Options{
		Model:       openai.ChatModelGPT4oMini,
		Temperature: 0.7,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return opts
}

func clientOptions(apiKey, baseURL string) []option.RequestOption {
	opts := []option.RequestOption{option.WithMaxRetries(0)}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return opts
}

// Info implements model.Model.
func (m *TextModel) Info() core.ModelInfo {
	return core.ModelInfo{Provider: Provider, Name: m.opts.Model}
}

// Settings implements model.Model.
func (m *TextModel) Settings() model.Settings { return m.opts.Settings }

// TextGenerationSettings implements model.TextStreamingModel.
func (m *TextModel) TextGenerationSettings() model.TextGenerationSettings {
	return m.opts.TextGenerationSettings
}

// DoStreamText implements model.TextStreamingModel. Raw delta values are
// openai.ChatCompletionChunk.
func (m *TextModel) DoStreamText(ctx context.Context, prompt model.Prompt) (*queue.Queue[model.Delta[any]], error) {
	stream := m.client.Chat.Completions.NewStreaming(ctx, m.buildParams(prompt))
	if err := stream.Err(); err != nil {
		_ = stream.Close()
		return nil, toCallError(err)
	}

	q := queue.New[model.Delta[any]]()
	go func() {
		defer q.Close()
		defer func() { _ = stream.Close() }()

		for stream.Next() {
			if err := q.Push(model.ValueDelta[any](stream.Current())); err != nil {
				return
			}
		}
		if err := stream.Err(); err != nil {
			_ = q.Push(model.ErrorDelta[any](toCallError(err)))
		}
	}()

	return q, nil
}

// ExtractTextDelta implements model.TextStreamingModel.
func (m *TextModel) ExtractTextDelta(raw any) (string, bool) {
	chunk, ok := raw.(openai.ChatCompletionChunk)
	if !ok || len(chunk.Choices) == 0 {
		return "", false
	}
	return chunk.Choices[0].Delta.Content, true
}

// buildParams converts the prompt into Chat Completion parameters.
func (m *TextModel) buildParams(prompt model.Prompt) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(prompt.Messages)+1)
	if prompt.System != "" {
		messages = append(messages, openai.SystemMessage(prompt.System))
	}
	for _, msg := range prompt.Messages {
		switch msg.Role {
		case model.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(msg.Content))
		default:
			messages = append(messages, openai.UserMessage(msg.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Messages:    messages,
		Model:       m.opts.Model,
		Temperature: openai.Float(m.opts.Temperature),
	}
	if n := m.opts.MaxGenerationTokens; n > 0 {
		params.MaxCompletionTokens = openai.Int(int64(n))
	}
	if len(m.opts.StopSequences) > 0 {
		params.Stop = openai.ChatCompletionNewParamsStopUnion{OfStringArray: m.opts.StopSequences}
	}
	return params
}

// toCallError maps SDK errors onto api.CallError so the retry layer can
// classify them. Cancellation is passed through untouched.
func toCallError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		url := ""
		if apiErr.Request != nil && apiErr.Request.URL != nil {
			url = apiErr.Request.URL.String()
		}
		ce := api.NewCallError(url, apiErr.StatusCode, apiErr.RawJSON(), err)
		if apiErr.Response != nil {
			ce.RetryAfterDuration = api.ParseRetryAfter(apiErr.Response.Header.Get("Retry-After"))
		}
		return ce
	}

	return api.NewCallError("", 0, "", err)
}
