// Package anthropic provides a model.TextStreamingModel backed by the
// Anthropic Messages API.
package anthropic

import (
	"context"
	"errors"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/hupe1980/modelmesh/api"
	"github.com/hupe1980/modelmesh/core"
	"github.com/hupe1980/modelmesh/model"
	"github.com/hupe1980/modelmesh/queue"
)

// Provider is reported in core.ModelInfo.
const Provider = "anthropic"

const defaultMaxTokens = 4096

// Options configures the Anthropic model adapter (temperature, model id,
// API key). Extend via functional options to preserve stability.
type Options struct {
	Model       anthropic.Model
	Temperature float64
	APIKey      string
	BaseURL     string

	model.TextGenerationSettings
}

// TextModel streams messages from the Anthropic Messages API.
type TextModel struct {
	client *anthropic.Client
	opts   Options
}

// NewTextModel creates a new Anthropic model using the official client.
// The SDK's own retries are disabled in favour of the configured policies.
func NewTextModel(optFns ...func(o *Options)) *TextModel {
	opts := defaultOptions(optFns)

	clientOpts := []option.RequestOption{option.WithMaxRetries(0)}
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}

	client := anthropic.NewClient(clientOpts...)

	return &TextModel{client: &client, opts: opts}
}

// NewTextModelFromClient creates a new Anthropic model from an existing client.
func NewTextModelFromClient(client *anthropic.Client, optFns ...func(o *Options)) *TextModel {
	return &TextModel{client: client, opts: defaultOptions(optFns)}
}

func defaultOptions(optFns []func(o *Options)) Options {
	opts := Options{
		Model:       anthropic.ModelClaude3_5HaikuLatest,
		Temperature: 0.7,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return opts
}

// Info implements model.Model.
func (m *TextModel) Info() core.ModelInfo {
	return core.ModelInfo{Provider: Provider, Name: string(m.opts.Model)}
}

// Settings implements model.Model.
func (m *TextModel) Settings() model.Settings { return m.opts.Settings }

// TextGenerationSettings implements model.TextStreamingModel.
func (m *TextModel) TextGenerationSettings() model.TextGenerationSettings {
	return m.opts.TextGenerationSettings
}

// DoStreamText implements model.TextStreamingModel. Raw delta values are
// anthropic.MessageStreamEventUnion.
func (m *TextModel) DoStreamText(ctx context.Context, prompt model.Prompt) (*queue.Queue[model.Delta[any]], error) {
	stream := m.client.Messages.NewStreaming(ctx, m.buildParams(prompt))
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

// ExtractTextDelta implements model.TextStreamingModel. Only text deltas of
// content blocks carry text.
func (m *TextModel) ExtractTextDelta(raw any) (string, bool) {
	ev, ok := raw.(anthropic.MessageStreamEventUnion)
	if !ok || ev.Type != "content_block_delta" || ev.Delta.Type != "text_delta" {
		return "", false
	}
	return ev.Delta.Text, true
}

// buildParams converts the prompt into Messages API parameters.
func (m *TextModel) buildParams(prompt model.Prompt) anthropic.MessageNewParams {
	messages := make([]anthropic.MessageParam, 0, len(prompt.Messages))
	for _, msg := range prompt.Messages {
		block := anthropic.NewTextBlock(msg.Content)
		switch msg.Role {
		case model.RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(block))
		default:
			messages = append(messages, anthropic.NewUserMessage(block))
		}
	}

	maxTokens := int64(defaultMaxTokens)
	if n := m.opts.MaxGenerationTokens; n > 0 {
		maxTokens = int64(n)
	}

	params := anthropic.MessageNewParams{
		Model:         m.opts.Model,
		Messages:      messages,
		MaxTokens:     maxTokens,
		Temperature:   anthropic.Float(m.opts.Temperature),
		StopSequences: m.opts.StopSequences,
	}
	if prompt.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: prompt.System}}
	}
	return params
}

// toCallError maps SDK errors onto api.CallError. Cancellation is passed
// through untouched.
func toCallError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}

	var apiErr *anthropic.Error
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
