package model

import (
	"context"
	"iter"
	"strings"

	"github.com/hupe1980/modelmesh/core"
	"github.com/hupe1980/modelmesh/queue"
)

// FunctionTypeStreamText labels StreamText calls in metadata and events.
const FunctionTypeStreamText = "stream-text"

// TextStreamResult is the full response of StreamTextFull.
type TextStreamResult struct {
	call *StreamCallResult[string]
	text *strings.Builder
}

// TextStream returns the text fragments as they arrive.
func (r *TextStreamResult) TextStream(ctx context.Context) iter.Seq2[string, error] {
	return r.call.Stream(ctx)
}

// Text waits for the stream to finish and returns the concatenated
// fragments, exactly as yielded by TextStream.
func (r *TextStreamResult) Text(ctx context.Context) (string, error) {
	if _, err := r.call.Metadata(ctx); err != nil {
		return "", err
	}
	return r.text.String(), nil
}

// Metadata waits for the stream to finish and returns the call metadata.
func (r *TextStreamResult) Metadata(ctx context.Context) (core.CallMetadata, error) {
	return r.call.Metadata(ctx)
}

// StreamText streams the text generated for prompt.
//
//	stream, err := model.StreamText(ctx, m, model.NewTextPrompt("Write a haiku"))
//	if err != nil { ... }
//	for fragment, err := range stream { ... }
func StreamText(ctx context.Context, m TextStreamingModel, prompt Prompt, optFns ...func(o *CallOptions)) (iter.Seq2[string, error], error) {
	res, err := StreamTextFull(ctx, m, prompt, optFns...)
	if err != nil {
		return nil, err
	}
	return res.TextStream(ctx), nil
}

// StreamTextFull is StreamText returning the aggregate text and metadata
// alongside the stream.
func StreamTextFull(ctx context.Context, m TextStreamingModel, prompt Prompt, optFns ...func(o *CallOptions)) (*TextStreamResult, error) {
	settings := m.TextGenerationSettings()

	var trimmer *whitespaceTrimmer
	if settings.TrimWhitespace {
		trimmer = newWhitespaceTrimmer()
	}

	text := &strings.Builder{}

	call, err := ExecuteStreamCall(ctx, StreamCallConfig[string]{
		FunctionType: FunctionTypeStreamText,
		Input:        prompt,
		Model:        m,
		Options:      newCallOptions(optFns),
		StartStream: func(ctx context.Context) (*queue.Queue[Delta[any]], error) {
			return m.DoStreamText(ctx, prompt)
		},
		ProcessDelta: func(raw any) (string, bool) {
			fragment, ok := m.ExtractTextDelta(raw)
			if !ok || fragment == "" {
				return "", false
			}
			if trimmer != nil {
				if fragment, ok = trimmer.Next(fragment); !ok {
					return "", false
				}
			}
			text.WriteString(fragment)
			return fragment, true
		},
		OnDone: func() any { return text.String() },
	})
	if err != nil {
		return nil, err
	}

	return &TextStreamResult{call: call, text: text}, nil
}
