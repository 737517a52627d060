package model

import (
	"bytes"
	"context"
	"iter"

	"github.com/hupe1980/modelmesh/core"
	"github.com/hupe1980/modelmesh/queue"
)

// FunctionTypeStreamSpeech labels StreamSpeech calls in metadata and events.
const FunctionTypeStreamSpeech = "stream-speech"

// SpeechStreamResult is the full response of StreamSpeechFull.
type SpeechStreamResult struct {
	call  *StreamCallResult[[]byte]
	audio *bytes.Buffer
}

// AudioStream returns the audio chunks as they arrive.
func (r *SpeechStreamResult) AudioStream(ctx context.Context) iter.Seq2[[]byte, error] {
	return r.call.Stream(ctx)
}

// Audio waits for the stream to finish and returns all audio bytes.
func (r *SpeechStreamResult) Audio(ctx context.Context) ([]byte, error) {
	if _, err := r.call.Metadata(ctx); err != nil {
		return nil, err
	}
	return r.audio.Bytes(), nil
}

// Metadata waits for the stream to finish and returns the call metadata.
func (r *SpeechStreamResult) Metadata(ctx context.Context) (core.CallMetadata, error) {
	return r.call.Metadata(ctx)
}

// StreamSpeech synthesizes speech while text is still being pushed to input.
// Close input once all text has been written.
func StreamSpeech(ctx context.Context, m SpeechStreamingModel, input *queue.Queue[string], optFns ...func(o *CallOptions)) (iter.Seq2[[]byte, error], error) {
	res, err := StreamSpeechFull(ctx, m, input, optFns...)
	if err != nil {
		return nil, err
	}
	return res.AudioStream(ctx), nil
}

// StreamSpeechText synthesizes speech for a complete text.
func StreamSpeechText(ctx context.Context, m SpeechStreamingModel, text string, optFns ...func(o *CallOptions)) (iter.Seq2[[]byte, error], error) {
	return StreamSpeech(ctx, m, queue.Of(text), optFns...)
}

// StreamSpeechFull is StreamSpeech returning the aggregate audio and
// metadata alongside the stream.
func StreamSpeechFull(ctx context.Context, m SpeechStreamingModel, input *queue.Queue[string], optFns ...func(o *CallOptions)) (*SpeechStreamResult, error) {
	audio := &bytes.Buffer{}

	call, err := ExecuteStreamCall(ctx, StreamCallConfig[[]byte]{
		FunctionType: FunctionTypeStreamSpeech,
		Input:        input,
		Model:        m,
		Options:      newCallOptions(optFns),
		StartStream: func(ctx context.Context) (*queue.Queue[Delta[any]], error) {
			return m.DoStreamSpeech(ctx, input)
		},
		ProcessDelta: func(raw any) ([]byte, bool) {
			chunk, ok := m.ExtractSpeechDelta(raw)
			if !ok || len(chunk) == 0 {
				return nil, false
			}
			audio.Write(chunk)
			return chunk, true
		},
		OnDone: func() any { return audio.Len() },
	})
	if err != nil {
		return nil, err
	}

	return &SpeechStreamResult{call: call, audio: audio}, nil
}
