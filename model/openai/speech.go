package openai

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/hupe1980/modelmesh/core"
	"github.com/hupe1980/modelmesh/model"
	"github.com/hupe1980/modelmesh/queue"
	"github.com/openai/openai-go"
)

const speechChunkSize = 16 * 1024

// SpeechOptions configure the OpenAI speech model adapter.
type SpeechOptions struct {
	Model          string
	Voice          openai.AudioSpeechNewParamsVoice
	ResponseFormat openai.AudioSpeechNewParamsResponseFormat
	Speed          float64 // 0 leaves the provider default
	APIKey         string
	BaseURL        string

	model.Settings
}

// SpeechModel synthesizes speech with the text-to-speech endpoint. Every
// input text segment becomes one request whose audio body is streamed in
// chunks.
type SpeechModel struct {
	client *openai.Client
	opts   SpeechOptions
}

// NewSpeechModel creates a new OpenAI speech model using the official client.
func NewSpeechModel(optFns ...func(o *SpeechOptions)) *SpeechModel {
	opts := defaultSpeechOptions(optFns)

	client := openai.NewClient(clientOptions(opts.APIKey, opts.BaseURL)...)

	return &SpeechModel{client: &client, opts: opts}
}

// NewSpeechModelFromClient creates a new OpenAI speech model from an existing
// client.
func NewSpeechModelFromClient(client *openai.Client, optFns ...func(o *SpeechOptions)) *SpeechModel {
	return &SpeechModel{client: client, opts: defaultSpeechOptions(optFns)}
}

func defaultSpeechOptions(optFns []func(o *SpeechOptions)) SpeechOptions {
	opts := SpeechOptions{
		Model:          openai.SpeechModelTTS1,
		Voice:          openai.AudioSpeechNewParamsVoiceAlloy,
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return opts
}

// Info implements model.Model.
func (m *SpeechModel) Info() core.ModelInfo {
	return core.ModelInfo{Provider: Provider, Name: m.opts.Model}
}

// Settings implements model.Model.
func (m *SpeechModel) Settings() model.Settings { return m.opts.Settings }

// DoStreamSpeech implements model.SpeechStreamingModel. The first segment is
// requested before returning so that connection failures reach the retry
// layer; later failures arrive as error deltas. Raw delta values are []byte.
func (m *SpeechModel) DoStreamSpeech(ctx context.Context, text *queue.Queue[string]) (*queue.Queue[model.Delta[any]], error) {
	it := text.Iterator()

	first, err := m.nextSegment(ctx, it)
	if err != nil {
		return nil, err
	}

	q := queue.New[model.Delta[any]]()
	go func() {
		defer q.Close()

		resp := first
		for resp != nil {
			if err := pumpBody(resp, q); err != nil {
				_ = q.Push(model.ErrorDelta[any](toCallError(err)))
				return
			}
			if resp, err = m.nextSegment(ctx, it); err != nil {
				_ = q.Push(model.ErrorDelta[any](err))
				return
			}
		}
	}()

	return q, nil
}

// ExtractSpeechDelta implements model.SpeechStreamingModel.
func (m *SpeechModel) ExtractSpeechDelta(raw any) ([]byte, bool) {
	b, ok := raw.([]byte)
	return b, ok
}

// nextSegment waits for the next non-empty text segment and opens its audio
// response. It returns nil when the input is exhausted.
func (m *SpeechModel) nextSegment(ctx context.Context, it *queue.Iterator[string]) (*http.Response, error) {
	for {
		segment, err := it.Next(ctx)
		switch {
		case errors.Is(err, io.EOF):
			return nil, nil
		case err != nil:
			return nil, err
		case segment == "":
			continue
		}

		resp, err := m.client.Audio.Speech.New(ctx, m.buildParams(segment))
		if err != nil {
			return nil, toCallError(err)
		}
		return resp, nil
	}
}

func (m *SpeechModel) buildParams(input string) openai.AudioSpeechNewParams {
	params := openai.AudioSpeechNewParams{
		Input:          input,
		Model:          m.opts.Model,
		Voice:          m.opts.Voice,
		ResponseFormat: m.opts.ResponseFormat,
	}
	if m.opts.Speed > 0 {
		params.Speed = openai.Float(m.opts.Speed)
	}
	return params
}

// pumpBody copies an audio response body into q in fixed size chunks.
func pumpBody(resp *http.Response, q *queue.Queue[model.Delta[any]]) error {
	defer resp.Body.Close()

	buf := make([]byte, speechChunkSize)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			if perr := q.Push(model.ValueDelta[any](chunk)); perr != nil {
				return perr
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
