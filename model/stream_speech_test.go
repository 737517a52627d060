package model

import (
	"context"
	"testing"

	"github.com/hupe1980/modelmesh/core"
	"github.com/hupe1980/modelmesh/internal/testutil"
	"github.com/hupe1980/modelmesh/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamSpeechText(t *testing.T) {
	m := NewMockSpeechModel(Settings{})

	stream, err := StreamSpeechText(context.Background(), m, "hello")
	require.NoError(t, err)

	chunks, errs := collect(stream)
	assert.Empty(t, errs)
	assert.Equal(t, [][]byte{[]byte("hello")}, chunks)
}

func TestStreamSpeechFull_Duplex(t *testing.T) {
	m := NewMockSpeechModel(Settings{})
	rec := testutil.NewRecorder()
	input := queue.New[string]()

	res, err := StreamSpeechFull(context.Background(), m, input, WithObservers(rec))
	require.NoError(t, err)

	go func() {
		for _, s := range []string{"Hello, ", "streaming ", "world."} {
			_ = input.Push(s)
		}
		input.Close()
	}()

	var got []byte
	for chunk, err := range res.AudioStream(context.Background()) {
		require.NoError(t, err)
		got = append(got, chunk...)
	}

	audio, err := res.Audio(context.Background())
	require.NoError(t, err)
	assert.Equal(t, got, audio)
	assert.Equal(t, "Hello, streaming world.", string(audio))

	md, err := res.Metadata(context.Background())
	require.NoError(t, err)
	assert.Equal(t, FunctionTypeStreamSpeech, md.FunctionType)
	assert.Equal(t, core.ModelInfo{Provider: "mock", Name: "mock-speech"}, md.Model)

	fin := rec.Finished()
	require.Len(t, fin, 1)
	assert.Equal(t, core.FinishSuccess, fin[0].Status)
	assert.Equal(t, len(audio), fin[0].RawOutput)
}

func TestStreamSpeech_AbortWhileWaitingForInput(t *testing.T) {
	m := NewMockSpeechModel(Settings{})
	input := queue.New[string]()
	_ = input.Push("partial")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	res, err := StreamSpeechFull(ctx, m, input)
	require.NoError(t, err)

	for range res.AudioStream(ctx) {
		cancel()
	}

	_, err = res.Audio(context.Background())
	assert.ErrorIs(t, err, core.ErrAborted)
}
