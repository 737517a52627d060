package model

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hupe1980/modelmesh/core"
	"github.com/hupe1980/modelmesh/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamText_TrimWhitespace(t *testing.T) {
	m := NewMockTextModel([]string{" Hello", " world "}, func(o *MockTextOptions) {
		o.Settings.TrimWhitespace = true
	})

	stream, err := StreamText(context.Background(), m, NewTextPrompt("greet"))
	require.NoError(t, err)

	items, errs := collect(stream)
	assert.Empty(t, errs)
	assert.Equal(t, []string{"Hello", " world"}, items)
	assert.Equal(t, "Hello world", strings.Join(items, ""))
}

func TestStreamText_NoTrim(t *testing.T) {
	m := NewMockTextModel([]string{" Hello", "", " world "})

	stream, err := StreamText(context.Background(), m, NewTextPrompt("greet"))
	require.NoError(t, err)

	items, _ := collect(stream)
	assert.Equal(t, []string{" Hello", " world "}, items, "empty fragments are filtered")
	assert.Equal(t, []Prompt{NewTextPrompt("greet")}, m.Prompts())
}

func TestStreamTextFull_TextMatchesStream(t *testing.T) {
	m := NewMockTextModel([]string{"  The", " quick ", "brown", "  ", " fox\n"}, func(o *MockTextOptions) {
		o.Settings.TrimWhitespace = true
	})
	rec := testutil.NewRecorder()

	res, err := StreamTextFull(context.Background(), m, NewTextPrompt("story"), WithObservers(rec))
	require.NoError(t, err)

	items, errs := collect(res.TextStream(context.Background()))
	require.Empty(t, errs)

	text, err := res.Text(context.Background())
	require.NoError(t, err)
	assert.Equal(t, strings.Join(items, ""), text)
	assert.Equal(t, "The quick brown   fox", text)

	fin := rec.Finished()
	require.Len(t, fin, 1)
	assert.Equal(t, text, fin[0].RawOutput)
}

func TestStreamTextFull_ConcurrentConsumers(t *testing.T) {
	m := NewMockTextModel([]string{"a", "b", "c"})

	res, err := StreamTextFull(context.Background(), m, NewTextPrompt("x"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([][]string, 3)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _ = collect(res.TextStream(context.Background()))
		}()
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, []string{"a", "b", "c"}, r)
	}

	text, err := res.Text(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", text)
}

func TestStreamText_DeadlineIsYielded(t *testing.T) {
	m := NewMockTextModel([]string{"a", "b", "c", "d"}, func(o *MockTextOptions) {
		o.Delay = 30 * time.Millisecond
	})

	ctx, cancel := context.WithTimeout(context.Background(), 70*time.Millisecond)
	defer cancel()

	res, err := StreamTextFull(ctx, m, NewTextPrompt("slow"))
	require.NoError(t, err)

	items, errs := collect(res.TextStream(ctx))
	assert.Less(t, len(items), 4)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], context.DeadlineExceeded)

	_, err = res.Metadata(context.Background())
	require.Error(t, err)
	assert.False(t, core.IsAbort(err))
}
