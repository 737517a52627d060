package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hupe1980/modelmesh/api"
	"github.com/hupe1980/modelmesh/core"
	"github.com/hupe1980/modelmesh/model"
	"github.com/hupe1980/modelmesh/queue"
	"github.com/hupe1980/modelmesh/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chunkJSON(content string) string {
	b, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion.chunk",
		"created": 1,
		"model":   "gpt-4o-mini",
		"choices": []map[string]any{{
			"index":         0,
			"delta":         map[string]any{"content": content},
			"finish_reason": nil,
		}},
	})
	return string(b)
}

func sseServer(t *testing.T, fragments ...string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		w.Header().Set("Content-Type", "text/event-stream")
		for _, f := range fragments {
			fmt.Fprintf(w, "data: %s\n\n", chunkJSON(f))
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	t.Cleanup(srv.Close)
	return srv
}

func fastRetry() api.Configuration {
	return api.Configuration{Retry: retry.WithExponentialBackoff(func(o *retry.BackoffOptions) {
		o.MaxTries = 3
		o.InitialDelay = time.Millisecond
	})}
}

func TestTextModel_StreamText(t *testing.T) {
	srv := sseServer(t, " Hello", " world ")

	m := NewTextModel(func(o *Options) {
		o.APIKey = "test"
		o.BaseURL = srv.URL
		o.TrimWhitespace = true
	})

	res, err := model.StreamTextFull(context.Background(), m, model.NewTextPrompt("hi"))
	require.NoError(t, err)

	text, err := res.Text(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Hello world", text)

	md, err := res.Metadata(context.Background())
	require.NoError(t, err)
	assert.Equal(t, core.ModelInfo{Provider: "openai", Name: "gpt-4o-mini"}, md.Model)
}

func TestTextModel_RetriesRateLimitedConnection(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"error":{"message":"slow down","type":"rate_limit"}}`)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprintf(w, "data: %s\n\n", chunkJSON("ok"))
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	m := NewTextModel(func(o *Options) {
		o.APIKey = "test"
		o.BaseURL = srv.URL
		o.API = fastRetry()
	})

	res, err := model.StreamTextFull(context.Background(), m, model.NewTextPrompt("hi"))
	require.NoError(t, err)

	text, err := res.Text(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", text)

	md, _ := res.Metadata(context.Background())
	assert.Equal(t, 2, md.Tries)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestTextModel_BadRequestNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"message":"bad","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	m := NewTextModel(func(o *Options) {
		o.APIKey = "test"
		o.BaseURL = srv.URL
		o.API = fastRetry()
	})

	_, err := model.StreamText(context.Background(), m, model.NewTextPrompt("hi"))
	require.Error(t, err)

	var ce *api.CallError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, http.StatusBadRequest, ce.StatusCode)
	assert.False(t, ce.IsRetryable())
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestTextModel_BuildParams(t *testing.T) {
	m := NewTextModelFromClient(nil, func(o *Options) {
		o.MaxGenerationTokens = 64
		o.StopSequences = []string{"\n\n"}
	})

	params := m.buildParams(model.Prompt{
		System:   "be brief",
		Messages: []model.Message{{Role: model.RoleUser, Content: "q"}, {Role: model.RoleAssistant, Content: "a"}},
	})

	assert.Len(t, params.Messages, 3)
	assert.Equal(t, int64(64), params.MaxCompletionTokens.Value)
	assert.Equal(t, []string{"\n\n"}, params.Stop.OfStringArray)
}

func TestToCallError_PassesCancellation(t *testing.T) {
	assert.ErrorIs(t, toCallError(context.Canceled), context.Canceled)

	var ce *api.CallError
	require.ErrorAs(t, toCallError(fmt.Errorf("dial tcp: refused")), &ce)
	assert.True(t, ce.IsRetryable())
}

func TestSpeechModel_Duplex(t *testing.T) {
	var (
		mu     sync.Mutex
		inputs []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/speech", r.URL.Path)
		var body struct {
			Input string `json:"input"`
			Voice string `json:"voice"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		mu.Lock()
		inputs = append(inputs, body.Input)
		mu.Unlock()
		assert.Equal(t, "alloy", body.Voice)

		w.Header().Set("Content-Type", "audio/mpeg")
		fmt.Fprint(w, strings.ToUpper(body.Input))
	}))
	defer srv.Close()

	m := NewSpeechModel(func(o *SpeechOptions) {
		o.APIKey = "test"
		o.BaseURL = srv.URL
	})

	input := queue.New[string]()
	_ = input.Push("first ")
	_ = input.Push("")
	_ = input.Push("second")
	input.Close()

	res, err := model.StreamSpeechFull(context.Background(), m, input)
	require.NoError(t, err)

	audio, err := res.Audio(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "FIRST SECOND", string(audio))
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"first ", "second"}, inputs)
}
