package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestCallEvents(t *testing.T) {
	start := time.Now()
	md := CallMetadata{CallID: "c1", FunctionType: "stream-text", StartTimestamp: start}

	started := NewCallStartedEvent(md, "hi")
	if started.Type != EventCallStarted || started.Input != "hi" || !started.Timestamp.Equal(start) {
		t.Fatalf("unexpected start event: %+v", started)
	}
	if md.Finished() {
		t.Fatal("metadata should not be finished yet")
	}

	md.FinishTimestamp = start.Add(time.Second)
	md.Duration = time.Second
	boom := errors.New("boom")
	finished := NewCallFinishedEvent(md, "hi", FinishFailure, nil, boom)
	if finished.Type != EventCallFinished || finished.Status != FinishFailure || !errors.Is(finished.Error, boom) {
		t.Fatalf("unexpected finish event: %+v", finished)
	}
	if !finished.Metadata.Finished() {
		t.Fatal("finished metadata expected")
	}
}

func TestModelInfoString(t *testing.T) {
	if got := (ModelInfo{Provider: "openai", Name: "gpt"}).String(); got != "openai/gpt" {
		t.Fatalf("got %q", got)
	}
	if got := (ModelInfo{Name: "gpt"}).String(); got != "gpt" {
		t.Fatalf("got %q", got)
	}
}

func TestDispatchIsolatesPanics(t *testing.T) {
	var mu sync.Mutex
	var got []EventType

	observers := []Observer{
		ObserverFunc(func(Event) { panic("bad observer") }),
		nil,
		ObserverFunc(func(ev Event) {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, ev.Type)
		}),
	}

	Dispatch(observers, Event{Type: EventCallStarted})
	Dispatch(observers, Event{Type: EventCallFinished})

	if len(got) != 2 || got[0] != EventCallStarted || got[1] != EventCallFinished {
		t.Fatalf("unexpected events: %v", got)
	}
}

func TestChannelObserver(t *testing.T) {
	ch := make(chan Event, 2)
	o := NewChannelObserver(context.Background(), ch)

	o.OnEvent(Event{Type: EventCallStarted})
	o.OnEvent(Event{Type: EventCallFinished})

	if (<-ch).Type != EventCallStarted || (<-ch).Type != EventCallFinished {
		t.Fatal("events out of order")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	blocked := NewChannelObserver(ctx, make(chan Event))
	done := make(chan struct{})
	go func() {
		blocked.OnEvent(Event{})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("send should give up once ctx is done")
	}
}
