package core

import "context"

// Observer receives call lifecycle events. Implementations must be safe for
// concurrent use: calls running in parallel share observers.
type Observer interface {
	OnEvent(ev Event)
}

// ObserverFunc adapts a plain function to the Observer interface.
type ObserverFunc func(ev Event)

// OnEvent implements Observer.
func (f ObserverFunc) OnEvent(ev Event) { f(ev) }

// ChannelObserver forwards events onto a caller-supplied channel. Sends block
// until the event is received or ctx is done, so events keep their
// start→finish order; the caller must keep draining ch while calls run.
type ChannelObserver struct {
	ctx context.Context //nolint:containedctx // bounds blocking sends
	ch  chan<- Event
}

// NewChannelObserver creates an Observer that sends every event to ch.
func NewChannelObserver(ctx context.Context, ch chan<- Event) *ChannelObserver {
	return &ChannelObserver{ctx: ctx, ch: ch}
}

// OnEvent implements Observer.
func (o *ChannelObserver) OnEvent(ev Event) {
	select {
	case o.ch <- ev:
	case <-o.ctx.Done():
	}
}

// Dispatch delivers ev to every observer in order. A panicking observer is
// isolated so it cannot break the call or starve the observers after it.
func Dispatch(observers []Observer, ev Event) {
	for _, o := range observers {
		if o == nil {
			continue
		}
		safeInvoke(o, ev)
	}
}

func safeInvoke(o Observer, ev Event) {
	defer func() { _ = recover() }()
	o.OnEvent(ev)
}
