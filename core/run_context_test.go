package core

import (
	"errors"
	"testing"
)

func TestNewRunContext(t *testing.T) {
	var seen int
	obs := ObserverFunc(func(Event) { seen++ })

	rc := NewRunContext(func(o *RunOptions) {
		o.SessionID = "s1"
		o.UserID = "u1"
		o.Observers = []Observer{obs}
		o.MaxModelCalls = 1
	})

	if rc.RunID == "" {
		t.Fatal("run id should be generated")
	}
	if rc.Logger() == nil {
		t.Fatal("logger should never be nil")
	}

	md := CallMetadata{}
	rc.Stamp(&md)
	if md.RunID != rc.RunID || md.SessionID != "s1" || md.UserID != "u1" {
		t.Fatalf("ids not stamped: %+v", md)
	}

	Dispatch(rc.AllObservers(), Event{})
	if seen != 1 {
		t.Fatal("run observer not invoked")
	}

	if err := rc.AcquireCall(); err != nil {
		t.Fatal(err)
	}
	if err := rc.AcquireCall(); !errors.Is(err, ErrModelCallLimit) {
		t.Fatalf("expected limit error, got %v", err)
	}
}

func TestNilRunContextIsSafe(t *testing.T) {
	var rc *RunContext

	md := CallMetadata{}
	rc.Stamp(&md)
	if md.RunID != "" {
		t.Fatal("nil run context must not stamp ids")
	}
	if err := rc.AcquireCall(); err != nil {
		t.Fatal(err)
	}
	if rc.AllObservers() != nil {
		t.Fatal("expected no observers")
	}
	rc.Logger().Info("no panic")
}
