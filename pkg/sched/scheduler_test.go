package sched

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestThreadStateTransitions(t *testing.T) {
	tests := []struct {
		from, to ThreadState
		want     bool
	}{
		{StateReady, StateRunning, true},
		{StateReady, StateFinished, true},
		{StateRunning, StateFinished, true},
		{StateRunning, StateReady, false},
		{StateFinished, StateRunning, false},
		{StateFinished, StateReady, false},
	}
	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			if got := IsValidTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("IsValidTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestRunFIFO(t *testing.T) {
	s := New(nil)
	var order []string

	for _, name := range []string{"a", "b", "c"} {
		name := name
		if err := s.Fork(name, func(context.Context) { order = append(order, name) }); err != nil {
			t.Fatalf("Fork(%s) failed: %v", name, err)
		}
	}
	if s.Len() != 3 {
		t.Errorf("Len() = %d, want 3", s.Len())
	}

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if got := len(order); got != 3 || order[0] != "a" || order[1] != "b" || order[2] != "c" {
		t.Errorf("run order = %v, want [a b c]", order)
	}
	for _, th := range s.Threads() {
		if th.State() != StateFinished {
			t.Errorf("thread %s state = %s, want finished", th.Name, th.State())
		}
	}
}

func TestFinishStopsThread(t *testing.T) {
	s := New(nil)
	reached := false

	s.Fork("exiting", func(context.Context) {
		s.Finish()
		reached = true
	})
	s.Fork("next", func(context.Context) {})

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if reached {
		t.Error("code after Finish() ran")
	}
	if s.Current() != nil {
		t.Error("Current() should be nil after Run()")
	}
	if th := s.Threads()[0]; th.State() != StateFinished {
		t.Errorf("finished thread state = %s, want finished", th.State())
	}
}

func TestForkFromThread(t *testing.T) {
	s := New(nil)
	ran := false

	s.Fork("parent", func(context.Context) {
		s.Fork("child", func(context.Context) { ran = true })
	})

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if !ran {
		t.Error("child thread forked while running did not run")
	}
}

func TestRunCancelled(t *testing.T) {
	s := New(nil)
	ctx, cancel := context.WithCancel(context.Background())

	block := make(chan struct{})
	defer close(block)
	s.Fork("blocked", func(context.Context) { <-block })

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	if err := s.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestForkNilBody(t *testing.T) {
	s := New(nil)
	if err := s.Fork("nil", nil); !errors.Is(err, ErrNilBody) {
		t.Errorf("Fork(nil) error = %v, want ErrNilBody", err)
	}
}

func TestFinishOutsideThreadPanics(t *testing.T) {
	s := New(nil)
	defer func() {
		if r := recover(); r == nil {
			t.Error("Finish() outside a thread should panic")
		}
	}()
	s.Finish()
}
