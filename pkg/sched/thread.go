package sched

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ThreadState represents the state of a kernel thread.
type ThreadState int

const (
	// StateReady means the thread is queued and waiting for the processor.
	StateReady ThreadState = iota
	// StateRunning means the thread owns the processor.
	StateRunning
	// StateFinished means the thread body returned or called Finish.
	StateFinished
)

// String returns the string representation of a thread state.
func (s ThreadState) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// ErrInvalidTransition is returned for a state change the lifecycle forbids.
var ErrInvalidTransition = errors.New("invalid thread state transition")

var validTransitions = map[ThreadState][]ThreadState{
	StateReady:   {StateRunning, StateFinished},
	StateRunning: {StateFinished},
}

// IsValidTransition checks if a thread may move from one state to another.
func IsValidTransition(from, to ThreadState) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Thread is a schedulable unit of kernel work.
type Thread struct {
	ID   int
	Name string

	body func(context.Context)

	mu         sync.Mutex
	state      ThreadState
	createdAt  time.Time
	startedAt  time.Time
	finishedAt time.Time
}

func newThread(id int, name string, body func(context.Context)) *Thread {
	return &Thread{
		ID:        id,
		Name:      name,
		body:      body,
		state:     StateReady,
		createdAt: time.Now(),
	}
}

// State returns the current state.
func (t *Thread) State() ThreadState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Thread) transitionTo(to ThreadState) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !IsValidTransition(t.state, to) {
		return ErrInvalidTransition
	}
	t.state = to

	switch to {
	case StateRunning:
		t.startedAt = time.Now()
	case StateFinished:
		t.finishedAt = time.Now()
	}
	return nil
}

// RunTime returns how long the thread has held, or held, the processor.
func (t *Thread) RunTime() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.state {
	case StateRunning:
		return time.Since(t.startedAt)
	case StateFinished:
		if t.startedAt.IsZero() {
			return 0
		}
		return t.finishedAt.Sub(t.startedAt)
	}
	return 0
}
