package sched

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"github.com/hashicorp/go-hclog"
)

// Scheduler errors.
var (
	ErrNilBody   = errors.New("thread body is nil")
	ErrNoCurrent = errors.New("no thread is running")
)

// runQueue is a FIFO of ready threads.
type runQueue struct {
	items []*Thread
}

func (q *runQueue) Len() int { return len(q.items) }

func (q *runQueue) Push(t *Thread) {
	q.items = append(q.items, t)
}

func (q *runQueue) Pop() *Thread {
	if len(q.items) == 0 {
		return nil
	}
	t := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return t
}

// Scheduler runs forked threads one at a time in FIFO order.
type Scheduler struct {
	logger hclog.Logger

	mu      sync.Mutex
	ready   runQueue
	threads []*Thread
	nextID  int
	current *Thread
}

// New creates an empty scheduler.
func New(logger hclog.Logger) *Scheduler {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Scheduler{
		logger: logger.Named("sched"),
		nextID: 1,
	}
}

// Fork creates a thread running body and appends it to the run queue.
func (s *Scheduler) Fork(name string, body func(context.Context)) error {
	if body == nil {
		return ErrNilBody
	}

	s.mu.Lock()
	t := newThread(s.nextID, name, body)
	s.nextID++
	s.threads = append(s.threads, t)
	s.ready.Push(t)
	s.mu.Unlock()

	s.logger.Debug("forked thread", "tid", t.ID, "name", name)
	return nil
}

// Finish terminates the calling thread. It must be called from inside a
// thread body; it does not return.
func (s *Scheduler) Finish() {
	if s.Current() == nil {
		panic(ErrNoCurrent)
	}
	runtime.Goexit()
}

// Current returns the running thread, or nil between threads.
func (s *Scheduler) Current() *Thread {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Threads returns every thread forked so far, in creation order.
func (s *Scheduler) Threads() []*Thread {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Thread, len(s.threads))
	copy(out, s.threads)
	return out
}

// Len returns the number of threads waiting to run.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready.Len()
}

// Run dispatches ready threads until the queue is empty or ctx is done.
// Threads forked while running are picked up in order.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		s.mu.Lock()
		t := s.ready.Pop()
		s.mu.Unlock()
		if t == nil {
			return nil
		}

		if err := s.dispatch(ctx, t); err != nil {
			return err
		}
	}
}

func (s *Scheduler) dispatch(ctx context.Context, t *Thread) error {
	if err := t.transitionTo(StateRunning); err != nil {
		return err
	}

	s.mu.Lock()
	s.current = t
	s.mu.Unlock()
	s.logger.Debug("running thread", "tid", t.ID, "name", t.Name)

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer s.retire(t)
		t.body(ctx)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// retire runs on the thread's goroutine, including after runtime.Goexit.
func (s *Scheduler) retire(t *Thread) {
	t.transitionTo(StateFinished)

	s.mu.Lock()
	if s.current == t {
		s.current = nil
	}
	s.mu.Unlock()

	s.logger.Debug("thread finished", "tid", t.ID, "name", t.Name, "ran", t.RunTime())
}
