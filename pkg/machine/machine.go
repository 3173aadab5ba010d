package machine

import (
	"errors"
	"sync"
)

// ErrHalted is reported by Err after a clean Halt.
var ErrHalted = errors.New("machine halted")

// Machine wraps the processor with a power switch.
type Machine struct {
	processor *Processor

	mu     sync.Mutex
	halted bool
	cause  error
	done   chan struct{}
}

// New creates a machine with the given physical memory geometry.
func New(numPhysPages, pageSize int) *Machine {
	return &Machine{
		processor: NewProcessor(numPhysPages, pageSize),
		done:      make(chan struct{}),
	}
}

// Processor returns the machine's processor.
func (m *Machine) Processor() *Processor {
	return m.processor
}

// Halt stops the machine. Halting an already halted machine is a no-op.
func (m *Machine) Halt() {
	m.stop(ErrHalted)
}

// Abort stops the machine because of an unrecoverable error.
func (m *Machine) Abort(cause error) {
	if cause == nil {
		cause = ErrHalted
	}
	m.stop(cause)
}

func (m *Machine) stop(cause error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.halted {
		return
	}
	m.halted = true
	m.cause = cause
	close(m.done)
}

// Halted reports whether the machine has stopped.
func (m *Machine) Halted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.halted
}

// Done returns a channel that is closed once the machine stops.
func (m *Machine) Done() <-chan struct{} {
	return m.done
}

// Err returns nil while running, ErrHalted after Halt, or the abort cause.
func (m *Machine) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cause
}
