package userprog

// ProcessState is the lifecycle state of a process.
type ProcessState int

const (
	// StateNew is a freshly allocated process with an empty address space.
	StateNew ProcessState = iota
	// StateLoaded means an image and its arguments are in memory.
	StateLoaded
	// StateRunning means the process thread has started executing.
	StateRunning
	// StateExited means the process called exit.
	StateExited
	// StateFailed means loading or starting the process failed.
	StateFailed
)

var processStateNames = map[ProcessState]string{
	StateNew:     "new",
	StateLoaded:  "loaded",
	StateRunning: "running",
	StateExited:  "exited",
	StateFailed:  "failed",
}

func (s ProcessState) String() string {
	if name, ok := processStateNames[s]; ok {
		return name
	}
	return "unknown"
}

// processTransitions lists the allowed lifecycle moves.
var processTransitions = []struct {
	from, to ProcessState
}{
	{StateNew, StateLoaded},
	{StateNew, StateFailed},
	{StateLoaded, StateRunning},
	{StateLoaded, StateFailed},
	{StateLoaded, StateExited},
	{StateRunning, StateExited},
}

// IsValidProcessTransition reports whether a process may move from one
// state to another.
func IsValidProcessTransition(from, to ProcessState) bool {
	for _, t := range processTransitions {
		if t.from == from && t.to == to {
			return true
		}
	}
	return false
}

// DispatchState is where the syscall dispatcher is in handling a trap.
type DispatchState int

const (
	// DispatchIdle waits for the next syscall exception.
	DispatchIdle DispatchState = iota
	// DispatchDecoding reads the syscall number and arguments.
	DispatchDecoding
	// DispatchExecuting runs the matched handler.
	DispatchExecuting
	// DispatchReturning stores the result and advances the PC.
	DispatchReturning
)

var dispatchStateNames = [...]string{"idle", "decoding", "executing", "returning"}

func (s DispatchState) String() string {
	if s < 0 || int(s) >= len(dispatchStateNames) {
		return "unknown"
	}
	return dispatchStateNames[s]
}

var dispatchTransitions = map[DispatchState]DispatchState{
	DispatchIdle:      DispatchDecoding,
	DispatchDecoding:  DispatchExecuting,
	DispatchExecuting: DispatchReturning,
	DispatchReturning: DispatchIdle,
}

// IsValidDispatchTransition reports whether the dispatcher may move from
// one state to another. Decoding may also fall back to Idle when the
// syscall number is not recognized.
func IsValidDispatchTransition(from, to DispatchState) bool {
	if from == DispatchDecoding && to == DispatchIdle {
		return true
	}
	next, ok := dispatchTransitions[from]
	return ok && next == to
}
