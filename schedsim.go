// Package schedsim defines the decision/syscall protocol shared by all
// scheduling policies: Round Robin, Round Robin with Priorities, and CFS.
//
// A Scheduler is a deterministic decision engine. It never blocks and never
// touches the outside world; a driver calls Next to learn what should run,
// simulates that process, and calls Stop to report what happened.
package schedsim

import "errors"

// Pid identifies a simulated process. Pids are strictly increasing for the
// lifetime of a Scheduler and are never reused.
type Pid int

// State is the lifecycle state of a process.
type State int

const (
	// Ready means the process sits in a runqueue awaiting dispatch.
	Ready State = iota
	// Running means the process currently holds the one running slot.
	Running
	// Waiting means the process is blocked on an event (sleep is modeled
	// as waiting on a reserved per-process sleep event).
	Waiting
)

func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Waiting:
		return "waiting"
	default:
		return "unknown"
	}
}

// Timings is the per-process accounting triple, in abstract time units.
// All three fields are non-decreasing over the life of a process.
type Timings struct {
	Total     int64
	Syscall   int64
	Execution int64
}

// ProcessInfo is a read-only snapshot of one live process, as returned by
// Scheduler.List.
type ProcessInfo struct {
	Pid     Pid
	State   State
	Event   int // the awaited event when State == Waiting on an event; 0 for a sleeping process
	Timings Timings

	// Extra carries policy-private fields worth surfacing in a diagnostic
	// snapshot (RRP: "priority"; CFS: "vruntime"). Nil for RR.
	Extra map[string]any
}

// DecisionKind tags the variant carried by a Decision.
type DecisionKind int

const (
	// Run means the driver must simulate Pid running for up to Timeslice
	// ticks, then call Stop.
	Run DecisionKind = iota
	// Sleep means every process exists but none is ready; the driver must
	// advance abstract time by Ticks and call Next again. No Stop follows.
	Sleep
	// Deadlock is terminal: every live process is waiting on an event that
	// can never be signaled.
	Deadlock
	// Panic is terminal: pid 1 exited while other processes still exist.
	Panic
	// Done is terminal: the process table is empty.
	Done
)

func (k DecisionKind) String() string {
	switch k {
	case Run:
		return "run"
	case Sleep:
		return "sleep"
	case Deadlock:
		return "deadlock"
	case Panic:
		return "panic"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// Decision is the result of a Next call. Only the fields relevant to Kind
// are meaningful: Pid/Timeslice for Run, Ticks for Sleep.
type Decision struct {
	Kind      DecisionKind
	Pid       Pid
	Timeslice int
	Ticks     int
}

// SyscallKind tags the variant carried by a Syscall.
type SyscallKind int

const (
	Fork SyscallKind = iota
	SleepCall
	Exit
	WaitEvent
	SignalEvent
)

func (k SyscallKind) String() string {
	switch k {
	case Fork:
		return "fork"
	case SleepCall:
		return "sleep"
	case Exit:
		return "exit"
	case WaitEvent:
		return "wait"
	case SignalEvent:
		return "signal"
	default:
		return "unknown"
	}
}

// Syscall is the syscall a running process issued. Which field is
// meaningful depends on Kind: Priority for Fork, Ticks for SleepCall,
// Event for WaitEvent/SignalEvent.
type Syscall struct {
	Kind     SyscallKind
	Priority int // Fork: child's requested priority (RRP only, ignored otherwise)
	Ticks    int // SleepCall: how long to sleep
	Event    int // WaitEvent/SignalEvent: the event number
}

// StopReason is passed to Scheduler.Stop to report why the running process
// stopped running.
type StopReason struct {
	Pid Pid

	// Expired is true when the process consumed its entire timeslice
	// without issuing a syscall. When false, Syscall and Remaining apply.
	Expired bool

	Syscall   Syscall
	Remaining int // ticks left in the timeslice when the syscall fired
}

// ResultKind tags the variant carried by a SyscallResult.
type ResultKind int

const (
	Success ResultKind = iota
	ResultPid
	NoRunningProcess
)

// SyscallResult is returned by Scheduler.Stop.
type SyscallResult struct {
	Kind ResultKind
	Pid  Pid // valid iff Kind == ResultPid: the new child's pid
}

// Scheduler is the uniform capability set implemented independently by
// rr.Scheduler, rrp.Scheduler, and cfs.Scheduler. None of them share
// mutable state; each instance is a fully independent simulation.
type Scheduler interface {
	// Next returns a fresh decision. It has side effects only insofar as
	// it marks the chosen process Running and removes it from its runqueue.
	Next() Decision

	// Stop applies a stop reason to the process last returned by Next.
	Stop(reason StopReason) SyscallResult

	// List returns a read-only snapshot of every live process, in
	// unspecified order.
	List() []ProcessInfo
}

// Construction-time configuration errors. After construction, a Scheduler
// assumes its own invariants hold; no runtime call can trigger these.
var (
	ErrInvalidTimeslice = errors.New("schedsim: timeslice must be positive")
	ErrInvalidBaseTime  = errors.New("schedsim: base_time must be positive")
)
