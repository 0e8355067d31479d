// Package core holds the Process Table, Event Registry, and the
// fork/exit/wait/signal/sleep transition logic shared by all three
// scheduling policies. It never decides which runqueue shape or timeslice
// rule to use — that is supplied per call through a Hooks value, so rr,
// rrp, and cfs each stay a separate, un-branching type (spec design note:
// avoid a god object that switches on a policy tag).
package core

import (
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/procsim/schedsim"
)

// sleepEvent is the reserved event number marking a process as sleeping
// rather than waiting on a caller-numbered event. Driver event numbers are
// non-negative by protocol convention; this package does not validate
// their range, so a process that issues Wait(-1) is treated as sleeping.
const sleepEvent = -1

// Record is a process table entry. SleepRemaining and Timeslice are
// managed by Base; Priority and VRuntime are policy-private, and a policy
// only touches the one it owns.
type Record struct {
	Pid     schedsim.Pid
	State   schedsim.State
	Event   int
	Timings schedsim.Timings

	SleepRemaining int

	// Timeslice is the quantum granted by the Run decision that last
	// dispatched this process. Stop uses it to derive how many ticks
	// were actually executed, since StopReason only carries Remaining.
	Timeslice int

	Priority int    // RRP only
	VRuntime uint64 // CFS only
}

// Hooks lets a policy plug its runqueue shape and per-syscall adjustments
// into the shared transition logic without Base knowing which policy it
// is serving.
type Hooks struct {
	// Enqueue pushes a Ready process into the policy's runqueue.
	Enqueue func(rec *Record)
	// Dequeue pops the next process to run, already removed from the
	// runqueue. ok is false when nothing is ready.
	Dequeue func() (schedsim.Pid, bool)
	// ReadyCount is the number of processes Ready or about to run, used
	// by CFS to size its timeslice; RR/RRP ignore it.
	ReadyCount func() int
	// Timeslice computes the quantum granted to the next Run decision.
	Timeslice func(readyCount int) int
	// InitChild sets policy-private fields on a freshly forked child.
	// parent is nil only for the bootstrap fork of pid 1.
	InitChild func(child, parent *Record, priorityArg int)
	// OnExpire adjusts a process that used its whole timeslice, before
	// it is re-enqueued.
	OnExpire func(rec *Record)
	// OnSyscall adjusts a process for any syscall other than Exit,
	// before it is re-enqueued or put to wait.
	OnSyscall func(rec *Record, kind schedsim.SyscallKind)
	// OnExecuted runs after every stop, successful or expired, with the
	// number of ticks the process just consumed (CFS: vruntime += executed).
	OnExecuted func(rec *Record, executed int64)
}

// Base is the policy-agnostic scheduler state: the Process Table, the
// Event Registry, the running slot, and the panic latch. It is held as a
// field by rr.Scheduler, rrp.Scheduler, and cfs.Scheduler, each of which
// supplies its own Hooks to Base's methods.
type Base struct {
	Table   map[schedsim.Pid]*Record
	Events  map[int][]schedsim.Pid
	NextPid schedsim.Pid
	Running schedsim.Pid

	panicked bool

	Log *logrus.Entry
}

// NewBase returns an empty Base ready for its first bootstrap Stop call.
// log may be nil, in which case logrus.StandardLogger() is used.
func NewBase(log *logrus.Entry) *Base {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Base{
		Table:   make(map[schedsim.Pid]*Record),
		Events:  make(map[int][]schedsim.Pid),
		NextPid: 1,
		Log:     log,
	}
}

// Next implements the policy-agnostic half of Scheduler.Next: terminal
// conditions, dispatch via Hooks.Dequeue, and the Sleep/Deadlock fallback
// when nothing is ready.
func (b *Base) Next(h Hooks) schedsim.Decision {
	if len(b.Table) == 0 {
		return schedsim.Decision{Kind: schedsim.Done}
	}
	if b.panicked {
		return schedsim.Decision{Kind: schedsim.Panic}
	}

	// ReadyCount is read before Dequeue pops the winner out of the
	// runqueue, so it includes the process about to run (CFS counts the
	// caller as part of N_ready, per spec.md's Open Question resolution).
	readyCount := h.ReadyCount()
	if pid, ok := h.Dequeue(); ok {
		rec := b.Table[pid]
		rec.State = schedsim.Running
		b.Running = pid
		ts := h.Timeslice(readyCount)
		rec.Timeslice = ts
		return schedsim.Decision{Kind: schedsim.Run, Pid: pid, Timeslice: ts}
	}

	if n, any := b.minSleepRemaining(); any {
		b.advanceSleep(n, h)
		b.advanceAllTotal(n)
		b.Log.WithField("ticks", n).Debug("all processes blocked, advancing sleepers")
		return schedsim.Decision{Kind: schedsim.Sleep, Ticks: n}
	}

	b.Log.Warn("deadlock: every live process waits on an event nothing can signal")
	return schedsim.Decision{Kind: schedsim.Deadlock}
}

func (b *Base) minSleepRemaining() (int, bool) {
	min := 0
	found := false
	for _, rec := range b.Table {
		if rec.State == schedsim.Waiting && rec.Event == sleepEvent && rec.SleepRemaining > 0 {
			if !found || rec.SleepRemaining < min {
				min = rec.SleepRemaining
				found = true
			}
		}
	}
	return min, found
}

func (b *Base) advanceSleep(n int, h Hooks) {
	for _, rec := range b.Table {
		if rec.State != schedsim.Waiting || rec.Event != sleepEvent {
			continue
		}
		rec.SleepRemaining -= n
		if rec.SleepRemaining <= 0 {
			rec.SleepRemaining = 0
			rec.State = schedsim.Ready
			rec.Event = 0
			h.Enqueue(rec)
		}
	}
}

func (b *Base) advanceAllTotal(n int) {
	for _, rec := range b.Table {
		rec.Timings.Total += int64(n)
	}
}

// Stop implements the policy-agnostic half of Scheduler.Stop: the
// NoRunningProcess guard, the bootstrap special case, accounting, and
// the fork/exit/wait/signal/sleep state transitions. h is the calling
// policy's hook set.
func (b *Base) Stop(reason schedsim.StopReason, h Hooks) schedsim.SyscallResult {
	if b.Running == 0 {
		if len(b.Table) == 0 && !reason.Expired && reason.Syscall.Kind == schedsim.Fork && reason.Pid == 0 {
			return b.bootstrap(reason.Syscall, h)
		}
		return schedsim.SyscallResult{Kind: schedsim.NoRunningProcess}
	}

	rec := b.Table[b.Running]
	b.Running = 0

	isSyscall := !reason.Expired
	var executed int64
	if reason.Expired {
		executed = int64(rec.Timeslice)
	} else {
		executed = int64(rec.Timeslice - reason.Remaining)
	}

	rec.Timings.Execution += executed
	if isSyscall {
		rec.Timings.Syscall++
	}
	wall := executed
	if isSyscall {
		wall++
	}
	rec.Timings.Total += wall
	for pid, other := range b.Table {
		if pid == rec.Pid {
			continue
		}
		other.Timings.Total += wall
	}
	if h.OnExecuted != nil {
		h.OnExecuted(rec, executed)
	}

	if reason.Expired {
		h.OnExpire(rec)
		rec.State = schedsim.Ready
		h.Enqueue(rec)
		b.Log.WithField("pid", rec.Pid).Debug("timeslice expired")
		return schedsim.SyscallResult{Kind: schedsim.Success}
	}

	switch reason.Syscall.Kind {
	case schedsim.Fork:
		return b.fork(rec, reason.Syscall.Priority, h)

	case schedsim.SleepCall:
		h.OnSyscall(rec, schedsim.SleepCall)
		rec.State = schedsim.Waiting
		rec.Event = sleepEvent
		rec.SleepRemaining = reason.Syscall.Ticks
		b.Log.WithFields(logrus.Fields{"pid": rec.Pid, "ticks": reason.Syscall.Ticks}).Debug("sleep")
		return schedsim.SyscallResult{Kind: schedsim.Success}

	case schedsim.Exit:
		delete(b.Table, rec.Pid)
		if rec.Pid == 1 && len(b.Table) > 0 {
			b.panicked = true
			b.Log.WithField("remaining", len(b.Table)).Warn("init exited with live children")
		}
		b.Log.WithField("pid", rec.Pid).Debug("exit")
		return schedsim.SyscallResult{Kind: schedsim.Success}

	case schedsim.WaitEvent:
		h.OnSyscall(rec, schedsim.WaitEvent)
		rec.State = schedsim.Waiting
		rec.Event = reason.Syscall.Event
		b.Events[rec.Event] = append(b.Events[rec.Event], rec.Pid)
		b.Log.WithFields(logrus.Fields{"pid": rec.Pid, "event": rec.Event}).Debug("wait")
		return schedsim.SyscallResult{Kind: schedsim.Success}

	case schedsim.SignalEvent:
		h.OnSyscall(rec, schedsim.SignalEvent)
		b.signal(rec, reason.Syscall.Event, h)
		return schedsim.SyscallResult{Kind: schedsim.Success}

	default:
		return schedsim.SyscallResult{Kind: schedsim.Success}
	}
}

func (b *Base) signal(rec *Record, event int, h Hooks) {
	waiters := b.Events[event]
	delete(b.Events, event)
	sort.Slice(waiters, func(i, j int) bool { return waiters[i] < waiters[j] })

	for _, pid := range waiters {
		wrec := b.Table[pid]
		wrec.State = schedsim.Ready
		wrec.Event = 0
		h.Enqueue(wrec)
	}

	rec.State = schedsim.Ready
	h.Enqueue(rec)
	b.Log.WithFields(logrus.Fields{"pid": rec.Pid, "event": event, "woken": len(waiters)}).Debug("signal")
}

func (b *Base) fork(parent *Record, priorityArg int, h Hooks) schedsim.SyscallResult {
	child := &Record{Pid: b.NextPid}
	b.NextPid++
	h.InitChild(child, parent, priorityArg)
	child.State = schedsim.Ready
	b.Table[child.Pid] = child
	h.Enqueue(child)

	h.OnSyscall(parent, schedsim.Fork)
	parent.State = schedsim.Ready
	h.Enqueue(parent)

	b.Log.WithFields(logrus.Fields{"parent": parent.Pid, "child": child.Pid}).Debug("fork")
	return schedsim.SyscallResult{Kind: schedsim.ResultPid, Pid: child.Pid}
}

func (b *Base) bootstrap(sc schedsim.Syscall, h Hooks) schedsim.SyscallResult {
	child := &Record{Pid: 1}
	b.NextPid = 2
	h.InitChild(child, nil, sc.Priority)
	child.State = schedsim.Ready
	b.Table[1] = child
	h.Enqueue(child)

	b.Log.Debug("bootstrap fork of pid 1")
	return schedsim.SyscallResult{Kind: schedsim.ResultPid, Pid: 1}
}

// List returns a snapshot of every live process. extra, if non-nil,
// supplies the policy-private Extra map per record (RRP: priority, CFS:
// vruntime).
func (b *Base) List(extra func(rec *Record) map[string]any) []schedsim.ProcessInfo {
	out := make([]schedsim.ProcessInfo, 0, len(b.Table))
	for _, rec := range b.Table {
		info := schedsim.ProcessInfo{
			Pid:     rec.Pid,
			State:   rec.State,
			Timings: rec.Timings,
		}
		if rec.State == schedsim.Waiting && rec.Event != sleepEvent {
			info.Event = rec.Event
		}
		if extra != nil {
			info.Extra = extra(rec)
		}
		out = append(out, info)
	}
	return out
}
