// Package rrp implements Round Robin with Priorities: six FIFO runqueues
// indexed 0 (lowest) to 5 (highest), scanned top-down for dispatch, with
// priority decay on timeslice expiry and priority growth on every syscall
// other than Exit.
package rrp

import (
	"github.com/sirupsen/logrus"

	"github.com/procsim/schedsim"
	"github.com/procsim/schedsim/internal/core"
)

const (
	minPriority = 0
	maxPriority = 5
	numQueues   = maxPriority + 1
)

func clamp(p int) int {
	if p < minPriority {
		return minPriority
	}
	if p > maxPriority {
		return maxPriority
	}
	return p
}

// Scheduler is a Round Robin with Priorities scheduler. The zero value is
// not usable; use New.
type Scheduler struct {
	base      *core.Base
	queues    [numQueues][]schedsim.Pid
	timeslice int
}

// New constructs an RRP scheduler with the given timeslice, identical
// across all priority levels. log may be nil to use the default logger.
func New(timeslice int, log *logrus.Entry) (*Scheduler, error) {
	if timeslice <= 0 {
		return nil, schedsim.ErrInvalidTimeslice
	}
	return &Scheduler{
		base:      core.NewBase(log),
		timeslice: timeslice,
	}, nil
}

func (s *Scheduler) hooks() core.Hooks {
	return core.Hooks{
		Enqueue: func(rec *core.Record) {
			p := clamp(rec.Priority)
			s.queues[p] = append(s.queues[p], rec.Pid)
		},
		Dequeue: func() (schedsim.Pid, bool) {
			for p := maxPriority; p >= minPriority; p-- {
				q := s.queues[p]
				if len(q) == 0 {
					continue
				}
				pid := q[0]
				q = q[1:]
				if len(q) == 0 {
					q = nil
				}
				s.queues[p] = q
				return pid, true
			}
			return 0, false
		},
		ReadyCount: func() int {
			n := 0
			for _, q := range s.queues {
				n += len(q)
			}
			return n
		},
		Timeslice: func(int) int { return s.timeslice },
		InitChild: func(child, parent *core.Record, priorityArg int) {
			child.Priority = clamp(priorityArg)
		},
		// On Expired, the process used its full quantum: penalize it.
		OnExpire: func(rec *core.Record) {
			rec.Priority = clamp(rec.Priority - 1)
		},
		// Any syscall other than Exit is rewarded with a priority bump,
		// including Fork (for the parent) per spec.md 4.3 and 4.6.
		OnSyscall: func(rec *core.Record, kind schedsim.SyscallKind) {
			rec.Priority = clamp(rec.Priority + 1)
		},
	}
}

// Next implements schedsim.Scheduler.
func (s *Scheduler) Next() schedsim.Decision {
	return s.base.Next(s.hooks())
}

// Stop implements schedsim.Scheduler.
func (s *Scheduler) Stop(reason schedsim.StopReason) schedsim.SyscallResult {
	return s.base.Stop(reason, s.hooks())
}

// List implements schedsim.Scheduler.
func (s *Scheduler) List() []schedsim.ProcessInfo {
	return s.base.List(func(rec *core.Record) map[string]any {
		return map[string]any{"priority": rec.Priority}
	})
}

var _ schedsim.Scheduler = (*Scheduler)(nil)
