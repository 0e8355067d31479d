// Package rr implements the Round Robin scheduling policy: a single FIFO
// runqueue, constant timeslice, no per-process state beyond the common
// fields.
package rr

import (
	"github.com/sirupsen/logrus"

	"github.com/procsim/schedsim"
	"github.com/procsim/schedsim/internal/core"
)

// Scheduler is a Round Robin scheduler. The zero value is not usable; use
// New.
type Scheduler struct {
	base      *core.Base
	queue     []schedsim.Pid
	timeslice int
}

// New constructs a Round Robin scheduler with the given timeslice. log may
// be nil to use the default logger.
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
			s.queue = append(s.queue, rec.Pid)
		},
		Dequeue: func() (schedsim.Pid, bool) {
			if len(s.queue) == 0 {
				return 0, false
			}
			pid := s.queue[0]
			s.queue = s.queue[1:]
			if len(s.queue) == 0 {
				s.queue = nil
			}
			return pid, true
		},
		ReadyCount: func() int { return len(s.queue) },
		Timeslice:  func(int) int { return s.timeslice },
		InitChild:  func(child, parent *core.Record, priorityArg int) {},
		OnExpire:   func(rec *core.Record) {},
		OnSyscall:  func(rec *core.Record, kind schedsim.SyscallKind) {},
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
	return s.base.List(nil)
}

var _ schedsim.Scheduler = (*Scheduler)(nil)
