// Package cfs implements a Completely Fair Scheduler: a btree ordered by
// (vruntime, pid) stands in for the real CFS red-black tree, giving
// O(log N) insert/delete and an O(log N) minimum lookup for "the ready
// process with the smallest vruntime, ties broken by smallest pid."
package cfs

import (
	"github.com/google/btree"
	"github.com/sirupsen/logrus"

	"github.com/procsim/schedsim"
	"github.com/procsim/schedsim/internal/core"
)

// entry is the btree's ordering key: vruntime primary, pid as tiebreaker.
type entry struct {
	vruntime uint64
	pid      schedsim.Pid
}

func less(a, b entry) bool {
	if a.vruntime != b.vruntime {
		return a.vruntime < b.vruntime
	}
	return a.pid < b.pid
}

// Scheduler is a CFS scheduler. The zero value is not usable; use New.
type Scheduler struct {
	base     *core.Base
	tree     *btree.BTreeG[entry]
	baseTime int
}

// New constructs a CFS scheduler with the given base_time (typical value
// 20). log may be nil to use the default logger.
func New(baseTime int, log *logrus.Entry) (*Scheduler, error) {
	if baseTime <= 0 {
		return nil, schedsim.ErrInvalidBaseTime
	}
	return &Scheduler{
		base:     core.NewBase(log),
		tree:     btree.NewG(32, less),
		baseTime: baseTime,
	}, nil
}

func (s *Scheduler) hooks() core.Hooks {
	return core.Hooks{
		Enqueue: func(rec *core.Record) {
			s.tree.ReplaceOrInsert(entry{vruntime: rec.VRuntime, pid: rec.Pid})
		},
		Dequeue: func() (schedsim.Pid, bool) {
			e, ok := s.tree.DeleteMin()
			if !ok {
				return 0, false
			}
			return e.pid, true
		},
		ReadyCount: func() int { return s.tree.Len() },
		Timeslice: func(readyCount int) int {
			if readyCount <= 0 {
				readyCount = 1
			}
			slice := s.baseTime / readyCount
			if slice < 1 {
				slice = 1
			}
			return slice
		},
		InitChild: func(child, parent *core.Record, priorityArg int) {
			if parent != nil {
				child.VRuntime = parent.VRuntime
			}
		},
		OnExpire:  func(rec *core.Record) {},
		OnSyscall: func(rec *core.Record, kind schedsim.SyscallKind) {},
		OnExecuted: func(rec *core.Record, executed int64) {
			rec.VRuntime += uint64(executed)
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
		return map[string]any{"vruntime": rec.VRuntime}
	})
}

var _ schedsim.Scheduler = (*Scheduler)(nil)
