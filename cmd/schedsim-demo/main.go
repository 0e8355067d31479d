// Command schedsim-demo is a small illustrative driver: it bootstraps a
// scheduler, runs a handful of scripted syscalls, and prints the decisions
// it gets back. It is not a reimplementation of "the" simulator driver
// (spec.md scopes that out) — just enough to watch a policy make decisions.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/procsim/schedsim"
	"github.com/procsim/schedsim/cfs"
	"github.com/procsim/schedsim/config"
	"github.com/procsim/schedsim/rr"
	"github.com/procsim/schedsim/rrp"
)

func main() {
	policy := flag.String("policy", "rr", "scheduler policy: rr, rrp, or cfs")
	param := flag.Int("param", 3, "timeslice (rr/rrp) or base_time (cfs)")
	configPath := flag.String("config", "", "path to a YAML config file (overrides -policy/-param)")
	flag.Parse()

	log := logrus.NewEntry(logrus.StandardLogger())

	sched, err := buildScheduler(*policy, *param, *configPath, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "schedsim-demo: %v\n", err)
		os.Exit(1)
	}

	// Bootstrap pid 1; pid 1 then forks one child so there is something
	// to round-robin/prioritize/vruntime-balance between.
	result := sched.Stop(schedsim.StopReason{
		Pid:     0,
		Expired: false,
		Syscall: schedsim.Syscall{Kind: schedsim.Fork},
	})
	fmt.Printf("bootstrap -> %+v\n", result)

	for step := 0; step < 12; step++ {
		decision := sched.Next()
		fmt.Printf("next() -> %s\n", describe(decision))

		switch decision.Kind {
		case schedsim.Done, schedsim.Deadlock, schedsim.Panic:
			printList(sched)
			return
		case schedsim.Sleep:
			continue
		case schedsim.Run:
			// Scripted behavior: fork once for pid 1, then just expire.
			if decision.Pid == 1 && step == 0 {
				sched.Stop(schedsim.StopReason{
					Pid: decision.Pid,
					Syscall: schedsim.Syscall{
						Kind:     schedsim.Fork,
						Priority: 3,
					},
					Remaining: decision.Timeslice - 1,
				})
				continue
			}
			sched.Stop(schedsim.StopReason{Pid: decision.Pid, Expired: true})
		}
	}

	printList(sched)
}

func buildScheduler(policy string, param int, configPath string, log *logrus.Entry) (schedsim.Scheduler, error) {
	if configPath != "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		return cfg.Build()
	}

	switch policy {
	case "rr":
		return rr.New(param, log)
	case "rrp":
		return rrp.New(param, log)
	case "cfs":
		return cfs.New(param, log)
	default:
		return nil, fmt.Errorf("unknown policy %q", policy)
	}
}

func describe(d schedsim.Decision) string {
	switch d.Kind {
	case schedsim.Run:
		return fmt.Sprintf("Run{pid=%d, timeslice=%d}", d.Pid, d.Timeslice)
	case schedsim.Sleep:
		return fmt.Sprintf("Sleep{%d}", d.Ticks)
	default:
		return d.Kind.String()
	}
}

func printList(sched schedsim.Scheduler) {
	fmt.Println("final process table:")
	for _, info := range sched.List() {
		fmt.Printf("  pid=%d state=%s timings=%+v extra=%v\n", info.Pid, info.State, info.Timings, info.Extra)
	}
}
