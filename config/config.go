// Package config loads the construction parameters for a scheduler from a
// YAML document: which policy to build, and its one required parameter
// (timeslice for rr/rrp, base_time for cfs). This is the only construction
// knob spec.md §6 defines; there is nothing else to configure.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/procsim/schedsim"
	"github.com/procsim/schedsim/cfs"
	"github.com/procsim/schedsim/rr"
	"github.com/procsim/schedsim/rrp"
)

// Policy names accepted in the "policy" field.
const (
	PolicyRR  = "rr"
	PolicyRRP = "rrp"
	PolicyCFS = "cfs"
)

// Config is the parsed construction configuration for one scheduler.
type Config struct {
	Policy    string `yaml:"policy"`
	Timeslice int    `yaml:"timeslice,omitempty"`
	BaseTime  int    `yaml:"base_time,omitempty"`
}

// Load reads and parses a YAML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &cfg, nil
}

// Build constructs the Scheduler named by Config.Policy, using the default
// logger. Returns an error if the policy name is unrecognized or its
// parameter is invalid.
func (c *Config) Build() (schedsim.Scheduler, error) {
	switch c.Policy {
	case PolicyRR:
		return rr.New(c.Timeslice, nil)
	case PolicyRRP:
		return rrp.New(c.Timeslice, nil)
	case PolicyCFS:
		return cfs.New(c.BaseTime, nil)
	default:
		return nil, fmt.Errorf("config: unknown policy %q", c.Policy)
	}
}
