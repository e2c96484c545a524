// Package config holds the settings the job generator runs with.
//
// The command layer resolves the home and working directories once and builds a
// Config; every other package receives the values it needs explicitly.
package config

import (
	"path/filepath"
	"time"

	"github.com/10amc-2/disorder/internal/scheduler"
)

const VERSION = "0.3.0"

// Config holds application settings
type Config struct {
	Debug  bool
	Quiet  bool
	Submit bool // Run qsub directly instead of printing the command

	Version    string
	ConfigFile string // Config file in use; empty when none was found
	HomeDir    string
	WorkDir    string // Parent of the run directories

	JobsDir string // Where job scripts are written
	LinkDir string // Where job log symlinks are created for the job monitor

	SimulationBin string // NAMD executable
	SizingCommand string // Prints the cell vectors of a structure file
	QsubBin       string
	QrstatBin     string

	CommandTimeout time.Duration
	SafetyMargin   time.Duration

	NodeClass       string
	ParallelEnv     string
	DefaultMemory   string
	DefaultWalltime time.Duration
	DefaultCores    int
	Queues          scheduler.QueueNames

	CompanionExts     []string
	RequireCompanions bool

	ScriptTemplate string // Job-script skeleton; empty means the built-in one
	JobPrefix      string // Job name prefix; empty names jobs r<N>-<random>
	ConfigName     string // Rendered simulation config file name
	StdoutName     string // Simulation log file name inside the run directory
}

// Defaults returns the configuration of the original cluster setup.
func Defaults(home, cwd string) Config {
	jobsDir := filepath.Join(home, "jobs")
	return Config{
		Version: VERSION,
		HomeDir: home,
		WorkDir: cwd,

		JobsDir: jobsDir,
		LinkDir: jobsDir,

		SimulationBin: "/home/anthill/cs86/students/bin/namd2-linux",
		SizingCommand: "sh getsize.sh",
		QsubBin:       "qsub",
		QrstatBin:     "qrstat",

		CommandTimeout: 60 * time.Second,
		SafetyMargin:   scheduler.DefaultSafetyMargin,

		NodeClass:       "ironfs",
		ParallelEnv:     "smp",
		DefaultMemory:   "2.0G",
		DefaultWalltime: 72 * time.Hour,
		DefaultCores:    1,
		Queues:          scheduler.DefaultQueueNames(),

		CompanionExts:     []string{".psf"},
		RequireCompanions: true,

		JobPrefix:  "dis",
		ConfigName: "fep.tcl",
		StdoutName: "namd.stdout",
	}
}

// ResolverOptions returns the resource resolver settings.
func (c Config) ResolverOptions() scheduler.ResolverOptions {
	return scheduler.ResolverOptions{
		QrstatBin:       c.QrstatBin,
		SafetyMargin:    c.SafetyMargin,
		DefaultMemory:   c.DefaultMemory,
		DefaultWalltime: c.DefaultWalltime,
		DefaultCores:    c.DefaultCores,
		NodeClass:       c.NodeClass,
	}
}
