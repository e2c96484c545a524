package config

import (
	"strconv"
	"strings"

	"github.com/10amc-2/disorder/internal/scheduler"
)

// Setting is one effective config value.
type Setting struct {
	Key   string
	Value string
}

// Settings returns the effective value of every key in Keys, in order.
func (c Config) Settings() []Setting {
	values := map[string]string{
		"work_dir":           c.WorkDir,
		"jobs_dir":           c.JobsDir,
		"link_dir":           c.LinkDir,
		"simulation_bin":     c.SimulationBin,
		"sizing_command":     c.SizingCommand,
		"qsub_bin":           c.QsubBin,
		"qrstat_bin":         c.QrstatBin,
		"command_timeout":    c.CommandTimeout.String(),
		"safety_margin":      c.SafetyMargin.String(),
		"node_class":         c.NodeClass,
		"parallel_env":       c.ParallelEnv,
		"default_memory":     c.DefaultMemory,
		"default_walltime":   scheduler.FormatWalltime(c.DefaultWalltime),
		"default_cores":      strconv.Itoa(c.DefaultCores),
		"queues.short":       c.Queues.For(scheduler.TierShort),
		"queues.medium":      c.Queues.For(scheduler.TierMedium),
		"queues.long":        c.Queues.For(scheduler.TierLong),
		"companion_exts":     strings.Join(c.CompanionExts, ","),
		"require_companions": strconv.FormatBool(c.RequireCompanions),
		"script_template":    c.ScriptTemplate,
		"job_prefix":         c.JobPrefix,
		"config_name":        c.ConfigName,
		"stdout_name":        c.StdoutName,
	}
	out := make([]Setting, 0, len(Keys))
	for _, key := range Keys {
		out = append(out, Setting{Key: key, Value: values[key]})
	}
	return out
}
