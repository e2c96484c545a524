package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/10amc-2/disorder/internal/scheduler"
	"github.com/10amc-2/disorder/internal/utils"
	"github.com/spf13/viper"
)

// ConfigFilename is the name of the config file
const ConfigFilename = "config"

// ConfigType is the type of config file (yaml, json, toml)
const ConfigType = "yaml"

// EnvPrefix prefixes environment variable overrides (DISORDER_JOBS_DIR, ...).
const EnvPrefix = "DISORDER"

// Keys lists every supported config key.
var Keys = []string{
	"work_dir",
	"jobs_dir",
	"link_dir",
	"simulation_bin",
	"sizing_command",
	"qsub_bin",
	"qrstat_bin",
	"command_timeout",
	"safety_margin",
	"node_class",
	"parallel_env",
	"default_memory",
	"default_walltime",
	"default_cores",
	"queues.short",
	"queues.medium",
	"queues.long",
	"companion_exts",
	"require_companions",
	"script_template",
	"job_prefix",
	"config_name",
	"stdout_name",
}

// InitViper initializes Viper with proper search paths and defaults.
//
// Priority (highest to lowest):
//  1. Command-line flags (handled by cobra)
//  2. Environment variables (DISORDER_*)
//  3. Explicit config file (--config), or the first config.yaml found in
//     SearchPaths
//  4. Defaults
func InitViper(v *viper.Viper, configFile string, defaults Config) error {
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(ConfigFilename)
		v.SetConfigType(ConfigType)
		for _, dir := range SearchPaths(defaults.HomeDir) {
			v.AddConfigPath(dir)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, defaults)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok && configFile == "" {
			return nil
		}
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

// SearchPaths returns the directories searched for config.yaml, highest priority first.
func SearchPaths(home string) []string {
	var paths []string
	if userConfigDir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(userConfigDir, "disorder"))
	}
	if home != "" {
		paths = append(paths, filepath.Join(home, ".disorder"))
	}
	return append(paths, "/etc/disorder", ".")
}

// setDefaults sets default values for all config keys
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("work_dir", d.WorkDir)
	v.SetDefault("jobs_dir", d.JobsDir)
	v.SetDefault("link_dir", d.LinkDir)
	v.SetDefault("simulation_bin", d.SimulationBin)
	v.SetDefault("sizing_command", d.SizingCommand)
	v.SetDefault("qsub_bin", d.QsubBin)
	v.SetDefault("qrstat_bin", d.QrstatBin)
	v.SetDefault("command_timeout", d.CommandTimeout.String())
	v.SetDefault("safety_margin", d.SafetyMargin.String())
	v.SetDefault("node_class", d.NodeClass)
	v.SetDefault("parallel_env", d.ParallelEnv)
	v.SetDefault("default_memory", d.DefaultMemory)
	v.SetDefault("default_walltime", scheduler.FormatWalltime(d.DefaultWalltime))
	v.SetDefault("default_cores", d.DefaultCores)
	v.SetDefault("queues.short", d.Queues.For(scheduler.TierShort))
	v.SetDefault("queues.medium", d.Queues.For(scheduler.TierMedium))
	v.SetDefault("queues.long", d.Queues.For(scheduler.TierLong))
	v.SetDefault("companion_exts", d.CompanionExts)
	v.SetDefault("require_companions", d.RequireCompanions)
	v.SetDefault("script_template", d.ScriptTemplate)
	v.SetDefault("job_prefix", d.JobPrefix)
	v.SetDefault("config_name", d.ConfigName)
	v.SetDefault("stdout_name", d.StdoutName)
}

// LoadFromViper builds a Config from defaults overridden by Viper values.
func LoadFromViper(v *viper.Viper, defaults Config) (Config, error) {
	c := defaults
	c.ConfigFile = v.ConfigFileUsed()

	c.WorkDir = expandHome(v.GetString("work_dir"), c.HomeDir)
	c.JobsDir = expandHome(v.GetString("jobs_dir"), c.HomeDir)
	c.LinkDir = expandHome(v.GetString("link_dir"), c.HomeDir)
	c.SimulationBin = expandHome(v.GetString("simulation_bin"), c.HomeDir)
	c.SizingCommand = v.GetString("sizing_command")
	c.QsubBin = v.GetString("qsub_bin")
	c.QrstatBin = v.GetString("qrstat_bin")
	c.CommandTimeout = v.GetDuration("command_timeout")
	c.SafetyMargin = v.GetDuration("safety_margin")
	c.NodeClass = v.GetString("node_class")
	c.ParallelEnv = v.GetString("parallel_env")
	c.DefaultMemory = v.GetString("default_memory")
	c.DefaultCores = v.GetInt("default_cores")
	c.CompanionExts = v.GetStringSlice("companion_exts")
	c.RequireCompanions = v.GetBool("require_companions")
	c.ScriptTemplate = expandHome(v.GetString("script_template"), c.HomeDir)
	c.JobPrefix = v.GetString("job_prefix")
	c.ConfigName = v.GetString("config_name")
	c.StdoutName = v.GetString("stdout_name")

	walltime, err := scheduler.ParseWalltime(v.GetString("default_walltime"))
	if err != nil {
		return c, fmt.Errorf("default_walltime: %w", err)
	}
	c.DefaultWalltime = walltime

	c.Queues = scheduler.QueueNames{
		scheduler.TierShort:  v.GetString("queues.short"),
		scheduler.TierMedium: v.GetString("queues.medium"),
		scheduler.TierLong:   v.GetString("queues.long"),
	}

	if c.SafetyMargin < 0 {
		return c, fmt.Errorf("safety_margin must not be negative (got %s)", c.SafetyMargin)
	}
	if _, err := utils.ParseMemoryToMB(c.DefaultMemory); err != nil {
		return c, fmt.Errorf("default_memory: %w", err)
	}
	if c.DefaultCores <= 0 {
		return c, fmt.Errorf("default_cores must be positive (got %d)", c.DefaultCores)
	}
	if c.ConfigName == "" || c.StdoutName == "" {
		return c, fmt.Errorf("config_name and stdout_name must not be empty")
	}
	return c, nil
}

// Load reads the config file and environment on top of Defaults(home, cwd).
func Load(configFile, home, cwd string) (Config, error) {
	defaults := Defaults(home, cwd)
	v := viper.New()
	if err := InitViper(v, configFile, defaults); err != nil {
		return defaults, err
	}
	return LoadFromViper(v, defaults)
}

// EnvVarName returns the environment variable that overrides key.
func EnvVarName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// EnvVarNames returns all override variables, sorted.
func EnvVarNames() []string {
	out := make([]string, 0, len(Keys))
	for _, key := range Keys {
		out = append(out, EnvVarName(key))
	}
	sort.Strings(out)
	return out
}

// expandHome replaces a leading "~/" with home.
func expandHome(path, home string) string {
	if home == "" {
		return path
	}
	if path == "~" {
		return home
	}
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		return filepath.Join(home, rest)
	}
	return path
}
