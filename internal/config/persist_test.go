package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/10amc-2/disorder/internal/scheduler"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, "xdg"))

	c, err := Load("", home, "/work")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, "jobs"), c.JobsDir)
	require.Equal(t, c.JobsDir, c.LinkDir)
	require.Equal(t, "/work", c.WorkDir)
	require.Equal(t, 72*time.Hour, c.DefaultWalltime)
	require.Equal(t, 10*time.Minute, c.SafetyMargin)
	require.Equal(t, "ironfs", c.NodeClass)
	require.Equal(t, "medium.q", c.Queues.For(scheduler.TierMedium))
}

func TestLoadFileAndEnv(t *testing.T) {
	home := t.TempDir()
	file := filepath.Join(home, "cfg.yaml")
	content := `jobs_dir: ~/batch
default_walltime: "12:00:00"
default_cores: 4
command_timeout: 5s
queues:
  long: ""
companion_exts: [".psf", ".xsc"]
`
	require.NoError(t, os.WriteFile(file, []byte(content), 0o644))
	t.Setenv("DISORDER_NODE_CLASS", "bigmem")

	c, err := Load(file, home, home)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, "batch"), c.JobsDir)
	require.Equal(t, 12*time.Hour, c.DefaultWalltime)
	require.Equal(t, 4, c.DefaultCores)
	require.Equal(t, file, c.ConfigFile)
	require.Equal(t, 5*time.Second, c.CommandTimeout)
	require.Equal(t, "bigmem", c.NodeClass)
	require.Equal(t, "", c.Queues.For(scheduler.TierLong))
	require.Equal(t, "short.q", c.Queues.For(scheduler.TierShort))
	require.Equal(t, []string{".psf", ".xsc"}, c.CompanionExts)

	opts := c.ResolverOptions()
	require.Equal(t, 4, opts.DefaultCores)
	require.Equal(t, "bigmem", opts.NodeClass)
}

func TestLoadRejectsBadValues(t *testing.T) {
	home := t.TempDir()
	for name, content := range map[string]string{
		"walltime": "default_walltime: 3h\n",
		"cores":    "default_cores: 0\n",
		"margin":   "safety_margin: -1m\n",
		"memory":   "default_memory: plenty\n",
	} {
		t.Run(name, func(t *testing.T) {
			file := filepath.Join(home, name+".yaml")
			require.NoError(t, os.WriteFile(file, []byte(content), 0o644))
			_, err := Load(file, home, home)
			require.Error(t, err)
		})
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	home := t.TempDir()
	_, err := Load(filepath.Join(home, "nope.yaml"), home, home)
	require.Error(t, err)
}

func TestEnvVarName(t *testing.T) {
	require.Equal(t, "DISORDER_QUEUES_SHORT", EnvVarName("queues.short"))
	require.Equal(t, "DISORDER_JOBS_DIR", EnvVarName("jobs_dir"))
	require.Len(t, EnvVarNames(), len(Keys))
}

func TestExpandHome(t *testing.T) {
	require.Equal(t, "/h/x", expandHome("~/x", "/h"))
	require.Equal(t, "/h", expandHome("~", "/h"))
	require.Equal(t, "/abs", expandHome("/abs", "/h"))
	require.Equal(t, "~/x", expandHome("~/x", ""))
}

func TestSettingsCoverKeys(t *testing.T) {
	c := Defaults("/home/u", "/work")
	settings := c.Settings()
	require.Len(t, settings, len(Keys))
	got := map[string]string{}
	for i, s := range settings {
		require.Equal(t, Keys[i], s.Key)
		got[s.Key] = s.Value
	}
	require.Equal(t, "/home/u/jobs", got["jobs_dir"])
	require.Equal(t, "72:00:00", got["default_walltime"])
	require.Equal(t, "10m0s", got["safety_margin"])
	require.Equal(t, "long.q", got["queues.long"])
	require.Equal(t, ".psf", got["companion_exts"])
}

func TestSearchPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	paths := SearchPaths("/home/u")
	require.Equal(t, []string{"/xdg/disorder", "/home/u/.disorder", "/etc/disorder", "."}, paths)
}
