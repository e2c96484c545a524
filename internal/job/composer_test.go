package job

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/10amc-2/disorder/internal/command"
	"github.com/10amc-2/disorder/internal/config"
	"github.com/10amc-2/disorder/internal/rundir"
	"github.com/10amc-2/disorder/internal/scheduler"
	"github.com/10amc-2/disorder/internal/seed"
	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"
)

var testNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

const fepTemplate = `# free energy perturbation
set outdir ./output;
set randomseed 1234;
set psffile template.psf;
set pdbfile template.pdb;
###CELLVECTORS
set temperature 300;
run 500000
`

type fakeRunner struct {
	out   map[string]string
	err   map[string]error
	calls [][]string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) (string, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	if err := f.err[name]; err != nil {
		return "", err
	}
	return f.out[name], nil
}

func (f *fakeRunner) count(name string) int {
	n := 0
	for _, call := range f.calls {
		if call[0] == name {
			n++
		}
	}
	return n
}

type fixture struct {
	cfg       config.Config
	runner    *fakeRunner
	composer  *Composer
	structure string
	template  string
}

func newFixture(t *testing.T, mutate func(*config.Config)) *fixture {
	t.Helper()
	root := t.TempDir()
	work := filepath.Join(root, "work")
	require.NoError(t, os.MkdirAll(work, 0o755))

	structure := filepath.Join(work, "protein.pdb")
	require.NoError(t, os.WriteFile(structure, []byte("ATOM\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(work, "protein.psf"), []byte("PSF\n"), 0o644))
	template := filepath.Join(work, "fep.tcl")
	require.NoError(t, os.WriteFile(template, []byte(fepTemplate), 0o644))

	cfg := config.Defaults(filepath.Join(root, "home"), work)
	cfg.SimulationBin = "/opt/namd/namd2"
	if mutate != nil {
		mutate(&cfg)
	}

	runner := &fakeRunner{
		out: map[string]string{"sh": "cellBasisVector1 48.0 0 0\n"},
		err: map[string]error{},
	}
	c := NewComposer(cfg, runner, clocktesting.NewFakePassiveClock(testNow))
	c.delay = func() int { return 17 }

	return &fixture{cfg: cfg, runner: runner, composer: c, structure: structure, template: template}
}

func (f *fixture) request() RunRequest {
	return RunRequest{Structure: f.structure, Template: f.template}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestComposeBatchThreeRuns(t *testing.T) {
	f := newFixture(t, nil)

	results, err := f.composer.ComposeBatch(context.Background(), Requests(f.request(), 3))
	require.NoError(t, err)
	require.Len(t, results, 3)

	dirs := map[string]bool{}
	seeds := map[int]bool{}
	logs := map[string]bool{}
	commands := map[string]bool{}
	for i, res := range results {
		require.Equal(t, i+1, res.Index)
		want, err := seed.For(res.Index)
		require.NoError(t, err)
		require.Equal(t, want, res.Seed)

		dirs[res.RunDir] = true
		seeds[res.Seed] = true
		logs[res.Script.LogPath] = true
		commands[res.SubmitCommand] = true

		require.Equal(t, filepath.Join(f.cfg.WorkDir, rundir.Name("protein", res.Index, "")), res.RunDir)
		require.FileExists(t, filepath.Join(res.RunDir, "protein.pdb"))
		require.FileExists(t, filepath.Join(res.RunDir, "protein.psf"))
		require.FileExists(t, filepath.Join(res.RunDir, filepath.Base(res.Script.Path)))
		require.Equal(t, "qsub "+res.Script.Path, res.SubmitCommand)
		require.Equal(t, f.cfg.JobsDir, filepath.Dir(res.Script.Path))
		require.True(t, strings.HasPrefix(res.Script.Name, fmt.Sprintf("dis_r%d-", res.Index)))
		require.Equal(t, filepath.Join(res.RunDir, "namd.stdout"), res.Script.OutputLog)

		info, err := os.Stat(res.Script.Path)
		require.NoError(t, err)
		require.NotZero(t, info.Mode()&0o100, "job script must be executable")

		require.Contains(t, readFile(t, res.Script.Path), res.Script.LogPath)
	}
	require.Len(t, dirs, 3)
	require.Len(t, seeds, 3)
	require.Len(t, logs, 3)
	require.Len(t, commands, 3)
	require.Equal(t, 3, f.runner.count("sh"))
	require.Zero(t, f.runner.count("qsub"))
}

func TestComposeRendersConfig(t *testing.T) {
	f := newFixture(t, nil)
	req := f.request()
	req.Index = 2

	res, err := f.composer.Compose(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(res.RunDir, "fep.tcl"), res.ConfigPath)

	want := strings.Join([]string{
		"# free energy perturbation",
		"set outdir " + res.RunDir + ";",
		fmt.Sprintf("set randomseed %d;", res.Seed),
		"set psffile protein.psf;",
		"set pdbfile protein.pdb;",
		"cellBasisVector1 48.0 0 0",
		"set temperature 300;",
		"run 500000",
		"",
	}, "\n")
	require.Equal(t, want, readFile(t, res.ConfigPath))
	require.Equal(t, []string{"sh", "getsize.sh", f.structure}, f.runner.calls[0])
}

func TestComposeLegacyScript(t *testing.T) {
	f := newFixture(t, nil)
	req := f.request()
	req.Index = 1

	res, err := f.composer.Compose(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, scheduler.ModeLegacy, res.Resources.Mode)
	require.Equal(t, scheduler.TierLong, res.Tier)

	script := readFile(t, res.Script.Path)
	for _, line := range []string{
		"#$ -N " + res.Script.Name,
		"#$ -j y",
		"#$ -cwd",
		"#$ -V",
		"#$ -l vf=2.0G",
		"#$ -l ironfs",
		"#$ -l h_rt=72:00:00",
		"#$ -q long.q",
		"sleep 17",
		"/opt/namd/namd2 " + res.ConfigPath + " &> " + res.Script.OutputLog,
		"ln -s " + res.Script.OutputLog + " " + res.Script.LogPath,
		"exit 0",
	} {
		require.Contains(t, script, line+"\n")
	}
	require.NotContains(t, script, "#@")
	require.NotContains(t, script, "-pe ")
	require.NotContains(t, script, "-ar ")
}

func TestComposeExplicitResources(t *testing.T) {
	f := newFixture(t, nil)
	req := f.request()
	req.Index = 3
	req.Explicit = &scheduler.ExplicitResources{Walltime: 2 * time.Hour, Cores: 4, Hostname: "node3"}

	res, err := f.composer.Compose(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, scheduler.TierShort, res.Tier)

	script := readFile(t, res.Script.Path)
	require.Contains(t, script, "#$ -pe smp 4\n")
	require.Contains(t, script, "#$ -l hostname=node3\n")
	require.Contains(t, script, "#$ -l h_rt=02:00:00\n")
	require.Contains(t, script, "#$ -q short.q\n")
	require.Contains(t, script, "/opt/namd/namd2 +p4 ")
	require.NotContains(t, script, "#$ -l ironfs")
}

func TestComposeReservation(t *testing.T) {
	f := newFixture(t, nil)
	end := testNow.Add(time.Hour).In(time.Local)
	f.runner.out["qrstat"] = fmt.Sprintf(`id                             42
end_time                       %s
resource_list                  hostname=node07,virtual_free=4G,h_rt=24:00:00
granted_parallel_environment   smp slots 8
`, end.Format("01/02/2006 15:04:05"))

	req := f.request()
	req.Index = 1
	req.ReservationID = "42"

	res, err := f.composer.Compose(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, 50*time.Minute, res.Resources.Walltime)

	script := readFile(t, res.Script.Path)
	require.Contains(t, script, "#$ -ar 42\n")
	require.Contains(t, script, "#$ -l h_rt=00:50:00\n")
	require.Contains(t, script, "#$ -l vf=4G\n")
	require.Contains(t, script, "#$ -pe smp 8\n")
	require.Contains(t, script, "#$ -l hostname=node07\n")
	require.Equal(t, []string{"qrstat", "-ar", "42"}, f.runner.calls[1])
}

func TestComposeReservationExhausted(t *testing.T) {
	f := newFixture(t, nil)
	end := testNow.Add(5 * time.Minute).In(time.Local)
	f.runner.out["qrstat"] = fmt.Sprintf(`id                             42
end_time                       %s
resource_list                  hostname=node07,virtual_free=4G,h_rt=24:00:00
granted_parallel_environment   smp slots 8
`, end.Format("01/02/2006 15:04:05"))

	req := f.request()
	req.Index = 1
	req.ReservationID = "42"

	_, err := f.composer.Compose(context.Background(), req)
	require.Error(t, err)
	require.True(t, scheduler.IsResourceExhausted(err))

	var re *RunError
	require.ErrorAs(t, err, &re)
	require.Equal(t, StageResourcesResolved, re.Stage)
	require.Equal(t, 1, re.Index)

	entries, err := os.ReadDir(f.cfg.JobsDir)
	if err == nil {
		require.Empty(t, entries, "no job script is written for a failed run")
	}
}

func TestComposeSeedOutOfRange(t *testing.T) {
	f := newFixture(t, nil)
	req := f.request()
	req.Index = seed.PoolSize

	_, err := f.composer.Compose(context.Background(), req)
	var oor *seed.OutOfRangeError
	require.ErrorAs(t, err, &oor)
	require.Contains(t, err.Error(), fmt.Sprintf("run %d", seed.PoolSize))
	require.NoDirExists(t, filepath.Join(f.cfg.WorkDir, rundir.Name("protein", seed.PoolSize, "")))
}

func TestComposeMissingCompanion(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, os.Remove(filepath.Join(f.cfg.WorkDir, "protein.psf")))
	req := f.request()
	req.Index = 1

	_, err := f.composer.Compose(context.Background(), req)
	require.True(t, rundir.IsMissingCompanion(err))
	require.NoDirExists(t, filepath.Join(f.cfg.WorkDir, "protein_run1"))
}

func TestComposeSizingFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.runner.err["sh"] = &command.ExternalCommandError{Cmd: "sh getsize.sh", Err: errors.New("exit status 1")}
	req := f.request()
	req.Index = 1

	_, err := f.composer.Compose(context.Background(), req)
	require.True(t, command.IsExternalCommandError(err))
	var re *RunError
	require.ErrorAs(t, err, &re)
	require.Equal(t, StageConfigRendered, re.Stage)
	// Inputs already copied stay behind for inspection.
	require.FileExists(t, filepath.Join(f.cfg.WorkDir, "protein_run1", "protein.pdb"))
}

func TestComposeMissingTemplate(t *testing.T) {
	f := newFixture(t, nil)
	req := f.request()
	req.Index = 1
	req.Template = filepath.Join(f.cfg.WorkDir, "missing.tcl")

	_, err := f.composer.Compose(context.Background(), req)
	require.Error(t, err)
	var re *RunError
	require.ErrorAs(t, err, &re)
	require.Equal(t, StageConfigRendered, re.Stage)
}

func TestComposeBatchPartialFailure(t *testing.T) {
	f := newFixture(t, nil)
	reqs := []RunRequest{f.request(), f.request()}
	reqs[0].Index = seed.PoolSize - 1
	reqs[1].Index = seed.PoolSize

	results, err := f.composer.ComposeBatch(context.Background(), reqs)
	require.Len(t, results, 1)
	require.Equal(t, seed.PoolSize-1, results[0].Index)

	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	require.Len(t, merr.Errors, 1)
	require.True(t, IsRunError(merr.Errors[0]))
}

func TestComposeAutoIndexAndBackup(t *testing.T) {
	f := newFixture(t, nil)
	for _, name := range []string{"protein_run1", "protein_run2", "protein_run2.1700000000.bak"} {
		require.NoError(t, os.MkdirAll(filepath.Join(f.cfg.WorkDir, name), 0o755))
	}

	req := f.request()
	req.Auto = true
	res, err := f.composer.Compose(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, 3, res.Index)

	marker := filepath.Join(f.cfg.WorkDir, "protein_run1", "old.txt")
	require.NoError(t, os.WriteFile(marker, []byte("old"), 0o644))
	req = f.request()
	req.Index = 1
	_, err = f.composer.Compose(context.Background(), req)
	require.NoError(t, err)

	backup := filepath.Join(f.cfg.WorkDir, fmt.Sprintf("protein_run1.%d.bak", testNow.Unix()))
	require.FileExists(t, filepath.Join(backup, "old.txt"))
	require.NoFileExists(t, marker)
}

func TestComposeSubmit(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.Submit = true })
	f.runner.out["qsub"] = `Your job 4711 ("dis_r1-123") has been submitted`
	req := f.request()
	req.Index = 1

	res, err := f.composer.Compose(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, "4711", res.JobID)
	require.Equal(t, 1, f.runner.count("qsub"))
}

func TestComposeSubmitFailure(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.Submit = true })
	f.runner.out["qsub"] = "Unable to run job: denied"
	req := f.request()
	req.Index = 1

	_, err := f.composer.Compose(context.Background(), req)
	require.True(t, scheduler.IsSubmissionError(err))
	var re *RunError
	require.ErrorAs(t, err, &re)
	require.Equal(t, StageSubmitted, re.Stage)
}

func TestComposeWritesManifest(t *testing.T) {
	f := newFixture(t, nil)
	req := f.request()
	req.Index = 4

	res, err := f.composer.Compose(context.Background(), req)
	require.NoError(t, err)

	m, err := ReadManifest(filepath.Join(res.RunDir, ManifestName))
	require.NoError(t, err)
	require.Equal(t, 4, m.Index)
	require.Equal(t, res.Seed, m.Seed)
	require.Equal(t, "legacy", m.Resources.Mode)
	require.Equal(t, "72:00:00", m.Resources.Walltime)
	require.Equal(t, "long", m.Tier)
	require.Equal(t, res.Script.Name, m.JobName)
	require.True(t, testNow.Equal(m.Generated))
}

func TestComposeCustomScriptTemplate(t *testing.T) {
	var tmpl string
	f := newFixture(t, func(c *config.Config) {
		tmpl = filepath.Join(c.WorkDir, "job.sh")
		c.ScriptTemplate = tmpl
		c.JobPrefix = ""
	})
	require.NoError(t, os.WriteFile(tmpl, []byte("#!/bin/sh\n#@NAME\n#@WALLTIME\n#@RUN\n"), 0o644))
	req := f.request()
	req.Index = 1

	res, err := f.composer.Compose(context.Background(), req)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(res.Script.Name, "r1-"))
	require.Equal(t, fmt.Sprintf("#!/bin/sh\n#$ -N %s\n#$ -l h_rt=72:00:00\n/opt/namd/namd2 %s &> %s\n",
		res.Script.Name, res.ConfigPath, res.Script.OutputLog), readFile(t, res.Script.Path))
}

func TestRequests(t *testing.T) {
	base := RunRequest{Structure: "a.pdb", Auto: true}
	reqs := Requests(base, 3)
	require.Len(t, reqs, 3)
	for i, req := range reqs {
		require.Equal(t, i+1, req.Index)
		require.False(t, req.Auto)
		require.Equal(t, "a.pdb", req.Structure)
	}
	require.Equal(t, []RunRequest{base}, Requests(base, 0))
}

func TestComposeScriptFailureLeavesNoScript(t *testing.T) {
	f := newFixture(t, func(c *config.Config) {
		c.ScriptTemplate = filepath.Join(c.WorkDir, "missing-skeleton.sh")
	})
	req := f.request()
	req.Index = 1

	_, err := f.composer.Compose(context.Background(), req)
	var re *RunError
	require.ErrorAs(t, err, &re)
	require.Equal(t, StageScriptRendered, re.Stage)

	entries, err := os.ReadDir(f.cfg.JobsDir)
	require.NoError(t, err)
	require.Empty(t, entries, "an incomplete job script must not be left in the jobs directory")
}

func TestDefaultDelayInRange(t *testing.T) {
	c := NewComposer(config.Defaults(t.TempDir(), t.TempDir()), &fakeRunner{}, nil)
	seen := map[int]bool{}
	for i := 0; i < 1000; i++ {
		d := c.delay()
		require.GreaterOrEqual(t, d, 1)
		require.LessOrEqual(t, d, MaxDelay)
		seen[d] = true
	}
	require.Greater(t, len(seen), 1, "delay should vary between jobs")
}
