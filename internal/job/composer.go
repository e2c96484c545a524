// Package job turns run requests into run directories, simulation configs and
// Grid Engine job scripts.
package job

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/10amc-2/disorder/internal/command"
	"github.com/10amc-2/disorder/internal/config"
	"github.com/10amc-2/disorder/internal/render"
	"github.com/10amc-2/disorder/internal/rundir"
	"github.com/10amc-2/disorder/internal/scheduler"
	"github.com/10amc-2/disorder/internal/seed"
	"github.com/10amc-2/disorder/internal/utils"
	"github.com/hashicorp/go-multierror"
	"github.com/kballard/go-shellquote"
	"k8s.io/utils/clock"
)

// MaxDelay bounds the random startup delay of a job, in seconds.
const MaxDelay = 60

// RunRequest describes one run to generate.
type RunRequest struct {
	Index         int  // Positive run index; ignored when Auto is set
	Auto          bool // Use the next free index for Structure and Suffix
	Structure     string
	Template      string
	Explicit      *scheduler.ExplicitResources
	ReservationID string
	Suffix        string
}

// Script describes a generated job script.
type Script struct {
	Path      string // In the jobs directory
	Name      string // Job name, the script file name without .sh
	LogPath   string // Symlink created by the job in the link directory
	OutputLog string // Simulation log inside the run directory
}

// Result is the outcome of one composed run.
type Result struct {
	Index         int
	Seed          int
	RunDir        string
	ConfigPath    string
	Resources     *scheduler.ReservedResources
	Tier          scheduler.QueueTier
	Queue         string
	Script        Script
	SubmitCommand string
	JobID         string // Set only when submitted
}

// Composer generates runs. It is not safe for concurrent use.
type Composer struct {
	cfg      config.Config
	runner   command.Runner
	clock    clock.PassiveClock
	dirs     *rundir.Manager
	resolver *scheduler.Resolver
	engine   *scheduler.GridEngine
	configs  *render.Renderer
	scripts  *render.Renderer
	delay    func() int
}

// NewComposer creates a Composer from an explicit configuration.
func NewComposer(cfg config.Config, runner command.Runner, clk clock.PassiveClock) *Composer {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Composer{
		cfg:    cfg,
		runner: runner,
		clock:  clk,
		dirs: rundir.NewManager(rundir.Options{
			Root:              cfg.WorkDir,
			CompanionExts:     cfg.CompanionExts,
			RequireCompanions: cfg.RequireCompanions,
		}, clk),
		resolver: scheduler.NewResolver(runner, clk, cfg.ResolverOptions()),
		engine:   scheduler.NewGridEngine(runner, cfg.QsubBin),
		configs:  render.NewConfigRenderer(),
		scripts:  render.NewScriptRenderer(),
		delay:    func() int { return rand.IntN(MaxDelay) + 1 },
	}
}

// Resolver returns the resource resolver used for every run.
func (c *Composer) Resolver() *scheduler.Resolver {
	return c.resolver
}

// Requests expands a run selection into requests: indexes 1..nruns when nruns is
// positive, otherwise the single request base.
func Requests(base RunRequest, nruns int) []RunRequest {
	if nruns <= 0 {
		return []RunRequest{base}
	}
	reqs := make([]RunRequest, 0, nruns)
	for i := 1; i <= nruns; i++ {
		req := base
		req.Index = i
		req.Auto = false
		reqs = append(reqs, req)
	}
	return reqs
}

// ComposeBatch composes every request in order. A failed run does not stop the
// others; the returned error aggregates every RunError.
func (c *Composer) ComposeBatch(ctx context.Context, reqs []RunRequest) ([]*Result, error) {
	var results []*Result
	var errs *multierror.Error
	for _, req := range reqs {
		if err := ctx.Err(); err != nil {
			errs = multierror.Append(errs, NewRunError(req.Index, StageDirectoryReady, err))
			break
		}
		res, err := c.Compose(ctx, req)
		if err != nil {
			utils.PrintError("%v", err)
			errs = multierror.Append(errs, err)
			continue
		}
		results = append(results, res)
	}
	return results, errs.ErrorOrNil()
}

// Compose generates one run: run directory, simulation config, resources and job
// script, and submits it when configured to.
func (c *Composer) Compose(ctx context.Context, req RunRequest) (*Result, error) {
	base := utils.TrimExt(filepath.Base(req.Structure))

	index := req.Index
	if req.Auto {
		next, err := c.dirs.NextIndex(base, req.Suffix)
		if err != nil {
			return nil, NewRunError(0, StageDirectoryReady, err)
		}
		index = next
	}
	if index <= 0 {
		return nil, NewRunError(index, StageDirectoryReady, fmt.Errorf("run index must be positive (got %d)", index))
	}
	fail := func(stage Stage, err error) (*Result, error) {
		return nil, NewRunError(index, stage, err)
	}

	// Nothing is written until the seed and the inputs are known to be usable.
	runSeed, err := seed.For(index)
	if err != nil {
		return fail(StageDirectoryReady, err)
	}
	if err := c.dirs.CheckInputs(req.Structure); err != nil {
		return fail(StageDirectoryReady, err)
	}

	dir, err := c.dirs.Prepare(base, index, req.Suffix)
	if err != nil {
		return fail(StageDirectoryReady, err)
	}
	if _, err := c.dirs.Populate(dir, req.Structure); err != nil {
		return fail(StageDirectoryReady, err)
	}
	utils.PrintDebug("Run %d: directory %s, seed %d", index, dir, runSeed)

	res := &Result{Index: index, Seed: runSeed, RunDir: dir}

	cellVectors, err := c.cellVectors(ctx, req.Structure)
	if err != nil {
		return fail(StageConfigRendered, err)
	}
	res.ConfigPath, err = c.renderConfig(req.Template, dir, runSeed, base, cellVectors)
	if err != nil {
		return fail(StageConfigRendered, err)
	}

	res.Resources, err = c.resolver.Resolve(ctx, req.Explicit, req.ReservationID)
	if err != nil {
		return fail(StageResourcesResolved, err)
	}
	res.Tier = res.Resources.Tier()
	res.Queue = c.cfg.Queues.For(res.Tier)

	res.Script, err = c.writeScript(res)
	if err != nil {
		return fail(StageScriptRendered, err)
	}
	if _, err := utils.CopyInto(res.Script.Path, dir); err != nil {
		return fail(StageScriptRendered, err)
	}
	if err := WriteManifest(filepath.Join(dir, ManifestName), c.manifest(req, res)); err != nil {
		return fail(StageScriptRendered, err)
	}

	res.SubmitCommand = c.engine.SubmitCommand(res.Script.Path)
	if c.cfg.Submit {
		res.JobID, err = c.engine.Submit(ctx, res.Script.Path)
		if err != nil {
			return fail(StageSubmitted, err)
		}
		utils.PrintSuccess("Submitted %s as job %s", utils.StyleName(res.Script.Name), utils.StyleNumber(res.JobID))
	}
	return res, nil
}

// cellVectors runs the sizing command on the structure file.
func (c *Composer) cellVectors(ctx context.Context, structure string) (string, error) {
	argv, err := command.Split(c.cfg.SizingCommand)
	if err != nil {
		return "", fmt.Errorf("sizing_command: %w", err)
	}
	out, err := c.runner.Run(ctx, argv[0], append(argv[1:], structure)...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (c *Composer) renderConfig(template, dir string, runSeed int, base, cellVectors string) (string, error) {
	text, err := c.configs.RenderFile(template, render.Substitutions{
		render.OutDir:      dir,
		render.RandomSeed:  strconv.Itoa(runSeed),
		render.PsfFile:     base,
		render.PdbFile:     base,
		render.CellVectors: cellVectors,
	})
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, c.cfg.ConfigName)
	if err := os.WriteFile(path, []byte(text), utils.PermFile); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// writeScript renders the job script into a uniquely named file in the jobs directory.
// A script that cannot be completed is removed again.
func (c *Composer) writeScript(res *Result) (script Script, err error) {
	for _, dir := range []string{c.cfg.JobsDir, c.cfg.LinkDir} {
		if err := utils.EnsureDir(dir); err != nil {
			return script, err
		}
	}

	prefix := fmt.Sprintf("%s_r%d-", c.cfg.JobPrefix, res.Index)
	if c.cfg.JobPrefix == "" {
		prefix = fmt.Sprintf("r%d-", res.Index)
	}
	f, err := os.CreateTemp(c.cfg.JobsDir, prefix+"*.sh")
	if err != nil {
		return script, fmt.Errorf("failed to create job script: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close job script %s: %w", f.Name(), cerr)
		}
		if err != nil {
			os.Remove(f.Name())
		}
	}()

	script.Path = f.Name()
	script.Name = strings.TrimSuffix(filepath.Base(script.Path), ".sh")
	script.LogPath = filepath.Join(c.cfg.LinkDir, script.Name+".log")
	script.OutputLog = filepath.Join(res.RunDir, c.cfg.StdoutName)

	text, err := c.renderScript(res, script)
	if err != nil {
		return script, err
	}
	if _, err := f.WriteString(text); err != nil {
		return script, fmt.Errorf("failed to write job script %s: %w", script.Path, err)
	}
	if err := f.Chmod(utils.PermExec); err != nil {
		return script, fmt.Errorf("failed to make %s executable: %w", script.Path, err)
	}
	utils.PrintDebug("Wrote job script %s", script.Path)
	return script, nil
}

func (c *Composer) renderScript(res *Result, script Script) (string, error) {
	r := res.Resources

	sim := []string{c.cfg.SimulationBin}
	if r.Cores > 1 {
		sim = append(sim, fmt.Sprintf("+p%d", r.Cores))
	}
	sim = append(sim, res.ConfigPath)

	subs := render.Substitutions{
		render.JobName:     script.Name,
		render.Memory:      r.MemPerThread,
		render.Cores:       r.PERequest(c.cfg.ParallelEnv),
		render.Host:        r.HostRequest(),
		render.Walltime:    scheduler.FormatWalltime(r.Walltime),
		render.Queue:       res.Queue,
		render.Reservation: r.ReservationID,
		render.Delay:       strconv.Itoa(c.delay()),
		render.Run:         shellquote.Join(sim...) + " &> " + shellquote.Join(script.OutputLog),
		render.Link:        shellquote.Join("ln", "-s", script.OutputLog, script.LogPath),
	}
	if c.cfg.ScriptTemplate != "" {
		return c.scripts.RenderFile(c.cfg.ScriptTemplate, subs)
	}
	return c.scripts.RenderString(render.ScriptSkeleton, subs)
}

func (c *Composer) manifest(req RunRequest, res *Result) *Manifest {
	r := res.Resources
	return &Manifest{
		Version:   c.cfg.Version,
		Generated: c.clock.Now().UTC(),
		Index:     res.Index,
		Seed:      res.Seed,
		Structure: req.Structure,
		Template:  req.Template,
		Config:    res.ConfigPath,
		Resources: ManifestResources{
			Mode:        string(r.Mode),
			Memory:      r.MemPerThread,
			Walltime:    scheduler.FormatWalltime(r.Walltime),
			Cores:       r.Cores,
			Hostname:    r.Hostname,
			NodeClass:   r.NodeClass,
			Reservation: r.ReservationID,
		},
		Tier:    string(res.Tier),
		Queue:   res.Queue,
		JobName: res.Script.Name,
		Script:  res.Script.Path,
		Log:     res.Script.LogPath,
		Output:  res.Script.OutputLog,
	}
}
