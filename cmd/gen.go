package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/10amc-2/disorder/internal/command"
	"github.com/10amc-2/disorder/internal/job"
	"github.com/10amc-2/disorder/internal/scheduler"
	"github.com/10amc-2/disorder/internal/utils"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
	"k8s.io/utils/clock"
)

var (
	genStructure string
	genTemplate  string
	genNRuns     int
	genRun       string
	genSuffix    string
	genSubmit    bool
	genResources ResourceFlags
)

var genCmd = &cobra.Command{
	Use:     "gen",
	Aliases: []string{"generate"},
	Short:   "Generate run directories and job scripts",
	Long: `Generate one or more simulation runs.

For every run a directory <structure>_run<N><suffix> is created next to the
inputs (an existing one is backed up to <dir>.<unix-time>.bak), the structure
and its companion files are copied in, the config template is rendered with
the run's seed and cell vectors, and a Grid Engine job script is written to the
jobs directory. One submission line per generated run is printed to stdout.

Resources come from a reservation (--reservation), from explicit flags, or
from the configured defaults, in that order.`,
	Example: `  disorder gen --pdb protein.pdb --fep fep.tcl --nruns 10 | sh
  disorder gen --pdb protein.pdb --fep fep.tcl --run auto --suffix _hot
  disorder gen --pdb protein.pdb --fep fep.tcl --run 3 -t 12:00:00 -c 8 --host node07
  disorder gen --pdb protein.pdb --fep fep.tcl --nruns 4 -r 1234 --submit`,
	Args: cobra.NoArgs,
	RunE: runGen,
}

func init() {
	rootCmd.AddCommand(genCmd)

	genCmd.Flags().StringVar(&genStructure, "pdb", "", "structure file (.pdb)")
	genCmd.Flags().StringVar(&genTemplate, "fep", "", "simulation config template (fep.tcl)")
	genCmd.Flags().IntVarP(&genNRuns, "nruns", "n", 0, "generate runs 1..N")
	genCmd.Flags().StringVar(&genRun, "run", "", "generate a single run: its index, or \"auto\" for the next free index")
	genCmd.Flags().StringVarP(&genSuffix, "suffix", "s", "", "suffix appended to run directory names")
	genCmd.Flags().BoolVar(&genSubmit, "submit", false, "submit the scripts with qsub instead of printing the commands")
	RegisterResourceFlags(genCmd, &genResources)

	genCmd.MarkFlagRequired("pdb")
	genCmd.MarkFlagRequired("fep")
	genCmd.MarkFlagsMutuallyExclusive("nruns", "run")
	genCmd.MarkFlagsOneRequired("nruns", "run")
	genCmd.MarkFlagFilename("pdb", "pdb")
	genCmd.MarkFlagFilename("fep", "tcl")
}

// parseRunSelector turns --nruns / --run into a base request and a run count.
func parseRunSelector(nruns int, run string) (job.RunRequest, int, error) {
	var req job.RunRequest
	if nruns != 0 {
		if nruns < 0 {
			return req, 0, fmt.Errorf("--nruns must be positive (got %d)", nruns)
		}
		return req, nruns, nil
	}
	if strings.EqualFold(run, "auto") {
		req.Auto = true
		return req, 0, nil
	}
	index, err := strconv.Atoi(run)
	if err != nil || index <= 0 {
		return req, 0, fmt.Errorf("--run must be a positive integer or \"auto\" (got %q)", run)
	}
	req.Index = index
	return req, 0, nil
}

func runGen(cmd *cobra.Command, args []string) error {
	base, nruns, err := parseRunSelector(genNRuns, genRun)
	if err != nil {
		return err
	}
	explicit, err := genResources.Explicit()
	if err != nil {
		return err
	}
	base.Structure = genStructure
	base.Template = genTemplate
	base.Explicit = explicit
	base.ReservationID = genResources.Reservation
	base.Suffix = genSuffix

	if genSubmit {
		if scheduler.IsInsideJob(os.LookupEnv) {
			utils.PrintWarning("Inside a Grid Engine job; job submission is disabled, printing commands instead")
		} else {
			cfg.Submit = true
		}
	}
	runner := command.Exec{Timeout: cfg.CommandTimeout}
	composer := job.NewComposer(cfg, runner, clock.RealClock{})

	reqs := job.Requests(base, nruns)
	results, err := composer.ComposeBatch(cmd.Context(), reqs)

	out := cmd.OutOrStdout()
	for _, res := range results {
		if res.JobID != "" {
			fmt.Fprintln(out, res.JobID)
			continue
		}
		fmt.Fprintln(out, res.SubmitCommand)
	}

	if err != nil {
		failed := len(reqs) - len(results)
		if merr, ok := err.(*multierror.Error); ok {
			failed = merr.Len()
		}
		return fmt.Errorf("%d of %d runs failed", failed, len(reqs))
	}
	utils.PrintSuccess("Generated %s run(s) in %s", utils.StyleNumber(len(results)), utils.StylePath(cfg.WorkDir))
	return nil
}
