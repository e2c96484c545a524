package cmd

import (
	"fmt"
	"time"

	"github.com/10amc-2/disorder/internal/progress"
	"github.com/10amc-2/disorder/internal/utils"
	"github.com/spf13/cobra"
	"k8s.io/utils/clock"
)

var (
	etaFile     string
	etaSamples  int
	etaInterval time.Duration
	etaSteps    float64
)

var etaCmd = &cobra.Command{
	Use:   "eta",
	Short: "Estimate the completion time of a running simulation",
	Long: `Estimate how long a running simulation needs by sampling the step counter
of its log ("WRITING COORDINATES ... <step>" lines) at a fixed interval.`,
	Example: `  disorder eta -f protein_run1/namd.stdout
  disorder eta -f namd.stdout --samples 3 --interval 30s`,
	Args: cobra.NoArgs,
	RunE: runEta,
}

func init() {
	rootCmd.AddCommand(etaCmd)
	etaCmd.Flags().StringVarP(&etaFile, "file", "f", "", "simulation log (namd.stdout)")
	etaCmd.Flags().IntVar(&etaSamples, "samples", progress.DefaultSamples, "number of distinct samples")
	etaCmd.Flags().DurationVar(&etaInterval, "interval", progress.DefaultInterval, "time between reads")
	etaCmd.Flags().Float64Var(&etaSteps, "steps", progress.DefaultTargetSteps, "total steps of the simulation")
	etaCmd.MarkFlagRequired("file")
}

func runEta(cmd *cobra.Command, args []string) error {
	e := progress.NewEstimator(clock.RealClock{})
	e.Samples = etaSamples
	e.Interval = etaInterval
	e.TargetSteps = etaSteps

	utils.PrintMessage("Sampling %s every %s; this takes at least %s.",
		utils.StylePath(etaFile), etaInterval, time.Duration(etaSamples-1)*etaInterval)

	est, err := e.Estimate(cmd.Context(), etaFile)
	if err != nil {
		return err
	}
	days, std := est.ETADays()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Simulation speed: %.3f (+/- %.3f) steps/sec\n", est.Speed, est.SpeedStd)
	fmt.Fprintf(out, "Estimated time for %.0f steps: %.3f (+/- %.3f) days\n", est.TargetSteps, days, std)
	return nil
}
