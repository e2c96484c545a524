package cmd

import (
	"fmt"

	"github.com/10amc-2/disorder/internal/scheduler"
	"github.com/10amc-2/disorder/internal/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// ResourceFlags holds the resource flags shared by gen and resources
type ResourceFlags struct {
	Walltime    string
	Cores       int
	Memory      string
	Host        string
	Reservation string
}

// RegisterResourceFlags registers resource flags on a cobra command
func RegisterResourceFlags(cmd *cobra.Command, flags *ResourceFlags) {
	addResourceFlags(cmd.Flags(), flags)
	cmd.RegisterFlagCompletionFunc("walltime", walltimeCompletion)
}

func addResourceFlags(fs *pflag.FlagSet, flags *ResourceFlags) {
	fs.StringVarP(&flags.Walltime, "walltime", "t", "", "wall time limit HH:MM:SS (caps a reservation's remaining time)")
	fs.IntVarP(&flags.Cores, "cores", "c", 0, "number of cores")
	fs.StringVarP(&flags.Memory, "mem", "m", "", "memory per thread, Grid Engine syntax (e.g. 2.0G)")
	fs.StringVar(&flags.Host, "host", "", "execution host (default: any node of the configured node class)")
	fs.StringVarP(&flags.Reservation, "reservation", "r", "", "advance reservation id to run in")
}

// Explicit converts the flags to explicit resources; nil when none are set.
func (f *ResourceFlags) Explicit() (*scheduler.ExplicitResources, error) {
	e := &scheduler.ExplicitResources{
		Cores:        f.Cores,
		MemPerThread: f.Memory,
		Hostname:     f.Host,
	}
	if f.Cores < 0 {
		return nil, fmt.Errorf("--cores must not be negative (got %d)", f.Cores)
	}
	if f.Memory != "" {
		if _, err := utils.ParseMemoryToMB(f.Memory); err != nil {
			return nil, fmt.Errorf("--mem: %w", err)
		}
	}
	if f.Walltime != "" {
		d, err := scheduler.ParseWalltime(f.Walltime)
		if err != nil {
			return nil, fmt.Errorf("--walltime: %w", err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("--walltime must be positive (got %s)", f.Walltime)
		}
		e.Walltime = d
	}
	if e.IsZero() {
		return nil, nil
	}
	return e, nil
}

func walltimeCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return []string{
		scheduler.FormatWalltime(scheduler.ShortLimit),
		scheduler.FormatWalltime(scheduler.MediumLimit),
		"72:00:00",
	}, cobra.ShellCompDirectiveNoFileComp
}
