package cmd

import (
	"fmt"

	"github.com/10amc-2/disorder/internal/command"
	"github.com/10amc-2/disorder/internal/scheduler"
	"github.com/10amc-2/disorder/internal/utils"
	"github.com/spf13/cobra"
	"k8s.io/utils/clock"
)

var resourcesFlags ResourceFlags

var resourcesCmd = &cobra.Command{
	Use:   "resources",
	Short: "Show the resources a job would request",
	Long: `Resolve job resources without generating anything.

With --reservation the reservation is queried with qrstat and the usable wall
time is the smaller of its h_rt and the time left before it ends, minus the
safety margin.`,
	Example: `  disorder resources                 # Configured defaults
  disorder resources -r 1234         # Resources of reservation 1234
  disorder resources -t 02:00:00 -c 4`,
	Args: cobra.NoArgs,
	RunE: runResources,
}

func init() {
	rootCmd.AddCommand(resourcesCmd)
	RegisterResourceFlags(resourcesCmd, &resourcesFlags)
}

func runResources(cmd *cobra.Command, args []string) error {
	explicit, err := resourcesFlags.Explicit()
	if err != nil {
		return err
	}

	resolver := scheduler.NewResolver(command.Exec{Timeout: cfg.CommandTimeout}, clock.RealClock{}, cfg.ResolverOptions())
	res, err := resolver.Resolve(cmd.Context(), explicit, resourcesFlags.Reservation)
	if err != nil {
		return err
	}

	tier := res.Tier()
	queue := cfg.Queues.For(tier)
	if queue == "" {
		queue = "-"
	}
	host := res.HostRequest()
	if host == "" {
		host = "-"
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, utils.StyleTitle("Resources:"))
	fmt.Fprintf(out, "  Mode:      %s\n", utils.StyleInfo(string(res.Mode)))
	if res.ReservationID != "" {
		fmt.Fprintf(out, "  Reserved:  %s\n", utils.StyleName(res.ReservationID))
	}
	fmt.Fprintf(out, "  Memory:    %s\n", res.MemPerThread)
	fmt.Fprintf(out, "  Walltime:  %s\n", scheduler.FormatWalltime(res.Walltime))
	fmt.Fprintf(out, "  Cores:     %s\n", utils.StyleNumber(res.Cores))
	fmt.Fprintf(out, "  Host:      %s\n", host)
	fmt.Fprintf(out, "  Tier:      %s (%s)\n", tier, queue)
	return nil
}
