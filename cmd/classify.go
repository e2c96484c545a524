package cmd

import (
	"fmt"

	"github.com/10amc-2/disorder/internal/scheduler"
	"github.com/spf13/cobra"
)

var classifyCmd = &cobra.Command{
	Use:   "classify HH:MM:SS",
	Short: "Print the queue tier of a wall time",
	Long: `Print the queue tier of a wall time and the queue it maps to.

  short   up to 03:00:00
  medium  up to 24:00:00
  long    anything longer`,
	Example: `  disorder classify 02:30:00   # short
  disorder classify 48:00:00   # long`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tier, err := scheduler.Classify(args[0])
		if err != nil {
			return err
		}
		if queue := cfg.Queues.For(tier); queue != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", tier, queue)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), tier)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(classifyCmd)
}
