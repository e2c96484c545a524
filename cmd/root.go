package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/10amc-2/disorder/internal/config"
	"github.com/10amc-2/disorder/internal/utils"
	"github.com/spf13/cobra"
)

var (
	debugMode  bool
	quietMode  bool
	configFile string

	// cfg is built once per invocation and handed to every component.
	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "disorder",
	Short: "Disorder: generate Grid Engine jobs for NAMD free energy runs.",
	Long: `Disorder prepares versioned run directories, simulation configs, and
Grid Engine job scripts for repeated NAMD free energy perturbation runs.

Submission lines are printed to stdout so they can be piped to a shell:
  disorder gen --pdb protein.pdb --fep fep.tcl --nruns 10 | sh`,
	Version:       config.VERSION,
	SilenceErrors: true,
	SilenceUsage:  true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Step 1: Apply console flags so config loading can log
		utils.DebugMode = debugMode
		utils.QuietMode = quietMode && !debugMode

		// Step 2: Resolve the environment once
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to determine home directory: %w", err)
		}
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to determine working directory: %w", err)
		}

		// Step 3: Defaults, config file, and env vars
		cfg, err = config.Load(configFile, home, cwd)
		if err != nil {
			return err
		}
		if cfg.WorkDir, err = filepath.Abs(cfg.WorkDir); err != nil {
			return err
		}
		cfg.Debug = utils.DebugMode
		cfg.Quiet = utils.QuietMode

		if debugMode {
			utils.PrintDebug("Debug mode enabled")
			utils.PrintDebug("Disorder Version: %s", utils.StyleInfo(config.VERSION))
			utils.PrintDebug("Work Directory: %s", cfg.WorkDir)
			utils.PrintDebug("Jobs Directory: %s", cfg.JobsDir)
			utils.PrintDebug("Link Directory: %s", cfg.LinkDir)
			utils.PrintDebug("Simulation Binary: %s", cfg.SimulationBin)
		}
		return nil
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		utils.PrintError("%v", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	// Subcommands are attached to rootCmd in their respective init() functions
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug mode with verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quietMode, "quiet", "q", false, "Only print errors and warnings")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default: search ~/.config/disorder, ~/.disorder, /etc/disorder, .)")
}
