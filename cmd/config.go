package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/10amc-2/disorder/internal/config"
	"github.com/10amc-2/disorder/internal/utils"
	"github.com/spf13/cobra"
)

var showPath bool

// configKeysCompletion returns config keys for shell completion
func configKeysCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.Keys, cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect disorder configuration",
	Long: `Inspect disorder configuration settings.

Configuration priority (highest to lowest):
  1. Command-line flags
  2. Environment variables (DISORDER_*)
  3. Config file (--config, or the first config.yaml found in
     ~/.config/disorder, ~/.disorder, /etc/disorder, .)
  4. Defaults`,
}

var configShowCmd = &cobra.Command{
	Use:   "show [key]",
	Short: "Show current configuration",
	Long: `Display the effective configuration values, the config file search paths,
and any environment variable overrides. With a key, print only its value.`,
	Args:              cobra.MaximumNArgs(1),
	ValidArgsFunction: configKeysCompletion,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if showPath {
			if cfg.ConfigFile == "" {
				return fmt.Errorf("no config file in use")
			}
			fmt.Fprintln(out, cfg.ConfigFile)
			return nil
		}

		settings := cfg.Settings()
		if len(args) == 1 {
			for _, s := range settings {
				if s.Key == args[0] {
					fmt.Fprintln(out, s.Value)
					return nil
				}
			}
			return fmt.Errorf("unknown config key %q", args[0])
		}

		// Show config file search paths
		fmt.Fprintln(out, utils.StyleTitle("Config File Search Paths:"))
		if configFile != "" {
			fmt.Fprintf(out, "  %s %s\n", utils.StylePath(configFile), utils.StyleSuccess("← in use (--config)"))
		} else {
			for i, dir := range config.SearchPaths(cfg.HomeDir) {
				path := filepath.Join(dir, config.ConfigFilename+"."+config.ConfigType)
				status := ""
				if abs, err := filepath.Abs(path); err == nil && abs == cfg.ConfigFile {
					status = " " + utils.StyleSuccess("← in use")
				} else if !utils.FileExists(path) {
					status = " " + utils.StyleHint("(not found)")
				}
				fmt.Fprintf(out, "  %d. %s%s\n", i+1, path, status)
			}
		}
		fmt.Fprintln(out)

		// Show settings
		fmt.Fprintln(out, utils.StyleTitle("Settings:"))
		for _, s := range settings {
			value := s.Value
			if value == "" {
				value = utils.StyleHint("(unset)")
			}
			fmt.Fprintf(out, "  %-20s %s\n", s.Key+":", value)
		}

		// Show environment overrides
		var envs []string
		for _, name := range config.EnvVarNames() {
			if v, ok := os.LookupEnv(name); ok {
				envs = append(envs, fmt.Sprintf("%s=%s", name, v))
			}
		}
		if len(envs) > 0 {
			fmt.Fprintln(out)
			fmt.Fprintln(out, utils.StyleTitle("Environment Overrides:"))
			for _, e := range envs {
				fmt.Fprintf(out, "  %s\n", e)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configShowCmd.Flags().BoolVarP(&showPath, "path", "p", false, "Only print the path of the config file in use")
}
