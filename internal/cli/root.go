// Package cli implements the flowpanel command line.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd builds the flowpanel command tree.
func NewRootCmd(version string) *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "flowpanel",
		Short: "Control panel for a syringe pump and valve controller",
		Long: `flowpanel keeps protocol tables of duration, flow rate and volume consistent
while they are edited, and sends the resulting extract/dispense commands to a
pump controller over HTTP.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (overrides FLOWPANEL_CONFIG_PATH)")

	configFile := func() string {
		if configPath != "" {
			return configPath
		}
		return envConfigPath()
	}

	rootCmd.AddCommand(NewServeCmd(version, configFile))
	rootCmd.AddCommand(NewMCPCmd(version, configFile))
	rootCmd.AddCommand(NewReplayCmd())
	rootCmd.AddCommand(NewKeysCmd(configFile))

	return rootCmd
}

func envConfigPath() string {
	return os.Getenv("FLOWPANEL_CONFIG_PATH")
}
