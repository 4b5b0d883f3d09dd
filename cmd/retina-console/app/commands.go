// Package app provides the entry point for the retina-console command-line
// application.
package app

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/owl-os/retina-console/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:               "retina-console",
	DisableAutoGenTag: true,
	Short:             "Administration console for the retina node appliance",
	Long: `retina-console is the on-device administration service for the retina
node radar appliance. It serves the settings form derived from the built-in
schema, persists edits to user.yml, triggers the merge/restart pipeline,
manages SSH access keys, toggles cloud connectivity, and pulls OTA updates
from the Mender server.`,
	Run: func(cmd *cobra.Command, _ []string) {
		// If no subcommand is provided, print help
		if err := cmd.Help(); err != nil {
			logger.Errorf("Error displaying help: %v", err)
		}
	},
}

// NewRootCmd creates a new root command for the retina-console CLI.
func NewRootCmd() *cobra.Command {
	viper.SetEnvPrefix("retina_console")
	viper.AutomaticEnv()

	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		logger.Errorf("Error binding debug flag: %v", err)
	}

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}
