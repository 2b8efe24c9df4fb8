// Package cli handles the command-line interface logic
// using the Cobra library.
package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates and configures the main "root" command
// for the application. It attaches all sub-commands.
func NewRootCmd() *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:   "datalake-extract",
		Short: "Extracts business class data from the Infor datalake into versioned files.",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "app.config", "Path to the application config file")

	rootCmd.AddCommand(newExtractCmd(&configFile))
	rootCmd.AddCommand(newHeadersCmd(&configFile))
	rootCmd.AddCommand(newPushCmd(&configFile))

	return rootCmd
}
