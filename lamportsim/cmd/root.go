// Package cmd provides the command-line interface for lamportsim.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "lamportsim",
	Short: "lamportsim runs processes that keep Lamport logical clocks.",
	Long: `lamportsim runs networked processes that exchange timestamped ` +
		`messages and record a trace of every event. Use run to start ` +
		`processes and summarize to inspect the traces of an experiment.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
