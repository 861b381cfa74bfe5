package cmd

import (
	"os"
	"path/filepath"

	"github.com/sarchlab/lamportsim/analysis"
	"github.com/sarchlab/lamportsim/config"
	"github.com/spf13/cobra"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Summarize the traces of an experiment.",
	Long: "`summarize -e test` prints one line per process of the " +
		"experiment logs/test.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		experiment, _ := cmd.Flags().GetString("experiment")
		logRoot, _ := cmd.Flags().GetString("log-root")
		useSQLite, _ := cmd.Flags().GetBool("sqlite")

		dir := filepath.Join(logRoot, experiment)

		var (
			summaries []analysis.ProcessSummary
			err       error
		)
		if useSQLite {
			summaries, err = analysis.SummarizeExperimentSQLite(
				cmd.Context(), dir)
		} else {
			summaries, err = analysis.SummarizeExperiment(dir)
		}
		if err != nil {
			return err
		}

		return analysis.WriteTable(os.Stdout, summaries)
	},
}

func init() {
	summarizeCmd.Flags().StringP("experiment", "e", "",
		"Name of the experiment directory.")
	summarizeCmd.Flags().String("log-root", config.DefaultLogRoot,
		"Directory that holds the experiments.")
	summarizeCmd.Flags().Bool("sqlite", false,
		"Read the SQLite traces instead of the CSV traces.")
	_ = summarizeCmd.MarkFlagRequired("experiment")

	rootCmd.AddCommand(summarizeCmd)
}
