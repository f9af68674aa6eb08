package cmd

import (
	"github.com/spf13/cobra"

	"rescribe/internal"
)

// deliverCmd represents the deliver command
var deliverCmd = &cobra.Command{
	Use:   "deliver [job ID]",
	Short: "Send a ready job's scripts to the configured delivery channel",
	Long: `Send every backend's finished script for a ready job to the delivery
channel (Telegram). Sends are spaced by the configured delivery delay to
respect the channel's rate limits. Delivery is at-least-once: re-running
this command re-sends the scripts.`,
	Example: `  # Deliver all scripts of a ready job
  rescribe deliver 2f1c9a4e-8b3d-4e1f-9a2b-7c5d6e8f0a1b`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pipeline := internal.NewPipeline(config)

		job, err := pipeline.Job(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		scripts, err := job.Aggregate(job.BackendNames())
		if err != nil {
			return err
		}

		return pipeline.Deliver(cmd.Context(), job, scripts)
	},
}

func init() {
	rootCmd.AddCommand(deliverCmd)
}
