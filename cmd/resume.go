package cmd

import (
	"github.com/spf13/cobra"

	"rescribe/internal"
)

// resumeCmd represents the resume command
var resumeCmd = &cobra.Command{
	Use:   "resume [job ID]",
	Short: "Continue a partially-completed rewrite job",
	Long: `Continue a job whose earlier run was interrupted or left failed chunks
behind. Chunks already rewritten are loaded from the job store and skipped;
only missing chunks hit the AI backends again.`,
	Example: `  # Resume a job by id
  rescribe resume 2f1c9a4e-8b3d-4e1f-9a2b-7c5d6e8f0a1b

  # Resume and deliver once ready
  rescribe resume 2f1c9a4e-8b3d-4e1f-9a2b-7c5d6e8f0a1b --deliver`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := internal.HandleBackendsFlag(cmd, config); err != nil {
			return err
		}

		pipeline := internal.NewPipeline(config)
		if err := internal.HandlePromptFlag(cmd, pipeline); err != nil {
			return err
		}

		deliver, _ := cmd.Flags().GetBool("deliver")

		report, err := pipeline.Resume(cmd.Context(), args[0])
		if err != nil {
			return interruptHint(report, err)
		}

		for !report.Complete() {
			report, err = pipeline.Resume(cmd.Context(), args[0])
			if err != nil {
				return interruptHint(report, err)
			}
		}

		return finishJob(cmd.Context(), pipeline, report, deliver)
	},
}

func init() {
	internal.AddPipelineFlags(resumeCmd)
	rootCmd.AddCommand(resumeCmd)
}
