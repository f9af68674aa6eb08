package cmd

import (
	"github.com/spf13/cobra"

	"rescribe/internal"
)

// rewriteCmd represents the rewrite command
var rewriteCmd = &cobra.Command{
	Use:   "rewrite [video URL or ID]",
	Short: "Rewrite a video's transcript into scripts (same as the bare command)",
	Example: `  # Rewrite a video's transcript
  rescribe rewrite "https://www.youtube.com/watch?v=tAP1eZYEuKA"
  rescribe rewrite tAP1eZYEuKA

  # Only use specific backends
  rescribe rewrite tAP1eZYEuKA --backends openai

  # Deliver finished scripts when done
  rescribe rewrite tAP1eZYEuKA --deliver`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := internal.HandleBackendsFlag(cmd, config); err != nil {
			return err
		}
		if err := internal.ValidatePipelineRequirements(config); err != nil {
			return err
		}

		pipeline := internal.NewPipeline(config)
		if err := internal.HandlePromptFlag(cmd, pipeline); err != nil {
			return err
		}

		title, _ := cmd.Flags().GetString("title")
		deliver, _ := cmd.Flags().GetBool("deliver")

		videoURL := internal.ParseVideoArg(args[0])
		return runJob(cmd.Context(), pipeline, videoURL, title, deliver)
	},
}

func init() {
	internal.AddPipelineFlags(rewriteCmd)
	rootCmd.AddCommand(rewriteCmd)
}
