package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"rescribe/internal"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status [job ID]",
	Short: "Show a rewrite job's chunk completion and errors",
	Example: `  # Show job state
  rescribe status 2f1c9a4e-8b3d-4e1f-9a2b-7c5d6e8f0a1b

  # Render one backend's finished script in the terminal
  rescribe status 2f1c9a4e-8b3d-4e1f-9a2b-7c5d6e8f0a1b --preview openai`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pipeline := internal.NewPipeline(config)

		preview, _ := cmd.Flags().GetString("preview")
		if preview != "" {
			script, err := pipeline.Script(cmd.Context(), args[0], preview)
			if err != nil {
				return err
			}
			rendered, err := internal.RenderMarkdown(script)
			if err != nil {
				return err
			}
			fmt.Println(rendered)
			return nil
		}

		job, err := pipeline.Job(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Print(internal.FormatJobStatus(job))
		return nil
	},
}

func init() {
	statusCmd.Flags().String("preview", "", "Render the named backend's script instead of showing chunk state")
	rootCmd.AddCommand(statusCmd)
}
