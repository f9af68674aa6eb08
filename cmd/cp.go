package cmd

import (
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"rescribe/internal"
)

// cpCmd copies a finished script to the system clipboard instead of printing to stdout.
var cpCmd = &cobra.Command{
	Use:   "cp [job ID] [backend]",
	Short: "Copy a backend's finished script to the clipboard",
	Example: `  # Copy the openai rewrite of a ready job
  rescribe cp 2f1c9a4e-8b3d-4e1f-9a2b-7c5d6e8f0a1b openai`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		pipeline := internal.NewPipeline(config)

		script, err := pipeline.Script(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}

		if err := clipboard.WriteAll(script); err != nil {
			return fmt.Errorf("copying script to clipboard: %w", err)
		}

		if !config.Quiet {
			fmt.Printf("%s script copied to clipboard\n", args[1])
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(cpCmd)
}
