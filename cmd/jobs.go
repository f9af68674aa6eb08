package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"rescribe/internal"
)

// jobsCmd represents the jobs command
var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List locally persisted rewrite jobs",
	Long: `List jobs from the file job store, newest first. Jobs kept in Redis are
not listed; look them up directly with 'rescribe status <job ID>'.`,
	Example: `  # List all local jobs
  rescribe jobs`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := internal.NewFileJobStore(filepath.Join(config.DataDir, "jobs"))
		if err != nil {
			return err
		}

		ids, err := store.List()
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			fmt.Println("No jobs found")
			return nil
		}

		for _, id := range ids {
			job, err := store.Get(cmd.Context(), id)
			if err != nil {
				fmt.Printf("%s  (unreadable: %v)\n", id, err)
				continue
			}
			done := len(job.CompletedIndices())
			fmt.Printf("%s  %-10s  %d/%d chunks  %s\n",
				job.JobID, job.Status, done, job.TotalChunks, job.VideoURL)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(jobsCmd)
}
