package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"rescribe/internal"
)

var (
	config *internal.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "rescribe [video URL or ID]",
	Short: "Rewrite long-form video transcripts into scripts with AI",
	Long: `Rescribe fetches a video's transcript, splits it into chunks, and has
every enabled AI backend rewrite each chunk concurrently. The per-backend
results are joined back in order into one finished script per backend.

Progress is persisted per chunk, so an interrupted or partially-failed run
can be resumed later without redoing finished work or re-spending API
credits. Transcript API keys rotate automatically when one is rate limited
or invalid.`,
	Example: `  # Rewrite a video's transcript with all enabled backends
  rescribe "https://www.youtube.com/watch?v=tAP1eZYEuKA"
  rescribe tAP1eZYEuKA

  # Only use specific backends
  rescribe tAP1eZYEuKA --backends openai,deepseek

  # Use a custom rewrite prompt
  rescribe tAP1eZYEuKA --prompt "Rewrite this as a podcast monologue:"

  # Deliver finished scripts to Telegram when done
  rescribe tAP1eZYEuKA --deliver`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if quiet, err := cmd.Flags().GetBool("quiet"); err == nil && quiet {
			config.Quiet = true
		}
		return internal.HandleVerboseFlag(cmd, config)
	},
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

// runJob starts a job and keeps running rounds until it is ready or its
// retry budget runs out. Interrupting mid-run is safe: finished chunks are
// already persisted and `rescribe resume` picks up the rest.
func runJob(ctx context.Context, pipeline *internal.Pipeline, videoURL, title string, deliver bool) error {
	report, err := pipeline.Start(ctx, videoURL, title)
	if err != nil {
		return interruptHint(report, err)
	}
	jobID := report.Job.JobID

	for !report.Complete() {
		fmt.Printf("Job %s: %d chunks still missing, retrying...\n",
			jobID, len(report.Rejected))
		report, err = pipeline.Resume(ctx, jobID)
		if err != nil {
			return interruptHint(report, err)
		}
	}

	return finishJob(ctx, pipeline, report, deliver)
}

// interruptHint turns a cancellation error into a resume hint when the round
// got far enough to have a job worth resuming.
func interruptHint(report *internal.RoundReport, err error) error {
	if report != nil && errors.Is(err, context.Canceled) {
		return fmt.Errorf("interrupted; finished chunks are saved, resume with 'rescribe resume %s'", report.Job.JobID)
	}
	return err
}

// finishJob prints the outcome of a ready job and optionally delivers it
func finishJob(ctx context.Context, pipeline *internal.Pipeline, report *internal.RoundReport, deliver bool) error {
	job := report.Job
	fmt.Printf("Job %s ready: %d chunks rewritten by %d backend(s)\n",
		job.JobID, job.TotalChunks, len(report.Scripts))

	for _, script := range report.Scripts {
		if script.FirstError != "" {
			fmt.Printf("  %s: chunks %v unavailable (%s)\n",
				script.BackendName, script.MissingChunks, script.FirstError)
		} else {
			fmt.Printf("  %s: complete\n", script.BackendName)
		}
	}
	fmt.Printf("Scripts saved under %s\n", config.DataDir)
	fmt.Printf("Preview with: rescribe status %s --preview <backend>\n", job.JobID)

	if deliver {
		return pipeline.Deliver(ctx, job, report.Scripts)
	}
	return nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	// Create a cancellable context for the entire application
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize configuration with Viper
	config = internal.InitConfig()

	// Ensure XDG directories exist
	if err := internal.EnsureDirs(config.ConfigDir, config.DataDir, config.CacheDir); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating XDG directories: %v\n", err)
		os.Exit(1)
	}

	// Ensure default config exists in XDG config directory
	if err := internal.EnsureDefaultConfig(config.ConfigDir); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to ensure default config: %v\n", err)
	}

	// Ensure default prompt exists in XDG config directory
	if err := internal.EnsureDefaultPrompt(config.ConfigDir); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to ensure default prompt: %v\n", err)
	}

	// Set up signal handling for graceful shutdown. Chunk results already
	// persisted survive the interrupt; the job resumes later.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\nReceived interrupt signal. Finished chunks are saved; resume with 'rescribe resume'.")
		cancel()
	}()

	// Set context on root command
	rootCmd.SetContext(ctx)

	return rootCmd.Execute()
}

func init() {
	internal.AddPipelineFlags(rootCmd)
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output for debugging")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "Suppress progress output")
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
}
