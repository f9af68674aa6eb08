package internal

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// AddPipelineFlags adds flags shared by commands that run the pipeline
func AddPipelineFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("prompt", "p", "", "Custom rewrite prompt (string or file path)")
	cmd.Flags().StringSliceP("backends", "b", nil, "Backends to use (overrides enabled set from config)")
	cmd.Flags().String("title", "", "Video title, used in the prompt and delivery caption")
	cmd.Flags().Bool("deliver", false, "Deliver finished scripts to the configured channel")
}

// HandlePromptFlag processes the --prompt flag to set custom prompt
func HandlePromptFlag(cmd *cobra.Command, p *Pipeline) error {
	promptFlag := cmd.Flags().Lookup("prompt")
	if promptFlag == nil || !promptFlag.Changed {
		return nil
	}

	prompt, err := cmd.Flags().GetString("prompt")
	if err != nil {
		return fmt.Errorf("failed to get prompt flag: %w", err)
	}
	if prompt == "" {
		return nil
	}

	p.SetPromptManager(NewPromptManager(p.config.ConfigDir, prompt))
	return nil
}

// HandleBackendsFlag narrows the enabled backend set to the names given on
// the command line
func HandleBackendsFlag(cmd *cobra.Command, config *Config) error {
	flag := cmd.Flags().Lookup("backends")
	if flag == nil || !flag.Changed {
		return nil
	}

	names, err := cmd.Flags().GetStringSlice("backends")
	if err != nil {
		return fmt.Errorf("failed to get backends flag: %w", err)
	}

	requested := make(map[string]bool, len(names))
	for _, name := range names {
		requested[strings.ToLower(strings.TrimSpace(name))] = true
	}

	known := make(map[string]bool, len(config.Backends))
	for i := range config.Backends {
		known[config.Backends[i].Name] = true
		config.Backends[i].Enabled = requested[config.Backends[i].Name]
	}
	for name := range requested {
		if !known[name] {
			return fmt.Errorf("unknown backend %q (configured: %s)", name, strings.Join(backendNames(config.Backends), ", "))
		}
	}
	return nil
}

// HandleVerboseFlag processes the --verbose flag to update config
func HandleVerboseFlag(cmd *cobra.Command, config *Config) error {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return fmt.Errorf("failed to get verbose flag: %w", err)
	}
	config.Verbose = verbose
	return nil
}

// ValidatePipelineRequirements checks that at least one backend and one
// transcript credential are usable before starting a job
func ValidatePipelineRequirements(config *Config) error {
	if len(EnabledBackends(config.Backends, config.BackendTimeout)) == 0 {
		return fmt.Errorf("no AI backends enabled - enable one in config.toml and set its API key")
	}

	hasActive := false
	for _, cred := range config.TranscriptCredentials {
		if cred.Active {
			hasActive = true
			break
		}
	}
	if !hasActive {
		return fmt.Errorf("no active transcript API keys - add one under [[transcript_api_keys]] in config.toml")
	}
	return nil
}

func backendNames(configs []BackendConfig) []string {
	names := make([]string, 0, len(configs))
	for _, cfg := range configs {
		names = append(names, cfg.Name)
	}
	return names
}
