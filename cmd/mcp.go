package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"rescribe/internal"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run minimal MCP server for rescribe",
	Long: `Run a Model Context Protocol (MCP) server that exposes rescribe as tools.

The MCP server provides three tools:
- rewrite_video: start rewriting a video's transcript
- resume_job: continue a partially-completed job
- job_status: inspect a job's chunk completion and errors

Transport options:
- stdio (default): standard MCP transport via stdin/stdout
- http: HTTP transport on the specified port (use --port to configure)`,
	Example: `  # Run MCP server with stdio transport
  rescribe mcp

  # Run MCP server with HTTP transport on port 8080
  rescribe mcp --transport=http --port=8080`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		// MCP uses stdio protocol, so disable verbose logging
		config.Verbose = false
		config.Quiet = true
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		internal.InitMCPLogging(config)

		pipeline := internal.NewPipeline(config)
		mcpServer := internal.NewMCPServer(pipeline)

		if transport == "http" {
			fmt.Printf("Starting rescribe MCP server on HTTP port %d...\n", port)
		}

		// Start the server (this will block until context is cancelled)
		return mcpServer.Start(cmd.Context(), transport, port)
	},
}

func init() {
	mcpCmd.Flags().String("transport", "stdio", "Transport to use (stdio or http)")
	mcpCmd.Flags().Int("port", 8080, "Port for HTTP transport")
	rootCmd.AddCommand(mcpCmd)
}
