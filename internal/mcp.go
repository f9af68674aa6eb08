package internal

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// MCPServer wraps the MCP server and application dependencies
type MCPServer struct {
	pipeline  *Pipeline
	mcpServer *server.MCPServer
}

// NewMCPServer creates a new MCP server instance
func NewMCPServer(pipeline *Pipeline) *MCPServer {
	mcpServer := server.NewMCPServer(
		"rescribe-server",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	s := &MCPServer{
		pipeline:  pipeline,
		mcpServer: mcpServer,
	}

	// Register tools
	s.registerTools()

	return s
}

// registerTools registers all available MCP tools
func (s *MCPServer) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("rewrite_video",
		mcp.WithDescription("Start rewriting a video's transcript into scripts using the configured AI backends. Long transcripts are processed in chunks; if the run ends with status 'processing', call resume_job with the returned job id to continue. Calls external AI APIs, which costs money."),
		mcp.WithString("url",
			mcp.Description("Video URL or YouTube video ID"),
			mcp.Required(),
		),
		mcp.WithString("title",
			mcp.Description("Video title, used in the rewrite prompt"),
		),
	), s.handleRewrite)

	s.mcpServer.AddTool(mcp.NewTool("resume_job",
		mcp.WithDescription("Continue a partially-completed rewrite job. Chunks finished in earlier runs are skipped; only missing chunks are re-executed."),
		mcp.WithString("job_id",
			mcp.Description("Job id returned by rewrite_video"),
			mcp.Required(),
		),
	), s.handleResume)

	s.mcpServer.AddTool(mcp.NewTool("job_status",
		mcp.WithDescription("Show a rewrite job's status, chunk completion, and per-backend errors. Does not execute anything."),
		mcp.WithString("job_id",
			mcp.Description("Job id returned by rewrite_video"),
			mcp.Required(),
		),
	), s.handleStatus)
}

// handleRewrite implements the rewrite_video tool
func (s *MCPServer) handleRewrite(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url, err := request.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError("url parameter is required and must be a string"), nil
	}
	title := request.GetString("title", "")

	MCPLogInfo("rewrite_video url=%s", url)

	report, err := s.pipeline.Start(ctx, ParseVideoArg(url), title)
	if err != nil {
		MCPLogError("rewrite_video failed: %v", err)
		return mcp.NewToolResultErrorFromErr("rewrite failed", err), nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(formatReport(report))},
	}, nil
}

// handleResume implements the resume_job tool
func (s *MCPServer) handleResume(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobID, err := request.RequireString("job_id")
	if err != nil {
		return mcp.NewToolResultError("job_id parameter is required and must be a string"), nil
	}

	MCPLogInfo("resume_job id=%s", jobID)

	report, err := s.pipeline.Resume(ctx, jobID)
	if err != nil {
		MCPLogError("resume_job failed: %v", err)
		return mcp.NewToolResultErrorFromErr("resume failed", err), nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(formatReport(report))},
	}, nil
}

// handleStatus implements the job_status tool
func (s *MCPServer) handleStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobID, err := request.RequireString("job_id")
	if err != nil {
		return mcp.NewToolResultError("job_id parameter is required and must be a string"), nil
	}

	job, err := s.pipeline.store.Get(ctx, jobID)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("job lookup failed", err), nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(FormatJobStatus(job))},
	}, nil
}

// formatReport renders a round report as text for the MCP client
func formatReport(report *RoundReport) string {
	var buf strings.Builder
	job := report.Job

	buf.WriteString(fmt.Sprintf("Job: %s\n", job.JobID))
	buf.WriteString(fmt.Sprintf("Status: %s\n", job.Status))
	buf.WriteString(fmt.Sprintf("Chunks: %d total, %d processed this round, %d skipped\n",
		job.TotalChunks, report.Processed, report.Skipped))

	if len(report.Rejected) > 0 {
		buf.WriteString(fmt.Sprintf("Rejected chunks: %v (resume to retry)\n", report.Rejected))
	}

	for _, script := range report.Scripts {
		buf.WriteString(fmt.Sprintf("\n=== %s ===\n", script.BackendName))
		if script.FirstError != "" {
			buf.WriteString(fmt.Sprintf("(chunks %v unavailable: %s)\n", script.MissingChunks, script.FirstError))
		}
		buf.WriteString(script.Content)
		buf.WriteString("\n")
	}

	return buf.String()
}

// FormatJobStatus renders a job's persisted state as text
func FormatJobStatus(job *Job) string {
	var buf strings.Builder

	buf.WriteString(fmt.Sprintf("Job: %s\n", job.JobID))
	buf.WriteString(fmt.Sprintf("Video: %s\n", job.VideoURL))
	if job.Title != "" {
		buf.WriteString(fmt.Sprintf("Title: %s\n", job.Title))
	}
	buf.WriteString(fmt.Sprintf("Status: %s\n", job.Status))
	buf.WriteString(fmt.Sprintf("Retries: %d\n", job.RetryCount))

	done := len(job.CompletedIndices())
	buf.WriteString(fmt.Sprintf("Chunks: %d/%d complete\n", done, job.TotalChunks))

	for i := 0; i < job.TotalChunks; i++ {
		res, ok := job.Chunks[i]
		if !ok {
			buf.WriteString(fmt.Sprintf("  chunk %d: missing\n", i))
			continue
		}
		buf.WriteString(fmt.Sprintf("  chunk %d: %s", i, res.Status))
		for name, msg := range res.Errors {
			buf.WriteString(fmt.Sprintf(" [%s: %s]", name, msg))
		}
		buf.WriteString("\n")
	}

	return buf.String()
}

// Start starts the MCP server using the specified transport
func (s *MCPServer) Start(ctx context.Context, transport string, port int) error {
	if transport == "http" {
		httpServer := server.NewStreamableHTTPServer(s.mcpServer)
		addr := fmt.Sprintf(":%d", port)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return httpServer.Start(addr)
	}

	// Default to stdio transport
	return server.ServeStdio(s.mcpServer)
}
