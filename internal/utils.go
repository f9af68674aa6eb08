package internal

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// ParseVideoArg normalizes a YouTube video ID or URL into a canonical URL.
// Non-YouTube URLs pass through unchanged; the transcript provider decides
// what it supports.
func ParseVideoArg(arg string) string {
	arg = strings.TrimSpace(arg)
	if strings.HasPrefix(arg, "https://") || strings.HasPrefix(arg, "http://") {
		return arg
	}
	if IsValidYouTubeID(arg) {
		return "https://www.youtube.com/watch?v=" + arg
	}
	return arg
}

// VideoID extracts a YouTube video id from a URL, falling back to the input
// when there is none. Used only for friendlier file and job names.
func VideoID(videoURL string) string {
	u, err := url.Parse(videoURL)
	if err != nil {
		return videoURL
	}
	if v := u.Query().Get("v"); v != "" {
		return v
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) > 0 && IsValidYouTubeID(parts[len(parts)-1]) {
		return parts[len(parts)-1]
	}
	return videoURL
}

// IsValidYouTubeID checks if a string looks like a valid YouTube video ID
func IsValidYouTubeID(id string) bool {
	// YouTube video IDs are exactly 11 characters long
	if len(id) != 11 {
		return false
	}

	// YouTube video IDs contain only alphanumeric characters, hyphens, and underscores
	matched, _ := regexp.MatchString(`^[A-Za-z0-9_-]+$`, id)
	return matched
}

// AskUser is a variable that holds the function for asking user confirmation
// This allows it to be replaced in tests
var AskUser = func(message string) bool {
	if !isatty.IsTerminal(os.Stdin.Fd()) {
		// Non-interactive runs (cron, CI) must never hang on a prompt
		return false
	}

	fmt.Printf("%s (y/N): ", message)
	scanner := bufio.NewScanner(os.Stdin)
	if scanner.Scan() {
		response := strings.ToLower(strings.TrimSpace(scanner.Text()))
		return strings.HasPrefix(response, "y")
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
	}
	return false
}

// getTerminalWidth gets terminal width with fallback
func getTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 80
	}

	if width > 10 {
		return width - 4
	}

	return width
}

// RenderMarkdown renders markdown content with glamour
func RenderMarkdown(content string) (string, error) {
	width := getTerminalWidth()
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
		glamour.WithColorProfile(termenv.EnvColorProfile()),
	)
	if err != nil {
		return "", fmt.Errorf("creating terminal renderer: %w", err)
	}

	renderedContent, err := r.Render(content)
	if err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}

	return renderedContent, nil
}

// FileExists checks if a file exists
func FileExists(filename string) bool {
	_, err := os.Stat(filename)
	return !os.IsNotExist(err)
}

// EnsureDirs creates directories if needed
func EnsureDirs(dir ...string) error {
	for _, dir := range dir {
		if !FileExists(dir) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return err
			}
		}
	}
	return nil
}
