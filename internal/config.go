package internal

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// Config holds application settings
type Config struct {
	// Chunking and retry policy
	MaxCharsPerChunk int
	MaxRetries       int
	ChunkConcurrency int

	// Transcript provider
	TranscriptAPIURL      string
	TranscriptCredentials []Credential
	PollInterval          time.Duration
	PollMaxAttempts       int

	// AI backends
	Backends       []BackendConfig
	BackendTimeout time.Duration

	// Job persistence
	RedisURL string
	JobTTL   time.Duration

	// Delivery
	TelegramToken  string
	TelegramChatID string
	DeliveryDelay  time.Duration

	// General
	Prompt        string
	Verbose       bool
	Quiet         bool
	MCPLogEnabled bool

	// Fixed XDG paths (not configurable)
	ConfigDir      string
	DataDir        string
	CacheDir       string
	TranscriptsDir string
}

//go:embed config.toml prompt.txt
var defaultFS embed.FS

// ensureDefaultFile checks if a file exists in the specified directory
// and creates it from the embedded default if it doesn't exist
func ensureDefaultFile(configDir, embedFilename, description string) error {
	filePath := filepath.Join(configDir, embedFilename)

	// Check if file already exists
	if FileExists(filePath) {
		return nil
	}

	// Make sure the config directory exists
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	// Read the embedded default file
	defaultContent, err := defaultFS.ReadFile(embedFilename)
	if err != nil {
		return fmt.Errorf("reading embedded default %s: %w", description, err)
	}

	// Write the default file to the specified directory
	if err := os.WriteFile(filePath, defaultContent, 0644); err != nil {
		return fmt.Errorf("writing default %s: %w", description, err)
	}

	fmt.Printf("Created default %s at %s\n", description, filePath)
	return nil
}

// EnsureDefaultConfig checks if a config file exists in the XDG config directory
// and creates it from the embedded default if it doesn't exist
func EnsureDefaultConfig(configDir string) error {
	return ensureDefaultFile(configDir, "config.toml", "configuration")
}

// EnsureDefaultPrompt checks if a prompt.txt file exists in the XDG config directory
// and creates it from the embedded default if it doesn't exist
func EnsureDefaultPrompt(configDir string) error {
	return ensureDefaultFile(configDir, "prompt.txt", "prompt template")
}

// InitConfig initializes Viper and loads configuration
func InitConfig() *Config {
	// XDG standard directories
	configDir := filepath.Join(xdg.ConfigHome, "rescribe")
	dataDir := filepath.Join(xdg.DataHome, "rescribe")
	cacheDir := filepath.Join(xdg.CacheHome, "rescribe")

	transcriptsDir := filepath.Join(dataDir, "transcripts")

	// Initialize viper
	v := viper.New()

	// Set default values for configurable settings
	v.SetDefault("max_chars_per_chunk", 7000)
	v.SetDefault("max_retries", 3)
	v.SetDefault("chunk_concurrency", 0)
	v.SetDefault("transcript_api_url", "https://api.supadata.ai")
	v.SetDefault("poll_interval", 5*time.Second)
	v.SetDefault("poll_max_attempts", 60)
	v.SetDefault("backend_timeout", 3*time.Minute)
	v.SetDefault("job_ttl", 7*24*time.Hour)
	v.SetDefault("delivery_delay", 2*time.Second)
	v.SetDefault("verbose", false)
	v.SetDefault("quiet", false)
	v.SetDefault("prompt", "") // if empty will use default prompt template
	v.SetDefault("mcp_log", false)

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	// Environment variables
	v.SetEnvPrefix("RESCRIBE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Direct env vars for secrets, so nothing sensitive has to live in the file
	_ = v.BindEnv("redis_url", "RESCRIBE_REDIS_URL", "REDIS_URL")
	_ = v.BindEnv("telegram.token", "TELEGRAM_BOT_TOKEN")
	_ = v.BindEnv("telegram.chat_id", "TELEGRAM_CHAT_ID")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Warning: Error reading config file: %v\n", err)
		}
	}

	var credentials []Credential
	if err := v.UnmarshalKey("transcript_api_keys", &credentials); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Error parsing transcript_api_keys: %v\n", err)
	}

	var backends []BackendConfig
	if err := v.UnmarshalKey("backends", &backends); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Error parsing backends: %v\n", err)
	}
	// Per-backend keys may come from the environment instead of the file
	for i := range backends {
		if backends[i].APIKey == "" {
			envKey := strings.ToUpper(backends[i].Name) + "_API_KEY"
			backends[i].APIKey = os.Getenv(envKey)
		}
	}

	// Create config struct from viper
	config := &Config{
		MaxCharsPerChunk: v.GetInt("max_chars_per_chunk"),
		MaxRetries:       v.GetInt("max_retries"),
		ChunkConcurrency: v.GetInt("chunk_concurrency"),

		TranscriptAPIURL:      v.GetString("transcript_api_url"),
		TranscriptCredentials: credentials,
		PollInterval:          v.GetDuration("poll_interval"),
		PollMaxAttempts:       v.GetInt("poll_max_attempts"),

		Backends:       backends,
		BackendTimeout: v.GetDuration("backend_timeout"),

		RedisURL: v.GetString("redis_url"),
		JobTTL:   v.GetDuration("job_ttl"),

		TelegramToken:  v.GetString("telegram.token"),
		TelegramChatID: v.GetString("telegram.chat_id"),
		DeliveryDelay:  v.GetDuration("delivery_delay"),

		Prompt:        v.GetString("prompt"),
		Verbose:       v.GetBool("verbose"),
		Quiet:         v.GetBool("quiet"),
		MCPLogEnabled: v.GetBool("mcp_log"),

		// Fixed XDG paths
		ConfigDir:      configDir,
		DataDir:        dataDir,
		CacheDir:       cacheDir,
		TranscriptsDir: transcriptsDir,
	}

	if config.Verbose {
		fmt.Printf("Using config file: %s\n", v.ConfigFileUsed())
	}

	return config
}
