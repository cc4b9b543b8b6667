package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	// External tools
	YtDlpPath  string
	FFmpegPath string // ffprobe is resolved from PATH

	// Extractor credentials
	CookiesFile        string // Netscape cookie file passed to yt-dlp
	CookiesFromBrowser string // e.g. "firefox"

	// Format selection
	ForceConversion bool   // Always route downloads through the forced conversion strategy
	ContainerExt    string // Target container extension without dot (default: mp4)

	// Audio presets, see ffmpeg.PresetByName
	InteractiveAudioPreset string // Jobs queued through the API (default: interactive)
	BatchAudioPreset       string // One-shot CLI downloads (default: hq)

	// Jobs
	JobTimeoutMinutes    int // Minutes before an in-progress job is considered stuck (default: 120)
	JobRetentionDays     int // Days finished jobs are kept in the database (default: 7)
	MetadataCacheMinutes int // Minutes a metadata preview is reused (default: 10)

	// Server
	ServerPort string

	// Paths
	DatabaseFile string // $CONFIG_DIR/aacfetch.db
	SettingsFile string // $CONFIG_DIR/settings.json

	// Logging and tracing
	LogLevel           string
	TracingExporter    string  // "log" or "none" (default: log)
	TracingSampleRatio float64 // Fraction of root spans sampled (default: 1)
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Setup viper FIRST to load .env file
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Load .env file if it exists (ignore if not found)
	_ = viper.ReadInConfig()

	// Set defaults
	viper.SetDefault("YTDLP_PATH", "yt-dlp")
	viper.SetDefault("FFMPEG_PATH", "ffmpeg")
	viper.SetDefault("FORCE_CONVERSION", true)
	viper.SetDefault("CONTAINER_EXT", "mp4")
	viper.SetDefault("INTERACTIVE_AUDIO_PRESET", "interactive")
	viper.SetDefault("BATCH_AUDIO_PRESET", "hq")
	viper.SetDefault("JOB_TIMEOUT_MINUTES", 120)
	viper.SetDefault("JOB_RETENTION_DAYS", 7)
	viper.SetDefault("METADATA_CACHE_MINUTES", 10)
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("TRACING_EXPORTER", "log")
	viper.SetDefault("TRACING_SAMPLE_RATIO", 1.0)

	configDir := viper.GetString("CONFIG_DIR")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config", "aacfetch")
	} else {
		// Convert relative path to absolute path
		absPath, err := filepath.Abs(configDir)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path for CONFIG_DIR: %w", err)
		}
		configDir = absPath
	}

	// Create config directory if it doesn't exist
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	config := &Config{
		// External tools
		YtDlpPath:  viper.GetString("YTDLP_PATH"),
		FFmpegPath: viper.GetString("FFMPEG_PATH"),

		// Extractor credentials
		CookiesFile:        viper.GetString("COOKIES_FILE"),
		CookiesFromBrowser: viper.GetString("COOKIES_FROM_BROWSER"),

		// Format selection
		ForceConversion: viper.GetBool("FORCE_CONVERSION"),
		ContainerExt:    strings.TrimPrefix(viper.GetString("CONTAINER_EXT"), "."),

		// Audio presets
		InteractiveAudioPreset: viper.GetString("INTERACTIVE_AUDIO_PRESET"),
		BatchAudioPreset:       viper.GetString("BATCH_AUDIO_PRESET"),

		// Jobs
		JobTimeoutMinutes:    viper.GetInt("JOB_TIMEOUT_MINUTES"),
		JobRetentionDays:     viper.GetInt("JOB_RETENTION_DAYS"),
		MetadataCacheMinutes: viper.GetInt("METADATA_CACHE_MINUTES"),

		// Server
		ServerPort: viper.GetString("SERVER_PORT"),

		// Paths
		DatabaseFile: filepath.Join(configDir, "aacfetch.db"),
		SettingsFile: filepath.Join(configDir, "settings.json"),

		// Logging and tracing
		LogLevel:           viper.GetString("LOG_LEVEL"),
		TracingExporter:    viper.GetString("TRACING_EXPORTER"),
		TracingSampleRatio: viper.GetFloat64("TRACING_SAMPLE_RATIO"),
	}

	// Validate fields
	if config.YtDlpPath == "" {
		return nil, fmt.Errorf("YTDLP_PATH must not be empty")
	}
	if config.FFmpegPath == "" {
		return nil, fmt.Errorf("FFMPEG_PATH must not be empty")
	}
	if config.ContainerExt == "" {
		return nil, fmt.Errorf("CONTAINER_EXT must not be empty")
	}
	if config.TracingSampleRatio < 0 || config.TracingSampleRatio > 1 {
		return nil, fmt.Errorf("TRACING_SAMPLE_RATIO must be between 0 and 1")
	}

	return config, nil
}
