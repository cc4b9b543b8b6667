package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/amaumene/aacfetch/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Settings is the user-facing preferences file
type Settings struct {
	OutputPath             string `json:"output_path" mapstructure:"output_path"`
	DefaultFormat          string `json:"default_format" mapstructure:"default_format"`
	DefaultQuality         string `json:"default_quality" mapstructure:"default_quality"`
	MaxConcurrentDownloads int    `json:"max_concurrent_downloads" mapstructure:"max_concurrent_downloads"`
	Theme                  string `json:"theme" mapstructure:"theme"`
	Language               string `json:"language" mapstructure:"language"`
	CreateSubfolders       bool   `json:"create_subfolders" mapstructure:"create_subfolders"`
	OverwriteFiles         bool   `json:"overwrite_files" mapstructure:"overwrite_files"`
}

// Defaults returns the settings used when the file is missing or unreadable
func Defaults() Settings {
	output := "downloads"
	if home, err := os.UserHomeDir(); err == nil {
		output = filepath.Join(home, "Downloads")
	}
	return Settings{
		OutputPath:             output,
		DefaultFormat:          "video",
		DefaultQuality:         "best",
		MaxConcurrentDownloads: 1,
		Theme:                  "dark",
		Language:               "en",
		CreateSubfolders:       false,
		OverwriteFiles:         false,
	}
}

// OutputDirFor returns the directory new downloads of kind are written to
func (s Settings) OutputDirFor(kind models.OutputKind) string {
	if !s.CreateSubfolders {
		return s.OutputPath
	}
	if kind == models.OutputAudio {
		return filepath.Join(s.OutputPath, "Audio")
	}
	return filepath.Join(s.OutputPath, "Video")
}

// Store reads and writes the settings file
type Store struct {
	path   string
	logger *logrus.Logger

	mu      sync.RWMutex
	current Settings
}

// NewStore loads path, falling back to defaults. It never fails: a missing or
// malformed file is logged and ignored.
func NewStore(path string, logger *logrus.Logger) *Store {
	s := &Store{path: path, logger: logger}
	s.current = s.load()
	return s
}

// values maps each file key to its value in settings
func values(settings Settings) map[string]any {
	return map[string]any{
		"output_path":              settings.OutputPath,
		"default_format":           settings.DefaultFormat,
		"default_quality":          settings.DefaultQuality,
		"max_concurrent_downloads": settings.MaxConcurrentDownloads,
		"theme":                    settings.Theme,
		"language":                 settings.Language,
		"create_subfolders":        settings.CreateSubfolders,
		"overwrite_files":          settings.OverwriteFiles,
	}
}

func (s *Store) newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigFile(s.path)
	v.SetConfigType("json")
	return v
}

func (s *Store) load() Settings {
	defaults := Defaults()

	v := s.newViper()
	for key, value := range values(defaults) {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		if !os.IsNotExist(err) {
			s.logger.WithError(err).WithField("path", s.path).Warn("Failed to read settings, using defaults")
		}
		return defaults
	}

	var loaded Settings
	if err := v.Unmarshal(&loaded); err != nil {
		s.logger.WithError(err).WithField("path", s.path).Warn("Invalid settings, using defaults")
		return defaults
	}

	return loaded
}

// Get returns the current settings
func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Save replaces the current settings and writes the whole file
func (s *Store) Save(settings Settings) error {
	if settings.MaxConcurrentDownloads < 1 {
		settings.MaxConcurrentDownloads = 1
	}

	v := s.newViper()
	for key, value := range values(settings) {
		v.Set(key, value)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	s.current = settings

	s.logger.WithField("path", s.path).Debug("Settings saved")
	return nil
}
