package controllers

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/sirupsen/logrus"
)

// strayArtifacts match leftovers of interrupted retrievals by extension only.
// Titles are free text, so a finished file named "Clip_temp.mp4" or
// "notes.temp.mp4" must never match.
var strayArtifacts = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\.part(-frag\d+)?$`),
	regexp.MustCompile(`(?i)\.ytdl$`),
	regexp.MustCompile(`(?i)\.temp$`),
	regexp.MustCompile(`(?i)\.webm$`),
	regexp.MustCompile(`(?i)\.f\d+\.[^.]+$`),
}

// CleanupController removes stray artifacts from output directories
type CleanupController struct {
	logger *logrus.Logger
}

// NewCleanupController creates a new cleanup controller
func NewCleanupController(logger *logrus.Logger) *CleanupController {
	return &CleanupController{logger: logger}
}

// SweepOutputDir deletes stray artifacts directly inside dir and returns how
// many were removed. It assumes no job is writing to dir.
func (c *CleanupController) SweepOutputDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read output directory: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !isStrayArtifact(entry.Name()) {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil {
			c.logger.WithError(err).WithField("file", path).Warn("Failed to remove stray artifact")
			continue
		}
		removed++
	}

	if removed > 0 {
		c.logger.WithFields(logrus.Fields{
			"dir":     dir,
			"removed": removed,
		}).Info("Swept output directory")
	}

	return removed, nil
}

func isStrayArtifact(name string) bool {
	for _, re := range strayArtifacts {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}
