package controllers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/amaumene/aacfetch/internal/utils"
)

func TestIsStrayArtifact(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"Clip.mp4.part", true},
		{"Clip.f137.mp4.part-Frag12", true},
		{"Clip.mp4.ytdl", true},
		{"Clip.temp", true},
		{"Clip.temp.mp4", false},
		{"Clip.webm", true},
		{"Clip.f137.mp4", true},
		{"Clip.f251.webm", true},
		{"Clip_temp.mp4", false},
		{"Clip.mp4", false},
		{"Clip.mp3", false},
		{"Clip.flac", false},
		{"Clip_original.mp4", false},
		{"temperature.mp4", false},
	}

	for _, tt := range tests {
		if got := isStrayArtifact(tt.name); got != tt.want {
			t.Errorf("isStrayArtifact(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestSweepOutputDir(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"Clip.mp4", "Old.mp4.part", "Old.temp", "Old.f140.m4a", "Song.mp3"} {
		tempFile(t, dir, name, "x")
	}
	nested := filepath.Join(dir, "nested")
	if err := os.Mkdir(nested, 0755); err != nil {
		t.Fatal(err)
	}
	tempFile(t, nested, "Inner.part", "x")

	c := NewCleanupController(utils.NewDiscardLogger())
	removed, err := c.SweepOutputDir(dir)
	if err != nil {
		t.Fatalf("SweepOutputDir() error = %v", err)
	}
	if removed != 3 {
		t.Errorf("removed %d files, want 3", removed)
	}

	for _, name := range []string{"Clip.mp4", "Song.mp3", "nested/Inner.part"} {
		assertExists(t, filepath.Join(dir, filepath.FromSlash(name)))
	}
	for _, name := range []string{"Old.mp4.part", "Old.temp", "Old.f140.m4a"} {
		assertMissing(t, filepath.Join(dir, name))
	}
}

func TestSweepMissingDir(t *testing.T) {
	c := NewCleanupController(utils.NewDiscardLogger())
	removed, err := c.SweepOutputDir(filepath.Join(t.TempDir(), "absent"))
	if err != nil || removed != 0 {
		t.Errorf("SweepOutputDir(absent) = %d, %v, want 0, nil", removed, err)
	}
}

func TestSweepKeepsFinishedFilesWithTempInTitle(t *testing.T) {
	dir := t.TempDir()
	keep := []string{
		utils.SanitizeFilename("Clip_temp") + ".mp4",
		utils.SanitizeFilename("notes.temp") + ".mp4",
		utils.SanitizeFilename("Mix_TEMP") + ".mp3",
	}
	for _, name := range keep {
		tempFile(t, dir, name, "x")
	}

	c := NewCleanupController(utils.NewDiscardLogger())
	removed, err := c.SweepOutputDir(dir)
	if err != nil {
		t.Fatalf("SweepOutputDir() error = %v", err)
	}
	if removed != 0 {
		t.Errorf("removed %d finished files, want 0", removed)
	}
	for _, name := range keep {
		assertExists(t, filepath.Join(dir, name))
	}
}
