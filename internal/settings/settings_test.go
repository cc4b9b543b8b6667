package settings

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/amaumene/aacfetch/internal/models"
	"github.com/amaumene/aacfetch/internal/utils"
)

func TestMissingFileYieldsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")

	got := NewStore(path, utils.NewDiscardLogger()).Get()
	if got != Defaults() {
		t.Errorf("Get() = %+v, want defaults %+v", got, Defaults())
	}
}

func TestMalformedFileYieldsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	got := NewStore(path, utils.NewDiscardLogger()).Get()
	if got != Defaults() {
		t.Errorf("Get() = %+v, want defaults", got)
	}
}

func TestPartialFileKeepsOtherDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte(`{"default_quality": "720p", "theme": "light"}`), 0644); err != nil {
		t.Fatal(err)
	}

	got := NewStore(path, utils.NewDiscardLogger()).Get()
	if got.DefaultQuality != "720p" || got.Theme != "light" {
		t.Errorf("file values not applied: %+v", got)
	}
	if got.Language != "en" || got.MaxConcurrentDownloads != 1 {
		t.Errorf("defaults not kept for missing keys: %+v", got)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.json")
	store := NewStore(path, utils.NewDiscardLogger())

	want := Defaults()
	want.OutputPath = "/music"
	want.DefaultFormat = "audio"
	want.MaxConcurrentDownloads = 0
	want.OverwriteFiles = true

	if err := store.Save(want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got := NewStore(path, utils.NewDiscardLogger()).Get()
	if got.OutputPath != "/music" || got.DefaultFormat != "audio" || !got.OverwriteFiles {
		t.Errorf("reloaded settings = %+v", got)
	}
	if got.MaxConcurrentDownloads != 1 {
		t.Errorf("MaxConcurrentDownloads = %d, want clamped to 1", got.MaxConcurrentDownloads)
	}
	if store.Get().OutputPath != "/music" {
		t.Error("Save() must update the in-memory settings")
	}
}

func TestSaveWritesJSONKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	store := NewStore(path, utils.NewDiscardLogger())

	want := Defaults()
	want.DefaultQuality = "480p"
	want.CreateSubfolders = true
	if err := store.Save(want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("settings file not written: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("settings file is not JSON: %v\n%s", err, data)
	}
	if raw["default_quality"] != "480p" || raw["create_subfolders"] != true {
		t.Errorf("unexpected file content: %s", data)
	}
	if len(raw) != 8 {
		t.Errorf("file has %d keys, want 8: %s", len(raw), data)
	}
}

func TestOutputDirFor(t *testing.T) {
	s := Settings{OutputPath: "/media"}
	if got := s.OutputDirFor(models.OutputAudio); got != "/media" {
		t.Errorf("OutputDirFor(audio) = %q, want /media", got)
	}

	s.CreateSubfolders = true
	if got := s.OutputDirFor(models.OutputAudio); got != filepath.Join("/media", "Audio") {
		t.Errorf("OutputDirFor(audio) = %q", got)
	}
	if got := s.OutputDirFor(models.OutputVideo); got != filepath.Join("/media", "Video") {
		t.Errorf("OutputDirFor(video) = %q", got)
	}
}
