package ffmpeg

import (
	"fmt"
	"strings"
)

// Preset is an AAC encoding profile for the compatibility transcode
type Preset struct {
	Name       string
	Bitrate    string // ffmpeg -b:a value, e.g. "192k"
	SampleRate int
	Channels   int
	ClearTitle bool // write an empty title tag
}

var presets = map[string]Preset{
	"interactive": {Name: "interactive", Bitrate: "192k", SampleRate: 44100, Channels: 2},
	"hq":          {Name: "hq", Bitrate: "256k", SampleRate: 48000, Channels: 2, ClearTitle: true},
}

// PresetByName returns a named preset ("interactive" or "hq")
func PresetByName(name string) (Preset, error) {
	p, ok := presets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Preset{}, fmt.Errorf("unknown audio preset %q", name)
	}
	return p, nil
}
