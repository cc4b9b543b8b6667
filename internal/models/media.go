package models

// MediaItem identifies one piece of remote media as reported by the extractor
type MediaItem struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Duration   float64 `json:"duration"` // seconds
	Uploader   string  `json:"uploader"`
	ViewCount  int64   `json:"view_count"`
	Thumbnail  string  `json:"thumbnail,omitempty"`
	WebpageURL string  `json:"webpage_url"`
}

// RawFormat is one encoding variant exactly as the extractor lists it
type RawFormat struct {
	FormatID string  `json:"format_id"`
	Ext      string  `json:"ext"`
	VCodec   string  `json:"vcodec"`
	ACodec   string  `json:"acodec"`
	Height   int     `json:"height"`
	Width    int     `json:"width"`
	FPS      float64 `json:"fps"`
	TBR      float64 `json:"tbr"` // total bitrate, kbps
	ABR      float64 `json:"abr"` // audio bitrate, kbps
	ASR      int     `json:"asr"` // audio sample rate, Hz
	Filesize *int64  `json:"filesize"`
}

// HasVideo reports whether the variant carries a video stream
func (f RawFormat) HasVideo() bool {
	return f.VCodec != "" && f.VCodec != "none"
}

// HasAudio reports whether the variant carries an audio stream
func (f RawFormat) HasAudio() bool {
	return f.ACodec != "" && f.ACodec != "none"
}

// VideoFormat describes a variant that carries video
type VideoFormat struct {
	FormatID     string  `json:"format_id"`
	Height       int     `json:"height"`
	Width        int     `json:"width"`
	FPS          float64 `json:"fps"`
	VCodec       string  `json:"vcodec"`
	TBR          float64 `json:"tbr"`
	Ext          string  `json:"ext"`
	Filesize     *int64  `json:"filesize,omitempty"` // nil when unknown
	QualityScore int     `json:"quality_score"`
}

// AudioFormat describes a variant that carries audio
type AudioFormat struct {
	FormatID     string  `json:"format_id"`
	ACodec       string  `json:"acodec"`
	ABR          float64 `json:"abr"`
	ASR          int     `json:"asr"`
	QualityScore int     `json:"quality_score"`
}

// CatalogAnalysis aggregates every variant offered for one media item.
// It is built fresh per request and must not be mutated after construction.
type CatalogAnalysis struct {
	VideoFormats []VideoFormat `json:"video_formats"` // descending quality score
	AudioFormats []AudioFormat `json:"audio_formats"` // descending quality score
	BestVideo    *VideoFormat  `json:"best_video,omitempty"`
	BestAudioAAC *AudioFormat  `json:"best_audio_aac,omitempty"`
	MaxHeight    int           `json:"max_height"`
	HasH264      bool          `json:"has_h264"`
	HasAAC       bool          `json:"has_aac"`
}

// QualityChoice is one selectable entry offered to the frontend
type QualityChoice struct {
	FormatID string `json:"format_id"`
	Label    string `json:"label"`
	Height   int    `json:"height,omitempty"`
	Type     string `json:"type"` // "video" or "audio"
}
