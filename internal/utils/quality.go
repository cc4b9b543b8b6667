package utils

import (
	"sort"
	"strings"

	"github.com/amaumene/aacfetch/internal/models"
)

// IsH264 reports whether a video codec name belongs to the H.264 family
func IsH264(vcodec string) bool {
	return strings.Contains(vcodec, "avc1") || strings.Contains(strings.ToLower(vcodec), "h264")
}

// IsAACFamily reports whether an audio codec name belongs to the AAC family.
// yt-dlp reports AAC as "mp4a.40.<object type>", so those count too.
func IsAACFamily(acodec string) bool {
	lower := strings.ToLower(acodec)
	return strings.Contains(lower, "aac") || strings.HasPrefix(lower, "mp4a.40")
}

// VideoQualityScore scores a video variant: resolution tier, then frame rate,
// then an H.264 bonus
func VideoQualityScore(height int, fps float64, vcodec string) int {
	score := 0

	switch {
	case height >= 1080:
		score += 100
	case height >= 720:
		score += 75
	case height >= 480:
		score += 50
	default:
		score += 25
	}

	switch {
	case fps >= 60:
		score += 20
	case fps >= 30:
		score += 10
	}

	if IsH264(vcodec) {
		score += 15
	}

	return score
}

// AudioQualityScore scores an audio variant. Codec family dominates bitrate:
// AAC at 128k always beats anything else at any bitrate.
func AudioQualityScore(acodec string, abr float64) int {
	score := 0
	lower := strings.ToLower(acodec)

	switch {
	case strings.Contains(lower, "aac"):
		score += 50
	case strings.Contains(lower, "mp4a"):
		score += 45
	case strings.Contains(lower, "opus"):
		score += 30
	}

	switch {
	case abr >= 192:
		score += 30
	case abr >= 128:
		score += 20
	case abr >= 96:
		score += 10
	}

	return score
}

// RankVideoFormats sorts video formats by descending score, keeping input
// order between equal scores
func RankVideoFormats(formats []models.VideoFormat) []models.VideoFormat {
	sorted := make([]models.VideoFormat, len(formats))
	copy(sorted, formats)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].QualityScore > sorted[j].QualityScore
	})

	return sorted
}

// RankAudioFormats sorts audio formats by descending score, keeping input
// order between equal scores
func RankAudioFormats(formats []models.AudioFormat) []models.AudioFormat {
	sorted := make([]models.AudioFormat, len(formats))
	copy(sorted, formats)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].QualityScore > sorted[j].QualityScore
	})

	return sorted
}
