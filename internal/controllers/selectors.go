package controllers

import (
	"fmt"
	"strings"

	"github.com/amaumene/aacfetch/internal/models"
)

// Format-selector expressions handed to yt-dlp. Alternatives are separated by
// "/" and tried left to right, so the most specific query comes first.

const (
	standard720Selector = "bestvideo[height<=720][vcodec^=avc1][fps>=30]+bestaudio[acodec=aac]/" +
		"bestvideo[height<=720][vcodec^=avc1]+bestaudio[acodec=aac]/" +
		"bestvideo[height<=720]+bestaudio[acodec=aac]/" +
		"best[height<=720]"

	forcedConversionSelector = "bestvideo[height<=1080]+bestaudio/best[height<=1080]/best"

	// 140 is YouTube's 128k AAC audio track
	h264HighQualitySelector = "bestvideo[vcodec^=avc1][height>=720][fps>=30]+bestaudio[acodec=aac]/" +
		"bestvideo[vcodec^=avc1][height>=720]+bestaudio[acodec=aac]/" +
		"bestvideo[vcodec^=avc1][height>=480]+bestaudio[acodec=aac]/" +
		"bestvideo[vcodec^=avc1]+140/" +
		"bestvideo[ext=mp4][height>=720]+bestaudio[acodec=aac]/" +
		"best[vcodec^=avc1][height>=720]"

	audioOnlySelector = "bestaudio/best"
)

var h264HighQualitySort = []string{"res:720", "fps:30", "vcodec:h264", "acodec:aac"}

var maxQualityAACSelectors = map[models.Quality]string{
	models.QualityBest: "bestvideo[vcodec^=avc1][height<=1080][fps>=30]+bestaudio[acodec=aac]/" +
		"bestvideo[vcodec^=avc1][height<=1080]+bestaudio[acodec=aac]/" +
		"bestvideo[height<=1080]+bestaudio[acodec=aac]/" +
		"bestvideo[vcodec^=avc1]+140/" +
		"best[vcodec^=avc1][height<=1080]/" +
		"best[height<=1080]",
	models.Quality1080p: "bestvideo[height<=1080][vcodec^=avc1][fps>=30]+bestaudio[acodec=aac]/" +
		"bestvideo[height<=1080][vcodec^=avc1]+bestaudio[acodec=aac]/" +
		"bestvideo[height<=1080]+bestaudio[acodec=aac]/" +
		"best[height<=1080]",
	models.Quality720p: standard720Selector,
	models.Quality480p: "bestvideo[height<=480][vcodec^=avc1]+bestaudio[acodec=aac]/" +
		"bestvideo[height<=480]+bestaudio[acodec=aac]/" +
		"best[height<=480]",
}

func premiumSelector(bestVideoID, bestAACID string) string {
	return strings.Join([]string{
		"bestvideo[height<=1080][vcodec^=avc1][fps>=30]+bestaudio[acodec=aac]",
		fmt.Sprintf("bestvideo[height<=1080][vcodec^=avc1]+%s", bestAACID),
		fmt.Sprintf("%s+%s", bestVideoID, bestAACID),
		"bestvideo[height<=1080]+bestaudio[acodec=aac]",
	}, "/")
}

func highQualityAdaptiveSelector(targetHeight int) string {
	return strings.Join([]string{
		fmt.Sprintf("bestvideo[height<=%d][vcodec^=avc1][fps>=30]+bestaudio[acodec=aac]", targetHeight),
		fmt.Sprintf("bestvideo[height<=%d][vcodec^=avc1]+bestaudio[acodec=aac]", targetHeight),
		fmt.Sprintf("bestvideo[height<=%d]+bestaudio[acodec=aac]", targetHeight),
		fmt.Sprintf("best[height<=%d][vcodec^=avc1]", targetHeight),
	}, "/")
}

func adaptiveAACSelector(bestAACID string) string {
	return strings.Join([]string{
		fmt.Sprintf("bestvideo+%s", bestAACID),
		"bestvideo+bestaudio[acodec=aac]",
		"best[acodec=aac]",
	}, "/")
}

func conversionSelector(bestVideoID string, height int) string {
	return strings.Join([]string{
		fmt.Sprintf("%s+bestaudio", bestVideoID),
		fmt.Sprintf("bestvideo[height<=%d]+bestaudio", height),
		fmt.Sprintf("best[height<=%d]", height),
	}, "/")
}

// maxQualityAACSelector picks the selector for the requested tier; unknown
// tiers use the "best" selector
func maxQualityAACSelector(quality models.Quality) string {
	if sel, ok := maxQualityAACSelectors[quality]; ok {
		return sel
	}
	return maxQualityAACSelectors[models.QualityBest]
}

// adaptiveCeilingSelector caps the H.264 query at the highest standard
// resolution available
func adaptiveCeilingSelector(maxHeight int) string {
	var target string
	switch {
	case maxHeight >= 1080:
		target = "bestvideo[height<=1080][vcodec^=avc1]+bestaudio[acodec=aac]"
	case maxHeight >= 720:
		target = "bestvideo[height<=720][vcodec^=avc1]+bestaudio[acodec=aac]"
	default:
		target = "bestvideo[vcodec^=avc1]+bestaudio[acodec=aac]"
	}
	return target + "/bestvideo+bestaudio[acodec=aac]/best[ext=mp4]"
}

// audioOnlyBitrate is the MP3 bitrate for audio-only jobs
func audioOnlyBitrate(quality models.Quality) string {
	if quality == models.QualityBest {
		return "192K"
	}
	return "128K"
}
