package utils

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	maxFilenameRunes = 200
	defaultFilename  = "untitled"
)

// forbiddenFilenameChars are rejected by at least one mainstream filesystem
const forbiddenFilenameChars = `<>:"/\|?*`

// SanitizeFilename makes a title safe to use as a file name on every
// platform. Applying it twice yields the same result as applying it once.
func SanitizeFilename(name string) string {
	name = norm.NFC.String(name)

	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(forbiddenFilenameChars, r) || unicode.IsControl(r) {
			return '_'
		}
		return r
	}, name)

	name = strings.TrimLeftFunc(name, unicode.IsSpace)
	name = trimFilenameRight(name)

	// Leave room for a marker and an extension
	if runes := []rune(name); len(runes) > maxFilenameRunes {
		name = trimFilenameRight(string(runes[:maxFilenameRunes]))
	}

	if name == "" {
		return defaultFilename
	}
	return name
}

// trimFilenameRight drops trailing spaces and dots, which Windows refuses
func trimFilenameRight(name string) string {
	return strings.TrimRightFunc(name, func(r rune) bool {
		return r == '.' || unicode.IsSpace(r)
	})
}

// FormatDuration renders seconds as MM:SS, or HH:MM:SS past one hour
func FormatDuration(seconds int) string {
	if seconds < 0 {
		return "00:00"
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60
	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%02d:%02d", minutes, secs)
}

var supportedHosts = []string{
	"youtube.com",
	"youtu.be",
	"youtube-nocookie.com",
	"soundcloud.com",
	"vimeo.com",
	"dailymotion.com",
	"twitch.tv",
}

// IsSupportedURL reports whether raw is an http(s) URL on a supported platform
func IsSupportedURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}

	host := strings.ToLower(u.Hostname())
	for _, h := range supportedHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}
