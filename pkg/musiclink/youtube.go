package musiclink

import (
	"net/url"
	"strings"
)

const (
	youTubeMusicHost = "music.youtube.com"
	youTubeHost      = "youtube.com"
)

var youTubeHosts = map[string]bool{
	"youtube.com":       true,
	"www.youtube.com":   true,
	"m.youtube.com":     true,
	"music.youtube.com": true,
	"youtu.be":          true,
}

// NormalizeYouTubeURL rewrites YouTube Music links to the canonical youtube.com domain.
func NormalizeYouTubeURL(rawURL string) string {
	return strings.ReplaceAll(rawURL, youTubeMusicHost, youTubeHost)
}

// IsYouTubeURL reports whether rawURL points at a YouTube or YouTube Music host.
func IsYouTubeURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return youTubeHosts[strings.ToLower(u.Hostname())]
}

// YouTubeVideoID extracts the video ID from watch and youtu.be links.
func YouTubeVideoID(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	hostname := strings.ToLower(u.Hostname())
	if !youTubeHosts[hostname] {
		return "", ErrNoVideoID
	}

	if hostname == "youtu.be" {
		path := strings.Trim(u.Path, "/")
		if path == "" {
			return "", ErrNoVideoID
		}
		return path, nil
	}

	videoID := u.Query().Get("v")
	if videoID == "" {
		return "", ErrNoVideoID
	}
	return videoID, nil
}
