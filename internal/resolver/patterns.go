package resolver

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"tubelink/pkg/musiclink"
)

const youTubeWatchURL = `https?://(?:www\.)?(?:music\.)?youtube\.com/watch\?v=[a-zA-Z0-9_-]+`

// destinationPatterns are tried in order; the first pattern with a match wins.
var destinationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(` + youTubeWatchURL + `)`),
	regexp.MustCompile(`URL: (` + youTubeWatchURL + `)`),
	regexp.MustCompile(`Song URL: (` + youTubeWatchURL + `)`),
	regexp.MustCompile(`Using youtube-music\s+URL: (` + youTubeWatchURL + `)`),
}

// matchDestination extracts the first destination URL from tool output,
// normalized to the canonical youtube.com domain.
func matchDestination(output string) (string, bool) {
	for _, pattern := range destinationPatterns {
		if m := pattern.FindStringSubmatch(output); m != nil && musiclink.IsYouTubeURL(m[1]) {
			return musiclink.NormalizeYouTubeURL(m[1]), true
		}
	}
	return "", false
}

// diagnosis records failure signals found in tool output. It only feeds logs.
type diagnosis struct {
	TransportError    bool // "HTTP Error": blocked or refused by an upstream service.
	ConnectivityError bool // "Connection Error": network trouble.
	ToolCrash         bool // "Traceback": the tool crashed or is misconfigured.
}

func diagnose(output string) diagnosis {
	return diagnosis{
		TransportError:    strings.Contains(output, "HTTP Error"),
		ConnectivityError: strings.Contains(output, "Connection Error"),
		ToolCrash:         strings.Contains(output, "Traceback"),
	}
}

func (d diagnosis) any() bool {
	return d.TransportError || d.ConnectivityError || d.ToolCrash
}

func (d diagnosis) fields() []zap.Field {
	return []zap.Field{
		zap.Bool("http_error", d.TransportError),
		zap.Bool("connection_error", d.ConnectivityError),
		zap.Bool("traceback", d.ToolCrash),
	}
}

// excerpt returns the first and last n characters of output for debug logs.
func excerpt(output string, n int) (head, tail string) {
	if len(output) <= n {
		return output, output
	}
	return output[:n], output[len(output)-n:]
}
