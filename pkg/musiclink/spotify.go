package musiclink

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/zmb3/spotify/v2"
	"golang.org/x/text/unicode/norm"
)

const (
	// SpotifyTrackBaseURL is the canonical track link prefix handed to the lookup tool.
	SpotifyTrackBaseURL   = "https://open.spotify.com/track/"
	spotifyTrackURIPrefix = "spotify:track:"
)

var (
	spotifyURIRegex = regexp.MustCompile(`^spotify:track:([a-zA-Z0-9]+)$`)
	spotifyIDRegex  = regexp.MustCompile(`^[a-zA-Z0-9]+$`)

	spotifyDomains = map[string]bool{
		"open.spotify.com": true,
		"play.spotify.com": true,
		"spotify.com":      true,
		"www.spotify.com":  true,
	}
)

// SpotifyTrack is a validated Spotify track reference.
type SpotifyTrack struct {
	ID  spotify.ID  // Track ID as used by the Spotify Web API.
	URI spotify.URI // spotify:track:<id>
	URL string      // Canonical open.spotify.com link handed to the lookup tool.
}

func newSpotifyTrack(id spotify.ID) *SpotifyTrack {
	return &SpotifyTrack{
		ID:  id,
		URI: spotify.URI(spotifyTrackURIPrefix + id.String()),
		URL: SpotifyTrackBaseURL + id.String(),
	}
}

// ParseSpotifyTrack validates raw as a Spotify track link and returns its canonical form.
// Accepted shapes are open.spotify.com/track/<id> (optionally behind an intl-xx segment)
// and spotify:track:<id>. Query strings, fragments and locale segments are dropped.
func ParseSpotifyTrack(raw string) (*SpotifyTrack, error) {
	raw = norm.NFKC.String(strings.TrimSpace(raw))
	if raw == "" {
		return nil, ErrInvalidURL
	}

	if m := spotifyURIRegex.FindStringSubmatch(raw); m != nil {
		return newSpotifyTrack(spotify.ID(m[1])), nil
	}

	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return nil, ErrInvalidURL
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Host == "" {
		return nil, ErrInvalidURL
	}

	if !spotifyDomains[strings.ToLower(u.Hostname())] {
		return nil, ErrNotSpotifyTrack
	}

	id, ok := trackIDFromPath(u.Path)
	if !ok {
		return nil, ErrNotSpotifyTrack
	}

	return newSpotifyTrack(spotify.ID(id)), nil
}

func trackIDFromPath(path string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i, part := range parts {
		if part == "track" && i+1 < len(parts) {
			id := parts[i+1]
			return id, spotifyIDRegex.MatchString(id)
		}
	}
	return "", false
}
