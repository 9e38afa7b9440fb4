// Package musiclink validates music-streaming source links and normalizes video-platform destination links.
package musiclink

import (
	"errors"
)

var (
	// ErrInvalidURL is returned when the input is not a well-formed http(s) URL or Spotify URI.
	ErrInvalidURL = errors.New("invalid URL")
	// ErrNotSpotifyTrack is returned when a well-formed URL does not point at a Spotify track.
	ErrNotSpotifyTrack = errors.New("not a Spotify track link")
	// ErrNoVideoID is returned when a YouTube URL carries no video ID.
	ErrNoVideoID = errors.New("no video ID in YouTube URL")
)
