package i18n

// englishMessages contains all English translations.
var englishMessages = map[string]string{
	"error.missing_url":  "No spotify_url provided",
	"error.invalid_body": "Request body must be a JSON object",
	"error.invalid_url":  "spotify_url is not a Spotify track link",
	"error.not_found":    "Could not find a YouTube URL",
	"error.rate_limited": "Too many requests, try again in a minute",
}
