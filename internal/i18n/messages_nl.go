package i18n

// dutchMessages contains all Dutch translations.
var dutchMessages = map[string]string{
	"error.missing_url":  "Geen spotify_url opgegeven",
	"error.invalid_body": "De request body moet een JSON-object zijn",
	"error.invalid_url":  "spotify_url is geen Spotify-tracklink",
	"error.not_found":    "Kon geen YouTube URL vinden",
	"error.rate_limited": "Te veel verzoeken, probeer het over een minuut opnieuw",
}
