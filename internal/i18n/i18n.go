// Package i18n provides localized messages for API responses
package i18n

import (
	"fmt"
)

const (
	// DefaultLanguage is the fallback language when no translation is available
	DefaultLanguage = "en"
	// DutchLanguage is the Dutch language code
	DutchLanguage = "nl"
)

// Localizer provides translation functionality
type Localizer struct {
	language string
	messages map[string]string
}

// NewLocalizer creates a new localizer for the specified language
func NewLocalizer(language string) *Localizer {
	if !IsSupported(language) {
		language = DefaultLanguage
	}
	return &Localizer{
		language: language,
		messages: getMessages(language),
	}
}

// Language returns the effective language code
func (l *Localizer) Language() string {
	return l.language
}

// T translates a message key, with optional parameters for formatting
func (l *Localizer) T(key string, args ...interface{}) string {
	message, exists := l.messages[key]
	if !exists && l.language != DefaultLanguage {
		message, exists = getMessages(DefaultLanguage)[key]
	}
	if !exists {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(message, args...)
	}
	return message
}

// GetSupportedLanguages returns list of supported language codes
func GetSupportedLanguages() []string {
	return []string{DefaultLanguage, DutchLanguage}
}

// IsSupported reports whether language has a message table
func IsSupported(language string) bool {
	for _, lang := range GetSupportedLanguages() {
		if lang == language {
			return true
		}
	}
	return false
}

func getMessages(language string) map[string]string {
	switch language {
	case DutchLanguage:
		return dutchMessages
	default:
		return englishMessages
	}
}
