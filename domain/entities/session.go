package entities

import (
	"errors"
	"fmt"
)

// DefaultLanguage is the target language of a fresh session
const DefaultLanguage = "en"

// ErrUnsupportedLanguage is returned for language codes outside SupportedLanguages
var ErrUnsupportedLanguage = errors.New("unsupported language")

// Language is a selectable target language
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// SupportedLanguages lists the target languages offered to the user, in display order
var SupportedLanguages = []Language{
	{Code: "en", Name: "English"},
	{Code: "ta", Name: "Tamil"},
	{Code: "ja", Name: "Japanese"},
	{Code: "hi", Name: "Hindi"},
	{Code: "es", Name: "Spanish"},
	{Code: "fr", Name: "French"},
	{Code: "de", Name: "German"},
	{Code: "it", Name: "Italian"},
	{Code: "pt", Name: "Portuguese"},
	{Code: "ru", Name: "Russian"},
	{Code: "ko", Name: "Korean"},
	{Code: "zh", Name: "Chinese"},
	{Code: "ar", Name: "Arabic"},
}

// LanguageName returns the display name for a code, or the code itself if unknown
func LanguageName(code string) string {
	for _, lang := range SupportedLanguages {
		if lang.Code == code {
			return lang.Name
		}
	}
	return code
}

// IsSupportedLanguage checks a code against SupportedLanguages
func IsSupportedLanguage(code string) bool {
	for _, lang := range SupportedLanguages {
		if lang.Code == code {
			return true
		}
	}
	return false
}

// SessionState holds the per-session UI flags
type SessionState struct {
	SelectedLanguage string `json:"selected_language"`
	IsListening      bool   `json:"is_listening"`
	IsProcessing     bool   `json:"is_processing"`
}

// NewSessionState returns the defaults for a new conversation
func NewSessionState() SessionState {
	return SessionState{SelectedLanguage: DefaultLanguage}
}

// TextInputEnabled reports whether the text field accepts typing
func (s SessionState) TextInputEnabled() bool {
	return !s.IsListening
}

// SendEnabled reports whether a text submission may start
func (s SessionState) SendEnabled() bool {
	return !s.IsListening && !s.IsProcessing
}

// RecordToggleEnabled reports whether the record toggle is actionable.
// A running recording can always be stopped.
func (s SessionState) RecordToggleEnabled() bool {
	return s.IsListening || !s.IsProcessing
}

// Validate validates the session state
func (s SessionState) Validate() error {
	if !IsSupportedLanguage(s.SelectedLanguage) {
		return fmt.Errorf("%w: %q", ErrUnsupportedLanguage, s.SelectedLanguage)
	}
	return nil
}
